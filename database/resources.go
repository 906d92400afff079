package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	loadSql "github.com/siherrmann/kgraph/sql"
)

// ResourcesDBHandlerFunctions defines the interface for Resources database operations.
type ResourcesDBHandlerFunctions interface {
	InsertResource(ctx context.Context, resource *model.Resource) error
	SelectResource(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	SelectResourcesByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Resource, error)
	SelectAllResources(ctx context.Context, limit int) ([]*model.Resource, error)
	SelectResourcesWithSignal(ctx context.Context) ([]*model.Resource, error)
	SelectResourcesBySimilarity(ctx context.Context, embedding []float32, exclude uuid.UUID, limit int) ([]*model.Resource, error)
	SelectResourcesBySubjects(ctx context.Context, subjects []string, exclude uuid.UUID) ([]*model.Resource, error)
	SelectResourcesByClassification(ctx context.Context, code string, exclude uuid.UUID) ([]*model.Resource, error)
	SearchResourcesByText(ctx context.Context, concept string, slice *model.TimeSlice) ([]*model.Resource, error)
	SelectResourceSourceURLs(ctx context.Context) (map[uuid.UUID]string, error)
	UpdateResourceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	UpdateResourceAnnotations(ctx context.Context, resource *model.Resource) error
	DeleteResource(ctx context.Context, id uuid.UUID) error
}

// ResourcesDBHandler handles resource-related database operations
type ResourcesDBHandler struct {
	db *helper.Database
}

// NewResourcesDBHandler creates a new resources database handler.
// It loads the resource SQL functions and creates the table with an embedding column of embeddingDim.
// If force is true, it will reload the SQL functions even if they already exist.
func NewResourcesDBHandler(db *helper.Database, embeddingDim int, force bool) (*ResourcesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("%w: embedding dimension must be positive, got %d", helper.ErrInvalidParameter, embeddingDim))
	}

	resourcesDbHandler := &ResourcesDBHandler{
		db: db,
	}

	err := loadSql.LoadResourcesSql(resourcesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load resources sql", err)
	}

	err = resourcesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ResourcesDBHandler")

	return resourcesDbHandler, nil
}

// CreateTable creates the 'resources' table with its indexes and update trigger.
// If the table already exists, it does not create it again.
func (h *ResourcesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_resources($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing resources table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table resources")

	return nil
}

// InsertResource inserts a new resource and fills in its generated fields
func (h *ResourcesDBHandler) InsertResource(ctx context.Context, resource *model.Resource) error {
	var embedding interface{}
	if len(resource.Embedding) > 0 {
		embedding = pq.Array(resource.Embedding)
	}
	if resource.Metadata == nil {
		resource.Metadata = model.Metadata{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_resource($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		resource.Title,
		resource.Description,
		resource.Abstract,
		resource.Type,
		resource.SourceURL,
		resource.ContentFormat,
		resource.Content,
		embedding,
		pq.Array(nonNilStrings(resource.Subjects)),
		resource.ClassificationCode,
		resource.Quality,
		resource.PublishedYear,
		resource.Metadata,
	)

	err := scanResource(row, resource)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectResource retrieves a resource by ID, helper.ErrNotFound if it does not exist
func (h *ResourcesDBHandler) SelectResource(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_resource($1)`,
		id,
	)

	resource := &model.Resource{}
	err := scanResource(row, resource)
	if err != nil {
		return nil, helper.MapNotFound("scan", err)
	}

	return resource, nil
}

// SelectResourcesByIDs retrieves all existing resources of ids, unknown ids are skipped
func (h *ResourcesDBHandler) SelectResourcesByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Resource, error) {
	if len(ids) == 0 {
		return []*model.Resource{}, nil
	}
	return h.queryResources(ctx, `SELECT * FROM select_resources_by_ids($1)`, pq.Array(uuidStrings(ids)))
}

// SelectAllResources retrieves resources ordered by creation, limit <= 0 returns all
func (h *ResourcesDBHandler) SelectAllResources(ctx context.Context, limit int) ([]*model.Resource, error) {
	return h.queryResources(ctx, `SELECT * FROM select_all_resources($1)`, limit)
}

// SelectResourcesWithSignal retrieves resources having an embedding or at least one subject
func (h *ResourcesDBHandler) SelectResourcesWithSignal(ctx context.Context) ([]*model.Resource, error) {
	return h.queryResources(ctx, `SELECT * FROM select_resources_with_signal()`)
}

// SelectResourcesBySimilarity retrieves the limit nearest resources by cosine distance
func (h *ResourcesDBHandler) SelectResourcesBySimilarity(ctx context.Context, embedding []float32, exclude uuid.UUID, limit int) ([]*model.Resource, error) {
	if len(embedding) == 0 || limit <= 0 {
		return []*model.Resource{}, nil
	}
	return h.queryResources(
		ctx,
		`SELECT * FROM select_resources_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		exclude,
		limit,
	)
}

// SelectResourcesBySubjects retrieves resources sharing at least one subject
func (h *ResourcesDBHandler) SelectResourcesBySubjects(ctx context.Context, subjects []string, exclude uuid.UUID) ([]*model.Resource, error) {
	if len(subjects) == 0 {
		return []*model.Resource{}, nil
	}
	return h.queryResources(ctx, `SELECT * FROM select_resources_by_subjects($1, $2)`, pq.Array(subjects), exclude)
}

// SelectResourcesByClassification retrieves resources with exactly the given classification code
func (h *ResourcesDBHandler) SelectResourcesByClassification(ctx context.Context, code string, exclude uuid.UUID) ([]*model.Resource, error) {
	return h.queryResources(ctx, `SELECT * FROM select_resources_by_classification($1, $2)`, code, exclude)
}

// SearchResourcesByText retrieves resources mentioning concept in title, description or abstract
func (h *ResourcesDBHandler) SearchResourcesByText(ctx context.Context, concept string, slice *model.TimeSlice) ([]*model.Resource, error) {
	var start, end interface{}
	if slice != nil {
		start = slice.Start
		end = slice.End
	}
	return h.queryResources(ctx, `SELECT * FROM search_resources_by_text($1, $2, $3)`, concept, start, end)
}

// SelectResourceSourceURLs returns the source URL of every resource that has one
func (h *ResourcesDBHandler) SelectResourceSourceURLs(ctx context.Context) (map[uuid.UUID]string, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_resource_source_urls()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	urls := map[uuid.UUID]string{}
	for rows.Next() {
		var id uuid.UUID
		var url string
		err := rows.Scan(&id, &url)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		urls[id] = url
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return urls, nil
}

// UpdateResourceEmbedding replaces the embedding of a resource
func (h *ResourcesDBHandler) UpdateResourceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	var affected int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT update_resource_embedding($1, $2)`,
		id,
		pgvector.NewVector(embedding),
	).Scan(&affected)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if affected == 0 {
		return helper.NewError("update embedding", helper.ErrNotFound)
	}
	return nil
}

// UpdateResourceAnnotations writes subjects, classification code and quality of a resource
func (h *ResourcesDBHandler) UpdateResourceAnnotations(ctx context.Context, resource *model.Resource) error {
	var affected int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT update_resource_annotations($1, $2, $3, $4)`,
		resource.ID,
		pq.Array(nonNilStrings(resource.Subjects)),
		resource.ClassificationCode,
		resource.Quality,
	).Scan(&affected)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if affected == 0 {
		return helper.NewError("update annotations", helper.ErrNotFound)
	}
	return nil
}

// DeleteResource deletes a resource by ID
func (h *ResourcesDBHandler) DeleteResource(ctx context.Context, id uuid.UUID) error {
	var affected int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_resource($1)`, id).Scan(&affected)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if affected == 0 {
		return helper.NewError("delete resource", helper.ErrNotFound)
	}
	return nil
}

func (h *ResourcesDBHandler) queryResources(ctx context.Context, query string, args ...interface{}) ([]*model.Resource, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	resources := []*model.Resource{}
	for rows.Next() {
		resource := &model.Resource{}
		err := scanResource(rows, resource)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		resources = append(resources, resource)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return resources, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResource(row rowScanner, resource *model.Resource) error {
	var embedding pq.Float32Array
	var subjects pq.StringArray
	var classification sql.NullString
	var quality sql.NullFloat64
	var year sql.NullInt32

	err := row.Scan(
		&resource.ID,
		&resource.Title,
		&resource.Description,
		&resource.Abstract,
		&resource.Type,
		&resource.SourceURL,
		&resource.ContentFormat,
		&resource.Content,
		&embedding,
		&subjects,
		&classification,
		&quality,
		&year,
		&resource.Metadata,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)
	if err != nil {
		return err
	}

	resource.Embedding = nil
	if len(embedding) > 0 {
		resource.Embedding = []float32(embedding)
	}
	resource.Subjects = []string(subjects)
	resource.ClassificationCode = nil
	if classification.Valid {
		code := classification.String
		resource.ClassificationCode = &code
	}
	resource.Quality = nil
	if quality.Valid {
		q := quality.Float64
		resource.Quality = &q
	}
	resource.PublishedYear = nil
	if year.Valid {
		y := int(year.Int32)
		resource.PublishedYear = &y
	}

	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
