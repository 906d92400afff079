package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	loadSql "github.com/siherrmann/kgraph/sql"
)

// CitationsDBHandlerFunctions defines the interface for Citations database operations.
type CitationsDBHandlerFunctions interface {
	InsertCitations(ctx context.Context, sourceID uuid.UUID, candidates []model.CitationCandidate) ([]*model.Citation, error)
	SelectCitation(ctx context.Context, id uuid.UUID) (*model.Citation, error)
	SelectCitationsBySource(ctx context.Context, sourceID uuid.UUID) ([]*model.Citation, error)
	SelectUnresolvedCitations(ctx context.Context, sourceIDs []uuid.UUID) ([]*model.Citation, error)
	SelectResolvedCitations(ctx context.Context, ids []uuid.UUID) ([]*model.Citation, error)
	ResolveCitations(ctx context.Context, resolutions []model.CitationResolution) (int, error)
	UpdateCitationImportance(ctx context.Context, scores map[uuid.UUID]float64) error
	DeleteCitation(ctx context.Context, id uuid.UUID) error
}

// CitationsDBHandler handles citation-related database operations
type CitationsDBHandler struct {
	db *helper.Database
}

// NewCitationsDBHandler creates a new citations database handler.
// The resources table must exist already since citations reference it.
// If force is true, it will reload the SQL functions even if they already exist.
func NewCitationsDBHandler(db *helper.Database, force bool) (*CitationsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	citationsDbHandler := &CitationsDBHandler{
		db: db,
	}

	err := loadSql.LoadCitationsSql(citationsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load citations sql", err)
	}

	err = citationsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized CitationsDBHandler")

	return citationsDbHandler, nil
}

// CreateTable creates the 'citations' table in the database.
// If the table already exists, it does not create it again.
func (h *CitationsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_citations();`)
	if err != nil {
		log.Panicf("error initializing citations table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table citations")

	return nil
}

// InsertCitations stores all candidates of a source in one transaction.
// Either all candidates are committed or none.
func (h *CitationsDBHandler) InsertCitations(ctx context.Context, sourceID uuid.UUID, candidates []model.CitationCandidate) ([]*model.Citation, error) {
	if len(candidates) == 0 {
		return []*model.Citation{}, nil
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return nil, helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	citations := make([]*model.Citation, 0, len(candidates))
	for _, candidate := range candidates {
		row := tx.QueryRowContext(
			ctx,
			`SELECT * FROM insert_citation($1, $2, $3, $4, $5)`,
			sourceID,
			candidate.TargetURL,
			string(candidate.CitationType),
			candidate.ContextSnippet,
			candidate.Position,
		)

		citation := &model.Citation{}
		err := scanCitation(row, citation)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		citations = append(citations, citation)
	}

	err = tx.Commit()
	if err != nil {
		return nil, helper.NewError("commit", err)
	}

	return citations, nil
}

// SelectCitation retrieves a citation by ID, helper.ErrNotFound if it does not exist
func (h *CitationsDBHandler) SelectCitation(ctx context.Context, id uuid.UUID) (*model.Citation, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_citation($1)`, id)

	citation := &model.Citation{}
	err := scanCitation(row, citation)
	if err != nil {
		return nil, helper.MapNotFound("scan", err)
	}

	return citation, nil
}

// SelectCitationsBySource retrieves the citations of a resource ordered by position
func (h *CitationsDBHandler) SelectCitationsBySource(ctx context.Context, sourceID uuid.UUID) ([]*model.Citation, error) {
	return h.queryCitations(ctx, `SELECT * FROM select_citations_by_source($1)`, sourceID)
}

// SelectUnresolvedCitations retrieves citations without target resource.
// A nil sourceIDs selects unresolved citations of every source.
func (h *CitationsDBHandler) SelectUnresolvedCitations(ctx context.Context, sourceIDs []uuid.UUID) ([]*model.Citation, error) {
	return h.queryCitations(ctx, `SELECT * FROM select_unresolved_citations($1)`, uuidArrayOrNull(sourceIDs))
}

// SelectResolvedCitations retrieves resolved citations touching ids on either end.
// A nil ids selects every resolved citation.
func (h *CitationsDBHandler) SelectResolvedCitations(ctx context.Context, ids []uuid.UUID) ([]*model.Citation, error) {
	return h.queryCitations(ctx, `SELECT * FROM select_resolved_citations($1)`, uuidArrayOrNull(ids))
}

// ResolveCitations writes all resolutions in one transaction and returns the number of updated citations.
// Citations that are already resolved are left unchanged and not counted.
// On any failure the whole batch is rolled back.
func (h *CitationsDBHandler) ResolveCitations(ctx context.Context, resolutions []model.CitationResolution) (int, error) {
	if len(resolutions) == 0 {
		return 0, nil
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return 0, helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	updated := 0
	for _, resolution := range resolutions {
		var affected int
		err := tx.QueryRowContext(
			ctx,
			`SELECT resolve_citation($1, $2)`,
			resolution.CitationID,
			resolution.TargetResourceID,
		).Scan(&affected)
		if err != nil {
			return 0, helper.NewError("resolve citation", err)
		}
		updated += affected
	}

	err = tx.Commit()
	if err != nil {
		return 0, helper.NewError("commit", err)
	}

	return updated, nil
}

// UpdateCitationImportance writes importance scores keyed by citation ID in one transaction
func (h *CitationsDBHandler) UpdateCitationImportance(ctx context.Context, scores map[uuid.UUID]float64) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	for id, score := range scores {
		_, err := tx.ExecContext(ctx, `SELECT update_citation_importance($1, $2)`, id, score)
		if err != nil {
			return helper.NewError("update importance", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	return nil
}

// DeleteCitation deletes a citation by ID
func (h *CitationsDBHandler) DeleteCitation(ctx context.Context, id uuid.UUID) error {
	var affected int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_citation($1)`, id).Scan(&affected)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if affected == 0 {
		return helper.NewError("delete citation", helper.ErrNotFound)
	}
	return nil
}

func (h *CitationsDBHandler) queryCitations(ctx context.Context, query string, args ...interface{}) ([]*model.Citation, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	citations := []*model.Citation{}
	for rows.Next() {
		citation := &model.Citation{}
		err := scanCitation(rows, citation)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		citations = append(citations, citation)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return citations, nil
}

func scanCitation(row rowScanner, citation *model.Citation) error {
	var target uuid.NullUUID
	var citationType string
	var snippet sql.NullString
	var importance sql.NullFloat64

	err := row.Scan(
		&citation.ID,
		&citation.SourceResourceID,
		&citation.TargetURL,
		&target,
		&citationType,
		&snippet,
		&citation.Position,
		&importance,
		&citation.CreatedAt,
	)
	if err != nil {
		return err
	}

	citation.CitationType = model.CitationType(citationType)
	citation.TargetResourceID = nil
	if target.Valid {
		id := target.UUID
		citation.TargetResourceID = &id
	}
	citation.ContextSnippet = nil
	if snippet.Valid {
		s := snippet.String
		citation.ContextSnippet = &s
	}
	citation.ImportanceScore = nil
	if importance.Valid {
		score := importance.Float64
		citation.ImportanceScore = &score
	}

	return nil
}

// uuidArrayOrNull passes nil as SQL NULL and everything else as uuid[]
func uuidArrayOrNull(ids []uuid.UUID) interface{} {
	if ids == nil {
		return nil
	}
	return pq.Array(uuidStrings(ids))
}
