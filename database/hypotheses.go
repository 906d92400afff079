package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	loadSql "github.com/siherrmann/kgraph/sql"
)

// HypothesesDBHandlerFunctions defines the interface for discovery hypothesis database operations.
type HypothesesDBHandlerFunctions interface {
	InsertHypothesis(ctx context.Context, hypothesis *model.DiscoveryHypothesis) error
	SelectHypothesis(ctx context.Context, id uuid.UUID) (*model.DiscoveryHypothesis, error)
	SelectHypothesesByConcepts(ctx context.Context, conceptA string, conceptC *string) ([]*model.DiscoveryHypothesis, error)
	DeleteHypothesis(ctx context.Context, id uuid.UUID) error
}

// HypothesesDBHandler persists discovery hypotheses
type HypothesesDBHandler struct {
	db *helper.Database
}

// NewHypothesesDBHandler creates a new hypotheses database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewHypothesesDBHandler(db *helper.Database, force bool) (*HypothesesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	hypothesesDbHandler := &HypothesesDBHandler{
		db: db,
	}

	err := loadSql.LoadHypothesesSql(hypothesesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load hypotheses sql", err)
	}

	err = hypothesesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized HypothesesDBHandler")

	return hypothesesDbHandler, nil
}

// CreateTable creates the 'discovery_hypotheses' table in the database.
func (h *HypothesesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_hypotheses();`)
	if err != nil {
		log.Panicf("error initializing hypotheses table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table discovery_hypotheses")

	return nil
}

// InsertHypothesis stores a hypothesis with its evidence chain
func (h *HypothesesDBHandler) InsertHypothesis(ctx context.Context, hypothesis *model.DiscoveryHypothesis) error {
	evidence := hypothesis.Evidence
	if evidence == nil {
		evidence = []model.EvidenceItem{}
	}
	evidenceJSON, err := json.Marshal(evidence)
	if err != nil {
		return helper.NewError("marshal evidence", err)
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_hypothesis($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		hypothesis.ConceptA,
		hypothesis.ConceptB,
		hypothesis.ConceptC,
		hypothesis.SupportStrength,
		hypothesis.Novelty,
		hypothesis.Confidence,
		hypothesis.Plausibility,
		hypothesis.PathStrength,
		hypothesis.CommonNeighbors,
		string(evidenceJSON),
	)

	err = scanHypothesis(row, hypothesis)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectHypothesis retrieves a hypothesis by ID, helper.ErrNotFound if it does not exist
func (h *HypothesesDBHandler) SelectHypothesis(ctx context.Context, id uuid.UUID) (*model.DiscoveryHypothesis, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_hypothesis($1)`, id)

	hypothesis := &model.DiscoveryHypothesis{}
	err := scanHypothesis(row, hypothesis)
	if err != nil {
		return nil, helper.MapNotFound("scan", err)
	}

	return hypothesis, nil
}

// SelectHypothesesByConcepts retrieves stored hypotheses for concept A and optionally concept C
func (h *HypothesesDBHandler) SelectHypothesesByConcepts(ctx context.Context, conceptA string, conceptC *string) ([]*model.DiscoveryHypothesis, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_hypotheses_by_concepts($1, $2)`, conceptA, conceptC)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	hypotheses := []*model.DiscoveryHypothesis{}
	for rows.Next() {
		hypothesis := &model.DiscoveryHypothesis{}
		err := scanHypothesis(rows, hypothesis)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		hypotheses = append(hypotheses, hypothesis)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return hypotheses, nil
}

// DeleteHypothesis deletes a hypothesis by ID
func (h *HypothesesDBHandler) DeleteHypothesis(ctx context.Context, id uuid.UUID) error {
	var affected int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_hypothesis($1)`, id).Scan(&affected)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if affected == 0 {
		return helper.NewError("delete hypothesis", helper.ErrNotFound)
	}
	return nil
}

func scanHypothesis(row rowScanner, hypothesis *model.DiscoveryHypothesis) error {
	var evidence []byte

	err := row.Scan(
		&hypothesis.ID,
		&hypothesis.ConceptA,
		&hypothesis.ConceptB,
		&hypothesis.ConceptC,
		&hypothesis.SupportStrength,
		&hypothesis.Novelty,
		&hypothesis.Confidence,
		&hypothesis.Plausibility,
		&hypothesis.PathStrength,
		&hypothesis.CommonNeighbors,
		&evidence,
		&hypothesis.CreatedAt,
	)
	if err != nil {
		return err
	}

	hypothesis.Evidence = []model.EvidenceItem{}
	if len(evidence) > 0 {
		err = json.Unmarshal(evidence, &hypothesis.Evidence)
		if err != nil {
			return helper.NewError("unmarshal evidence", err)
		}
	}

	return nil
}
