package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/steerfolio/steerfolio/internal/domain"
)

// schema creates the decision audit table. Targets are stored as JSON so
// the group set can evolve without migrations.
const schema = `
CREATE TABLE IF NOT EXISTS decision_history (
	id              TEXT PRIMARY KEY,
	created_at      TIMESTAMPTZ NOT NULL,
	decision_score  DOUBLE PRECISION NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	regime          TEXT NOT NULL,
	strategy        TEXT NOT NULL,
	targets         JSONB NOT NULL,
	valid           BOOLEAN NOT NULL,
	blocked_reasons TEXT NOT NULL DEFAULT ''
)`

// Record is one persisted decision cycle.
type Record struct {
	ID             string    `db:"id" json:"id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	DecisionScore  float64   `db:"decision_score" json:"decision_score"`
	Confidence     float64   `db:"confidence" json:"confidence"`
	Regime         string    `db:"regime" json:"regime"`
	Strategy       string    `db:"strategy" json:"strategy"`
	TargetsJSON    []byte    `db:"targets" json:"-"`
	Valid          bool      `db:"valid" json:"valid"`
	BlockedReasons string    `db:"blocked_reasons" json:"blocked_reasons"`
}

// Targets decodes the stored allocation.
func (r Record) Targets() (domain.Targets, error) {
	targets := domain.NewTargets()
	raw := map[string]float64{}
	if err := json.Unmarshal(r.TargetsJSON, &raw); err != nil {
		return nil, fmt.Errorf("decode targets for record %s: %w", r.ID, err)
	}
	for name, pct := range raw {
		g, err := domain.ParseGroup(name)
		if err != nil {
			return nil, err
		}
		targets[g] = pct
	}
	return targets, nil
}

// Store persists decision cycles to Postgres for audit and analytics.
type Store struct {
	db *sqlx.DB
}

// Open connects and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect decision history db: %w", err)
	}
	store := &Store{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing connection (tests).
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure decision history schema: %w", err)
	}
	return nil
}

// Save inserts one record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	const q = `INSERT INTO decision_history
		(id, created_at, decision_score, confidence, regime, strategy, targets, valid, blocked_reasons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.CreatedAt, rec.DecisionScore, rec.Confidence,
		rec.Regime, rec.Strategy, rec.TargetsJSON, rec.Valid, rec.BlockedReasons)
	if err != nil {
		return fmt.Errorf("save decision record %s: %w", rec.ID, err)
	}

	log.Debug().Str("id", rec.ID).Str("regime", rec.Regime).Msg("decision recorded")
	return nil
}

// Recent returns the latest n records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	const q = `SELECT id, created_at, decision_score, confidence, regime, strategy, targets, valid, blocked_reasons
		FROM decision_history ORDER BY created_at DESC LIMIT $1`

	var out []Record
	if err := s.db.SelectContext(ctx, &out, q, n); err != nil {
		return nil, fmt.Errorf("load recent decisions: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
