package calibration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
)

// weightsColumns is the list of columns for scoring_weights
// Column order must match scanConfig() expectations
const weightsColumns = `id, name, weights_json, description, created_at_ms, is_active`

// WeightsConfig is one named scoring-weight configuration.
type WeightsConfig struct {
	ID          int64
	Name        string
	Weights     domain.GroupWeights
	Description string
	CreatedAtMS int64
	IsActive    bool
}

// ScoreEngine receives activated weight vectors. Satisfied by
// scoring.Engine, whose SetWeights purges the score cache.
type ScoreEngine interface {
	SetWeights(weights domain.GroupWeights) error
}

// WeightsRepository stores named group-weight configurations with at most
// one active at a time.
type WeightsRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewWeightsRepository creates a new weights repository
func NewWeightsRepository(db *sql.DB, log zerolog.Logger) *WeightsRepository {
	return &WeightsRepository{
		db:  db,
		log: log.With().Str("repo", "weights").Logger(),
	}
}

// SaveWeights inserts or updates a named configuration. The vector is
// validated before it touches storage. With setActive the new configuration
// becomes the single active one in the same transaction.
func (r *WeightsRepository) SaveWeights(ctx context.Context, name string, weights domain.GroupWeights, description string, setActive bool) error {
	if name == "" {
		return fmt.Errorf("weights configuration name is empty")
	}
	if err := weights.Validate(); err != nil {
		return fmt.Errorf("rejected weights configuration %q: %w", name, err)
	}
	raw, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("failed to encode weights %q: %w", name, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scoring_weights (name, weights_json, description, created_at_ms, is_active)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT (name) DO UPDATE SET
			weights_json = excluded.weights_json,
			description = excluded.description
	`, name, string(raw), description, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save weights %q: %w", name, err)
	}

	if setActive {
		if _, err := tx.ExecContext(ctx, "UPDATE scoring_weights SET is_active = 0 WHERE is_active = 1"); err != nil {
			return fmt.Errorf("failed to clear active weights: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE scoring_weights SET is_active = 1 WHERE name = ?", name); err != nil {
			return fmt.Errorf("failed to activate weights %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit weights save: %w", err)
	}

	r.log.Info().Str("name", name).Bool("active", setActive).Msg("weights configuration saved")
	return nil
}

// LoadWeights returns the named configuration, or the active one when name
// is empty. Returns nil when nothing matches.
func (r *WeightsRepository) LoadWeights(ctx context.Context, name string) (*WeightsConfig, error) {
	var row *sql.Row
	if name == "" {
		row = r.db.QueryRowContext(ctx,
			"SELECT "+weightsColumns+" FROM scoring_weights WHERE is_active = 1")
	} else {
		row = r.db.QueryRowContext(ctx,
			"SELECT "+weightsColumns+" FROM scoring_weights WHERE name = ?", name)
	}

	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load weights %q: %w", name, err)
	}
	return cfg, nil
}

// ListConfigurations returns every stored configuration, newest first.
func (r *WeightsRepository) ListConfigurations(ctx context.Context) ([]WeightsConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+weightsColumns+" FROM scoring_weights ORDER BY created_at_ms DESC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list weights configurations: %w", err)
	}
	defer rows.Close()

	var out []WeightsConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weights configuration: %w", err)
		}
		out = append(out, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weights configurations: %w", err)
	}
	return out, nil
}

// SetActive makes name the single active configuration. Returns false when
// no configuration has that name.
func (r *WeightsRepository) SetActive(ctx context.Context, name string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "UPDATE scoring_weights SET is_active = 0 WHERE is_active = 1"); err != nil {
		return false, fmt.Errorf("failed to clear active weights: %w", err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE scoring_weights SET is_active = 1 WHERE name = ?", name)
	if err != nil {
		return false, fmt.Errorf("failed to activate weights %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read activation result: %w", err)
	}
	if n == 0 {
		// Unknown name: leave the previous active set untouched.
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit weights activation: %w", err)
	}
	r.log.Info().Str("name", name).Msg("weights configuration activated")
	return true, nil
}

// GetActiveWeights returns the active configuration's vector, or the
// baseline defaults when none is active.
func (r *WeightsRepository) GetActiveWeights(ctx context.Context) (domain.GroupWeights, error) {
	cfg, err := r.LoadWeights(ctx, "")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return domain.DefaultGroupWeights(), nil
	}
	return cfg.Weights, nil
}

// Activate flips the active configuration and pushes the new vector into
// the engine, which purges its score cache. The engine may be nil when no
// scoring process is attached (e.g. offline recalibration).
func (r *WeightsRepository) Activate(ctx context.Context, name string, engine ScoreEngine) (bool, error) {
	ok, err := r.SetActive(ctx, name)
	if err != nil || !ok {
		return ok, err
	}
	if engine == nil {
		return true, nil
	}
	weights, err := r.GetActiveWeights(ctx)
	if err != nil {
		return true, err
	}
	if err := engine.SetWeights(weights); err != nil {
		return true, fmt.Errorf("failed to apply activated weights %q: %w", name, err)
	}
	return true, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(row scanner) (*WeightsConfig, error) {
	var (
		cfg  WeightsConfig
		raw  string
		desc sql.NullString
	)
	if err := row.Scan(&cfg.ID, &cfg.Name, &raw, &desc, &cfg.CreatedAtMS, &cfg.IsActive); err != nil {
		return nil, err
	}
	if desc.Valid {
		cfg.Description = desc.String
	}
	if err := json.Unmarshal([]byte(raw), &cfg.Weights); err != nil {
		return nil, fmt.Errorf("failed to decode weights %q: %w", cfg.Name, err)
	}
	return &cfg, nil
}
