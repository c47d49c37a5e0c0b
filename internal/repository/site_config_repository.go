package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/site-cms-api/internal/models"
	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
)

// HistoryBuilder turns the value stored before a write (nil on first write) into the
// history entry recorded alongside it.
type HistoryBuilder func(previous *jsonvalue.Object) (*models.SiteConfigHistory, error)

// SiteConfigRepository persists keyed site configs and their append-only history.
type SiteConfigRepository struct {
	db *sqlx.DB
}

// NewSiteConfigRepository constructs the repository.
func NewSiteConfigRepository(db *sqlx.DB) *SiteConfigRepository {
	return &SiteConfigRepository{db: db}
}

// Get returns the config stored under key or sql.ErrNoRows.
func (r *SiteConfigRepository) Get(ctx context.Context, key string) (*models.SiteConfig, error) {
	const query = `SELECT key, value, updated_by, created_at, updated_at FROM site_configs WHERE key = $1`
	var cfg models.SiteConfig
	if err := r.db.GetContext(ctx, &cfg, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get site config: %w", err)
	}
	return &cfg, nil
}

// List returns every config key ordered by key.
func (r *SiteConfigRepository) List(ctx context.Context) ([]models.SiteConfigSummary, error) {
	const query = `SELECT key, updated_by, updated_at FROM site_configs ORDER BY key ASC`
	var items []models.SiteConfigSummary
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list site configs: %w", err)
	}
	return items, nil
}

// Save upserts value under key and appends the history entry produced by build in the
// same transaction. The current row is locked so concurrent saves serialise; the last
// writer still wins.
func (r *SiteConfigRepository) Save(ctx context.Context, key string, value *jsonvalue.Object, updatedBy *string, build HistoryBuilder) (*models.SiteConfigHistory, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin site config tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var previous *jsonvalue.Object
	const selectQuery = `SELECT value FROM site_configs WHERE key = $1 FOR UPDATE`
	var stored jsonvalue.Object
	switch err := tx.GetContext(ctx, &stored, selectQuery, key); {
	case err == nil:
		previous = &stored
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("load previous site config: %w", err)
	}

	entry, err := build(previous)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cfg := models.SiteConfig{Key: key, Value: value, UpdatedBy: updatedBy, CreatedAt: now, UpdatedAt: now}
	const upsertQuery = `INSERT INTO site_configs (key, value, updated_by, created_at, updated_at)
VALUES (:key, :value, :updated_by, :created_at, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, upsertQuery, cfg); err != nil {
		return nil, fmt.Errorf("upsert site config: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.ConfigKey = key
	entry.Value = value
	entry.PreviousValue = previous
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	const historyQuery = `INSERT INTO site_config_history (id, config_key, action, value, previous_value, diff, actor_id, actor_username, actor_role, note, source_path, restored_from, created_at)
VALUES (:id, :config_key, :action, :value, :previous_value, :diff, :actor_id, :actor_username, :actor_role, :note, :source_path, :restored_from, :created_at)`
	if _, err := tx.NamedExecContext(ctx, historyQuery, entry); err != nil {
		return nil, fmt.Errorf("insert site config history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit site config tx: %w", err)
	}
	return entry, nil
}

const historyColumns = `id, config_key, action, value, previous_value, diff, actor_id, actor_username, actor_role, note, source_path, restored_from, created_at`

// ListHistory returns the newest limit entries for key.
func (r *SiteConfigRepository) ListHistory(ctx context.Context, key string, limit int) ([]models.SiteConfigHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM site_config_history WHERE config_key = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	var entries []models.SiteConfigHistory
	if err := r.db.SelectContext(ctx, &entries, query, key, limit); err != nil {
		return nil, fmt.Errorf("list site config history: %w", err)
	}
	return entries, nil
}

// GetHistory returns one history entry or sql.ErrNoRows.
func (r *SiteConfigRepository) GetHistory(ctx context.Context, id string) (*models.SiteConfigHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM site_config_history WHERE id = $1`
	var entry models.SiteConfigHistory
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get site config history: %w", err)
	}
	return &entry, nil
}
