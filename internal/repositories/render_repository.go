package repositories

import (
	"context"
	"errors"
	"fmt"

	"mermaidrender/internal/httpkit"
	"mermaidrender/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrRenderNotFound = errors.New("render not found")
var ErrRenderExists = errors.New("render already recorded")

// MaxListLimit caps List page sizes.
const MaxListLimit = 200

const schema = `
CREATE TABLE IF NOT EXISTS render_history (
	id          TEXT PRIMARY KEY,
	request_id  TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error_code  TEXT NOT NULL DEFAULT '',
	theme       TEXT NOT NULL DEFAULT '',
	width       INTEGER NOT NULL DEFAULT 0,
	height      INTEGER NOT NULL DEFAULT 0,
	scale       DOUBLE PRECISION NOT NULL DEFAULT 0,
	source_hash TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	size_bytes  BIGINT NOT NULL DEFAULT 0,
	cached      BOOLEAN NOT NULL DEFAULT FALSE,
	object_key  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS render_history_created_at_idx ON render_history (created_at DESC);
`

const renderColumns = `id, request_id, status, error_code, theme, width, height, scale,
	source_hash, duration_ms, size_bytes, cached, object_key, created_at`

// DB is the part of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type RenderRepository struct {
	db DB
}

func NewRenderRepository(db DB) *RenderRepository {
	return &RenderRepository{db: db}
}

// EnsureSchema creates the history table if it does not exist.
func (r *RenderRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating render_history: %w", err)
	}
	return nil
}

func (r *RenderRepository) Record(ctx context.Context, rec *models.Render) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO render_history (id, request_id, status, error_code, theme, width, height, scale,
			source_hash, duration_ms, size_bytes, cached, object_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at
	`, rec.ID, rec.RequestID, rec.Status, rec.ErrorCode, rec.Theme, rec.Width, rec.Height, rec.Scale,
		rec.SourceHash, rec.DurationMS, rec.SizeBytes, rec.Cached, rec.ObjectKey,
	).Scan(&rec.CreatedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrRenderExists
		}
		return err
	}
	return nil
}

// List returns the newest renders first, optionally filtered by status.
func (r *RenderRepository) List(ctx context.Context, status string, limit int) ([]models.Render, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+renderColumns+`
		FROM render_history
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		if httpkit.IsUndefinedTable(err) {
			return []models.Render{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	out := []models.Render{}
	for rows.Next() {
		var rec models.Render
		if err := rows.Scan(scanTargets(&rec)...); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RenderRepository) Get(ctx context.Context, id string) (*models.Render, error) {
	var rec models.Render
	err := r.db.QueryRow(ctx, `
		SELECT `+renderColumns+`
		FROM render_history
		WHERE id=$1
	`, id).Scan(scanTargets(&rec)...)
	if err != nil {
		if httpkit.IsNoRows(err) {
			return nil, ErrRenderNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *RenderRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM render_history WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRenderNotFound
	}
	return nil
}

func scanTargets(rec *models.Render) []any {
	return []any{
		&rec.ID, &rec.RequestID, &rec.Status, &rec.ErrorCode, &rec.Theme, &rec.Width, &rec.Height, &rec.Scale,
		&rec.SourceHash, &rec.DurationMS, &rec.SizeBytes, &rec.Cached, &rec.ObjectKey, &rec.CreatedAt,
	}
}
