package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/darkodi/countdown-qr/internal/model"
)

var ErrNotFound = errors.New("countdown not found")

const selectColumns = `id, public_slug, title, message, target_date,
	background_color, text_color, background_image, progress_icon,
	views, custom_data, created_at`

// CountdownRepository is the primary (remote) store.
type CountdownRepository struct {
	db *sql.DB
}

func NewCountdownRepository(dsn string) (*CountdownRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	// Create table if not exists
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS countdowns (
            id UUID PRIMARY KEY,
            public_slug TEXT UNIQUE NOT NULL,
            title TEXT NOT NULL,
            message TEXT,
            target_date TIMESTAMPTZ NOT NULL,
            background_color TEXT NOT NULL DEFAULT '#4a148c',
            text_color TEXT NOT NULL DEFAULT '#ffffff',
            background_image TEXT,
            progress_icon TEXT,
            views BIGINT NOT NULL DEFAULT 0,
            custom_data JSONB NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return nil, err
	}

	return &CountdownRepository{db: db}, nil
}

func (r *CountdownRepository) Create(ctx context.Context, c *model.Countdown) error {
	custom, err := json.Marshal(c.CustomData())
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO countdowns
			(id, public_slug, title, message, target_date, background_color,
			 text_color, background_image, progress_icon, views, custom_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.PublicSlug, c.Title, Nullable(c.Message), c.TargetInstant,
		c.BackgroundColor, c.TextColor, Nullable(c.BackgroundImageURL),
		Nullable(c.ProgressIconKey), c.ViewCount, custom, c.CreatedAt,
	)
	return err
}

func (r *CountdownRepository) GetByID(ctx context.Context, id string) (*model.Countdown, error) {
	return r.getOne(ctx, "SELECT "+selectColumns+" FROM countdowns WHERE id = $1", id)
}

func (r *CountdownRepository) GetBySlug(ctx context.Context, publicSlug string) (*model.Countdown, error) {
	return r.getOne(ctx, "SELECT "+selectColumns+" FROM countdowns WHERE public_slug = $1", publicSlug)
}

func (r *CountdownRepository) getOne(ctx context.Context, query, arg string) (*model.Countdown, error) {
	c, err := ScanCountdown(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Update rewrites the mutable columns. The public slug is immutable
// once assigned and is deliberately absent from the SET list.
func (r *CountdownRepository) Update(ctx context.Context, c *model.Countdown) error {
	custom, err := json.Marshal(c.CustomData())
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE countdowns SET
			title = $2, message = $3, target_date = $4, background_color = $5,
			text_color = $6, background_image = $7, progress_icon = $8,
			custom_data = $9
		WHERE id = $1`,
		c.ID, c.Title, Nullable(c.Message), c.TargetInstant, c.BackgroundColor,
		c.TextColor, Nullable(c.BackgroundImageURL), Nullable(c.ProgressIconKey), custom,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CountdownRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM countdowns WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CountdownRepository) List(ctx context.Context) ([]model.Countdown, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM countdowns ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Countdown
	for rows.Next() {
		c, err := ScanCountdown(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CountdownRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE countdowns SET views = views + 1 WHERE id = $1", id)
	return err
}

func (r *CountdownRepository) Close() error {
	return r.db.Close()
}

// ============================================================
// ROW HELPERS
// ============================================================

// RowScanner covers *sql.Row and *sql.Rows. The fallback mirror shares
// these helpers since its schema mirrors the primary's.
type RowScanner interface {
	Scan(dest ...any) error
}

func ScanCountdown(row RowScanner) (*model.Countdown, error) {
	var (
		c       model.Countdown
		message sql.NullString
		image   sql.NullString
		iconKey sql.NullString
		custom  []byte
	)

	err := row.Scan(&c.ID, &c.PublicSlug, &c.Title, &message, &c.TargetInstant,
		&c.BackgroundColor, &c.TextColor, &image, &iconKey,
		&c.ViewCount, &custom, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.Message = message.String
	c.BackgroundImageURL = image.String
	c.ProgressIconKey = iconKey.String

	var aux map[string]any
	if len(custom) > 0 {
		// A corrupt aux map falls back to the legacy-row defaults
		// rather than failing the read.
		_ = json.Unmarshal(custom, &aux)
	}
	c.ApplyCustomData(aux)

	return &c, nil
}

// Nullable maps "" to SQL NULL for the optional text columns.
func Nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
