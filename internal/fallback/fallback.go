// Package fallback keeps an on-device SQLite mirror of countdown
// records. Writes to the primary store are mirrored best-effort; when
// the primary is unreachable the public view and list screens serve
// from here in degraded mode. The mirror is not guaranteed consistent
// with the primary.
package fallback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "github.com/mattn/go-sqlite3"

	"github.com/darkodi/countdown-qr/internal/model"
	"github.com/darkodi/countdown-qr/internal/repository"
)

// Mirror is the local degraded-mode copy of the countdown store. It
// also satisfies the full store surface, which the service tests use
// to run against an in-memory database.
type Mirror struct {
	db *sql.DB
}

func New(path string) (*Mirror, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Same columns as the primary so the scan helpers are shared.
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS countdowns (
            id TEXT PRIMARY KEY,
            public_slug TEXT UNIQUE NOT NULL,
            title TEXT NOT NULL,
            message TEXT,
            target_date TIMESTAMP NOT NULL,
            background_color TEXT NOT NULL DEFAULT '#4a148c',
            text_color TEXT NOT NULL DEFAULT '#ffffff',
            background_image TEXT,
            progress_icon TEXT,
            views INTEGER NOT NULL DEFAULT 0,
            custom_data TEXT NOT NULL DEFAULT '{}',
            created_at TIMESTAMP NOT NULL
        )
    `)
	if err != nil {
		return nil, err
	}

	return &Mirror{db: db}, nil
}

// Save upserts a record, keyed by id. Mirrored copies always reflect
// the latest state the caller saw.
func (m *Mirror) Save(ctx context.Context, c *model.Countdown) error {
	custom, err := json.Marshal(c.CustomData())
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO countdowns
			(id, public_slug, title, message, target_date, background_color,
			 text_color, background_image, progress_icon, views, custom_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PublicSlug, c.Title, repository.Nullable(c.Message), c.TargetInstant,
		c.BackgroundColor, c.TextColor, repository.Nullable(c.BackgroundImageURL),
		repository.Nullable(c.ProgressIconKey), c.ViewCount, string(custom), c.CreatedAt,
	)
	return err
}

func (m *Mirror) Create(ctx context.Context, c *model.Countdown) error {
	return m.Save(ctx, c)
}

func (m *Mirror) Update(ctx context.Context, c *model.Countdown) error {
	return m.Save(ctx, c)
}

func (m *Mirror) GetByID(ctx context.Context, id string) (*model.Countdown, error) {
	return m.getOne(ctx,
		"SELECT "+mirrorColumns+" FROM countdowns WHERE id = ?", id)
}

func (m *Mirror) GetBySlug(ctx context.Context, publicSlug string) (*model.Countdown, error) {
	return m.getOne(ctx,
		"SELECT "+mirrorColumns+" FROM countdowns WHERE public_slug = ?", publicSlug)
}

func (m *Mirror) getOne(ctx context.Context, query, arg string) (*model.Countdown, error) {
	c, err := repository.ScanCountdown(m.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return c, err
}

func (m *Mirror) Delete(ctx context.Context, id string) error {
	res, err := m.db.ExecContext(ctx, "DELETE FROM countdowns WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (m *Mirror) List(ctx context.Context) ([]model.Countdown, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT "+mirrorColumns+" FROM countdowns ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Countdown
	for rows.Next() {
		c, err := repository.ScanCountdown(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (m *Mirror) IncrementViews(ctx context.Context, id string) error {
	_, err := m.db.ExecContext(ctx,
		"UPDATE countdowns SET views = views + 1 WHERE id = ?", id)
	return err
}

func (m *Mirror) Close() error {
	return m.db.Close()
}

const mirrorColumns = `id, public_slug, title, message, target_date,
	background_color, text_color, background_image, progress_icon,
	views, custom_data, created_at`
