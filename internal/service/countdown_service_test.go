package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/darkodi/countdown-qr/internal/fallback"
	"github.com/darkodi/countdown-qr/internal/logger"
	"github.com/darkodi/countdown-qr/internal/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

// Use in-memory SQLite for both tiers in tests.
func setupTestService(t *testing.T) *CountdownService {
	t.Helper()
	primary, err := fallback.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create primary store: %v", err)
	}
	mirror, err := fallback.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create mirror: %v", err)
	}
	return NewCountdownService(primary, mirror, nil, nil, "http://localhost:8080", testLogger())
}

func validForm() model.CountdownForm {
	return model.CountdownForm{
		Title:      "Launch",
		Message:    "T minus...",
		TargetDate: "2030-01-01T00:00:00Z",
		StartDate:  "2025-01-01T00:00:00Z",
	}
}

func TestCreate(t *testing.T) {
	svc := setupTestService(t)

	res, err := svc.Create(context.Background(), validForm(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	c := res.Countdown
	if c.ID == "" {
		t.Error("Expected server-assigned ID")
	}
	if !strings.HasPrefix(c.PublicSlug, "cd_") {
		t.Errorf("Expected cd_ slug, got: %s", c.PublicSlug)
	}
	if c.CreatedAt.IsZero() {
		t.Error("Expected server-assigned creation time")
	}
	if c.ViewCount != 0 {
		t.Errorf("New countdown should have 0 views, got %d", c.ViewCount)
	}
	if c.BackgroundColor != model.DefaultBackgroundColor {
		t.Errorf("Expected default background color, got: %s", c.BackgroundColor)
	}

	if got := svc.ShareURL(c.PublicSlug); got != "http://localhost:8080/c/"+c.PublicSlug {
		t.Errorf("Share URL mismatch: %s", got)
	}
}

func TestCreate_InvalidDatesFailClosed(t *testing.T) {
	svc := setupTestService(t)

	f := validForm()
	f.TargetDate = "sometime soon"
	_, err := svc.Create(context.Background(), f, nil)
	if !errors.Is(err, ErrInvalidForm) {
		t.Errorf("Expected ErrInvalidForm, got: %v", err)
	}
}

func TestViewPublic_IncrementsOncePerLoad(t *testing.T) {
	svc := setupTestService(t)

	res, err := svc.Create(context.Background(), validForm(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	slug := res.Countdown.PublicSlug

	// Two sequential views must increment by exactly 2.
	v1, err := svc.ViewPublic(context.Background(), slug)
	if err != nil {
		t.Fatalf("first view: %v", err)
	}
	if v1.Countdown.ViewCount != 1 {
		t.Errorf("first view count = %d; want 1", v1.Countdown.ViewCount)
	}

	v2, err := svc.ViewPublic(context.Background(), slug)
	if err != nil {
		t.Fatalf("second view: %v", err)
	}
	if v2.Countdown.ViewCount != 2 {
		t.Errorf("second view count = %d; want 2", v2.Countdown.ViewCount)
	}
	if v2.Degraded {
		t.Error("healthy primary should not be degraded")
	}
	if v2.Snapshot.HasEnded {
		t.Error("2030 target should not have ended")
	}
}

func TestViewPublic_ByRecordID(t *testing.T) {
	svc := setupTestService(t)

	res, _ := svc.Create(context.Background(), validForm(), nil)

	v, err := svc.ViewPublic(context.Background(), res.Countdown.ID)
	if err != nil {
		t.Fatalf("view by id: %v", err)
	}
	if v.Countdown.PublicSlug != res.Countdown.PublicSlug {
		t.Error("ID lookup resolved a different record")
	}
}

func TestViewPublic_NotFound(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.ViewPublic(context.Background(), "cd_doesnotexist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

// failingStore simulates an unreachable primary.
type failingStore struct{}

var errDown = errors.New("connection refused")

func (failingStore) Create(context.Context, *model.Countdown) error { return errDown }
func (failingStore) GetByID(context.Context, string) (*model.Countdown, error) {
	return nil, errDown
}
func (failingStore) GetBySlug(context.Context, string) (*model.Countdown, error) {
	return nil, errDown
}
func (failingStore) Update(context.Context, *model.Countdown) error { return errDown }
func (failingStore) Delete(context.Context, string) error           { return errDown }
func (failingStore) List(context.Context) ([]model.Countdown, error) {
	return nil, errDown
}
func (failingStore) IncrementViews(context.Context, string) error { return errDown }

func TestViewPublic_DegradedFallback(t *testing.T) {
	mirror, err := fallback.New(":memory:")
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	svc := NewCountdownService(failingStore{}, mirror, nil, nil, "http://localhost:8080", testLogger())

	// Preload the mirror as if an earlier healthy run mirrored a record.
	rec := &model.Countdown{
		ID:            "11111111-2222-3333-4444-555555555555",
		PublicSlug:    "cd_mirrored1",
		Title:         "Mirrored",
		TargetInstant: time.Now().Add(time.Hour).UTC(),
		StartInstant:  time.Now().Add(-time.Hour).UTC(),
		UseImage:      false,
		CreatedAt:     time.Now().UTC(),
	}
	if err := mirror.Save(context.Background(), rec); err != nil {
		t.Fatalf("preload mirror: %v", err)
	}

	v, err := svc.ViewPublic(context.Background(), "cd_mirrored1")
	if err != nil {
		t.Fatalf("degraded view: %v", err)
	}
	if !v.Degraded {
		t.Error("expected degraded result from mirror")
	}
	if v.Countdown.Title != "Mirrored" {
		t.Errorf("got %q from mirror", v.Countdown.Title)
	}

	// List degrades the same way.
	list, degraded, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("degraded list: %v", err)
	}
	if !degraded || len(list) != 1 {
		t.Errorf("degraded=%v len=%d; want true/1", degraded, len(list))
	}
}

func TestCreate_PrimaryDownMirrorsIntent(t *testing.T) {
	mirror, err := fallback.New(":memory:")
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	svc := NewCountdownService(failingStore{}, mirror, nil, nil, "http://localhost:8080", testLogger())

	_, err = svc.Create(context.Background(), validForm(), nil)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Expected ErrStoreUnavailable, got: %v", err)
	}

	// The submission must not be lost.
	list, err := mirror.List(context.Background())
	if err != nil {
		t.Fatalf("mirror list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Launch" {
		t.Errorf("mirror did not keep the unsaved record: %+v", list)
	}
}

func TestUpdate_PreservesServerFields(t *testing.T) {
	svc := setupTestService(t)

	res, _ := svc.Create(context.Background(), validForm(), nil)
	orig := res.Countdown

	// Count a view so we can verify it survives the update.
	if _, err := svc.ViewPublic(context.Background(), orig.PublicSlug); err != nil {
		t.Fatalf("view: %v", err)
	}

	f := validForm()
	f.Title = "Renamed"
	f.Message = "Updated message"
	upd, err := svc.Update(context.Background(), orig.ID, f, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	c := upd.Countdown
	if c.Title != "Renamed" {
		t.Errorf("title = %q", c.Title)
	}
	if c.PublicSlug != orig.PublicSlug {
		t.Error("public slug must be immutable across updates")
	}
	if !c.CreatedAt.Equal(orig.CreatedAt) {
		t.Error("creation time must survive updates")
	}
	if c.ViewCount != 1 {
		t.Errorf("view count = %d; want 1 preserved", c.ViewCount)
	}

	got, err := svc.Get(context.Background(), orig.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Title != "Renamed" {
		t.Errorf("stored title = %q", got.Title)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.Update(context.Background(), "11111111-2222-3333-4444-555555555555", validForm(), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := setupTestService(t)

	res, _ := svc.Create(context.Background(), validForm(), nil)

	if err := svc.Delete(context.Background(), res.Countdown.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := svc.Get(context.Background(), res.Countdown.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got: %v", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	svc := setupTestService(t)
	// Distinct creation instants so the ordering is deterministic.
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"oldest", "middle", "newest"} {
		tick := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return tick }
		f := validForm()
		f.Title = title
		if _, err := svc.Create(context.Background(), f, nil); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	list, degraded, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if degraded {
		t.Error("healthy primary should not be degraded")
	}
	if len(list) != 3 {
		t.Fatalf("len = %d; want 3", len(list))
	}
	if list[0].Title != "newest" || list[2].Title != "oldest" {
		t.Errorf("order = [%s %s %s]; want newest first",
			list[0].Title, list[1].Title, list[2].Title)
	}
}

// fakeImages stands in for the S3 uploader.
type fakeImages struct {
	url string
	err error
}

func (f fakeImages) UploadBackground(_ context.Context, _, _ string, _ int64, _ io.Reader) (string, error) {
	return f.url, f.err
}

func TestCreate_ImageUpload(t *testing.T) {
	primary, _ := fallback.New(":memory:")
	svc := NewCountdownService(primary, nil, nil,
		fakeImages{url: "https://img.example.com/backgrounds/a.png"},
		"http://localhost:8080", testLogger())

	f := validForm()
	f.UseImage = true
	img := &Upload{Filename: "a.png", ContentType: "image/png", Size: 10, Body: strings.NewReader("x")}

	res, err := svc.Create(context.Background(), f, img)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.UploadErr != nil {
		t.Errorf("unexpected upload error: %v", res.UploadErr)
	}
	if res.Countdown.BackgroundImageURL != "https://img.example.com/backgrounds/a.png" {
		t.Errorf("image URL = %q", res.Countdown.BackgroundImageURL)
	}
}

func TestCreate_UploadFailureFallsBack(t *testing.T) {
	primary, _ := fallback.New(":memory:")
	broken := fakeImages{err: errors.New("bucket unreachable")}

	t.Run("keeps pre-set remote URL", func(t *testing.T) {
		svc := NewCountdownService(primary, nil, nil, broken, "http://localhost:8080", testLogger())

		f := validForm()
		f.UseImage = true
		f.BackgroundImage = "https://example.com/fallback.png"
		img := &Upload{Filename: "a.png", ContentType: "image/png", Size: 10, Body: strings.NewReader("x")}

		res, err := svc.Create(context.Background(), f, img)
		if err != nil {
			t.Fatalf("create should survive upload failure: %v", err)
		}
		if res.UploadErr == nil {
			t.Error("expected upload error to be reported")
		}
		if !res.Countdown.UseImage || res.Countdown.BackgroundImageURL != "https://example.com/fallback.png" {
			t.Errorf("expected pre-set URL kept, got %+v", res.Countdown)
		}
	})

	t.Run("disables image mode without a URL", func(t *testing.T) {
		svc := NewCountdownService(primary, nil, nil, broken, "http://localhost:8080", testLogger())

		f := validForm()
		f.UseImage = true
		img := &Upload{Filename: "a.png", ContentType: "image/png", Size: 10, Body: strings.NewReader("x")}

		res, err := svc.Create(context.Background(), f, img)
		if err != nil {
			t.Fatalf("create should survive upload failure: %v", err)
		}
		if res.UploadErr == nil {
			t.Error("expected upload error to be reported")
		}
		if res.Countdown.UseImage || res.Countdown.BackgroundImageURL != "" {
			t.Errorf("expected image mode disabled, got %+v", res.Countdown)
		}
	})
}
