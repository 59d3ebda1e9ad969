package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darkodi/countdown-qr/internal/cache"
	"github.com/darkodi/countdown-qr/internal/countdown"
	"github.com/darkodi/countdown-qr/internal/logger"
	"github.com/darkodi/countdown-qr/internal/model"
	"github.com/darkodi/countdown-qr/internal/repository"
	"github.com/darkodi/countdown-qr/internal/slug"
)

// Custom errors for the service layer
var (
	ErrNotFound         = errors.New("countdown not found")
	ErrInvalidForm      = errors.New("invalid countdown form")
	ErrStoreUnavailable = errors.New("countdown store unavailable")
)

// Store is the primary persistence surface. *repository.CountdownRepository
// implements it in production; the tests run it against the SQLite
// mirror implementation.
type Store interface {
	Create(ctx context.Context, c *model.Countdown) error
	GetByID(ctx context.Context, id string) (*model.Countdown, error)
	GetBySlug(ctx context.Context, publicSlug string) (*model.Countdown, error)
	Update(ctx context.Context, c *model.Countdown) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Countdown, error)
	IncrementViews(ctx context.Context, id string) error
}

// Mirror is the on-device degraded-mode copy.
type Mirror interface {
	Save(ctx context.Context, c *model.Countdown) error
	GetByID(ctx context.Context, id string) (*model.Countdown, error)
	GetBySlug(ctx context.Context, publicSlug string) (*model.Countdown, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Countdown, error)
}

// ImageStore uploads a background image and returns its public URL.
type ImageStore interface {
	UploadBackground(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error)
}

// Upload carries one multipart image from the handler.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CountdownService handles business logic for countdown operations.
// mirror, redis and images may each be nil; every path degrades
// without them.
type CountdownService struct {
	primary Store
	mirror  Mirror
	redis   *cache.RedisCache
	images  ImageStore
	baseURL string
	log     *logger.Logger
	now     func() time.Time
}

// NewCountdownService creates a new service instance
func NewCountdownService(primary Store, mirror Mirror, redis *cache.RedisCache, images ImageStore, baseURL string, log *logger.Logger) *CountdownService {
	return &CountdownService{
		primary: primary,
		mirror:  mirror,
		redis:   redis,
		images:  images,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		now:     time.Now,
	}
}

// ShareURL builds the public link embedded in QR codes and responses.
func (s *CountdownService) ShareURL(publicSlug string) string {
	return s.baseURL + "/c/" + publicSlug
}

// CreateResult is the outcome of a create or update. UploadErr is set
// when the image upload failed and a fallback was applied; the record
// itself was still written.
type CreateResult struct {
	Countdown *model.Countdown
	UploadErr error
}

// Create maps the form to a record, assigns server fields, uploads the
// image when one was attached, and writes the record. On a primary
// failure the record is mirrored locally so the submission is not lost,
// and the error is still surfaced.
func (s *CountdownService) Create(ctx context.Context, form model.CountdownForm, img *Upload) (*CreateResult, error) {
	rec, err := form.ToRecord(s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}

	rec.ID = uuid.NewString()
	rec.PublicSlug = slug.New()
	rec.CreatedAt = s.now().UTC().Truncate(time.Second)

	uploadErr := s.applyImage(ctx, rec, img)

	if err := s.primary.Create(ctx, rec); err != nil {
		s.mirrorSave(ctx, rec)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.mirrorSave(ctx, rec)

	return &CreateResult{Countdown: rec, UploadErr: uploadErr}, nil
}

// ViewResult is what the public view renders.
type ViewResult struct {
	Countdown *model.Countdown
	Snapshot  countdown.Snapshot
	// Degraded is true when the record came from the local mirror
	// because the primary store was unreachable.
	Degraded bool
}

// ViewPublic resolves a countdown for the public page, counts the
// view, and evaluates the engine once for the initial render. Exactly
// one increment per successful load; the increment itself is
// fire-and-forget. When the primary store fails the local mirror is
// tried and the result flagged as degraded (no increment then).
func (s *CountdownService) ViewPublic(ctx context.Context, idOrSlug string) (*ViewResult, error) {
	rec, degraded, err := s.resolve(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if !degraded {
		// Don't fail the view over a lost counter bump.
		if err := s.primary.IncrementViews(ctx, rec.ID); err != nil {
			s.log.Warn("view count increment failed", "id", rec.ID, "error", err.Error())
		} else {
			rec.ViewCount++
		}

		if s.redis != nil {
			if err := s.redis.SetCountdown(ctx, rec); err != nil {
				s.log.Debug("cache set failed", "slug", rec.PublicSlug, "error", err.Error())
			}
		}
		s.mirrorSave(ctx, rec)
	}

	return &ViewResult{
		Countdown: rec,
		Snapshot:  countdown.Evaluate(rec.TargetInstant, rec.StartInstant, s.now()),
		Degraded:  degraded,
	}, nil
}

// Lookup resolves a countdown without counting a view; the live stream
// and QR endpoints use it after the page load already counted one.
func (s *CountdownService) Lookup(ctx context.Context, idOrSlug string) (*model.Countdown, error) {
	rec, _, err := s.resolve(ctx, idOrSlug)
	return rec, err
}

// resolve sniffs the identifier format (UUID means record ID, anything
// else is a slug), consults the cache for slug lookups, and falls back
// to the mirror when the primary errors.
func (s *CountdownService) resolve(ctx context.Context, idOrSlug string) (*model.Countdown, bool, error) {
	byID := slug.IsRecordID(idOrSlug)

	if !byID && s.redis != nil {
		if rec, err := s.redis.GetCountdown(ctx, idOrSlug); err == nil {
			return rec, false, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Debug("cache get failed", "slug", idOrSlug, "error", err.Error())
		}
	}

	rec, err := s.fetch(ctx, s.primary, byID, idOrSlug)
	if err == nil {
		return rec, false, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, ErrNotFound
	}

	// Primary is unreachable; try the on-device copy.
	s.log.Warn("primary store failed, trying local mirror", "key", idOrSlug, "error", err.Error())
	if s.mirror != nil {
		if rec, mErr := s.fetchMirror(ctx, byID, idOrSlug); mErr == nil {
			return rec, true, nil
		}
	}
	return nil, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (s *CountdownService) fetch(ctx context.Context, st Store, byID bool, key string) (*model.Countdown, error) {
	if byID {
		return st.GetByID(ctx, key)
	}
	return st.GetBySlug(ctx, key)
}

func (s *CountdownService) fetchMirror(ctx context.Context, byID bool, key string) (*model.Countdown, error) {
	if byID {
		return s.mirror.GetByID(ctx, key)
	}
	return s.mirror.GetBySlug(ctx, key)
}

// Get loads a record by ID for the edit screen. No view counting.
func (s *CountdownService) Get(ctx context.Context, id string) (*model.Countdown, error) {
	rec, err := s.primary.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return rec, nil
}

// Update applies a form to an existing record. Server-assigned fields
// survive untouched: the slug is immutable, views and creation time
// belong to the store.
func (s *CountdownService) Update(ctx context.Context, id string, form model.CountdownForm, img *Upload) (*CreateResult, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := form.ToRecord(s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	rec.ID = existing.ID
	rec.PublicSlug = existing.PublicSlug
	rec.ViewCount = existing.ViewCount
	rec.CreatedAt = existing.CreatedAt

	uploadErr := s.applyImage(ctx, rec, img)

	if err := s.primary.Update(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.mirrorSave(ctx, rec)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.mirrorSave(ctx, rec)
	s.invalidate(ctx, rec.PublicSlug)

	return &CreateResult{Countdown: rec, UploadErr: uploadErr}, nil
}

// Delete removes a record everywhere: primary, mirror, cache.
func (s *CountdownService) Delete(ctx context.Context, id string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.primary.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if s.mirror != nil {
		if err := s.mirror.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("mirror delete failed", "id", id, "error", err.Error())
		}
	}
	s.invalidate(ctx, rec.PublicSlug)
	return nil
}

// List returns all countdowns, newest first, serving the mirror in
// degraded mode when the primary is down.
func (s *CountdownService) List(ctx context.Context) ([]model.Countdown, bool, error) {
	out, err := s.primary.List(ctx)
	if err == nil {
		return out, false, nil
	}

	s.log.Warn("primary list failed, trying local mirror", "error", err.Error())
	if s.mirror != nil {
		if out, mErr := s.mirror.List(ctx); mErr == nil {
			return out, true, nil
		}
	}
	return nil, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// ============ HELPERS ============

// applyImage runs the upload fallback chain: on upload failure, keep a
// pre-set remote URL if the form carried one, otherwise disable image
// mode. The returned error is informational; it never blocks the save.
func (s *CountdownService) applyImage(ctx context.Context, rec *model.Countdown, img *Upload) error {
	if !rec.UseImage || img == nil {
		return nil
	}
	if s.images == nil {
		return s.imageFallback(rec, errors.New("image uploads are not configured"))
	}

	url, err := s.images.UploadBackground(ctx, img.Filename, img.ContentType, img.Size, img.Body)
	if err != nil {
		return s.imageFallback(rec, err)
	}
	rec.BackgroundImageURL = url
	return nil
}

func (s *CountdownService) imageFallback(rec *model.Countdown, cause error) error {
	s.log.Warn("image upload failed", "error", cause.Error())
	if rec.BackgroundImageURL != "" {
		// Keep the remote URL the form already carried.
		return fmt.Errorf("upload failed, kept existing image URL: %w", cause)
	}
	rec.UseImage = false
	return fmt.Errorf("upload failed, image mode disabled: %w", cause)
}

func (s *CountdownService) mirrorSave(ctx context.Context, rec *model.Countdown) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Save(ctx, rec); err != nil {
		s.log.Warn("mirror save failed", "id", rec.ID, "error", err.Error())
	}
}

func (s *CountdownService) invalidate(ctx context.Context, publicSlug string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Invalidate(ctx, publicSlug); err != nil {
		s.log.Debug("cache invalidate failed", "slug", publicSlug, "error", err.Error())
	}
}
