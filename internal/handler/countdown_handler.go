package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/darkodi/countdown-qr/internal/apperrors"
	"github.com/darkodi/countdown-qr/internal/countdown"
	"github.com/darkodi/countdown-qr/internal/icon"
	"github.com/darkodi/countdown-qr/internal/model"
	"github.com/darkodi/countdown-qr/internal/qr"
	"github.com/darkodi/countdown-qr/internal/service"
	"github.com/darkodi/countdown-qr/internal/validator"
)

// maxFormMemory bounds multipart parsing; individual images are capped
// separately by the storage layer.
const maxFormMemory = 8 << 20

// maxRequestBody caps what a client may send at all: the 5 MiB image
// limit plus headroom for the form fields around it.
const maxRequestBody = 6 << 20

// CountdownHandler handles HTTP requests for countdown operations
type CountdownHandler struct {
	service   *service.CountdownService
	validator *validator.CountdownValidator
}

// NewCountdownHandler creates a new handler instance
func NewCountdownHandler(svc *service.CountdownService) *CountdownHandler {
	return &CountdownHandler{
		service:   svc,
		validator: validator.NewCountdownValidator(),
	}
}

// ============ RESPONSE SHAPES ============

type countdownResponse struct {
	*model.Countdown
	Glyph    icon.Glyph `json:"progress_icon_glyph"`
	ShareURL string     `json:"share_url"`
	QRURL    string     `json:"qr_url"`
}

type createResponse struct {
	countdownResponse
	UploadWarning string `json:"upload_warning,omitempty"`
}

type viewResponse struct {
	countdownResponse
	Snapshot countdown.Snapshot `json:"snapshot"`
	Degraded bool               `json:"degraded,omitempty"`
}

type listResponse struct {
	Countdowns []countdownResponse `json:"countdowns"`
	Degraded   bool                `json:"degraded,omitempty"`
}

func (h *CountdownHandler) present(c *model.Countdown) countdownResponse {
	shareURL := h.service.ShareURL(c.PublicSlug)
	return countdownResponse{
		Countdown: c,
		Glyph:     icon.Resolve(c.ProgressIconKey),
		ShareURL:  shareURL,
		QRURL:     shareURL + "/qr.png",
	}
}

// ============ HANDLERS ============

// HandleCreate creates a new countdown
// POST /api/countdowns
func (h *CountdownHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	form, img, appErr := decodeForm(w, r)
	if appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	if appErr := h.validator.ValidateForm(form); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	res, err := h.service.Create(r.Context(), form, img)
	if err != nil {
		h.writeServiceError(w, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, h.createResponse(res))
}

// HandleView renders the public countdown page data
// GET /c/{slug}
func (h *CountdownHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	idOrSlug := r.PathValue("slug")

	res, err := h.service.ViewPublic(r.Context(), idOrSlug)
	if err != nil {
		h.writeServiceError(w, err, idOrSlug)
		return
	}

	writeJSON(w, http.StatusOK, viewResponse{
		countdownResponse: h.present(res.Countdown),
		Snapshot:          res.Snapshot,
		Degraded:          res.Degraded,
	})
}

// HandleLive streams engine snapshots once per second until the
// countdown ends or the client disconnects
// GET /c/{slug}/live
func (h *CountdownHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	idOrSlug := r.PathValue("slug")

	rec, err := h.service.Lookup(r.Context(), idOrSlug)
	if err != nil {
		h.writeServiceError(w, err, idOrSlug)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		apperrors.Internal("streaming unsupported").WriteJSON(w)
		return
	}

	// The stream runs until the countdown ends, which routinely outlives
	// the server write timeout, so lift the per-connection deadline.
	// Best effort: test recorders have no deadline to clear.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// One ticker per connection, torn down with the request context.
	ticker := countdown.NewTicker(rec.TargetInstant, rec.StartInstant)
	for snap := range ticker.Run(r.Context()) {
		payload, err := json.Marshal(snap)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

// HandleQR serves the share link as a downloadable QR code
// GET /c/{slug}/qr.png
func (h *CountdownHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	idOrSlug := r.PathValue("slug")

	rec, err := h.service.Lookup(r.Context(), idOrSlug)
	if err != nil {
		h.writeServiceError(w, err, idOrSlug)
		return
	}

	png, err := qr.EncodePNG(h.service.ShareURL(rec.PublicSlug), qr.DefaultSize)
	if err != nil {
		apperrors.Internal("").WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="countdown-%s.png"`, rec.PublicSlug))
	w.Write(png)
}

// HandleGet loads a countdown for the edit screen
// GET /api/countdowns/{id}
func (h *CountdownHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, h.present(rec))
}

// HandleUpdate applies edits to a countdown
// PUT /api/countdowns/{id}
func (h *CountdownHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	form, img, appErr := decodeForm(w, r)
	if appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	if appErr := h.validator.ValidateForm(form); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	res, err := h.service.Update(r.Context(), id, form, img)
	if err != nil {
		h.writeServiceError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, h.createResponse(res))
}

// HandleDelete removes a countdown
// DELETE /api/countdowns/{id}
func (h *CountdownHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleList enumerates all countdowns, newest first
// GET /api/countdowns
func (h *CountdownHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, degraded, err := h.service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "")
		return
	}

	out := listResponse{Countdowns: make([]countdownResponse, 0, len(list)), Degraded: degraded}
	for i := range list {
		out.Countdowns = append(out.Countdowns, h.present(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleIcons lists the pickable progress icons
// GET /api/icons
func (h *CountdownHandler) HandleIcons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, icon.Options())
}

// HandleHealth returns service health status
// GET /health
func (h *CountdownHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes
func (h *CountdownHandler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/countdowns", h.HandleCreate)
	mux.HandleFunc("GET /api/countdowns", h.HandleList)
	mux.HandleFunc("GET /api/countdowns/{id}", h.HandleGet)
	mux.HandleFunc("PUT /api/countdowns/{id}", h.HandleUpdate)
	mux.HandleFunc("DELETE /api/countdowns/{id}", h.HandleDelete)
	mux.HandleFunc("GET /api/icons", h.HandleIcons)

	mux.HandleFunc("GET /c/{slug}", h.HandleView)
	mux.HandleFunc("GET /c/{slug}/live", h.HandleLive)
	mux.HandleFunc("GET /c/{slug}/qr.png", h.HandleQR)

	mux.HandleFunc("GET /health", h.HandleHealth)

	return mux
}

// ============ HELPERS ============

func (h *CountdownHandler) createResponse(res *service.CreateResult) createResponse {
	out := createResponse{countdownResponse: h.present(res.Countdown)}
	if res.UploadErr != nil {
		out.UploadWarning = res.UploadErr.Error()
	}
	return out
}

func (h *CountdownHandler) writeServiceError(w http.ResponseWriter, err error, idOrSlug string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apperrors.CountdownNotFound(idOrSlug).WriteJSON(w)
	case errors.Is(err, service.ErrInvalidForm):
		apperrors.BadRequest(err.Error()).WriteJSON(w)
	case errors.Is(err, service.ErrStoreUnavailable):
		apperrors.StoreUnavailable("a local copy of your changes was kept where possible").WriteJSON(w)
	default:
		apperrors.Internal("").WriteJSON(w)
	}
}

// decodeForm reads a countdown form from either a JSON body or a
// multipart submission carrying an optional background image.
func decodeForm(w http.ResponseWriter, r *http.Request) (model.CountdownForm, *service.Upload, *apperrors.AppError) {
	var form model.CountdownForm
	var tooLarge *http.MaxBytesError

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			if errors.As(err, &tooLarge) {
				return form, nil, apperrors.UploadTooLarge("5MB")
			}
			return form, nil, apperrors.InvalidJSON(err.Error())
		}
		return form, nil, nil
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if errors.As(err, &tooLarge) {
			return form, nil, apperrors.UploadTooLarge("5MB")
		}
		return form, nil, apperrors.BadRequest("could not parse multipart form")
	}

	form = model.CountdownForm{
		Title:           r.FormValue("title"),
		Message:         r.FormValue("message"),
		TargetDate:      r.FormValue("target_date"),
		StartDate:       r.FormValue("start_date"),
		BackgroundColor: r.FormValue("background_color"),
		TextColor:       r.FormValue("text_color"),
		BackgroundImage: r.FormValue("background_image_url"),
		ProgressIcon:    r.FormValue("progress_icon"),
	}
	form.UseImage, _ = strconv.ParseBool(r.FormValue("use_image"))

	file, header, err := r.FormFile("background_image")
	if err == http.ErrMissingFile {
		return form, nil, nil
	}
	if err != nil {
		return form, nil, apperrors.UploadFailed(err.Error())
	}

	// The service closes nothing; the multipart file is backed by the
	// request and cleaned up when it completes.
	return form, &service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
