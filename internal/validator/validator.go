package validator

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/darkodi/countdown-qr/internal/apperrors"
	"github.com/darkodi/countdown-qr/internal/model"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CountdownValidator validates countdown form submissions
type CountdownValidator struct {
	maxTitleLength   int
	maxMessageLength int
}

// NewCountdownValidator creates a validator with default settings
func NewCountdownValidator() *CountdownValidator {
	return &CountdownValidator{
		maxTitleLength:   120,
		maxMessageLength: 200,
	}
}

// ValidateForm checks a form before it is mapped to a record. Date
// strings are parsed here so a malformed instant fails closed at the
// boundary instead of reaching the progress engine.
func (v *CountdownValidator) ValidateForm(f model.CountdownForm) *apperrors.AppError {
	if strings.TrimSpace(f.Title) == "" {
		return apperrors.MissingField("title")
	}
	if len(f.Title) > v.maxTitleLength {
		return apperrors.ValidationFailed("title", "title exceeds 120 characters")
	}

	if len(f.Message) > v.maxMessageLength {
		return apperrors.ValidationFailed("message", "message exceeds 200 characters")
	}

	if strings.TrimSpace(f.TargetDate) == "" {
		return apperrors.MissingField("target_date")
	}
	if _, err := model.ParseInstant(f.TargetDate); err != nil {
		return apperrors.ValidationFailed("target_date", err.Error())
	}
	if f.StartDate != "" {
		if _, err := model.ParseInstant(f.StartDate); err != nil {
			return apperrors.ValidationFailed("start_date", err.Error())
		}
	}

	if f.BackgroundColor != "" && !hexColor.MatchString(f.BackgroundColor) {
		return apperrors.ValidationFailed("background_color", "must be a #rrggbb color")
	}
	if f.TextColor != "" && !hexColor.MatchString(f.TextColor) {
		return apperrors.ValidationFailed("text_color", "must be a #rrggbb color")
	}

	// Only checked when image mode is on; a stale URL behind
	// use_image=false is dropped by the mapping, not rejected here.
	if f.UseImage && f.BackgroundImage != "" {
		if appErr := v.validateImageURL(f.BackgroundImage); appErr != nil {
			return appErr
		}
	}

	return nil
}

func (v *CountdownValidator) validateImageURL(raw string) *apperrors.AppError {
	parsed, err := url.Parse(raw)
	if err != nil {
		return apperrors.ValidationFailed("background_image", "URL could not be parsed")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return apperrors.ValidationFailed("background_image", "URL must use http or https")
	}
	if parsed.Host == "" {
		return apperrors.ValidationFailed("background_image", "URL must have a valid host")
	}
	return nil
}
