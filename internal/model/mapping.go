package model

import (
	"fmt"
	"strings"
	"time"
)

// inputLayout matches what an HTML datetime-local control produces.
const inputLayout = "2006-01-02T15:04"

// ParseInstant normalizes the date encodings a form can submit into a
// UTC instant. Accepted: RFC3339, datetime-local (interpreted in the
// server's local zone, since the encoding carries no zone info), and a
// bare date (UTC midnight). Anything else fails closed here so that a
// malformed string can never reach the progress engine.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(inputLayout, s, time.Local); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatForInput renders an instant back into the datetime-local
// encoding, in the server's local zone. Inverse of ParseInstant for
// valid form inputs (minute precision).
func FormatForInput(t time.Time) string {
	return t.In(time.Local).Format(inputLayout)
}

// ToRecord maps the flat form model onto a record, parsing dates and
// applying display defaults. Server-assigned fields (ID, PublicSlug,
// ViewCount, CreatedAt) are left zero. An unset start date means the
// countdown is measured from its creation, so "now" is recorded.
func (f CountdownForm) ToRecord(now time.Time) (*Countdown, error) {
	target, err := ParseInstant(f.TargetDate)
	if err != nil {
		return nil, fmt.Errorf("target date: %w", err)
	}

	start := now.UTC().Truncate(time.Second)
	if f.StartDate != "" {
		start, err = ParseInstant(f.StartDate)
		if err != nil {
			return nil, fmt.Errorf("start date: %w", err)
		}
	}

	c := &Countdown{
		Title:           strings.TrimSpace(f.Title),
		Message:         f.Message,
		TargetInstant:   target,
		StartInstant:    start,
		BackgroundColor: orDefault(f.BackgroundColor, DefaultBackgroundColor),
		TextColor:       orDefault(f.TextColor, DefaultTextColor),
		UseImage:        f.UseImage,
		ProgressIconKey: f.ProgressIcon,
	}
	// A stale URL may linger in form state after the user turns image
	// mode off; consumers must see it as absent.
	if f.UseImage {
		c.BackgroundImageURL = f.BackgroundImage
	}
	return c, nil
}

// Form maps a record back to the editable model. Round-trips with
// ToRecord for every non-server-assigned field.
func (c *Countdown) Form() CountdownForm {
	f := CountdownForm{
		Title:           c.Title,
		Message:         c.Message,
		TargetDate:      FormatForInput(c.TargetInstant),
		StartDate:       FormatForInput(c.StartInstant),
		BackgroundColor: c.BackgroundColor,
		TextColor:       c.TextColor,
		UseImage:        c.UseImage,
		ProgressIcon:    c.ProgressIconKey,
	}
	if c.UseImage {
		f.BackgroundImage = c.BackgroundImageURL
	}
	return f
}

// CustomData is the open-ended auxiliary map stored alongside the
// dedicated columns. Fields without a column of their own live here
// and are read back from here, never silently dropped.
func (c *Countdown) CustomData() map[string]any {
	return map[string]any{
		"start_date": c.StartInstant.UTC().Format(time.RFC3339),
		"use_image":  c.UseImage,
	}
}

// ApplyCustomData restores the auxiliary fields. Rows written before a
// key existed fall back the way the read path always has: the start
// instant defaults to the creation instant, image mode to whether an
// image URL is present.
func (c *Countdown) ApplyCustomData(m map[string]any) {
	c.StartInstant = c.CreatedAt
	c.UseImage = c.BackgroundImageURL != ""

	if m == nil {
		return
	}
	if raw, ok := m["start_date"].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			c.StartInstant = t.UTC()
		}
	}
	if v, ok := m["use_image"].(bool); ok {
		c.UseImage = v
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
