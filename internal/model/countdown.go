package model

import "time"

// Display defaults applied when the form leaves colors unset.
const (
	DefaultBackgroundColor = "#4a148c"
	DefaultTextColor       = "#ffffff"
)

// Countdown is the durable record behind one shareable countdown page.
type Countdown struct {
	ID                 string    `json:"id"`          // server-assigned UUID
	PublicSlug         string    `json:"public_slug"` // immutable share token
	Title              string    `json:"title"`
	Message            string    `json:"message,omitempty"`
	TargetInstant      time.Time `json:"target_date"`
	StartInstant       time.Time `json:"start_date"` // progress ratio only, never the remaining-time display
	BackgroundColor    string    `json:"background_color"`
	TextColor          string    `json:"text_color"`
	UseImage           bool      `json:"use_image"`
	BackgroundImageURL string    `json:"background_image,omitempty"`
	ProgressIconKey    string    `json:"progress_icon"`
	ViewCount          uint64    `json:"views"`
	CreatedAt          time.Time `json:"created_at"`
}

// CountdownForm is the flat editable model the create and edit screens
// submit. Dates are human-editable datetime-local strings, not
// normalized instants; ToRecord is the only place they are parsed.
type CountdownForm struct {
	Title           string `json:"title"`
	Message         string `json:"message,omitempty"`
	TargetDate      string `json:"target_date"`
	StartDate       string `json:"start_date,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
	UseImage        bool   `json:"use_image"`
	BackgroundImage string `json:"background_image,omitempty"`
	ProgressIcon    string `json:"progress_icon,omitempty"`
}
