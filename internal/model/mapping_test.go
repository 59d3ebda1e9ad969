package model

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestParseInstant(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339", "2025-12-31T23:59:00Z", time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC), false},
		{"rfc3339 with offset", "2025-12-31T23:59:00+02:00", time.Date(2025, 12, 31, 21, 59, 0, 0, time.UTC), false},
		{"bare date", "2025-12-31", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "not a date", time.Time{}, true},
		{"partial", "2025-12", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstant(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v; want %v", got, tt.want)
			}
		})
	}
}

func TestParseInstant_DatetimeLocal(t *testing.T) {
	got, err := ParseInstant("2025-12-31T18:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 12, 31, 18, 30, 0, 0, time.Local).UTC()
	if !got.Equal(want) {
		t.Errorf("got %v; want %v", got, want)
	}
}

func TestToRecord_Defaults(t *testing.T) {
	rec, err := CountdownForm{
		Title:      "  New Year  ",
		TargetDate: "2025-12-31T23:59:00Z",
	}.ToRecord(testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Title != "New Year" {
		t.Errorf("title = %q; want trimmed", rec.Title)
	}
	if rec.BackgroundColor != DefaultBackgroundColor {
		t.Errorf("background = %q; want default", rec.BackgroundColor)
	}
	if rec.TextColor != DefaultTextColor {
		t.Errorf("text = %q; want default", rec.TextColor)
	}
	if !rec.StartInstant.Equal(testNow) {
		t.Errorf("start = %v; want submission time", rec.StartInstant)
	}
}

func TestToRecord_MalformedDatesFailClosed(t *testing.T) {
	_, err := CountdownForm{Title: "x", TargetDate: "soon"}.ToRecord(testNow)
	if err == nil {
		t.Error("expected error for malformed target date")
	}

	_, err = CountdownForm{Title: "x", TargetDate: "2025-12-31", StartDate: "whenever"}.ToRecord(testNow)
	if err == nil {
		t.Error("expected error for malformed start date")
	}
}

func TestToRecord_StaleImageURLDropped(t *testing.T) {
	rec, err := CountdownForm{
		Title:           "x",
		TargetDate:      "2025-12-31",
		UseImage:        false,
		BackgroundImage: "https://example.com/stale.png",
	}.ToRecord(testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.BackgroundImageURL != "" {
		t.Errorf("image URL %q survived use_image=false", rec.BackgroundImageURL)
	}
}

func TestMapping_RoundTripStable(t *testing.T) {
	forms := []CountdownForm{
		{
			Title:           "Launch",
			Message:         "T minus...",
			TargetDate:      "2026-03-01T09:30",
			StartDate:       "2026-02-01T09:30",
			BackgroundColor: "#112233",
			TextColor:       "#fafafa",
			UseImage:        true,
			BackgroundImage: "https://example.com/bg.png",
			ProgressIcon:    "rocket",
		},
		{
			Title:      "Minimal",
			TargetDate: "2026-03-01T00:00",
		},
	}

	for _, f := range forms {
		rec1, err := f.ToRecord(testNow)
		if err != nil {
			t.Fatalf("first ToRecord: %v", err)
		}
		f1 := rec1.Form()

		rec2, err := f1.ToRecord(testNow)
		if err != nil {
			t.Fatalf("second ToRecord: %v", err)
		}
		f2 := rec2.Form()

		// Stable after one round-trip.
		if f1 != f2 {
			t.Errorf("round-trip not stable:\n first=%+v\nsecond=%+v", f1, f2)
		}

		// Non-server-assigned fields survive.
		if rec2.Title != rec1.Title || rec2.Message != rec1.Message ||
			!rec2.TargetInstant.Equal(rec1.TargetInstant) ||
			!rec2.StartInstant.Equal(rec1.StartInstant) ||
			rec2.BackgroundColor != rec1.BackgroundColor ||
			rec2.TextColor != rec1.TextColor ||
			rec2.UseImage != rec1.UseImage ||
			rec2.BackgroundImageURL != rec1.BackgroundImageURL ||
			rec2.ProgressIconKey != rec1.ProgressIconKey {
			t.Errorf("record fields drifted:\n first=%+v\nsecond=%+v", rec1, rec2)
		}
	}
}

func TestCustomData_RoundTrip(t *testing.T) {
	c := &Countdown{
		StartInstant: time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC),
		UseImage:     true,
		CreatedAt:    testNow,
	}

	restored := &Countdown{CreatedAt: testNow}
	restored.ApplyCustomData(c.CustomData())

	if !restored.StartInstant.Equal(c.StartInstant) {
		t.Errorf("start = %v; want %v", restored.StartInstant, c.StartInstant)
	}
	if restored.UseImage != c.UseImage {
		t.Errorf("use_image = %v; want %v", restored.UseImage, c.UseImage)
	}
}

func TestApplyCustomData_LegacyRow(t *testing.T) {
	// Rows written before the aux map existed: start falls back to the
	// creation instant, image mode to URL presence.
	c := &Countdown{
		CreatedAt:          testNow,
		BackgroundImageURL: "https://example.com/bg.png",
	}
	c.ApplyCustomData(nil)

	if !c.StartInstant.Equal(testNow) {
		t.Errorf("start = %v; want created_at", c.StartInstant)
	}
	if !c.UseImage {
		t.Error("use_image should be inferred from image URL")
	}
}
