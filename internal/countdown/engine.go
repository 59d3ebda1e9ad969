package countdown

import (
	"math"
	"time"
)

// Snapshot holds the derived state of a countdown at one instant.
type Snapshot struct {
	Days            int     `json:"days"`
	Hours           int     `json:"hours"`
	Minutes         int     `json:"minutes"`
	Seconds         int     `json:"seconds"`
	ProgressPercent float64 `json:"progress_percent"`
	HasEnded        bool    `json:"has_ended"`
}

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Ended is the terminal snapshot. Every evaluation after the target
// instant produces exactly this value.
var Ended = Snapshot{ProgressPercent: 100, HasEnded: true}

// Evaluate derives remaining time and progress from three instants.
// The unit fields decompose max(target-now, 0) milliseconds into fixed
// 24h/60m/60s units by floor division; no calendar awareness. Progress
// is ((now-start)/(target-start))*100 clamped to [0,100]. The clamp
// also covers an inverted window (start after target), which upstream
// forms do not reject. A zero-length window is treated as ended.
//
// now is injected by the caller; Evaluate never reads the wall clock
// and never fails.
func Evaluate(target, start, now time.Time) Snapshot {
	remaining := target.Sub(now).Milliseconds()
	if remaining <= 0 || target.Equal(start) {
		return Ended
	}

	s := Snapshot{
		Days:    int(remaining / msPerDay),
		Hours:   int(remaining % msPerDay / msPerHour),
		Minutes: int(remaining % msPerHour / msPerMinute),
		Seconds: int(remaining % msPerMinute / msPerSecond),
	}

	total := target.Sub(start).Milliseconds()
	elapsed := now.Sub(start).Milliseconds()
	ratio := float64(elapsed) / float64(total) * 100
	s.ProgressPercent = math.Min(math.Max(ratio, 0), 100)
	return s
}
