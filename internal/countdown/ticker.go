package countdown

import (
	"context"
	"time"
)

// Ticker re-evaluates one countdown on a fixed period. Each displayed
// countdown owns exactly one Ticker; there is no state shared between
// tickers and every tick recomputes the snapshot wholesale.
type Ticker struct {
	target time.Time
	start  time.Time

	// Interval between evaluations. Defaults to one second.
	Interval time.Duration
	// Clock supplies "now" once per tick. Defaults to time.Now.
	Clock func() time.Time
}

func NewTicker(target, start time.Time) *Ticker {
	return &Ticker{
		target:   target,
		start:    start,
		Interval: time.Second,
		Clock:    time.Now,
	}
}

// Run delivers a snapshot immediately and then once per interval. After
// the first HasEnded snapshot is delivered the channel is closed and no
// further evaluation is scheduled; the terminal state is idempotent, so
// consumers re-reading it would see the same value anyway. Cancelling
// ctx stops the ticker at any point (view teardown).
func (t *Ticker) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)

	go func() {
		defer close(out)

		tick := time.NewTicker(t.Interval)
		defer tick.Stop()

		for {
			snap := Evaluate(t.target, t.start, t.Clock())
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			if snap.HasEnded {
				return
			}
			select {
			case <-tick.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
