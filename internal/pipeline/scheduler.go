package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RequestReprocess asks for a cycle once the debounce window has passed with
// no further requests. It never blocks.
func (o *Orchestrator) RequestReprocess() {
	o.metrics.requested()
	o.lastRequest.Store(time.Now().UnixNano())
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Run is the scheduler loop. It owns the debounce timer and returns when ctx
// is done, releasing any pending timer.
func (o *Orchestrator) Run(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-o.wake:
			if timer == nil {
				timer = time.NewTimer(o.debounce)
				fire = timer.C
			}

		case <-fire:
			due := time.Unix(0, o.lastRequest.Load()).Add(o.debounce)
			if wait := time.Until(due); wait > 0 {
				timer.Reset(wait)
				continue
			}
			timer, fire = nil, nil

			if _, err := o.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrClosed) {
				slog.Warn("pipeline: scheduled cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}
