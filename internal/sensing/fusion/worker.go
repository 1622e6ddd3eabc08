package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"airsentry/internal/infra/async"

	"github.com/robfig/cron/v3"
)

// Worker drives the fusion engine at its tick rate and fires the nightly
// baseline commit from a cron expression (default: the end of the learning
// window).
type Worker struct {
	ticker   *time.Ticker
	engine   *Engine
	learner  *BaselineLearner
	schedule cron.Schedule

	lastCheck time.Time
	now       func() time.Time
}

var _ async.Worker = (*Worker)(nil)

func NewWorker(ticker *time.Ticker, engine *Engine, learner *BaselineLearner, commitSpec string) (*Worker, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(commitSpec)
	if err != nil {
		return nil, fmt.Errorf("parsing baseline commit schedule: %w", err)
	}

	return &Worker{
		ticker:   ticker,
		engine:   engine,
		learner:  learner,
		schedule: schedule,
		now:      time.Now,
	}, nil
}

func (w *Worker) Run(ctx context.Context, done func()) {
	slog.Debug("fusion worker started")
	defer done()
	w.lastCheck = w.now()

	for {
		select {
		case <-ctx.Done():
			slog.Info("fusion worker cancelled")
			return
		case <-w.ticker.C:
			now := w.now()
			w.engine.Apply(now)
			w.maybeCommit(ctx, now)
		}
	}
}

func (w *Worker) Shutdown() {
	w.ticker.Stop()
}

// maybeCommit fires the nightly commit when the cron schedule had an
// activation between the previous tick and now.
func (w *Worker) maybeCommit(ctx context.Context, now time.Time) {
	next := w.schedule.Next(w.lastCheck)
	w.lastCheck = now
	if next.After(now) {
		return
	}
	if w.learner == nil {
		return
	}
	w.learner.Commit(ctx, now)
}
