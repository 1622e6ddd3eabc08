package metrics

import (
	"context"
	"log/slog"
	"time"

	"airsentry/internal/infra/async"
)

// Worker drives the metrics engine at its tick rate (0.2 Hz by default).
type Worker struct {
	ticker *time.Ticker
	engine *Engine
	now    func() time.Time
}

var _ async.Worker = (*Worker)(nil)

func NewWorker(ticker *time.Ticker, engine *Engine) *Worker {
	return &Worker{ticker: ticker, engine: engine, now: time.Now}
}

func (w *Worker) Run(ctx context.Context, done func()) {
	slog.Debug("metrics worker started")
	defer done()

	for {
		select {
		case <-ctx.Done():
			slog.Info("metrics worker cancelled")
			return
		case <-w.ticker.C:
			w.engine.Compute(w.now())
		}
	}
}

func (w *Worker) Shutdown() {
	w.ticker.Stop()
}
