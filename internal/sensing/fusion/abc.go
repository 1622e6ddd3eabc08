package fusion

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"airsentry/internal/infra/ring"
)

const (
	_baselineSlots         = 7
	_outdoorReferencePPM   = 400
	_confidenceThresholdPC = 70
)

// ErrNoBaselineState is returned by a BaselineStore when nothing has been
// persisted yet.
var ErrNoBaselineState = errors.New("no baseline state persisted")

// BaselineSnapshot is the persistable state of the learner, so baseline
// confidence survives restarts.
type BaselineSnapshot struct {
	Minima []float64 `msgpack:"minima"`
}

type BaselineStore interface {
	SaveBaseline(ctx context.Context, snapshot BaselineSnapshot) error
	LoadBaseline(ctx context.Context) (BaselineSnapshot, error)
	ClearBaseline(ctx context.Context) error
}

type BaselineConfig struct {
	// WindowStartHour/WindowEndHour bound the nightly hour-of-day window
	// during which the running CO2 minimum is tracked. The window may wrap
	// midnight (start 22, end 6).
	WindowStartHour int
	WindowEndHour   int
}

// BaselineLearner implements automatic baseline correction: it tracks the
// lowest CO2 value seen during the nightly window, keeps the last few nightly
// minima in a fixed ring, and derives a correction toward the 400 ppm
// outdoor-air reference from their mean. The correction is only trusted once
// enough nights populate the ring.
type BaselineLearner struct {
	mu sync.Mutex

	cfg    BaselineConfig
	minima *ring.Buffer[float64]
	repo   BaselineStore

	currentMin   float64
	currentValid bool
}

func NewBaselineLearner(cfg BaselineConfig, repo BaselineStore) *BaselineLearner {
	return &BaselineLearner{
		cfg:    cfg,
		minima: ring.New[float64](_baselineSlots),
		repo:   repo,
	}
}

// Restore loads previously persisted nightly minima. Absent state is not an
// error; the learner simply starts with zero confidence.
func (l *BaselineLearner) Restore(ctx context.Context) error {
	if l.repo == nil {
		return nil
	}
	snapshot, err := l.repo.LoadBaseline(ctx)
	if errors.Is(err, ErrNoBaselineState) {
		return nil
	}
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.minima.Reset()
	for _, m := range snapshot.Minima {
		l.minima.Push(m)
	}
	slog.Info("baseline state restored",
		slog.Int("nights", l.minima.Len()),
		slog.Int("confidence", l.confidenceLocked()))
	return nil
}

// Observe feeds a CO2 reading; inside the nightly window it advances the
// running minimum, outside it is ignored.
func (l *BaselineLearner) Observe(ppm float64, now time.Time) {
	if !l.inWindow(now.Hour()) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.currentValid || ppm < l.currentMin {
		l.currentMin = ppm
		l.currentValid = true
	}
}

// Commit closes the nightly window: the tracked minimum is appended to the
// ring (oldest night overwritten) and the state is persisted. Without any
// observation this night, nothing changes.
func (l *BaselineLearner) Commit(ctx context.Context, now time.Time) {
	l.mu.Lock()
	if !l.currentValid {
		l.mu.Unlock()
		return
	}
	minimum := l.currentMin
	l.minima.Push(minimum)
	l.currentValid = false
	snapshot := l.snapshotLocked()
	nights := l.minima.Len()
	confidence := l.confidenceLocked()
	l.mu.Unlock()

	slog.Info("nightly CO2 minimum committed",
		slog.Float64("minimum_ppm", minimum),
		slog.Int("nights", nights),
		slog.Int("confidence", confidence))

	if l.repo == nil {
		return
	}
	if err := l.repo.SaveBaseline(ctx, snapshot); err != nil {
		slog.Error("persisting baseline state", slog.Any("error", err))
	}
}

// Baseline is the arithmetic mean of all populated nightly minima.
func (l *BaselineLearner) Baseline() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.minima.Len() == 0 {
		return 0, false
	}
	sum := 0.0
	l.minima.Do(func(m float64) { sum += m })
	return sum / float64(l.minima.Len()), true
}

// Confidence is the populated fraction of the ring as a percentage,
// truncated.
func (l *BaselineLearner) Confidence() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.confidenceLocked()
}

// Correction returns the ppm offset toward the outdoor reference, valid only
// above the confidence threshold.
func (l *BaselineLearner) Correction() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.confidenceLocked() < _confidenceThresholdPC {
		return 0, false
	}
	sum := 0.0
	l.minima.Do(func(m float64) { sum += m })
	baseline := sum / float64(l.minima.Len())
	return _outdoorReferencePPM - baseline, true
}

// Reset clears the ring, the running minimum and the persisted state.
func (l *BaselineLearner) Reset(ctx context.Context) error {
	l.mu.Lock()
	l.minima.Reset()
	l.currentValid = false
	l.mu.Unlock()

	slog.Info("baseline state reset")
	if l.repo == nil {
		return nil
	}
	return l.repo.ClearBaseline(ctx)
}

func (l *BaselineLearner) inWindow(hour int) bool {
	start, end := l.cfg.WindowStartHour, l.cfg.WindowEndHour
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func (l *BaselineLearner) confidenceLocked() int {
	confidence := l.minima.Len() * 100 / l.minima.Cap()
	return min(confidence, 100)
}

func (l *BaselineLearner) snapshotLocked() BaselineSnapshot {
	minima := make([]float64, 0, l.minima.Len())
	l.minima.Do(func(m float64) { minima = append(minima, m) })
	return BaselineSnapshot{Minima: minima}
}
