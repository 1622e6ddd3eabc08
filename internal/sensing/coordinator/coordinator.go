// Package coordinator owns the per-sensor runtime state machines, the read
// scheduler, the command channel and the auto-recovery policy. All sensor
// state and every driver call live on the single goroutine running Run, which
// is the concurrency-safety argument for the whole acquisition pipeline: no
// driver operation or state transition ever races another.
//
// A consequence worth documenting: a SetCadence command racing a scheduled
// read of the same sensor serializes on the loop, and the next read simply
// uses whichever cadence the loop saw first. That nondeterminism is accepted.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/driver"
	"airsentry/internal/sensing/store"
)

const (
	_maxErrorStreak   = 3
	_retryDelayFloor  = 30 * time.Second
	_retryDelayCap    = 5 * time.Minute
	_livenessInterval = time.Second
	_defaultQueueSize = 16
)

var (
	ErrQueueFull     = errors.New("command queue is full")
	ErrReplyTimedOut = errors.New("timed out waiting for command reply")
)

// SettingsStore persists per-sensor cadences across restarts.
type SettingsStore interface {
	GetDuration(ctx context.Context, key string, fallback time.Duration) (time.Duration, error)
	SetDuration(ctx context.Context, key string, value time.Duration) error
}

type SensorConfig struct {
	// Warmup is the settle time after power-on before readings are trusted.
	// Zero means the sensor goes straight to ready.
	Warmup time.Duration
	// Period is the default read cadence, overridden by a persisted value.
	Period time.Duration
}

type Config struct {
	Sensors [domain.SensorCount]SensorConfig
	// StartupDelay is the fixed hardware-stabilization wait before the first
	// sensor is initialized.
	StartupDelay time.Duration
	QueueSize    int
}

type sensorRuntime struct {
	state          domain.SensorState
	warmupDeadline time.Time // meaningful only while warming
	lastRead       time.Time
	errorStreak    int
}

type recoveryState struct {
	lastRetry  time.Time
	retryCount int
	nextDelay  time.Duration
}

type sensorSchedule struct {
	period  time.Duration
	nextDue time.Time
	enabled bool
}

// SensorStatus is the externally visible view of one sensor's runtime state.
type SensorStatus struct {
	Sensor      domain.SensorID    `json:"-"`
	Name        string             `json:"name"`
	State       domain.SensorState `json:"state"`
	LastRead    time.Time          `json:"last_read"`
	ErrorStreak int                `json:"error_streak"`
	Period      time.Duration      `json:"period"`
	Enabled     bool               `json:"scheduled"`
}

type Coordinator struct {
	cfg      Config
	store    *store.Store
	settings SettingsStore

	drivers    [domain.SensorCount]driver.Driver
	runtimes   [domain.SensorCount]sensorRuntime
	recoveries [domain.SensorCount]recoveryState
	schedules  [domain.SensorCount]sensorSchedule

	commands chan domain.Command

	statusMu sync.RWMutex
	statuses [domain.SensorCount]SensorStatus

	now func() time.Time
}

func New(cfg Config, drivers []driver.Driver, st *store.Store, settings SettingsStore) (*Coordinator, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = _defaultQueueSize
	}

	c := &Coordinator{
		cfg:      cfg,
		store:    st,
		settings: settings,
		commands: make(chan domain.Command, cfg.QueueSize),
		now:      time.Now,
	}

	for _, d := range drivers {
		id := d.Sensor()
		if !id.Valid() {
			return nil, fmt.Errorf("driver reports invalid sensor id %d", int(id))
		}
		if c.drivers[id] != nil {
			return nil, fmt.Errorf("duplicate driver for sensor %s", id)
		}
		c.drivers[id] = d
	}

	return c, nil
}

// Submit validates and enqueues a command without blocking. A full queue is
// reported to the caller instead of stalling it.
func (c *Coordinator) Submit(cmd domain.Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("rejecting command: %w", err)
	}

	select {
	case c.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitAndWait enqueues cmd and blocks until the coordinator replies or ctx
// expires. The reply channel is attached here when the caller did not.
func (c *Coordinator) SubmitAndWait(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	if cmd.Reply == nil {
		cmd.Reply = make(chan domain.CommandResult, 1)
	}
	if err := c.Submit(cmd); err != nil {
		return domain.CommandResult{}, err
	}

	select {
	case result := <-cmd.Reply:
		return result, nil
	case <-ctx.Done():
		return domain.CommandResult{}, ErrReplyTimedOut
	}
}

// SensorStatuses returns the last published runtime view, safe to call from
// any goroutine.
func (c *Coordinator) SensorStatuses() []SensorStatus {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	out := make([]SensorStatus, 0, domain.SensorCount)
	for id := range c.statuses {
		if c.drivers[id] == nil {
			continue
		}
		out = append(out, c.statuses[id])
	}
	return out
}

// Run executes the coordinator loop until ctx is cancelled. One iteration
// drains at most one pending command, then runs the warm-up, scheduled-read
// and recovery passes. The wait between iterations is bounded by the next
// due read and a one second liveness ceiling.
func (c *Coordinator) Run(ctx context.Context, done func()) {
	defer done()

	select {
	case <-time.After(c.cfg.StartupDelay):
	case <-ctx.Done():
		return
	}

	c.initializeSensors(ctx)
	c.publishStatuses()

	for {
		now := c.now()
		c.warmupPass(now)
		c.scheduledPass(ctx, now)
		c.recoveryPass(ctx, now)
		c.publishStatuses()

		select {
		case <-ctx.Done():
			c.shutdownSensors()
			c.publishStatuses()
			slog.Info("coordinator stopped")
			return
		case cmd := <-c.commands:
			c.handleCommand(ctx, cmd)
		case <-time.After(c.nextWake(c.now())):
		}
	}
}

// Shutdown wakes a coordinator blocked on its command channel so a pending
// context cancellation is observed promptly.
func (c *Coordinator) Shutdown() {
	noop := domain.Command{Type: domain.CommandNoop, Sensor: domain.SensorMCUTemp}
	select {
	case c.commands <- noop:
	default:
	}
}

func (c *Coordinator) initializeSensors(ctx context.Context) {
	now := c.now()
	present := 0
	for id := range c.drivers {
		if c.drivers[id] != nil {
			present++
		}
	}

	index := 0
	for id := range c.drivers {
		if c.drivers[id] == nil {
			continue
		}
		sensor := domain.SensorID(id)
		c.runtimes[id].state = domain.StateInit

		period := c.cfg.Sensors[id].Period
		if c.settings != nil {
			persisted, err := c.settings.GetDuration(ctx, cadenceKey(sensor), period)
			if err != nil {
				slog.Warn("loading persisted cadence",
					slog.String("sensor", sensor.String()),
					slog.Any("error", err))
			} else {
				period = persisted
			}
		}
		// Stagger first due times so boot does not read every sensor in one
		// burst.
		c.schedules[id] = sensorSchedule{
			period:  period,
			nextDue: now.Add(period * time.Duration(index) / time.Duration(present)),
			enabled: period > 0,
		}
		index++

		if err := c.drivers[id].Enable(ctx); err != nil {
			slog.Error("enabling sensor failed",
				slog.String("sensor", sensor.String()),
				slog.Any("error", err))
			c.enterError(sensor, now)
			continue
		}
		c.beginWarmup(sensor, now)
	}
	slog.Info("sensors initialized", slog.Int("count", present))
}

func (c *Coordinator) shutdownSensors() {
	// Fixed deinitialization order: identity order, same as init.
	for id := range c.drivers {
		if c.drivers[id] == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.drivers[id].Disable(ctx); err != nil && !errors.Is(err, driver.ErrUnsupported) {
			slog.Warn("disabling sensor during shutdown",
				slog.String("sensor", domain.SensorID(id).String()),
				slog.Any("error", err))
		}
		cancel()
		c.runtimes[id].state = domain.StateUninitialized
	}
}

// nextWake computes how long the loop may block: time until the earliest due
// scheduled read, clamped to the liveness ceiling so recovery checks still
// happen at least once per second.
func (c *Coordinator) nextWake(now time.Time) time.Duration {
	wait := _livenessInterval
	for id := range c.schedules {
		if c.drivers[id] == nil {
			continue
		}
		if c.runtimes[id].state != domain.StateReady || !c.schedules[id].enabled {
			continue
		}
		until := c.schedules[id].nextDue.Sub(now)
		if until < wait {
			wait = until
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (c *Coordinator) publishStatuses() {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	for id := range c.statuses {
		c.statuses[id] = SensorStatus{
			Sensor:      domain.SensorID(id),
			Name:        domain.SensorID(id).String(),
			State:       c.runtimes[id].state,
			LastRead:    c.runtimes[id].lastRead,
			ErrorStreak: c.runtimes[id].errorStreak,
			Period:      c.schedules[id].period,
			Enabled:     c.schedules[id].enabled,
		}
	}
}

func cadenceKey(id domain.SensorID) string {
	return fmt.Sprintf("sensor.%s.cadence_ms", id)
}
