package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/driver"
)

// warmupPass promotes warming sensors whose deadline has passed and whose
// readiness predicate holds.
func (c *Coordinator) warmupPass(now time.Time) {
	for id := range c.runtimes {
		if c.drivers[id] == nil || c.runtimes[id].state != domain.StateWarming {
			continue
		}
		if now.Before(c.runtimes[id].warmupDeadline) {
			continue
		}
		if checker, ok := c.drivers[id].(driver.ReadinessChecker); ok && !checker.ReadyForUse() {
			continue
		}
		c.enterReady(domain.SensorID(id))
	}
}

// scheduledPass reads every ready sensor whose due time has elapsed. The due
// time advances additively so jitter in the loop never accumulates into
// cadence drift.
func (c *Coordinator) scheduledPass(ctx context.Context, now time.Time) {
	for id := range c.schedules {
		if c.drivers[id] == nil {
			continue
		}
		sched := &c.schedules[id]
		if !sched.enabled || c.runtimes[id].state != domain.StateReady {
			continue
		}
		if now.Before(sched.nextDue) {
			continue
		}
		c.performRead(ctx, domain.SensorID(id), now)
		for !sched.nextDue.After(now) {
			sched.nextDue = sched.nextDue.Add(sched.period)
		}
	}
}

// recoveryPass retries every errored sensor whose backoff delay has elapsed.
// It runs every loop iteration, independent of read cadences, so a sensor
// with a long or disabled cadence is still recovered.
func (c *Coordinator) recoveryPass(ctx context.Context, now time.Time) {
	for id := range c.runtimes {
		if c.drivers[id] == nil || c.runtimes[id].state != domain.StateError {
			continue
		}
		sensor := domain.SensorID(id)
		rec := &c.recoveries[id]
		if now.Sub(rec.lastRetry) < rec.nextDelay {
			continue
		}

		slog.Info("attempting sensor recovery",
			slog.String("sensor", sensor.String()),
			slog.Int("attempt", rec.retryCount+1))

		if err := c.resetDriver(ctx, sensor); err != nil {
			rec.lastRetry = now
			rec.retryCount++
			rec.nextDelay = min(rec.nextDelay*2, _retryDelayCap)
			slog.Warn("sensor recovery failed",
				slog.String("sensor", sensor.String()),
				slog.Duration("next_retry_in", rec.nextDelay),
				slog.Any("error", err))
			continue
		}

		c.completeRecovery(sensor, now)
		slog.Info("sensor recovered", slog.String("sensor", sensor.String()))
	}
}

// performRead dispatches a driver read and applies the failure-streak policy:
// a single failed read is tolerated silently up to two more times, the third
// consecutive failure moves the sensor to error.
func (c *Coordinator) performRead(ctx context.Context, id domain.SensorID, now time.Time) error {
	err := c.drivers[id].Read(ctx)
	rt := &c.runtimes[id]
	if err == nil {
		rt.errorStreak = 0
		rt.lastRead = now
		return nil
	}

	rt.errorStreak++
	slog.Warn("sensor read failed",
		slog.String("sensor", id.String()),
		slog.Int("streak", rt.errorStreak),
		slog.Any("error", err))

	if rt.errorStreak >= _maxErrorStreak && rt.state == domain.StateReady {
		c.enterError(id, now)
	}
	return err
}

// resetDriver invokes the sensor's native reset, falling back to a
// disable/enable cycle for sensors without one.
func (c *Coordinator) resetDriver(ctx context.Context, id domain.SensorID) error {
	err := c.drivers[id].Reset(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, driver.ErrUnsupported) {
		return err
	}

	if err := c.drivers[id].Disable(ctx); err != nil {
		if errors.Is(err, driver.ErrUnsupported) {
			return driver.ErrUnsupported
		}
		return err
	}
	return c.drivers[id].Enable(ctx)
}

func (c *Coordinator) beginWarmup(id domain.SensorID, now time.Time) {
	if warmup := c.cfg.Sensors[id].Warmup; warmup > 0 {
		c.runtimes[id].state = domain.StateWarming
		c.runtimes[id].warmupDeadline = now.Add(warmup)
		return
	}
	c.enterReady(id)
}

func (c *Coordinator) enterReady(id domain.SensorID) {
	c.runtimes[id].state = domain.StateReady
	c.runtimes[id].errorStreak = 0
	slog.Debug("sensor ready", slog.String("sensor", id.String()))
}

// enterError invalidates the sensor's store fields and arms recovery. The
// entry time counts as the last retry so the first attempt happens a full
// backoff floor after the failure, not immediately.
func (c *Coordinator) enterError(id domain.SensorID, now time.Time) {
	c.runtimes[id].state = domain.StateError
	c.recoveries[id] = recoveryState{
		lastRetry: now,
		nextDelay: _retryDelayFloor,
	}
	c.store.InvalidateSensor(id)
	slog.Error("sensor entered error state", slog.String("sensor", id.String()))
}

// completeRecovery applies the post-reset transition: stale data is dropped,
// the streak is cleared and the backoff returns to its floor.
func (c *Coordinator) completeRecovery(id domain.SensorID, now time.Time) {
	c.runtimes[id].errorStreak = 0
	c.recoveries[id] = recoveryState{nextDelay: _retryDelayFloor}
	c.store.InvalidateSensor(id)
	c.beginWarmup(id, now)
}
