package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/driver"
)

// handleCommand dispatches one dequeued command. It runs on the coordinator
// goroutine, so command handling is mutually exclusive with scheduled reads.
func (c *Coordinator) handleCommand(ctx context.Context, cmd domain.Command) {
	if cmd.Type == domain.CommandNoop {
		reply(cmd, domain.CommandResult{Status: domain.CommandOK})
		return
	}

	if c.drivers[cmd.Sensor] == nil {
		reply(cmd, domain.CommandResult{
			Status: domain.CommandFailed,
			Err:    fmt.Errorf("sensor %s has no driver", cmd.Sensor),
		})
		return
	}

	slog.Debug("handling command",
		slog.String("id", cmd.ID),
		slog.String("type", string(cmd.Type)),
		slog.String("sensor", cmd.Sensor.String()))

	var result domain.CommandResult
	switch cmd.Type {
	case domain.CommandRead:
		result = c.commandRead(ctx, cmd.Sensor)
	case domain.CommandReset:
		result = c.commandReset(ctx, cmd.Sensor)
	case domain.CommandCalibrate:
		result = c.commandCalibrate(ctx, cmd.Sensor, cmd.CalibrationPPM)
	case domain.CommandEnable:
		result = c.commandEnable(ctx, cmd.Sensor)
	case domain.CommandDisable:
		result = c.commandDisable(ctx, cmd.Sensor)
	case domain.CommandSetCadence:
		result = c.commandSetCadence(ctx, cmd.Sensor, cmd)
	default:
		result = domain.CommandResult{
			Status: domain.CommandFailed,
			Err:    fmt.Errorf("unhandled command type %q", cmd.Type),
		}
	}

	if result.Err != nil && result.Status != domain.CommandUnsupported {
		slog.Warn("command failed",
			slog.String("type", string(cmd.Type)),
			slog.String("sensor", cmd.Sensor.String()),
			slog.Any("error", result.Err))
	}
	reply(cmd, result)
}

func reply(cmd domain.Command, result domain.CommandResult) {
	if cmd.Reply == nil {
		return
	}
	select {
	case cmd.Reply <- result:
	default:
	}
}

func (c *Coordinator) commandRead(ctx context.Context, id domain.SensorID) domain.CommandResult {
	if c.runtimes[id].state != domain.StateReady {
		return domain.CommandResult{
			Status: domain.CommandFailed,
			Err:    fmt.Errorf("sensor %s is %s, not ready", id, c.runtimes[id].state),
		}
	}
	if err := c.performRead(ctx, id, c.now()); err != nil {
		return domain.CommandResult{Status: domain.CommandFailed, Err: err}
	}
	return domain.CommandResult{Status: domain.CommandOK}
}

// commandReset power-cycles an operational sensor. A disabled sensor stays
// disabled: only an explicit Enable command leaves that state.
func (c *Coordinator) commandReset(ctx context.Context, id domain.SensorID) domain.CommandResult {
	if c.runtimes[id].state == domain.StateDisabled {
		return domain.CommandResult{
			Status: domain.CommandFailed,
			Err:    fmt.Errorf("sensor %s is disabled, enable it before resetting", id),
		}
	}

	err := c.resetDriver(ctx, id)
	if errors.Is(err, driver.ErrUnsupported) {
		return domain.CommandResult{Status: domain.CommandUnsupported, Err: err}
	}
	if err != nil {
		return domain.CommandResult{Status: domain.CommandFailed, Err: err}
	}

	c.completeRecovery(id, c.now())
	return domain.CommandResult{Status: domain.CommandOK}
}

func (c *Coordinator) commandCalibrate(ctx context.Context, id domain.SensorID, ppm float64) domain.CommandResult {
	if c.runtimes[id].state != domain.StateReady {
		return domain.CommandResult{
			Status: domain.CommandFailed,
			Err:    fmt.Errorf("sensor %s is %s, calibration requires ready", id, c.runtimes[id].state),
		}
	}
	calibrator, ok := c.drivers[id].(driver.Calibrator)
	if !ok {
		return domain.CommandResult{
			Status: domain.CommandUnsupported,
			Err:    fmt.Errorf("sensor %s: %w", id, driver.ErrUnsupported),
		}
	}
	if err := calibrator.Calibrate(ctx, ppm); err != nil {
		return domain.CommandResult{Status: domain.CommandFailed, Err: err}
	}
	slog.Info("sensor calibrated",
		slog.String("sensor", id.String()),
		slog.Float64("reference_ppm", ppm))
	return domain.CommandResult{Status: domain.CommandOK}
}

// commandEnable brings a disabled sensor back through the warm-up rule.
// Enabling a sensor that is not disabled is a deliberate no-op: it must not
// reset the failure streak or invalidate data.
func (c *Coordinator) commandEnable(ctx context.Context, id domain.SensorID) domain.CommandResult {
	if c.runtimes[id].state != domain.StateDisabled {
		return domain.CommandResult{Status: domain.CommandOK}
	}

	if err := c.drivers[id].Enable(ctx); err != nil {
		return domain.CommandResult{Status: domain.CommandFailed, Err: err}
	}
	c.runtimes[id].errorStreak = 0
	c.beginWarmup(id, c.now())
	slog.Info("sensor enabled", slog.String("sensor", id.String()))
	return domain.CommandResult{Status: domain.CommandOK}
}

func (c *Coordinator) commandDisable(ctx context.Context, id domain.SensorID) domain.CommandResult {
	if c.runtimes[id].state == domain.StateDisabled {
		return domain.CommandResult{Status: domain.CommandOK}
	}

	if err := c.drivers[id].Disable(ctx); err != nil && !errors.Is(err, driver.ErrUnsupported) {
		return domain.CommandResult{Status: domain.CommandFailed, Err: err}
	}
	c.runtimes[id].state = domain.StateDisabled
	c.store.InvalidateSensor(id)
	slog.Info("sensor disabled", slog.String("sensor", id.String()))
	return domain.CommandResult{Status: domain.CommandOK}
}

func (c *Coordinator) commandSetCadence(ctx context.Context, id domain.SensorID, cmd domain.Command) domain.CommandResult {
	sched := &c.schedules[id]
	sched.period = cmd.Cadence
	sched.enabled = cmd.Cadence > 0
	sched.nextDue = c.now().Add(cmd.Cadence)

	if c.settings != nil {
		if err := c.settings.SetDuration(ctx, cadenceKey(id), cmd.Cadence); err != nil {
			slog.Warn("persisting cadence",
				slog.String("sensor", id.String()),
				slog.Any("error", err))
		}
	}

	// Sampling-interval-dependent sensors need to rebuild their internal
	// model when the cadence changes.
	if observer, ok := c.drivers[id].(driver.CadenceObserver); ok {
		observer.CadenceChanged(cmd.Cadence)
	}

	slog.Info("cadence updated",
		slog.String("sensor", id.String()),
		slog.Duration("period", cmd.Cadence))
	return domain.CommandResult{Status: domain.CommandOK}
}
