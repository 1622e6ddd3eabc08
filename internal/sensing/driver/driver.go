// Package driver defines the contract between the coordinator and the
// physical sensor drivers. The coordinator never talks to hardware directly:
// a driver's Read writes into the shared store and flips validity flags on
// success, and every operation reports failure through its error return.
package driver

import (
	"context"
	"errors"
	"time"

	"airsentry/internal/sensing/domain"
)

// ErrUnsupported marks an operation the sensor cannot perform natively, e.g.
// reset on the MCU-internal sensor. It is not counted toward read-failure
// streaks.
var ErrUnsupported = errors.New("operation not supported by sensor")

type Driver interface {
	Sensor() domain.SensorID
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Reset(ctx context.Context) error
	Read(ctx context.Context) error
}

// Calibrator is implemented by sensors that accept a reference-value
// calibration (the CO2 sensor).
type Calibrator interface {
	Calibrate(ctx context.Context, referencePPM float64) error
}

// ReadinessChecker lets a sensor hold back the Warming→Ready transition past
// its warm-up deadline. The gas sensor uses it while its index algorithm is
// inside its blackout window.
type ReadinessChecker interface {
	ReadyForUse() bool
}

// CadenceObserver is implemented by sensors whose internal model depends on
// the sampling interval; it is notified whenever the cadence changes.
type CadenceObserver interface {
	CadenceChanged(period time.Duration)
}
