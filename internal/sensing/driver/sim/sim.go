// Package sim provides simulated sensor drivers so the station runs end to
// end without hardware. Values follow a small random walk around plausible
// indoor levels.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/driver"
	"airsentry/internal/sensing/store"
)

type writeFunc func(st *store.State, rng *rand.Rand)

type sensor struct {
	id    domain.SensorID
	store *store.Store
	write writeFunc

	// The MCU-internal sensor has no native reset; the coordinator falls
	// back to a disable/enable cycle for it.
	resettable bool

	mu      sync.Mutex
	rng     *rand.Rand
	enabled bool
}

var _ driver.Driver = (*sensor)(nil)

func (s *sensor) Sensor() domain.SensorID { return s.id }

func (s *sensor) Enable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	return nil
}

func (s *sensor) Disable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	return nil
}

func (s *sensor) Reset(ctx context.Context) error {
	if !s.resettable {
		return driver.ErrUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	return nil
}

func (s *sensor) Read(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return fmt.Errorf("sensor %s is powered down", s.id)
	}
	s.store.With(func(st *store.State) {
		s.write(st, s.rng)
	})
	return nil
}

func walk(rng *rand.Rand, base, spread float64) float64 {
	return base + (rng.Float64()*2-1)*spread
}

// gasSensor adds the index-algorithm blackout window and the
// sampling-interval dependency of the VOC/NOx sensor.
type gasSensor struct {
	sensor
	blackout  time.Duration
	startedAt time.Time
}

var _ driver.ReadinessChecker = (*gasSensor)(nil)
var _ driver.CadenceObserver = (*gasSensor)(nil)

func (g *gasSensor) Enable(ctx context.Context) error {
	g.mu.Lock()
	g.startedAt = time.Now()
	g.mu.Unlock()
	return g.sensor.Enable(ctx)
}

func (g *gasSensor) ReadyForUse() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return time.Since(g.startedAt) >= g.blackout
}

// CadenceChanged restarts the index algorithm: its model assumes a constant
// sampling interval.
func (g *gasSensor) CadenceChanged(period time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startedAt = time.Now()
}

// co2Sensor supports forced recalibration against a reference concentration.
type co2Sensor struct {
	sensor
	offset float64
}

var _ driver.Calibrator = (*co2Sensor)(nil)

func (c *co2Sensor) Calibrate(ctx context.Context, referencePPM float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = referencePPM - 600 // 600 is the simulated ambient level
	return nil
}

func (c *co2Sensor) Read(ctx context.Context) error {
	c.mu.Lock()
	offset := c.offset
	enabled := c.enabled
	rng := c.rng
	c.mu.Unlock()
	if !enabled {
		return fmt.Errorf("sensor %s is powered down", c.id)
	}
	c.store.With(func(st *store.State) {
		st.Raw.CO2 = domain.NewSample(walk(rng, 600, 40) + offset)
	})
	return nil
}

// Station builds one simulated driver per sensor identity, all writing into
// st.
func Station(st *store.Store, seed int64) []driver.Driver {
	newRNG := func() *rand.Rand {
		seed++
		return rand.New(rand.NewSource(seed))
	}

	return []driver.Driver{
		&sensor{
			id: domain.SensorMCUTemp, store: st, rng: newRNG(),
			// disable/enable fallback only
			resettable: false,
			write: func(s *store.State, rng *rand.Rand) {
				s.Raw.MCUTemperature = domain.NewSample(walk(rng, 38, 1.5))
			},
		},
		&sensor{
			id: domain.SensorHumidity, store: st, rng: newRNG(), resettable: true,
			write: func(s *store.State, rng *rand.Rand) {
				s.Raw.Temperature = domain.NewSample(walk(rng, 23.5, 0.4))
				s.Raw.Humidity = domain.NewSample(walk(rng, 46, 2))
			},
		},
		&sensor{
			id: domain.SensorPressure, store: st, rng: newRNG(), resettable: true,
			write: func(s *store.State, rng *rand.Rand) {
				s.Raw.Pressure = domain.NewSample(walk(rng, 1011, 1.2))
			},
		},
		&gasSensor{
			sensor: sensor{
				id: domain.SensorGas, store: st, rng: newRNG(), resettable: true,
				write: func(s *store.State, rng *rand.Rand) {
					s.Raw.VOCIndex = domain.NewSample(walk(rng, 105, 20))
					s.Raw.NOxIndex = domain.NewSample(walk(rng, 2, 1))
				},
			},
			blackout: 45 * time.Second,
		},
		&sensor{
			id: domain.SensorParticulate, store: st, rng: newRNG(), resettable: true,
			write: func(s *store.State, rng *rand.Rand) {
				pm25 := walk(rng, 8, 3)
				s.Raw.PM1 = domain.NewSample(pm25 * 0.7)
				s.Raw.PM25 = domain.NewSample(pm25)
				s.Raw.PM10 = domain.NewSample(pm25 * 1.4)
			},
		},
		&co2Sensor{
			sensor: sensor{
				id: domain.SensorCO2, store: st, rng: newRNG(), resettable: true,
			},
		},
	}
}
