// Package store holds the shared in-memory state exchanged between the
// coordinator, the fusion and metrics engines, and the downstream consumers
// (HTTP, websocket, MQTT). All access goes through one exclusive lock; the
// scoped With accessor guarantees release on every exit path.
package store

import (
	"sync"
	"time"

	"airsentry/internal/sensing/domain"
)

type State struct {
	Raw         domain.RawReadings       `json:"raw"`
	Fused       domain.FusedReadings     `json:"fused"`
	Diagnostics domain.FusionDiagnostics `json:"diagnostics"`
	Metrics     domain.Metrics           `json:"metrics"`
}

type Store struct {
	mu    sync.Mutex
	state State
}

func New() *Store {
	s := &Store{}
	s.state.Metrics = emptyMetrics(time.Time{})
	return s
}

// With runs fn with exclusive access to the state. fn must not block on I/O;
// lock scope is meant to cover a read-compute-write sequence only.
func (s *Store) With(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Snapshot returns a copy of the state for computation outside the lock.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InvalidateSensor clears the raw and fused fields owned by one sensor so
// consumers never see stale values from a failed or disabled sensor.
func (s *Store) InvalidateSensor(id domain.SensorID) {
	s.With(func(st *State) {
		invalidateSensor(st, id)
	})
}

func invalidateSensor(st *State, id domain.SensorID) {
	switch id {
	case domain.SensorMCUTemp:
		st.Raw.MCUTemperature = domain.Sample{}
	case domain.SensorHumidity:
		st.Raw.Temperature = domain.Sample{}
		st.Raw.Humidity = domain.Sample{}
		st.Fused.Temperature = domain.Sample{}
		st.Fused.Humidity = domain.Sample{}
	case domain.SensorPressure:
		st.Raw.Pressure = domain.Sample{}
		st.Fused.PressurePa = domain.Sample{}
	case domain.SensorGas:
		st.Raw.VOCIndex = domain.Sample{}
		st.Raw.NOxIndex = domain.Sample{}
	case domain.SensorParticulate:
		st.Raw.PM1 = domain.Sample{}
		st.Raw.PM25 = domain.Sample{}
		st.Raw.PM10 = domain.Sample{}
		st.Fused.PM1 = domain.Sample{}
		st.Fused.PM25 = domain.Sample{}
		st.Fused.PM10 = domain.Sample{}
		st.Fused.PMQuality = domain.Sample{}
		st.Fused.PMRatio = domain.Sample{}
	case domain.SensorCO2:
		st.Raw.CO2 = domain.Sample{}
		st.Fused.CO2 = domain.Sample{}
	}
}

func emptyMetrics(now time.Time) domain.Metrics {
	return domain.Metrics{
		AQICategory:   domain.AQIUnknown,
		PressureTrend: domain.TrendUnknown,
		VOCCategory:   domain.GasUnknown,
		NOxCategory:   domain.GasUnknown,
		UpdatedAt:     now,
	}
}
