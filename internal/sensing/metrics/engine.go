// Package metrics derives air-quality indices from the fused readings every
// metrics tick. Each metric is individually gated and writes an explicit
// unknown value when its inputs are unavailable.
package metrics

import (
	"time"

	"airsentry/internal/infra/ring"
	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/store"
)

type Config struct {
	EnableAQI           bool
	EnableComfort       bool
	EnableCO2Score      bool
	EnableMold          bool
	EnablePressureTrend bool
	EnableCO2Rate       bool
	EnablePMSpike       bool
	EnableGasCategories bool

	ComfortTargetTempC float64
	ComfortTargetRH    float64

	// MoldSurfaceOffsetC models how much colder the coldest surface in the
	// room is assumed to be than the air.
	MoldSurfaceOffsetC float64

	PressureSampleEvery  time.Duration
	PressureWindow       time.Duration
	PressureThresholdHPa float64

	CO2SampleEvery time.Duration
	CO2RateWindow  time.Duration

	PMSampleEvery      time.Duration
	PMSpikeWindow      time.Duration
	PMSpikeThresholdUg float64
}

func DefaultConfig() Config {
	return Config{
		EnableAQI:           true,
		EnableComfort:       true,
		EnableCO2Score:      true,
		EnableMold:          true,
		EnablePressureTrend: true,
		EnableCO2Rate:       true,
		EnablePMSpike:       true,
		EnableGasCategories: true,

		ComfortTargetTempC: 21,
		ComfortTargetRH:    45,
		MoldSurfaceOffsetC: 3,

		PressureSampleEvery:  150 * time.Second,
		PressureWindow:       3 * time.Hour,
		PressureThresholdHPa: 1.0,

		CO2SampleEvery: time.Minute,
		CO2RateWindow:  time.Hour,

		PMSampleEvery:      30 * time.Second,
		PMSpikeWindow:      5 * time.Minute,
		PMSpikeThresholdUg: 15,
	}
}

type timedSample struct {
	at    time.Time
	value float64
}

type Engine struct {
	cfg   Config
	store *store.Store

	pressureHistory *ring.Buffer[timedSample]
	lastPressureAt  time.Time

	co2History *ring.Buffer[timedSample]
	lastCO2At  time.Time

	pmHistory *ring.Buffer[timedSample]
	lastPMAt  time.Time
}

func NewEngine(cfg Config, st *store.Store) *Engine {
	return &Engine{
		cfg:             cfg,
		store:           st,
		pressureHistory: ring.New[timedSample](historySlots(cfg.PressureWindow, cfg.PressureSampleEvery)),
		co2History:      ring.New[timedSample](historySlots(cfg.CO2RateWindow, cfg.CO2SampleEvery)),
		pmHistory:       ring.New[timedSample](historySlots(cfg.PMSpikeWindow, cfg.PMSampleEvery)),
	}
}

func historySlots(window, every time.Duration) int {
	if every <= 0 {
		return 1
	}
	return int(window/every) + 1
}

// Compute derives all enabled metrics from the current fused snapshot and
// writes them back under the store lock.
func (e *Engine) Compute(now time.Time) {
	snap := e.store.Snapshot()
	fused := snap.Fused

	m := domain.Metrics{
		AQICategory:   domain.AQIUnknown,
		PressureTrend: domain.TrendUnknown,
		VOCCategory:   domain.GasUnknown,
		NOxCategory:   domain.GasUnknown,
		UpdatedAt:     now,
	}

	if e.cfg.EnableAQI {
		e.computeAQI(fused, &m)
	}
	if e.cfg.EnableComfort {
		e.computeComfort(fused, &m)
	}
	if e.cfg.EnableCO2Score && fused.CO2.Valid {
		m.CO2Score = domain.NewSample(co2Score(fused.CO2.Value))
	}
	e.computeOverall(&m)
	if e.cfg.EnableMold {
		e.computeMoldRisk(fused, &m)
	}
	if e.cfg.EnablePressureTrend {
		e.computePressureTrend(fused, now, &m)
	}
	if e.cfg.EnableCO2Rate {
		e.computeCO2Rate(fused, now, &m)
	}
	if e.cfg.EnablePMSpike {
		e.computePMSpike(fused, now, &m)
	}
	if e.cfg.EnableGasCategories {
		e.computeGasCategories(snap.Raw, &m)
	}

	e.store.With(func(st *store.State) {
		st.Metrics = m
	})
}

// Overall index: 0.4·(100 − AQI/5) + 0.4·CO2 score + 0.2·comfort score.
// Unknown unless all three inputs are available.
func (e *Engine) computeOverall(m *domain.Metrics) {
	if !m.AQI.Valid || !m.CO2Score.Valid || !m.ComfortScore.Valid {
		return
	}
	overall := 0.4*(100-m.AQI.Value/5) + 0.4*m.CO2Score.Value + 0.2*m.ComfortScore.Value
	m.OverallIndex = domain.NewSample(clamp(overall, 0, 100))
}

func (e *Engine) computePressureTrend(fused domain.FusedReadings, now time.Time, m *domain.Metrics) {
	if fused.PressurePa.Valid && now.Sub(e.lastPressureAt) >= e.cfg.PressureSampleEvery {
		e.pressureHistory.Push(timedSample{at: now, value: fused.PressurePa.Value / 100})
		e.lastPressureAt = now
	}

	oldest, okOld := e.pressureHistory.Oldest()
	newest, okNew := e.pressureHistory.Newest()
	if !okOld || !okNew || e.pressureHistory.Len() < 2 {
		return
	}
	span := newest.at.Sub(oldest.at)
	if span < time.Hour {
		return
	}

	// Normalize the observed delta to the configured window length before
	// comparing against the threshold.
	perWindow := (newest.value - oldest.value) / span.Hours() * e.cfg.PressureWindow.Hours()
	m.PressureTrendRate = domain.NewSample(perWindow)
	switch {
	case perWindow >= e.cfg.PressureThresholdHPa:
		m.PressureTrend = domain.TrendRising
	case perWindow <= -e.cfg.PressureThresholdHPa:
		m.PressureTrend = domain.TrendFalling
	default:
		m.PressureTrend = domain.TrendStable
	}
}

func (e *Engine) computeCO2Rate(fused domain.FusedReadings, now time.Time, m *domain.Metrics) {
	if fused.CO2.Valid && now.Sub(e.lastCO2At) >= e.cfg.CO2SampleEvery {
		e.co2History.Push(timedSample{at: now, value: fused.CO2.Value})
		e.lastCO2At = now
	}

	newest, ok := e.co2History.Newest()
	if !ok {
		return
	}

	// Oldest sample still inside the rate window.
	cutoff := now.Add(-e.cfg.CO2RateWindow)
	var oldest timedSample
	found := false
	e.co2History.Do(func(s timedSample) {
		if !found && !s.at.Before(cutoff) {
			oldest = s
			found = true
		}
	})
	if !found || !newest.at.After(oldest.at) {
		return
	}

	elapsed := newest.at.Sub(oldest.at).Hours()
	m.CO2Rate = domain.NewSample((newest.value - oldest.value) / elapsed)
}

// computePMSpike flags the current PM2.5 value when it exceeds the trailing
// baseline average (excluding the current sample) by more than the threshold.
func (e *Engine) computePMSpike(fused domain.FusedReadings, now time.Time, m *domain.Metrics) {
	if fused.PM25.Valid && now.Sub(e.lastPMAt) >= e.cfg.PMSampleEvery {
		e.pmHistory.Push(timedSample{at: now, value: fused.PM25.Value})
		e.lastPMAt = now
	}

	n := e.pmHistory.Len()
	if n < 3 {
		return
	}

	current, _ := e.pmHistory.Newest()
	sum := 0.0
	e.pmHistory.Do(func(s timedSample) { sum += s.value })
	trailing := (sum - current.value) / float64(n-1)

	m.PMSpike = current.value-trailing > e.cfg.PMSpikeThresholdUg
}

func (e *Engine) computeGasCategories(raw domain.RawReadings, m *domain.Metrics) {
	if raw.VOCIndex.Valid {
		m.VOCCategory = vocCategory(raw.VOCIndex.Value)
	}
	if raw.NOxIndex.Valid {
		m.NOxCategory = noxCategory(raw.NOxIndex.Value)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
