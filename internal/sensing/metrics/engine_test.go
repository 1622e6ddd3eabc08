package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/store"
)

func pressurePa(hpa float64) domain.FusedReadings {
	return domain.FusedReadings{PressurePa: domain.NewSample(hpa * 100)}
}

func TestComputePressureTrend_UnknownUntilEnoughHistory(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var m domain.Metrics
	m.PressureTrend = domain.TrendUnknown
	e.computePressureTrend(pressurePa(1013), now, &m)
	assert.Equal(t, domain.TrendUnknown, m.PressureTrend, "one sample is not a trend")
	assert.False(t, m.PressureTrendRate.Valid)

	// A second sample only 30 minutes later still spans less than an hour.
	m = domain.Metrics{PressureTrend: domain.TrendUnknown}
	e.computePressureTrend(pressurePa(1012), now.Add(30*time.Minute), &m)
	assert.Equal(t, domain.TrendUnknown, m.PressureTrend)
}

func TestComputePressureTrend_FallingNormalizedToWindow(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var m domain.Metrics
	e.computePressureTrend(pressurePa(1013), now, &m)

	// 1 hPa drop over 2 hours scales to 1.5 hPa over the 3 hour window.
	m = domain.Metrics{PressureTrend: domain.TrendUnknown}
	e.computePressureTrend(pressurePa(1012), now.Add(2*time.Hour), &m)
	assert.Equal(t, domain.TrendFalling, m.PressureTrend)
	require.True(t, m.PressureTrendRate.Valid)
	assert.InDelta(t, -1.5, m.PressureTrendRate.Value, 1e-9)
}

func TestComputePressureTrend_StableWithinThreshold(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var m domain.Metrics
	e.computePressureTrend(pressurePa(1013), now, &m)
	m = domain.Metrics{PressureTrend: domain.TrendUnknown}
	e.computePressureTrend(pressurePa(1013.3), now.Add(3*time.Hour), &m)
	assert.Equal(t, domain.TrendStable, m.PressureTrend)
}

func TestComputeCO2Rate(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var m domain.Metrics
	e.computeCO2Rate(domain.FusedReadings{CO2: domain.NewSample(600)}, now, &m)
	assert.False(t, m.CO2Rate.Valid, "a single sample has no rate")

	m = domain.Metrics{}
	e.computeCO2Rate(domain.FusedReadings{CO2: domain.NewSample(750)}, now.Add(30*time.Minute), &m)
	require.True(t, m.CO2Rate.Valid)
	assert.InDelta(t, 300.0, m.CO2Rate.Value, 1e-9, "150 ppm over half an hour is 300 ppm/h")
}

func TestComputeCO2Rate_IgnoresSamplesOutsideWindow(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var m domain.Metrics
	e.computeCO2Rate(domain.FusedReadings{CO2: domain.NewSample(600)}, now, &m)
	e.computeCO2Rate(domain.FusedReadings{CO2: domain.NewSample(700)}, now.Add(90*time.Minute), &m)

	// The rate only considers samples inside the one hour window; the 600 ppm
	// sample from 90 minutes ago is out.
	m = domain.Metrics{}
	e.computeCO2Rate(domain.FusedReadings{CO2: domain.NewSample(760)}, now.Add(120*time.Minute), &m)
	require.True(t, m.CO2Rate.Valid)
	assert.InDelta(t, 120.0, m.CO2Rate.Value, 1e-9)
}

func TestComputePMSpike(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var m domain.Metrics
	e.computePMSpike(domain.FusedReadings{PM25: domain.NewSample(5)}, now, &m)
	assert.False(t, m.PMSpike)
	e.computePMSpike(domain.FusedReadings{PM25: domain.NewSample(6)}, now.Add(30*time.Second), &m)
	assert.False(t, m.PMSpike, "fewer than three samples can never flag")

	e.computePMSpike(domain.FusedReadings{PM25: domain.NewSample(7)}, now.Add(60*time.Second), &m)
	assert.False(t, m.PMSpike)

	e.computePMSpike(domain.FusedReadings{PM25: domain.NewSample(30)}, now.Add(90*time.Second), &m)
	assert.True(t, m.PMSpike, "30 µg/m³ against a ~6 µg/m³ baseline is a spike")
}

func TestComputeOverall(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)

	var m domain.Metrics
	e.computeOverall(&m)
	assert.False(t, m.OverallIndex.Valid, "overall requires all three inputs")

	m = domain.Metrics{
		AQI:          domain.NewSample(50),
		CO2Score:     domain.NewSample(80),
		ComfortScore: domain.NewSample(90),
	}
	e.computeOverall(&m)
	require.True(t, m.OverallIndex.Valid)
	// 0.4·(100−10) + 0.4·80 + 0.2·90 = 86
	assert.InDelta(t, 86.0, m.OverallIndex.Value, 1e-9)
}

func TestCompute_EndToEnd(t *testing.T) {
	st := store.New()
	st.With(func(s *store.State) {
		s.Fused.Temperature = domain.NewSample(21)
		s.Fused.Humidity = domain.NewSample(45)
		s.Fused.PM25 = domain.NewSample(6)
		s.Fused.PM10 = domain.NewSample(10)
		s.Fused.CO2 = domain.NewSample(800)
		s.Raw.VOCIndex = domain.NewSample(100)
		s.Raw.NOxIndex = domain.NewSample(1)
	})

	e := NewEngine(DefaultConfig(), st)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e.Compute(now)

	m := st.Snapshot().Metrics
	assert.Equal(t, now, m.UpdatedAt)
	assert.Equal(t, domain.AQIGood, m.AQICategory)
	assert.InDelta(t, 80.0, m.CO2Score.Value, 1e-9)
	assert.InDelta(t, 100.0, m.ComfortScore.Value, 1e-9)
	require.True(t, m.OverallIndex.Valid)
	assert.Equal(t, domain.GasGood, m.VOCCategory)
	assert.Equal(t, domain.GasExcellent, m.NOxCategory)
	// Time-series metrics stay unknown on the first tick.
	assert.Equal(t, domain.TrendUnknown, m.PressureTrend)
	assert.False(t, m.CO2Rate.Valid)
	assert.False(t, m.PMSpike)
}

func TestCompute_EmptyStoreYieldsUnknowns(t *testing.T) {
	st := store.New()
	e := NewEngine(DefaultConfig(), st)
	e.Compute(time.Now())

	m := st.Snapshot().Metrics
	assert.Equal(t, domain.AQIUnknown, m.AQICategory)
	assert.Equal(t, domain.TrendUnknown, m.PressureTrend)
	assert.Equal(t, domain.GasUnknown, m.VOCCategory)
	assert.False(t, m.AQI.Valid)
	assert.False(t, m.OverallIndex.Valid)
	assert.False(t, m.MoldRisk.Valid)
}
