// Package fusion applies cross-sensor compensation to raw readings once per
// second, producing fused values and a diagnostic record per correction so
// the pipeline stays auditable.
package fusion

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/store"
)

const (
	_settingTemperatureOffset = "fusion.temperature_offset_c"
	_settingPMCoeffA          = "fusion.pm_rh_coeff_a"
	_settingPMCoeffB          = "fusion.pm_rh_coeff_b"

	_lowQualityScore = 20
)

// SettingsStore persists runtime-adjustable fusion coefficients.
type SettingsStore interface {
	GetFloat(ctx context.Context, key string, fallback float64) (float64, error)
	SetFloat(ctx context.Context, key string, value float64) error
}

type Config struct {
	EnableTemperatureOffset bool
	EnablePMCorrection      bool
	EnableCO2Pressure       bool
	EnableBaseline          bool

	// TemperatureOffsetC is the self-heat offset subtracted from the raw
	// temperature. Overridden by a persisted value.
	TemperatureOffsetC float64

	// PM humidity-growth correction coefficients, corrected = raw / (1 + a·(RH/100)^b).
	PMCoeffA float64
	PMCoeffB float64
	// PMHumidityCeiling is the %RH above which the correction model is
	// considered unreliable and the raw value passes through.
	PMHumidityCeiling float64

	ReferencePressureHPa float64
	// Plausibility envelope for the measured pressure used in CO2
	// compensation; a faulty pressure reading must not amplify into a large
	// CO2 error.
	PressureMinHPa float64
	PressureMaxHPa float64
}

func DefaultConfig() Config {
	return Config{
		EnableTemperatureOffset: true,
		EnablePMCorrection:      true,
		EnableCO2Pressure:       true,
		EnableBaseline:          true,
		TemperatureOffsetC:      1.8,
		PMCoeffA:                0.48,
		PMCoeffB:                8.6,
		PMHumidityCeiling:       95,
		ReferencePressureHPa:    1013.25,
		PressureMinHPa:          950,
		PressureMaxHPa:          1060,
	}
}

type Engine struct {
	// cfgMux guards cfg: coefficients are adjustable at runtime from the
	// HTTP surface while the fusion worker keeps ticking.
	cfgMux   sync.RWMutex
	cfg      Config
	store    *store.Store
	baseline *BaselineLearner
	settings SettingsStore
}

func NewEngine(ctx context.Context, cfg Config, st *store.Store, baseline *BaselineLearner, settings SettingsStore) *Engine {
	e := &Engine{cfg: cfg, store: st, baseline: baseline, settings: settings}
	if settings == nil {
		return e
	}

	load := func(key string, target *float64) {
		value, err := settings.GetFloat(ctx, key, *target)
		if err != nil {
			slog.Warn("loading fusion coefficient", slog.String("key", key), slog.Any("error", err))
			return
		}
		*target = value
	}
	load(_settingTemperatureOffset, &e.cfg.TemperatureOffsetC)
	load(_settingPMCoeffA, &e.cfg.PMCoeffA)
	load(_settingPMCoeffB, &e.cfg.PMCoeffB)
	return e
}

// SetTemperatureOffset adjusts and persists the self-heat offset at runtime.
func (e *Engine) SetTemperatureOffset(ctx context.Context, offset float64) error {
	e.cfgMux.Lock()
	e.cfg.TemperatureOffsetC = offset
	e.cfgMux.Unlock()
	if e.settings == nil {
		return nil
	}
	return e.settings.SetFloat(ctx, _settingTemperatureOffset, offset)
}

func (e *Engine) config() Config {
	e.cfgMux.RLock()
	defer e.cfgMux.RUnlock()
	return e.cfg
}

// Apply takes a snapshot of the raw readings, runs the correction pipeline
// and writes the fused readings and diagnostics back atomically.
func (e *Engine) Apply(now time.Time) {
	cfg := e.config()
	snap := e.store.Snapshot()
	fused, diags := e.compute(cfg, snap.Raw, now)
	e.store.With(func(st *store.State) {
		st.Fused = fused
		st.Diagnostics = diags
	})
}

func (e *Engine) compute(cfg Config, raw domain.RawReadings, now time.Time) (domain.FusedReadings, domain.FusionDiagnostics) {
	var fused domain.FusedReadings
	var diags domain.FusionDiagnostics
	fused.UpdatedAt = now

	// Step 1: temperature self-heat correction.
	if raw.Temperature.Valid {
		if cfg.EnableTemperatureOffset {
			fused.Temperature = domain.NewSample(raw.Temperature.Value - cfg.TemperatureOffsetC)
			diags.TemperatureOffset = domain.NewSample(cfg.TemperatureOffsetC)
		} else {
			fused.Temperature = raw.Temperature
		}
	}

	// Step 2: humidity passthrough, reference value for later steps.
	fused.Humidity = raw.Humidity

	// Step 3: pressure passthrough, hPa to Pa.
	if raw.Pressure.Valid {
		fused.PressurePa = domain.NewSample(raw.Pressure.Value * 100)
	}

	// Step 4: particulate humidity correction.
	computePM(cfg, raw, &fused, &diags)

	// Step 5: CO2 pressure compensation.
	co2 := computeCO2Pressure(cfg, raw, &diags)

	// Step 6: CO2 baseline correction.
	fused.CO2 = e.computeCO2Baseline(cfg, co2, now, &diags)

	return fused, diags
}

func computePM(cfg Config, raw domain.RawReadings, fused *domain.FusedReadings, diags *domain.FusionDiagnostics) {
	// Each channel is corrected independently: an invalid PM2.5 reading must
	// not drop a valid PM1 or PM10 one.
	if !raw.PM1.Valid && !raw.PM25.Valid && !raw.PM10.Valid {
		return
	}

	rh := fused.Humidity
	correctable := cfg.EnablePMCorrection && rh.Valid && rh.Value <= cfg.PMHumidityCeiling

	factor := 1.0
	if correctable {
		factor = 1 + cfg.PMCoeffA*math.Pow(rh.Value/100, cfg.PMCoeffB)
		diags.PMHumidityFactor = domain.NewSample(factor)
	}

	correct := func(s domain.Sample) domain.Sample {
		if !s.Valid {
			return s
		}
		return domain.NewSample(s.Value / factor)
	}
	fused.PM1 = correct(raw.PM1)
	fused.PM25 = correct(raw.PM25)
	fused.PM10 = correct(raw.PM10)

	switch {
	case !rh.Valid:
		// No reference humidity: values pass through with unknown quality.
	case rh.Value > cfg.PMHumidityCeiling:
		fused.PMQuality = domain.NewSample(_lowQualityScore)
	default:
		fused.PMQuality = domain.NewSample(pmQualityScore(rh.Value))
	}

	if fused.PM1.Valid && fused.PM25.Valid && fused.PM25.Value > 0 {
		fused.PMRatio = domain.NewSample(fused.PM1.Value / fused.PM25.Value)
	}
}

// pmQualityScore degrades smoothly above 60% RH and more steeply above 80%.
func pmQualityScore(rh float64) float64 {
	switch {
	case rh <= 60:
		return 100
	case rh <= 80:
		return 100 - (rh-60)*1.5 // 100 at 60% down to 70 at 80%
	default:
		return 70 - (rh-80)*(40.0/15.0) // 70 at 80% down to 30 at 95%
	}
}

func computeCO2Pressure(cfg Config, raw domain.RawReadings, diags *domain.FusionDiagnostics) domain.Sample {
	if !raw.CO2.Valid {
		return domain.Sample{}
	}
	if !cfg.EnableCO2Pressure || !raw.Pressure.Valid {
		return raw.CO2
	}

	pressure := raw.Pressure.Value
	if pressure < cfg.PressureMinHPa || pressure > cfg.PressureMaxHPa {
		return raw.CO2
	}

	factor := cfg.ReferencePressureHPa / pressure
	diags.CO2PressureFactor = domain.NewSample(factor)
	return domain.NewSample(raw.CO2.Value * factor)
}

func (e *Engine) computeCO2Baseline(cfg Config, co2 domain.Sample, now time.Time, diags *domain.FusionDiagnostics) domain.Sample {
	if e.baseline == nil || !cfg.EnableBaseline {
		return co2
	}

	if co2.Valid {
		e.baseline.Observe(co2.Value, now)
	}

	diags.BaselineConfidence = domain.NewSample(float64(e.baseline.Confidence()))
	if baseline, ok := e.baseline.Baseline(); ok {
		diags.BaselinePPM = domain.NewSample(baseline)
	}

	offset, ok := e.baseline.Correction()
	if !ok || !co2.Valid {
		return co2
	}
	diags.CO2BaselineOffset = domain.NewSample(offset)
	return domain.NewSample(co2.Value + offset)
}
