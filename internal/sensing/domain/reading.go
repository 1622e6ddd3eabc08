package domain

import "time"

// RawReadings holds the most recent uncorrected values as written by the
// sensor drivers. Fields are grouped by owning sensor so the store can
// invalidate them together.
type RawReadings struct {
	MCUTemperature Sample `json:"mcu_temperature"` // °C

	Temperature Sample `json:"temperature"` // °C
	Humidity    Sample `json:"humidity"`    // %RH

	Pressure Sample `json:"pressure"` // hPa

	VOCIndex Sample `json:"voc_index"` // 1..500
	NOxIndex Sample `json:"nox_index"` // 1..500

	PM1  Sample `json:"pm1"`   // µg/m³
	PM25 Sample `json:"pm2_5"` // µg/m³
	PM10 Sample `json:"pm10"`  // µg/m³

	CO2 Sample `json:"co2"` // ppm
}

// FusedReadings are the cross-compensated values produced by the fusion
// engine once per second.
type FusedReadings struct {
	Temperature Sample `json:"temperature"` // °C, self-heat corrected
	Humidity    Sample `json:"humidity"`    // %RH
	PressurePa  Sample `json:"pressure_pa"` // Pa

	PM1       Sample `json:"pm1"`
	PM25      Sample `json:"pm2_5"`
	PM10      Sample `json:"pm10"`
	PMQuality Sample `json:"pm_quality"`     // 0..100 correction confidence
	PMRatio   Sample `json:"pm1_pm25_ratio"` // sensor-health diagnostic

	CO2 Sample `json:"co2"` // ppm, pressure and baseline compensated

	UpdatedAt time.Time `json:"updated_at"`
}

// FusionDiagnostics records what each fusion step actually did, so the
// correction pipeline is auditable.
type FusionDiagnostics struct {
	TemperatureOffset  Sample `json:"temperature_offset"`   // °C subtracted
	PMHumidityFactor   Sample `json:"pm_humidity_factor"`   // divisor applied
	CO2PressureFactor  Sample `json:"co2_pressure_factor"`  // multiplier applied
	CO2BaselineOffset  Sample `json:"co2_baseline_offset"`  // ppm added
	BaselineConfidence Sample `json:"baseline_confidence"`  // 0..100
	BaselinePPM        Sample `json:"baseline_ppm"`         // learned baseline
}
