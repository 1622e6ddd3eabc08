package domain

import "time"

type AQICategory string

const (
	AQIUnknown              AQICategory = "unknown"
	AQIGood                 AQICategory = "good"
	AQIModerate             AQICategory = "moderate"
	AQIUnhealthySensitive   AQICategory = "unhealthy_sensitive"
	AQIUnhealthy            AQICategory = "unhealthy"
	AQIVeryUnhealthy        AQICategory = "very_unhealthy"
	AQIHazardous            AQICategory = "hazardous"
)

type Pollutant string

const (
	PollutantNone Pollutant = ""
	PollutantPM25 Pollutant = "pm2_5"
	PollutantPM10 Pollutant = "pm10"
)

type TrendDirection string

const (
	TrendUnknown TrendDirection = "unknown"
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendStable  TrendDirection = "stable"
)

type GasCategory string

const (
	GasUnknown   GasCategory = "unknown"
	GasExcellent GasCategory = "excellent"
	GasGood      GasCategory = "good"
	GasModerate  GasCategory = "moderate"
	GasPoor      GasCategory = "poor"
	GasVeryPoor  GasCategory = "very_poor"
	GasSevere    GasCategory = "severe"
)

// Metrics are the derived indices computed from fused readings every metrics
// tick. Every value is optional: an invalid Sample (or Unknown category) means
// the inputs were unavailable, never that the value was zero.
type Metrics struct {
	AQI               Sample      `json:"aqi"`
	AQICategory       AQICategory `json:"aqi_category"`
	DominantPollutant Pollutant   `json:"dominant_pollutant"`

	DewPoint         Sample `json:"dew_point"`         // °C
	AbsoluteHumidity Sample `json:"absolute_humidity"` // g/m³
	HeatIndex        Sample `json:"heat_index"`        // °C, only above 27 °C
	ComfortScore     Sample `json:"comfort_score"`     // 0..100

	CO2Score     Sample `json:"co2_score"`     // 0..100
	OverallIndex Sample `json:"overall_index"` // 0..100 weighted blend

	MoldRisk           Sample `json:"mold_risk"` // 0..100
	CondensationLikely bool   `json:"condensation_likely"`

	PressureTrend     TrendDirection `json:"pressure_trend"`
	PressureTrendRate Sample         `json:"pressure_trend_rate"` // hPa per window

	CO2Rate Sample `json:"co2_rate"` // ppm/h

	PMSpike bool `json:"pm_spike"`

	VOCCategory GasCategory `json:"voc_category"`
	NOxCategory GasCategory `json:"nox_category"`

	UpdatedAt time.Time `json:"updated_at"`
}
