package metrics

import (
	"math"

	"airsentry/internal/sensing/domain"
)

const (
	// Magnus formula constants over water.
	_magnusA = 17.62
	_magnusB = 243.12

	_heatIndexFloorC = 27
	_dewPointPenalty = 18
)

// dewPointC computes the dew point via the Magnus formula.
func dewPointC(tempC, rh float64) float64 {
	gamma := math.Log(rh/100) + _magnusA*tempC/(_magnusB+tempC)
	return _magnusB * gamma / (_magnusA - gamma)
}

// absoluteHumidity returns grams of water vapor per cubic meter of air.
func absoluteHumidity(tempC, rh float64) float64 {
	saturation := 6.112 * math.Exp(_magnusA*tempC/(_magnusB+tempC))
	return 216.7 * (rh / 100 * saturation) / (273.15 + tempC)
}

// heatIndexC applies the NWS Rothfusz regression; it is only defined for warm
// conditions, callers gate it above 27 °C.
func heatIndexC(tempC, rh float64) float64 {
	t := tempC*9/5 + 32
	hi := -42.379 +
		2.04901523*t +
		10.14333127*rh -
		0.22475541*t*rh -
		0.00683783*t*t -
		0.05481717*rh*rh +
		0.00122874*t*t*rh +
		0.00085282*t*rh*rh -
		0.00000199*t*t*rh*rh
	return (hi - 32) * 5 / 9
}

func (e *Engine) computeComfort(fused domain.FusedReadings, m *domain.Metrics) {
	if !fused.Temperature.Valid || !fused.Humidity.Valid {
		return
	}
	temp := fused.Temperature.Value
	rh := fused.Humidity.Value

	dew := dewPointC(temp, rh)
	m.DewPoint = domain.NewSample(dew)
	m.AbsoluteHumidity = domain.NewSample(absoluteHumidity(temp, rh))

	score := 100.0
	score -= 5 * math.Abs(temp-e.cfg.ComfortTargetTempC)
	score -= 0.5 * math.Abs(rh-e.cfg.ComfortTargetRH)
	if dew > _dewPointPenalty {
		score -= 10
	}
	if temp > _heatIndexFloorC {
		hi := heatIndexC(temp, rh)
		m.HeatIndex = domain.NewSample(hi)
		if hi > _heatIndexFloorC {
			score -= 3 * (hi - _heatIndexFloorC)
		}
	}

	m.ComfortScore = domain.NewSample(clamp(score, 0, 100))
}

// computeMoldRisk scores condensation danger: sustained high humidity plus a
// dew point close to the assumed coldest surface temperature.
func (e *Engine) computeMoldRisk(fused domain.FusedReadings, m *domain.Metrics) {
	if !fused.Temperature.Valid || !fused.Humidity.Valid {
		return
	}
	temp := fused.Temperature.Value
	rh := fused.Humidity.Value

	risk := 0.0
	if rh > 65 {
		risk += (rh - 65) * 2
	}

	surface := temp - e.cfg.MoldSurfaceOffsetC
	margin := surface - dewPointC(temp, rh)
	if margin < 5 {
		risk += (5 - margin) * 8
	}
	if margin < 0 {
		// Dew point above the cold surface: condensation is likely now.
		risk += 50
		m.CondensationLikely = true
	}

	m.MoldRisk = domain.NewSample(clamp(risk, 0, 100))
}
