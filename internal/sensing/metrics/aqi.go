package metrics

import "airsentry/internal/sensing/domain"

// EPA piecewise-linear AQI breakpoints: concentration range to index range.
type aqiBreakpoint struct {
	cLo, cHi float64
	iLo, iHi float64
}

// 24h PM2.5 breakpoints (µg/m³), 2012 EPA revision.
var pm25Breakpoints = []aqiBreakpoint{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 500.4, 301, 500},
}

// 24h PM10 breakpoints (µg/m³).
var pm10Breakpoints = []aqiBreakpoint{
	{0, 54, 0, 50},
	{55, 154, 51, 100},
	{155, 254, 101, 150},
	{255, 354, 151, 200},
	{355, 424, 201, 300},
	{425, 604, 301, 500},
}

func subIndex(concentration float64, breakpoints []aqiBreakpoint) (float64, bool) {
	if concentration < 0 {
		return 0, false
	}
	for _, bp := range breakpoints {
		if concentration <= bp.cHi {
			cLo := bp.cLo
			if concentration < cLo {
				cLo = concentration // gap between ranges, snap down
			}
			return bp.iLo + (bp.iHi-bp.iLo)/(bp.cHi-cLo)*(concentration-cLo), true
		}
	}
	// Beyond the last breakpoint the index saturates.
	return breakpoints[len(breakpoints)-1].iHi, true
}

// computeAQI derives per-pollutant sub-indices, keeps the worst one as the
// overall index, and labels the winner as the dominant pollutant.
func (e *Engine) computeAQI(fused domain.FusedReadings, m *domain.Metrics) {
	best := -1.0
	pollutant := domain.PollutantNone

	if fused.PM25.Valid {
		if idx, ok := subIndex(fused.PM25.Value, pm25Breakpoints); ok {
			best = idx
			pollutant = domain.PollutantPM25
		}
	}
	if fused.PM10.Valid {
		if idx, ok := subIndex(fused.PM10.Value, pm10Breakpoints); ok && idx > best {
			best = idx
			pollutant = domain.PollutantPM10
		}
	}

	if best < 0 {
		return
	}
	m.AQI = domain.NewSample(best)
	m.AQICategory = aqiCategory(best)
	m.DominantPollutant = pollutant
}

func aqiCategory(index float64) domain.AQICategory {
	switch {
	case index <= 50:
		return domain.AQIGood
	case index <= 100:
		return domain.AQIModerate
	case index <= 150:
		return domain.AQIUnhealthySensitive
	case index <= 200:
		return domain.AQIUnhealthy
	case index <= 300:
		return domain.AQIVeryUnhealthy
	default:
		return domain.AQIHazardous
	}
}

// co2ScorePoints maps ppm to a 0..100 score, interpolated linearly between
// points.
var co2ScorePoints = []struct {
	ppm   float64
	score float64
}{
	{400, 100},
	{800, 80},
	{1000, 60},
	{1400, 40},
	{2000, 20},
	{3000, 0},
}

func co2Score(ppm float64) float64 {
	if ppm <= co2ScorePoints[0].ppm {
		return co2ScorePoints[0].score
	}
	last := co2ScorePoints[len(co2ScorePoints)-1]
	if ppm >= last.ppm {
		return last.score
	}
	for i := 1; i < len(co2ScorePoints); i++ {
		hi := co2ScorePoints[i]
		if ppm > hi.ppm {
			continue
		}
		lo := co2ScorePoints[i-1]
		t := (ppm - lo.ppm) / (hi.ppm - lo.ppm)
		return lo.score + t*(hi.score-lo.score)
	}
	return last.score
}

func vocCategory(index float64) domain.GasCategory {
	switch {
	case index <= 80:
		return domain.GasExcellent
	case index <= 120:
		return domain.GasGood
	case index <= 200:
		return domain.GasModerate
	case index <= 300:
		return domain.GasPoor
	case index <= 400:
		return domain.GasVeryPoor
	default:
		return domain.GasSevere
	}
}

func noxCategory(index float64) domain.GasCategory {
	switch {
	case index <= 20:
		return domain.GasExcellent
	case index <= 50:
		return domain.GasGood
	case index <= 100:
		return domain.GasModerate
	case index <= 200:
		return domain.GasPoor
	case index <= 300:
		return domain.GasVeryPoor
	default:
		return domain.GasSevere
	}
}
