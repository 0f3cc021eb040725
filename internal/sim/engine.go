// Package sim generates deterministic synthetic grid telemetry for demo mode.
// Everything is pure: the same instant always yields the same snapshot, and
// two instants on the same calendar day replay the same underlying day curve.
package sim

import (
	"math"
	"time"

	"gridpulse/internal/models"
)

const (
	seriesLen  = 288
	slotPeriod = 5 * time.Minute
)

// Per-metric seed multipliers. Distinct primes keep the four generators on
// unrelated streams even though they share the calendar-day base seed.
const (
	carbonSeed      = 7919
	generationSeed  = 104729
	demandSeed      = 1299709
	interchangeSeed = 15485863
)

// cycle is one Gaussian-shaped daily bump (or dip, for negative amp)
// centered on peakHour.
type cycle struct {
	peakHour float64
	spread   float64
	amp      float64
}

// at evaluates the cycle at a fractional hour, measuring distance to the
// peak around the 24-hour circle so curves wrap cleanly past midnight.
func (c cycle) at(hour float64) float64 {
	d := math.Abs(hour - c.peakHour)
	if d > 12 {
		d = 24 - d
	}
	return c.amp * math.Exp(-(d*d)/(2*c.spread*c.spread))
}

var (
	carbonCycles = []cycle{
		{peakHour: 16, spread: 3.5, amp: 24}, // afternoon gas ramp
		{peakHour: 8, spread: 1.8, amp: 9},
		{peakHour: 3, spread: 3, amp: -18}, // overnight hydro surplus
	}

	genAfternoon   = cycle{peakHour: 15, spread: 4, amp: 80}
	genGasEvening  = cycle{peakHour: 19, spread: 2.5, amp: 70}
	genSolarMidday = cycle{peakHour: 13, spread: 2, amp: 160}

	demandCycles = []cycle{
		{peakHour: 3.5, spread: 3, amp: -210}, // overnight trough
		{peakHour: 13, spread: 4.5, amp: 120},
		{peakHour: 18.5, spread: 2.2, amp: 160}, // evening peak
	}

	interNight = cycle{peakHour: 1.5, spread: 4, amp: 110}
)

const (
	carbonBase = 52.0
	demandBase = 1150.0
	interBase  = 140.0

	// The forecast series follows the demand cycles with damped amplitude
	// and heavier smoothing, like a model run next to the actuals.
	forecastDamp   = 0.94
	demandWindow   = 2
	forecastWindow = 4
	carbonWindow   = 2
)

// Snapshot produces a 24-hour window of synthetic telemetry ending at now:
// 288 points per metric at 5-minute spacing, oldest first. Generators are
// seeded from the calendar day of now, so repeated calls within a day replay
// the same series.
func Snapshot(now time.Time) *models.GridSnapshot {
	times := slotTimes(now)
	return models.NewSnapshot(
		carbonSeries(times, daySeed(now, carbonSeed)),
		generationSeries(times, daySeed(now, generationSeed)),
		demandSeries(times, daySeed(now, demandSeed)),
		interchangeSeries(times, daySeed(now, interchangeSeed)),
	)
}

func slotTimes(now time.Time) []time.Time {
	end := now.UTC()
	times := make([]time.Time, seriesLen)
	for i := range times {
		times[i] = end.Add(-time.Duration(seriesLen-1-i) * slotPeriod)
	}
	return times
}

func daySeed(now time.Time, metric uint32) *lcg {
	utc := now.UTC()
	return newLCG((uint32(utc.Day())*100 + uint32(utc.Month())) * metric)
}

func hourOf(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// smooth applies a centered moving average of half-width window. Points near
// the edges average over whatever neighbors exist instead of zero-padding.
func smooth(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		lo := max(0, i-window)
		hi := min(len(values)-1, i+window)
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

func carbonSeries(times []time.Time, rng *lcg) []models.CarbonPoint {
	raw := make([]float64, len(times))
	for i, t := range times {
		h := hourOf(t)
		v := carbonBase
		for _, c := range carbonCycles {
			v += c.at(h)
		}
		raw[i] = clampIndex(v + rng.noise(4))
	}
	smoothed := smooth(raw, carbonWindow)

	points := make([]models.CarbonPoint, len(times))
	for i, t := range times {
		points[i] = models.CarbonPoint{Timestamp: t, Value: int(math.Round(smoothed[i]))}
	}
	return points
}

func clampIndex(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func generationSeries(times []time.Time, rng *lcg) []models.GenerationPoint {
	points := make([]models.GenerationPoint, len(times))
	for i, t := range times {
		h := hourOf(t)
		afternoon := genAfternoon.at(h)

		p := models.GenerationPoint{
			Timestamp: t,
			Hydro:     megawatts(620 + afternoon + rng.noise(25)),
			Wind:      megawatts(180 - 0.5*afternoon + rng.noise(45)),
			Gas:       megawatts(90 + genGasEvening.at(h) + rng.noise(20)),
			Solar:     megawatts(genSolarMidday.at(h) + rng.noise(12)),
			Other:     megawatts(40 + rng.noise(6)),
		}
		p.Total = p.Hydro + p.Wind + p.Gas + p.Solar + p.Other
		points[i] = p
	}
	return points
}

// megawatts rounds a simulated generation component, flooring at zero so
// noise can never drive a fuel source negative.
func megawatts(v float64) int {
	if v < 0 {
		return 0
	}
	return int(math.Round(v))
}

func demandSeries(times []time.Time, rng *lcg) []models.DemandPoint {
	rawDemand := make([]float64, len(times))
	rawForecast := make([]float64, len(times))
	for i, t := range times {
		h := hourOf(t)
		shape := 0.0
		for _, c := range demandCycles {
			shape += c.at(h)
		}
		rawDemand[i] = demandBase + shape + rng.noise(35)
		rawForecast[i] = demandBase + shape*forecastDamp + rng.noise(20)
	}
	demand := smooth(rawDemand, demandWindow)
	forecast := smooth(rawForecast, forecastWindow)

	points := make([]models.DemandPoint, len(times))
	for i, t := range times {
		points[i] = models.DemandPoint{
			Timestamp: t,
			Demand:    int(math.Round(demand[i])),
			Forecast:  int(math.Round(forecast[i])),
		}
	}
	return points
}

func interchangeSeries(times []time.Time, rng *lcg) []models.InterchangePoint {
	points := make([]models.InterchangePoint, len(times))
	for i, t := range times {
		target := interBase + interNight.at(hourOf(t)) + rng.noise(30)

		// Split the target across the interties with per-slot jitter around
		// an equal share. NetExport is the sum of the rounded flows, not the
		// target, so the two can never disagree.
		weights := make([]float64, len(models.NeighborRegions))
		var total float64
		for j := range weights {
			weights[j] = 1 + rng.noise(0.35)
			total += weights[j]
		}

		flows := make([]models.InterchangeFlow, len(models.NeighborRegions))
		net := 0
		for j, region := range models.NeighborRegions {
			mw := int(math.Round(target * weights[j] / total))
			flows[j] = models.InterchangeFlow{Region: region, Value: mw}
			net += mw
		}
		models.SortFlows(flows)

		points[i] = models.InterchangePoint{Timestamp: t, NetExport: net, Flows: flows}
	}
	return points
}
