package ingest

import (
	"math"
	"sort"
	"strconv"
	"time"

	"gridpulse/internal/models"
)

// EIA row-type codes on the region-data route.
const (
	rowTypeDemand   = "D"
	rowTypeForecast = "DF"
)

// parsePeriod handles the period shapes EIA emits: hourly UTC
// ("2026-08-26T14"), full RFC 3339 on some routes, and daily. Rows with an
// unparseable period are dropped.
func parsePeriod(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02T15", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseMW converts EIA's string-typed megawatt values. Missing or
// unparseable cells ("", "N/A", "null") count as zero; one bad cell must
// not fail the refresh.
func parseMW(s string) int {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(math.Round(v))
}

// pivotGeneration groups fuel-type rows by period and routes each fuel code
// into its mix column. Fuels beyond the named four (coal, nuclear,
// petroleum, batteries, ...) accumulate into Other. Components floor at
// zero; Total is recomputed from the components.
func pivotGeneration(rows []eiaRow) []models.GenerationPoint {
	groups := make(map[time.Time]*models.GenerationPoint)
	for _, row := range rows {
		ts, ok := parsePeriod(row.Period)
		if !ok {
			continue
		}
		mw := parseMW(row.Value)
		if mw < 0 {
			mw = 0
		}

		p := groups[ts]
		if p == nil {
			p = &models.GenerationPoint{Timestamp: ts}
			groups[ts] = p
		}
		switch row.Fueltype {
		case "WAT":
			p.Hydro += mw
		case "WND":
			p.Wind += mw
		case "NG":
			p.Gas += mw
		case "SUN":
			p.Solar += mw
		default:
			p.Other += mw
		}
	}

	points := make([]models.GenerationPoint, 0, len(groups))
	for _, p := range groups {
		p.Total = p.Hydro + p.Wind + p.Gas + p.Solar + p.Other
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}

// pivotDemand pairs actual (D) and forecast (DF) rows per period. Other row
// types on the route (net generation, total interchange) are not demand and
// are dropped. Signs are preserved; unclean upstream rows can be negative.
func pivotDemand(rows []eiaRow) []models.DemandPoint {
	groups := make(map[time.Time]*models.DemandPoint)
	for _, row := range rows {
		ts, ok := parsePeriod(row.Period)
		if !ok {
			continue
		}
		p := groups[ts]
		if p == nil {
			p = &models.DemandPoint{Timestamp: ts}
			groups[ts] = p
		}
		switch row.Type {
		case rowTypeDemand:
			p.Demand = parseMW(row.Value)
		case rowTypeForecast:
			p.Forecast = parseMW(row.Value)
		}
	}

	points := make([]models.DemandPoint, 0, len(groups))
	for _, p := range groups {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}

// pivotInterchange accumulates per-neighbor flow sums by period. NetExport
// sums every raw row for the period; the flow list is then sorted by
// magnitude and truncated for display, so truncation never skews the net.
// Rows without a neighbor id are malformed and dropped.
func pivotInterchange(rows []eiaRow) []models.InterchangePoint {
	type group struct {
		net   int
		flows map[string]int
	}
	groups := make(map[time.Time]*group)
	for _, row := range rows {
		if row.ToBA == "" {
			continue
		}
		ts, ok := parsePeriod(row.Period)
		if !ok {
			continue
		}
		mw := parseMW(row.Value)

		g := groups[ts]
		if g == nil {
			g = &group{flows: make(map[string]int)}
			groups[ts] = g
		}
		g.net += mw
		g.flows[row.ToBA] += mw
	}

	points := make([]models.InterchangePoint, 0, len(groups))
	for ts, g := range groups {
		flows := make([]models.InterchangeFlow, 0, len(g.flows))
		for region, mw := range g.flows {
			flows = append(flows, models.InterchangeFlow{Region: region, Value: mw})
		}
		models.SortFlows(flows)
		if len(flows) > models.MaxFlows {
			flows = flows[:models.MaxFlows]
		}
		points = append(points, models.InterchangePoint{Timestamp: ts, NetExport: g.net, Flows: flows})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}
