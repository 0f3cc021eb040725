package models

import (
	"sort"
	"time"
)

// Region is the balancing authority the dashboard reports on.
const Region = "SCL"

// NeighborRegions are the balancing authorities on the region's interties.
// The simulator spreads net export across them and the live interchange
// query facets on them.
var NeighborRegions = []string{"BPAT", "CHPD", "DOPD", "GCPD", "TPWR"}

// MaxFlows caps InterchangePoint.Flows at the largest-magnitude interties.
// NetExport always reflects the full neighbor set, truncated or not.
const MaxFlows = 8

// CarbonPoint is one sample of the marginal emissions index, 0 (cleanest)
// to 100 (dirtiest).
type CarbonPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     int       `json:"value"`
}

// GenerationPoint is the fuel mix in MW for one interval. Total is always
// the sum of the five components, never an upstream-reported figure.
type GenerationPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Hydro     int       `json:"hydro"`
	Wind      int       `json:"wind"`
	Gas       int       `json:"gas"`
	Solar     int       `json:"solar"`
	Other     int       `json:"other"`
	Total     int       `json:"total"`
}

type DemandPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Demand    int       `json:"demand"`
	Forecast  int       `json:"forecast"`
}

// InterchangeFlow is the net MW exchanged with one neighboring balancing
// authority. Positive is export, negative is import.
type InterchangeFlow struct {
	Region string `json:"region"`
	Value  int    `json:"value"`
}

type InterchangePoint struct {
	Timestamp time.Time         `json:"timestamp"`
	NetExport int               `json:"netExport"`
	Flows     []InterchangeFlow `json:"flows"`
}

// SortFlows orders flows by descending magnitude, breaking ties by region
// name so the ordering is total.
func SortFlows(flows []InterchangeFlow) {
	sort.Slice(flows, func(i, j int) bool {
		mi, mj := absMW(flows[i].Value), absMW(flows[j].Value)
		if mi != mj {
			return mi > mj
		}
		return flows[i].Region < flows[j].Region
	})
}

func absMW(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// LatestReadings holds the most recent point of each series. Fields are
// zero values, not nil, when a series is empty.
type LatestReadings struct {
	Carbon      CarbonPoint      `json:"carbon"`
	Generation  GenerationPoint  `json:"generation"`
	Demand      DemandPoint      `json:"demand"`
	Interchange InterchangePoint `json:"interchange"`
}

type TimeSeries struct {
	Carbon      []CarbonPoint      `json:"carbon"`
	Generation  []GenerationPoint  `json:"generation"`
	Demand      []DemandPoint      `json:"demand"`
	Interchange []InterchangePoint `json:"interchange"`
}

// GridSnapshot is one complete, self-consistent view of the grid. Snapshots
// are built whole and never mutated after publication; a refresh replaces
// the entire value or nothing.
type GridSnapshot struct {
	Latest     LatestReadings `json:"latest"`
	TimeSeries TimeSeries     `json:"timeSeries"`
}

// NewSnapshot assembles a snapshot from normalized series, each expected in
// ascending timestamp order. Nil series become empty slices so the JSON
// encoding always carries arrays.
func NewSnapshot(carbon []CarbonPoint, generation []GenerationPoint, demand []DemandPoint, interchange []InterchangePoint) *GridSnapshot {
	if carbon == nil {
		carbon = []CarbonPoint{}
	}
	if generation == nil {
		generation = []GenerationPoint{}
	}
	if demand == nil {
		demand = []DemandPoint{}
	}
	if interchange == nil {
		interchange = []InterchangePoint{}
	}

	snap := &GridSnapshot{
		TimeSeries: TimeSeries{
			Carbon:      carbon,
			Generation:  generation,
			Demand:      demand,
			Interchange: interchange,
		},
	}

	if n := len(carbon); n > 0 {
		snap.Latest.Carbon = carbon[n-1]
	}
	if n := len(generation); n > 0 {
		snap.Latest.Generation = generation[n-1]
	}
	if n := len(demand); n > 0 {
		snap.Latest.Demand = demand[n-1]
	}
	if n := len(interchange); n > 0 {
		snap.Latest.Interchange = interchange[n-1]
	} else {
		snap.Latest.Interchange.Flows = []InterchangeFlow{}
	}
	return snap
}
