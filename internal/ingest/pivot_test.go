package ingest

import (
	"testing"
	"time"

	"gridpulse/internal/models"
)

func TestParseMW(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1042", 1042},
		{"141.4", 141},
		{"141.5", 142},
		{"-17", -17},
		{"N/A", 0},
		{"", 0},
		{"null", 0},
	}
	for _, tt := range tests {
		if got := parseMW(tt.in); got != tt.want {
			t.Errorf("parseMW(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in     string
		wantOK bool
		want   time.Time
	}{
		{"2026-08-26T14", true, time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)},
		{"2026-08-26T14:00:00Z", true, time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)},
		{"2026-08-26", true, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)},
		{"14:00", false, time.Time{}},
		{"", false, time.Time{}},
	}
	for _, tt := range tests {
		got, ok := parsePeriod(tt.in)
		if ok != tt.wantOK {
			t.Errorf("parsePeriod(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("parsePeriod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPivotGeneration(t *testing.T) {
	rows := []eiaRow{
		{Period: "2026-08-26T01", Fueltype: "WAT", Value: "812"},
		{Period: "2026-08-26T01", Fueltype: "WND", Value: "141.4"},
		{Period: "2026-08-26T01", Fueltype: "NG", Value: "96"},
		{Period: "2026-08-26T01", Fueltype: "SUN", Value: "-3"}, // floored to 0
		{Period: "2026-08-26T01", Fueltype: "NUC", Value: "55"},
		{Period: "2026-08-26T01", Fueltype: "COL", Value: "12"},
		{Period: "2026-08-26T00", Fueltype: "WAT", Value: "790"},
		{Period: "2026-08-26T00", Fueltype: "OTH", Value: "N/A"},
		{Period: "garbage", Fueltype: "WAT", Value: "500"},
	}

	points := pivotGeneration(rows)
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if !points[0].Timestamp.Before(points[1].Timestamp) {
		t.Fatal("points not in ascending timestamp order")
	}

	first := points[0]
	if first.Hydro != 790 || first.Other != 0 || first.Total != 790 {
		t.Errorf("first point = %+v, want hydro 790, other 0, total 790", first)
	}

	second := points[1]
	want := models.GenerationPoint{
		Timestamp: time.Date(2026, 8, 26, 1, 0, 0, 0, time.UTC),
		Hydro:     812,
		Wind:      141,
		Gas:       96,
		Solar:     0,
		Other:     67, // NUC 55 + COL 12
		Total:     1116,
	}
	if second != want {
		t.Errorf("second point = %+v, want %+v", second, want)
	}
}

func TestPivotDemand(t *testing.T) {
	rows := []eiaRow{
		{Period: "2026-08-26T00", Type: "D", Value: "1042"},
		{Period: "2026-08-26T00", Type: "DF", Value: "1100.2"},
		{Period: "2026-08-26T00", Type: "TI", Value: "220"}, // not a demand row
		{Period: "2026-08-26T01", Type: "D", Value: "-17"},  // sign preserved
	}

	points := pivotDemand(rows)
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Demand != 1042 || points[0].Forecast != 1100 {
		t.Errorf("first point = %+v, want demand 1042, forecast 1100", points[0])
	}
	if points[1].Demand != -17 || points[1].Forecast != 0 {
		t.Errorf("second point = %+v, want demand -17, forecast 0", points[1])
	}
}

func TestPivotInterchangeTruncatesFlowsNotNet(t *testing.T) {
	regions := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF", "GGG", "HHH", "III", "JJJ"}
	values := []string{"100", "-90", "80", "-70", "60", "-50", "40", "-30", "20", "-10"}

	rows := make([]eiaRow, 0, len(regions))
	for i, region := range regions {
		rows = append(rows, eiaRow{Period: "2026-08-26T00", ToBA: region, Value: values[i]})
	}

	points := pivotInterchange(rows)
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	p := points[0]

	// Net export sums all ten neighbors even though only eight survive
	// truncation: 100-90+80-70+60-50+40-30+20-10 = 50.
	if p.NetExport != 50 {
		t.Errorf("netExport = %d, want 50", p.NetExport)
	}
	if len(p.Flows) != models.MaxFlows {
		t.Fatalf("got %d flows, want %d", len(p.Flows), models.MaxFlows)
	}
	for i := 1; i < len(p.Flows); i++ {
		prev, cur := p.Flows[i-1].Value, p.Flows[i].Value
		if magnitudeOf(cur) > magnitudeOf(prev) {
			t.Fatalf("flows not sorted by descending magnitude: %+v", p.Flows)
		}
	}
	for _, f := range p.Flows {
		if f.Region == "III" || f.Region == "JJJ" {
			t.Errorf("smallest-magnitude neighbor %s survived truncation", f.Region)
		}
	}
}

func magnitudeOf(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestPivotInterchangeDropsMalformedRows(t *testing.T) {
	rows := []eiaRow{
		{Period: "2026-08-26T00", ToBA: "BPAT", Value: "120"},
		{Period: "2026-08-26T00", ToBA: "", Value: "999"},
		{Period: "nonsense", ToBA: "CHPD", Value: "50"},
	}

	points := pivotInterchange(rows)
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	if points[0].NetExport != 120 {
		t.Errorf("netExport = %d, want 120 (malformed rows excluded)", points[0].NetExport)
	}
	if len(points[0].Flows) != 1 || points[0].Flows[0].Region != "BPAT" {
		t.Errorf("flows = %+v, want single BPAT flow", points[0].Flows)
	}
}

func TestPivotInterchangeAccumulatesDuplicateNeighbors(t *testing.T) {
	rows := []eiaRow{
		{Period: "2026-08-26T00", ToBA: "BPAT", Value: "120"},
		{Period: "2026-08-26T00", ToBA: "BPAT", Value: "-20"},
	}

	points := pivotInterchange(rows)
	if len(points) != 1 || len(points[0].Flows) != 1 {
		t.Fatalf("points = %+v, want one point with one flow", points)
	}
	if got := points[0].Flows[0].Value; got != 100 {
		t.Errorf("BPAT flow = %d, want 100", got)
	}
	if points[0].NetExport != 100 {
		t.Errorf("netExport = %d, want 100", points[0].NetExport)
	}
}
