package chart

import (
	"testing"
	"time"
)

func testHours(t *testing.T) MarketHours {
	t.Helper()
	h, err := ParseMarketHours("08:55", "18:05")
	if err != nil {
		t.Fatalf("parse market hours: %v", err)
	}
	return h
}

func testPlanner(t *testing.T, now time.Time) *Planner {
	p := NewPlanner(testHours(t))
	p.Now = func() time.Time { return now }
	return p
}

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
}

func TestParseMarketHours(t *testing.T) {
	if _, err := ParseMarketHours("18:05", "08:55"); err == nil {
		t.Error("close before open must fail")
	}
	if _, err := ParseMarketHours("8h55", "18:05"); err == nil {
		t.Error("malformed open time must fail")
	}
}

func TestMarketHoursContainsBoundsInclusive(t *testing.T) {
	h := testHours(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	cases := []struct {
		at   time.Time
		want bool
	}{
		{at(day, 8, 54), false},
		{at(day, 8, 55), true},
		{at(day, 12, 0), true},
		{at(day, 18, 5), true},
		{at(day, 18, 6), false},
	}
	for _, c := range cases {
		if got := h.Contains(c.at); got != c.want {
			t.Errorf("Contains(%v) = %v, want %v", c.at.Format("15:04"), got, c.want)
		}
	}
}

func TestPlanEmptyWindowIsNoData(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	p := testPlanner(t, now)

	if plan := p.Plan(nil, 7, 10); plan.Kind != NoData {
		t.Errorf("no points: kind = %v, want NoData", plan.Kind)
	}

	old := []Point{{Time: now.AddDate(0, 0, -30), Price: 10}}
	if plan := p.Plan(old, 7, 10); plan.Kind != NoData {
		t.Errorf("all points outside window: kind = %v, want NoData", plan.Kind)
	}
}

func TestPlanTwoDatesIsSinglePanel(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	p := testPlanner(t, now)

	points := []Point{
		{Time: at(now.AddDate(0, 0, -1), 10, 0), Price: 10},
		{Time: at(now, 10, 0), Price: 11},
	}
	plan := p.Plan(points, 5, 11)
	if plan.Kind != SinglePanel {
		t.Fatalf("kind = %v, want SinglePanel for 2 distinct dates", plan.Kind)
	}
	if len(plan.Segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(plan.Segments))
	}
	seg := plan.Segments[0]
	if !seg.First || !seg.Last {
		t.Error("single panel segment must be both first and last")
	}
}

func TestPlanThreeDatesIsMultiPanel(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.Local)
	p := testPlanner(t, now)

	var points []Point
	for d := 2; d >= 0; d-- {
		day := now.AddDate(0, 0, -d)
		points = append(points,
			Point{Time: at(day, 9, 0), Price: 10},
			Point{Time: at(day, 11, 0), Price: 11},
		)
	}
	plan := p.Plan(points, 5, 11)
	if plan.Kind != MultiPanel {
		t.Fatalf("kind = %v, want MultiPanel for 3 distinct dates", plan.Kind)
	}
	if len(plan.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(plan.Segments))
	}
	if !plan.Segments[0].First || plan.Segments[0].Last {
		t.Error("first segment flags wrong")
	}
	if !plan.Segments[2].Last || plan.Segments[2].First {
		t.Error("last segment flags wrong")
	}
	if plan.Segments[1].First || plan.Segments[1].Last {
		t.Error("middle segment must carry no boundary flags")
	}
}

func TestPlanClipsOutOfHoursPoints(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.Local)
	p := testPlanner(t, now)

	var points []Point
	for d := 2; d >= 0; d-- {
		day := now.AddDate(0, 0, -d)
		points = append(points,
			Point{Time: at(day, 7, 30), Price: 9}, // pre-open, must not survive
			Point{Time: at(day, 10, 0), Price: 10},
			Point{Time: at(day, 15, 0), Price: 11},
		)
	}
	plan := p.Plan(points, 5, 0)
	if plan.Kind != MultiPanel {
		t.Fatalf("kind = %v, want MultiPanel", plan.Kind)
	}
	for _, seg := range plan.Segments {
		for _, pt := range seg.Points {
			if !p.Hours.Contains(pt.Time) {
				t.Errorf("out-of-hours point %v survived clipping", pt.Time)
			}
		}
	}
}

func TestPlanFallsBackWhenClippingLeavesOneDay(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.Local)
	p := testPlanner(t, now)

	// Three dates, but only the last has in-hours points.
	points := []Point{
		{Time: at(now.AddDate(0, 0, -2), 6, 0), Price: 9},
		{Time: at(now.AddDate(0, 0, -1), 22, 0), Price: 10},
		{Time: at(now, 10, 0), Price: 11},
		{Time: at(now, 11, 0), Price: 12},
	}
	plan := p.Plan(points, 5, 0)
	if plan.Kind != SinglePanel {
		t.Fatalf("kind = %v, want SinglePanel fallback", plan.Kind)
	}
	if got := len(plan.Segments[0].Points); got != 4 {
		t.Errorf("fallback keeps the full restricted window: %d points, want 4", got)
	}
}

func TestPlanIntradayClipsToMarketHours(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	p := testPlanner(t, now)

	points := []Point{
		{Time: at(now, 7, 0), Price: 9},
		{Time: at(now, 10, 0), Price: 10},
	}
	plan := p.Plan(points, 1, 0)
	if plan.Kind != SinglePanel {
		t.Fatalf("kind = %v, want SinglePanel for intraday lookback", plan.Kind)
	}
	if got := len(plan.Segments[0].Points); got != 1 {
		t.Errorf("intraday panel has %d points, want only the in-hours one", got)
	}

	// All points out of hours: keep the unclipped window rather than render nothing.
	outOnly := []Point{{Time: at(now, 7, 0), Price: 9}}
	plan = p.Plan(outOnly, 1, 0)
	if plan.Kind != SinglePanel || len(plan.Segments[0].Points) != 1 {
		t.Error("fully clipped intraday panel must keep the unclipped points")
	}
}

func TestPlanAppendsLivePointWhenStale(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	p := testPlanner(t, now)

	points := []Point{{Time: now.Add(-2 * time.Hour), Price: 10}}
	plan := p.Plan(points, 1, 10.5)
	pts := plan.Segments[0].Points
	if len(pts) != 2 {
		t.Fatalf("expected appended live point, got %d points", len(pts))
	}
	last := pts[len(pts)-1]
	if !last.Time.Equal(now) || last.Price != 10.5 {
		t.Errorf("live point = %+v, want now/10.5", last)
	}

	// Fresh data: no live point.
	fresh := []Point{{Time: now.Add(-10 * time.Minute), Price: 10}}
	if plan := p.Plan(fresh, 1, 10.5); len(plan.Segments[0].Points) != 1 {
		t.Error("live point appended despite fresh last observation")
	}

	// Unknown current price: no live point.
	if plan := p.Plan(points, 1, 0); len(plan.Segments[0].Points) != 1 {
		t.Error("live point appended with zero current price")
	}
}
