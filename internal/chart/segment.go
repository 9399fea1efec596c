package chart

import (
	"fmt"
	"sort"
	"time"
)

// Point is one plotted observation.
type Point struct {
	Time  time.Time
	Price float64
}

// Segment is the filtered point set for one trading day in a multi-panel
// render. First and Last are set once during planning; only the Last
// segment carries the live price point.
type Segment struct {
	Date   time.Time
	Points []Point
	First  bool
	Last   bool
}

// PlanKind is the planner's terminal state for a render request.
type PlanKind int

const (
	// NoData means the lookback window holds no observations and the
	// renderer must show a placeholder.
	NoData PlanKind = iota
	// SinglePanel renders the whole restricted window as one panel.
	SinglePanel
	// MultiPanel renders one panel per trading day with gaps for
	// non-market hours.
	MultiPanel
)

// MarketHours is the daily window, in minutes from midnight local time,
// inside which observations are shown on segmented and intraday panels.
type MarketHours struct {
	Open  int
	Close int
}

// ParseMarketHours builds a MarketHours from "HH:MM" bounds.
func ParseMarketHours(open, close string) (MarketHours, error) {
	o, err := clockMinutes(open)
	if err != nil {
		return MarketHours{}, fmt.Errorf("market open time: %w", err)
	}
	c, err := clockMinutes(close)
	if err != nil {
		return MarketHours{}, fmt.Errorf("market close time: %w", err)
	}
	if c <= o {
		return MarketHours{}, fmt.Errorf("market close %s not after open %s", close, open)
	}
	return MarketHours{Open: o, Close: c}, nil
}

func clockMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether t falls inside the market window, bounds
// inclusive.
func (h MarketHours) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return m >= h.Open && m <= h.Close
}

// Plan is the planner's decision for one render request.
type Plan struct {
	Kind     PlanKind
	Segments []Segment
}

// Planner decides panel structure for a render request. It is a pure
// decision component: no state survives a call.
type Planner struct {
	Hours MarketHours
	// Staleness is how old the newest stored observation may be before
	// the live price is appended to the last segment.
	Staleness time.Duration
	Now       func() time.Time
}

// NewPlanner returns a planner with the default 1h staleness threshold.
func NewPlanner(hours MarketHours) *Planner {
	return &Planner{Hours: hours, Staleness: time.Hour, Now: time.Now}
}

// Plan restricts points to the trailing lookback window and decides how
// to panel them. currentPrice is the most recent live fetch; pass 0 when
// unknown to suppress the live point.
//
// Decision: empty window is NoData; up to two distinct dates (or a
// lookback of at most one day) is a SinglePanel; otherwise every date's
// points are filtered to market hours and the surviving days become the
// MultiPanel segments. When fewer than two days survive the filter the
// plan falls back to SinglePanel over the full restricted set — the
// fallback is a normal outcome, not an error path.
func (p *Planner) Plan(points []Point, lookbackDays int, currentPrice float64) Plan {
	now := p.Now()
	cutoff := now.AddDate(0, 0, -lookbackDays)

	var window []Point
	for _, pt := range points {
		if !pt.Time.Before(cutoff) {
			window = append(window, pt)
		}
	}
	if len(window) == 0 {
		return Plan{Kind: NoData}
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].Time.Before(window[j].Time) })

	dates := distinctDates(window)
	if len(dates) <= 2 || lookbackDays <= 1 {
		return p.singlePanel(window, lookbackDays <= 1, currentPrice, now)
	}

	var segments []Segment
	for _, date := range dates {
		var pts []Point
		for _, pt := range window {
			if sameDate(pt.Time, date) && p.Hours.Contains(pt.Time) {
				pts = append(pts, pt)
			}
		}
		if len(pts) == 0 {
			continue
		}
		segments = append(segments, Segment{Date: date, Points: pts})
	}
	if len(segments) < 2 {
		return p.singlePanel(window, false, currentPrice, now)
	}

	segments[0].First = true
	segments[len(segments)-1].Last = true
	p.appendLivePoint(&segments[len(segments)-1], currentPrice, now)
	return Plan{Kind: MultiPanel, Segments: segments}
}

// singlePanel wraps the window in one first-and-last segment. In intraday
// mode the market-hours filter still applies so the X axis never shows
// non-trading hours; when the filter would empty the panel the unclipped
// window is kept as the degraded best effort.
func (p *Planner) singlePanel(window []Point, intraday bool, currentPrice float64, now time.Time) Plan {
	pts := window
	if intraday {
		var clipped []Point
		for _, pt := range window {
			if p.Hours.Contains(pt.Time) {
				clipped = append(clipped, pt)
			}
		}
		if len(clipped) > 0 {
			pts = clipped
		}
	}
	seg := Segment{
		Date:   dateOf(pts[len(pts)-1].Time),
		Points: append([]Point(nil), pts...),
		First:  true,
		Last:   true,
	}
	p.appendLivePoint(&seg, currentPrice, now)
	return Plan{Kind: SinglePanel, Segments: []Segment{seg}}
}

func (p *Planner) appendLivePoint(seg *Segment, currentPrice float64, now time.Time) {
	if currentPrice <= 0 || len(seg.Points) == 0 {
		return
	}
	last := seg.Points[len(seg.Points)-1].Time
	if now.Sub(last) > p.Staleness {
		seg.Points = append(seg.Points, Point{Time: now, Price: currentPrice})
	}
}

func distinctDates(points []Point) []time.Time {
	var dates []time.Time
	for _, pt := range points {
		d := dateOf(pt.Time)
		if len(dates) == 0 || !dates[len(dates)-1].Equal(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDate(t, date time.Time) bool {
	return dateOf(t).Equal(date)
}
