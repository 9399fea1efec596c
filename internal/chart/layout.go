package chart

import (
	"time"

	"github.com/montanaflynn/stats"
)

// gapFraction is the horizontal gap between adjacent panels, as a
// fraction of the total width, one gap per boundary.
const gapFraction = 0.007

// Panel is one segment's horizontal placement inside the total width.
type Panel struct {
	Left  float64
	Width float64
}

// Layout places every segment side by side and fixes one shared value
// axis range so panels are visually comparable.
type Layout struct {
	Panels []Panel
	YMin   float64
	YMax   float64
}

// ComputeLayout assigns each segment a width proportional to its trading
// session duration inside total width w starting at left offset l. A
// single segment occupies the full width with no gap; a single-point
// segment counts as one minute so it never collapses to zero width. The
// shared Y range spans all segment prices plus the current price, with a
// 0.5% margin on both sides.
func ComputeLayout(segments []Segment, currentPrice, left, width float64) Layout {
	layout := Layout{Panels: make([]Panel, len(segments))}
	layout.YMin, layout.YMax = valueRange(segments, currentPrice)

	n := len(segments)
	if n == 0 {
		return layout
	}
	if n == 1 {
		layout.Panels[0] = Panel{Left: left, Width: width}
		return layout
	}

	durations := make([]float64, n)
	total := 0.0
	for i, seg := range segments {
		durations[i] = sessionMinutes(seg)
		total += durations[i]
	}

	gap := gapFraction * width
	usable := width - gap*float64(n-1)
	x := left
	for i, d := range durations {
		w := d / total * usable
		layout.Panels[i] = Panel{Left: x, Width: w}
		x += w + gap
	}
	return layout
}

// sessionMinutes is the segment's covered duration in minutes, minimum 1.
func sessionMinutes(seg Segment) float64 {
	if len(seg.Points) < 2 {
		return 1
	}
	min, max := seg.Points[0].Time, seg.Points[0].Time
	for _, pt := range seg.Points[1:] {
		if pt.Time.Before(min) {
			min = pt.Time
		}
		if pt.Time.After(max) {
			max = pt.Time
		}
	}
	minutes := max.Sub(min).Minutes()
	if minutes < 1 {
		return 1
	}
	return minutes
}

func valueRange(segments []Segment, currentPrice float64) (float64, float64) {
	var prices []float64
	for _, seg := range segments {
		for _, pt := range seg.Points {
			prices = append(prices, pt.Price)
		}
	}
	if currentPrice > 0 {
		prices = append(prices, currentPrice)
	}
	if len(prices) == 0 {
		return 0, 0
	}
	min, _ := stats.Min(prices)
	max, _ := stats.Max(prices)
	return min * 0.995, max * 1.005
}

// TimeBounds returns the earliest and latest timestamps in the segment.
func (s Segment) TimeBounds() (time.Time, time.Time) {
	if len(s.Points) == 0 {
		return time.Time{}, time.Time{}
	}
	min, max := s.Points[0].Time, s.Points[0].Time
	for _, pt := range s.Points[1:] {
		if pt.Time.Before(min) {
			min = pt.Time
		}
		if pt.Time.After(max) {
			max = pt.Time
		}
	}
	return min, max
}
