package store

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// ErrInvalidObservation is returned by Append for a non-finite or
// non-positive price. Callers are expected to validate at the ingestion
// boundary; the store enforces it anyway.
var ErrInvalidObservation = errors.New("observation price must be finite and positive")

// Observation is a single (timestamp, price) point for one instrument.
type Observation struct {
	Time  time.Time
	Price float64
}

// Store is the authoritative price history in wide format: conceptually
// one row per observation timestamp and one sparse column per instrument.
// Internally each instrument owns an append-only ordered sequence of
// observations; adding an instrument inserts a new empty sequence and
// never touches existing ones.
//
// All mutation (Append, Prune, load) is serialized behind one mutex.
// Read paths that leave the store (projection, rendering) go through
// Snapshot.
type Store struct {
	mu      sync.Mutex
	series  map[string][]Observation
	columns []string // instruments in first-seen order

	// Now supplies append timestamps and window cutoffs. Tests override it.
	Now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		series: make(map[string][]Observation),
		Now:    time.Now,
	}
}

// Append records price for ticker at the current instant and returns the
// assigned timestamp. A never-seen ticker gets a new column with all
// prior rows absent for it.
func (s *Store) Append(ticker string, price float64) (time.Time, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return time.Time{}, ErrInvalidObservation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	if _, ok := s.series[ticker]; !ok {
		s.columns = append(s.columns, ticker)
	}
	s.series[ticker] = append(s.series[ticker], Observation{Time: now, Price: price})
	return now, nil
}

// LastPrice returns the most recent observation for ticker, scanning from
// the newest row backward. The second return is false for an unknown
// instrument or one with no observations.
func (s *Store) LastPrice(ticker string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obs := s.series[ticker]
	if len(obs) == 0 {
		return 0, false
	}
	return obs[len(obs)-1].Price, true
}

// RollingMax returns, for each requested window size, the maximum price
// observed for ticker within the trailing window. A window with no
// observations falls back to the instrument's entire history; that is the
// documented policy for sparsely observed instruments, not an error. An
// instrument with no observations at all yields no entry for any window.
// All windows share one scan base and the table is never mutated.
func (s *Store) RollingMax(ticker string, windowDays ...int) map[int]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[int]float64, len(windowDays))
	obs := s.series[ticker]
	if len(obs) == 0 {
		return result
	}

	all := make([]float64, len(obs))
	for i, o := range obs {
		all[i] = o.Price
	}

	now := s.Now()
	for _, days := range windowDays {
		cutoff := now.AddDate(0, 0, -days)
		var vals []float64
		for _, o := range obs {
			if o.Time.After(cutoff) {
				vals = append(vals, o.Price)
			}
		}
		if len(vals) == 0 {
			vals = all
		}
		max, err := stats.Max(vals)
		if err != nil {
			continue
		}
		result[days] = max
	}
	return result
}

// ClosingPrice returns the last observation for ticker on the calendar
// day of date, or false if none falls on that day.
func (s *Store) ClosingPrice(ticker string, date time.Time) (float64, bool) {
	return s.priceOnDate(ticker, date, true)
}

// OpeningPrice returns the first observation for ticker on the calendar
// day of date, or false if none falls on that day.
func (s *Store) OpeningPrice(ticker string, date time.Time) (float64, bool) {
	return s.priceOnDate(ticker, date, false)
}

func (s *Store) priceOnDate(ticker string, date time.Time, last bool) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	y, m, d := date.Date()
	price, found := 0.0, false
	for _, o := range s.series[ticker] {
		oy, om, od := o.Time.Date()
		if oy != y || om != m || od != d {
			continue
		}
		if !found || last {
			price, found = o.Price, true
		}
		if found && !last {
			break
		}
	}
	return price, found
}

// Prune drops observations older than maxHistoryDays and returns how many
// were removed. Columns survive even when emptied; only a full reset
// removes them. Idempotent; invoked before each persistence cycle.
func (s *Store) Prune(maxHistoryDays int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.Now().AddDate(0, 0, -maxHistoryDays)
	removed := 0
	for ticker, obs := range s.series {
		i := 0
		for i < len(obs) && obs[i].Time.Before(cutoff) {
			i++
		}
		if i > 0 {
			removed += i
			s.series[ticker] = append([]Observation(nil), obs[i:]...)
		}
	}
	return removed
}

// Len reports the total number of observations across all instruments.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, obs := range s.series {
		n += len(obs)
	}
	return n
}

// Columns returns the known instruments in first-seen order.
func (s *Store) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.columns...)
}

// Snapshot is an immutable copy of the table, safe to read while the
// polling goroutine keeps appending.
type Snapshot struct {
	Columns []string
	Series  map[string][]Observation
}

// Snapshot deep-copies the current table state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Columns: append([]string(nil), s.columns...),
		Series:  make(map[string][]Observation, len(s.series)),
	}
	for ticker, obs := range s.series {
		snap.Series[ticker] = append([]Observation(nil), obs...)
	}
	return snap
}
