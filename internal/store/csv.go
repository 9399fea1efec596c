package store

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// timeLayout is the sortable textual timestamp format of the persisted
// wide CSV.
const timeLayout = "2006-01-02 15:04:05"

// Save writes the table as a wide CSV: a timestamp header column plus one
// column per instrument, sparse cells empty, rows in time order. The file
// is written to a temporary sibling and renamed so an interrupted process
// never leaves a half-written history.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	rows := s.wideRows()
	columns := append([]string(nil), s.columns...)
	s.mu.Unlock()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	header := append([]string{"timestamp"}, columns...)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(columns)+1)
		record[0] = row.ts.Format(timeLayout)
		for i, ticker := range columns {
			if price, ok := row.cells[ticker]; ok {
				record[i+1] = strconv.FormatFloat(price, 'f', -1, 64)
			}
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

type wideRow struct {
	ts    time.Time
	cells map[string]float64
}

// wideRows merges the per-instrument sequences back into timestamp-keyed
// rows. Caller holds the lock.
func (s *Store) wideRows() []wideRow {
	byStamp := make(map[string]*wideRow)
	for _, ticker := range s.columns {
		for _, o := range s.series[ticker] {
			key := o.Time.Format(timeLayout)
			row, ok := byStamp[key]
			if !ok {
				row = &wideRow{ts: o.Time.Truncate(time.Second), cells: make(map[string]float64)}
				byStamp[key] = row
			}
			row.cells[ticker] = o.Price
		}
	}
	rows := make([]wideRow, 0, len(byStamp))
	for _, row := range byStamp {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })
	return rows
}

// Load reads a wide CSV written by Save and returns the rehydrated store.
// Any failure (missing file, malformed header, unparseable row) degrades
// to an empty store with a logged warning; a broken history file is never
// fatal to the process.
func Load(path string) *Store {
	s := New()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[INFO] no price history at %s, starting empty", path)
		} else {
			log.Printf("[WARN] open price history: %v, starting empty", err)
		}
		return s
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		log.Printf("[WARN] parse price history: %v, starting empty", err)
		return s
	}
	if len(records) == 0 {
		return s
	}
	header := records[0]
	if len(header) == 0 || header[0] != "timestamp" {
		log.Printf("[WARN] price history %s has unexpected header, starting empty", path)
		return s
	}
	for _, ticker := range header[1:] {
		s.series[ticker] = nil
		s.columns = append(s.columns, ticker)
	}

	loaded := 0
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		ts, err := time.ParseInLocation(timeLayout, record[0], time.Local)
		if err != nil {
			log.Printf("[WARN] discarding price history: bad timestamp %q: %v", record[0], err)
			return New()
		}
		for i := 1; i < len(record) && i < len(header); i++ {
			if record[i] == "" {
				continue
			}
			price, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				log.Printf("[WARN] discarding price history: bad price %q: %v", record[i], err)
				return New()
			}
			ticker := header[i]
			s.series[ticker] = append(s.series[ticker], Observation{Time: ts, Price: price})
			loaded++
		}
	}

	// Rows are written in time order but a hand-edited file may not be.
	for ticker := range s.series {
		obs := s.series[ticker]
		sort.SliceStable(obs, func(i, j int) bool { return obs[i].Time.Before(obs[j].Time) })
	}

	log.Printf("[INFO] price history loaded: %d observations, %d instruments", loaded, len(s.columns))
	return s
}
