// Package metadata holds the read-only instrument table: which tickers
// are monitored, their ISIN codes and notification thresholds. The
// backing CSV is reloadable at runtime; reloads notify registered hooks
// so dependent caches (the long-format projector) can invalidate.
package metadata

import (
	"encoding/csv"
	"log"
	"os"
	"strconv"
	"sync"
)

// Instrument is one row of the metadata table.
type Instrument struct {
	Ticker         string
	ISIN           string
	TargetDiscount float64 // notification threshold in percent
	CompanyName    string
}

// Table is the in-memory metadata table. Company names learned from the
// price provider are upserted in memory only; the CSV stays read-only.
type Table struct {
	mu       sync.RWMutex
	path     string
	entries  []Instrument
	byTicker map[string]int
	byISIN   map[string]int
	onReload []func()
}

// Load reads the metadata CSV at path. A missing or malformed file
// degrades to an empty table with a logged warning; monitoring simply
// has nothing to do until the file appears and Reload is called.
func Load(path string) *Table {
	t := &Table{path: path}
	t.Reload()
	return t
}

// OnReload registers fn to run after every successful or degraded
// reload, before Reload returns.
func (t *Table) OnReload(fn func()) {
	t.mu.Lock()
	t.onReload = append(t.onReload, fn)
	t.mu.Unlock()
}

// Reload re-reads the backing CSV and fires the reload hooks.
func (t *Table) Reload() {
	entries := readCSV(t.path)

	t.mu.Lock()
	t.entries = entries
	t.byTicker = make(map[string]int, len(entries))
	t.byISIN = make(map[string]int, len(entries))
	for i, e := range entries {
		t.byTicker[e.Ticker] = i
		t.byISIN[e.ISIN] = i
	}
	hooks := append([]func(){}, t.onReload...)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func readCSV(path string) []Instrument {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("[WARN] metadata file %s not readable: %v, using empty table", path, err)
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		log.Printf("[WARN] parse metadata %s: %v, using empty table", path, err)
		return nil
	}
	if len(records) < 1 {
		return nil
	}

	col := make(map[string]int)
	for i, name := range records[0] {
		col[name] = i
	}
	tickerIdx, ok := col["ticker"]
	if !ok {
		log.Printf("[WARN] metadata %s missing ticker column, using empty table", path)
		return nil
	}
	isinIdx, hasISIN := col["isin"]
	discountIdx, hasDiscount := col["target_discount"]
	nameIdx, hasName := col["company_name"]

	var entries []Instrument
	for _, record := range records[1:] {
		if tickerIdx >= len(record) || record[tickerIdx] == "" {
			continue
		}
		e := Instrument{Ticker: record[tickerIdx], TargetDiscount: 0.001}
		if hasISIN && isinIdx < len(record) {
			e.ISIN = record[isinIdx]
		}
		if hasDiscount && discountIdx < len(record) && record[discountIdx] != "" {
			if d, err := strconv.ParseFloat(record[discountIdx], 64); err == nil {
				e.TargetDiscount = d
			}
		}
		if hasName && nameIdx < len(record) {
			e.CompanyName = record[nameIdx]
		}
		entries = append(entries, e)
	}
	log.Printf("[INFO] metadata loaded: %d instruments", len(entries))
	return entries
}

// Instruments returns a copy of all rows in file order.
func (t *Table) Instruments() []Instrument {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Instrument(nil), t.entries...)
}

// ISINFor maps a ticker to its ISIN. Implements store.IdentifierResolver.
func (t *Table) ISINFor(ticker string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.byTicker[ticker]
	if !ok {
		return "", false
	}
	return t.entries[i].ISIN, true
}

// ByISIN returns the instrument with the given ISIN.
func (t *Table) ByISIN(isin string) (Instrument, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.byISIN[isin]
	if !ok {
		return Instrument{}, false
	}
	return t.entries[i], true
}

// SetCompanyName records a company name learned from the price provider.
func (t *Table) SetCompanyName(ticker, name string) {
	if name == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.byTicker[ticker]; ok {
		t.entries[i].CompanyName = name
	}
}
