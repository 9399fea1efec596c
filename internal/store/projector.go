package store

import (
	"sort"
	"sync"

	"github.com/andreaadelfio/ISIN-Monitor/internal/model"
)

// IdentifierResolver maps a ticker to its external identifier (ISIN).
// The metadata table implements it.
type IdentifierResolver interface {
	ISINFor(ticker string) (string, bool)
}

// Projector converts a table snapshot into long-format records. It owns
// an explicit ticker-to-ISIN cache rebuilt lazily after
// InvalidateIdentifierCache; whatever reloads the metadata source is
// responsible for calling that.
type Projector struct {
	resolver IdentifierResolver

	mu    sync.Mutex
	cache map[string]string
}

// NewProjector creates a projector resolving identifiers through r.
func NewProjector(r IdentifierResolver) *Projector {
	return &Projector{resolver: r}
}

// InvalidateIdentifierCache drops the ticker-to-ISIN cache. The next
// Project rebuilds it from current metadata.
func (p *Projector) InvalidateIdentifierCache() {
	p.mu.Lock()
	p.cache = nil
	p.mu.Unlock()
}

// Project emits one record per observation in the snapshot, skipping
// absent cells entirely: no record ever carries a missing price. Row
// (timestamp) order is preserved; within one timestamp the instrument
// order is the first-seen column order, so repeated calls against the
// same snapshot are deterministic. An instrument missing from metadata
// projects with an empty ISIN, never omitted.
func (p *Projector) Project(snap Snapshot) []model.LongRecord {
	colIndex := make(map[string]int, len(snap.Columns))
	total := 0
	for i, ticker := range snap.Columns {
		colIndex[ticker] = i
		total += len(snap.Series[ticker])
	}

	records := make([]model.LongRecord, 0, total)
	for _, ticker := range snap.Columns {
		isin := p.identifier(ticker)
		for _, o := range snap.Series[ticker] {
			records = append(records, model.LongRecord{
				Timestamp: o.Time,
				Ticker:    ticker,
				Price:     o.Price,
				ISIN:      isin,
			})
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return colIndex[records[i].Ticker] < colIndex[records[j].Ticker]
	})
	return records
}

func (p *Projector) identifier(ticker string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache == nil {
		p.cache = make(map[string]string)
	}
	if isin, ok := p.cache[ticker]; ok {
		return isin
	}
	isin := ""
	if p.resolver != nil {
		if mapped, ok := p.resolver.ISINFor(ticker); ok {
			isin = mapped
		}
	}
	p.cache[ticker] = isin
	return isin
}
