package model

import "time"

// LongRecord is one observation in long (flat) format: one record per
// (timestamp, instrument) cell of the wide price table.
type LongRecord struct {
	Timestamp time.Time
	Ticker    string
	Price     float64
	ISIN      string
}

// TableRow is one line of the summary table attached to a notification:
// a reference price and the current price's distance from it.
type TableRow struct {
	Label      string
	Price      float64
	Variation  float64 // percent vs the reference price
	Difference float64 // absolute difference vs the reference price
}
