package monitor

import (
	"math"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestTableRowsOrderAndContent(t *testing.T) {
	historical := map[int]float64{30: 12.0, 1: 10.5, 7: 11.0}
	rows := TableRows(10.0, fptr(9.8), fptr(10.2), historical)

	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.Label
	}
	want := []string{"Prev", "Open", "1gg", "7gg", "30gg"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}

	prev := rows[0]
	if prev.Price != 10.2 {
		t.Errorf("Prev price = %v, want 10.2", prev.Price)
	}
	wantVar := (10.0 - 10.2) / 10.2 * 100
	if math.Abs(prev.Variation-wantVar) > 1e-9 {
		t.Errorf("Prev variation = %v, want %v", prev.Variation, wantVar)
	}
	if math.Abs(prev.Difference-(-0.2)) > 1e-9 {
		t.Errorf("Prev difference = %v, want -0.2", prev.Difference)
	}
}

func TestTableRowsSkipsMissingReferences(t *testing.T) {
	if rows := TableRows(10.0, nil, nil, nil); len(rows) != 0 {
		t.Errorf("no references should give no rows, got %v", rows)
	}

	// Opening equal to current is redundant and omitted.
	rows := TableRows(10.0, fptr(10.0), fptr(9.0), nil)
	if len(rows) != 1 || rows[0].Label != "Prev" {
		t.Errorf("rows = %v, want only Prev", rows)
	}

	// Non-positive historical closes are skipped.
	rows = TableRows(10.0, nil, nil, map[int]float64{7: 0, 30: 12})
	if len(rows) != 1 || rows[0].Label != "30gg" {
		t.Errorf("rows = %v, want only 30gg", rows)
	}
}

func TestVariation(t *testing.T) {
	if got := Variation(11, 10); math.Abs(got-10) > 1e-9 {
		t.Errorf("Variation(11,10) = %v, want 10", got)
	}
	if got := Variation(9, 10); math.Abs(got+10) > 1e-9 {
		t.Errorf("Variation(9,10) = %v, want -10", got)
	}
	if got := Variation(10, 0); got != 0 {
		t.Errorf("Variation against zero reference = %v, want 0", got)
	}
	if got := Variation(0, 10); got != 0 {
		t.Errorf("Variation of zero current = %v, want 0", got)
	}
}
