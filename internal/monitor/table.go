package monitor

import (
	"fmt"
	"sort"

	"github.com/andreaadelfio/ISIN-Monitor/internal/model"
)

// TableRows builds the notification summary table: the previous stored
// price, today's opening and the historical closes, each with the current
// price's percent variation and absolute difference against it.
func TableRows(currentPrice float64, openingPrice, previousPrice *float64, historical map[int]float64) []model.TableRow {
	var rows []model.TableRow

	if previousPrice != nil && *previousPrice > 0 {
		rows = append(rows, rowAgainst("Prev", currentPrice, *previousPrice))
	}
	if openingPrice != nil && *openingPrice > 0 && *openingPrice != currentPrice {
		rows = append(rows, rowAgainst("Open", currentPrice, *openingPrice))
	}

	days := make([]int, 0, len(historical))
	for d := range historical {
		days = append(days, d)
	}
	sort.Ints(days)
	for _, d := range days {
		price := historical[d]
		if price <= 0 {
			continue
		}
		rows = append(rows, rowAgainst(fmt.Sprintf("%dgg", d), currentPrice, price))
	}
	return rows
}

func rowAgainst(label string, current, reference float64) model.TableRow {
	diff := current - reference
	return model.TableRow{
		Label:      label,
		Price:      reference,
		Variation:  diff / reference * 100,
		Difference: diff,
	}
}

// Variation is the percent change of current against reference, zero
// when either side is missing or non-positive.
func Variation(current, reference float64) float64 {
	if reference <= 0 || current <= 0 {
		return 0
	}
	return (current - reference) / reference * 100
}
