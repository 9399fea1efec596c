package notifier

import (
	"fmt"
	"strings"

	"github.com/andreaadelfio/ISIN-Monitor/internal/format"
	"github.com/andreaadelfio/ISIN-Monitor/internal/model"
)

func trendEmoji(variation float64) string {
	switch {
	case variation > 0:
		return "📈"
	case variation < 0:
		return "📉"
	default:
		return "⚪"
	}
}

// FormatCaption builds the HTML caption attached to a notification:
// company name, live price, broker links and the summary table in a
// monospace block.
func FormatCaption(companyName, ticker, isin string, currentPrice float64, rows []model.TableRow) string {
	if companyName == "" {
		companyName = ticker
	}
	finecoURL := fmt.Sprintf("https://finecobank.com/pvt/trading/snapshot/%s.AFF", isin)
	borsaURL := fmt.Sprintf("https://www.borsaitaliana.it/borsa/azioni/scheda/%s.html", isin)

	if rows == nil {
		return fmt.Sprintf("%s: Dati non disponibili", companyName)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(`%s, €%s (<a href="%s">Fineco</a> | <a href="%s">Borsa IT</a>)`,
		companyName, format.Number(currentPrice, 4), finecoURL, borsaURL))
	b.WriteString("\n\n<code>")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s: €%s (%+.3f%% %s) %+.3f\n",
			row.Label, format.Number(row.Price, 4), row.Variation, trendEmoji(row.Variation), row.Difference))
	}
	b.WriteString("</code>")
	return b.String()
}

// FormatTestCaption is the connectivity-probe message.
func FormatTestCaption() string {
	return "🧪 Test ISIN Monitor OK!"
}
