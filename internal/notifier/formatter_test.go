package notifier

import (
	"strings"
	"testing"

	"github.com/andreaadelfio/ISIN-Monitor/internal/model"
)

func TestFormatCaption(t *testing.T) {
	rows := []model.TableRow{
		{Label: "Prev", Price: 10.2, Variation: -1.961, Difference: -0.2},
		{Label: "7gg", Price: 11.0, Variation: -9.091, Difference: -1.0},
	}
	caption := FormatCaption("Enel S.p.A.", "ENEL", "IT0003128367", 10.0, rows)

	for _, want := range []string{
		"Enel S.p.A., €10",
		"finecobank.com/pvt/trading/snapshot/IT0003128367.AFF",
		"borsaitaliana.it/borsa/azioni/scheda/IT0003128367.html",
		"<code>",
		"Prev: €10.2 (-1.961% 📉) -0.200",
		"7gg: €11 (-9.091% 📉) -1.000",
		"</code>",
	} {
		if !strings.Contains(caption, want) {
			t.Errorf("caption missing %q:\n%s", want, caption)
		}
	}
}

func TestFormatCaptionFallsBackToTicker(t *testing.T) {
	caption := FormatCaption("", "ENEL", "IT0003128367", 10.0, []model.TableRow{})
	if !strings.HasPrefix(caption, "ENEL,") {
		t.Errorf("caption = %q, want ticker as name", caption)
	}
}

func TestFormatCaptionNilRows(t *testing.T) {
	caption := FormatCaption("Enel", "ENEL", "IT0003128367", 10.0, nil)
	if caption != "Enel: Dati non disponibili" {
		t.Errorf("caption = %q", caption)
	}
}

func TestTrendEmoji(t *testing.T) {
	cases := []struct {
		variation float64
		want      string
	}{
		{1.5, "📈"},
		{-0.1, "📉"},
		{0, "⚪"},
	}
	for _, c := range cases {
		if got := trendEmoji(c.variation); got != c.want {
			t.Errorf("trendEmoji(%v) = %s, want %s", c.variation, got, c.want)
		}
	}
}

func TestTelegramConfigured(t *testing.T) {
	cases := []struct {
		token, chat string
		enabled     bool
		want        bool
	}{
		{"12345:real-token", "67890", true, true},
		{"12345:real-token", "67890", false, false},
		{"", "67890", true, false},
		{"12345:real-token", "", true, false},
		{placeholderToken, "67890", true, false},
	}
	for _, c := range cases {
		tn := NewTelegramNotifier(c.token, c.chat, "", c.enabled)
		if got := tn.Configured(); got != c.want {
			t.Errorf("Configured(token=%q chat=%q enabled=%v) = %v, want %v",
				c.token, c.chat, c.enabled, got, c.want)
		}
	}
}
