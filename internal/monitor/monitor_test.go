package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andreaadelfio/ISIN-Monitor/internal/chart"
	"github.com/andreaadelfio/ISIN-Monitor/internal/config"
	"github.com/andreaadelfio/ISIN-Monitor/internal/metadata"
	"github.com/andreaadelfio/ISIN-Monitor/internal/notifier"
	"github.com/andreaadelfio/ISIN-Monitor/internal/provider"
	"github.com/andreaadelfio/ISIN-Monitor/internal/recorder"
	"github.com/andreaadelfio/ISIN-Monitor/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Monitoring.CooldownHours = 6
	cfg.Monitoring.PriceComparisonDays = []int{30, 7}
	cfg.Monitoring.MarketHoursOnly = true
	cfg.Monitoring.MarketOpenTime = "08:55"
	cfg.Monitoring.MarketCloseTime = "18:05"
	cfg.Monitoring.HistoricalCloseDays = []int{1, 7}
	cfg.Data.PriceFile = filepath.Join(t.TempDir(), "history.csv")
	cfg.Data.MaxHistoryDays = 365
	return cfg
}

func testMonitor(t *testing.T, cfg *config.Config, fetcher provider.Fetcher) (*Monitor, *store.Store) {
	t.Helper()
	metaPath := filepath.Join(t.TempDir(), "isin_metadata.csv")
	content := "ticker,isin,target_discount,company_name\n" +
		"ENEL,IT0003128367,1.5,\n" +
		"ENI,IT0003132476,2.0,Eni S.p.A.\n"
	if err := os.WriteFile(metaPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	meta := metadata.Load(metaPath)

	st := store.New()
	proj := store.NewProjector(meta)
	meta.OnReload(proj.InvalidateIdentifierCache)

	hours, err := chart.ParseMarketHours(cfg.Monitoring.MarketOpenTime, cfg.Monitoring.MarketCloseTime)
	if err != nil {
		t.Fatal(err)
	}
	planner := chart.NewPlanner(hours)
	rend := chart.NewRenderer(planner, 30, 7)
	tn := notifier.NewTelegramNotifier("", "", "", false)

	return New(cfg, st, proj, meta, fetcher, tn, rend, recorder.NewNoopRecorder(), hours), st
}

func TestCheckAllAppendsAndPersists(t *testing.T) {
	cfg := testConfig(t)
	m, st := testMonitor(t, cfg, &provider.MockFetcher{Price: 10.5, CompanyName: "Enel S.p.A."})

	m.CheckAll()

	for _, ticker := range []string{"ENEL", "ENI"} {
		if got, ok := st.LastPrice(ticker); !ok || got != 10.5 {
			t.Errorf("%s last price = %v, %v, want 10.5, true", ticker, got, ok)
		}
	}
	if _, err := os.Stat(cfg.Data.PriceFile); err != nil {
		t.Errorf("history not persisted: %v", err)
	}
	// Company name learned from the provider.
	if name := m.meta.Instruments()[0].CompanyName; name != "Enel S.p.A." {
		t.Errorf("company name = %q, want learned from provider", name)
	}
}

func TestUnchangedPriceIsNotAppended(t *testing.T) {
	cfg := testConfig(t)
	m, st := testMonitor(t, cfg, &provider.MockFetcher{Price: 10.5})

	m.CheckAll()
	before := st.Len()
	m.CheckAll()
	if st.Len() != before {
		t.Errorf("store grew from %d to %d on unchanged prices", before, st.Len())
	}
}

func TestInvalidQuoteIsRejected(t *testing.T) {
	cfg := testConfig(t)
	m, st := testMonitor(t, cfg, &provider.MockFetcher{Price: -1})

	m.CheckAll()
	if st.Len() != 0 {
		t.Errorf("negative quotes appended: %d observations", st.Len())
	}
}

func TestShouldNotifyCooldown(t *testing.T) {
	cfg := testConfig(t)
	m, _ := testMonitor(t, cfg, &provider.MockFetcher{Price: 10})

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	m.Now = func() time.Time { return now }

	if !m.shouldNotify("IT0003128367", 5.2) {
		t.Fatal("first trigger must notify")
	}
	if m.shouldNotify("IT0003128367", 5.7) {
		t.Error("same magnitude bucket inside cooldown must be suppressed")
	}
	if !m.shouldNotify("IT0003128367", 8.1) {
		t.Error("different magnitude bucket must notify")
	}
	if !m.shouldNotify("IT0003132476", 5.2) {
		t.Error("different instrument must notify")
	}

	now = now.Add(7 * time.Hour)
	if !m.shouldNotify("IT0003128367", 5.2) {
		t.Error("expired cooldown must notify again")
	}
}

func TestInMarketHoursGate(t *testing.T) {
	cfg := testConfig(t)
	m, _ := testMonitor(t, cfg, &provider.MockFetcher{Price: 10})

	inside := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	outside := time.Date(2025, 3, 10, 20, 0, 0, 0, time.Local)

	m.Now = func() time.Time { return inside }
	if !m.InMarketHours() {
		t.Error("noon must be inside market hours")
	}
	m.Now = func() time.Time { return outside }
	if m.InMarketHours() {
		t.Error("evening must be outside market hours")
	}

	cfg.Monitoring.MarketHoursOnly = false
	if !m.InMarketHours() {
		t.Error("disabled gate must always pass")
	}
}

func TestRunCheckSkippedOutsideMarketHours(t *testing.T) {
	cfg := testConfig(t)
	m, st := testMonitor(t, cfg, &provider.MockFetcher{Price: 10})

	m.Now = func() time.Time { return time.Date(2025, 3, 10, 22, 0, 0, 0, time.Local) }
	m.RunCheck()
	if st.Len() != 0 {
		t.Errorf("check ran outside market hours: %d observations", st.Len())
	}
}
