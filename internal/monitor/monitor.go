// Package monitor runs the polling cycle: fetch a live price per
// instrument, append it to the history, compare against thresholds and
// deliver chart notifications. The cycle is strictly sequential; the
// store sees one writer.
package monitor

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/andreaadelfio/ISIN-Monitor/internal/chart"
	"github.com/andreaadelfio/ISIN-Monitor/internal/config"
	"github.com/andreaadelfio/ISIN-Monitor/internal/metadata"
	"github.com/andreaadelfio/ISIN-Monitor/internal/notifier"
	"github.com/andreaadelfio/ISIN-Monitor/internal/provider"
	"github.com/andreaadelfio/ISIN-Monitor/internal/recorder"
	"github.com/andreaadelfio/ISIN-Monitor/internal/store"
)

// Monitor owns one polling pipeline over the configured instruments.
type Monitor struct {
	cfg       *config.Config
	store     *store.Store
	projector *store.Projector
	meta      *metadata.Table
	fetcher   provider.Fetcher
	notifier  *notifier.TelegramNotifier
	renderer  *chart.Renderer
	recorder  recorder.Recorder
	hours     chart.MarketHours

	// lastNotified implements the anti-spam cooldown, keyed by ISIN plus
	// the integer change bucket.
	lastNotified map[string]time.Time

	Now func() time.Time
}

// New wires a monitor from its collaborators.
func New(cfg *config.Config, st *store.Store, proj *store.Projector, meta *metadata.Table,
	fetcher provider.Fetcher, tn *notifier.TelegramNotifier, rend *chart.Renderer,
	rec recorder.Recorder, hours chart.MarketHours) *Monitor {
	return &Monitor{
		cfg:          cfg,
		store:        st,
		projector:    proj,
		meta:         meta,
		fetcher:      fetcher,
		notifier:     tn,
		renderer:     rend,
		recorder:     rec,
		hours:        hours,
		lastNotified: make(map[string]time.Time),
		Now:          time.Now,
	}
}

// InMarketHours reports whether the current time falls inside the
// configured market window; always true when the gate is disabled.
func (m *Monitor) InMarketHours() bool {
	if !m.cfg.Monitoring.MarketHoursOnly {
		return true
	}
	return m.hours.Contains(m.Now())
}

// RunCheck performs one full cycle, skipped outside market hours.
func (m *Monitor) RunCheck() {
	if !m.InMarketHours() {
		log.Printf("[INFO] outside market hours (%s-%s), check skipped",
			m.cfg.Monitoring.MarketOpenTime, m.cfg.Monitoring.MarketCloseTime)
		return
	}
	m.CheckAll()
}

// RunTest checks only the first configured instrument with a zero
// threshold, forcing a notification. Used by the one-shot CLI path.
func (m *Monitor) RunTest() {
	if !m.InMarketHours() {
		log.Printf("[INFO] outside market hours (%s-%s), check skipped",
			m.cfg.Monitoring.MarketOpenTime, m.cfg.Monitoring.MarketCloseTime)
		return
	}
	instruments := m.meta.Instruments()
	if len(instruments) == 0 {
		log.Println("[WARN] no instruments configured")
		return
	}
	test := instruments[0]
	test.TargetDiscount = 0
	log.Printf("[INFO] test mode: checking %s with zero threshold", test.ISIN)
	m.checkInstrument(test)
	m.persist()
}

// CheckAll checks every configured instrument sequentially with the
// configured rate-limit delay, then prunes and persists the history once.
func (m *Monitor) CheckAll() {
	instruments := m.meta.Instruments()
	if len(instruments) == 0 {
		log.Println("[WARN] no instruments configured")
		return
	}
	log.Printf("[INFO] checking %d instruments", len(instruments))

	delay := time.Duration(m.cfg.API.RateLimitDelayMS) * time.Millisecond
	for i, inst := range instruments {
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}
		m.checkInstrument(inst)
	}
	m.persist()
	log.Println("[INFO] check cycle completed")
}

// persist runs the once-per-cycle retention and atomic save.
func (m *Monitor) persist() {
	removed := m.store.Prune(m.cfg.Data.MaxHistoryDays)
	if removed > 0 {
		log.Printf("[INFO] pruned %d observations older than %d days", removed, m.cfg.Data.MaxHistoryDays)
	}
	if err := m.store.Save(m.cfg.Data.PriceFile); err != nil {
		log.Printf("[ERROR] save price history: %v", err)
		return
	}
	log.Printf("[INFO] price history saved: %d observations, %d instruments",
		m.store.Len(), len(m.store.Columns()))
}

func (m *Monitor) checkInstrument(inst metadata.Instrument) {
	quote, err := m.fetcher.FetchQuote(inst.ISIN)
	if err != nil {
		log.Printf("[WARN] no price for %s (%s): %v, skipping this cycle", inst.Ticker, inst.ISIN, err)
		return
	}
	current := quote.Price

	companyName := inst.CompanyName
	if quote.CompanyName != "" {
		companyName = quote.CompanyName
		m.meta.SetCompanyName(inst.Ticker, companyName)
	}
	if companyName == "" {
		companyName = inst.Ticker
	}

	previous, hasPrevious := m.store.LastPrice(inst.Ticker)
	change := 0.0
	if hasPrevious {
		change = Variation(current, previous)
	}

	appended := false
	if !hasPrevious || current != previous {
		if _, err := m.store.Append(inst.Ticker, current); err != nil {
			if errors.Is(err, store.ErrInvalidObservation) {
				log.Printf("[WARN] rejected observation for %s: price %v", inst.Ticker, current)
				return
			}
			log.Printf("[ERROR] append %s: %v", inst.Ticker, err)
			return
		}
		appended = true
		log.Printf("[INFO] price updated: %s €%.4f", inst.Ticker, current)
	} else {
		log.Printf("[INFO] price unchanged: %s €%.4f, skipped", inst.Ticker, current)
		if inst.TargetDiscount > 0 {
			return
		}
	}

	if err := m.recorder.RecordCheck(&recorder.CheckEvent{
		Ticker:        inst.Ticker,
		ISIN:          inst.ISIN,
		Price:         current,
		PreviousPrice: previous,
		ChangePercent: change,
		Appended:      appended,
	}); err != nil {
		log.Printf("[ERROR] record check: %v", err)
	}

	maxPrices := m.store.RollingMax(inst.Ticker, m.cfg.Monitoring.PriceComparisonDays...)
	if len(maxPrices) == 0 && len(m.cfg.Monitoring.PriceComparisonDays) > 0 {
		// Brand new instrument: the live price is the only reference.
		widest := m.cfg.Monitoring.PriceComparisonDays[0]
		for _, d := range m.cfg.Monitoring.PriceComparisonDays[1:] {
			if d > widest {
				widest = d
			}
		}
		maxPrices[widest] = current
		log.Printf("[INFO] new instrument %s (%s), reference price €%.2f", inst.Ticker, companyName, current)
	}

	if !hasPrevious || math.Abs(change) < inst.TargetDiscount {
		return
	}
	if !m.shouldNotify(inst.ISIN, math.Abs(change)) {
		return
	}

	direction := "calo"
	if change > 0 {
		direction = "aumento"
	}
	log.Printf("[INFO] significant variation: %s %s %.1f%%", inst.ISIN, direction, math.Abs(change))
	m.notify(inst, companyName, current, previous, hasPrevious, change)
}

// shouldNotify enforces the per-instrument cooldown so repeated triggers
// at the same magnitude don't spam the chat.
func (m *Monitor) shouldNotify(isin string, change float64) bool {
	key := fmt.Sprintf("%s_%d", isin, int(change))
	cooldown := time.Duration(m.cfg.Monitoring.CooldownHours * float64(time.Hour))
	now := m.Now()
	if last, ok := m.lastNotified[key]; ok && now.Sub(last) < cooldown {
		return false
	}
	m.lastNotified[key] = now
	return true
}

func (m *Monitor) notify(inst metadata.Instrument, companyName string, current, previous float64, hasPrevious bool, change float64) {
	if !m.notifier.Configured() {
		return
	}

	var previousPtr *float64
	if hasPrevious {
		previousPtr = &previous
	}
	var openingPtr *float64
	if opening, ok := m.store.OpeningPrice(inst.Ticker, m.Now()); ok {
		openingPtr = &opening
	}
	rows := TableRows(current, openingPtr, previousPtr, m.historicalClosingPrices(inst.Ticker))
	caption := notifier.FormatCaption(companyName, inst.Ticker, inst.ISIN, current, rows)

	delivered := false
	withChart := false
	if m.cfg.Telegram.SendCharts {
		png, err := m.renderer.Render(chart.Request{
			Ticker:        inst.Ticker,
			CompanyName:   companyName,
			ISIN:          inst.ISIN,
			Points:        m.tickerPoints(inst.Ticker),
			CurrentPrice:  current,
			PreviousPrice: previous,
			TableRows:     rows,
		})
		if err != nil {
			log.Printf("[ERROR] chart for %s: %v", inst.ISIN, err)
		} else {
			filename := fmt.Sprintf("isin_chart_%s_%d.png", inst.Ticker, m.Now().Unix())
			if err := m.notifier.SendPhoto(png, caption, filename); err != nil {
				log.Printf("[ERROR] send chart for %s: %v", inst.ISIN, err)
			} else {
				delivered, withChart = true, true
				log.Printf("[INFO] chart sent for %s (variation %+.1f%%)", inst.ISIN, change)
			}
		}
	}
	if !delivered {
		if err := m.notifier.Send(caption); err != nil {
			log.Printf("[ERROR] send notification for %s: %v", inst.ISIN, err)
		} else {
			delivered = true
			log.Printf("[INFO] text notification sent for %s", inst.ISIN)
		}
	}

	if err := m.recorder.RecordNotification(&recorder.NotificationEvent{
		Ticker:        inst.Ticker,
		ISIN:          inst.ISIN,
		Price:         current,
		ChangePercent: change,
		WithChart:     withChart,
		Delivered:     delivered,
	}); err != nil {
		log.Printf("[ERROR] record notification: %v", err)
	}
}

// historicalClosingPrices collects the closing prices N days back for the
// configured horizons; days with no data simply have no entry.
func (m *Monitor) historicalClosingPrices(ticker string) map[int]float64 {
	historical := make(map[int]float64)
	for _, days := range m.cfg.Monitoring.HistoricalCloseDays {
		date := m.Now().AddDate(0, 0, -days)
		if price, ok := m.store.ClosingPrice(ticker, date); ok {
			historical[days] = price
		}
	}
	return historical
}

// tickerPoints extracts one instrument's series from the long-format
// projection of the current table snapshot.
func (m *Monitor) tickerPoints(ticker string) []chart.Point {
	var points []chart.Point
	for _, rec := range m.projector.Project(m.store.Snapshot()) {
		if rec.Ticker != ticker {
			continue
		}
		points = append(points, chart.Point{Time: rec.Timestamp, Price: rec.Price})
	}
	return points
}
