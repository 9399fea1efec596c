package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andreaadelfio/ISIN-Monitor/internal/chart"
	"github.com/andreaadelfio/ISIN-Monitor/internal/config"
	"github.com/andreaadelfio/ISIN-Monitor/internal/metadata"
	"github.com/andreaadelfio/ISIN-Monitor/internal/monitor"
	"github.com/andreaadelfio/ISIN-Monitor/internal/notifier"
	"github.com/andreaadelfio/ISIN-Monitor/internal/provider"
	"github.com/andreaadelfio/ISIN-Monitor/internal/recorder"
	"github.com/andreaadelfio/ISIN-Monitor/internal/scheduler"
	"github.com/andreaadelfio/ISIN-Monitor/internal/store"
)

var cfgPath string

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rootCmd := &cobra.Command{
		Use:   "isin-monitor",
		Short: "Price monitoring with Telegram chart notifications",
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to config file")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Run a single check of the first instrument with a zero threshold",
			Run: func(_ *cobra.Command, _ []string) {
				app := mustBuild()
				defer app.close()
				app.monitor.RunTest()
			},
		},
		&cobra.Command{
			Use:   "monitor",
			Short: "Run continuous monitoring on the configured cron schedule",
			Run: func(_ *cobra.Command, _ []string) {
				app := mustBuild()
				defer app.close()
				runMonitor(app)
			},
		},
		&cobra.Command{
			Use:   "test-telegram",
			Short: "Send a Telegram connectivity test message",
			Run: func(_ *cobra.Command, _ []string) {
				app := mustBuild()
				defer app.close()
				if err := app.tn.Send(notifier.FormatTestCaption()); err != nil {
					log.Fatalf("[FATAL] telegram test: %v", err)
				}
				log.Println("[INFO] test message sent")
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	monitor *monitor.Monitor
	tn      *notifier.TelegramNotifier
	rec     recorder.Recorder
}

func (a *app) close() {
	if err := a.rec.Close(); err != nil {
		log.Printf("[ERROR] close recorder: %v", err)
	}
}

func mustBuild() *app {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	hours, err := chart.ParseMarketHours(cfg.Monitoring.MarketOpenTime, cfg.Monitoring.MarketCloseTime)
	if err != nil {
		log.Fatalf("[FATAL] market hours: %v", err)
	}

	meta := metadata.Load(cfg.Data.MetadataFile)
	st := store.Load(cfg.Data.PriceFile)
	proj := store.NewProjector(meta)
	meta.OnReload(proj.InvalidateIdentifierCache)

	planner := chart.NewPlanner(hours)
	planner.Staleness = time.Duration(cfg.Monitoring.LivePointStaleMins) * time.Minute

	days := cfg.Monitoring.PriceComparisonDays
	longDays, shortDays := 30, 7
	if len(days) > 0 {
		longDays = days[0]
	}
	if len(days) > 1 {
		shortDays = days[1]
	}
	rend := chart.NewRenderer(planner, longDays, shortDays)

	fetcher := provider.NewBorsaItalianaFetcher(cfg.Proxy)
	log.Printf("[INFO] price provider: %s", fetcher.Name())

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Telegram.Enabled)
	if !tn.Configured() {
		log.Println("[WARN] telegram not configured or disabled, notifications will be skipped")
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	return &app{
		cfg:     cfg,
		monitor: monitor.New(cfg, st, proj, meta, fetcher, tn, rend, rec, hours),
		tn:      tn,
		rec:     rec,
	}
}

func runMonitor(a *app) {
	log.Println("[INFO] ISIN Monitor starting...")

	sched := scheduler.NewScheduler(a.monitor)
	if err := sched.Register(a.cfg.Schedule.CheckCron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing check now")
		go a.monitor.RunCheck()
	}

	log.Println("[INFO] ISIN Monitor is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
}
