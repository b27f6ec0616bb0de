package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"PullbackScanner/internal/collector"
	"PullbackScanner/internal/config"
	"PullbackScanner/internal/metrics"
	"PullbackScanner/internal/notifier"
	"PullbackScanner/internal/recorder"
	"PullbackScanner/internal/scanner"
	"PullbackScanner/internal/scheduler"
	"PullbackScanner/internal/server"
	"PullbackScanner/internal/snapshot"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] PullbackScanner starting...")

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "alpaca":
		fetcher = collector.NewAlpacaFetcher(cfg.DataSource.APIKey, cfg.DataSource.APISecret, cfg.DataSource.Feed, cfg.Scan.FetchTimeout)
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Printf("[INFO] data source: %s, %d tickers, interval %s", fetcher.Name(), len(cfg.Scan.Tickers), cfg.Scan.Interval)

	col := collector.NewCollector(fetcher, cfg.CollectorOptions())
	sc := scanner.NewScanner(col, cfg.StrategyRules(), cfg.Scan.MarketFilterSymbol)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sc.Observer = metrics.NewMetrics(reg)

	// Init recorders
	recs := []recorder.Recorder{}
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, skipping: %v", err)
		} else {
			recs = append(recs, sr)
		}
	}
	if cfg.Database.PostgresURL != "" {
		pr, err := recorder.NewPostgresRecorder(ctx, cfg.Database.PostgresURL)
		if err != nil {
			log.Printf("[WARN] init postgres recorder failed, skipping: %v", err)
		} else {
			recs = append(recs, pr)
		}
	}
	if cfg.Output.CSVPath != "" {
		recs = append(recs, recorder.NewCSVRecorder(cfg.Output.CSVPath))
	}
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if len(recs) > 0 {
		rec = recorder.NewMulti(recs...)
	}
	defer rec.Close()

	store, err := snapshot.NewStore(cfg.Output.SnapshotFile)
	if err != nil {
		log.Fatalf("[FATAL] init snapshot store: %v", err)
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, sc, cfg.Scan.Tickers, store, tn, rec)
	if err := sched.RegisterScan(cfg.Schedule.ScanCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	} else {
		log.Println("[WARN] Telegram not configured, reports only go to the dashboard")
	}

	// Dashboard
	api := &server.API{Source: store, Runner: sched, Gatherer: reg}
	go func() {
		if err := server.ListenAndServe(ctx, cfg.Server.Addr, api.Router()); err != nil {
			log.Printf("[ERROR] dashboard: %v", err)
		}
	}()

	// Optional: run immediately on start
	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] RUN_ON_START enabled, executing scan now")
		sched.Trigger()
	}

	log.Println("[INFO] PullbackScanner is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] PullbackScanner stopped")
}
