package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"PullbackScanner/internal/model"
	"PullbackScanner/internal/notifier"
	"PullbackScanner/internal/recorder"
	"PullbackScanner/internal/scanner"
	"PullbackScanner/internal/snapshot"
)

// ErrScanInProgress is returned when a scan is requested while one runs.
var ErrScanInProgress = errors.New("scan already in progress")

// Notifier delivers reports to the user.
type Notifier interface {
	Enabled() bool
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the periodic scan and on-demand runs.
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  *scanner.Scanner
	Universe []string
	Store    *snapshot.Store
	Notifier Notifier
	Recorder recorder.Recorder
	Ctx      context.Context

	running sync.Mutex
	wg      sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sc *scanner.Scanner, universe []string, store *snapshot.Store, n Notifier, rec recorder.Recorder) *Scheduler {
	logger := cron.VerbosePrintfLogger(log.Default())
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(logger))),
		Scanner:  sc,
		Universe: universe,
		Store:    store,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
	}
}

// RegisterScan registers the periodic scan.
func (s *Scheduler) RegisterScan(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes a scan immediately and waits for it.
func (s *Scheduler) RunNow() (*model.ScanRun, error) {
	if !s.running.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.running.Unlock()
	return s.scan()
}

// Trigger starts a scan in the background. It returns false when one is
// already running.
func (s *Scheduler) Trigger() bool {
	if !s.running.TryLock() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		if _, err := s.scan(); err != nil {
			log.Printf("[ERROR] triggered scan: %v", err)
		}
	}()
	return true
}

func (s *Scheduler) scanTask() {
	if _, err := s.RunNow(); err != nil {
		if errors.Is(err, ErrScanInProgress) {
			log.Println("[WARN] scheduled scan skipped: previous scan still running")
			return
		}
		log.Printf("[ERROR] scheduled scan: %v", err)
	}
}

func (s *Scheduler) scan() (*model.ScanRun, error) {
	log.Printf("[INFO] running scan over %d tickers", len(s.Universe))
	run, err := s.Scanner.Scan(s.Ctx, s.Universe)
	if err != nil {
		// cancelled mid-way; a partial run is not published
		return run, err
	}

	if s.Store != nil {
		s.Store.Put(run)
	}
	if err := s.Recorder.RecordScan(run); err != nil {
		log.Printf("[ERROR] record scan: %v", err)
	}
	s.trySend(notifier.FormatScanReport(run))
	return run, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	var cmd string
	if fields := strings.Fields(command); len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/scan":
		if !s.Trigger() {
			return "⏳ A scan is already running."
		}
		return "⏳ Scan started, the report follows when it finishes."
	case "/buy":
		return notifier.FormatCategory(model.CategoryBuy, s.Store.Category(model.CategoryBuy))
	case "/setup":
		return notifier.FormatCategory(model.CategorySetup, s.Store.Category(model.CategorySetup))
	case "/status":
		return notifier.FormatStatus(s.Store.Latest())
	default:
		return "Available commands:\n• /scan run a scan now\n• /buy latest BUY signals\n• /setup latest SETUP signals\n• /status last scan summary"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil || !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
