package snapshot

import (
	"fmt"
	"log"
	"sync"

	"PullbackScanner/internal/model"
	"PullbackScanner/internal/scanner"
)

// Store keeps the most recent scan in memory and mirrors it to disk.
type Store struct {
	mu       sync.RWMutex
	run      *model.ScanRun
	filePath string
}

// NewStore creates a Store, loading the previous run from disk when present.
// An empty filePath keeps the store in memory only.
func NewStore(filePath string) (*Store, error) {
	s := &Store{filePath: filePath}
	if filePath == "" {
		return s, nil
	}
	run, err := LoadRun(filePath)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if run != nil {
		log.Printf("[INFO] restored scan %s from %s", run.ID, filePath)
	}
	s.run = run
	return s, nil
}

// Put replaces the latest run. Older runs than the stored one are ignored.
func (s *Store) Put(run *model.ScanRun) {
	if run == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil && run.StartedAt.Before(s.run.StartedAt) {
		return
	}
	s.run = run
	if s.filePath == "" {
		return
	}
	if err := SaveRun(s.filePath, run); err != nil {
		log.Printf("[ERROR] failed to save snapshot: %v", err)
	}
}

// Latest returns the most recent run, or nil before the first scan.
func (s *Store) Latest() *model.ScanRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run
}

// Category returns the latest results for one category, strongest first.
func (s *Store) Category(c model.Category) []model.ScanResult {
	run := s.Latest()
	if run == nil {
		return nil
	}
	return scanner.Partition(run.Results)[c]
}
