package recorder

import (
	"errors"
	"fmt"

	"PullbackScanner/internal/model"
)

// Recorder persists scan history for later analysis.
type Recorder interface {
	RecordScan(run *model.ScanRun) error
	Close() error
}

// Multi fans a scan out to several recorders. Every recorder is tried even
// when an earlier one fails.
type Multi struct {
	recorders []Recorder
}

// NewMulti combines recorders, dropping nil entries.
func NewMulti(recs ...Recorder) *Multi {
	m := &Multi{}
	for _, r := range recs {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

func (m *Multi) RecordScan(run *model.ScanRun) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.RecordScan(run); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", r, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns how many recorders are attached.
func (m *Multi) Len() int { return len(m.recorders) }
