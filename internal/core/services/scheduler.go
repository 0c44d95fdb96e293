package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// IngestScheduler re-runs ingestion on a fixed interval so remote sources
// such as web pages and Wikipedia articles stay current.
type IngestScheduler struct {
	interval time.Duration
	ingest   driving.IngestionService
	onResult func(*domain.IngestionReport, error)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	runs    int
	lastErr error
}

// NewIngestScheduler creates a scheduler. onResult, if set, receives every
// run's report and error on the scheduler goroutine.
func NewIngestScheduler(
	interval time.Duration,
	ingest driving.IngestionService,
	onResult func(*domain.IngestionReport, error),
) *IngestScheduler {
	return &IngestScheduler{
		interval: interval,
		ingest:   ingest,
		onResult: onResult,
	}
}

// Start runs ingestion every interval until ctx is cancelled or Stop is
// called. The first run happens one interval after Start. It blocks and
// returns ctx.Err() on cancellation, nil after Stop.
func (s *IngestScheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("%w: schedule interval must be positive, got %s", domain.ErrInvalidInput, s.interval)
	}
	if s.ingest == nil {
		return fmt.Errorf("%w: ingestion service is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	defer close(done)
	return s.run(ctx, stopCh)
}

// Stop ends the loop and waits for a run in progress to finish.
func (s *IngestScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
}

// Runs returns the number of completed runs.
func (s *IngestScheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// LastError returns the error of the most recent run.
func (s *IngestScheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *IngestScheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.markStopped()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *IngestScheduler) runOnce(ctx context.Context) {
	logger.Debug("scheduler: starting ingestion run")
	start := time.Now()

	report, err := s.ingest.Ingest(ctx)
	if err != nil {
		logger.Warn("scheduler: ingestion failed: %v", err)
	} else {
		logger.Debug("scheduler: ingestion finished in %s", time.Since(start).Round(time.Millisecond))
	}

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	s.mu.Unlock()

	if s.onResult != nil {
		s.onResult(report, err)
	}
}

func (s *IngestScheduler) markStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
