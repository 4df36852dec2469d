package reconciliation

import (
	"context"
	"sync"
	"time"

	"github.com/solbridge/bridge_service/pkg/logger"
)

// Scheduler handles automated reconciliation runs
type Scheduler struct {
	service  *Service
	logger   *logger.Logger
	interval time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new reconciliation scheduler
func NewScheduler(service *Service, logger *logger.Logger, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = 1 * time.Hour
	}
	return &Scheduler{
		service:  service,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting reconciliation scheduler", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop gracefully stops the reconciliation scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping reconciliation scheduler")
	close(s.stopCh)
	s.wg.Wait()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if _, err := s.service.Run(runCtx); err != nil {
				s.logger.Error("Reconciliation run failed", "error", err)
			}
			cancel()
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
