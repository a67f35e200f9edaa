package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a periodic cleanup step. It returns how many items it removed.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Sweeper runs jobs on a fixed interval until its context ends.
type Sweeper struct {
	interval time.Duration
	jobs     []Job
	logger   *zap.Logger
}

// NewSweeper creates a sweeper.
func NewSweeper(interval time.Duration, logger *zap.Logger, jobs ...Job) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{interval: interval, jobs: jobs, logger: logger}
}

// Start runs the loop in a goroutine. The returned channel closes when the
// loop has stopped.
func (s *Sweeper) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
	return done
}

// RunOnce executes every job once. A failing job does not stop the others.
func (s *Sweeper) RunOnce(ctx context.Context) {
	for _, job := range s.jobs {
		removed, err := job.Run(ctx)
		if err != nil {
			s.logger.Warn("sweep failed", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		if removed > 0 {
			s.logger.Debug("sweep", zap.String("job", job.Name), zap.Int("removed", removed))
		}
	}
}
