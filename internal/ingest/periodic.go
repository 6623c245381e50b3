package ingest

import (
	"context"
	"log/slog"
	"time"
)

// PassRunner runs one ingest pass
type PassRunner interface {
	Run(ctx context.Context, opts Options) (Stats, error)
}

// Periodic re-runs an ingest pass on a fixed interval until stopped. The
// caller owns the first immediate run; Periodic only handles the ticks.
type Periodic struct {
	runner   PassRunner
	opts     Options
	interval time.Duration
	logger   *slog.Logger
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewPeriodic creates a Periodic runner
func NewPeriodic(runner PassRunner, opts Options, interval time.Duration, logger *slog.Logger) *Periodic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Periodic{
		runner:   runner,
		opts:     opts,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the ticking loop and blocks until the context is cancelled
// or Stop is called
func (p *Periodic) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer close(p.doneChan)

	p.logger.Info("periodic ingest started", "interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("periodic ingest stopped", "reason", "context cancelled")
			return
		case <-p.stopChan:
			p.logger.Info("periodic ingest stopped", "reason", "stop requested")
			return
		case <-ticker.C:
			if _, err := p.runner.Run(ctx, p.opts); err != nil {
				p.logger.Error("scheduled ingest run failed", "error", err.Error())
			}
		}
	}
}

// Stop signals the loop to exit and waits for it to finish
func (p *Periodic) Stop() {
	close(p.stopChan)
	<-p.doneChan
	p.logger.Info("periodic ingest shutdown complete")
}
