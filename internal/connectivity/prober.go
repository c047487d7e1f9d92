package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Checker tests whether the remote side is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// Prober is an Observer fed by periodic Ping calls. It starts Offline and
// notifies subscribers only when a probe flips the status.
type Prober struct {
	broadcaster

	checker  Checker
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	scheduler *gocron.Scheduler
}

// NewProber creates a Prober that pings checker every interval.
func NewProber(checker Checker, interval time.Duration, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := interval / 2
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &Prober{
		checker:  checker,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start runs one probe immediately and then schedules the rest.
func (p *Prober) Start() error {
	if p.interval <= 0 {
		return fmt.Errorf("probe interval must be positive, got %s", p.interval)
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(p.interval).Do(p.probe); err != nil {
		return fmt.Errorf("schedule probe: %w", err)
	}
	p.scheduler = s
	s.StartAsync()
	return nil
}

// Stop halts the schedule. A probe already running finishes.
func (p *Prober) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}

// Check runs a single probe and returns the resulting status.
func (p *Prober) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	status := Online
	if err := p.checker.Ping(ctx); err != nil {
		status = Offline
		p.logger.Debug("connectivity probe failed", "err", err)
	}
	if p.set(status) {
		p.logger.Info("connectivity changed", "status", status.String())
	}
	return status
}

func (p *Prober) probe() {
	p.Check(context.Background())
}
