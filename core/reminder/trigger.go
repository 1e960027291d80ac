package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/ada/core"
)

type Runner interface {
	Run(ctx context.Context) (Summary, error)
}

type TriggerConfig struct {
	// Hour and Minute (24h, local time of the clock) at which the job runs each day.
	Hour   int
	Minute int

	// CheckInterval is how often the clock is checked.
	CheckInterval time.Duration
}

// Trigger runs a Runner once a day.
type Trigger struct {
	config TriggerConfig
	runner Runner
	logger core.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string

	NowFunc func() time.Time
}

func NewTrigger(config TriggerConfig, runner Runner, logger core.Logger) *Trigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &Trigger{
		config:  config,
		runner:  runner,
		logger:  logger,
		NowFunc: time.Now,
	}
}

func (t *Trigger) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return
	}
	t.isRunning = true

	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info(fmt.Sprintf("reminder trigger started: daily at %02d:%02d", t.config.Hour, t.config.Minute))
}

// Stop cancels the loop and waits for an ongoing run to return, or for ctx to be done.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("reminder trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndRun(ctx)
		}
	}
}

// checkAndRun runs the job if it is time and it has not run yet today.
// It reports whether the job was run.
func (t *Trigger) checkAndRun(ctx context.Context) bool {
	now := t.NowFunc()
	today := now.Format("2006-01-02")

	t.mu.Lock()
	if t.lastRunDate == today || now.Hour() != t.config.Hour || now.Minute() < t.config.Minute {
		t.mu.Unlock()
		return false
	}
	t.lastRunDate = today
	t.mu.Unlock()

	sum, err := t.runner.Run(ctx)
	if err != nil {
		t.logger.Error(fmt.Sprintf("reminder run failed: %v", err), err)
		return true
	}
	t.logger.Info("reminder run done: " + sum.String())
	return true
}
