package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/metrics"
)

// CycleFunc performs one reconciliation cycle.
type CycleFunc func(ctx context.Context) error

// Loop runs a cycle immediately on start, then on every tick and on demand.
// Ticks and triggers are served by the same goroutine, so two cycles never
// run at the same time.
type Loop struct {
	name     string
	interval time.Duration
	cycle    CycleFunc
	logger   logger.Logger

	trigger chan struct{}
	stopCh  chan struct{}
	done    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewLoop creates a loop; name labels logs and metrics.
func NewLoop(name string, interval time.Duration, cycle CycleFunc, log logger.Logger) *Loop {
	return &Loop{
		name:     name,
		interval: interval,
		cycle:    cycle,
		logger:   log,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the loop goroutine. It returns immediately; the first
// cycle runs in the background.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		go l.run(ctx)
	})
}

// Trigger asks for an out-of-band cycle. It never blocks: when a trigger
// is already pending the request is dropped and false is returned.
func (l *Loop) Trigger() bool {
	select {
	case l.trigger <- struct{}{}:
		return true
	default:
		l.logger.Info("refresh already pending, trigger dropped",
			logger.String("loop", l.name))
		metrics.TriggerDropped(l.name)
		return false
	}
}

// Stop ends the loop and waits for the running cycle to finish.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	// a loop that never started has nothing to wait for
	l.startOnce.Do(func() { close(l.done) })
	<-l.done
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	l.runCycle(ctx, "start")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.runCycle(ctx, "timer")
		case <-l.trigger:
			l.logger.Info("manual refresh triggered", logger.String("loop", l.name))
			l.runCycle(ctx, "trigger")
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) runCycle(ctx context.Context, reason string) {
	start := time.Now()
	err := l.cycle(ctx)
	elapsed := time.Since(start)
	metrics.ObserveCycle(l.name, elapsed.Seconds())

	if err != nil {
		l.logger.Error("cycle failed",
			logger.String("loop", l.name),
			logger.String("reason", reason),
			logger.Error(err))
		return
	}
	l.logger.Debug("cycle completed",
		logger.String("loop", l.name),
		logger.String("reason", reason),
		logger.Duration("took", elapsed))
}
