package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// periodic runs task on a fixed interval until stopped. The first run
// happens after delay so dependent services can finish starting.
type periodic struct {
	name     string
	interval time.Duration
	delay    time.Duration
	timeout  time.Duration
	task     func(ctx context.Context) error

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func newPeriodic(name string, interval, delay, timeout time.Duration, task func(ctx context.Context) error) *periodic {
	return &periodic{
		name:     name,
		interval: interval,
		delay:    delay,
		timeout:  timeout,
		task:     task,
	}
}

// Start begins the loop. Calling Start on a running job is a no-op.
func (p *periodic) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(p.stopCh)
	slog.Info("job started", slog.String("job", p.name), slog.Duration("interval", p.interval))
}

// Stop ends the loop and waits for an in-flight run to return
func (p *periodic) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	slog.Info("job stopped", slog.String("job", p.name))
}

// IsRunning returns whether the loop is active
func (p *periodic) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *periodic) run(stop <-chan struct{}) {
	defer p.wg.Done()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-stop:
			return
		}
	}
	p.tick()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-stop:
			return
		}
	}
}

func (p *periodic) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.task(ctx); err != nil {
		slog.Error("job run failed", slog.String("job", p.name), slog.String("error", err.Error()))
	}
}
