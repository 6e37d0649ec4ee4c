package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// VideoWorkload is the processing side of the video service
type VideoWorkload interface {
	Process(ctx context.Context, videoID string) error
	Fail(ctx context.Context, videoID string, cause error)
	PendingIDs(ctx context.Context) ([]string, error)
}

// VideoProcessorConfig tunes the worker pool
type VideoProcessorConfig struct {
	Workers   int
	Attempts  int
	Backoff   time.Duration
	QueueSize int
	Timeout   time.Duration
}

func (c *VideoProcessorConfig) defaults() {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 5 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Minute
	}
}

// VideoProcessor transcodes uploaded videos on a bounded pool of workers.
// A job is retried with exponential backoff and marked failed after the
// last attempt.
type VideoProcessor struct {
	videos VideoWorkload
	cfg    VideoProcessorConfig

	queue   chan string
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewVideoProcessor creates a new video processor
func NewVideoProcessor(videos VideoWorkload, cfg VideoProcessorConfig) *VideoProcessor {
	cfg.defaults()
	return &VideoProcessor{
		videos: videos,
		cfg:    cfg,
		queue:  make(chan string, cfg.QueueSize),
	}
}

// Start launches the workers and re-queues videos left in PROCESSING
func (p *VideoProcessor) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(stop)
	}
	slog.Info("job started", slog.String("job", "video_processor"), slog.Int("workers", p.cfg.Workers))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	p.restore(ctx)
}

// Stop signals the workers and waits for in-flight jobs. Queued jobs stay
// PROCESSING and are restored on the next start.
func (p *VideoProcessor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	slog.Info("job stopped", slog.String("job", "video_processor"))
}

// IsRunning returns whether the workers are active
func (p *VideoProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Enqueue schedules a video. It reports false when the queue is full.
func (p *VideoProcessor) Enqueue(videoID string) bool {
	select {
	case p.queue <- videoID:
		return true
	default:
		slog.Warn("video queue full", slog.String("job", "video_processor"), slog.String("video_id", videoID))
		return false
	}
}

// RunOnce processes every pending video synchronously
func (p *VideoProcessor) RunOnce(ctx context.Context) error {
	ids, err := p.videos.PendingIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		p.handle(ctx, nil, id)
	}
	return nil
}

func (p *VideoProcessor) restore(ctx context.Context) {
	ids, err := p.videos.PendingIDs(ctx)
	if err != nil {
		slog.Error("failed to restore pending videos", slog.String("job", "video_processor"), slog.String("error", err.Error()))
		return
	}
	for _, id := range ids {
		p.Enqueue(id)
	}
	if len(ids) > 0 {
		slog.Info("pending videos restored", slog.String("job", "video_processor"), slog.Int("count", len(ids)))
	}
}

func (p *VideoProcessor) worker(stop <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-stop:
			return
		case id := <-p.queue:
			p.handle(context.Background(), stop, id)
		}
	}
}

// handle runs one job with retries. A nil stop channel never interrupts
// the backoff.
func (p *VideoProcessor) handle(parent context.Context, stop <-chan struct{}, videoID string) {
	var err error
	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		ctx, cancel := context.WithTimeout(parent, p.cfg.Timeout)
		err = p.videos.Process(ctx, videoID)
		cancel()
		if err == nil {
			return
		}

		slog.Warn("video processing attempt failed",
			slog.String("job", "video_processor"),
			slog.String("video_id", videoID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if attempt == p.cfg.Attempts {
			break
		}
		wait := p.cfg.Backoff << (attempt - 1)
		select {
		case <-time.After(wait):
		case <-stop:
			// left PROCESSING for the next start
			return
		case <-parent.Done():
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.videos.Fail(ctx, videoID, err)
}
