package jobs

import (
	"context"
	"log/slog"
	"time"
)

// StoryPruner deletes stories past their 24h lifetime
type StoryPruner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// StoryCleanup removes expired stories and their media files
type StoryCleanup struct {
	*periodic
	stories StoryPruner
}

// NewStoryCleanup creates the story cleanup job. A zero interval means hourly.
func NewStoryCleanup(stories StoryPruner, interval time.Duration) *StoryCleanup {
	if interval == 0 {
		interval = time.Hour
	}
	j := &StoryCleanup{stories: stories}
	j.periodic = newPeriodic("story_cleanup", interval, 5*time.Second, 10*time.Minute, j.RunOnce)
	return j
}

// RunOnce deletes the currently expired stories
func (j *StoryCleanup) RunOnce(ctx context.Context) error {
	n, err := j.stories.CleanupExpired(ctx)
	if n > 0 {
		slog.Info("expired stories removed", slog.String("job", "story_cleanup"), slog.Int("count", n))
	}
	return err
}
