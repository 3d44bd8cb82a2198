package serve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// startRevalidate rebuilds the site every interval. A run that is still
// going when the next one is due is skipped.
func (s *Server) startRevalidate(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.revalidate),
		gocron.WithName("revalidate"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to create revalidate job: %w", err)
	}
	s.scheduler = sched
	sched.Start()
	slog.Info("revalidation scheduled", slog.Duration("interval", interval))
	return nil
}

func (s *Server) revalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_ = s.Rebuild(ctx)
}
