package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Jobs — периодические задачи бота.
type Jobs interface {
	CleanupChats(ctx context.Context)
}

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// New создаёт планировщик в зоне бота: «0 3 * * *» — это три ночи по Киеву,
// а не по UTC хоста.
func New(loc *time.Location, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		log:  log,
	}
}

func (s *Scheduler) Start(cleanupSpec string, jobs Jobs) error {
	_, err := s.cron.AddFunc(cleanupSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		jobs.CleanupChats(ctx)
	})
	if err != nil {
		return fmt.Errorf("cleanup job %q: %w", cleanupSpec, err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", "cleanup", cleanupSpec)
	return nil
}

// Stop ждёт завершения уже запущенных задач.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
