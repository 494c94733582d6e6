package seeder

import (
	"context"
	"fmt"
	"slotbook/pkg/config"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler seeds today and tomorrow on start and then seeds tomorrow on
// every tick of the configured cron schedule.
type Scheduler struct {
	seeder   *Seeder
	schedule string
	loc      *time.Location
	log      *logger.Logger
	now      func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewScheduler(seeder *Seeder, cfg *config.Config) *Scheduler {
	return &Scheduler{
		seeder:   seeder,
		schedule: cfg.SeedSchedule,
		loc:      seeder.loc,
		log:      cfg.Log.Component("seed-scheduler"),
		now:      time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("seed scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)

	today := s.now()
	s.seed(runCtx, today)
	s.seed(runCtx, today.AddDate(0, 0, 1))

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(
			cron.Recover(cronLogger{s.log}),
			cron.SkipIfStillRunning(cronLogger{s.log}),
		),
	)
	if _, err := c.AddFunc(s.schedule, func() { s.seedUpcoming(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid seed schedule %q: %w", s.schedule, err)
	}
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.log.Info("Seed scheduler started", "schedule", s.schedule, "time_zone", s.loc.String())
	return nil
}

// Stop cancels pending runs and waits for an in-flight one to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.cron = nil
	s.log.Info("Seed scheduler stopped")
}

func (s *Scheduler) seedUpcoming(ctx context.Context) {
	s.seed(ctx, s.now().AddDate(0, 0, 1))
}

func (s *Scheduler) seed(ctx context.Context, date time.Time) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.seeder.EnsureSlotsForDate(ctx, date); err != nil {
		s.log.Error("Slot seeding failed", "date", date.In(s.loc).Format(model.DayLayout), "error", err)
	}
}

// cronLogger routes cron's own messages through the service logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
