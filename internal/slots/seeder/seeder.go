package seeder

import (
	"context"
	"errors"
	"fmt"
	slotserrors "slotbook/internal/slots/errors"
	"slotbook/internal/slots/events"
	"slotbook/internal/slots/repository"
	"slotbook/pkg/config"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"time"
)

// Seeder makes sure every day has its full schedule of open slots.
type Seeder struct {
	slots     repository.SlotRepository
	publisher events.Publisher
	loc       *time.Location
	log       *logger.Logger
}

func NewSeeder(slots repository.SlotRepository, publisher events.Publisher, cfg *config.Config) *Seeder {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	loc := cfg.SlotLocation
	if loc == nil {
		loc = time.UTC
	}
	return &Seeder{
		slots:     slots,
		publisher: publisher,
		loc:       loc,
		log:       cfg.Log.Component("seeder"),
	}
}

// EnsureSlotsForDate inserts the daily schedule for the calendar day of date
// unless that day already has slots. It returns how many slots it inserted.
// Losing an insert race to another seeder is not an error.
func (s *Seeder) EnsureSlotsForDate(ctx context.Context, date time.Time) (int, error) {
	day := model.DayOf(date, s.loc)
	dayStr := day.Format(model.DayLayout)

	existing, err := s.slots.CountByDay(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("count slots for %s: %w", dayStr, err)
	}
	if existing > 0 {
		s.log.Debug("Slots already exist", "date", dayStr, "count", existing)
		return 0, nil
	}

	slots := make([]*model.Slot, 0, len(model.DailySchedule))
	for _, ts := range model.DailySchedule {
		slots = append(slots, model.NewOpenSlot(ts, day))
	}

	inserted, err := s.slots.InsertMany(ctx, slots)
	if err != nil {
		if !errors.Is(err, slotserrors.ErrDuplicate) {
			return inserted, fmt.Errorf("insert slots for %s: %w", dayStr, err)
		}
		s.log.Info("Concurrent seeding detected", "date", dayStr, "inserted", inserted)
	}

	if inserted > 0 {
		s.log.Info("Seeded slots", "date", dayStr, "count", inserted)
		if err := s.publisher.Publish(ctx, events.SeededEvent(day, inserted)); err != nil {
			s.log.Warn("Failed to publish seed event", "date", dayStr, "error", err)
		}
	}
	return inserted, nil
}
