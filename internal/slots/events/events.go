package events

import (
	"context"
	"slotbook/pkg/model"
	"time"
)

const (
	TypeSlotBooked    = "slot.booked"
	TypeSlotUpdated   = "slot.updated"
	TypeSlotCancelled = "slot.cancelled"
	TypeSlotsSeeded   = "slots.seeded"

	SchemaVersion = "1"
)

// Event describes a committed change to a slot or to a day's slots.
type Event struct {
	Type       string         `json:"type"`
	SlotID     string         `json:"slotId,omitempty"`
	TimeSlot   model.TimeSlot `json:"timeSlot,omitempty"`
	Date       string         `json:"date"`
	CustomerID string         `json:"customerId,omitempty"`
	Count      int            `json:"count,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Key picks the partition key: the slot for slot events, the day otherwise.
func (e Event) Key() string {
	if e.SlotID != "" {
		return e.SlotID
	}
	return e.Date
}

func SlotEvent(eventType string, slot *model.Slot) Event {
	evt := Event{
		Type:       eventType,
		SlotID:     slot.ID.Hex(),
		TimeSlot:   slot.TimeSlot,
		Date:       slot.Date.Format(model.DayLayout),
		OccurredAt: time.Now().UTC(),
	}
	if slot.CustomerID != nil {
		evt.CustomerID = slot.CustomerID.Hex()
	}
	return evt
}

func SeededEvent(day time.Time, count int) Event {
	return Event{
		Type:       TypeSlotsSeeded,
		Date:       day.Format(model.DayLayout),
		Count:      count,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

func (noopPublisher) Close() error { return nil }
