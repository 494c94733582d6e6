package events

import (
	"context"
	"slotbook/pkg/kafka"
	"slotbook/pkg/middleware"
	"slotbook/pkg/model"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockProducer struct {
	messages []kafka.Message
	ctxErr   error
	closed   bool
}

func (m *mockProducer) Publish(ctx context.Context, msg kafka.Message) error {
	m.ctxErr = ctx.Err()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockProducer) Close() error {
	m.closed = true
	return nil
}

func bookedSlot() *model.Slot {
	slot := model.NewOpenSlot(model.Slot9AM, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	slot.ID = primitive.NewObjectID()
	slot.Book(primitive.NewObjectID())
	return slot
}

func TestSlotEvent(t *testing.T) {
	slot := bookedSlot()
	evt := SlotEvent(TypeSlotBooked, slot)

	if evt.SlotID != slot.ID.Hex() || evt.CustomerID != slot.CustomerID.Hex() {
		t.Errorf("evt = %+v", evt)
	}
	if evt.Date != "2024-06-01" {
		t.Errorf("Date = %q", evt.Date)
	}
	if evt.Key() != slot.ID.Hex() {
		t.Errorf("Key() = %q", evt.Key())
	}

	seeded := SeededEvent(slot.Date, 8)
	if seeded.Key() != "2024-06-01" || seeded.Count != 8 {
		t.Errorf("seeded = %+v", seeded)
	}
}

func TestKafkaPublisher(t *testing.T) {
	producer := &mockProducer{}
	pub := NewKafkaPublisher(producer, "slots", time.Second)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), middleware.RequestIDKey, "req-42"))
	cancel()

	slot := bookedSlot()
	if err := pub.Publish(ctx, SlotEvent(TypeSlotBooked, slot)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(producer.messages) != 1 {
		t.Fatalf("messages = %d", len(producer.messages))
	}
	msg := producer.messages[0]
	if msg.Key != slot.ID.Hex() {
		t.Errorf("key = %q", msg.Key)
	}
	if msg.GetEventType() != TypeSlotBooked || msg.GetCorrelationID() != "req-42" {
		t.Errorf("headers = %v", msg.Headers)
	}
	if msg.Headers[kafka.HeaderSource] != "slots" {
		t.Errorf("source = %q", msg.Headers[kafka.HeaderSource])
	}
	if producer.ctxErr != nil {
		t.Errorf("publish context inherited cancellation: %v", producer.ctxErr)
	}

	var decoded Event
	if err := msg.DecodeValue(&decoded); err != nil || decoded.Type != TypeSlotBooked {
		t.Errorf("payload = %+v, %v", decoded, err)
	}

	if err := pub.Close(); err != nil || !producer.closed {
		t.Errorf("Close() = %v, closed %v", err, producer.closed)
	}
}

func TestNoopPublisher(t *testing.T) {
	pub := NewNoopPublisher()
	if err := pub.Publish(context.Background(), Event{Type: TypeSlotBooked}); err != nil {
		t.Errorf("Publish() = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
