package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SlotStatus string

const (
	SlotOpen   SlotStatus = "open"
	SlotBooked SlotStatus = "booked"
)

// Slot is a bookable (time slot, day) pair. Status and CustomerID form a
// tagged state: CustomerID is set iff Status is SlotBooked. IsBooked mirrors
// the status for clients and queries. Use Book and Release to change state.
type Slot struct {
	ID         primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	TimeSlot   TimeSlot            `json:"timeSlot" bson:"time_slot"`
	Date       time.Time           `json:"date" bson:"date"`
	Status     SlotStatus          `json:"-" bson:"status"`
	CustomerID *primitive.ObjectID `json:"-" bson:"customer_id"`
	IsBooked   bool                `json:"isBooked" bson:"is_booked"`
	CreatedAt  time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time           `json:"updatedAt" bson:"updated_at"`
}

func NewOpenSlot(ts TimeSlot, day time.Time) *Slot {
	return &Slot{
		TimeSlot: ts,
		Date:     DayOf(day, time.UTC),
		Status:   SlotOpen,
	}
}

func (s *Slot) IsOpen() bool {
	return s.Status != SlotBooked
}

func (s *Slot) Book(customerID primitive.ObjectID) {
	id := customerID
	s.Status = SlotBooked
	s.CustomerID = &id
	s.IsBooked = true
}

func (s *Slot) Release() {
	s.Status = SlotOpen
	s.CustomerID = nil
	s.IsBooked = false
}

// Consistent reports whether the stored fields agree with each other.
func (s *Slot) Consistent() bool {
	switch s.Status {
	case SlotBooked:
		return s.CustomerID != nil && s.IsBooked
	case SlotOpen, "":
		return s.CustomerID == nil && !s.IsBooked
	default:
		return false
	}
}

// Appointment is a slot together with the customer who booked it, if any.
type Appointment struct {
	*Slot
	User *Customer `json:"user"`
}

type BookingRequest struct {
	TimeSlot string `json:"timeSlot" validate:"required,timeslot"`
	Date     string `json:"date,omitempty" validate:"omitempty,day"`
	CustomerDetails
}
