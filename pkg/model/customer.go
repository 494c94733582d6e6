package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer holds the contact details attached to exactly one booked slot.
type Customer struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	FirstName string             `json:"firstName" bson:"first_name"`
	LastName  string             `json:"lastName" bson:"last_name"`
	Phone     string             `json:"phone" bson:"phone"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updated_at"`
}

type CustomerDetails struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"required,max=32"`
}

func NewCustomer(details CustomerDetails) *Customer {
	return &Customer{
		FirstName: details.FirstName,
		LastName:  details.LastName,
		Phone:     details.Phone,
	}
}
