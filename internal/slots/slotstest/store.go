// Package slotstest provides in-memory stores for testing code built on the
// slot and customer repositories.
package slotstest

import (
	"context"
	"fmt"
	slotserrors "slotbook/internal/slots/errors"
	"slotbook/internal/slots/repository"
	mongotx "slotbook/pkg/db/mongo"
	"slotbook/pkg/model"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	_ repository.SlotRepository     = (*SlotRepo)(nil)
	_ repository.CustomerRepository = (*CustomerRepo)(nil)
)

// Store holds both collections. Transactions are serialized and roll back
// every change when the callback fails.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	slots     map[primitive.ObjectID]model.Slot
	customers map[primitive.ObjectID]model.Customer

	// Injected failures, checked before the matching operation runs.
	FindErr      error
	InsertErr    error
	CreateErr    error
	MarkErr      error
	CountErr     error
	Transactions int
}

func NewStore() *Store {
	return &Store{
		slots:     make(map[primitive.ObjectID]model.Slot),
		customers: make(map[primitive.ObjectID]model.Customer),
	}
}

func (s *Store) Slots() *SlotRepo { return &SlotRepo{s: s} }

func (s *Store) Customers() *CustomerRepo { return &CustomerRepo{s: s} }

// SeedDay inserts the full schedule for day and returns the slots.
func (s *Store) SeedDay(day time.Time) []*model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Slot, 0, len(model.DailySchedule))
	for _, ts := range model.DailySchedule {
		slot := model.NewOpenSlot(ts, day)
		slot.ID = primitive.NewObjectID()
		s.slots[slot.ID] = *slot
		copied := *slot
		out = append(out, &copied)
	}
	return out
}

func (s *Store) PutCustomer(c model.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *Store) DeleteCustomer(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.customers, id)
}

func (s *Store) Slot(id primitive.ObjectID) (model.Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	return slot, ok
}

func (s *Store) SlotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func (s *Store) CustomerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.customers)
}

func (s *Store) snapshot() (map[primitive.ObjectID]model.Slot, map[primitive.ObjectID]model.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := make(map[primitive.ObjectID]model.Slot, len(s.slots))
	for k, v := range s.slots {
		slots[k] = v
	}
	customers := make(map[primitive.ObjectID]model.Customer, len(s.customers))
	for k, v := range s.customers {
		customers[k] = v
	}
	return slots, customers
}

func (s *Store) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.Transactions++
	s.mu.Unlock()

	slots, customers := s.snapshot()
	if err := fn(mongo.NewSessionContext(ctx, nil)); err != nil {
		s.mu.Lock()
		s.slots, s.customers = slots, customers
		s.mu.Unlock()
		return err
	}
	return nil
}

type SlotRepo struct {
	s *Store
}

func (r *SlotRepo) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FindErr != nil {
		return nil, r.s.FindErr
	}
	slot, ok := r.s.slots[oid]
	if !ok {
		return nil, slotserrors.ErrNotFound
	}
	return &slot, nil
}

func inDay(slot model.Slot, day time.Time) bool {
	start, end := model.DayRange(day)
	return !slot.Date.Before(start) && slot.Date.Before(end)
}

func (r *SlotRepo) FindByDay(ctx context.Context, day time.Time) ([]*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FindErr != nil {
		return nil, r.s.FindErr
	}
	out := []*model.Slot{}
	for _, slot := range r.s.slots {
		if inDay(slot, day) {
			copied := slot
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *SlotRepo) FindOne(ctx context.Context, timeSlot model.TimeSlot, day time.Time) (*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FindErr != nil {
		return nil, r.s.FindErr
	}
	for _, slot := range r.s.slots {
		if slot.TimeSlot == timeSlot && inDay(slot, day) {
			copied := slot
			return &copied, nil
		}
	}
	return nil, slotserrors.ErrNotFound
}

func (r *SlotRepo) CountByDay(ctx context.Context, day time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CountErr != nil {
		return 0, r.s.CountErr
	}
	var n int64
	for _, slot := range r.s.slots {
		if inDay(slot, day) {
			n++
		}
	}
	return n, nil
}

// InsertMany enforces the (time_slot, date) unique index.
func (r *SlotRepo) InsertMany(ctx context.Context, slots []*model.Slot) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.InsertErr != nil {
		return 0, r.s.InsertErr
	}

	inserted, duplicates := 0, 0
	for _, slot := range slots {
		dup := false
		for _, existing := range r.s.slots {
			if existing.TimeSlot == slot.TimeSlot && existing.Date.Equal(slot.Date) {
				dup = true
				break
			}
		}
		if dup {
			duplicates++
			continue
		}
		if slot.ID.IsZero() {
			slot.ID = primitive.NewObjectID()
		}
		r.s.slots[slot.ID] = *slot
		inserted++
	}
	if duplicates > 0 {
		return inserted, fmt.Errorf("%w: %d duplicate rows", slotserrors.ErrDuplicate, duplicates)
	}
	return inserted, nil
}

func (r *SlotRepo) MarkBooked(ctx context.Context, id primitive.ObjectID, customerID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.MarkErr != nil {
		return r.s.MarkErr
	}
	slot, ok := r.s.slots[id]
	if !ok {
		return slotserrors.ErrNotFound
	}
	if !slot.IsOpen() {
		return slotserrors.ErrAlreadyBooked
	}
	slot.Book(customerID)
	r.s.slots[id] = slot
	return nil
}

func (r *SlotRepo) SetCustomer(ctx context.Context, id primitive.ObjectID, customerID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return slotserrors.ErrNotFound
	}
	slot.Book(customerID)
	r.s.slots[id] = slot
	return nil
}

func (r *SlotRepo) Release(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return slotserrors.ErrNotFound
	}
	slot.Release()
	r.s.slots[id] = slot
	return nil
}

func (r *SlotRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.s.ExecuteTransaction(ctx, fn)
}

type CustomerRepo struct {
	s *Store
}

func (r *CustomerRepo) Create(ctx context.Context, customer *model.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CreateErr != nil {
		return r.s.CreateErr
	}
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	r.s.customers[customer.ID] = *customer
	return nil
}

func (r *CustomerRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, slotserrors.ErrCustomerNotFound
	}
	return &c, nil
}

func (r *CustomerRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[primitive.ObjectID]*model.Customer, len(ids))
	for _, id := range ids {
		if c, ok := r.s.customers[id]; ok {
			copied := c
			out[id] = &copied
		}
	}
	return out, nil
}

func (r *CustomerRepo) Update(ctx context.Context, id primitive.ObjectID, details model.CustomerDetails) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, slotserrors.ErrCustomerNotFound
	}
	c.FirstName, c.LastName, c.Phone = details.FirstName, details.LastName, details.Phone
	r.s.customers[id] = c
	return &c, nil
}

func (r *CustomerRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.customers[id]; !ok {
		return slotserrors.ErrCustomerNotFound
	}
	delete(r.s.customers, id)
	return nil
}
