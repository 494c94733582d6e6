package repository

import (
	"context"
	"errors"
	"fmt"
	slotserrors "slotbook/internal/slots/errors"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	"slotbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SlotsCollectionName = "Slots"
)

type SlotRepository interface {
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByDay(ctx context.Context, day time.Time) ([]*model.Slot, error)
	FindOne(ctx context.Context, timeSlot model.TimeSlot, day time.Time) (*model.Slot, error)
	CountByDay(ctx context.Context, day time.Time) (int64, error)
	InsertMany(ctx context.Context, slots []*model.Slot) (int, error)
	MarkBooked(ctx context.Context, id primitive.ObjectID, customerID primitive.ObjectID) error
	SetCustomer(ctx context.Context, id primitive.ObjectID, customerID primitive.ObjectID) error
	Release(ctx context.Context, id primitive.ObjectID) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(SlotsCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout bounds ctx by timeout unless it is a transaction's session
// context, which must be passed through untouched to stay in the transaction.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}

	return context.WithTimeout(ctx, timeout)
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	return objectID, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var slot model.Slot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func dayFilter(day time.Time) bson.M {
	start, end := model.DayRange(day)
	return bson.M{"date": bson.M{"$gte": start, "$lt": end}}
}

func (r *mongoSlotRepository) FindByDay(ctx context.Context, day time.Time) ([]*model.Slot, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, dayFilter(day))
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []*model.Slot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) FindOne(ctx context.Context, timeSlot model.TimeSlot, day time.Time) (*model.Slot, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := dayFilter(day)
	filter["time_slot"] = timeSlot

	var slot model.Slot
	err := r.collection.FindOne(ctx, filter).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) CountByDay(ctx context.Context, day time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, dayFilter(day))
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

// InsertMany inserts slots in one unordered batch and returns how many were
// written. Rows rejected by the unique index are skipped; if any were, the
// returned error wraps ErrDuplicate.
func (r *mongoSlotRepository) InsertMany(ctx context.Context, slots []*model.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ts := now()
	docs := make([]any, 0, len(slots))
	for _, slot := range slots {
		if slot.ID.IsZero() {
			slot.ID = primitive.NewObjectID()
		}
		slot.CreatedAt = ts
		slot.UpdatedAt = ts
		docs = append(docs, slot)
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			var bulkErr mongo.BulkWriteException
			if errors.As(err, &bulkErr) {
				return len(slots) - len(bulkErr.WriteErrors), fmt.Errorf("%w: %v", slotserrors.ErrDuplicate, err)
			}
			return 0, fmt.Errorf("%w: %v", slotserrors.ErrDuplicate, err)
		}
		return 0, fmt.Errorf("failed to insert slots: %w", err)
	}

	return len(slots), nil
}

// MarkBooked moves an open slot to booked. It only matches open slots, so a
// concurrent booking that committed first yields ErrAlreadyBooked.
func (r *mongoSlotRepository) MarkBooked(ctx context.Context, id primitive.ObjectID, customerID primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": model.SlotOpen}
	result, err := r.collection.UpdateOne(ctx, filter, bookedUpdate(customerID))
	if err != nil {
		return fmt.Errorf("failed to book slot: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missingOrBooked(ctx, id)
	}
	return nil
}

// SetCustomer points a slot at customerID regardless of its current state.
func (r *mongoSlotRepository) SetCustomer(ctx context.Context, id primitive.ObjectID, customerID primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bookedUpdate(customerID))
	if err != nil {
		return fmt.Errorf("failed to rebind slot customer: %w", err)
	}
	if result.MatchedCount == 0 {
		return slotserrors.ErrNotFound
	}
	return nil
}

func (r *mongoSlotRepository) Release(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"status":      model.SlotOpen,
			"customer_id": nil,
			"is_booked":   false,
			"updated_at":  now(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	if result.MatchedCount == 0 {
		return slotserrors.ErrNotFound
	}
	return nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func bookedUpdate(customerID primitive.ObjectID) bson.M {
	return bson.M{
		"$set": bson.M{
			"status":      model.SlotBooked,
			"customer_id": customerID,
			"is_booked":   true,
			"updated_at":  now(),
		},
	}
}

func (r *mongoSlotRepository) missingOrBooked(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check slot: %w", err)
	}
	if count == 0 {
		return slotserrors.ErrNotFound
	}
	return slotserrors.ErrAlreadyBooked
}
