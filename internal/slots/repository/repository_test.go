package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	migrations "slotbook/internal/migrations/mongo"
	slotserrors "slotbook/internal/slots/errors"
	"slotbook/pkg/client"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newTestConfig connects to MONGO_TEST_URI (a replica set, for transactions)
// and migrates a throwaway database. Tests skip when it is unset.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	dbName := fmt.Sprintf("slotbook_test_%d", time.Now().UnixNano())
	log := logger.Discard()
	if err := migrations.RunMigration(ctx, mc.Database(dbName), log); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mc.Database(dbName).Drop(ctx)
		_ = mc.Disconnect(ctx)
	})

	return &config.Config{
		MongoDatabaseName: dbName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Log:               log,
		Client:            &client.Client{Mongo: mc},
	}
}

func seedDay(t *testing.T, repo SlotRepository, day time.Time) []*model.Slot {
	t.Helper()
	slots := make([]*model.Slot, 0, len(model.DailySchedule))
	for _, ts := range model.DailySchedule {
		slots = append(slots, model.NewOpenSlot(ts, day))
	}
	n, err := repo.InsertMany(context.Background(), slots)
	if err != nil || n != len(slots) {
		t.Fatalf("InsertMany() = %d, %v", n, err)
	}
	return slots
}

func TestSlotRepositorySeedAndQuery(t *testing.T) {
	cfg := newTestConfig(t)
	repo := NewMongoSlotRepository(cfg)
	ctx := context.Background()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	seedDay(t, repo, day)

	count, err := repo.CountByDay(ctx, day)
	if err != nil || count != 8 {
		t.Fatalf("CountByDay() = %d, %v", count, err)
	}

	next, err := repo.CountByDay(ctx, day.AddDate(0, 0, 1))
	if err != nil || next != 0 {
		t.Errorf("CountByDay(next day) = %d, %v", next, err)
	}

	slots, err := repo.FindByDay(ctx, day)
	if err != nil || len(slots) != 8 {
		t.Fatalf("FindByDay() = %d slots, %v", len(slots), err)
	}

	slot, err := repo.FindOne(ctx, model.Slot11AM, day)
	if err != nil {
		t.Fatalf("FindOne() error = %v", err)
	}
	if slot.TimeSlot != model.Slot11AM || !slot.IsOpen() {
		t.Errorf("slot = %+v", slot)
	}

	if _, err := repo.FindOne(ctx, model.Slot11AM, day.AddDate(0, 0, 2)); !errors.Is(err, slotserrors.ErrNotFound) {
		t.Errorf("FindOne(unseeded) error = %v", err)
	}
}

func TestSlotRepositoryDuplicateSeed(t *testing.T) {
	cfg := newTestConfig(t)
	repo := NewMongoSlotRepository(cfg)
	day := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	seedDay(t, repo, day)

	again := []*model.Slot{
		model.NewOpenSlot(model.Slot9AM, day),
		model.NewOpenSlot(model.Slot10AM, day.AddDate(0, 0, 1)),
	}
	n, err := repo.InsertMany(context.Background(), again)
	if !errors.Is(err, slotserrors.ErrDuplicate) {
		t.Fatalf("InsertMany() error = %v, want ErrDuplicate", err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1", n)
	}

	count, _ := repo.CountByDay(context.Background(), day)
	if count != 8 {
		t.Errorf("count = %d, want 8", count)
	}
}

func TestSlotRepositoryBookingTransitions(t *testing.T) {
	cfg := newTestConfig(t)
	repo := NewMongoSlotRepository(cfg)
	ctx := context.Background()
	slots := seedDay(t, repo, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	id := slots[0].ID
	customerID := primitive.NewObjectID()

	if err := repo.MarkBooked(ctx, id, customerID); err != nil {
		t.Fatalf("MarkBooked() error = %v", err)
	}
	if err := repo.MarkBooked(ctx, id, primitive.NewObjectID()); !errors.Is(err, slotserrors.ErrAlreadyBooked) {
		t.Errorf("second MarkBooked() error = %v, want ErrAlreadyBooked", err)
	}
	if err := repo.MarkBooked(ctx, primitive.NewObjectID(), customerID); !errors.Is(err, slotserrors.ErrNotFound) {
		t.Errorf("MarkBooked(missing) error = %v, want ErrNotFound", err)
	}

	got, err := repo.FindByID(ctx, id.Hex())
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !got.IsBooked || got.CustomerID == nil || *got.CustomerID != customerID || !got.Consistent() {
		t.Errorf("booked slot = %+v", got)
	}

	if err := repo.Release(ctx, id); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	got, _ = repo.FindByID(ctx, id.Hex())
	if got.IsBooked || got.CustomerID != nil || !got.Consistent() {
		t.Errorf("released slot = %+v", got)
	}

	if _, err := repo.FindByID(ctx, "not-an-id"); !errors.Is(err, slotserrors.ErrInvalidID) {
		t.Errorf("FindByID(malformed) error = %v", err)
	}
}

func TestCustomerRepositoryCRUD(t *testing.T) {
	cfg := newTestConfig(t)
	repo := NewMongoCustomerRepository(cfg)
	ctx := context.Background()

	customer := model.NewCustomer(model.CustomerDetails{FirstName: "Asha", LastName: "Rao", Phone: "+919876543210"})
	if err := repo.Create(ctx, customer); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if customer.ID.IsZero() {
		t.Fatal("id not assigned")
	}

	updated, err := repo.Update(ctx, customer.ID, model.CustomerDetails{FirstName: "Ravi", LastName: "Rao", Phone: "123"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.FirstName != "Ravi" || updated.Phone != "123" {
		t.Errorf("updated = %+v", updated)
	}

	found, err := repo.FindByIDs(ctx, []primitive.ObjectID{customer.ID, primitive.NewObjectID()})
	if err != nil || len(found) != 1 {
		t.Errorf("FindByIDs() = %v, %v", found, err)
	}

	if err := repo.Delete(ctx, customer.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.FindByID(ctx, customer.ID); !errors.Is(err, slotserrors.ErrCustomerNotFound) {
		t.Errorf("FindByID(deleted) error = %v", err)
	}
	if err := repo.Delete(ctx, customer.ID); !errors.Is(err, slotserrors.ErrCustomerNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	cfg := newTestConfig(t)
	slots := NewMongoSlotRepository(cfg)
	customers := NewMongoCustomerRepository(cfg)
	ctx := context.Background()
	seeded := seedDay(t, slots, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC))

	customer := model.NewCustomer(model.CustomerDetails{FirstName: "A", LastName: "B", Phone: "1"})
	boom := errors.New("abort")
	err := slots.ExecuteTransaction(ctx, func(uow mongotx.UnitOfWork) error {
		if err := customers.Create(uow, customer); err != nil {
			return err
		}
		if err := slots.MarkBooked(uow, seeded[0].ID, customer.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ExecuteTransaction() error = %v", err)
	}

	if _, err := customers.FindByID(ctx, customer.ID); !errors.Is(err, slotserrors.ErrCustomerNotFound) {
		t.Errorf("customer survived rollback: %v", err)
	}
	got, _ := slots.FindByID(ctx, seeded[0].ID.Hex())
	if got.IsBooked {
		t.Error("slot booking survived rollback")
	}
}
