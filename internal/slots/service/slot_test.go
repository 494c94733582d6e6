package service

import (
	"context"
	"errors"
	"net/http"
	slotserrors "slotbook/internal/slots/errors"
	"slotbook/internal/slots/events"
	"slotbook/internal/slots/slotstest"
	"slotbook/internal/slots/validator"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type mockPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, evt events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store     *slotstest.Store
	publisher *mockPublisher
	svc       *slotService
	day       time.Time
	slots     []*model.Slot
}

// newFixture seeds 2024-06-01 and pins "now" to 10:00 IST on that day.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Log:                logger.Discard(),
		SlotLocation:       ist,
		PhoneDefaultRegion: "IN",
	}
	store := slotstest.NewStore()
	pub := &mockPublisher{}
	svc := NewSlotService(store.Slots(), store.Customers(), validator.NewSlotValidator(cfg.Log), pub, cfg).(*slotService)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, ist) }

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return &fixture{
		store:     store,
		publisher: pub,
		svc:       svc,
		day:       day,
		slots:     store.SeedDay(day),
	}
}

func bookingRequest(ts string) *model.BookingRequest {
	return &model.BookingRequest{
		TimeSlot: ts,
		Date:     "2024-06-01",
		CustomerDetails: model.CustomerDetails{
			FirstName: "A",
			LastName:  "B",
			Phone:     "123",
		},
	}
}

func assertAppError(t *testing.T, err error, code string, status int) *apperrors.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	if appErr.Code != code || appErr.StatusCode() != status {
		t.Fatalf("error = %s/%d (%s), want %s/%d", appErr.Code, appErr.StatusCode(), appErr.Message, code, status)
	}
	return appErr
}

func TestBookOpenSlot(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Book(context.Background(), bookingRequest("9AM-10AM"))
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if !appt.IsBooked || appt.User == nil || appt.User.FirstName != "A" {
		t.Fatalf("appointment = %+v", appt)
	}
	if !appt.Consistent() {
		t.Error("returned slot is inconsistent")
	}
	if f.store.CustomerCount() != 1 {
		t.Errorf("customers = %d, want 1", f.store.CustomerCount())
	}

	stored, _ := f.store.Slot(appt.ID)
	if !stored.IsBooked || stored.CustomerID == nil || *stored.CustomerID != appt.User.ID {
		t.Errorf("stored slot = %+v", stored)
	}
	if got := f.publisher.types(); len(got) != 1 || got[0] != events.TypeSlotBooked {
		t.Errorf("events = %v", got)
	}
}

func TestBookTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Book(ctx, bookingRequest("9AM-10AM")); err != nil {
		t.Fatalf("first Book() error = %v", err)
	}
	_, err := f.svc.Book(ctx, bookingRequest("9AM-10AM"))
	appErr := assertAppError(t, err, apperrors.CodeConflict, http.StatusBadRequest)
	if appErr.Message != MsgAlreadyBooked {
		t.Errorf("message = %q", appErr.Message)
	}
	if f.store.CustomerCount() != 1 {
		t.Errorf("customers = %d, want 1", f.store.CustomerCount())
	}
}

func TestBookConcurrent(t *testing.T) {
	f := newFixture(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), bookingRequest("2PM-3PM"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case apperrors.HasCode(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != n-1 {
		t.Errorf("successes = %d, conflicts = %d", successes, conflicts)
	}
	if f.store.CustomerCount() != 1 {
		t.Errorf("customers = %d, want 1", f.store.CustomerCount())
	}
	if f.store.SlotCount() != 8 {
		t.Errorf("slots = %d, want 8", f.store.SlotCount())
	}
}

func TestBookLostRaceRollsBackCustomer(t *testing.T) {
	f := newFixture(t)
	// Another writer booked the slot between the read and the conditional update.
	f.store.MarkErr = slotserrors.ErrAlreadyBooked

	_, err := f.svc.Book(context.Background(), bookingRequest("9AM-10AM"))
	assertAppError(t, err, apperrors.CodeConflict, http.StatusBadRequest)
	if f.store.CustomerCount() != 0 {
		t.Errorf("customers = %d, want 0 after rollback", f.store.CustomerCount())
	}
	if len(f.publisher.types()) != 0 {
		t.Error("event published for failed booking")
	}
}

func TestBookErrors(t *testing.T) {
	tests := []struct {
		name       string
		req        *model.BookingRequest
		setup      func(*fixture)
		wantCode   string
		wantStatus int
	}{
		{
			name:       "unseeded day",
			req:        &model.BookingRequest{TimeSlot: "9AM-10AM", Date: "2024-06-05", CustomerDetails: model.CustomerDetails{FirstName: "A", LastName: "B", Phone: "1"}},
			wantCode:   apperrors.CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing fields",
			req:        &model.BookingRequest{TimeSlot: "9AM-10AM"},
			wantCode:   apperrors.CodeValidation,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown time slot",
			req:        bookingRequest("8AM-9AM"),
			wantCode:   apperrors.CodeValidation,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "whitespace only names",
			req:        &model.BookingRequest{TimeSlot: "9AM-10AM", CustomerDetails: model.CustomerDetails{FirstName: "  ", LastName: "B", Phone: "1"}},
			wantCode:   apperrors.CodeValidation,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "customer insert fails",
			req:        bookingRequest("9AM-10AM"),
			setup:      func(f *fixture) { f.store.CreateErr = errors.New("disk full") },
			wantCode:   apperrors.CodeInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.svc.Book(context.Background(), tt.req)
			assertAppError(t, err, tt.wantCode, tt.wantStatus)
			if len(f.publisher.types()) != 0 {
				t.Error("event published for failed booking")
			}
		})
	}
}

func TestBookNotFoundMessage(t *testing.T) {
	f := newFixture(t)
	req := bookingRequest("9AM-10AM")
	req.Date = "2024-07-01"
	_, err := f.svc.Book(context.Background(), req)
	appErr := assertAppError(t, err, apperrors.CodeNotFound, http.StatusNotFound)
	if appErr.Message != "Appointment slot not found" {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestBookDefaultsToToday(t *testing.T) {
	f := newFixture(t)
	req := bookingRequest("4PM-5PM")
	req.Date = ""

	appt, err := f.svc.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if !appt.Date.Equal(f.day) {
		t.Errorf("date = %v, want %v", appt.Date, f.day)
	}
}

func TestBookNormalizesInput(t *testing.T) {
	f := newFixture(t)
	req := bookingRequest(" 9AM-10AM ")
	req.FirstName = "  Asha   Devi "
	req.Phone = "98765 43210"

	appt, err := f.svc.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if appt.User.FirstName != "Asha Devi" {
		t.Errorf("first name = %q", appt.User.FirstName)
	}
	if appt.User.Phone != "+919876543210" {
		t.Errorf("phone = %q", appt.User.Phone)
	}
}

func TestCancelThenBookAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, bookingRequest("9AM-10AM"))
	if err != nil {
		t.Fatal(err)
	}
	firstCustomer := first.User.ID

	cleared, err := f.svc.Cancel(ctx, first.ID.Hex())
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cleared.IsBooked || cleared.User != nil || cleared.CustomerID != nil {
		t.Errorf("cleared = %+v", cleared)
	}
	if f.store.CustomerCount() != 0 {
		t.Errorf("customers after cancel = %d", f.store.CustomerCount())
	}

	second, err := f.svc.Book(ctx, bookingRequest("9AM-10AM"))
	if err != nil {
		t.Fatalf("rebook error = %v", err)
	}
	if second.User.ID == firstCustomer {
		t.Error("rebooking reused the old customer")
	}

	want := []string{events.TypeSlotBooked, events.TypeSlotCancelled, events.TypeSlotBooked}
	got := f.publisher.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCancelErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Cancel(context.Background(), "not-an-id")
	assertAppError(t, err, apperrors.CodeInvalidInput, http.StatusBadRequest)

	_, err = f.svc.Cancel(context.Background(), primitive.NewObjectID().Hex())
	appErr := assertAppError(t, err, apperrors.CodeNotFound, http.StatusNotFound)
	if appErr.Message != "Appointment not found" {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestCancelOpenSlot(t *testing.T) {
	f := newFixture(t)
	appt, err := f.svc.Cancel(context.Background(), f.slots[3].ID.Hex())
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if appt.IsBooked {
		t.Error("slot should be open")
	}
}

func TestUpdateBookedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booked, err := f.svc.Book(ctx, bookingRequest("10AM-11AM"))
	if err != nil {
		t.Fatal(err)
	}

	updated, err := f.svc.Update(ctx, booked.ID.Hex(), &model.CustomerDetails{FirstName: "C", LastName: "D", Phone: "456"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.User.ID != booked.User.ID {
		t.Error("update should keep the same customer")
	}
	if updated.User.FirstName != "C" || updated.User.Phone != "456" {
		t.Errorf("user = %+v", updated.User)
	}
	if f.store.CustomerCount() != 1 {
		t.Errorf("customers = %d", f.store.CustomerCount())
	}
}

func TestUpdateOpenSlotBooksIt(t *testing.T) {
	f := newFixture(t)
	id := f.slots[2].ID

	appt, err := f.svc.Update(context.Background(), id.Hex(), &model.CustomerDetails{FirstName: "C", LastName: "D", Phone: "456"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !appt.IsBooked || appt.User == nil {
		t.Fatalf("appointment = %+v", appt)
	}
	stored, _ := f.store.Slot(id)
	if !stored.IsBooked || !stored.Consistent() {
		t.Errorf("stored = %+v", stored)
	}
	if f.store.CustomerCount() != 1 {
		t.Errorf("customers = %d", f.store.CustomerCount())
	}
}

func TestUpdateStaleCustomerRebinds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booked, err := f.svc.Book(ctx, bookingRequest("11AM-12PM"))
	if err != nil {
		t.Fatal(err)
	}
	f.store.DeleteCustomer(booked.User.ID)

	appt, err := f.svc.Update(ctx, booked.ID.Hex(), &model.CustomerDetails{FirstName: "E", LastName: "F", Phone: "789"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if appt.User.ID == booked.User.ID {
		t.Error("expected a fresh customer")
	}
	stored, _ := f.store.Slot(booked.ID)
	if stored.CustomerID == nil || *stored.CustomerID != appt.User.ID {
		t.Errorf("slot not rebound: %+v", stored)
	}
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), primitive.NewObjectID().Hex(), &model.CustomerDetails{FirstName: "A", LastName: "B", Phone: "1"})
	assertAppError(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	_, err = f.svc.Update(context.Background(), f.slots[0].ID.Hex(), &model.CustomerDetails{FirstName: "A"})
	assertAppError(t, err, apperrors.CodeValidation, http.StatusBadRequest)
}

func TestListOrdersBySchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Book(ctx, bookingRequest("3PM-4PM")); err != nil {
		t.Fatal(err)
	}

	appts, err := f.svc.List(ctx, "2024-06-01")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(appts) != 8 {
		t.Fatalf("len = %d, want 8", len(appts))
	}
	for i, appt := range appts {
		if appt.TimeSlot != model.DailySchedule[i] {
			t.Errorf("appts[%d] = %s, want %s", i, appt.TimeSlot, model.DailySchedule[i])
		}
		if appt.TimeSlot == model.Slot3PM {
			if appt.User == nil || appt.User.FirstName != "A" {
				t.Errorf("booked slot user = %+v", appt.User)
			}
		} else if appt.User != nil {
			t.Errorf("open slot %s has user", appt.TimeSlot)
		}
	}
}

func TestListDefaultAndEmptyDays(t *testing.T) {
	f := newFixture(t)

	appts, err := f.svc.List(context.Background(), "")
	if err != nil || len(appts) != 8 {
		t.Fatalf("List(today) = %d, %v", len(appts), err)
	}

	appts, err = f.svc.List(context.Background(), "2024-06-02")
	if err != nil || len(appts) != 0 {
		t.Errorf("List(unseeded) = %d, %v", len(appts), err)
	}

	_, err = f.svc.List(context.Background(), "June 1st")
	assertAppError(t, err, apperrors.CodeInvalidInput, http.StatusBadRequest)
}

func TestListStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FindErr = errors.New("connection reset")

	_, err := f.svc.List(context.Background(), "")
	appErr := assertAppError(t, err, apperrors.CodeInternal, http.StatusInternalServerError)
	if appErr.PublicMessage() != "Failed to retrieve appointments: connection reset" {
		t.Errorf("public message = %q", appErr.PublicMessage())
	}
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	booked, err := f.svc.Book(context.Background(), bookingRequest("12PM-1PM"))
	if err != nil {
		t.Fatal(err)
	}

	appt, err := f.svc.Get(context.Background(), booked.ID.Hex())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if appt.User == nil || appt.User.ID != booked.User.ID {
		t.Errorf("user = %+v", appt.User)
	}

	f.store.DeleteCustomer(booked.User.ID)
	appt, err = f.svc.Get(context.Background(), booked.ID.Hex())
	if err != nil || appt.User != nil {
		t.Errorf("Get(stale) = %+v, %v", appt, err)
	}

	_, err = f.svc.Get(context.Background(), "zzz")
	assertAppError(t, err, apperrors.CodeInvalidInput, http.StatusBadRequest)
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	if _, err := f.svc.Book(context.Background(), bookingRequest("1PM-2PM")); err != nil {
		t.Fatalf("Book() error = %v", err)
	}
}
