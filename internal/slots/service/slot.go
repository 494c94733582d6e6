package service

import (
	"context"
	"errors"
	slotserrors "slotbook/internal/slots/errors"
	"slotbook/internal/slots/events"
	"slotbook/internal/slots/repository"
	"slotbook/internal/slots/validator"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/model"
	"slotbook/pkg/sanitizer"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MsgSlotNotFound        = "Appointment slot"
	MsgAppointmentNotFound = "Appointment"
	MsgAlreadyBooked       = "This time slot is already booked"
	MsgCancelled           = "Appointment cleared successfully"
)

var tracer = otel.Tracer("slotbook/internal/slots/service")

type SlotService interface {
	List(ctx context.Context, date string) ([]*model.Appointment, error)
	Get(ctx context.Context, id string) (*model.Appointment, error)
	Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error)
	Update(ctx context.Context, id string, details *model.CustomerDetails) (*model.Appointment, error)
	Cancel(ctx context.Context, id string) (*model.Appointment, error)
}

type slotService struct {
	slots     repository.SlotRepository
	customers repository.CustomerRepository
	validator *validator.SlotValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewSlotService(
	slots repository.SlotRepository,
	customers repository.CustomerRepository,
	validator *validator.SlotValidator,
	publisher events.Publisher,
	cfg *config.Config,
) SlotService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &slotService{
		slots:     slots,
		customers: customers,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *slotService) today() time.Time {
	return model.DayOf(s.now(), s.cfg.SlotLocation)
}

// List returns the day's slots in schedule order, each with its customer.
// An empty date means today in the slot time zone.
func (s *slotService) List(ctx context.Context, date string) ([]*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "SlotService.List")
	defer span.End()

	day := s.today()
	if date != "" {
		parsed, err := model.ParseDay(date, s.cfg.SlotLocation)
		if err != nil {
			return nil, apperrors.InvalidInput("Invalid date format, expected YYYY-MM-DD")
		}
		day = parsed
	}
	span.SetAttributes(attribute.String("slot.date", day.Format(model.DayLayout)))

	slots, err := s.slots.FindByDay(ctx, day)
	if err != nil {
		return nil, s.fail(span, apperrors.Internal("Failed to retrieve appointments", err))
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].TimeSlot.Order() < slots[j].TimeSlot.Order()
	})

	var customerIDs []primitive.ObjectID
	for _, slot := range slots {
		if slot.CustomerID != nil {
			customerIDs = append(customerIDs, *slot.CustomerID)
		}
	}

	customers, err := s.customers.FindByIDs(ctx, customerIDs)
	if err != nil {
		return nil, s.fail(span, apperrors.Internal("Failed to retrieve customers", err))
	}

	appointments := make([]*model.Appointment, 0, len(slots))
	for _, slot := range slots {
		appt := &model.Appointment{Slot: slot}
		if slot.CustomerID != nil {
			appt.User = customers[*slot.CustomerID]
		}
		appointments = append(appointments, appt)
	}

	return appointments, nil
}

func (s *slotService) Get(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "SlotService.Get", trace.WithAttributes(attribute.String("slot.id", id)))
	defer span.End()

	slot, err := s.findSlot(ctx, id)
	if err != nil {
		return nil, s.fail(span, err)
	}

	appt := &model.Appointment{Slot: slot}
	if slot.CustomerID != nil {
		customer, err := s.customers.FindByID(ctx, *slot.CustomerID)
		switch {
		case err == nil:
			appt.User = customer
		case errors.Is(err, slotserrors.ErrCustomerNotFound):
			s.cfg.Log.Warn("Booked slot references a missing customer", "slot_id", id)
		default:
			return nil, s.fail(span, apperrors.Internal("Failed to retrieve customer", err))
		}
	}

	return appt, nil
}

func (s *slotService) Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "SlotService.Book")
	defer span.End()

	s.sanitizeBooking(req)
	if err := s.validate(s.validator.ValidateBooking(req)); err != nil {
		return nil, s.fail(span, err)
	}

	timeSlot, _ := model.ParseTimeSlot(req.TimeSlot)
	day := s.today()
	if req.Date != "" {
		day, _ = model.ParseDay(req.Date, s.cfg.SlotLocation)
	}
	span.SetAttributes(
		attribute.String("slot.time_slot", timeSlot.String()),
		attribute.String("slot.date", day.Format(model.DayLayout)),
	)

	var result *model.Appointment
	err := s.slots.ExecuteTransaction(ctx, func(uow mongotx.UnitOfWork) error {
		slot, err := s.slots.FindOne(uow, timeSlot, day)
		if err != nil {
			if errors.Is(err, slotserrors.ErrNotFound) {
				return apperrors.NotFound(MsgSlotNotFound)
			}
			return apperrors.Internal("Failed to retrieve appointment slot", err)
		}
		if !slot.IsOpen() {
			return apperrors.Conflict(MsgAlreadyBooked)
		}

		customer := model.NewCustomer(req.CustomerDetails)
		if err := s.customers.Create(uow, customer); err != nil {
			return apperrors.Internal("Failed to create customer", err)
		}

		if err := s.markBooked(uow, slot, customer.ID); err != nil {
			return err
		}

		result = &model.Appointment{Slot: slot, User: customer}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.cfg.Log.Info("Slot booked",
		"slot_id", result.ID.Hex(),
		"time_slot", result.TimeSlot,
		"date", result.Date.Format(model.DayLayout),
		"customer_id", result.User.ID.Hex(),
	)
	s.publish(ctx, events.SlotEvent(events.TypeSlotBooked, result.Slot))
	return result, nil
}

// Update replaces the customer details on a slot. An open slot becomes
// booked, and a booking whose customer row has vanished is rebound to a
// fresh one.
func (s *slotService) Update(ctx context.Context, id string, details *model.CustomerDetails) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "SlotService.Update", trace.WithAttributes(attribute.String("slot.id", id)))
	defer span.End()

	s.sanitizeCustomer(details)
	if err := s.validate(s.validator.ValidateCustomer(details)); err != nil {
		return nil, s.fail(span, err)
	}

	var result *model.Appointment
	err := s.slots.ExecuteTransaction(ctx, func(uow mongotx.UnitOfWork) error {
		slot, err := s.findSlot(uow, id)
		if err != nil {
			return err
		}

		if !slot.IsOpen() && slot.CustomerID != nil {
			customer, err := s.customers.Update(uow, *slot.CustomerID, *details)
			if err == nil {
				result = &model.Appointment{Slot: slot, User: customer}
				return nil
			}
			if !errors.Is(err, slotserrors.ErrCustomerNotFound) {
				return apperrors.Internal("Failed to update customer", err)
			}

			customer = model.NewCustomer(*details)
			if err := s.customers.Create(uow, customer); err != nil {
				return apperrors.Internal("Failed to create customer", err)
			}
			if err := s.slots.SetCustomer(uow, slot.ID, customer.ID); err != nil {
				return apperrors.Internal("Failed to update appointment", err)
			}
			slot.Book(customer.ID)
			result = &model.Appointment{Slot: slot, User: customer}
			return nil
		}

		customer := model.NewCustomer(*details)
		if err := s.customers.Create(uow, customer); err != nil {
			return apperrors.Internal("Failed to create customer", err)
		}
		if err := s.markBooked(uow, slot, customer.ID); err != nil {
			return err
		}
		result = &model.Appointment{Slot: slot, User: customer}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.cfg.Log.Info("Appointment updated", "slot_id", id, "customer_id", result.User.ID.Hex())
	s.publish(ctx, events.SlotEvent(events.TypeSlotUpdated, result.Slot))
	return result, nil
}

func (s *slotService) Cancel(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "SlotService.Cancel", trace.WithAttributes(attribute.String("slot.id", id)))
	defer span.End()

	var (
		result     *model.Appointment
		customerID *primitive.ObjectID
	)
	err := s.slots.ExecuteTransaction(ctx, func(uow mongotx.UnitOfWork) error {
		slot, err := s.findSlot(uow, id)
		if err != nil {
			return err
		}

		customerID = slot.CustomerID
		if slot.CustomerID != nil {
			err := s.customers.Delete(uow, *slot.CustomerID)
			if err != nil && !errors.Is(err, slotserrors.ErrCustomerNotFound) {
				return apperrors.Internal("Failed to delete customer", err)
			}
		}

		if err := s.slots.Release(uow, slot.ID); err != nil {
			if errors.Is(err, slotserrors.ErrNotFound) {
				return apperrors.NotFoundWithID(MsgAppointmentNotFound, id)
			}
			return apperrors.Internal("Failed to clear appointment", err)
		}

		slot.Release()
		result = &model.Appointment{Slot: slot}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.cfg.Log.Info("Appointment cleared", "slot_id", id)
	evt := events.SlotEvent(events.TypeSlotCancelled, result.Slot)
	if customerID != nil {
		evt.CustomerID = customerID.Hex()
	}
	s.publish(ctx, evt)
	return result, nil
}

func (s *slotService) findSlot(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, slotserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid appointment ID format")
		case errors.Is(err, slotserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID(MsgAppointmentNotFound, id)
		default:
			return nil, apperrors.Internal("Failed to retrieve appointment", err)
		}
	}
	return slot, nil
}

// markBooked performs the conditional open -> booked write and mirrors it on
// the in-memory slot.
func (s *slotService) markBooked(uow mongotx.UnitOfWork, slot *model.Slot, customerID primitive.ObjectID) error {
	if err := s.slots.MarkBooked(uow, slot.ID, customerID); err != nil {
		switch {
		case errors.Is(err, slotserrors.ErrAlreadyBooked):
			return apperrors.Conflict(MsgAlreadyBooked)
		case errors.Is(err, slotserrors.ErrNotFound):
			return apperrors.NotFound(MsgSlotNotFound)
		default:
			return apperrors.Internal("Failed to book appointment slot", err)
		}
	}
	slot.Book(customerID)
	return nil
}

func (s *slotService) sanitizeBooking(req *model.BookingRequest) {
	req.TimeSlot = sanitizer.TrimAndNormalize(req.TimeSlot)
	req.Date = sanitizer.TrimAndNormalize(req.Date)
	s.sanitizeCustomer(&req.CustomerDetails)
}

func (s *slotService) sanitizeCustomer(details *model.CustomerDetails) {
	details.FirstName = sanitizer.NormalizeName(details.FirstName)
	details.LastName = sanitizer.NormalizeName(details.LastName)
	details.Phone = sanitizer.NormalizePhone(details.Phone, s.cfg.PhoneDefaultRegion)
}

func (s *slotService) validate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(verrs.Error(), verrs.Details())
	}
	return apperrors.Validation(err.Error(), nil)
}

func (s *slotService) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.cfg.Log.Warn("Failed to publish slot event",
			"event_type", evt.Type,
			"slot_id", evt.SlotID,
			"error", err,
		)
	}
}

func (s *slotService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
