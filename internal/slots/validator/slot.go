package validator

import (
	"errors"
	"fmt"
	"reflect"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return strings.Join(v.Messages(), "; ")
}

func (v ValidationErrors) Messages() []string {
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Message)
	}
	return messages
}

// Details maps each failing field to its message.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type SlotValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	v := validator.New()

	// Report fields by their JSON names, which is what clients send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("timeslot", validateTimeSlot); err != nil {
		log.Fatal("Failed to register 'timeslot' validator", "error", err)
	}
	if err := v.RegisterValidation("day", validateDay); err != nil {
		log.Fatal("Failed to register 'day' validator", "error", err)
	}

	return &SlotValidator{
		validate: v,
		logger:   log,
	}
}

func validateTimeSlot(fl validator.FieldLevel) bool {
	_, ok := model.ParseTimeSlot(fl.Field().String())
	return ok
}

func validateDay(fl validator.FieldLevel) bool {
	_, err := model.ParseDay(fl.Field().String(), time.UTC)
	return err == nil
}

func (v *SlotValidator) ValidateBooking(req *model.BookingRequest) error {
	return v.validateStruct(req)
}

func (v *SlotValidator) ValidateCustomer(details *model.CustomerDetails) error {
	return v.validateStruct(details)
}

func (v *SlotValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *SlotValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "timeslot":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), scheduleLabels())
		case "day":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

func scheduleLabels() string {
	labels := make([]string, 0, len(model.DailySchedule))
	for _, ts := range model.DailySchedule {
		labels = append(labels, ts.String())
	}
	return strings.Join(labels, ", ")
}
