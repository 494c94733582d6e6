package validator

import (
	"errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"strings"
	"testing"
)

func validRequest() *model.BookingRequest {
	return &model.BookingRequest{
		TimeSlot: "9AM-10AM",
		Date:     "2024-06-01",
		CustomerDetails: model.CustomerDetails{
			FirstName: "A",
			LastName:  "B",
			Phone:     "123",
		},
	}
}

func TestValidateBooking(t *testing.T) {
	v := NewSlotValidator(logger.Discard())

	tests := []struct {
		name      string
		mutate    func(*model.BookingRequest)
		wantField string
		wantMsg   string
	}{
		{name: "valid", mutate: func(*model.BookingRequest) {}},
		{name: "date optional", mutate: func(r *model.BookingRequest) { r.Date = "" }},
		{name: "rfc3339 date", mutate: func(r *model.BookingRequest) { r.Date = "2024-06-01T10:00:00+05:30" }},
		{name: "missing time slot", mutate: func(r *model.BookingRequest) { r.TimeSlot = "" }, wantField: "timeSlot", wantMsg: "timeSlot is required"},
		{name: "unknown time slot", mutate: func(r *model.BookingRequest) { r.TimeSlot = "5PM-6PM" }, wantField: "timeSlot", wantMsg: "must be one of"},
		{name: "bad date", mutate: func(r *model.BookingRequest) { r.Date = "01/06/2024" }, wantField: "date", wantMsg: "YYYY-MM-DD"},
		{name: "missing first name", mutate: func(r *model.BookingRequest) { r.FirstName = "" }, wantField: "firstName", wantMsg: "firstName is required"},
		{name: "missing phone", mutate: func(r *model.BookingRequest) { r.Phone = "" }, wantField: "phone", wantMsg: "phone is required"},
		{name: "long last name", mutate: func(r *model.BookingRequest) { r.LastName = strings.Repeat("x", 101) }, wantField: "lastName", wantMsg: "at most 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := v.ValidateBooking(req)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
			if len(verrs) != 1 {
				t.Fatalf("got %d errors: %v", len(verrs), verrs)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.wantField)
			}
			if !strings.Contains(verrs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", verrs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateCustomerReportsAllMissing(t *testing.T) {
	v := NewSlotValidator(logger.Discard())

	err := v.ValidateCustomer(&model.CustomerDetails{})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want ValidationErrors", err)
	}
	if len(verrs) != 3 {
		t.Fatalf("got %d errors, want 3", len(verrs))
	}
	details := verrs.Details()
	for _, field := range []string{"firstName", "lastName", "phone"} {
		if _, ok := details[field]; !ok {
			t.Errorf("details missing %q: %v", field, details)
		}
	}
	if got := verrs.Error(); !strings.Contains(got, "firstName is required; lastName is required") {
		t.Errorf("Error() = %q", got)
	}
}
