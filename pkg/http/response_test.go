package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	apperrors "slotbook/pkg/errors"
	"strings"
	"testing"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, []string{"a"})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if _, ok := body["message"]; ok {
		t.Error("message should be omitted")
	}
}

func TestWriteCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCreated(rec, map[string]string{"id": "1"})
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

func TestWriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteMessage(rec, "done")
	body := decodeEnvelope(t, rec)
	if body["message"] != "done" || body["success"] != true {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["data"]; ok {
		t.Error("data should be omitted")
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", apperrors.NotFound("Appointment slot"), http.StatusNotFound, "Appointment slot not found"},
		{"conflict", apperrors.Conflict("This time slot is already booked"), http.StatusBadRequest, "This time slot is already booked"},
		{"validation", apperrors.Validation("firstName is required", nil), http.StatusBadRequest, "firstName is required"},
		{"internal", apperrors.Internal("Server Error", errors.New("boom")), http.StatusInternalServerError, "Server Error: boom"},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError, "disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeEnvelope(t, rec)
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
			msg, _ := body["message"].(string)
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.Name != "x" {
		t.Fatalf("DecodeJSON() = %v, name %q", err, dst.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(req, &dst); err != nil {
		t.Errorf("empty body: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{bad"))
	err := DecodeJSON(req, &dst)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("malformed body error = %v, want INVALID_INPUT", err)
	}
}
