package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	apperrors "slotbook/pkg/errors"
)

// DecodeJSON reads a single JSON object from the request body into dst.
// An empty body decodes to the zero value so that field validation can
// report what is missing.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.InvalidInput("request body too large")
		}
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}
