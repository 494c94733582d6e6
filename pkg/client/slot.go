package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slotbook/pkg/model"
)

// SlotClient talks to the slot booking HTTP API.
type SlotClient struct {
	httpClient *HttpClient
}

func NewSlotClient(baseURL string) *SlotClient {
	return &SlotClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// APIError is returned when the service answers with success=false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slot api: %d %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *SlotClient) List(ctx context.Context, date string) ([]model.Appointment, error) {
	path := "/slot"
	if date != "" {
		path += "?" + url.Values{"date": {date}}.Encode()
	}
	var out []model.Appointment
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SlotClient) Get(ctx context.Context, id string) (*model.Appointment, error) {
	var out model.Appointment
	if _, err := c.do(ctx, http.MethodGet, "/slot/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SlotClient) Book(ctx context.Context, req model.BookingRequest) (*model.Appointment, error) {
	var out model.Appointment
	if _, err := c.do(ctx, http.MethodPost, "/slot", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SlotClient) Update(ctx context.Context, id string, details model.CustomerDetails) (*model.Appointment, error) {
	var out model.Appointment
	if _, err := c.do(ctx, http.MethodPut, "/slot/"+url.PathEscape(id), details, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel releases a booking and returns the confirmation message.
func (c *SlotClient) Cancel(ctx context.Context, id string) (string, error) {
	env, err := c.do(ctx, http.MethodDelete, "/slot/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *SlotClient) do(ctx context.Context, method, path string, body any, data any) (*envelope, error) {
	var (
		resp *Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = c.httpClient.GET(ctx, path)
	case http.MethodPost:
		resp, err = c.httpClient.POST(ctx, path, body)
	case http.MethodPut:
		resp, err = c.httpClient.PUT(ctx, path, body)
	case http.MethodDelete:
		resp, err = c.httpClient.DELETE(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := resp.DecodeJSON(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return nil, fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return &env, nil
}
