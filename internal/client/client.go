// Package client talks to the booking API and implements booking.Gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"medbook/internal/domain"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *zap.Logger
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusConflict:
		return domain.ErrSlotConflict
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnprocessableEntity:
		return domain.ErrSlotUnavailable
	}
	return nil
}

// UserMessage is the server's message, suitable for showing inline. It is
// empty when the server sent none.
func (e *APIError) UserMessage() string {
	return e.Message
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		httpClient: hc,
		logger:     logger,
	}, nil
}

func (c *Client) Schedule(ctx context.Context, doctorID int64) ([]domain.WeeklyScheduleEntry, error) {
	var out []domain.WeeklyScheduleEntry
	if err := c.do(ctx, http.MethodGet, doctorPath(doctorID, "schedule"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return out, nil
}

func (c *Client) Exceptions(ctx context.Context, doctorID int64) ([]domain.ExceptionalDate, error) {
	var out []domain.ExceptionalDate
	if err := c.do(ctx, http.MethodGet, doctorPath(doctorID, "exceptions"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get exceptions: %w", err)
	}
	return out, nil
}

func (c *Client) Services(ctx context.Context, doctorID int64) (domain.ServiceCatalog, error) {
	var out domain.ServiceCatalog
	if err := c.do(ctx, http.MethodGet, doctorPath(doctorID, "services"), nil, nil, &out); err != nil {
		return domain.ServiceCatalog{}, fmt.Errorf("get services: %w", err)
	}
	return out, nil
}

func (c *Client) BookedSlots(ctx context.Context, doctorID int64, date string) ([]domain.BookedSlot, error) {
	var out []domain.BookedSlot
	q := url.Values{"date": {date}}
	if err := c.do(ctx, http.MethodGet, doctorPath(doctorID, "booked-slots"), q, nil, &out); err != nil {
		return nil, fmt.Errorf("get booked slots: %w", err)
	}
	return out, nil
}

// Availability returns the server-computed candidates for date.
func (c *Client) Availability(ctx context.Context, doctorID int64, date string, kind domain.ServiceKind) ([]domain.CandidateSlot, error) {
	var out []domain.CandidateSlot
	q := url.Values{"date": {date}, "service": {string(kind)}}
	if err := c.do(ctx, http.MethodGet, doctorPath(doctorID, "availability"), q, nil, &out); err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return out, nil
}

func (c *Client) BookAppointment(ctx context.Context, req domain.BookingRequest) (*domain.BookingResult, error) {
	var out domain.BookingResult
	if err := c.do(ctx, http.MethodPost, "/appointments", nil, req, &out); err != nil {
		return nil, fmt.Errorf("book appointment: %w", err)
	}
	return &out, nil
}

func (c *Client) Appointment(ctx context.Context, id int64) (*domain.Appointment, error) {
	var out domain.Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &out, nil
}

func (c *Client) CancelAppointment(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/appointments/"+strconv.FormatInt(id, 10), nil, nil, nil); err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	return nil
}

func doctorPath(doctorID int64, resource string) string {
	return "/doctors/" + strconv.FormatInt(doctorID, 10) + "/" + resource
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Status == "error" {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// IsConflict reports whether err is a 409 from the booking API.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}
