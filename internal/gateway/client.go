// Package gateway implements the HTTP client for the remote reservation
// store. The store is the single authority for reservation state: creation
// requests are evaluated there as an atomic check-then-insert, so two
// concurrent requests for overlapping windows cannot both succeed. Everything
// the client computes locally from store data is advisory.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/example/lab-scheduler/internal/logging"
)

// TokenSource supplies the Authorization header value for authenticated
// requests. An empty value sends the request anonymously.
type TokenSource interface {
	Authorization() string
}

// Client talks JSON over HTTP to the reservation store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     *slog.Logger
	requestID  func() string
}

// Options tune client construction.
type Options struct {
	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
	// Tokens supplies credentials; nil leaves every request anonymous.
	Tokens TokenSource
	// RequestsPerSecond caps outbound request rate; zero disables limiting.
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// NewClient constructs a store client rooted at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("gateway: base URL is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("gateway: invalid base URL %q: %w", baseURL, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    trimmed,
		httpClient: httpClient,
		tokens:     opts.Tokens,
		limiter:    limiter,
		logger:     logger,
		requestID:  func() string { return uuid.NewString() },
	}, nil
}

// Login exchanges credentials for a token grant.
func (c *Client) Login(ctx context.Context, creds LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login/", nil, creds, &resp)
	return resp, err
}

// RefreshAccess rotates the access token using the long-lived refresh token.
func (c *Client) RefreshAccess(ctx context.Context, refreshToken string) (RefreshResponse, error) {
	var resp RefreshResponse
	err := c.do(ctx, http.MethodPost, "/auth/refresh/", nil, map[string]string{"refresh": refreshToken}, &resp)
	return resp, err
}

// ListEquipment enumerates active catalog entries matching the filter.
func (c *Client) ListEquipment(ctx context.Context, filter EquipmentFilter) ([]Equipment, error) {
	query := url.Values{}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Location != "" {
		query.Set("location", filter.Location)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Ordering != "" {
		query.Set("ordering", filter.Ordering)
	}

	var resp []Equipment
	err := c.do(ctx, http.MethodGet, "/equipment/", query, nil, &resp)
	return resp, err
}

// GetEquipment fetches a single catalog entry.
func (c *Client) GetEquipment(ctx context.Context, id string) (Equipment, error) {
	var resp Equipment
	err := c.do(ctx, http.MethodGet, "/equipment/"+url.PathEscape(id)+"/", nil, nil, &resp)
	return resp, err
}

// ListCategories enumerates equipment categories.
func (c *Client) ListCategories(ctx context.Context) ([]EquipmentCategory, error) {
	var resp []EquipmentCategory
	err := c.do(ctx, http.MethodGet, "/equipment/categories/", nil, nil, &resp)
	return resp, err
}

// ListReservations returns the calling user's reservations.
func (c *Client) ListReservations(ctx context.Context) ([]Reservation, error) {
	var resp []Reservation
	err := c.do(ctx, http.MethodGet, "/reservations/", nil, nil, &resp)
	return resp, err
}

// ListAllReservations returns every reservation. The store restricts this to
// privileged roles; everyone else receives an authorization failure.
func (c *Client) ListAllReservations(ctx context.Context) ([]Reservation, error) {
	var resp []Reservation
	err := c.do(ctx, http.MethodGet, "/admin/reservations/", nil, nil, &resp)
	return resp, err
}

// CheckAvailability runs the store's authoritative pre-check for a window.
func (c *Client) CheckAvailability(ctx context.Context, equipmentID string, start, end time.Time) (AvailabilityResult, error) {
	query := url.Values{}
	query.Set("start_time", start.UTC().Format(time.RFC3339))
	query.Set("end_time", end.UTC().Format(time.RFC3339))

	var resp AvailabilityResult
	err := c.do(ctx, http.MethodGet, "/equipment/"+url.PathEscape(equipmentID)+"/availability/", query, nil, &resp)
	return resp, err
}

// CreateReservation submits a creation request. The store rejects it with a
// ConflictError when its authoritative check finds an overlap.
func (c *Client) CreateReservation(ctx context.Context, req CreateReservationRequest) (Reservation, error) {
	req.StartTime = req.StartTime.UTC()
	req.EndTime = req.EndTime.UTC()

	var resp Reservation
	err := c.do(ctx, http.MethodPost, "/reservations/", nil, req, &resp)
	return resp, err
}

// CancelReservation asks the store to cancel a reservation. The operation is
// idempotent: cancelling an already-cancelled reservation succeeds.
func (c *Client) CancelReservation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/reservations/"+url.PathEscape(id)+"/cancel/", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.requestID())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if auth := c.tokens.Authorization(); auth != "" {
			req.Header.Set("Authorization", auth)
		}
	}

	logger := c.loggerFor(ctx).With("operation", op, "request_id", req.Header.Get("X-Request-ID"))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.ErrorContext(ctx, "gateway request failed", "error", err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	logger.DebugContext(ctx, "gateway request completed", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	return c.mapFailure(op, resp)
}

func (c *Client) mapFailure(op string, resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch resp.StatusCode {
	case http.StatusConflict:
		var body struct {
			Detail                  string        `json:"detail"`
			ConflictingReservations []Reservation `json:"conflicting_reservations"`
		}
		// A malformed conflict body still surfaces as a conflict; the
		// caller's recovery (refresh and re-select) is the same.
		_ = json.Unmarshal(payload, &body)
		return &ConflictError{Detail: body.Detail, Conflicts: body.ConflictingReservations}
	case http.StatusUnauthorized:
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: ErrUnauthenticated}
	default:
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(payload)))}
	}
}

func (c *Client) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return c.logger
}
