// Package client is the storefront side of the booking API: a small HTTP
// client, the timestamped availability snapshot and the coordinator that
// runs the advisory seat checks before submitting a booking.
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

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
)

const (
	defaultMaxAttempts = 3
	defaultRetryBase   = 200 * time.Millisecond
	defaultRetryCap    = 1200 * time.Millisecond
)

// Error kinds as sent in the "error" field of API failures.
const (
	KindValidation      = "validation_error"
	KindConflict        = "conflict"
	KindNotFound        = "not_found"
	KindForbidden       = "forbidden"
	KindUnauthenticated = "unauthenticated"
	KindTransient       = "transient"
	KindInternal        = "internal"
)

// Client wraps HTTP access to the booking API.  Only GET requests are
// retried; a booking or cancellation is sent exactly once.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Code       string   `json:"error"`
	Message    string   `json:"message"`
	Field      string   `json:"field,omitempty"`
	Seats      []string `json:"seats,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	if len(e.Seats) > 0 {
		return fmt.Sprintf("%s (%d): %s [%s]", e.Kind(), e.StatusCode, e.Message, strings.Join(e.Seats, ", "))
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind(), e.StatusCode, e.Message)
}

// Kind returns the error kind from the body, falling back to the status
// code when the body carried none.
func (e *APIError) Kind() string {
	if e.Code != "" {
		return e.Code
	}
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return KindValidation
	case e.StatusCode == http.StatusConflict:
		return KindConflict
	case e.StatusCode == http.StatusNotFound:
		return KindNotFound
	case e.StatusCode == http.StatusForbidden:
		return KindForbidden
	case e.StatusCode == http.StatusUnauthorized:
		return KindUnauthenticated
	case e.StatusCode == http.StatusServiceUnavailable, e.StatusCode == http.StatusTooManyRequests:
		return KindTransient
	}
	return KindInternal
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind() == kind
}

// IsConflict reports whether err is a seat or slot conflict.
func IsConflict(err error) bool { return IsKind(err, KindConflict) }

// New creates a client for the API at baseURL.  If httpClient is nil a
// default client with a 10 second timeout is used.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		retryCap:    defaultRetryCap,
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) { c.token = token }

// ShowQuery filters GET /v1/shows.
type ShowQuery struct {
	Movie   string
	Date    string
	Theatre string
	Page    int
	PerPage int
}

// ShowPage is one page of show listings.
type ShowPage struct {
	Shows   []model.ShowListing `json:"shows"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
	Pages   int                 `json:"pages"`
}

// CancelResult is the outcome of a cancellation.
type CancelResult struct {
	Booking          model.Booking `json:"booking"`
	AlreadyCancelled bool          `json:"already_cancelled"`
	Message          string        `json:"message"`
}

// Window is one revenue roll-up of the admin stats.
type Window struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Bookings int       `json:"bookings"`
	Revenue  int64     `json:"revenue"`
}

// Stats is the admin dashboard.
type Stats struct {
	Today              Window                `json:"today"`
	Month              Window                `json:"month"`
	TopMovies          []model.MovieStat     `json:"top_movies"`
	TopMoviesByRevenue []model.MovieStat     `json:"top_movies_by_revenue"`
	RecentBookings     []model.BookingDetail `json:"recent_bookings"`
	GeneratedAt        time.Time             `json:"generated_at"`
}

// Login exchanges credentials for an access token and keeps it for
// subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/v1/auth/login", body, &out); err != nil {
		return "", err
	}
	c.token = out.Access.Token
	return out.Access.Token, nil
}

// Shows lists upcoming shows.
func (c *Client) Shows(ctx context.Context, q ShowQuery) (ShowPage, error) {
	v := url.Values{}
	if q.Movie != "" {
		v.Set("movie", q.Movie)
	}
	if q.Date != "" {
		v.Set("date", q.Date)
	}
	if q.Theatre != "" {
		v.Set("theatre", q.Theatre)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	endpoint := "/v1/shows"
	if len(v) > 0 {
		endpoint += "?" + v.Encode()
	}
	var page ShowPage
	err := c.getJSON(ctx, endpoint, &page)
	return page, err
}

// Show fetches one show listing.
func (c *Client) Show(ctx context.Context, id uint64) (model.ShowListing, error) {
	var l model.ShowListing
	err := c.getJSON(ctx, fmt.Sprintf("/v1/shows/%d", id), &l)
	return l, err
}

// BookedSeats fetches the authoritative booked set and stamps it with the
// local time it was received.
func (c *Client) BookedSeats(ctx context.Context, showID uint64) (Snapshot, error) {
	var wire struct {
		ShowID   uint64    `json:"show_id"`
		Capacity int       `json:"capacity"`
		Bookable int       `json:"bookable_seats"`
		Booked   []string  `json:"booked_seats"`
		AsOf     time.Time `json:"as_of"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/v1/shows/%d/booked-seats", showID), &wire); err != nil {
		return Snapshot{}, err
	}
	return newSnapshot(wire.ShowID, wire.Capacity, wire.Booked, wire.AsOf, time.Now()), nil
}

// Book submits a booking.  It is never retried.
func (c *Client) Book(ctx context.Context, showID uint64, seats []string, payment string) (model.Booking, error) {
	req := map[string]any{"show_id": showID, "selected_seats": seats}
	if payment != "" {
		req["payment_method"] = payment
	}
	var out struct {
		Booking model.Booking `json:"booking"`
	}
	err := c.send(ctx, http.MethodPost, "/v1/bookings", req, &out)
	return out.Booking, err
}

// Cancel cancels a booking.  Cancelling twice is not an error.
func (c *Client) Cancel(ctx context.Context, bookingID uint64) (CancelResult, error) {
	var out CancelResult
	err := c.send(ctx, http.MethodPost, fmt.Sprintf("/v1/bookings/%d/cancel", bookingID), nil, &out)
	return out, err
}

// MyBookings lists the caller's bookings, newest first.
func (c *Client) MyBookings(ctx context.Context) ([]model.BookingDetail, error) {
	var out struct {
		Bookings []model.BookingDetail `json:"bookings"`
	}
	err := c.getJSON(ctx, "/v1/my-bookings", &out)
	return out.Bookings, err
}

// Stats fetches the admin dashboard.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.getJSON(ctx, "/v1/admin/stats", &st)
	return st, err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// send performs a single request and decodes a 2xx body into out.
func (c *Client) send(ctx context.Context, method, endpoint string, body, out any) error {
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(res, endpoint)
	}
	return decodeBody(res.Body, endpoint, out)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		res, err := c.httpClient.Do(req)
		if err != nil {
			if shouldRetryNetworkError(err) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return fmt.Errorf("request failed: %w", err)
		}

		if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
			apiErr := decodeAPIError(res, endpoint)
			_ = res.Body.Close()
			if shouldRetryStatus(res.StatusCode) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return apiErr
		}

		err = decodeBody(res.Body, endpoint, out)
		_ = res.Body.Close()
		return err
	}

	return errors.New("request failed after retries")
}

func decodeAPIError(res *http.Response, endpoint string) *APIError {
	snippet, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
	apiErr := &APIError{StatusCode: res.StatusCode, Endpoint: endpoint}
	if err := json.Unmarshal(snippet, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(snippet))
		if apiErr.Message == "" {
			apiErr.Message = res.Status
		}
	}
	return apiErr
}

func decodeBody(r io.Reader, endpoint string, out any) error {
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(r).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

func shouldRetryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func shouldRetryNetworkError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) waitRetry(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.retryDelay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryDelay doubles from retryBase per attempt, capped at retryCap.
func (c *Client) retryDelay(attempt int) time.Duration {
	base, limit := c.retryBase, c.retryCap
	if base <= 0 {
		base = defaultRetryBase
	}
	if limit <= 0 {
		limit = defaultRetryCap
	}
	delay := base
	for i := 1; i < attempt && delay < limit; i++ {
		delay *= 2
	}
	if delay > limit {
		return limit
	}
	return delay
}
