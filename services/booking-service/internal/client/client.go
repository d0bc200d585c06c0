// Package client is a typed HTTP client for the booking API.
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

	"github.com/md-rashed-zaman/dojobook/libs/httpx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError is a non-2xx response from the booking API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("booking api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	base  string
	http  *http.Client
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken attaches an admin bearer token to later requests.
func (c *Client) SetToken(token string) { c.token = token }

type CoachQuery struct {
	Styles        []string
	Languages     []string
	ExperienceMin *int
	AvailableDate string
}

func (q CoachQuery) values() url.Values {
	v := url.Values{}
	if len(q.Styles) > 0 {
		v.Set("styles", strings.Join(q.Styles, ","))
	}
	if len(q.Languages) > 0 {
		v.Set("languages", strings.Join(q.Languages, ","))
	}
	if q.ExperienceMin != nil {
		v.Set("experience_min", strconv.Itoa(*q.ExperienceMin))
	}
	if q.AvailableDate != "" {
		v.Set("available_date", q.AvailableDate)
	}
	return v
}

func (c *Client) Coaches(ctx context.Context, q CoachQuery) ([]storage.CoachListing, error) {
	var out struct {
		Coaches []storage.CoachListing `json:"coaches"`
	}
	err := c.do(ctx, http.MethodGet, "/api/coaches", q.values(), nil, &out)
	return out.Coaches, err
}

type CoachDetail struct {
	Coach        model.Coach               `json:"coach"`
	Availability []model.CoachAvailability `json:"availability"`
}

func (c *Client) Coach(ctx context.Context, id int64) (CoachDetail, error) {
	var out CoachDetail
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/coaches/%d", id), nil, nil, &out)
	return out, err
}

func (c *Client) Slots(ctx context.Context, coachID int64, date string, sessionTypeID int64) ([]booking.Slot, error) {
	var q url.Values
	if sessionTypeID > 0 {
		q = url.Values{"session_type_id": {strconv.FormatInt(sessionTypeID, 10)}}
	}
	var out struct {
		Slots []booking.Slot `json:"slots"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/coaches/%d/availability/%s", coachID, url.PathEscape(date)), q, nil, &out)
	return out.Slots, err
}

func (c *Client) SessionTypes(ctx context.Context) ([]model.SessionType, error) {
	var out struct {
		SessionTypes []model.SessionType `json:"session_types"`
	}
	err := c.do(ctx, http.MethodGet, "/api/session-types", nil, nil, &out)
	return out.SessionTypes, err
}

func (c *Client) Locations(ctx context.Context) ([]model.Location, error) {
	var out struct {
		Locations []model.Location `json:"locations"`
	}
	err := c.do(ctx, http.MethodGet, "/api/locations", nil, nil, &out)
	return out.Locations, err
}

func (c *Client) CreateBooking(ctx context.Context, req booking.CreateBookingRequest) (booking.Confirmation, error) {
	var out booking.Confirmation
	err := c.do(ctx, http.MethodPost, "/api/bookings", nil, req, &out)
	return out, err
}

func (c *Client) StudentBookings(ctx context.Context, email string) ([]model.BookingDetails, error) {
	var out struct {
		Bookings []model.BookingDetails `json:"bookings"`
	}
	err := c.do(ctx, http.MethodGet, "/api/bookings/student/"+url.PathEscape(email), nil, nil, &out)
	return out.Bookings, err
}

func (c *Client) Cancel(ctx context.Context, reference, reason string) error {
	var body any
	if reason != "" {
		body = map[string]string{"cancellation_reason": reason}
	}
	return c.do(ctx, http.MethodPatch, "/api/bookings/"+url.PathEscape(reference)+"/cancel", nil, body, nil)
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

// Login exchanges admin credentials for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var out Token
	err := c.do(ctx, http.MethodPost, "/api/admin/login", nil, map[string]string{"username": username, "password": password}, &out)
	if err == nil {
		c.token = out.AccessToken
	}
	return out, err
}

type AdminQuery struct {
	DateFrom string
	DateTo   string
	CoachID  int64
	Status   string
}

func (c *Client) AdminBookings(ctx context.Context, q AdminQuery) ([]model.BookingDetails, error) {
	v := url.Values{}
	if q.DateFrom != "" {
		v.Set("date_from", q.DateFrom)
	}
	if q.DateTo != "" {
		v.Set("date_to", q.DateTo)
	}
	if q.CoachID > 0 {
		v.Set("coach_id", strconv.FormatInt(q.CoachID, 10))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	var out struct {
		Bookings []model.BookingDetails `json:"bookings"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/bookings", v, nil, &out)
	return out.Bookings, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb httpx.ErrorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
		if eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: eb.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
