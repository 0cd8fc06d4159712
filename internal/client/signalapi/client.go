// Package signalapi is the Go client for the signal exchange service: a thin
// HTTP wrapper plus the stateful pieces a real client needs (cached location
// fixes, presence heartbeating, debounced nearby refresh, and the realtime
// feed).
package signalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// PresenceState mirrors the server's presence row.
type PresenceState struct {
	UserID    string    `json:"user_id"`
	IsOpen    bool      `json:"is_open"`
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Candidate mirrors one nearby result row.
type Candidate struct {
	UserID            string    `json:"user_id"`
	FirstName         *string   `json:"first_name"`
	Age               *int      `json:"age"`
	ProfilePictureURL *string   `json:"profile_picture_url"`
	DistanceMeters    float64   `json:"distance_meters"`
	UpdatedAt         time.Time `json:"updated_at"`
	IsActive          bool      `json:"is_active"`
}

// Signal mirrors the server's signal row.
type Signal struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Status      string    `json:"status"`
	Message     *string   `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Profile mirrors the server's profile row.
type Profile struct {
	ID                string     `json:"id"`
	FirstName         *string    `json:"first_name"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	ProfilePictureURL *string    `json:"profile_picture_url"`
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError is a non-2xx response decoded from the service envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (c *Client) SetPresence(ctx context.Context, isOpen bool, lat, lng *float64) (*PresenceState, error) {
	body := map[string]any{"is_open": isOpen}
	if lat != nil {
		body["lat"] = *lat
	}
	if lng != nil {
		body["lng"] = *lng
	}
	var out PresenceState
	if err := c.do(ctx, http.MethodPut, "/api/v1/presence", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Heartbeat(ctx context.Context) (*PresenceState, error) {
	var out PresenceState
	if err := c.do(ctx, http.MethodPost, "/api/v1/presence/heartbeat", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Nearby(ctx context.Context, lat, lng float64) ([]Candidate, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	var out []Candidate
	if err := c.do(ctx, http.MethodGet, "/api/v1/nearby?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendSignal(ctx context.Context, recipientID string, message *string) (*Signal, error) {
	body := map[string]any{"recipient_id": recipientID}
	if message != nil {
		body["message"] = *message
	}
	var out Signal
	if err := c.do(ctx, http.MethodPost, "/api/v1/signals", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RespondSignal(ctx context.Context, signalID, response string) (*Signal, error) {
	var out Signal
	body := map[string]any{"response": response}
	if err := c.do(ctx, http.MethodPost, "/api/v1/signals/"+signalID+"/respond", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelSignal(ctx context.Context, signalID string) (*Signal, error) {
	var out Signal
	if err := c.do(ctx, http.MethodPost, "/api/v1/signals/"+signalID+"/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Incoming(ctx context.Context) ([]Signal, error) {
	var out []Signal
	if err := c.do(ctx, http.MethodGet, "/api/v1/signals/incoming", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Outgoing(ctx context.Context) ([]Signal, error) {
	var out []Signal
	if err := c.do(ctx, http.MethodGet, "/api/v1/signals/outgoing", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutProfile(ctx context.Context, firstName, dateOfBirth, pictureURL *string) (*Profile, error) {
	body := map[string]any{}
	if firstName != nil {
		body["first_name"] = *firstName
	}
	if dateOfBirth != nil {
		body["date_of_birth"] = *dateOfBirth
	}
	if pictureURL != nil {
		body["profile_picture_url"] = *pictureURL
	}
	var out Profile
	if err := c.do(ctx, http.MethodPut, "/api/v1/profile", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
