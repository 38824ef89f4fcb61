package station

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/utils"
)

const checkInPath = "/api/v1/checkin"

type ClientConfig struct {
	// ServerURL is the check-in server root, e.g. https://checkin.club.example.
	ServerURL string

	// GrantToken is the access link token of a delegated station.
	GrantToken string

	// AuthToken is a PocketBase auth token of the event owner. Either this or
	// GrantToken is required.
	AuthToken string

	Timeout time.Duration
}

// HTTPClient sends check-ins to the server.
type HTTPClient struct {
	endpoint   string
	grantToken string
	authToken  string

	breaker *utils.CircuitBreaker
	hc      *http.Client
}

func NewHTTPClient(c ClientConfig) (*HTTPClient, error) {
	endpoint, err := url.JoinPath(strings.TrimRight(c.ServerURL, "/"), checkInPath)
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}

	return &HTTPClient{
		endpoint:   endpoint,
		grantToken: c.GrantToken,
		authToken:  c.AuthToken,
		breaker:    utils.NewCircuitBreakerWithSettings("checkin-server", utils.Settings{
			MinRequests: 5,
			Timeout:     15 * time.Second,
			IsFailure:   func(err error) bool { return errors.Is(err, status.ErrTransient) },
		}),
		hc: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// CheckIn posts one check-in. Network errors, 5xx replies and an open
// breaker wrap status.ErrTransient; 401 and 403 wrap status.ErrInvalidGrant.
func (c *HTTPClient) CheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInResult, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.checkIn(ctx, req)
	})
	if errors.Is(err, utils.ErrOpenState) || errors.Is(err, utils.ErrTooManyRequests) {
		return nil, fmt.Errorf("checkIn: %w: %w", status.ErrTransient, err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*models.CheckInResult), nil
}

func (c *HTTPClient) checkIn(ctx context.Context, r models.CheckInRequest) (*models.CheckInResult, error) {
	body, err := json.Marshal(map[string]string{
		"event_id":    r.EventID,
		"user_id":     r.UserID,
		"grant_token": c.grantToken,
	})
	if err != nil {
		return nil, fmt.Errorf("checkIn: json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("checkIn: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", c.authToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkIn: http.Do: %w: %w", status.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("checkIn: resp.StatusCode: %d: %w", resp.StatusCode, status.ErrTransient)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("checkIn: resp.StatusCode: %d: %w", resp.StatusCode, status.ErrInvalidGrant)
	case resp.StatusCode != http.StatusOK:
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("checkIn: resp.StatusCode: %d: %s", resp.StatusCode, apiErr.Message)
	}

	var result models.CheckInResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("checkIn: malformed server response: %w", err)
	}
	if result.Code == "" {
		return nil, errors.New("checkIn: malformed server response: no code")
	}
	return &result, nil
}
