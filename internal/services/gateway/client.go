// Package gateway talks to the hosted payment gateway's orders API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/utils"
)

type ClientConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// OrderRequest carries the amount in minor currency units, as the gateway
// expects.
type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type OrderReply struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Client struct {
	// baseURL is the gateway API root.
	baseURL string

	// keyID and keySecret authenticate every request with basic auth.
	keyID     string
	keySecret string

	// breaker stops hammering the gateway while it is failing.
	breaker *utils.CircuitBreaker

	hc *http.Client
}

func NewClient(c ClientConfig) *Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimRight(c.BaseURL, "/"),
		keyID:     c.KeyID,
		keySecret: c.KeySecret,
		breaker:   utils.NewCircuitBreakerWithSettings("payment-gateway", utils.Settings{
			MinRequests: 20,
			Timeout:     30 * time.Second,
			IsFailure:   func(err error) bool { return errors.Is(err, status.ErrTransient) },
		}),
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateOrder registers an order with the gateway. Network failures and 5xx
// replies wrap status.ErrTransient; 4xx replies carry the gateway's
// description.
func (c *Client) CreateOrder(ctx context.Context, r OrderRequest) (*OrderReply, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.createOrder(ctx, r)
	})
	if errors.Is(err, utils.ErrOpenState) || errors.Is(err, utils.ErrTooManyRequests) {
		return nil, fmt.Errorf("createOrder: %w: %w", status.ErrTransient, err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*OrderReply), nil
}

func (c *Client) createOrder(ctx context.Context, r OrderRequest) (*OrderReply, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("createOrder: json.Marshal: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("createOrder: url.JoinPath: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("createOrder: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("createOrder: http.Do: %w: %w", status.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("createOrder: resp.StatusCode: %d: %w", resp.StatusCode, status.ErrTransient)
	}

	if resp.StatusCode != http.StatusOK {
		var reply struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&reply)
		if reply.Error.Description == "" {
			reply.Error.Description = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("createOrder: %s: %s: %w", reply.Error.Code, reply.Error.Description, status.ErrFailedPayment)
	}

	var reply OrderReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("createOrder: json.Decode: %w", err)
	}
	if reply.ID == "" {
		return nil, errors.New("createOrder: reply has no order id")
	}

	return &reply, nil
}
