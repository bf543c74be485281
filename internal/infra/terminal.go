package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/money"
)

// TerminalRequest is sent to the card terminal sidecar.
type TerminalRequest struct {
	Amount    money.Cents `json:"amount"`
	Reference string      `json:"reference,omitempty"`
}

// TerminalResponse is the sidecar's verdict on a charge.
type TerminalResponse struct {
	Approved         bool   `json:"approved"`
	AuthorizationRef string `json:"authorization_ref"`
	Message          string `json:"message"`
}

// ErrCardDeclined wraps the terminal's decline message. A decline is the
// card's fault, not the terminal's, and never opens the breaker.
var ErrCardDeclined = errors.New("card declined")

// TerminalClient authorizes card charges against an HTTP terminal sidecar.
// Calls go through a circuit breaker so a dead terminal fails fast at the
// register instead of hanging every card checkout.
type TerminalClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *CircuitBreaker
}

// NewTerminalClient builds a client whose breaker counts transport and
// sidecar failures only.
func NewTerminalClient(baseURL string, cfg BreakerConfig) *TerminalClient {
	cfg.IsFault = func(err error) bool {
		return !errors.Is(err, ErrCardDeclined) && !errors.Is(err, context.Canceled)
	}
	return &TerminalClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cb:         NewCircuitBreaker("terminal", cfg),
	}
}

func (c *TerminalClient) Breaker() *CircuitBreaker { return c.cb }

// Authorize implements pos.CardAuthorizer.
func (c *TerminalClient) Authorize(ctx context.Context, amount money.Cents) (string, error) {
	var ref string
	err := c.cb.Do(ctx, func(ctx context.Context) error {
		resp, err := c.charge(ctx, TerminalRequest{Amount: amount})
		if err != nil {
			return err
		}
		if !resp.Approved {
			return fmt.Errorf("terminal: %w: %s", ErrCardDeclined, resp.Message)
		}
		ref = resp.AuthorizationRef
		return nil
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}

func (c *TerminalClient) charge(ctx context.Context, payload TerminalRequest) (*TerminalResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("terminal: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authorize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("terminal: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("terminal: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("terminal: sidecar returned %d", resp.StatusCode)
	}

	var result TerminalResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("terminal: decode response: %w", err)
	}
	return &result, nil
}
