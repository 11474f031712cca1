// Package checkout hands a cart over to the external commerce backend, which
// owns payment and order creation.
package checkout

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
)

var (
	ErrEmpty              = errors.New("nothing to check out")
	ErrBackendUnavailable = errors.New("commerce backend unavailable")
	ErrBackendRejected    = errors.New("commerce backend rejected checkout")
	ErrBackendBadStatus   = errors.New("commerce backend bad status")
)

// Line is what the backend needs per cart line: its own variant id and a quantity.
type Line struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type Session struct {
	ID          string `json:"id,omitempty"`
	CheckoutURL string `json:"checkout_url"`
}

type startReq struct {
	Lines []Line `json:"lines"`
}

type Client struct {
	BaseURL string
	Client  *http.Client
}

func NewClient(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Start creates a checkout for lines and returns where to send the shopper.
func (c *Client) Start(ctx context.Context, lines []Line) (Session, error) {
	if len(lines) == 0 {
		return Session{}, ErrEmpty
	}

	body, err := json.Marshal(startReq{Lines: lines})
	if err != nil {
		return Session{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Session{}, fmt.Errorf("%w: status=%d", ErrBackendRejected, resp.StatusCode)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Session{}, fmt.Errorf("%w: status=%d", ErrBackendBadStatus, resp.StatusCode)
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return Session{}, fmt.Errorf("%w: decode: %v", ErrBackendBadStatus, err)
	}
	if s.CheckoutURL == "" {
		return Session{}, fmt.Errorf("%w: empty checkout_url", ErrBackendBadStatus)
	}
	return s, nil
}
