package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.vk.com/method"

// Client talks to the VK REST API. All calls are bounded by the HTTP
// client timeout; any transport failure or VK error envelope is
// returned as an error and treated as recoverable by the callers.
type Client struct {
	token   string
	version string
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a VK API client.
func NewClient(token, version string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		token:   token,
		version: version,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request issues one API method call and decodes the "response" part of
// the envelope into out. VK reports failures inside a 200 body as
// {"error": {error_code, error_msg}}; those become errors here too.
func (c *Client) request(ctx context.Context, method string, params url.Values, useToken bool, out any) error {
	params.Set("v", c.version)
	if useToken {
		params.Set("access_token", c.token)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
		Error    *apiError       `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		log.Printf("[VK %s] API error [%d]: %s", method, envelope.Error.ErrorCode, envelope.Error.ErrorMsg)
		return fmt.Errorf("vk error %d: %s", envelope.Error.ErrorCode, envelope.Error.ErrorMsg)
	}
	if out != nil && envelope.Response != nil {
		if err := json.Unmarshal(envelope.Response, out); err != nil {
			return fmt.Errorf("decode %s payload: %w", method, err)
		}
	}
	return nil
}
