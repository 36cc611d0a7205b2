package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/heysubinoy/keyvaluestore/pkg/kv"
)

// ErrInvalidArgument is returned for an empty key or base URL.
var ErrInvalidArgument = errors.New("invalid argument")

// HTTPError reports a status the client does not map to a kv error.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Client talks to a keyvaluestore server over HTTP.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// New creates a client for the server at baseURL that presents token on every request.
// A nil httpClient falls back to one with a 10 second timeout.
func New(baseURL, token string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, ErrInvalidArgument
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: parsed, token: token, httpClient: httpClient}, nil
}

// Get fetches the entry stored under key.
// Returns kv.ErrNotFound for an absent key and kv.ErrUnauthorized for a rejected token.
func (c *Client) Get(ctx context.Context, key string) (kv.Entry, error) {
	resp, err := c.do(ctx, http.MethodGet, key, nil)
	if err != nil {
		return kv.Entry{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return kv.Entry{}, kv.ErrNotFound
	default:
		return kv.Entry{}, statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return kv.Entry{}, fmt.Errorf("failed to read response: %w", err)
	}
	entry := kv.Entry{Value: string(body)}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			entry.ModifiedAt = t
		}
	}
	return entry, nil
}

// Put stores value under key, replacing any previous value.
func (c *Client) Put(ctx context.Context, key, value string) error {
	resp, err := c.do(ctx, http.MethodPost, key, strings.NewReader(value))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, method, key string, body io.Reader) (*http.Response, error) {
	if key == "" {
		return nil, ErrInvalidArgument
	}
	u := c.baseURL.JoinPath(url.PathEscape(key))

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	return c.httpClient.Do(req)
}

func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return kv.ErrUnauthorized
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}
