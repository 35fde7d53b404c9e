// Package source imports beneficiaries and inventory from the association's
// remote REST API and normalizes them into the local record shapes.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single remote request when no client is supplied.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a remote response is read.
const maxBody = 32 << 20

// Client reads the remote API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient gets a default
// with DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// FetchCases downloads the case list.
func (c *Client) FetchCases(ctx context.Context) ([]Case, error) {
	var body struct {
		Cases []Case `json:"cases"`
	}
	if err := c.get(ctx, "/cases", &body); err != nil {
		return nil, fmt.Errorf("fetching cases: %w", err)
	}
	return body.Cases, nil
}

// FetchInventory downloads every inventory entry.
func (c *Client) FetchInventory(ctx context.Context) ([]InventoryEntry, error) {
	var entries []InventoryEntry
	if err := c.get(ctx, "/inventory/all", &entries); err != nil {
		return nil, fmt.Errorf("fetching inventory: %w", err)
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return &StatusError{URL: url, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
