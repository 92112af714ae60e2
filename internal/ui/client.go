package ui

import (
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/spacefrags/kopiahook/internal/sensor"
)

// Client fetches slot views from a running kopiahook server.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client for the given base endpoint, e.g.
// "http://127.0.0.1:8099".
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Slots fetches the current slot views.
func (c *Client) Slots() ([]sensor.View, error) {
	resp, err := c.http.Get(c.endpoint + "/api/slots")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GET /api/slots: %s: %s", resp.Status, body)
	}

	var views []sensor.View
	if err := jsoniter.NewDecoder(resp.Body).Decode(&views); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	return views, nil
}
