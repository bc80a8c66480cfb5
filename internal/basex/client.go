// Package basex is the connector to the canonical BaseX document store,
// speaking its REST interface.
package basex

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// restQuery is the BaseX REST query envelope.
type restQuery struct {
	XMLName xml.Name `xml:"query"`
	Xmlns   string   `xml:"xmlns,attr"`
	Text    string   `xml:"text"`
}

const restNamespace = "http://basex.org/rest"

// Client executes XQuery text against a BaseX server. It is bound to a
// base database name; callers derive per-project databases from it.
type Client struct {
	baseURL  string
	username string
	password string
	database string
	httpc    *http.Client
	healthy  atomic.Bool
}

func NewClient(baseURL, username, password, database string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		database: database,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Database returns the bound base database name.
func (c *Client) Database() string {
	return c.database
}

// Connect probes the server. IsConnected reflects the outcome of the most
// recent probe or request.
func (c *Client) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest", nil)
	if err != nil {
		return fmt.Errorf("basex connect: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.healthy.Store(false)
		return fmt.Errorf("basex connect %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.healthy.Store(false)
		return fmt.Errorf("basex connect %s: status %d", c.baseURL, resp.StatusCode)
	}
	c.healthy.Store(true)
	return nil
}

// IsConnected reports whether the last probe or request succeeded.
func (c *Client) IsConnected() bool {
	return c.healthy.Load()
}

// ExecuteQuery runs a read query and returns the serialized result text.
func (c *Client) ExecuteQuery(ctx context.Context, query string) (string, error) {
	return c.execute(ctx, query)
}

// ExecuteUpdate runs an updating query. BaseX applies the statement's
// pending update list atomically.
func (c *Client) ExecuteUpdate(ctx context.Context, query string) error {
	_, err := c.execute(ctx, query)
	return err
}

func (c *Client) execute(ctx context.Context, query string) (string, error) {
	body, err := xml.Marshal(restQuery{Xmlns: restNamespace, Text: query})
	if err != nil {
		return "", fmt.Errorf("basex encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest", strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("basex request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("basex query: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("basex read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("basex query failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	c.healthy.Store(true)
	return string(text), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}
