package main

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

	"matter-go-home/internal/schema"
)

// client talks to the matter-home HTTP API.
type client struct {
	base   string
	apiKey string
	http   *http.Client
}

func newClient(base, apiKey string) *client {
	return &client{
		base:   base,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 45 * time.Second},
	}
}

// apiError is a non-2xx response.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	// A gateway timeout on a waited write still carries the request id.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusGatewayTimeout {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		if e.Error == "" {
			e.Error = string(bytes.TrimSpace(data))
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type clusterSummary struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	Attributes int    `json:"attributes"`
	Writable   int    `json:"writable"`
	Events     int    `json:"events"`
}

type paramView struct {
	Name string         `json:"name"`
	Ref  schema.TypeRef `json:"type"`
}

type descriptorView struct {
	Cluster      string        `json:"cluster"`
	Attribute    string        `json:"attribute"`
	AttributeID  uint32        `json:"attribute_id"`
	Params       []paramView   `json:"params"`
	TimedTimeout time.Duration `json:"timed_timeout"`
}

type nodeView struct {
	ID         uint64    `json:"id"`
	Label      string    `json:"label"`
	LastSeen   time.Time `json:"last_seen"`
	EventCount uint64    `json:"event_count"`
}

type eventView struct {
	Seq   uint64 `json:"seq"`
	Event struct {
		Node      uint64         `json:"node"`
		Endpoint  uint16         `json:"endpoint"`
		Number    uint64         `json:"number"`
		Priority  string         `json:"priority"`
		Timestamp time.Time      `json:"timestamp"`
		Cluster   string         `json:"cluster"`
		Event     string         `json:"event"`
		Fields    map[string]any `json:"fields"`
	} `json:"event"`
}

type writeRequest struct {
	Endpoint  uint16         `json:"endpoint"`
	Cluster   string         `json:"cluster"`
	Attribute string         `json:"attribute"`
	Value     any            `json:"value,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	TimedMs   *uint32        `json:"timed_ms,omitempty"`
	Wait      bool           `json:"wait"`
}

// nullValue marks an explicit null written as the single value; a nil Value
// is omitted from the request.
type nullValue struct{}

func (nullValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

type writeResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

func (c *client) clusters(ctx context.Context) ([]clusterSummary, error) {
	var out []clusterSummary
	return out, c.do(ctx, http.MethodGet, "/api/clusters", nil, &out)
}

func (c *client) writable(ctx context.Context, cluster string) ([]descriptorView, error) {
	var out []descriptorView
	return out, c.do(ctx, http.MethodGet, "/api/clusters/"+url.PathEscape(cluster)+"/writable", nil, &out)
}

func (c *client) nodes(ctx context.Context) ([]nodeView, error) {
	var out []nodeView
	return out, c.do(ctx, http.MethodGet, "/api/nodes", nil, &out)
}

func (c *client) write(ctx context.Context, node string, req writeRequest) (*writeResponse, error) {
	var out writeResponse
	if err := c.do(ctx, http.MethodPost, "/api/nodes/"+url.PathEscape(node)+"/write", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) events(ctx context.Context, filterExpr string, limit int) ([]eventView, error) {
	q := url.Values{}
	q.Set("newest", "true")
	q.Set("limit", strconv.Itoa(limit))
	if filterExpr != "" {
		q.Set("filter", filterExpr)
	}
	var out []eventView
	return out, c.do(ctx, http.MethodGet, "/api/events?"+q.Encode(), nil, &out)
}
