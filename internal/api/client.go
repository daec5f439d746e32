// Package api talks to the todo backend over JSON-over-HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/model"
)

const (
	// DefaultPrefix is the collection path of the current backend.
	DefaultPrefix = "/api/todos"
	// LegacyPrefix is the collection path of the first backend iteration.
	LegacyPrefix = "/todos"

	defaultTimeout = 10 * time.Second
	maxBody        = 8 << 20
)

// Options configure a Client.
type Options struct {
	BaseURL    string // e.g. http://localhost:5000
	Prefix     string // collection path, DefaultPrefix when empty
	Timeout    time.Duration
	Strict     bool // validate response bodies against the todo schema
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client is a thin CRUD client. Safe for concurrent use.
type Client struct {
	base   *url.URL
	prefix string
	hc     *http.Client
	log    *log.Logger
	schema *schemas
}

// New validates the options and returns a ready client.
func New(opt Options) (*Client, error) {
	raw := strings.TrimSpace(opt.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	prefix := strings.TrimSpace(opt.Prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return nil, fmt.Errorf("prefix %q must name a collection path", opt.Prefix)
	}
	if !strings.HasPrefix(prefix, "/") {
		return nil, fmt.Errorf("prefix %q must start with /", opt.Prefix)
	}

	hc := opt.HTTPClient
	if hc == nil {
		timeout := opt.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opt.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &Client{base: u, prefix: prefix, hc: hc, log: logger}
	if opt.Strict {
		s, err := loadSchemas()
		if err != nil {
			return nil, err
		}
		c.schema = s
	}
	return c, nil
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string { return c.base.String() }

// List fetches the whole collection. A non-empty user scopes the request.
func (c *Client) List(ctx context.Context, user string) ([]model.Todo, error) {
	const op = "list todos"
	q := url.Values{}
	if user != "" {
		q.Set("user", user)
	}
	body, err := c.do(ctx, op, http.MethodGet, c.collectionURL(q), nil)
	if err != nil {
		return nil, err
	}
	if c.schema != nil {
		if err := c.schema.validateList(body); err != nil {
			return nil, &SchemaError{Op: op, Err: err}
		}
	}
	var todos []model.Todo
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &todos); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
	}
	for i := range todos {
		todos[i].Normalize()
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Create posts a new todo and returns the record the server created. The
// returned record has an empty ID when the server replied without one.
func (c *Client) Create(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	const op = "create todo"
	payload, err := json.Marshal(in)
	if err != nil {
		return model.Todo{}, fmt.Errorf("%s: encode: %w", op, err)
	}
	body, err := c.do(ctx, op, http.MethodPost, c.collectionURL(nil), payload)
	if err != nil {
		return model.Todo{}, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return model.Todo{}, nil
	}
	if c.schema != nil {
		if err := c.schema.validateTodo(body); err != nil {
			return model.Todo{}, &SchemaError{Op: op, Err: err}
		}
	}
	var out model.Todo
	if err := json.Unmarshal(body, &out); err != nil {
		return model.Todo{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	out.Normalize()
	return out, nil
}

// Update sends a partial update. The response body is ignored.
func (c *Client) Update(ctx context.Context, id model.ID, p model.Patch) error {
	const op = "update todo"
	if id == "" {
		return fmt.Errorf("%s: empty id", op)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	_, err = c.do(ctx, op, http.MethodPut, c.itemURL(id), payload)
	return err
}

// Delete removes one todo. The response body is ignored.
func (c *Client) Delete(ctx context.Context, id model.ID) error {
	const op = "delete todo"
	if id == "" {
		return fmt.Errorf("%s: empty id", op)
	}
	_, err := c.do(ctx, op, http.MethodDelete, c.itemURL(id), nil)
	return err
}

// -------------- plumbing --------------

func (c *Client) collectionURL(q url.Values) string {
	u := *c.base
	u.Path = u.Path + c.prefix
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) itemURL(id model.ID) string {
	u := *c.base
	u.Path = u.Path + c.prefix + "/" + string(id)
	u.RawPath = c.base.EscapedPath() + c.prefix + "/" + url.PathEscape(string(id))
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", req.URL.Path, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if len(body) > maxBody {
		return nil, fmt.Errorf("%s: response too large (over %d bytes)", op, maxBody)
	}
	c.log.Debug("request", "method", method, "path", req.URL.Path,
		"status", resp.StatusCode, "took", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Op:     op,
			Method: method,
			URL:    req.URL.String(),
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}
