// Package apiclient is the desk's HTTP JSON client for the content API.
// Every call takes a context, gets a default deadline when the context has
// none, and returns one of the typed errors in errors.go.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsdesk/internal/models"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRetries    = 2
	defaultRetryWait  = 100 * time.Millisecond
	defaultRetryLimit = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	Logger     *slog.Logger
}

// Client talks to the content API. Requests that are safe to repeat go
// through rest, which retries; creates go through once, which never does.
type Client struct {
	baseURL *url.URL
	rest    *resty.Client
	once    *resty.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL scheme must be http or https, got %q", base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base URL must have a host, got %q", opts.BaseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	} else if opts.RetryCount == 0 {
		opts.RetryCount = defaultRetries
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultRetryWait
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rest := buildHTTPClient(base.String(), opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(defaultRetryLimit).
		AddRetryCondition(retryCondition)

	return &Client{
		baseURL: base,
		rest:    rest,
		once:    buildHTTPClient(base.String(), opts.Timeout),
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}, nil
}

func buildHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

// retryCondition retries transport failures, 5xx and 429.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type call struct {
	op      string
	method  string
	path    string
	query   map[string]string
	body    any
	noRetry bool
}

// do executes one call and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rc := c.rest
	if cl.noRetry {
		rc = c.once
	}
	req := rc.R().SetContext(ctx).SetError(&apiError{})
	if cl.body != nil {
		req.SetBody(cl.body)
	}
	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}

	start := time.Now()
	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		err = classifyTransport(ctx, cl.op, err)
		c.logger.WarnContext(ctx, "api request failed",
			slog.String("op", cl.op),
			slog.String("method", cl.method),
			slog.String("path", cl.path),
			slog.String("kind", Kind(err)),
			slog.String("error", err.Error()))
		return nil, err
	}

	c.logger.DebugContext(ctx, "api request completed",
		slog.String("op", cl.op),
		slog.String("method", cl.method),
		slog.String("path", cl.path),
		slog.Int("status", resp.StatusCode()),
		slog.Duration("duration", time.Since(start)))

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		body, _ := resp.Error().(*apiError)
		return nil, statusError(cl.op, resp.StatusCode(), body)
	}
	return resp.Body(), nil
}

func resourcePath(kind models.ContentKind, parts ...string) string {
	p := "/api/" + kind.Resource()
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// ListQuery narrows a list fetch server-side. Zero values are omitted.
type ListQuery struct {
	Search   string
	Status   string
	Category string
	Sort     string
	Limit    int
	Offset   int
}

func (q ListQuery) params() map[string]string {
	out := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("q", q.Search)
	set("status", q.Status)
	set("category", q.Category)
	set("sort", q.Sort)
	if q.Limit > 0 {
		out["limit"] = strconv.Itoa(q.Limit)
	}
	if q.Offset > 0 {
		out["offset"] = strconv.Itoa(q.Offset)
	}
	return out
}

// ListResult is a validated list plus the server's list version token.
type ListResult struct {
	Items   []models.ContentItem
	Version int64
}

// List fetches one content list.
func (c *Client) List(ctx context.Context, kind models.ContentKind, q ListQuery) (ListResult, error) {
	op := "list " + kind.Resource()
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: resourcePath(kind), query: q.params()})
	if err != nil {
		return ListResult{}, err
	}
	return decodeList(op, kind, body)
}

// Get fetches a single item.
func (c *Client) Get(ctx context.Context, kind models.ContentKind, id string) (models.ContentItem, error) {
	op := "get " + kind.Resource()
	if strings.TrimSpace(id) == "" {
		return models.ContentItem{}, &ValidationError{Field: "id", Message: "id is required"}
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: resourcePath(kind, id)})
	if err != nil {
		return models.ContentItem{}, err
	}
	return decodeItem(op, kind, body)
}

// Create posts a new item. It is never retried: a lost response could
// otherwise create duplicates.
func (c *Client) Create(ctx context.Context, kind models.ContentKind, draft models.ContentItem) (models.ContentItem, error) {
	op := "create " + kind.Resource()
	if err := ValidateDraft(draft); err != nil {
		return models.ContentItem{}, err
	}
	draft.Kind = kind
	body, err := c.do(ctx, call{op: op, method: http.MethodPost, path: resourcePath(kind), body: draft, noRetry: true})
	if err != nil {
		return models.ContentItem{}, err
	}
	return decodeItem(op, kind, body)
}

// Update sends a partial update.
func (c *Client) Update(ctx context.Context, kind models.ContentKind, id string, patch map[string]any) (models.ContentItem, error) {
	op := "update " + kind.Resource()
	if strings.TrimSpace(id) == "" {
		return models.ContentItem{}, &ValidationError{Field: "id", Message: "id is required"}
	}
	if title, ok := patch["title"].(string); ok && strings.TrimSpace(title) == "" {
		return models.ContentItem{}, &ValidationError{Field: "title", Message: "title is required"}
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodPatch, path: resourcePath(kind, id), body: patch})
	if err != nil {
		return models.ContentItem{}, err
	}
	return decodeItem(op, kind, body)
}

// Replace sends a full update of item.
func (c *Client) Replace(ctx context.Context, kind models.ContentKind, item models.ContentItem) (models.ContentItem, error) {
	op := "replace " + kind.Resource()
	if strings.TrimSpace(item.ID) == "" {
		return models.ContentItem{}, &ValidationError{Field: "id", Message: "id is required"}
	}
	if err := ValidateDraft(item); err != nil {
		return models.ContentItem{}, err
	}
	item.Kind = kind
	body, err := c.do(ctx, call{op: op, method: http.MethodPut, path: resourcePath(kind, item.ID), body: item})
	if err != nil {
		return models.ContentItem{}, err
	}
	return decodeItem(op, kind, body)
}

// Delete removes an item and requires the server to confirm with success.
// It returns the list version after the delete.
func (c *Client) Delete(ctx context.Context, kind models.ContentKind, id string) (int64, error) {
	op := "delete " + kind.Resource()
	if strings.TrimSpace(id) == "" {
		return 0, &ValidationError{Field: "id", Message: "id is required"}
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodDelete, path: resourcePath(kind, id)})
	if err != nil {
		return 0, err
	}
	return ackVersion(op, body)
}

type reorderEntry struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

type reorderRequest struct {
	Items   []reorderEntry `json:"items"`
	Version *int64         `json:"version,omitempty"`
}

// Reorder ships the whole ordered list. A non-zero version is sent as the
// expected list version; a mismatch comes back as StaleStateError. It
// returns the list version after the reorder.
func (c *Client) Reorder(ctx context.Context, kind models.ContentKind, items []models.ContentItem, version int64) (int64, error) {
	op := "reorder " + kind.Resource()
	req := reorderRequest{Items: make([]reorderEntry, len(items))}
	for i, it := range items {
		req.Items[i] = reorderEntry{ID: it.ID, Order: it.Order}
	}
	if version > 0 {
		req.Version = &version
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodPost, path: resourcePath(kind, "reorder"), body: req})
	if err != nil {
		return 0, err
	}
	return ackVersion(op, body)
}

// Move asks the server to place one item at a 1-based position.
func (c *Client) Move(ctx context.Context, kind models.ContentKind, id string, position int, version int64) (int64, error) {
	op := "move " + kind.Resource()
	if strings.TrimSpace(id) == "" {
		return 0, &ValidationError{Field: "id", Message: "id is required"}
	}
	if position < 1 {
		return 0, &ValidationError{Field: "position", Message: "position must be at least 1"}
	}
	req := map[string]any{"position": position}
	if version > 0 {
		req["version"] = version
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodPost, path: resourcePath(kind, id, "move"), body: req})
	if err != nil {
		return 0, err
	}
	return ackVersion(op, body)
}

// InteractionRequest toggles one interaction. Active is the desired end
// state, so repeating the request is harmless.
type InteractionRequest struct {
	UserID   string
	TargetID string
	Type     models.InteractionType
	Active   bool
}

type interactionBody struct {
	UserID   string                 `json:"user_id"`
	TargetID string                 `json:"target_id"`
	Type     models.InteractionType `json:"type"`
	Metadata map[string]any         `json:"metadata"`
}

// Interact records a like, bookmark or share.
func (c *Client) Interact(ctx context.Context, in InteractionRequest) (models.InteractionResult, error) {
	op := "interact"
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return models.InteractionResult{}, &ValidationError{Field: "user_id", Message: "user id is required"}
	case strings.TrimSpace(in.TargetID) == "":
		return models.InteractionResult{}, &ValidationError{Field: "target_id", Message: "target id is required"}
	case !in.Type.Valid():
		return models.InteractionResult{}, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown interaction type %q", in.Type)}
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodPost, path: "/api/interactions", body: interactionBody{
		UserID:   in.UserID,
		TargetID: in.TargetID,
		Type:     in.Type,
		Metadata: map[string]any{"active": in.Active},
	}})
	if err != nil {
		return models.InteractionResult{}, err
	}
	var out models.InteractionResult
	if err := json.Unmarshal(body, &out); err != nil {
		return models.InteractionResult{}, &SchemaError{Op: op, Reason: "invalid JSON", Err: err}
	}
	if out.PointsEarned < 0 || out.Likes < 0 || out.Bookmarks < 0 || out.Shares < 0 {
		return models.InteractionResult{}, &SchemaError{Op: op, Reason: "negative counter"}
	}
	return out, nil
}

// Points returns a user's gamification total.
func (c *Client) Points(ctx context.Context, userID string) (int, error) {
	op := "points"
	if strings.TrimSpace(userID) == "" {
		return 0, &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/api/users/" + url.PathEscape(userID) + "/points"})
	if err != nil {
		return 0, err
	}
	var out struct {
		Points *int `json:"points"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, &SchemaError{Op: op, Reason: "invalid JSON", Err: err}
	}
	if out.Points == nil {
		return 0, &SchemaError{Op: op, Reason: "missing points"}
	}
	return *out.Points, nil
}
