package bgg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/DanielHemmis/BggCollections/pkg/config"
	pkgerrors "github.com/DanielHemmis/BggCollections/pkg/errors"
)

const (
	defaultBaseURL          = "https://boardgamegeek.com/xmlapi2"
	defaultTimeout          = 30 * time.Second
	defaultMaxAttempts      = 3
	defaultRetryDelay       = time.Second
	errorBodyReadLimit      = 1024
	userAgent               = "BggCollections/1.0"
	MaxThingIDsPerRequest   = 20
	collectionQueuedMessage = "collection request queued"
)

var errQueued = errors.New(collectionQueuedMessage)

// Client talks to the BoardGameGeek XML API2.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	maxAttempts int
	retryDelay  time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithToken sets the application token sent as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithRetry sets how many attempts a request gets and the fixed delay
// between them.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// NewClient builds a BoardGameGeek client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// NewClientFromConfig builds a client from the BGG config section.
func NewClientFromConfig(cfg config.BGGConfig, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithToken(cfg.Token),
		WithRetry(cfg.MaxAttempts, cfg.RetryDelay),
	}
	if cfg.Timeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return NewClient(append(base, opts...)...)
}

// Collection returns the games username marks as owned.
func (c *Client) Collection(ctx context.Context, username string) ([]CollectionItem, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bgg client not configured")
	}
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}

	params := url.Values{}
	params.Set("username", trimmed)
	params.Set("own", "1")
	params.Set("stats", "1")

	body, err := c.fetch(ctx, "collection", params)
	if err != nil {
		return nil, err
	}
	items, err := decodeCollection(body)
	if err != nil {
		return nil, err
	}

	owned := make([]CollectionItem, 0, len(items))
	for _, item := range items {
		if item.Owned {
			owned = append(owned, item)
		}
	}
	return owned, nil
}

// Things returns metadata for up to MaxThingIDsPerRequest ids. Unknown ids
// are simply absent from the result.
func (c *Client) Things(ctx context.Context, ids []int64) ([]Thing, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bgg client not configured")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxThingIDsPerRequest {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many ids in one thing request").
			WithDetails(map[string]any{"ids": len(ids), "max": MaxThingIDsPerRequest})
	}

	joined := make([]string, len(ids))
	for i, id := range ids {
		joined[i] = fmt.Sprint(id)
	}
	params := url.Values{}
	params.Set("id", strings.Join(joined, ","))
	params.Set("stats", "1")

	body, err := c.fetch(ctx, "thing", params)
	if err != nil {
		return nil, err
	}
	return decodeThings(body)
}

// fetch performs a GET with retries. Transport errors, 202 (queued), 429 and
// 5xx responses are retried after a fixed delay; other statuses are final.
func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	operation := func() ([]byte, error) {
		body, err := c.do(ctx, path, params)
		if err != nil && !pkgerrors.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}
	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryDelay)),
		backoff.WithMaxTries(uint(c.maxAttempts)),
	)
	if err != nil {
		if errors.Is(err, errQueued) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "bgg kept the request queued")
		}
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bgg request failed")
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path, params), nil)
	if err != nil {
		return nil, backoff.Permanent(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build bgg request"))
	}
	httpReq.Header.Set("Accept", "application/xml")
	httpReq.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "bgg request canceled"))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute bgg request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read bgg response")
		}
		return body, nil
	case resp.StatusCode == http.StatusAccepted:
		return nil, errQueued
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "bgg rate limit hit")
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, statusError(resp), "bgg server error")
	}

	err = statusError(resp)
	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "bgg resource not found")
	}
	return nil, backoff.Permanent(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bgg request rejected"))
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

func (c *Client) buildURL(path string, params url.Values) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	if len(params) == 0 {
		return fmt.Sprintf("%s/%s", trimmed, path)
	}
	return fmt.Sprintf("%s/%s?%s", trimmed, path, params.Encode())
}
