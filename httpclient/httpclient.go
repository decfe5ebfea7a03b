// Package httpclient wraps resty with the defaults and error mapping our
// services use against JSON APIs. Transport behavior (retries, redirects,
// TLS) is resty's; callers needing the full surface use Resty directly.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrUnauthorized maps 401 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden maps 403 responses.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound maps 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrServer maps 5xx responses.
	ErrServer = errors.New("server error")
)

// Config controls client construction. Zero fields get defaults.
type Config struct {
	// BaseURL prefixes request paths. Trailing slashes are trimmed.
	BaseURL string

	// Timeout bounds each attempt, 30s by default.
	Timeout time.Duration

	// RetryCount enables resty's retry with this many attempts beyond
	// the first. Zero disables retries.
	RetryCount int

	// RetryWaitTime is the base wait between retries, 1s by default.
	RetryWaitTime time.Duration

	// AuthToken, when set, is sent as a bearer token on every request.
	AuthToken string

	// UserAgent overrides the default kitbag user agent.
	UserAgent string

	// Debug turns on resty's request/response dumping.
	Debug bool

	// Logger receives resty's internal messages. Nil discards them.
	Logger *zerolog.Logger

	// Breaker enables a circuit breaker on the JSON helpers. Transport
	// errors and 5xx responses count as failures; once it opens, calls
	// return ErrCircuitOpen without touching the network.
	Breaker *BreakerConfig
}

// Client is a thin resty wrapper with bearer auth and status mapping.
type Client struct {
	rc      *resty.Client
	breaker *Breaker
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWaitTime <= 0 {
		cfg.RetryWaitTime = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "kitbag-httpclient"
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{log}).
		SetDebug(cfg.Debug)

	if cfg.BaseURL != "" {
		rc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	}
	if cfg.AuthToken != "" {
		rc.SetAuthToken(cfg.AuthToken)
	}

	c := &Client{rc: rc}
	if cfg.Breaker != nil {
		c.breaker = NewBreaker(*cfg.Breaker)
	}
	return c
}

// Resty exposes the underlying client for anything the wrapper does not
// cover. Requests made through it bypass the circuit breaker.
func (c *Client) Resty() *resty.Client {
	return c.rc
}

// Breaker returns the circuit breaker, nil when none is configured.
func (c *Client) Breaker() *Breaker {
	return c.breaker
}

// SetAuthToken replaces the bearer token sent on every request.
func (c *Client) SetAuthToken(token string) {
	c.rc.SetAuthToken(token)
}

// R starts a request bound to ctx.
func (c *Client) R(ctx context.Context) *resty.Request {
	return c.rc.R().SetContext(ctx)
}

// GetJSON issues a GET and decodes a successful JSON response into out.
// A nil out discards the response body. Error statuses map to the
// package sentinels.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	if err := c.allow(); err != nil {
		return err
	}

	req := c.R(ctx)
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Get(path)
	if err != nil {
		c.record(false)
		return fmt.Errorf("getting %s: %w", path, err)
	}

	statusErr := statusError(resp)
	c.record(!errors.Is(statusErr, ErrServer))
	return statusErr
}

// PostJSON issues a POST with a JSON body and decodes a successful JSON
// response into out. A nil out discards the response body.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	if err := c.allow(); err != nil {
		return err
	}

	req := c.R(ctx).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Post(path)
	if err != nil {
		c.record(false)
		return fmt.Errorf("posting %s: %w", path, err)
	}

	statusErr := statusError(resp)
	c.record(!errors.Is(statusErr, ErrServer))
	return statusErr
}

// Delete issues a DELETE and maps the response status.
func (c *Client) Delete(ctx context.Context, path string) error {
	if err := c.allow(); err != nil {
		return err
	}

	resp, err := c.R(ctx).Delete(path)
	if err != nil {
		c.record(false)
		return fmt.Errorf("deleting %s: %w", path, err)
	}

	statusErr := statusError(resp)
	c.record(!errors.Is(statusErr, ErrServer))
	return statusErr
}

func (c *Client) allow() error {
	if c.breaker != nil && !c.breaker.Allow() {
		return ErrCircuitOpen
	}
	return nil
}

// record feeds the request outcome to the breaker. Any response from
// the backend counts as success except 5xx; only those and transport
// errors push the breaker toward opening.
func (c *Client) record(ok bool) {
	if c.breaker == nil {
		return
	}
	if ok {
		c.breaker.Success()
	} else {
		c.breaker.Failure()
	}
}

// statusError maps a response status onto the package sentinels, nil for
// anything below 400.
func statusError(resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code < http.StatusBadRequest:
		return nil
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrServer, resp.Status())
	default:
		return fmt.Errorf("unexpected status %s", resp.Status())
	}
}

// restyLogger adapts zerolog to resty's logger interface.
type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.log.Error().Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.log.Warn().Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.log.Debug().Msgf(format, v...)
}
