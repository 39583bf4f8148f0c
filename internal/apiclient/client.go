// Package apiclient is the REST client for the Evil Twitter backend.
//
// Reads go through a retrying transport; mutations are sent exactly once.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"eviltwitter/internal/auth"
	"eviltwitter/internal/config"
	"eviltwitter/internal/logging"
	"eviltwitter/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error is a failed backend call. Message is what the user sees.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

// NotFound reports whether the backend answered 404.
func (e *Error) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Options tunes the transport. Zero values take the defaults of config.Default.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	RPS          float64
	Burst        int
	MaxAttempts  int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// OptionsFromConfig maps the client section of the config file.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.Client.Timeout,
		RPS:         cfg.Client.RPS,
		Burst:       cfg.Client.Burst,
		MaxAttempts: cfg.Client.MaxAttempts,
	}
}

// Client talks to the REST API. Safe for concurrent use.
type Client struct {
	baseURL string
	session *auth.Session
	reads   *http.Client
	writes  *http.Client
	limiter *rate.Limiter
}

func New(opts Options, session *auth.Session) *Client {
	def := config.Default().Client
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 500 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 8 * time.Second
	}
	if session == nil {
		session = &auth.Session{}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.RetryMax = opts.MaxAttempts - 1
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.Logger = retryablehttp.LeveledLogger(leveledZerolog{})
	// hand the last response back so its status and body reach errorFromResponse
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			metrics.IncAPIRetry(endpointFrom(req.Context()))
		}
	}
	reads := rc.StandardClient()
	reads.Timeout = opts.Timeout

	writes := cleanhttp.DefaultPooledClient()
	writes.Timeout = opts.Timeout

	return &Client{
		baseURL: strings.TrimRight(firstNonEmpty(opts.BaseURL, config.DefaultBaseURL), "/"),
		session: session,
		reads:   reads,
		writes:  writes,
		limiter: newLimiter(opts.RPS, opts.Burst),
	}
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *auth.Session { return c.session }

func (c *Client) BaseURL() string { return c.baseURL }

type endpointKey struct{}

func withEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint)
}

func endpointFrom(ctx context.Context) string {
	if v, ok := ctx.Value(endpointKey{}).(string); ok {
		return v
	}
	return "unknown"
}

// call describes one request. endpoint is the route template used as a metric label.
type call struct {
	method   string
	endpoint string
	path     string
	query    url.Values
	body     any
	// requireAuth fails fast without a session; otherwise the token is attached when present
	requireAuth bool
}

// do performs the call and decodes a successful body into out (when non-nil).
func (c *Client) do(ctx context.Context, cl call, out any) error {
	raw, err := c.doRaw(ctx, cl)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", cl.endpoint, err)
	}
	return nil
}

// doRaw performs the call and returns the response body of a 2xx answer.
func (c *Client) doRaw(ctx context.Context, cl call) ([]byte, error) {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	ctx = withEndpoint(ctx, cl.endpoint)
	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if cl.method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.requireAuth {
		tok, err := c.session.Token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		c.session.Authorize(req)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	hc := c.writes
	if cl.method == http.MethodGet {
		hc = c.reads
	}
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		metrics.ObserveRequest(cl.endpoint, 0, start)
		logging.Warn("api_request_failed", map[string]any{"endpoint": cl.endpoint, "error": err.Error()})
		return nil, err
	}
	defer resp.Body.Close()
	metrics.ObserveRequest(cl.endpoint, resp.StatusCode, start)
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		apiErr := errorFromResponse(resp, raw)
		logging.Debug("api_error", map[string]any{"endpoint": cl.endpoint, "status": resp.StatusCode, "message": apiErr.Message})
		return nil, apiErr
	}
	return raw, nil
}

// errorFromResponse takes the message from the body's "error" field, then the
// status text, then a generic fallback.
func errorFromResponse(resp *http.Response, body []byte) *Error {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil {
		switch v := payload.Error.(type) {
		case string:
			msg = v
		case map[string]any:
			if m, ok := v["message"].(string); ok {
				msg = m
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if msg == "" {
		msg = "Request failed"
	}
	return &Error{StatusCode: resp.StatusCode, Message: msg}
}

// leveledZerolog adapts the process logger for retryablehttp. Errors are
// logged as warnings since a retry usually follows.
type leveledZerolog struct{}

func kv(keysAndValues []any) map[string]any {
	out := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}

func (leveledZerolog) Error(msg string, keysAndValues ...any) { logging.Warn(msg, kv(keysAndValues)) }
func (leveledZerolog) Warn(msg string, keysAndValues ...any)  { logging.Warn(msg, kv(keysAndValues)) }
func (leveledZerolog) Info(msg string, keysAndValues ...any)  { logging.Debug(msg, kv(keysAndValues)) }
func (leveledZerolog) Debug(msg string, keysAndValues ...any) { logging.Debug(msg, kv(keysAndValues)) }

func esc(s string) string { return url.PathEscape(s) }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Limiter is the outbound token bucket, shared with the GraphQL client.
func (c *Client) Limiter() *rate.Limiter { return c.limiter }
