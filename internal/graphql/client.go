// Package graphql is the client for the backend's GraphQL endpoint.
package graphql

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"eviltwitter/internal/auth"
	"eviltwitter/internal/logging"
	"eviltwitter/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error is a GraphQL or transport failure. StatusCode is 0 when the server
// answered 200 with an errors array.
type Error struct {
	StatusCode int
	Message    string
	Path       []any
}

func (e *Error) Error() string { return e.Message }

// ErrNoData is returned when a response carries neither data nor errors.
var ErrNoData = errors.New("graphql: empty response")

type Options struct {
	// Endpoint is the full URL, e.g. http://localhost:3000/graphql
	Endpoint string
	Timeout  time.Duration
	Limiter  *rate.Limiter
}

type Client struct {
	endpoint string
	session  *auth.Session
	hc       *http.Client
	limiter  *rate.Limiter
}

func New(opts Options, session *auth.Session) *Client {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = opts.Timeout
	if hc.Timeout <= 0 {
		hc.Timeout = 15 * time.Second
	}
	lim := opts.Limiter
	if lim == nil {
		lim = rate.NewLimiter(rate.Inf, 1)
	}
	if session == nil {
		session = &auth.Session{}
	}
	return &Client{endpoint: opts.Endpoint, session: session, hc: hc, limiter: lim}
}

// Endpoint joins base and path into the GraphQL URL.
func Endpoint(base, path string) string {
	if path == "" {
		path = "/graphql"
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

type response struct {
	Data   jsoniter.RawMessage `json:"data"`
	Errors []gqlError          `json:"errors"`
}

// Do runs op with vars and decodes the data object into out. Mutations need a
// session; queries attach the token only when one exists.
func (c *Client) Do(ctx context.Context, op Operation, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: op.Query, OperationName: op.Name, Variables: vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if op.Mutation {
		tok, err := c.session.Token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		c.session.Authorize(req)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	endpoint := "graphql " + op.Name
	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.ObserveRequest(endpoint, 0, start)
		logging.Warn("graphql_request_failed", map[string]any{"operation": op.Name, "error": err.Error()})
		return err
	}
	defer resp.Body.Close()
	metrics.ObserveRequest(endpoint, resp.StatusCode, start)
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var r response
	decodeErr := json.Unmarshal(raw, &r)
	if decodeErr == nil && len(r.Errors) > 0 {
		e := r.Errors[0]
		msg := e.Message
		if msg == "" {
			msg = "GraphQL request failed"
		}
		logging.Debug("graphql_error", map[string]any{"operation": op.Name, "message": msg})
		status := 0
		if resp.StatusCode >= 400 {
			status = resp.StatusCode
		}
		return &Error{StatusCode: status, Message: msg, Path: e.Path}
	}
	if resp.StatusCode >= 400 {
		msg := http.StatusText(resp.StatusCode)
		if msg == "" {
			msg = "Request failed"
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s: %w", op.Name, decodeErr)
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return ErrNoData
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", op.Name, err)
	}
	return nil
}
