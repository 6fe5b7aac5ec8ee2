// Package apiclient is the JSON-over-HTTP transport between the client and the
// blog API server. It knows about the server's response envelope
// ({success, message, data}), bearer credentials and status-code mapping, and
// nothing about posts, comments or sessions: the domain packages build requests
// and decode the data payload themselves.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/config"
)

// maxBodySize caps how much of a response we are willing to read.
const maxBodySize = 8 << 20

// Envelope is the wrapper every API response uses.
// Success is a pointer because some endpoints omit it; absence counts as success.
type Envelope struct {
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Raw is the undecoded response body, for endpoints whose payload is not
	// (only) under data.
	Raw []byte `json:"-"`
}

// HasData reports whether the envelope carried a non-null data payload.
func (e *Envelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Request describes one call to the API.
type Request struct {
	Method string
	Path   string // relative to the base URL, e.g. "/blogs/42/like"
	Query  url.Values
	Token  string // bearer credential; empty for anonymous calls
	Body   any    // encoded as JSON when non-nil

	// Credentials marks the login/register endpoints, where a 401 means
	// "invalid credentials" rather than "token rejected".
	Credentials bool
}

// Doer is what the domain services need from the transport.
// *Client implements it; tests may substitute their own.
type Doer interface {
	Do(ctx context.Context, req Request, out any) (*Envelope, error)
}

// Client sends requests to one API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logHTTP    bool
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (tests use the one from httptest).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client from the API configuration.
func New(cfg *config.APIConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logHTTP:    cfg.LogHTTP,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and, on success, decodes the envelope's data payload into out
// (skipped when out is nil or the payload is empty). Every failure is returned as
// an *apperror.AppError: transport problems as NetworkError, non-2xx answers via
// apperror.FromStatus, and `success: false` bodies as UnknownError carrying the
// server message.
func (c *Client) Do(ctx context.Context, req Request, out any) (*Envelope, error) {
	httpReq, requestID, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.logHTTP {
			log.Printf("apiclient: %s %s failed after %s [%s]: %v", req.Method, req.Path, time.Since(start), requestID, err)
		}
		return nil, apperror.NewNetworkError("Network error. Please check your connection", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperror.NewNetworkError("Network error while reading the response", err)
	}
	if c.logHTTP {
		log.Printf("apiclient: %s %s -> %d in %s [%s]", req.Method, req.Path, resp.StatusCode, time.Since(start), requestID)
	}

	env := &Envelope{Raw: raw}
	decodeErr := decodeEnvelope(raw, env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Error bodies are best-effort: a proxy may answer with HTML.
		return env, apperror.FromStatus(resp.StatusCode, env.Message, req.Credentials)
	}
	if decodeErr != nil {
		return env, apperror.NewAppError(apperror.UnknownError, "Unexpected response from server", decodeErr)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "The request was not successful"
		}
		return env, apperror.NewAppError(apperror.UnknownError, msg, nil)
	}

	if out != nil && env.HasData() {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env, apperror.NewAppError(apperror.UnknownError, "Unexpected response from server", fmt.Errorf("decoding data of %s %s: %w", req.Method, req.Path, err))
		}
	}
	return env, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, string, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", apperror.NewAppError(apperror.UnknownError, "Failed to encode request", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, "", apperror.NewAppError(apperror.UnknownError, "Failed to build request", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	return httpReq, requestID, nil
}

func decodeEnvelope(raw []byte, env *Envelope) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '{' {
		// A bare array or scalar is treated as the data payload itself.
		if trimmed[0] == '[' {
			env.Data = json.RawMessage(trimmed)
			return nil
		}
		return errors.New("response body is not a JSON object")
	}
	return json.Unmarshal(trimmed, env)
}
