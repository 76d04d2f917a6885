// Package remote implements the client's identity provider and resource
// store over the quill JSON API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/mcoot/quill/internal/api/apierr"
	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/gateway"
)

const apiPrefix = "/api/v1"

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. It is also used for
// event streams, so it should not set a Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client talks to a quill server. It satisfies gateway.Provider and
// pages.ResourceStore. Request deadlines come from the caller's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	logger     *slog.Logger

	mu        sync.Mutex
	token     Token
	loaded    bool
	listeners map[uint64]func(gateway.Change)
	nextID    uint64
}

// New creates a client for the server at baseURL. The session token is
// read from tokens on first use and written back on every change.
func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		tokens:     tokens,
		logger:     slog.Default(),
		listeners:  make(map[uint64]func(gateway.Change)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "remote"))
	return c
}

// currentToken returns the session token, loading it once from the token store
func (c *Client) currentToken() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.loaded = true
		token, err := c.tokens.Load()
		if err != nil {
			c.logger.Warn("could not load session token", slog.String("error", err.Error()))
		}
		c.token = token
	}
	return c.token
}

func (c *Client) setToken(token Token) {
	c.mu.Lock()
	c.token = token
	c.loaded = true
	c.mu.Unlock()

	var err error
	if token.Value == "" {
		err = c.tokens.Clear()
	} else {
		err = c.tokens.Save(token)
	}
	if err != nil {
		c.logger.Warn("could not persist session token", slog.String("error", err.Error()))
	}
}

// SessionID returns the id of the current session, if any
func (c *Client) SessionID() string {
	return c.currentToken().SessionID
}

// HasToken reports whether a session token is held
func (c *Client) HasToken() bool {
	return c.currentToken().Value != ""
}

// apiError is an error response from the server
type apiError struct {
	Status int
	apierr.APIError
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// do performs a JSON request against the API
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.currentToken(); token.Value != "" {
		req.Header.Set("Authorization", "Bearer "+token.Value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return c.decodeError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) decodeError(status int, body []byte) error {
	var errResp apierr.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code != "" {
		return &apiError{Status: status, APIError: errResp.Error}
	}
	return fmt.Errorf("HTTP %d: %s", status, strings.TrimSpace(string(body)))
}

// classify maps a failed request onto the client error taxonomy
func classify(op string, err error) error {
	var aerr *apiError
	if !errors.As(err, &aerr) {
		return clienterr.Provider(op, err)
	}
	switch aerr.Code {
	case apierr.CodeValidationError:
		if len(aerr.Fields) > 0 {
			return &clienterr.ValidationError{Field: aerr.Fields[0].Field, Message: aerr.Fields[0].Message}
		}
		return &clienterr.ValidationError{Message: aerr.Message}
	case apierr.CodeInvalidCredentials:
		return clienterr.ErrInvalidCredentials
	case apierr.CodePostNotFound, apierr.CodeIdentityNotFound:
		return clienterr.ErrNotFound
	case apierr.CodeEmailTaken:
		return &clienterr.ValidationError{Field: "email", Message: "is already registered"}
	case apierr.CodeInvalidConfirmation:
		return &clienterr.ValidationError{Field: "code", Message: "is not valid"}
	case apierr.CodeUnauthorized:
		return clienterr.Provider(op, fmt.Errorf("%w: %s", clienterr.ErrUnauthorized, aerr.Message))
	case apierr.CodeEmailNotConfirmed:
		return clienterr.Provider(op, clienterr.ErrEmailNotConfirmed)
	default:
		return clienterr.Provider(op, aerr)
	}
}

func isUnauthorized(err error) bool {
	var aerr *apiError
	return errors.As(err, &aerr) && aerr.Code == apierr.CodeUnauthorized
}

// Health checks the server is up
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", classify("health", err)
	}
	return resp.Status, nil
}
