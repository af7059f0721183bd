package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/logger"
)

const (
	defaultTimeout = 10 * time.Second

	// Cap on error body kept in Error message
	maxErrorBody = 1 << 10
)

// Error returned by every API call
// Kind is one of apperrors sentinels so callers can classify it with errors.Is
type Error struct {
	Kind   error
	Status int
	Method string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Error body rendered by the API
type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Config struct {
	// API base url, e.g. http://localhost:8080/api
	BaseURL string

	// If not set than default is used
	Timeout time.Duration

	// Base transport. If not set than http.DefaultTransport is used
	Transport http.RoundTripper

	// If not set than no-op logger is used
	Logger logger.Logger
}

type Client struct {
	baseURL string

	http   *http.Client
	logger logger.Logger
}

// New creates API client. Middlewares wrap the transport, the first one is the outermost
func New(cfg Config, middlewares ...Middleware) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: Chain(cfg.Transport, middlewares...),
			Timeout:   cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

// Send JSON request and decode JSON response into out if it is not nil
func (c *Client) do(ctx context.Context, method string, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: apperrors.ErrUnknown, Method: method, Path: path, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		// bytes.Reader lets request body be rewound for replay
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: apperrors.ErrUnknown, Method: method, Path: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: transportErrorKind(err), Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.logger.Warn("Failed to decode response", "method", method, "path", path, "error", err)
			return &Error{Kind: apperrors.ErrUnknown, Status: resp.StatusCode, Method: method, Path: path, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil
	}

	return c.statusError(resp, method, path)
}

func (c *Client) statusError(resp *http.Response, method string, path string) *Error {
	e := &Error{Status: resp.StatusCode, Method: method, Path: path, Err: errors.New(readErrorMessage(resp.Body))}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		e.Kind = apperrors.ErrUnauthorized
	case http.StatusConflict:
		e.Kind = apperrors.ErrUserAlreadyExists
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.Kind = apperrors.ErrValidationFailure
	case http.StatusNotFound:
		e.Kind = notFoundKind(path)
	default:
		c.logger.Warn("Unexpected API response", "status_code", resp.StatusCode, "method", method, "path", path)
		e.Kind = apperrors.ErrUnknown
	}
	return e
}

// Classify error returned by transport chain
func transportErrorKind(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrRenewalRejected):
		return apperrors.ErrRenewalRejected
	case errors.Is(err, apperrors.ErrRequestNotReplayed), errors.Is(err, apperrors.ErrStorageUnavailable):
		return apperrors.ErrUnknown
	default:
		return apperrors.ErrNetworkFailure
	}
}

func notFoundKind(path string) error {
	switch {
	case strings.HasPrefix(path, PathNotifications):
		return apperrors.ErrNotificationNotFound
	case strings.HasPrefix(path, PathDocuments):
		return apperrors.ErrDocumentNotFound
	default:
		return apperrors.ErrUnknown
	}
}

// Read error message rendered by API, fall back to raw body
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return "empty response"
	}

	var resp errorResponse
	if err := json.Unmarshal(data, &resp); err == nil && resp.Error != "" {
		if resp.Message != "" {
			return resp.Message
		}
		return resp.Error
	}
	return strings.TrimSpace(string(data))
}
