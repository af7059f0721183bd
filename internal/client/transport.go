package client

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/session/renewal"
)

const HeaderRequestID = "X-Request-Id"

// Middleware wraps transport adding request or response phase behaviour
type Middleware func(http.RoundTripper) http.RoundTripper

type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base transport with middlewares
// The first middleware is the outermost one
func Chain(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}

type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Replayer renews access token and sends request again
type Replayer interface {
	Replay(req *http.Request, next http.RoundTripper) (*http.Response, error)
}

// WithBearer sets 'Authorization: Bearer <access token>' on every request when token stored
func WithBearer(tokens TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			token, err := tokens.AccessToken(req.Context())
			if err != nil {
				return nil, err
			}
			if token == "" {
				return next.RoundTrip(req)
			}

			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(req)
		})
	}
}

// WithRenewal hands 401 responses to replayer
// Retried requests, the renewal endpoint itself and requests with not rewindable body are passed through
func WithRenewal(replayer Replayer, renewPath string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}

			if renewal.IsRetried(req) || strings.HasSuffix(req.URL.Path, renewPath) || !renewal.Replayable(req) {
				return resp, nil
			}

			// Failed response is replaced by the replayed one
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			return replayer.Replay(req, next)
		})
	}
}

// WithRequestID sets random request id unless request has one
func WithRequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(req)
			}

			req = req.Clone(req.Context())
			req.Header.Set(HeaderRequestID, uuid.NewString())
			return next.RoundTrip(req)
		})
	}
}

func WithLogging(l logger.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(req)
			if err != nil {
				l.Warn(
					"HTTP request failed",
					"method", req.Method,
					"url", req.URL.String(),
					"duration", time.Since(start),
					"error", err,
				)
				return resp, err
			}

			l.Debug(
				"sent HTTP request",
				"method", req.Method,
				"url", req.URL.String(),
				"request_id", req.Header.Get(HeaderRequestID),
				"duration", time.Since(start),
				"status", resp.StatusCode,
			)
			return resp, nil
		})
	}
}
