package renewal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/models"
	"github.com/nkiryanov/doccollab/internal/storage"
)

const defaultTimeout = 30 * time.Second

var errRenewalAborted = errors.New("token renewal aborted")

// Remote call exchanging refresh token for a new access token
// Has to return error wrapping apperrors.ErrUnauthorized if refresh token rejected
type Renewer interface {
	RenewToken(ctx context.Context, refresh string) (models.Token, error)
}

type credentials interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
}

type scheduler interface {
	Arm()
}

type Config struct {
	// Upper bound for the renewal HTTP call
	// If not set than default is used
	Timeout time.Duration

	// If not set than no-op logger is used
	Logger logger.Logger
}

// Request waiting for renewal outcome
type pendingRequest struct {
	ctx context.Context

	// Original failed request and transport to replay it through
	// Both nil when caller needs the token only
	req  *http.Request
	next http.RoundTripper

	// Buffered, receives exactly one result
	done chan result
}

type result struct {
	token models.Token
	resp  *http.Response
	err   error
}

// Coordinator lets only one renewal call be in flight
// Callers arriving during renewal are queued and settled in arrival order
type Coordinator struct {
	renewer    Renewer
	creds      credentials
	scheduler  scheduler
	onRejected func(ctx context.Context)

	timeout time.Duration
	logger  logger.Logger

	mu         sync.Mutex
	refreshing bool
	pending    []*pendingRequest
	draining   *pendingRequest

	// Bumped when session ends, guards storing renewal result
	sessionMu sync.Mutex
	epoch     uint64
}

// New creates coordinator
// scheduler is re-armed after every successful renewal, may be nil
// onRejected is called once per renewal rejected by the API (forced logout), may be nil
func New(cfg Config, renewer Renewer, creds credentials, scheduler scheduler, onRejected func(ctx context.Context)) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Coordinator{
		renewer:    renewer,
		creds:      creds,
		scheduler:  scheduler,
		onRejected: onRejected,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// RenewToken renews access token or joins renewal that is already in flight
func (c *Coordinator) RenewToken(ctx context.Context) (models.Token, error) {
	res := c.await(&pendingRequest{ctx: ctx, done: make(chan result, 1)})
	return res.token, res.err
}

// Replay renews access token (or joins in-flight renewal) and sends req again through next
// The replayed request carries the new bearer token and is marked retried
func (c *Coordinator) Replay(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	if !Replayable(req) {
		return nil, apperrors.ErrRequestNotReplayed
	}

	res := c.await(&pendingRequest{ctx: req.Context(), req: req, next: next, done: make(chan result, 1)})
	return res.resp, res.err
}

func (c *Coordinator) await(p *pendingRequest) result {
	c.mu.Lock()
	if c.refreshing {
		c.pending = append(c.pending, p)
		queued := len(c.pending)
		c.mu.Unlock()

		c.logger.Debug("Token renewal in flight, request queued", "queued", queued)
		return c.wait(p)
	}
	c.refreshing = true
	c.mu.Unlock()

	c.lead(p)
	return <-p.done
}

func (c *Coordinator) wait(p *pendingRequest) result {
	select {
	case res := <-p.done:
		return res
	case <-p.ctx.Done():
		// Every entry is settled exactly once, response nobody reads has to be closed
		go func() {
			if res := <-p.done; res.resp != nil {
				res.resp.Body.Close() // nolint:errcheck
			}
		}()
		return result{err: p.ctx.Err()}
	}
}

// Run the single renewal call and settle own request. Queued requests are settled
// in arrival order by a separate goroutine so the leader does not wait for them
func (c *Coordinator) lead(own *pendingRequest) {
	handedOff := false
	defer func() {
		if !handedOff {
			c.release()
		}
	}()

	token, err := c.renew(own.ctx)
	c.settle(own, token, err)

	c.mu.Lock()
	if len(c.pending) == 0 {
		c.refreshing = false
		c.mu.Unlock()
		handedOff = true
		return
	}
	c.mu.Unlock()

	handedOff = true
	go c.drain(token, err)
}

func (c *Coordinator) drain(token models.Token, renewErr error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic while settling queued requests", "panic", r)
		}
		c.release()
	}()

	for {
		p, ok := c.next()
		if !ok {
			return
		}
		c.settle(p, token, renewErr)
	}
}

// Take the next queued request and remember it until the next call
// Empty queue releases the gate in the same critical section
// so no request can be queued after the last drain
func (c *Coordinator) next() (*pendingRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		c.draining = nil
		c.refreshing = false
		return nil, false
	}

	p := c.pending[0]
	c.pending = c.pending[1:]
	c.draining = p
	return p, true
}

// Release the gate and reject every request not settled yet:
// the one being settled when a panic happened and the whole queue
func (c *Coordinator) release() {
	c.mu.Lock()
	stranded := c.pending
	if c.draining != nil {
		stranded = append([]*pendingRequest{c.draining}, stranded...)
	}
	c.pending = nil
	c.draining = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, p := range stranded {
		// Buffer is already taken when the request was settled before the panic
		select {
		case p.done <- result{err: errRenewalAborted}:
		default:
		}
	}
}

// Invalidate ends the current session for renewal purposes:
// result of renewal started before the call is dropped instead of stored
func (c *Coordinator) Invalidate() {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	c.epoch++
}

func (c *Coordinator) currentEpoch() uint64 {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	return c.epoch
}

// Store renewed token and re-arm the scheduler unless session ended meanwhile
func (c *Coordinator) commit(ctx context.Context, epoch uint64, token models.Token) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if epoch != c.epoch {
		return fmt.Errorf("%w: session ended during renewal", apperrors.ErrRenewalRejected)
	}

	if err := c.creds.Set(ctx, storage.KeyAccessToken, token.Token); err != nil {
		return err
	}
	if c.scheduler != nil {
		c.scheduler.Arm()
	}
	return nil
}

func (c *Coordinator) renew(ctx context.Context) (models.Token, error) {
	// Renewal is shared by every queued caller, the leader's cancellation must not abort it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	epoch := c.currentEpoch()

	refresh, err := c.creds.Get(ctx, storage.KeyRefreshToken)
	if err != nil {
		return models.Token{}, fmt.Errorf("error while reading refresh token. Err: %w", err)
	}
	if refresh == "" {
		c.logger.Warn("No refresh token stored, logging out")
		c.reject(ctx)
		return models.Token{}, fmt.Errorf("%w: %w", apperrors.ErrRenewalRejected, apperrors.ErrNoRefreshToken)
	}

	token, err := c.renewer.RenewToken(ctx, refresh)
	switch {
	case err == nil && token.Token == "":
		return models.Token{}, fmt.Errorf("error renewing access token. Err: %w: empty token", apperrors.ErrUnknown)
	case err == nil:
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.logger.Warn("Refresh token rejected, logging out", "error", err)
		c.reject(ctx)
		return models.Token{}, fmt.Errorf("%w: %w", apperrors.ErrRenewalRejected, err)
	default:
		c.logger.Error("Error renewing access token", "error", err)
		return models.Token{}, fmt.Errorf("error renewing access token. Err: %w", err)
	}

	if err := c.commit(ctx, epoch, token); err != nil {
		if errors.Is(err, apperrors.ErrRenewalRejected) {
			c.logger.Info("Session ended during renewal, renewed token dropped")
		}
		return models.Token{}, err
	}

	c.logger.Info("Access token renewed")
	return token, nil
}

func (c *Coordinator) reject(ctx context.Context) {
	if c.onRejected != nil {
		c.onRejected(ctx)
	}
}

func (c *Coordinator) settle(p *pendingRequest, token models.Token, err error) {
	switch {
	case err != nil:
		p.done <- result{err: err}
	case p.req == nil:
		p.done <- result{token: token}
	default:
		resp, err := c.replay(p, token)
		p.done <- result{token: token, resp: resp, err: err}
	}
}

func (c *Coordinator) replay(p *pendingRequest, token models.Token) (*http.Response, error) {
	// Caller gave up waiting
	if err := p.ctx.Err(); err != nil {
		return nil, err
	}

	req, err := retryRequest(p.req, token.Token)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Replaying request with renewed token", "method", req.Method, "url", req.URL.String())
	return p.next.RoundTrip(req)
}

// queued returns count of requests waiting for in-flight renewal
func (c *Coordinator) queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}
