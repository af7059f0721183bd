package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/doccollab/internal/logger"
)

const (
	// Access token lives 10 minutes, renew it one minute before
	DefaultLeadTime = 9 * time.Minute

	defaultRenewTimeout = 30 * time.Second
)

// Proactive renewal function. Called when timer fires
type RenewFunc func(ctx context.Context) error

// Called when proactive renewal failed
type FailureFunc func(ctx context.Context, err error)

type Config struct {
	// Delay between arming and firing
	// If not set than default is used
	LeadTime time.Duration

	// Upper bound for renewal started by timer
	// If not set than default is used
	RenewTimeout time.Duration

	// If not set than real clock is used
	Clock Clock

	// If not set than no-op logger is used
	Logger logger.Logger
}

// Scheduler owns exactly one renewal timer
// Arming always cancels the previous timer first
type Scheduler struct {
	leadTime     time.Duration
	renewTimeout time.Duration
	clock        Clock
	logger       logger.Logger

	renew     RenewFunc
	onFailure FailureFunc

	mu    sync.Mutex
	timer Timer

	// Incremented on every arm and disarm
	// Fire from replaced timer compares generations and does nothing
	generation uint64
}

func New(cfg Config, renew RenewFunc, onFailure FailureFunc) *Scheduler {
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = DefaultLeadTime
	}
	if cfg.RenewTimeout <= 0 {
		cfg.RenewTimeout = defaultRenewTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Scheduler{
		leadTime:     cfg.LeadTime,
		renewTimeout: cfg.RenewTimeout,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		renew:        renew,
		onFailure:    onFailure,
	}
}

// Arm cancels pending timer and schedules new one
func (s *Scheduler) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.generation++
	generation := s.generation

	s.timer = s.clock.AfterFunc(s.leadTime, func() {
		s.fire(generation)
	})
	s.logger.Debug("Token renewal timer armed", "lead_time", s.leadTime)
}

// Disarm cancels pending timer if any
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.generation++
}

// Armed reports whether timer is pending
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.timer != nil
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire(generation uint64) {
	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.renewTimeout)
	defer cancel()

	s.logger.Debug("Token renewal timer fired")
	if err := s.renew(ctx); err != nil {
		s.logger.Error("Error renewing access token", "error", err)
		if s.onFailure != nil {
			s.onFailure(ctx, err)
		}
	}
}
