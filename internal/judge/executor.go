package judge

import (
	"context"
	"time"

	appErr "gide/pkg/errors"
	"gide/pkg/utils/contextkey"
	"gide/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultPollInterval = time.Second

// Judge is the remote side of an execution.
type Judge interface {
	Submit(ctx context.Context, req Request) (Handle, error)
	Fetch(ctx context.Context, handle Handle) (Result, error)
}

// State is a step of the execution lifecycle.
type State string

const (
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateResolved   State = "resolved"
	StateFailed     State = "failed"
)

// Transition is reported to observers as a run progresses.
type Transition struct {
	RunID   string  `json:"run_id"`
	State   State   `json:"state"`
	Token   string  `json:"token,omitempty"`
	Attempt int     `json:"attempt,omitempty"`
	Status  *Status `json:"status,omitempty"`
	Result  *Result `json:"result,omitempty"`
	Err     error   `json:"-"`
}

// Observer receives transitions synchronously on the executing goroutine.
type Observer func(Transition)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ExecutorConfig tunes polling.
type ExecutorConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	// MaxAttempts bounds the number of fetches; zero means unbounded.
	MaxAttempts int `yaml:"maxAttempts"`
}

// Executor submits code and polls until the judge reaches a terminal status.
type Executor struct {
	judge        Judge
	guard        *Guard
	sleep        Sleeper
	pollInterval time.Duration
	maxAttempts  int
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s Sleeper) ExecutorOption {
	return func(e *Executor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithGuard sets the concurrency guard used by Execute.
func WithGuard(g *Guard) ExecutorOption {
	return func(e *Executor) {
		if g != nil {
			e.guard = g
		}
	}
}

// NewExecutor creates an executor. Without WithGuard, concurrent runs are rejected.
func NewExecutor(judge Judge, cfg ExecutorConfig, opts ...ExecutorOption) *Executor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	e := &Executor{
		judge:        judge,
		sleep:        sleepContext,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.guard == nil {
		e.guard, _ = NewGuard(PolicyReject)
	}
	return e
}

// Submit forwards to the judge.
func (e *Executor) Submit(ctx context.Context, req Request) (Handle, error) {
	return e.judge.Submit(ctx, req)
}

// Poll waits one interval before every fetch and returns the first result
// whose status is neither queued nor processing.
func (e *Executor) Poll(ctx context.Context, handle Handle, observe Observer) (Result, error) {
	runID := contextkey.String(ctx, contextkey.RunID)
	for attempt := 1; ; attempt++ {
		if e.maxAttempts > 0 && attempt > e.maxAttempts {
			return Result{}, appErr.Newf(appErr.ExecutionPollExhausted, "submission %s still pending after %d polls", handle.Token, e.maxAttempts).
				WithDetail("token", handle.Token)
		}
		if err := e.sleep(ctx, e.pollInterval); err != nil {
			return Result{}, appErr.FromContext(err, "execution")
		}
		if err := ctx.Err(); err != nil {
			return Result{}, appErr.FromContext(err, "execution")
		}

		result, err := e.judge.Fetch(ctx, handle)
		if err != nil {
			return Result{}, err
		}
		status := result.Status
		logger.Debug(ctx, "polled submission",
			zap.String("token", handle.Token),
			zap.Int("attempt", attempt),
			zap.Int("status_id", status.ID),
		)
		if !status.Pending() {
			return result, nil
		}
		notify(observe, Transition{RunID: runID, State: StatePolling, Token: handle.Token, Attempt: attempt, Status: &status})
	}
}

// Execute runs the full submit-then-poll cycle under the guard.
func (e *Executor) Execute(ctx context.Context, req Request, observe Observer) (Result, error) {
	release, err := e.guard.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	runID := uuid.NewString()
	ctx = contextkey.With(ctx, contextkey.RunID, runID)
	start := time.Now()

	notify(observe, Transition{RunID: runID, State: StateSubmitting})
	handle, err := e.judge.Submit(ctx, req)
	if err != nil {
		notify(observe, Transition{RunID: runID, State: StateFailed, Err: err})
		return Result{}, err
	}
	logger.Info(ctx, "submission created", zap.String("token", handle.Token), zap.String("language", req.Language))
	notify(observe, Transition{RunID: runID, State: StatePolling, Token: handle.Token})

	result, err := e.Poll(ctx, handle, observe)
	if err != nil {
		logger.Warn(ctx, "execution failed", zap.String("token", handle.Token), zap.Error(err))
		notify(observe, Transition{RunID: runID, State: StateFailed, Token: handle.Token, Err: err})
		return Result{}, err
	}
	logger.Info(ctx, "execution resolved",
		zap.String("token", handle.Token),
		zap.Int("status_id", result.Status.ID),
		zap.Duration("elapsed", time.Since(start)),
	)
	status := result.Status
	notify(observe, Transition{RunID: runID, State: StateResolved, Token: handle.Token, Status: &status, Result: &result})
	return result, nil
}

// Run executes and normalizes in one call.
func (e *Executor) Run(ctx context.Context, req Request, observe Observer) (Normalized, error) {
	result, err := e.Execute(ctx, req, observe)
	if err != nil {
		return Normalized{}, err
	}
	return FormatExecutionResult(&result), nil
}

func notify(observe Observer, t Transition) {
	if observe != nil {
		observe(t)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
