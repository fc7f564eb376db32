package model

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/modelcouncil/core"
	"github.com/hupe1980/modelcouncil/logging"
	"github.com/hupe1980/modelcouncil/metrics"
)

// DefaultTimeout bounds a single invocation when the caller passes no timeout.
const DefaultTimeout = 120 * time.Second

// Failure kinds. They only classify diagnostics; callers never observe them.
var (
	ErrTransport   = errors.New("transport error")
	ErrStatus      = errors.New("non-success status")
	ErrDecode      = errors.New("undecodable response body")
	ErrEmptyAnswer = errors.New("no candidate answer")
)

// Invoker issues one remote call for one model and normalizes the outcome.
// Implementations must never panic on remote misbehavior and never return
// partial state: the Result is either a success or core.Failure().
type Invoker interface {
	Invoke(ctx context.Context, id core.ModelID, messages []core.Message, timeout time.Duration) core.Result
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, id core.ModelID, messages []core.Message, timeout time.Duration) core.Result

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, id core.ModelID, messages []core.Message, timeout time.Duration) core.Result {
	return f(ctx, id, messages, timeout)
}

// FailureKind maps an invocation error to a short label for logs and metrics.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrEmptyAnswer):
		return "empty_answer"
	default:
		return "transport"
	}
}

// ResolveTimeout returns timeout, or fallback when timeout is not positive.
// A non-positive fallback resolves to DefaultTimeout.
func ResolveTimeout(timeout, fallback time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeout
}

// Observer routes invocation diagnostics to logging and metrics. Provider
// adapters funnel every outcome through Observe so the result contract stays
// free of failure detail.
type Observer struct {
	Provider string
	Logger   logging.Logger
	Recorder *metrics.Recorder
}

// Observe logs and records the outcome of one invocation and returns the
// normalized Result: res on success, core.Failure() whenever err is non-nil.
func (o Observer) Observe(ctx context.Context, id core.ModelID, start time.Time, res core.Result, err error) core.Result {
	logger := logging.With(o.Logger, "provider", o.Provider)
	dur := time.Since(start)
	if err != nil {
		kind := FailureKind(err)
		logging.LogModelCall(logger, string(id), dur, false, kind, err)
		o.Recorder.RecordCall(ctx, string(id), false, kind, dur)
		return core.Failure()
	}
	logging.LogModelCall(logger, string(id), dur, true, "", nil)
	o.Recorder.RecordCall(ctx, string(id), true, "", dur)
	return res
}
