package fanout

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/modelcouncil/core"
	"github.com/hupe1980/modelcouncil/logging"
	"github.com/hupe1980/modelcouncil/metrics"
	"github.com/hupe1980/modelcouncil/model"
	"github.com/panjf2000/ants/v2"
)

// DefaultMaxConcurrency caps in-flight invocations per coordinator.
const DefaultMaxConcurrency = 16

// DuplicatePolicy decides what happens when the model set repeats an identifier.
type DuplicatePolicy string

const (
	// DuplicatesReject fails the request before anything is launched.
	DuplicatesReject DuplicatePolicy = "reject"
	// DuplicatesDedupe keeps the first occurrence of each identifier.
	DuplicatesDedupe DuplicatePolicy = "dedupe"
)

// ParseDuplicatePolicy validates a policy name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case DuplicatesReject, DuplicatesDedupe:
		return p, nil
	case "":
		return DuplicatesReject, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// ErrDuplicateModel is returned under DuplicatesReject when a model repeats.
var ErrDuplicateModel = errors.New("duplicate model identifier")

// Options configures a Coordinator.
type Options struct {
	// MaxConcurrency bounds simultaneously running invocations. Models beyond
	// the cap wait for a free worker. Zero or negative means unbounded.
	MaxConcurrency int

	// Timeout is forwarded to every invocation. Zero leaves the invoker's
	// own default in place.
	Timeout time.Duration

	// Duplicates selects the duplicate identifier policy.
	Duplicates DuplicatePolicy

	Logger   logging.Logger
	Recorder *metrics.Recorder
}

// Coordinator fans a conversation out to many models through one Invoker.
// It is safe for concurrent use.
type Coordinator struct {
	invoker model.Invoker
	pool    *ants.Pool
	opts    Options
}

// New creates a Coordinator. Call Close to release its worker pool.
func New(invoker model.Invoker, optFns ...func(o *Options)) (*Coordinator, error) {
	if invoker == nil {
		return nil, errors.New("invoker is required")
	}

	opts := Options{
		MaxConcurrency: DefaultMaxConcurrency,
		Duplicates:     DuplicatesReject,
		Logger:         logging.NoOpLogger{},
		Recorder:       metrics.Noop(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if _, err := ParseDuplicatePolicy(string(opts.Duplicates)); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	size := opts.MaxConcurrency
	if size <= 0 {
		size = -1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create fan-out pool: %w", err)
	}

	return &Coordinator{invoker: invoker, pool: pool, opts: opts}, nil
}

// Close releases the worker pool. Runs started afterwards resolve every model
// to core.Failure().
func (c *Coordinator) Close() { c.pool.Release() }

// InvokeAll invokes every model concurrently and blocks until all resolved.
// The returned BatchResult has exactly one entry per requested model. The only
// error is ErrDuplicateModel under the reject policy.
func (c *Coordinator) InvokeAll(ctx context.Context, models []core.ModelID, messages []core.Message) (core.BatchResult, error) {
	ids, err := c.prepare(models)
	if err != nil {
		return nil, err
	}

	out := make(chan core.StreamItem, len(ids))
	c.launch(ctx, "batch", ids, slices.Clone(messages), out)

	batch := make(core.BatchResult, len(ids))
	for item := range out {
		batch[item.Model] = item.Result
	}
	return batch, nil
}

// InvokeStream invokes every model concurrently and returns a channel that
// yields one item per model in completion order. The channel is closed after
// the last model resolved. Cancel ctx to stop in-flight invocations; the
// remaining items then arrive as failures.
func (c *Coordinator) InvokeStream(ctx context.Context, models []core.ModelID, messages []core.Message) (<-chan core.StreamItem, error) {
	ids, err := c.prepare(models)
	if err != nil {
		return nil, err
	}

	out := make(chan core.StreamItem, len(ids))
	go c.launch(ctx, "stream", ids, slices.Clone(messages), out)
	return out, nil
}

// Stream is the lazy form of InvokeStream. Invocations start when iteration
// begins and each iteration starts fresh ones. Leaving the loop early cancels
// whatever is still running.
func (c *Coordinator) Stream(ctx context.Context, models []core.ModelID, messages []core.Message) (iter.Seq[core.StreamItem], error) {
	ids, err := c.prepare(models)
	if err != nil {
		return nil, err
	}
	msgs := slices.Clone(messages)

	return func(yield func(core.StreamItem) bool) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		out := make(chan core.StreamItem, len(ids))
		go c.launch(runCtx, "stream", ids, msgs, out)
		for item := range out {
			if !yield(item) {
				return
			}
		}
	}, nil
}

// prepare applies the duplicate policy and returns the models to launch.
func (c *Coordinator) prepare(models []core.ModelID) ([]core.ModelID, error) {
	seen := make(map[core.ModelID]struct{}, len(models))
	ids := make([]core.ModelID, 0, len(models))
	for _, id := range models {
		if _, dup := seen[id]; dup {
			if c.opts.Duplicates == DuplicatesDedupe {
				continue
			}
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModel, id)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// launch submits one task per model and closes out once every model produced
// its item. out must be buffered to len(ids) so tasks never block on send.
func (c *Coordinator) launch(ctx context.Context, mode string, ids []core.ModelID, messages []core.Message, out chan<- core.StreamItem) {
	defer close(out)

	runID := uuid.NewString()
	logger := logging.With(c.opts.Logger, "component", "fanout", "run_id", runID, "mode", mode)
	logger.Debug("Fan-out started", "models", len(ids))

	start := time.Now()
	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	emit := func(id core.ModelID, res core.Result) {
		if !res.OK {
			failed.Add(1)
		}
		out <- core.StreamItem{Model: id, Result: res}
	}

	for _, id := range ids {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			emit(id, c.invokeOne(ctx, logger, id, messages))
		}
		if err := c.pool.Submit(task); err != nil {
			logger.Error("Invocation not scheduled", "model", string(id), "error", err.Error())
			c.opts.Recorder.RecordCall(ctx, string(id), false, "unscheduled", 0)
			emit(id, core.Failure())
			wg.Done()
		}
	}
	wg.Wait()

	logging.LogFanOut(logger, len(ids), int(failed.Load()), time.Since(start))
}

// invokeOne runs a single invocation and converts a panic into a failure so
// the completeness of the run holds even when an invoker is defective.
func (c *Coordinator) invokeOne(ctx context.Context, logger logging.Logger, id core.ModelID, messages []core.Message) (res core.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Invocation panicked", "model", string(id), "panic", fmt.Sprint(r), "stack_trace", string(debug.Stack()))
			c.opts.Recorder.RecordCall(ctx, string(id), false, "panic", time.Since(start))
			res = core.Failure()
		}
	}()

	if err := ctx.Err(); err != nil {
		logger.Warn("Invocation skipped", "model", string(id), "error", err.Error())
		c.opts.Recorder.RecordCall(ctx, string(id), false, "canceled", time.Since(start))
		return core.Failure()
	}
	return c.invoker.Invoke(ctx, id, slices.Clone(messages), c.opts.Timeout)
}
