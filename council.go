// Package modelcouncil provides a high-level façade over the Fan-Out
// Coordinator and the provider invokers, enabling a "council" of language
// models to answer the same conversation. Most applications interact with this
// package by:
//  1. Loading a config.Config (config.Load) with credentials and the model set
//  2. Creating a Council via New() (optionally overriding logger, metrics or invoker)
//  3. Asking the council in batch (Ask) or streaming (AskStream) mode
//
// The façade delegates orchestration to fanout.Coordinator while keeping setup
// and usage ergonomics concise. What callers do with partial results (e.g.
// ranking or summarizing them) stays outside of this package; Summarize only
// offers a single invocation of the configured summarizer model.
package modelcouncil

import (
	"context"
	"fmt"

	"github.com/hupe1980/modelcouncil/config"
	"github.com/hupe1980/modelcouncil/core"
	"github.com/hupe1980/modelcouncil/fanout"
	"github.com/hupe1980/modelcouncil/logging"
	"github.com/hupe1980/modelcouncil/metrics"
	"github.com/hupe1980/modelcouncil/model"
	"github.com/hupe1980/modelcouncil/model/anthropic"
	"github.com/hupe1980/modelcouncil/model/openai"
	"go.opentelemetry.io/otel/metric"
)

// Options configures the Council instance.
type Options struct {
	// Invoker overrides the provider invoker built from the config.
	Invoker model.Invoker

	// Logger defaults to a CouncilLogger built from the config's log section.
	Logger logging.Logger

	// MeterProvider enables OpenTelemetry metrics. Nil keeps metrics disabled.
	MeterProvider metric.MeterProvider
}

// Council is the high-level façade aggregating the invoker and coordinator.
type Council struct {
	cfg         config.Config
	models      []core.ModelID
	invoker     model.Invoker
	coordinator *fanout.Coordinator
	logger      logging.Logger
}

// New creates a Council from cfg. The config is validated unless an Invoker
// override is supplied, in which case credentials are not needed.
func New(cfg config.Config, optFns ...func(o *Options)) (*Council, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Invoker == nil {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		logger = logging.NewSlogLogger(level, cfg.Log.Format, false).WithComponent("council")
	}

	recorder, err := metrics.New(opts.MeterProvider)
	if err != nil {
		return nil, err
	}

	invoker := opts.Invoker
	if invoker == nil {
		invoker, err = newInvoker(cfg, logger, recorder)
		if err != nil {
			return nil, err
		}
	}

	duplicates, err := fanout.ParseDuplicatePolicy(cfg.Duplicates)
	if err != nil {
		return nil, err
	}

	coordinator, err := fanout.New(invoker, func(o *fanout.Options) {
		o.MaxConcurrency = cfg.MaxConcurrency
		o.Timeout = cfg.Timeout
		o.Duplicates = duplicates
		o.Logger = logger
		o.Recorder = recorder
	})
	if err != nil {
		return nil, err
	}

	return &Council{
		cfg:         cfg,
		models:      core.ModelIDs(cfg.Models...),
		invoker:     invoker,
		coordinator: coordinator,
		logger:      logger,
	}, nil
}

func newInvoker(cfg config.Config, logger logging.Logger, recorder *metrics.Recorder) (model.Invoker, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return openai.NewInvoker(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}
			o.Timeout = cfg.Timeout
			o.Logger = logger
			o.Recorder = recorder
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewInvoker(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Timeout = cfg.Timeout
			o.Logger = logger
			o.Recorder = recorder
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Models returns the configured council members.
func (c *Council) Models() []core.ModelID { return append([]core.ModelID(nil), c.models...) }

// Summarizer returns the configured summarizer model.
func (c *Council) Summarizer() core.ModelID { return core.ModelID(c.cfg.SummarizerModel) }

// Ask sends messages to every configured model and waits for all of them.
func (c *Council) Ask(ctx context.Context, messages []core.Message) (core.BatchResult, error) {
	return c.coordinator.InvokeAll(ctx, c.models, messages)
}

// AskStream sends messages to every configured model and streams outcomes in
// completion order.
func (c *Council) AskStream(ctx context.Context, messages []core.Message) (<-chan core.StreamItem, error) {
	return c.coordinator.InvokeStream(ctx, c.models, messages)
}

// AskModels is Ask over an explicit model set.
func (c *Council) AskModels(ctx context.Context, models []core.ModelID, messages []core.Message) (core.BatchResult, error) {
	return c.coordinator.InvokeAll(ctx, models, messages)
}

// AskModelsStream is AskStream over an explicit model set.
func (c *Council) AskModelsStream(ctx context.Context, models []core.ModelID, messages []core.Message) (<-chan core.StreamItem, error) {
	return c.coordinator.InvokeStream(ctx, models, messages)
}

// Summarize invokes the summarizer model once with messages.
func (c *Council) Summarize(ctx context.Context, messages []core.Message) core.Result {
	return c.invoker.Invoke(ctx, c.Summarizer(), messages, c.cfg.Timeout)
}

// Close releases the coordinator's worker pool.
func (c *Council) Close() { c.coordinator.Close() }
