// Package openai provides an implementation of model.Invoker using an
// OpenAI-compatible Chat Completions endpoint (the default backend is the
// PolzaAI gateway). It adapts the council's core.Message conversation into the
// SDK's message format and normalizes the reply into a core.Result.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/modelcouncil/core"
	"github.com/hupe1980/modelcouncil/logging"
	"github.com/hupe1980/modelcouncil/metrics"
	"github.com/hupe1980/modelcouncil/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/respjson"
)

// DefaultBaseURL is the PolzaAI OpenAI-compatible API root.
const DefaultBaseURL = "https://api.polza.ai/api/v1"

// DefaultReasoningField is the message field carrying structured reasoning.
const DefaultReasoningField = "reasoning_details"

// Options configure the OpenAI-compatible invoker.
type Options struct {
	BaseURL string
	APIKey  string
	// Timeout applies when Invoke is called with a non-positive timeout.
	Timeout time.Duration
	// ReasoningField names the extra message field extracted as reasoning detail.
	ReasoningField string
	HTTPClient     *http.Client
	Logger         logging.Logger
	Recorder       *metrics.Recorder
}

// Invoker wraps the Chat Completions API behind the model.Invoker interface.
type Invoker struct {
	client   *openai.Client
	opts     Options
	observer model.Observer
}

// NewInvoker creates an invoker with its own client. Retries are disabled:
// every invocation is attempted exactly once.
func NewInvoker(optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	client := openai.NewClient(clientOpts...)
	return newInvoker(&client, opts)
}

// NewInvokerFromClient creates an invoker from an existing client. BaseURL,
// APIKey and HTTPClient options are ignored; the client already carries them.
func NewInvokerFromClient(client *openai.Client, optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newInvoker(client, opts)
}

func defaultOptions() Options {
	return Options{
		BaseURL:        DefaultBaseURL,
		Timeout:        model.DefaultTimeout,
		ReasoningField: DefaultReasoningField,
		Logger:         logging.NoOpLogger{},
		Recorder:       metrics.Noop(),
	}
}

func newInvoker(client *openai.Client, opts Options) *Invoker {
	return &Invoker{
		client: client,
		opts:   opts,
		observer: model.Observer{
			Provider: "openai",
			Logger:   opts.Logger,
			Recorder: opts.Recorder,
		},
	}
}

// Invoke implements model.Invoker. It never returns an error: transport,
// status, decode and empty-answer problems all yield core.Failure().
func (i *Invoker) Invoke(ctx context.Context, id core.ModelID, messages []core.Message, timeout time.Duration) core.Result {
	start := time.Now()
	res, err := i.complete(ctx, id, messages, model.ResolveTimeout(timeout, i.opts.Timeout))
	return i.observer.Observe(ctx, id, start, res, err)
}

func (i *Invoker) complete(ctx context.Context, id core.ModelID, messages []core.Message, timeout time.Duration) (core.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:    string(id),
		Messages: buildMessages(messages),
	}
	resp, err := i.client.Chat.Completions.New(ctx, params, option.WithMaxRetries(0))
	if err != nil {
		return core.Failure(), classify(err)
	}
	if resp == nil {
		return core.Failure(), fmt.Errorf("%w: empty response body", model.ErrDecode)
	}
	if len(resp.Choices) == 0 || !resp.Choices[0].JSON.Message.Valid() {
		return core.Failure(), model.ErrEmptyAnswer
	}
	msg := resp.Choices[0].Message
	return core.Success(msg.Content, extractReasoning(msg.JSON.ExtraFields, i.opts.ReasoningField)), nil
}

// buildMessages converts core messages into OpenAI chat messages. Unknown
// roles are sent as user turns.
func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// classify wraps an SDK error with the matching failure kind.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %w", model.ErrStatus, apiErr.StatusCode, err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", model.ErrDecode, err)
	}
	return fmt.Errorf("%w: %w", model.ErrTransport, err)
}

// extractReasoning returns the raw JSON of the named extra field, or nil when
// absent, null or not valid JSON.
func extractReasoning(fields map[string]respjson.Field, name string) json.RawMessage {
	if name == "" {
		return nil
	}
	f, ok := fields[name]
	if !ok {
		return nil
	}
	raw := f.Raw()
	if raw == "" || raw == "null" || !json.Valid([]byte(raw)) {
		return nil
	}
	return json.RawMessage(raw)
}
