// Package anthropic provides a model.Invoker backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/modelcouncil/core"
	"github.com/hupe1980/modelcouncil/logging"
	"github.com/hupe1980/modelcouncil/metrics"
	"github.com/hupe1980/modelcouncil/model"
)

// Options configures the Anthropic invoker (max tokens, API key, endpoint).
type Options struct {
	APIKey     string
	BaseURL    string
	MaxTokens  int64
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     logging.Logger
	Recorder   *metrics.Recorder
}

// Invoker wraps the Anthropic Messages API behind the model.Invoker interface.
type Invoker struct {
	client   *anthropic.Client
	opts     Options
	observer model.Observer
}

// thinkingDetail is the reasoning shape surfaced for thinking blocks.
type thinkingDetail struct {
	Type      string `json:"type"`
	Thinking  string `json:"thinking"`
	Signature string `json:"signature,omitempty"`
}

// NewInvoker creates a new Anthropic invoker using the official client with
// retries disabled.
func NewInvoker(optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	client := anthropic.NewClient(clientOpts...)
	return newInvoker(&client, opts)
}

// NewInvokerFromClient creates a new Anthropic invoker from an existing client.
func NewInvokerFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newInvoker(client, opts)
}

func defaultOptions() Options {
	return Options{
		MaxTokens: 4096,
		Timeout:   model.DefaultTimeout,
		Logger:    logging.NoOpLogger{},
		Recorder:  metrics.Noop(),
	}
}

func newInvoker(client *anthropic.Client, opts Options) *Invoker {
	return &Invoker{
		client: client,
		opts:   opts,
		observer: model.Observer{
			Provider: "anthropic",
			Logger:   opts.Logger,
			Recorder: opts.Recorder,
		},
	}
}

// Invoke implements model.Invoker.
func (i *Invoker) Invoke(ctx context.Context, id core.ModelID, messages []core.Message, timeout time.Duration) core.Result {
	start := time.Now()
	res, err := i.complete(ctx, id, messages, model.ResolveTimeout(timeout, i.opts.Timeout))
	return i.observer.Observe(ctx, id, start, res, err)
}

func (i *Invoker) complete(ctx context.Context, id core.ModelID, messages []core.Message, timeout time.Duration) (core.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(id),
		MaxTokens: i.opts.MaxTokens,
		Messages:  buildMessages(messages),
	}
	if system := extractSystem(messages); len(system) > 0 {
		params.System = system
	}

	resp, err := i.client.Messages.New(ctx, params, option.WithMaxRetries(0))
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return core.Failure(), fmt.Errorf("%w: status %d: %w", model.ErrStatus, apiErr.StatusCode, err)
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return core.Failure(), fmt.Errorf("%w: %w", model.ErrDecode, err)
		}
		return core.Failure(), fmt.Errorf("%w: %w", model.ErrTransport, err)
	}
	if resp == nil {
		return core.Failure(), fmt.Errorf("%w: empty response body", model.ErrDecode)
	}

	var (
		text     strings.Builder
		hasText  bool
		thinking []thinkingDetail
	)
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			hasText = true
			text.WriteString(block.AsText().Text)
		case "thinking":
			tb := block.AsThinking()
			thinking = append(thinking, thinkingDetail{Type: "thinking", Thinking: tb.Thinking, Signature: tb.Signature})
		}
	}
	if !hasText {
		return core.Failure(), model.ErrEmptyAnswer
	}

	var reasoning json.RawMessage
	if len(thinking) > 0 {
		raw, err := json.Marshal(thinking)
		if err != nil {
			return core.Failure(), fmt.Errorf("%w: %w", model.ErrDecode, err)
		}
		reasoning = raw
	}
	return core.Success(text.String(), reasoning), nil
}

// buildMessages converts conversation turns to Anthropic message format.
// System turns are carried separately; unknown roles are treated as user.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

// extractSystem collects system turns as system prompt blocks.
func extractSystem(messages []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role == core.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}
