package modelcouncil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hupe1980/modelcouncil/config"
	"github.com/hupe1980/modelcouncil/core"
	"github.com/hupe1980/modelcouncil/internal/testutil"
	"github.com/hupe1980/modelcouncil/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func testConfig(baseURL string, models ...string) config.Config {
	cfg := config.Default()
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	cfg.Models = models
	cfg.SummarizerModel = "chair"
	cfg.Timeout = 2 * time.Second
	return cfg
}

// polzaStub answers per model: "down" gets a 500, "empty" gets no choices,
// "void" gets a null body, everything else echoes its model name.
func polzaStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req.Model {
		case "down":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
		case "void":
			_, _ = w.Write([]byte(`null`))
		case "empty":
			_, _ = w.Write([]byte(`{"id":"c","object":"chat.completion","created":1,"model":"empty","choices":[]}`))
		default:
			_, _ = w.Write([]byte(`{"id":"c","object":"chat.completion","created":1,"model":"` + req.Model + `","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"answer from ` + req.Model + `"}}]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(config.Default())
	assert.ErrorContains(t, err, "api key")
}

func TestNew_UnknownLogLevel(t *testing.T) {
	cfg := testConfig("", "a")
	cfg.Log.Level = "chatty"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestCouncil_AskAgainstBackend(t *testing.T) {
	srv := polzaStub(t)
	reader := sdkmetric.NewManualReader()

	c, err := New(testConfig(srv.URL, "good", "down", "empty"), func(o *Options) {
		o.Logger = logging.NoOpLogger{}
		o.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	})
	require.NoError(t, err)
	defer c.Close()

	batch, err := c.Ask(context.Background(), []core.Message{core.UserMessage("question")})
	require.NoError(t, err)

	require.Len(t, batch, 3)
	assert.Equal(t, core.Success("answer from good", nil), batch["good"])
	assert.Equal(t, core.Failure(), batch["down"])
	assert.Equal(t, core.Failure(), batch["empty"])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)
	assert.NotEmpty(t, rm.ScopeMetrics[0].Metrics)
}

func TestCouncil_SummarizeAgainstBackend(t *testing.T) {
	srv := polzaStub(t)
	msgs := []core.Message{core.UserMessage("summarize")}

	for summarizer, want := range map[string]core.Result{
		"chair": core.Success("answer from chair", nil),
		"void":  core.Failure(),
		"down":  core.Failure(),
		"empty": core.Failure(),
	} {
		t.Run(summarizer, func(t *testing.T) {
			cfg := testConfig(srv.URL, "a")
			cfg.SummarizerModel = summarizer
			c, err := New(cfg, func(o *Options) { o.Logger = logging.NoOpLogger{} })
			require.NoError(t, err)
			defer c.Close()

			var got core.Result
			require.NotPanics(t, func() { got = c.Summarize(context.Background(), msgs) })
			assert.Equal(t, want, got)
		})
	}
}

func TestCouncil_AskStreamAgainstBackend(t *testing.T) {
	srv := polzaStub(t)
	c, err := New(testConfig(srv.URL, "a", "b", "down"), func(o *Options) { o.Logger = logging.NoOpLogger{} })
	require.NoError(t, err)
	defer c.Close()

	ch, err := c.AskStream(context.Background(), []core.Message{core.UserMessage("q")})
	require.NoError(t, err)

	got := map[core.ModelID]core.Result{}
	for item := range ch {
		_, dup := got[item.Model]
		assert.False(t, dup)
		got[item.Model] = item.Result
	}
	assert.Len(t, got, 3)
	assert.True(t, got["a"].OK)
	assert.False(t, got["down"].OK)
}

func TestCouncil_WithInvokerOverride(t *testing.T) {
	inv := testutil.NewScriptedInvoker().
		On("chair", testutil.Script{Result: core.Success("summary", nil)}).
		On("x", testutil.Script{Result: core.Failure()})

	cfg := config.Default()
	cfg.Models = []string{"x", "y"}
	cfg.SummarizerModel = "chair"

	c, err := New(cfg, func(o *Options) { o.Invoker = inv })
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, core.ModelIDs("x", "y"), c.Models())
	assert.Equal(t, core.ModelID("chair"), c.Summarizer())

	batch, err := c.Ask(context.Background(), []core.Message{core.UserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, []core.ModelID{"x"}, batch.Failed())

	batch, err = c.AskModels(context.Background(), core.ModelIDs("z"), nil)
	require.NoError(t, err)
	assert.Equal(t, []core.ModelID{"z"}, batch.Succeeded())

	ch, err := c.AskModelsStream(context.Background(), core.ModelIDs("y"), nil)
	require.NoError(t, err)
	item := <-ch
	assert.Equal(t, core.ModelID("y"), item.Model)

	assert.Equal(t, core.Success("summary", nil), c.Summarize(context.Background(), nil))
	assert.Equal(t, 120*time.Second, inv.Timeout("chair"))
}

func TestCouncil_DuplicatePolicyFromConfig(t *testing.T) {
	inv := testutil.NewScriptedInvoker()
	cfg := config.Default()
	cfg.Models = []string{"a", "a"}

	c, err := New(cfg, func(o *Options) { o.Invoker = inv })
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Ask(context.Background(), nil)
	assert.Error(t, err)

	cfg.Duplicates = "dedupe"
	c2, err := New(cfg, func(o *Options) { o.Invoker = inv })
	require.NoError(t, err)
	defer c2.Close()
	batch, err := c2.Ask(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}
