package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/modelcouncil/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "cmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "openai/gpt-4o-mini",
  "choices": [
    {
      "index": 0,
      "finish_reason": "stop",
      "message": {
        "role": "assistant",
        "content": "ok",
        "reasoning_details": [{"type": "reasoning.summary", "summary": "thought"}]
      }
    }
  ]
}`

type capturedRequest struct {
	Model    string         `json:"model"`
	Messages []core.Message `json:"messages"`
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestInvoker(url string) *Invoker {
	return NewInvoker(func(o *Options) {
		o.BaseURL = url
		o.APIKey = "test-key"
	})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestInvoker_Success(t *testing.T) {
	var got capturedRequest
	var auth string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, completionBody)
	})

	msgs := []core.Message{core.SystemMessage("be brief"), core.UserMessage("hi")}
	res := newTestInvoker(srv.URL).Invoke(context.Background(), "openai/gpt-4o-mini", msgs, time.Second)

	require.True(t, res.OK)
	assert.Equal(t, "ok", res.Content)
	assert.JSONEq(t, `[{"type": "reasoning.summary", "summary": "thought"}]`, string(res.Reasoning))

	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "openai/gpt-4o-mini", got.Model)
	assert.Equal(t, msgs, got.Messages)
}

func TestInvoker_NoReasoning(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"c","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"plain","reasoning_details":null}}]}`)
	})

	res := newTestInvoker(srv.URL).Invoke(context.Background(), "m", []core.Message{core.UserMessage("hi")}, time.Second)
	require.True(t, res.OK)
	assert.Equal(t, "plain", res.Content)
	assert.Nil(t, res.Reasoning)
}

func TestInvoker_CreatedStatusAccepted(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, completionBody)
	})

	res := newTestInvoker(srv.URL).Invoke(context.Background(), "m", []core.Message{core.UserMessage("hi")}, time.Second)
	assert.True(t, res.OK)
}

func TestInvoker_FailureModes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusInternalServerError, `{"error":{"message":"boom"}}`)
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`)
			},
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":"c","object":"chat.completion","created":1,"model":"m","choices":[]}`)
			},
		},
		{
			name: "missing choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":"c"}`)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"choices": [`)
			},
		},
		{
			name: "null body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `null`)
			},
		},
		{
			name: "choice without message",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":"c","choices":[{}]}`)
			},
		},
		{
			name: "null choice",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":"c","choices":[null]}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.handler)
			res := newTestInvoker(srv.URL).Invoke(context.Background(), "x", []core.Message{core.UserMessage("hi")}, time.Second)
			assert.Equal(t, core.Failure(), res)
		})
	}
}

func TestInvoker_SingleAttemptOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"error":{"message":"busy"}}`)
	})

	res := newTestInvoker(srv.URL).Invoke(context.Background(), "x", []core.Message{core.UserMessage("hi")}, time.Second)
	assert.False(t, res.OK)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvoker_Timeout(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		writeJSON(w, http.StatusOK, completionBody)
	})

	start := time.Now()
	res := newTestInvoker(srv.URL).Invoke(context.Background(), "slow", []core.Message{core.UserMessage("hi")}, 50*time.Millisecond)
	assert.False(t, res.OK)
	assert.Less(t, time.Since(start), time.Second)
}

func TestInvoker_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := newTestInvoker(url).Invoke(context.Background(), "x", []core.Message{core.UserMessage("hi")}, time.Second)
	assert.Equal(t, core.Failure(), res)
}

func TestBuildMessages_UnknownRoleBecomesUser(t *testing.T) {
	out := buildMessages([]core.Message{{Role: "tool", Content: "t"}, core.AssistantMessage("a")})
	require.Len(t, out, 2)
	assert.NotNil(t, out[0].OfUser)
	assert.NotNil(t, out[1].OfAssistant)
}
