package core

import (
	"encoding/json"
	"sort"
)

// Result is the outcome of one invocation of one model.
//
// A failed Result carries no detail: callers only learn that no answer was
// produced. Diagnostics travel through logging and metrics instead.
type Result struct {
	OK        bool            `json:"ok"`
	Content   string          `json:"content,omitempty"`
	Reasoning json.RawMessage `json:"reasoning,omitempty"` // provider-specific structured detail
}

// Success builds a successful Result. reasoning may be nil.
func Success(content string, reasoning json.RawMessage) Result {
	return Result{OK: true, Content: content, Reasoning: reasoning}
}

// Failure builds the single, detail-free failure outcome.
func Failure() Result { return Result{} }

// HasReasoning reports whether the model returned reasoning detail.
func (r Result) HasReasoning() bool { return r.OK && len(r.Reasoning) > 0 }

// BatchResult maps every requested model to exactly one Result.
type BatchResult map[ModelID]Result

// Succeeded returns the models with a successful result, sorted by name.
func (b BatchResult) Succeeded() []ModelID { return b.filter(true) }

// Failed returns the models whose invocation failed, sorted by name.
func (b BatchResult) Failed() []ModelID { return b.filter(false) }

func (b BatchResult) filter(ok bool) []ModelID {
	ids := make([]ModelID, 0, len(b))
	for id, r := range b {
		if r.OK == ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StreamItem pairs a model with its outcome. Stream consumers receive one item
// per requested model in completion order.
type StreamItem struct {
	Model  ModelID
	Result Result
}
