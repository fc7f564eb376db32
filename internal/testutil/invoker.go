package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/modelcouncil/core"
)

// Script describes how ScriptedInvoker resolves one model.
type Script struct {
	Result core.Result
	// Delay is waited before resolving. Context cancellation cuts it short.
	Delay time.Duration
	// Gate blocks resolution until closed. Context cancellation cuts it short.
	Gate <-chan struct{}
	// Panic, when non-nil, is raised instead of returning a result.
	Panic any
}

// ScriptedInvoker is a model.Invoker driven by per-model scripts. Models
// without a script succeed immediately with their own name as content.
//
// Example:
//
//	inv := NewScriptedInvoker().
//	    On("fast", Script{Result: core.Success("ok", nil)}).
//	    On("slow", Script{Result: core.Success("done", nil), Gate: release})
type ScriptedInvoker struct {
	mu          sync.Mutex
	scripts     map[core.ModelID]Script
	calls       map[core.ModelID]int
	messages    map[core.ModelID][]core.Message
	timeouts    map[core.ModelID]time.Duration
	canceled    int
	inFlight    int
	maxInFlight int
}

// NewScriptedInvoker creates an invoker with no scripts.
func NewScriptedInvoker() *ScriptedInvoker {
	return &ScriptedInvoker{
		scripts:  map[core.ModelID]Script{},
		calls:    map[core.ModelID]int{},
		messages: map[core.ModelID][]core.Message{},
		timeouts: map[core.ModelID]time.Duration{},
	}
}

// On registers the script for a model (chainable).
func (s *ScriptedInvoker) On(id core.ModelID, script Script) *ScriptedInvoker {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[id] = script
	return s
}

// Invoke implements model.Invoker.
func (s *ScriptedInvoker) Invoke(ctx context.Context, id core.ModelID, messages []core.Message, timeout time.Duration) core.Result {
	s.mu.Lock()
	script, ok := s.scripts[id]
	s.calls[id]++
	s.messages[id] = messages
	s.timeouts[id] = timeout
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if !ok {
		return core.Success(string(id), nil)
	}
	if !s.wait(ctx, script) {
		return core.Failure()
	}
	if script.Panic != nil {
		panic(script.Panic)
	}
	return script.Result
}

// wait honors Delay and Gate; it reports false when ctx ended first.
func (s *ScriptedInvoker) wait(ctx context.Context, script Script) bool {
	if script.Delay > 0 {
		timer := time.NewTimer(script.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			s.markCanceled()
			return false
		}
	}
	if script.Gate != nil {
		select {
		case <-script.Gate:
		case <-ctx.Done():
			s.markCanceled()
			return false
		}
	}
	return true
}

func (s *ScriptedInvoker) markCanceled() {
	s.mu.Lock()
	s.canceled++
	s.mu.Unlock()
}

// Calls returns how often the model was invoked.
func (s *ScriptedInvoker) Calls(id core.ModelID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

// TotalCalls returns the number of invocations across all models.
func (s *ScriptedInvoker) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Messages returns the conversation last received for the model.
func (s *ScriptedInvoker) Messages(id core.ModelID) []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[id]
}

// Timeout returns the timeout last received for the model.
func (s *ScriptedInvoker) Timeout(id core.ModelID) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeouts[id]
}

// Canceled returns how many invocations ended because their context was done.
func (s *ScriptedInvoker) Canceled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

// MaxInFlight returns the highest number of simultaneous invocations observed.
func (s *ScriptedInvoker) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}
