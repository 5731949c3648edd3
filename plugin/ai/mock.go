package ai

import (
	"context"
	"strings"
	"sync"
)

// MockCompleter is a scripted Completer for testing.
// Responses are matched by a substring of the system instruction.
type MockCompleter struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	fallback  mockResponse
	calls     []CompletionCall
}

// CompletionCall records one Complete invocation.
type CompletionCall struct {
	System string
	User   string
}

type mockResponse struct {
	answer string
	err    error
}

// NewMockCompleter creates a MockCompleter that fails with ErrEmptyCompletion by default.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{
		responses: make(map[string]mockResponse),
		fallback:  mockResponse{err: ErrEmptyCompletion},
	}
}

// On answers any system instruction containing match.
func (m *MockCompleter) On(match, answer string) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[match] = mockResponse{answer: answer}
	return m
}

// OnError fails any system instruction containing match.
func (m *MockCompleter) OnError(match string, err error) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[match] = mockResponse{err: err}
	return m
}

// Complete implements Completer.
func (m *MockCompleter) Complete(_ context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, CompletionCall{System: system, User: user})
	for match, r := range m.responses {
		if strings.Contains(system, match) {
			return r.answer, r.err
		}
	}
	return m.fallback.answer, m.fallback.err
}

// Calls returns a copy of the recorded invocations.
func (m *MockCompleter) Calls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionCall(nil), m.calls...)
}

// CallsMatching counts invocations whose system instruction contains match.
func (m *MockCompleter) CallsMatching(match string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.Contains(c.System, match) {
			n++
		}
	}
	return n
}

// MockVectorizer maps texts to fixed vectors for testing.
type MockVectorizer struct {
	mu      sync.Mutex
	vectors map[string][]float32
	Default []float32
	texts   []string
}

// NewMockVectorizer creates a MockVectorizer returning def for unknown texts.
func NewMockVectorizer(def []float32) *MockVectorizer {
	return &MockVectorizer{vectors: make(map[string][]float32), Default: def}
}

// Set fixes the vector returned for text.
func (m *MockVectorizer) Set(text string, vector []float32) *MockVectorizer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[text] = vector
	return m
}

// Vectorize implements Vectorizer.
func (m *MockVectorizer) Vectorize(_ context.Context, text string) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	if text == "" {
		return nil
	}
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return m.Default
}

// Texts returns every text passed to Vectorize.
func (m *MockVectorizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
