package llm

import (
	"context"
	"strings"
	"sync"
)

const mockAnalysisJSON = `{
  "emotionalState": "calm",
  "themes": ["daily check-in"],
  "riskLevel": 1,
  "recommendedApproach": "supportive",
  "progressIndicators": ["engaged in conversation"]
}`

const mockReply = "I hear you. Tell me a bit more about how that makes you feel."

type scripted struct {
	text string
	err  error
}

// MockLLM is a deterministic stand-in for the generative model. Without a
// script it answers analysis prompts with canned JSON and everything else
// with a supportive line; tests can enqueue exact replies or errors.
type MockLLM struct {
	mu      sync.Mutex
	script  []scripted
	prompts []string
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Enqueue schedules the next completions, consumed in order before the
// default behavior kicks back in.
func (m *MockLLM) Enqueue(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.script = append(m.script, scripted{text: t})
	}
}

// EnqueueError schedules a failing completion.
func (m *MockLLM) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
}

// Prompts returns every prompt received so far.
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Calls returns how many completions were requested.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next.text, next.err
	}

	if strings.Contains(prompt, "Required JSON structure") {
		return mockAnalysisJSON, nil
	}
	return mockReply, nil
}
