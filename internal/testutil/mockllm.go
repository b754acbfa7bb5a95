// Package testutil provides shared test helpers: a deterministic mock model
// and a disposable PostgreSQL container.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockModelName is the provider-qualified name the mock registers under.
const MockModelName = "mock/test-model"

// MockLLM provides deterministic model responses for testing.
// It matches the last user message against registered patterns and returns
// the corresponding response. A rule with tool requests emits them only
// while the conversation has no tool responses yet; once the tool turn comes
// back it answers with its text, which is how a real model concludes a
// tool-calling round.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu    sync.Mutex
	rules []mockRule
	// fallback is returned when no pattern matches.
	fallback string
	calls    []MockCall
}

type mockRule struct {
	pattern string            // substring match in user message, lower-cased
	text    string            // text response
	tools   []*ai.ToolRequest // tool calls to request (nil = text only)
	err     error             // returned instead of a response
	// always makes a tool rule re-issue its requests on every call,
	// for exercising round limits.
	always bool
}

// MockCall records a single call to the mock model.
type MockCall struct {
	UserMessage string
	Response    string
	ToolTurn    bool // conversation already contained a tool-response turn
}

// NewMockLLM creates a mock model with the given fallback response.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse registers a pattern-response pair. Patterns are checked in
// registration order; first match wins.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), text: response})
}

// AddToolResponse registers a pattern that first requests the given tools,
// then answers with textResponse once tool results are in the conversation.
func (m *MockLLM) AddToolResponse(pattern string, tools []*ai.ToolRequest, textResponse string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), text: textResponse, tools: tools})
}

// AddEndlessToolResponse registers a pattern that requests the given tools on
// every call, never concluding. Used to exercise the round ceiling.
func (m *MockLLM) AddEndlessToolResponse(pattern string, tools []*ai.ToolRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), tools: tools, always: true})
}

// AddError registers a pattern that makes the model call fail.
func (m *MockLLM) AddError(pattern string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), err: err})
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears recorded calls (keeps registered rules).
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Register registers the mock as a Genkit model under MockModelName.
func (m *MockLLM) Register(g *genkit.Genkit) ai.Model {
	return m.RegisterAs(g, MockModelName)
}

// RegisterAs registers the mock under a custom provider-qualified name.
// Lets a test stand up several models with different behaviors.
func (m *MockLLM) RegisterAs(g *genkit.Genkit, name string) ai.Model {
	return genkit.DefineModel(g, name, &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	toolTurn := false
	for i := len(req.Messages) - 1; i >= 0; i-- {
		switch req.Messages[i].Role {
		case ai.RoleTool:
			toolTurn = true
		case ai.RoleUser:
			if userText == "" {
				userText = req.Messages[i].Text()
			}
		}
	}

	m.mu.Lock()
	var matched *mockRule
	lower := strings.ToLower(userText)
	for i := range m.rules {
		if strings.Contains(lower, m.rules[i].pattern) {
			matched = &m.rules[i]
			break
		}
	}

	if matched != nil && matched.err != nil {
		m.calls = append(m.calls, MockCall{UserMessage: userText, ToolTurn: toolTurn})
		m.mu.Unlock()
		return nil, matched.err
	}

	responseText := m.fallback
	if matched != nil {
		responseText = matched.text
	}

	m.calls = append(m.calls, MockCall{
		UserMessage: userText,
		Response:    responseText,
		ToolTurn:    toolTurn,
	})
	m.mu.Unlock()

	if cb != nil {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(responseText)},
		})
	}

	var parts []*ai.Part
	emitTools := matched != nil && len(matched.tools) > 0 && (matched.always || !toolTurn)
	if emitTools {
		for _, tr := range matched.tools {
			parts = append(parts, &ai.Part{
				Kind:        ai.PartToolRequest,
				ToolRequest: tr,
			})
		}
	} else {
		parts = append(parts, ai.NewTextPart(responseText))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}
