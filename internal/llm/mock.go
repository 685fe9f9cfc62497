package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator is a keyless stand-in for Gemini used in development and
// tests. It echoes the last user turn back.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(_ context.Context, history []Turn) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("empty history")
	}
	last := history[len(history)-1]
	if strings.Contains(last.Text, "Generate a brief and descriptive title") {
		return "Basketball chat", nil
	}
	return fmt.Sprintf("You asked: %q. (mock reply)", last.Text), nil
}
