package llm

import "context"

// MockProvider is a test double that returns scripted responses in order.
// The last response repeats once the script is exhausted. Every conversation
// passed to Complete is recorded for assertions.
type MockProvider struct {
	Responses []string
	Err       error

	Calls [][]Message
	next  int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(_ context.Context, messages []Message, _ Settings) (string, error) {
	recorded := make([]Message, len(messages))
	copy(recorded, messages)
	m.Calls = append(m.Calls, recorded)

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}

	i := m.next
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	m.next++
	return m.Responses[i], nil
}
