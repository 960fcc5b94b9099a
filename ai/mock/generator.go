package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/docent/ai"
)

// DefaultAnswer is returned when no behavior is configured.
const DefaultAnswer = "This is a mock answer based on the provided documents."

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate and GenerateStream if set.
	// GenerateStream splits its result into words.
	GenerateFunc func(ctx context.Context, messages []ai.Message) (string, error)

	// Chunks, when set, are streamed verbatim by GenerateStream and
	// concatenated by Generate.
	Chunks []string

	// StreamErr is returned by GenerateStream after all chunks are sent.
	StreamErr error

	mu    sync.Mutex
	calls [][]ai.Message
}

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// WithChunks sets the chunks GenerateStream delivers.
func (m *MockGenerator) WithChunks(chunks ...string) *MockGenerator {
	m.Chunks = chunks
	return m
}

// WithGenerateFunc sets the function producing answers.
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, messages []ai.Message) (string, error)) *MockGenerator {
	m.GenerateFunc = fn
	return m
}

// Generate returns the configured answer.
func (m *MockGenerator) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	m.record(messages)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages)
	}
	if m.Chunks != nil {
		return strings.Join(m.Chunks, ""), nil
	}
	return DefaultAnswer, nil
}

// GenerateStream delivers the configured answer chunk by chunk.
func (m *MockGenerator) GenerateStream(ctx context.Context, messages []ai.Message, onChunk ai.StreamFunc) (string, error) {
	m.record(messages)

	chunks := m.Chunks
	if chunks == nil {
		answer := DefaultAnswer
		if m.GenerateFunc != nil {
			var err error
			if answer, err = m.GenerateFunc(ctx, messages); err != nil {
				return "", err
			}
		}
		chunks = splitWords(answer)
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return sb.String(), err
		}
		if err := onChunk(ctx, chunk); err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
	return sb.String(), m.StreamErr
}

func (m *MockGenerator) record(messages []ai.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]ai.Message(nil), messages...))
}

// Calls returns the prompts received so far.
func (m *MockGenerator) Calls() [][]ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]ai.Message(nil), m.calls...)
}

// LastCall returns the most recent prompt, or nil.
func (m *MockGenerator) LastCall() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// CallCount returns the number of generation requests.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// splitWords keeps the separating spaces so chunks concatenate back to s.
func splitWords(s string) []string {
	var out []string
	for len(s) > 0 {
		i := strings.IndexByte(s[1:], ' ')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}
