package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct {
	mu     sync.Mutex
	chunks []*core.RetrievedChunk
	err    error
	calls  int
	lastK  int
}

func (r *stubRetriever) Retrieve(_ context.Context, _ string, k int) ([]*core.RetrievedChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastK = k
	return r.chunks, r.err
}

func retrieved(docID core.ID, filename string, index int, content string, score float64) *core.RetrievedChunk {
	return &core.RetrievedChunk{
		Chunk:    &core.Chunk{DocumentID: docID, Index: index, Content: content},
		Filename: filename,
		Distance: 1 - score,
		Score:    score,
	}
}

type fixture struct {
	repos     *badger.Repositories
	retriever *stubRetriever
	generator *mock.MockGenerator
	chat      *Orchestrator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	f := &fixture{
		repos:     repos,
		retriever: &stubRetriever{},
		generator: mock.NewMockGenerator(),
	}
	f.chat, err = NewOrchestrator(repos.Chats, f.retriever, f.generator, opts...)
	require.NoError(t, err)
	return f
}

func (f *fixture) session(t *testing.T, owner string) *core.ChatSession {
	t.Helper()
	s, err := f.chat.CreateSession(context.Background(), owner, "")
	require.NoError(t, err)
	return s
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not finish")
			return out
		}
	}
}

func TestNewOrchestrator_Validation(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	_, err = NewOrchestrator(nil, &stubRetriever{}, mock.NewMockGenerator())
	assert.ErrorIs(t, err, ErrChatRepositoryRequired)
	_, err = NewOrchestrator(repos.Chats, nil, mock.NewMockGenerator())
	assert.ErrorIs(t, err, ErrRetrieverRequired)
	_, err = NewOrchestrator(repos.Chats, &stubRetriever{}, nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)
	_, err = NewOrchestrator(repos.Chats, &stubRetriever{}, mock.NewMockGenerator(), WithTopK(0))
	assert.Error(t, err)
}

func TestAsk_UsesRetrievedContext(t *testing.T) {
	f := newFixture(t, WithTopK(3), WithLanguage("Korean"))
	ctx := context.Background()
	session := f.session(t, "alice")

	f.retriever.chunks = []*core.RetrievedChunk{
		retrieved("doc-a", "policy.pdf", 0, "Refunds within 30 days.", 0.91),
		retrieved("doc-b", "faq.docx", 3, "Contact support for refunds.", 0.85),
		retrieved("doc-a", "policy.pdf", 1, "Receipts are required.", 0.80),
	}

	answer, err := f.chat.Ask(ctx, "alice", session.ID, "What is the refund policy?")
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultAnswer, answer.Text)
	assert.NotEmpty(t, answer.MessageID)
	assert.Equal(t, 3, f.retriever.lastK)

	assert.Equal(t, []core.Source{
		{DocumentID: "doc-a", Filename: "policy.pdf", Score: 0.91},
		{DocumentID: "doc-b", Filename: "faq.docx", Score: 0.85},
	}, answer.Sources)

	prompt := f.generator.LastCall()
	require.Len(t, prompt, 2)
	assert.Equal(t, ai.RoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "Always answer in Korean.")

	final := prompt[1].Content
	assert.True(t, strings.HasPrefix(final, "Reference documents:\n[policy.pdf - chunk 1]\nRefunds within 30 days."))
	assert.Contains(t, final, "\n\n---\n\n[faq.docx - chunk 4]\nContact support for refunds.")
	assert.True(t, strings.HasSuffix(final, "\n\nQuestion: What is the refund policy?\n\nAnswer based on the documents above."))
}

func TestAsk_NoContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.session(t, "alice")

	answer, err := f.chat.Ask(ctx, "alice", session.ID, "Anything about parking?")
	require.NoError(t, err)
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)

	prompt := f.generator.LastCall()
	require.NotEmpty(t, prompt)
	assert.Contains(t, prompt[len(prompt)-1].Content, "Reference documents:\n"+NoContextMarker+"\n\n")

	msgs, err := f.chat.Messages(ctx, "alice", session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "Anything about parking?", msgs[0].Content)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, answer.MessageID, msgs[1].ID)
}

func TestAsk_SessionTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	short := f.session(t, "alice")
	_, err := f.chat.Ask(ctx, "alice", short.ID, "Where is the office?")
	require.NoError(t, err)
	got, err := f.repos.Chats.GetSession(ctx, short.ID)
	require.NoError(t, err)
	assert.Equal(t, "Where is the office?", got.Title)

	// the second question does not rename the session
	_, err = f.chat.Ask(ctx, "alice", short.ID, "And the opening hours?")
	require.NoError(t, err)
	got, err = f.repos.Chats.GetSession(ctx, short.ID)
	require.NoError(t, err)
	assert.Equal(t, "Where is the office?", got.Title)

	long := f.session(t, "alice")
	question := strings.Repeat("가", 60)
	_, err = f.chat.Ask(ctx, "alice", long.ID, question)
	require.NoError(t, err)
	got, err = f.repos.Chats.GetSession(ctx, long.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("가", 50)+"...", got.Title)
}

func TestAsk_OverlappingQuestionsKeepFirstTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.session(t, "alice")

	entered := make(chan struct{})
	release := make(chan struct{})
	f.generator.WithGenerateFunc(func(_ context.Context, messages []ai.Message) (string, error) {
		if strings.Contains(messages[len(messages)-1].Content, "Question: later question") {
			close(entered)
			<-release
		}
		return "ok", nil
	})

	// the later question reads the session first but finishes last
	done := make(chan error, 1)
	go func() {
		_, err := f.chat.Ask(ctx, "alice", session.ID, "later question")
		done <- err
	}()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("generator was not called")
	}

	_, err := f.chat.Ask(ctx, "alice", session.ID, "earlier question")
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	got, err := f.repos.Chats.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "earlier question", got.Title)

	msgs, err := f.chat.Messages(ctx, "alice", session.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestAsk_History(t *testing.T) {
	f := newFixture(t, WithHistoryTurns(2))
	ctx := context.Background()
	session := f.session(t, "alice")

	n := 0
	f.generator.WithGenerateFunc(func(context.Context, []ai.Message) (string, error) {
		n++
		return fmt.Sprintf("a%d", n), nil
	})

	for i := 1; i <= 4; i++ {
		_, err := f.chat.Ask(ctx, "alice", session.ID, fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}

	prompt := f.generator.LastCall()
	// system, two turns of history, final question
	require.Len(t, prompt, 6)
	assert.Equal(t, ai.Message{Role: ai.RoleUser, Content: "q2"}, prompt[1])
	assert.Equal(t, ai.Message{Role: ai.RoleAssistant, Content: "a2"}, prompt[2])
	assert.Equal(t, ai.Message{Role: ai.RoleUser, Content: "q3"}, prompt[3])
	assert.Equal(t, ai.Message{Role: ai.RoleAssistant, Content: "a3"}, prompt[4])
	assert.Contains(t, prompt[5].Content, "Question: q4")
}

func TestAsk_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.session(t, "alice")

	_, err := f.chat.Ask(ctx, "alice", session.ID, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyQuestion)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.chat.Ask(ctx, "alice", "missing", "hello?")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.chat.Ask(ctx, "bob", session.ID, "hello?")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	f.retriever.err = fmt.Errorf("embedding query: %w", ai.ErrProviderConnection)
	_, err = f.chat.Ask(ctx, "alice", session.ID, "hello?")
	assert.True(t, ai.IsUnavailable(err))
	f.retriever.err = nil

	f.generator.WithGenerateFunc(func(context.Context, []ai.Message) (string, error) {
		return "", ai.ErrProviderConnection
	})
	_, err = f.chat.Ask(ctx, "alice", session.ID, "hello?")
	assert.ErrorIs(t, err, ai.ErrProviderConnection)

	msgs, err := f.chat.Messages(ctx, "alice", session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs, "failed asks must not record anything")
}

func TestAskStream_Events(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.session(t, "alice")

	f.retriever.chunks = []*core.RetrievedChunk{retrieved("doc-a", "policy.pdf", 0, "Refunds within 30 days.", 0.9)}
	f.generator.WithChunks("Refunds ", "take ", "30 days.")

	events := collect(t, f.chat.AskStream(ctx, "alice", session.ID, "How long do refunds take?"))
	require.Len(t, events, 5)

	assert.Equal(t, EventSources, events[0].Type)
	assert.Equal(t, []core.Source{{DocumentID: "doc-a", Filename: "policy.pdf", Score: 0.9}}, events[0].Sources)
	for i, want := range []string{"Refunds ", "take ", "30 days."} {
		assert.Equal(t, Event{Type: EventToken, Content: want}, events[i+1])
	}
	assert.Equal(t, EventDone, events[4].Type)
	assert.Equal(t, "Refunds take 30 days.", events[4].Content)

	msgs, err := f.chat.Messages(ctx, "alice", session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Refunds take 30 days.", msgs[1].Content)
	assert.Equal(t, events[0].Sources, msgs[1].Sources)
}

func TestAskStream_UnknownSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events := collect(t, f.chat.AskStream(ctx, "alice", "missing", "hello?"))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.ErrorIs(t, events[0].Err, storage.ErrNotFound)
	assert.Zero(t, f.retriever.calls)
	assert.Zero(t, f.generator.CallCount())
}

func TestAskStream_UnavailableSession(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture) core.ID
	}{
		{
			name: "deleted",
			setup: func(t *testing.T, f *fixture) core.ID {
				s := f.session(t, "alice")
				require.NoError(t, f.chat.DeleteSession(context.Background(), "alice", s.ID))
				return s.ID
			},
		},
		{
			name: "owned by someone else",
			setup: func(t *testing.T, f *fixture) core.ID {
				return f.session(t, "bob").ID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			id := tt.setup(t, f)

			events := collect(t, f.chat.AskStream(ctx, "alice", id, "hello?"))
			require.Len(t, events, 1)
			assert.Equal(t, EventError, events[0].Type)
			assert.ErrorIs(t, events[0].Err, storage.ErrNotFound)
			assert.Zero(t, f.retriever.calls)
			assert.Zero(t, f.generator.CallCount())

			msgs, err := f.repos.Chats.ListMessages(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, msgs)

			session, err := f.repos.Chats.GetSession(ctx, id)
			if err == nil {
				assert.Equal(t, core.DefaultSessionTitle, session.Title)
			} else {
				assert.ErrorIs(t, err, storage.ErrNotFound)
			}
		})
	}
}

func TestAskStream_EmptyQuestion(t *testing.T) {
	f := newFixture(t)
	session := f.session(t, "alice")

	events := collect(t, f.chat.AskStream(context.Background(), "alice", session.ID, ""))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.ErrorIs(t, events[0].Err, core.ErrEmptyQuestion)
}

func TestAskStream_ProviderFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.session(t, "alice")

	f.generator.WithChunks("partial ")
	f.generator.StreamErr = ai.ErrProviderConnection

	events := collect(t, f.chat.AskStream(ctx, "alice", session.ID, "hello?"))
	require.Len(t, events, 3)
	assert.Equal(t, EventSources, events[0].Type)
	assert.Equal(t, EventToken, events[1].Type)
	assert.Equal(t, EventError, events[2].Type)
	assert.True(t, ai.IsUnavailable(events[2].Err))

	msgs, err := f.chat.Messages(ctx, "alice", session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAskStream_ConsumerCancels(t *testing.T) {
	f := newFixture(t)
	session := f.session(t, "alice")
	f.generator.WithChunks("one ", "two ", "three")

	ctx, cancel := context.WithCancel(context.Background())
	events := f.chat.AskStream(ctx, "alice", session.ID, "count please")

	first := <-events
	assert.Equal(t, EventSources, first.Type)
	cancel()

	// the producer stops and closes the channel without an error event
	for ev := range events {
		assert.NotEqual(t, EventError, ev.Type)
		assert.NotEqual(t, EventDone, ev.Type)
	}

	msgs, err := f.chat.Messages(context.Background(), "alice", session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestEvent_MarshalJSON(t *testing.T) {
	data, err := Event{Type: EventSources}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"sources","sources":[]}`, string(data))

	data, err = Event{Type: EventToken, Content: "hi"}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"token","content":"hi"}`, string(data))

	data, err = Event{Type: EventError, Err: errors.New("boom")}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","content":"boom"}`, string(data))
}

func TestSessions_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.chat.CreateSession(ctx, "", "")
	assert.ErrorIs(t, err, ErrOwnerRequired)

	mine := f.session(t, "alice")
	assert.Equal(t, core.DefaultSessionTitle, mine.Title)
	f.session(t, "bob")

	sessions, err := f.chat.ListSessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, mine.ID, sessions[0].ID)

	_, err = f.chat.Messages(ctx, "bob", mine.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, err, storage.ErrOwnerMismatch)

	assert.ErrorIs(t, f.chat.DeleteSession(ctx, "bob", mine.ID), storage.ErrNotFound)
	require.NoError(t, f.chat.DeleteSession(ctx, "alice", mine.ID))
	_, err = f.chat.Messages(ctx, "alice", mine.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNextTitle(t *testing.T) {
	assert.Equal(t, "", nextTitle("Renamed", "question"))
	assert.Equal(t, "short", nextTitle(core.DefaultSessionTitle, "short"))
	exact := strings.Repeat("x", 50)
	assert.Equal(t, exact, nextTitle(core.DefaultSessionTitle, exact))
	assert.Equal(t, exact+"...", nextTitle(core.DefaultSessionTitle, exact+"y"))
}
