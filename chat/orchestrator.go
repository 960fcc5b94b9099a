package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// Defaults for retrieval and history depth.
const (
	DefaultTopK         = 5
	DefaultHistoryTurns = 5
	DefaultLanguage     = "English"
)

// Retriever returns the chunks most relevant to a query.
// *search.Searcher satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]*core.RetrievedChunk, error)
}

// Answer is the result of a blocking ask.
type Answer struct {
	Text      string        `json:"answer"`
	Sources   []core.Source `json:"sources"`
	MessageID core.ID       `json:"message_id"`
}

// Orchestrator answers questions within chat sessions.
type Orchestrator struct {
	chats        storage.ChatRepository
	retriever    Retriever
	generator    ai.Generator
	topK         int
	historyTurns int
	language     string
	instruction  string
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithTopK sets the number of chunks retrieved per question. Default is 5.
func WithTopK(k int) Option {
	return func(o *Orchestrator) error {
		if k <= 0 {
			return fmt.Errorf("top k must be positive, got %d", k)
		}
		o.topK = k
		return nil
	}
}

// WithHistoryTurns sets how many previous question/answer pairs are sent
// with a question. Default is 5.
func WithHistoryTurns(turns int) Option {
	return func(o *Orchestrator) error {
		if turns < 0 {
			return fmt.Errorf("history turns cannot be negative, got %d", turns)
		}
		o.historyTurns = turns
		return nil
	}
}

// WithLanguage sets the answer language named in the default instruction.
func WithLanguage(language string) Option {
	return func(o *Orchestrator) error {
		if strings.TrimSpace(language) != "" {
			o.language = language
		}
		return nil
	}
}

// WithSystemPrompt replaces the default instruction.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) error {
		o.instruction = prompt
		return nil
	}
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(chats storage.ChatRepository, retriever Retriever, generator ai.Generator, opts ...Option) (*Orchestrator, error) {
	if chats == nil {
		return nil, ErrChatRepositoryRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	o := &Orchestrator{
		chats:        chats,
		retriever:    retriever,
		generator:    generator,
		topK:         DefaultTopK,
		historyTurns: DefaultHistoryTurns,
		language:     DefaultLanguage,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.instruction == "" {
		o.instruction = systemPrompt(o.language)
	}
	o.logger = o.logger.With("component", "chat")
	return o, nil
}

// turn holds everything prepared for one question.
type turn struct {
	session  *core.ChatSession
	question string
	sources  []core.Source
	prompt   []ai.Message
}

// prepare validates the request, retrieves context and builds the prompt.
func (o *Orchestrator) prepare(ctx context.Context, owner string, sessionID core.ID, question string) (*turn, error) {
	if err := core.ValidateQuestion(question); err != nil {
		return nil, err
	}
	session, err := o.ownedSession(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}

	chunks, err := o.retriever.Retrieve(ctx, question, o.topK)
	if err != nil {
		o.logger.Error("error retrieving context", "session", sessionID, "err", err)
		return nil, err
	}
	reference, sources := buildContext(chunks)

	history, err := o.chats.GetRecentMessages(ctx, sessionID, 2*o.historyTurns)
	if err != nil {
		o.logger.Error("error loading history", "session", sessionID, "err", err)
		return nil, err
	}

	o.logger.Debug("prepared question", "session", sessionID, "chunks", len(chunks), "history", len(history))
	return &turn{
		session:  session,
		question: question,
		sources:  sources,
		prompt:   buildPrompt(o.instruction, history, reference, question),
	}, nil
}

// Ask answers question within the session and records the exchange.
func (o *Orchestrator) Ask(ctx context.Context, owner string, sessionID core.ID, question string) (*Answer, error) {
	t, err := o.prepare(ctx, owner, sessionID, question)
	if err != nil {
		return nil, err
	}

	text, err := o.generator.Generate(ctx, t.prompt)
	if err != nil {
		o.logger.Error("error generating answer", "session", sessionID, "err", err)
		return nil, err
	}

	assistant, err := o.record(ctx, t, text)
	if err != nil {
		return nil, err
	}
	return &Answer{Text: text, Sources: t.sources, MessageID: assistant.ID}, nil
}

// record appends the question and answer and applies the title rule.
func (o *Orchestrator) record(ctx context.Context, t *turn, answer string) (*core.ChatMessage, error) {
	user := &core.ChatMessage{Role: core.RoleUser, Content: t.question}
	assistant := &core.ChatMessage{Role: core.RoleAssistant, Content: answer, Sources: t.sources}

	retitle := func(current string) string { return nextTitle(current, t.question) }
	if _, err := o.chats.AppendExchange(ctx, t.session.ID, retitle, user, assistant); err != nil {
		o.logger.Error("error saving exchange", "session", t.session.ID, "err", err)
		return nil, err
	}
	return assistant, nil
}
