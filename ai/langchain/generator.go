package langchain

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/tmc/langchaingo/llms"
)

// Generator implements ai.Generator over a langchaingo model.
type Generator struct {
	model       llms.Model
	provider    string
	temperature float64
	logger      *slog.Logger
}

// NewGenerator wraps model.
func NewGenerator(model llms.Model, opts ...Option) *Generator {
	o := newOptions("generator", opts)
	return &Generator{
		model:       model,
		provider:    o.provider,
		temperature: o.temperature,
		logger:      o.logger,
	}
}

// Generate returns the complete answer for messages.
func (g *Generator) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	g.logger.Debug("generating answer", "messages", len(messages))

	resp, err := g.model.GenerateContent(ctx, toMessageContent(messages), llms.WithTemperature(g.temperature))
	if err != nil {
		g.logger.Error("generation failed", "err", err)
		return "", ClassifyError(g.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

// GenerateStream delivers the answer to onChunk as the model produces it.
// Models that cannot stream deliver their whole answer as a single chunk.
// An error returned by onChunk stops generation and is returned as is.
func (g *Generator) GenerateStream(ctx context.Context, messages []ai.Message, onChunk ai.StreamFunc) (string, error) {
	g.logger.Debug("streaming answer", "messages", len(messages))

	var (
		answer      strings.Builder
		streamed    bool
		callbackErr error
	)
	stream := func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		streamed = true
		if err := onChunk(ctx, string(chunk)); err != nil {
			callbackErr = err
			return err
		}
		answer.Write(chunk)
		return nil
	}

	resp, err := g.model.GenerateContent(ctx, toMessageContent(messages),
		llms.WithTemperature(g.temperature),
		llms.WithStreamingFunc(stream),
	)
	if callbackErr != nil {
		return answer.String(), callbackErr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return answer.String(), ctxErr
		}
		g.logger.Error("streaming generation failed", "err", err)
		return answer.String(), ClassifyError(g.provider, err)
	}

	if !streamed && len(resp.Choices) > 0 && resp.Choices[0].Content != "" {
		content := resp.Choices[0].Content
		if err := onChunk(ctx, content); err != nil {
			return "", err
		}
		return content, nil
	}
	return answer.String(), nil
}

func toMessageContent(messages []ai.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(toChatMessageType(m.Role), m.Content))
	}
	return content
}

func toChatMessageType(role ai.MessageRole) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
