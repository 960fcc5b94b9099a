package chat

import (
	"context"
	"encoding/json"

	"github.com/poiesic/docent/core"
)

// EventType identifies a streaming event.
type EventType string

const (
	EventSources EventType = "sources"
	EventToken   EventType = "token"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

// Event is one step of a streamed answer.
//
// A successful stream is one sources event, any number of token events and
// one done event carrying the full answer. A failed stream ends with a
// single error event.
type Event struct {
	Type    EventType
	Sources []core.Source
	Content string
	Err     error
}

// MarshalJSON renders the event as it is sent to clients.
func (e Event) MarshalJSON() ([]byte, error) {
	wire := struct {
		Type    EventType     `json:"type"`
		Sources []core.Source `json:"sources,omitempty"`
		Content string        `json:"content,omitempty"`
	}{Type: e.Type, Content: e.Content}

	switch e.Type {
	case EventSources:
		wire.Sources = e.Sources
		if wire.Sources == nil {
			wire.Sources = []core.Source{}
		}
	case EventError:
		if e.Content == "" && e.Err != nil {
			wire.Content = e.Err.Error()
		}
	}
	return json.Marshal(wire)
}

// AskStream answers question within the session as a stream of events.
//
// The returned channel is unbuffered and closed when the stream ends. When
// ctx is done no further events are sent, generation is abandoned and
// nothing is recorded. The exchange is recorded only after the done event
// has been delivered.
func (o *Orchestrator) AskStream(ctx context.Context, owner string, sessionID core.ID, question string) <-chan Event {
	events := make(chan Event)
	go o.stream(ctx, owner, sessionID, question, events)
	return events
}

func (o *Orchestrator) stream(ctx context.Context, owner string, sessionID core.ID, question string, events chan<- Event) {
	defer close(events)

	send := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		o.logger.Warn("stream failed", "session", sessionID, "err", err)
		send(Event{Type: EventError, Content: err.Error(), Err: err})
	}

	t, err := o.prepare(ctx, owner, sessionID, question)
	if err != nil {
		fail(err)
		return
	}

	if !send(Event{Type: EventSources, Sources: t.sources}) {
		return
	}

	answer, err := o.generator.GenerateStream(ctx, t.prompt, func(ctx context.Context, chunk string) error {
		if !send(Event{Type: EventToken, Content: chunk}) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		fail(err)
		return
	}

	if !send(Event{Type: EventDone, Content: answer}) {
		return
	}

	// The consumer may hang up as soon as it has the final event.
	if _, err := o.record(context.WithoutCancel(ctx), t, answer); err != nil {
		o.logger.Error("streamed answer was not saved", "session", sessionID, "err", err)
	}
}
