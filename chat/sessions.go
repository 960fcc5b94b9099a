package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// CreateSession starts a conversation for owner. An empty title uses
// core.DefaultSessionTitle.
func (o *Orchestrator) CreateSession(ctx context.Context, owner, title string) (*core.ChatSession, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, ErrOwnerRequired
	}
	return o.chats.CreateSession(ctx, &core.ChatSession{Owner: owner, Title: strings.TrimSpace(title)})
}

// ListSessions returns the sessions of owner, most recently active first.
func (o *Orchestrator) ListSessions(ctx context.Context, owner string) ([]*core.ChatSession, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, ErrOwnerRequired
	}
	return o.chats.ListSessions(ctx, owner)
}

// Messages returns every message of an owned session in order.
func (o *Orchestrator) Messages(ctx context.Context, owner string, sessionID core.ID) ([]*core.ChatMessage, error) {
	if _, err := o.ownedSession(ctx, owner, sessionID); err != nil {
		return nil, err
	}
	return o.chats.ListMessages(ctx, sessionID)
}

// DeleteSession removes an owned session and its messages.
func (o *Orchestrator) DeleteSession(ctx context.Context, owner string, sessionID core.ID) error {
	if _, err := o.ownedSession(ctx, owner, sessionID); err != nil {
		return err
	}
	return o.chats.DeleteSession(ctx, sessionID)
}

// ownedSession loads a session and hides sessions of other owners as missing.
func (o *Orchestrator) ownedSession(ctx context.Context, owner string, sessionID core.ID) (*core.ChatSession, error) {
	session, err := o.chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chat session %s: %w", sessionID, err)
	}
	if session.Owner != owner {
		return nil, fmt.Errorf("chat session %s: %w: %w", sessionID, storage.ErrNotFound, storage.ErrOwnerMismatch)
	}
	return session, nil
}
