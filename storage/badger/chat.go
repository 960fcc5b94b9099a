package badger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// ChatRepository implements storage.ChatRepository for BadgerDB.
type ChatRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.ChatRepository = (*ChatRepository)(nil)

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(backend *Backend) (*ChatRepository, error) {
	seq, err := backend.GetSequence(messageSeq)
	if err != nil {
		return nil, err
	}

	return &ChatRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the message sequence.
func (r *ChatRepository) Close() error {
	return r.seq.Release()
}

// CreateSession stores a new session.
func (r *ChatRepository) CreateSession(ctx context.Context, session *core.ChatSession) (*core.ChatSession, error) {
	if session.ID == "" {
		session.ID = core.NewID()
	}
	if session.Title == "" {
		session.Title = core.DefaultSessionTitle
	}
	session.CreatedAt = time.Now().UTC()
	session.UpdatedAt = session.CreatedAt

	err := r.backend.Update(func(tx *badger.Txn) error {
		existing, err := readSession(tx, session.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: session %s", storage.ErrDuplicateKey, session.ID)
		}
		if err := writeSession(tx, session); err != nil {
			return err
		}
		return tx.Set(makeOwnerKey(sessionOwnerPrefix, session.Owner, session.CreatedAt, session.ID), []byte(session.ID))
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (r *ChatRepository) GetSession(ctx context.Context, id core.ID) (*core.ChatSession, error) {
	var session *core.ChatSession
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		session, err = readSession(tx, id)
		if err != nil {
			return err
		}
		if session == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return session, err
}

// ListSessions returns the sessions of one owner, most recently updated first.
func (r *ChatRepository) ListSessions(ctx context.Context, owner string) ([]*core.ChatSession, error) {
	var sessions []*core.ChatSession
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeOwnerPrefix(sessionOwnerPrefix, owner)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				id = core.ID(val)
				return nil
			}); err != nil {
				return err
			}
			session, err := readSession(tx, id)
			if err != nil {
				return err
			}
			if session != nil {
				sessions = append(sessions, session)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(sessions, func(a, b *core.ChatSession) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return sessions, nil
}

// DeleteSession removes a session and all of its messages.
func (r *ChatRepository) DeleteSession(ctx context.Context, id core.ID) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		session, err := readSession(tx, id)
		if err != nil {
			return err
		}
		if session == nil {
			return storage.ErrNotFound
		}
		if err := deletePrefix(tx, makeMessagePrefix(id)); err != nil {
			return err
		}
		if err := tx.Delete(makeOwnerKey(sessionOwnerPrefix, session.Owner, session.CreatedAt, session.ID)); err != nil {
			return err
		}
		return tx.Delete(makeSessionKey(id))
	})
}

// AppendExchange appends messages and optionally renames the session in one transaction.
func (r *ChatRepository) AppendExchange(ctx context.Context, sessionID core.ID, retitle storage.RetitleFunc, messages ...*core.ChatMessage) ([]*core.ChatMessage, error) {
	now := time.Now().UTC()
	for _, msg := range messages {
		msg.SessionID = sessionID
		if err := core.ValidateChatMessage(msg); err != nil {
			return nil, err
		}
	}

	err := r.backend.Update(func(tx *badger.Txn) error {
		session, err := readSession(tx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return storage.ErrNotFound
		}

		for _, msg := range messages {
			seq, err := r.seq.Next()
			if err != nil {
				return err
			}
			if msg.ID == "" {
				msg.ID = core.NewID()
			}
			msg.CreatedAt = now

			value, err := storage.MarshalChatMessage(msg)
			if err != nil {
				return err
			}
			if err := tx.Set(makeMessageKey(sessionID, seq), value); err != nil {
				return err
			}
		}

		if retitle != nil {
			if title := retitle(session.Title); title != "" {
				session.Title = title
			}
		}
		session.UpdatedAt = now
		return writeSession(tx, session)
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// GetRecentMessages returns the last limit messages of a session, oldest first.
func (r *ChatRepository) GetRecentMessages(ctx context.Context, sessionID core.ID, limit int) ([]*core.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	var messages []*core.ChatMessage
	err := r.backend.View(func(tx *badger.Txn) error {
		prefix := makeMessagePrefix(sessionID)

		// Use reverse iterator to get most recent messages first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seekKey); iter.ValidForPrefix(prefix) && len(messages) < limit; iter.Next() {
			msg, err := readMessage(iter.Item())
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(messages)
	return messages, nil
}

// ListMessages returns every message of a session, oldest first.
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID core.ID) ([]*core.ChatMessage, error) {
	var messages []*core.ChatMessage
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessagePrefix(sessionID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			msg, err := readMessage(iter.Item())
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	return messages, err
}

// Helper functions

func readSession(tx *badger.Txn, id core.ID) (*core.ChatSession, error) {
	val, err := getValue(tx, makeSessionKey(id))
	if err != nil || val == nil {
		return nil, err
	}
	return storage.UnmarshalChatSession(val)
}

func writeSession(tx *badger.Txn, session *core.ChatSession) error {
	value, err := storage.MarshalChatSession(session)
	if err != nil {
		return err
	}
	return tx.Set(makeSessionKey(session.ID), value)
}

func readMessage(item *badger.Item) (*core.ChatMessage, error) {
	var msg *core.ChatMessage
	err := item.Value(func(val []byte) error {
		var err error
		msg, err = storage.UnmarshalChatMessage(val)
		return err
	})
	return msg, err
}
