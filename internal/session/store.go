package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Store manages chat transcript persistence.
// Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a transcript store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Create starts a new conversation.
func (s *Store) Create(ctx context.Context, title string) (*ChatSession, error) {
	cs := &ChatSession{Title: title}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO chat_sessions (title) VALUES ($1)
		 RETURNING id, created_at, updated_at`,
		title,
	).Scan(&cs.ID, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Debug("created chat session", "session_id", cs.ID)
	return cs, nil
}

// Get retrieves one session by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*ChatSession, error) {
	cs := &ChatSession{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, model_name, customer_email, message_count, created_at, updated_at
		 FROM chat_sessions WHERE id = $1`,
		id,
	).Scan(&cs.ID, &cs.Title, &cs.ModelName, &cs.CustomerEmail,
		&cs.MessageCount, &cs.CreatedAt, &cs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return cs, nil
}

// List returns sessions ordered by most recent activity.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]*ChatSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, model_name, customer_email, message_count, created_at, updated_at
		 FROM chat_sessions
		 ORDER BY updated_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*ChatSession
	for rows.Next() {
		cs := &ChatSession{}
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.ModelName, &cs.CustomerEmail,
			&cs.MessageCount, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

// Delete removes a session and all its messages.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted chat session", "session_id", id)
	return nil
}

// SetCustomerEmail ties the identified customer to the transcript.
func (s *Store) SetCustomerEmail(ctx context.Context, id uuid.UUID, email string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE chat_sessions SET customer_email = $2, updated_at = now() WHERE id = $1`,
		id, email)
	if err != nil {
		return fmt.Errorf("set session email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetModelName records which model answered the last turn.
func (s *Store) SetModelName(ctx context.Context, id uuid.UUID, model string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE chat_sessions SET model_name = $2 WHERE id = $1`,
		id, model)
	if err != nil {
		return fmt.Errorf("set session model: %w", err)
	}
	return nil
}

// Append stores messages at the end of the transcript with contiguous
// sequence numbers. The whole batch commits atomically; the session row is
// locked for the duration so concurrent appends cannot collide on sequences.
func (s *Store) Append(ctx context.Context, sessionID uuid.UUID, messages []*ai.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Warn("transaction rollback failed", "error", err)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM chat_sessions WHERE id = $1 FOR UPDATE`, sessionID,
	).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}

	var maxSeq int32
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM chat_messages WHERE session_id = $1`,
		sessionID,
	).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("read max sequence: %w", err)
	}

	for i, msg := range messages {
		content, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("marshal message %d content: %w", i, err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO chat_messages (session_id, role, content, sequence)
			 VALUES ($1, $2, $3, $4)`,
			sessionID, string(msg.Role), content, maxSeq+int32(i)+1)
		if err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE chat_sessions
		 SET message_count = $2, updated_at = now()
		 WHERE id = $1`,
		sessionID, maxSeq+int32(len(messages)))
	if err != nil {
		return fmt.Errorf("update session counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("appended messages",
		"session_id", sessionID,
		"count", len(messages))
	return nil
}

// Messages retrieves stored transcript entries in sequence order.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int32) ([]*Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, role, content, sequence, created_at
		 FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY sequence
		 LIMIT $2 OFFSET $3`,
		sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get messages for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m := &Message{}
		var content []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &content, &m.Sequence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal(content, &m.Content); err != nil {
			// A malformed row should not take the whole transcript down.
			s.logger.Warn("skipping unreadable message",
				"message_id", m.ID, "error", err)
			continue
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// History loads the newest limit transcript entries as model messages in
// chronological order, ready to be replayed into the next completion call.
// The window keeps the tail of the conversation: once a transcript outgrows
// the limit, the oldest turns fall out first.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID, limit int32) ([]*ai.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, role, content
		 FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY sequence DESC
		 LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get history for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var history []*ai.Message
	for rows.Next() {
		var (
			id      uuid.UUID
			role    string
			content []byte
		)
		if err := rows.Scan(&id, &role, &content); err != nil {
			return nil, fmt.Errorf("scan history message: %w", err)
		}
		msg := &ai.Message{Role: ai.Role(role)}
		if err := json.Unmarshal(content, &msg.Content); err != nil {
			s.logger.Warn("skipping unreadable message",
				"message_id", id, "error", err)
			continue
		}
		history = append(history, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(history)
	return history, nil
}
