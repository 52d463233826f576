package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

// SessionRepository handles session records and the transcript log
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := r.db.exec(ctx, `
		INSERT INTO sessions (id, stage, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, session.ID, string(session.Stage), session.CreatedAt, session.UpdatedAt)

	return err
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	session := &domain.Session{}
	var stage string

	err := r.db.queryRow(ctx, `
		SELECT id, stage, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&session.ID, &stage, &session.CreatedAt, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.Stage = domain.Stage(stage)

	return session, nil
}

// List retrieves sessions, newest first
func (r *SessionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Session, error) {
	rows, err := r.db.query(ctx, `
		SELECT id, stage, created_at, updated_at
		FROM sessions ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session := &domain.Session{}
		var stage string
		if err := rows.Scan(&session.ID, &stage, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		session.Stage = domain.Stage(stage)
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// UpdateStage records the session's current stage
func (r *SessionRepository) UpdateStage(ctx context.Context, id string, stage domain.Stage) error {
	_, err := r.db.exec(ctx, `UPDATE sessions SET stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now().UTC(), id)
	return err
}

// Delete removes a session and, by cascade, its transcript and artifacts
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.exec(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// AppendMessages appends transcript rows in order
func (r *SessionRepository) AppendMessages(ctx context.Context, messages ...*domain.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, message := range messages {
		if message.ID == "" {
			message.ID = uuid.New().String()
		}
		if message.CreatedAt.IsZero() {
			message.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, r.db.rebind(`
			INSERT INTO messages (id, session_id, seq, role, content, stage, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`), message.ID, message.SessionID, message.Seq, message.Role, message.Content,
			string(message.Stage), message.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetMessages retrieves the transcript for a session
func (r *SessionRepository) GetMessages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	rows, err := r.db.query(ctx, `
		SELECT id, session_id, seq, role, content, stage, created_at
		FROM messages WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{}
		var stage string
		if err := rows.Scan(&message.ID, &message.SessionID, &message.Seq, &message.Role,
			&message.Content, &stage, &message.CreatedAt); err != nil {
			return nil, err
		}
		message.Stage = domain.Stage(stage)
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

// Count returns the number of sessions, optionally only those in stage
func (r *SessionRepository) Count(ctx context.Context, stage domain.Stage) (int, error) {
	var count int
	var err error
	if stage == "" {
		err = r.db.queryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	} else {
		err = r.db.queryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE stage = ?`, string(stage)).Scan(&count)
	}
	return count, err
}
