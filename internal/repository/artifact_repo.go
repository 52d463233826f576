package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

// SummaryRepository stores clinical summaries, one per session
type SummaryRepository struct {
	db *DB
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Upsert creates or replaces the session's summary
func (r *SummaryRepository) Upsert(ctx context.Context, summary *domain.ClinicalSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}
	if summary.UpdatedAt.IsZero() {
		summary.UpdatedAt = summary.CreatedAt
	}

	_, err = r.db.exec(ctx, `
		INSERT INTO summaries (session_id, data, phq9_score, phq9_severity, edited, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			data = excluded.data,
			phq9_score = excluded.phq9_score,
			phq9_severity = excluded.phq9_severity,
			edited = excluded.edited,
			updated_at = excluded.updated_at
	`, summary.SessionID, string(data), summary.PHQ9Score, summary.PHQ9Severity, summary.Edited,
		summary.CreatedAt, summary.UpdatedAt)

	return err
}

// Get retrieves the summary for a session
func (r *SummaryRepository) Get(ctx context.Context, sessionID string) (*domain.ClinicalSummary, error) {
	var data string
	err := r.db.queryRow(ctx, `SELECT data FROM summaries WHERE session_id = ?`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	summary := &domain.ClinicalSummary{}
	if err := json.Unmarshal([]byte(data), summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// BookingRepository stores approved outreach requests
type BookingRepository struct {
	db *DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts the session's booking. A session has at most one booking; a
// second insert is ignored and reported as false.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) (bool, error) {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.exec(ctx, `
		INSERT INTO bookings (id, session_id, psychiatrist_id, subject, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO NOTHING
	`, booking.ID, booking.SessionID, booking.PsychiatristID, booking.Subject, booking.Body, booking.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List retrieves bookings, newest first
func (r *BookingRepository) List(ctx context.Context, limit, offset int) ([]*domain.Booking, error) {
	rows, err := r.db.query(ctx, `
		SELECT id, session_id, psychiatrist_id, subject, body, created_at
		FROM bookings ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b := &domain.Booking{}
		if err := rows.Scan(&b.ID, &b.SessionID, &b.PsychiatristID, &b.Subject, &b.Body, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

// Count returns the number of bookings
func (r *BookingRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.queryRow(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&count)
	return count, err
}
