package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

const psychiatristColumns = `id, name, gender, email, specialties, tags, location, insurance,
	in_network, rating, years_experience, availability, therapy_styles, created_at, updated_at`

// PsychiatristRepository handles psychiatrist reference data
type PsychiatristRepository struct {
	db *DB
}

// NewPsychiatristRepository creates a new psychiatrist repository
func NewPsychiatristRepository(db *DB) *PsychiatristRepository {
	return &PsychiatristRepository{db: db}
}

// Create creates a new psychiatrist
func (r *PsychiatristRepository) Create(ctx context.Context, p *domain.Psychiatrist) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt

	specialties, tags, insurance, styles := encodeLists(p)

	_, err := r.db.exec(ctx, `
		INSERT INTO psychiatrists (`+psychiatristColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Gender, p.Email, specialties, tags, p.Location, insurance,
		p.InNetwork, p.Rating, p.YearsExperience, p.Availability, styles, p.CreatedAt, p.UpdatedAt)

	return err
}

// Get retrieves a psychiatrist by ID
func (r *PsychiatristRepository) Get(ctx context.Context, id string) (*domain.Psychiatrist, error) {
	p, err := scanPsychiatrist(r.db.queryRow(ctx, `
		SELECT `+psychiatristColumns+` FROM psychiatrists WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List retrieves all psychiatrists in insertion order. Matching breaks ties
// by this order.
func (r *PsychiatristRepository) List(ctx context.Context) ([]*domain.Psychiatrist, error) {
	rows, err := r.db.query(ctx, `
		SELECT `+psychiatristColumns+` FROM psychiatrists ORDER BY created_at ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*domain.Psychiatrist
	for rows.Next() {
		p, err := scanPsychiatrist(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	return list, rows.Err()
}

// Update updates a psychiatrist
func (r *PsychiatristRepository) Update(ctx context.Context, p *domain.Psychiatrist) error {
	p.UpdatedAt = time.Now().UTC()
	specialties, tags, insurance, styles := encodeLists(p)

	_, err := r.db.exec(ctx, `
		UPDATE psychiatrists
		SET name = ?, gender = ?, email = ?, specialties = ?, tags = ?, location = ?, insurance = ?,
			in_network = ?, rating = ?, years_experience = ?, availability = ?, therapy_styles = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Gender, p.Email, specialties, tags, p.Location, insurance,
		p.InNetwork, p.Rating, p.YearsExperience, p.Availability, styles, p.UpdatedAt, p.ID)

	return err
}

// Count returns the number of psychiatrists
func (r *PsychiatristRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.queryRow(ctx, `SELECT COUNT(*) FROM psychiatrists`).Scan(&count)
	return count, err
}

// Seed inserts list when the table is empty. It returns the number inserted.
func (r *PsychiatristRepository) Seed(ctx context.Context, list []domain.Psychiatrist) (int, error) {
	count, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	base := time.Now().UTC()
	for i := range list {
		p := list[i].Clone()
		// distinct timestamps keep List in seed order
		p.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		if err := r.Create(ctx, &p); err != nil {
			return i, fmt.Errorf("seed %s: %w", p.Name, err)
		}
	}
	return len(list), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPsychiatrist(row rowScanner) (*domain.Psychiatrist, error) {
	p := &domain.Psychiatrist{}
	var specialties, tags, insurance, styles string

	if err := row.Scan(&p.ID, &p.Name, &p.Gender, &p.Email, &specialties, &tags, &p.Location,
		&insurance, &p.InNetwork, &p.Rating, &p.YearsExperience, &p.Availability, &styles,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(specialties), &p.Specialties)
	json.Unmarshal([]byte(tags), &p.Tags)
	json.Unmarshal([]byte(insurance), &p.Insurance)
	json.Unmarshal([]byte(styles), &p.TherapyStyles)

	return p, nil
}

func encodeLists(p *domain.Psychiatrist) (specialties, tags, insurance, styles string) {
	enc := func(v []string) string {
		if v == nil {
			v = []string{}
		}
		b, _ := json.Marshal(v)
		return string(b)
	}
	return enc(p.Specialties), enc(p.Tags), enc(p.Insurance), enc(p.TherapyStyles)
}
