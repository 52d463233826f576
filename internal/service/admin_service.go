package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/report"
)

// AdminService handles clinician operations
type AdminService struct {
	repos    Repositories
	renderer *report.Renderer
}

// NewAdminService creates a new admin service
func NewAdminService(repos Repositories, renderer *report.Renderer) *AdminService {
	return &AdminService{repos: repos, renderer: renderer}
}

// Psychiatrist operations

func (s *AdminService) CreatePsychiatrist(ctx context.Context, req *domain.CreatePsychiatristRequest) (*domain.Psychiatrist, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: name and email are required", domain.ErrInvalidRequest)
	}
	if req.Rating < 0 || req.Rating > 5 || req.YearsExperience < 0 {
		return nil, fmt.Errorf("%w: rating must be 0-5 and experience non-negative", domain.ErrInvalidRequest)
	}
	p := &domain.Psychiatrist{
		Name:            req.Name,
		Gender:          req.Gender,
		Email:           req.Email,
		Specialties:     req.Specialties,
		Tags:            req.Tags,
		Location:        req.Location,
		Insurance:       req.Insurance,
		InNetwork:       req.InNetwork,
		Rating:          req.Rating,
		YearsExperience: req.YearsExperience,
		Availability:    req.Availability,
		TherapyStyles:   req.TherapyStyles,
	}
	if err := s.repos.Psychiatrists.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *AdminService) GetPsychiatrist(ctx context.Context, id string) (*domain.Psychiatrist, error) {
	p, err := s.repos.Psychiatrists.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *AdminService) ListPsychiatrists(ctx context.Context) ([]*domain.Psychiatrist, error) {
	list, err := s.repos.Psychiatrists.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Psychiatrist{}
	}
	return list, nil
}

func (s *AdminService) UpdatePsychiatrist(ctx context.Context, id string, req *domain.UpdatePsychiatristRequest) (*domain.Psychiatrist, error) {
	p, err := s.GetPsychiatrist(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Gender != "" {
		p.Gender = req.Gender
	}
	if req.Email != "" {
		p.Email = req.Email
	}
	if req.Specialties != nil {
		p.Specialties = req.Specialties
	}
	if req.Tags != nil {
		p.Tags = req.Tags
	}
	if req.Location != "" {
		p.Location = req.Location
	}
	if req.Insurance != nil {
		p.Insurance = req.Insurance
	}
	if req.InNetwork != nil {
		p.InNetwork = *req.InNetwork
	}
	if req.Rating != nil {
		if *req.Rating < 0 || *req.Rating > 5 {
			return nil, fmt.Errorf("%w: rating must be 0-5", domain.ErrInvalidRequest)
		}
		p.Rating = *req.Rating
	}
	if req.YearsExperience != nil {
		p.YearsExperience = *req.YearsExperience
	}
	if req.Availability != "" {
		p.Availability = req.Availability
	}
	if req.TherapyStyles != nil {
		p.TherapyStyles = req.TherapyStyles
	}

	if err := s.repos.Psychiatrists.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Session records

func (s *AdminService) ListSessions(ctx context.Context, page, pageSize int) (*domain.SessionListResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	sessions, err := s.repos.Sessions.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Sessions.Count(ctx, "")
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	return &domain.SessionListResponse{Sessions: sessions, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *AdminService) GetTranscript(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	sess, err := s.repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domain.ErrNotFound
	}
	messages, err := s.repos.Sessions.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*domain.Message{}
	}
	return messages, nil
}

func (s *AdminService) GetSummary(ctx context.Context, sessionID string) (*domain.ClinicalSummary, error) {
	summary, err := s.repos.Summaries.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, domain.ErrNotFound
	}
	return summary, nil
}

// SummaryPDF renders the stored summary for download.
func (s *AdminService) SummaryPDF(ctx context.Context, sessionID string) ([]byte, error) {
	summary, err := s.GetSummary(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.renderer == nil {
		return nil, fmt.Errorf("%w: PDF export disabled", domain.ErrNotConfigured)
	}
	out, err := s.renderer.Summary(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to render summary: %w", err)
	}
	return out, nil
}

// Bookings

func (s *AdminService) ListBookings(ctx context.Context, page, pageSize int) (*domain.BookingListResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	bookings, err := s.repos.Bookings.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Bookings.Count(ctx)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*domain.Booking{}
	}
	return &domain.BookingListResponse{Bookings: bookings, Total: total, Page: page, PageSize: pageSize}, nil
}

// Stats

func (s *AdminService) GetStats(ctx context.Context) (*domain.Stats, error) {
	var (
		stats domain.Stats
		err   error
	)
	if stats.TotalSessions, err = s.repos.Sessions.Count(ctx, ""); err != nil {
		return nil, err
	}
	if stats.CompletedSessions, err = s.repos.Sessions.Count(ctx, domain.StageComplete); err != nil {
		return nil, err
	}
	if stats.TotalBookings, err = s.repos.Bookings.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalPsychiatrists, err = s.repos.Psychiatrists.Count(ctx); err != nil {
		return nil, err
	}
	return &stats, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
