package portfolios

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/validation"
	"portfolio-backend/internal/templates"
)

const maxDescriptionRunes = 280

type Service struct {
	Repo     Repo
	Exporter templates.PDFExporter
	Now      func() time.Time
}

func NewService(repo Repo, exporter templates.PDFExporter) *Service {
	if exporter == nil {
		exporter = templates.DisabledExporter{}
	}
	return &Service{Repo: repo, Exporter: exporter, Now: func() time.Time { return time.Now().UTC() }}
}

// CreateInput carries everything the first revision is built from.
type CreateInput struct {
	Subdomain         string
	TemplateID        int
	OriginalResumeURL string
	ParsedText        string
	ExtractedJSON     map[string]any
	EnhancedJSON      map[string]any
	FinalJSON         map[string]any
}

// Availability reports whether name can be claimed.
func (s *Service) Availability(ctx context.Context, name string) (Availability, error) {
	sub := normalizeSubdomain(name)
	out := Availability{Subdomain: sub}
	if problem := validation.SubdomainProblem(sub); problem != "" {
		out.Reason = problem
		return out, nil
	}
	taken, err := s.Repo.SubdomainTaken(ctx, sub)
	if err != nil {
		return Availability{}, err
	}
	if taken {
		out.Reason = "subdomain is already taken"
		return out, nil
	}
	out.Available = true
	return out, nil
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Detail, error) {
	if strings.TrimSpace(userID) == "" {
		return Detail{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	sub := normalizeSubdomain(in.Subdomain)
	if problem := validation.SubdomainProblem(sub); problem != "" {
		return Detail{}, fmt.Errorf("%w: %s", ErrInvalidInput, problem)
	}
	rec, err := decodeFinal(in.FinalJSON)
	if err != nil {
		return Detail{}, err
	}
	taken, err := s.Repo.SubdomainTaken(ctx, sub)
	if err != nil {
		return Detail{}, err
	}
	if taken {
		return Detail{}, ErrSubdomainTaken
	}

	now := s.Now()
	title, description := defaultTitle(rec)
	p := Portfolio{
		ID:          uuid.NewString(),
		UserID:      userID,
		Subdomain:   sub,
		Title:       title,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rd := ResumeData{
		ID:                uuid.NewString(),
		PortfolioID:       p.ID,
		OriginalResumeURL: in.OriginalResumeURL,
		ParsedText:        in.ParsedText,
		ExtractedJSON:     in.ExtractedJSON,
		EnhancedJSON:      in.EnhancedJSON,
		FinalJSON:         in.FinalJSON,
		TemplateID:        templates.Resolve(in.TemplateID).ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, p, rd); err != nil {
		return Detail{}, err
	}
	telemetry.Info("portfolio.created", map[string]any{
		"portfolio_id": p.ID,
		"user_id":      userID,
		"subdomain":    sub,
		"template_id":  rd.TemplateID,
	})
	return Detail{Portfolio: p, Resume: &rd}, nil
}

// Get returns the caller's portfolio. Portfolios owned by someone else
// report ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, id string) (Detail, error) {
	d, err := s.Lookup(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if d.UserID != userID {
		return Detail{}, ErrNotFound
	}
	return d, nil
}

// Lookup returns a portfolio and its latest revision without an owner check.
func (s *Service) Lookup(ctx context.Context, id string) (Detail, error) {
	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return s.withResume(ctx, p)
}

func (s *Service) withResume(ctx context.Context, p Portfolio) (Detail, error) {
	rd, err := s.Repo.LatestResume(ctx, p.ID)
	if errors.Is(err, ErrNotFound) {
		return Detail{Portfolio: p}, nil
	}
	if err != nil {
		return Detail{}, err
	}
	return Detail{Portfolio: p, Resume: &rd}, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Portfolio, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// SaveResume stores a new revision carrying the edited final JSON. Parse
// artifacts are copied from the previous revision.
func (s *Service) SaveResume(ctx context.Context, userID, id string, final map[string]any, templateID int) (ResumeData, error) {
	if _, err := decodeFinal(final); err != nil {
		return ResumeData{}, err
	}
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return ResumeData{}, err
	}
	now := s.Now()
	rd := ResumeData{
		ID:          uuid.NewString(),
		PortfolioID: id,
		FinalJSON:   final,
		TemplateID:  templates.Resolve(templateID).ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if prev := d.Resume; prev != nil {
		rd.OriginalResumeURL = prev.OriginalResumeURL
		rd.ParsedText = prev.ParsedText
		rd.ExtractedJSON = prev.ExtractedJSON
		rd.EnhancedJSON = prev.EnhancedJSON
		if templateID == 0 {
			rd.TemplateID = prev.TemplateID
		}
	}
	if err := s.Repo.AddResume(ctx, rd); err != nil {
		return ResumeData{}, err
	}
	telemetry.Info("portfolio.resume_saved", map[string]any{
		"portfolio_id": id,
		"revision_id":  rd.ID,
		"template_id":  rd.TemplateID,
	})
	return rd, nil
}

func (s *Service) SetPublished(ctx context.Context, id string, published bool) error {
	if err := s.Repo.SetPublished(ctx, id, published, s.Now()); err != nil {
		return err
	}
	telemetry.Info("portfolio.published", map[string]any{"portfolio_id": id, "published": published})
	return nil
}

// Public resolves a subdomain for anonymous viewers. Unpublished or inactive
// portfolios are ErrNotFound.
func (s *Service) Public(ctx context.Context, subdomain string) (Detail, error) {
	p, err := s.Repo.GetBySubdomain(ctx, normalizeSubdomain(subdomain))
	if err != nil {
		return Detail{}, err
	}
	if !p.IsPublished || !p.IsActive {
		return Detail{}, ErrNotFound
	}
	return s.withResume(ctx, p)
}

// Record returns the record and template a portfolio renders with.
func Record(d Detail) (resume.Record, int, error) {
	if d.Resume == nil {
		return resume.Record{}, 0, ErrNotFound
	}
	rec, err := decodeFinal(d.Resume.FinalJSON)
	if err != nil {
		return resume.Record{}, 0, err
	}
	return rec, templates.Resolve(d.Resume.TemplateID).ID, nil
}

// RenderHTML writes the portfolio page.
func RenderHTML(w io.Writer, d Detail) error {
	rec, templateID, err := Record(d)
	if err != nil {
		return err
	}
	return templates.Render(w, templateID, rec)
}

func (s *Service) ExportPDF(ctx context.Context, userID, id string) ([]byte, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rec, templateID, err := Record(d)
	if err != nil {
		return nil, err
	}
	return s.Exporter.Export(ctx, templateID, rec)
}

func decodeFinal(final map[string]any) (resume.Record, error) {
	if len(final) == 0 {
		return resume.Record{}, fmt.Errorf("%w: final_json is required", ErrInvalidInput)
	}
	rec, err := resume.FromMap(final)
	if err != nil {
		return resume.Record{}, fmt.Errorf("%w: final_json: %v", ErrInvalidInput, err)
	}
	return rec, nil
}

func defaultTitle(rec resume.Record) (string, string) {
	title := strings.TrimSpace(rec.Name)
	if title == "" || rec.IsPlaceholder() {
		title = DefaultTitle
	}
	description := strings.TrimSpace(rec.About)
	if description == "" {
		description = DefaultDescription
	}
	if r := []rune(description); len(r) > maxDescriptionRunes {
		description = strings.TrimSpace(string(r[:maxDescriptionRunes]))
	}
	return title, description
}
