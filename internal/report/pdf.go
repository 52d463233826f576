// Package report renders the clinician-facing clinical summary as a PDF.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

const (
	fontFamily  = "body"
	marginLeft  = 40.0
	textWidth   = 515.0
	pageBottom  = 790.0
	lineSpacing = 4.0
)

// ErrNoFont is returned when none of the candidate font files can be loaded.
var ErrNoFont = errors.New("report: no usable TTF font")

// DefaultFontPaths are tried after the configured font path.
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
}

// Renderer produces summary PDFs.
type Renderer struct {
	fontPaths []string
}

// NewRenderer creates a renderer that loads its font from fontPath, falling
// back to DefaultFontPaths.
func NewRenderer(fontPath string) *Renderer {
	var paths []string
	if fontPath != "" {
		paths = append(paths, fontPath)
	}
	return &Renderer{fontPaths: append(paths, DefaultFontPaths...)}
}

type page struct {
	pdf *gopdf.GoPdf
}

func (p *page) ensure(height float64) {
	if p.pdf.GetY()+height > pageBottom {
		p.pdf.AddPage()
		p.pdf.SetY(50)
	}
}

func (p *page) text(size float64, s string) error {
	if err := p.pdf.SetFont(fontFamily, "", size); err != nil {
		return err
	}
	for _, para := range strings.Split(s, "\n") {
		if strings.TrimSpace(para) == "" {
			p.pdf.Br(size)
			continue
		}
		lines, err := p.pdf.SplitText(para, textWidth)
		if err != nil {
			return err
		}
		for _, l := range lines {
			p.ensure(size + lineSpacing)
			p.pdf.SetX(marginLeft)
			if err := p.pdf.Cell(nil, l); err != nil {
				return err
			}
			p.pdf.Br(size + lineSpacing)
		}
	}
	return nil
}

func (p *page) section(title, body string) error {
	if strings.TrimSpace(body) == "" {
		body = "Not reported"
	}
	p.pdf.Br(8)
	if err := p.text(13, title); err != nil {
		return err
	}
	return p.text(11, body)
}

// Summary renders s for the given patient session.
func (r *Renderer) Summary(s *domain.ClinicalSummary) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	loaded := false
	var lastErr error
	for _, path := range r.fontPaths {
		if err := pdf.AddTTFFont(fontFamily, path); err != nil {
			lastErr = err
			continue
		}
		loaded = true
		break
	}
	if !loaded {
		return nil, fmt.Errorf("%w: %v", ErrNoFont, lastErr)
	}

	p := &page{pdf: pdf}
	pdf.SetY(50)
	if err := p.text(18, "Psychiatric Intake Summary"); err != nil {
		return nil, err
	}
	header := fmt.Sprintf("Session: %s\nGenerated: %s", s.SessionID, time.Now().UTC().Format("2006-01-02 15:04 MST"))
	if s.Edited {
		header += "\nReviewed and edited by patient"
	}
	if err := p.text(10, header); err != nil {
		return nil, err
	}

	sections := []struct{ title, body string }{
		{"Depression screening", fmt.Sprintf("Score %d / 27 (%s)", s.PHQ9Score, s.PHQ9Severity)},
		{"Safety", safetyText(s)},
		{"Chief complaint", s.ChiefComplaint},
		{"History of present illness", s.HistoryOfPresentIllness},
		{"Past psychiatric history", s.PastPsychiatricHistory},
		{"Medications", s.Medications},
		{"Substance use", s.SubstanceUse},
		{"Functional impact", s.FunctionalImpact},
		{"Symptoms", strings.Join(s.Symptoms, ", ")},
		{"Clinical concerns", strings.Join(s.Concerns, ", ")},
		{"Narrative", s.Narrative},
	}
	for _, sec := range sections {
		if err := p.section(sec.title, sec.body); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func safetyText(s *domain.ClinicalSummary) string {
	var flags []string
	if s.Safety.SuicidalIdeation {
		flags = append(flags, "suicidal ideation")
	}
	if s.Safety.SelfHarm {
		flags = append(flags, "self-harm")
	}
	if s.Safety.HomicidalIdeation {
		flags = append(flags, "homicidal ideation")
	}
	if s.Safety.Hallucinations {
		flags = append(flags, "hallucinations")
	}
	out := "No risk flags raised"
	if len(flags) > 0 {
		out = "FLAGGED: " + strings.Join(flags, ", ")
	}
	if s.SafetyConcerns != "" {
		out += "\n" + s.SafetyConcerns
	}
	return out
}
