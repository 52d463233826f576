package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

func availableFont() string {
	if p := os.Getenv("INTAKE_TEST_FONT"); p != "" {
		return p
	}
	for _, p := range DefaultFontPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func TestSummaryPDF(t *testing.T) {
	font := availableFont()
	if font == "" {
		t.Skip("no TTF font available")
	}
	r := NewRenderer(font)
	out, err := r.Summary(&domain.ClinicalSummary{
		SessionID:      "s1",
		ChiefComplaint: "Low mood for two months",
		Safety:         domain.SafetyFlags{Hallucinations: true},
		PHQ9Score:      14,
		PHQ9Severity:   "Moderate",
		Concerns:       []string{"depression", "psychosis"},
		Narrative:      strings.Repeat("The patient reports persistent low mood and poor sleep. ", 80),
	})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", out[:8])
	}
}

func TestSummaryPDFWithoutFont(t *testing.T) {
	r := &Renderer{fontPaths: []string{filepath.Join(t.TempDir(), "missing.ttf")}}
	if _, err := r.Summary(&domain.ClinicalSummary{}); !errors.Is(err, ErrNoFont) {
		t.Fatalf("Summary() error = %v, want ErrNoFont", err)
	}
}

func TestSafetyText(t *testing.T) {
	got := safetyText(&domain.ClinicalSummary{Safety: domain.SafetyFlags{SelfHarm: true}, SafetyConcerns: "cut last year"})
	if !strings.Contains(got, "FLAGGED: self-harm") || !strings.Contains(got, "cut last year") {
		t.Fatalf("safetyText() = %q", got)
	}
	if got := safetyText(&domain.ClinicalSummary{}); got != "No risk flags raised" {
		t.Fatalf("safetyText() = %q", got)
	}
}
