package service

import (
	"sort"
	"strings"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

// Score weights.
const (
	weightTag          = 2.0
	weightSpecialty    = 3.0
	weightSafety       = 4.0
	weightInsurance    = 3.0
	weightInNetwork    = 1.0
	weightLocation     = 2.0
	weightRating       = 0.2
	weightYear         = 0.01
	maxCountedYears    = 40
	DefaultTopN        = 3
	noGenderPreference = "any"
)

// safetyLabels mark a candidate suitable when risk flags are present.
var safetyLabels = []string{"psychosis", "severe mental illness"}

// Rank scores every candidate in pool against the summary and preferences and
// returns the best topN, highest first. Equal scores keep pool order. Gender
// preference is a hard filter, as is therapy style for candidates that list
// their styles.
func Rank(summary *domain.ClinicalSummary, prefs domain.RecommendationPreferences, pool []*domain.Psychiatrist, topN int) []domain.Match {
	if topN <= 0 {
		topN = DefaultTopN
	}
	matches := make([]domain.Match, 0, len(pool))
	for _, p := range pool {
		if p == nil || !passesFilters(p, prefs) {
			continue
		}
		matches = append(matches, domain.Match{Psychiatrist: p.Clone(), Score: Score(summary, prefs, p)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}

// Score is the weighted keyword score of one candidate.
func Score(summary *domain.ClinicalSummary, prefs domain.RecommendationPreferences, p *domain.Psychiatrist) float64 {
	score := 0.0
	if summary != nil {
		score += weightTag * float64(overlap(p.Tags, summary.Symptoms))
		score += weightSpecialty * float64(overlap(p.Specialties, summary.Concerns))
		if summary.Safety.Any() && (overlap(p.Tags, safetyLabels) > 0 || overlap(p.Specialties, safetyLabels) > 0) {
			score += weightSafety
		}
	}

	if ins := norm(prefs.Insurance); ins != "" {
		for _, carrier := range p.Insurance {
			c := norm(carrier)
			if c != "" && (strings.Contains(c, ins) || strings.Contains(ins, c)) {
				score += weightInsurance
				if p.InNetwork {
					score += weightInNetwork
				}
				break
			}
		}
	}
	if loc := norm(prefs.Location); loc != "" {
		if l := norm(p.Location); l != "" && (strings.Contains(l, loc) || strings.Contains(loc, l)) {
			score += weightLocation
		}
	}

	years := p.YearsExperience
	if years > maxCountedYears {
		years = maxCountedYears
	}
	if years < 0 {
		years = 0
	}
	score += p.Rating*weightRating + float64(years)*weightYear
	return score
}

func passesFilters(p *domain.Psychiatrist, prefs domain.RecommendationPreferences) bool {
	if want := normalizeGender(prefs.GenderPreference); want != "" && want != noGenderPreference {
		if normalizeGender(p.Gender) != want {
			return false
		}
	}
	if style := norm(prefs.TherapyStyle); style != "" && len(p.TherapyStyles) > 0 {
		found := false
		for _, s := range p.TherapyStyles {
			n := norm(s)
			if strings.Contains(n, style) || strings.Contains(style, n) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func normalizeGender(g string) string {
	n := norm(g)
	switch {
	case n == "":
		return ""
	case n == "any" || n == "none" || n == "either" || strings.Contains(n, "preference") || strings.Contains(n, "matter"):
		return noGenderPreference
	case n == "f" || strings.Contains(n, "female") || strings.Contains(n, "woman") || strings.Contains(n, "women"):
		return "female"
	case n == "m" || strings.Contains(n, "male") || strings.Contains(n, "man") || strings.Contains(n, "men"):
		return "male"
	}
	return n
}

func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(b))
	for _, v := range b {
		if n := norm(v); n != "" {
			set[n] = true
		}
	}
	count := 0
	seen := map[string]bool{}
	for _, v := range a {
		n := norm(v)
		if set[n] && !seen[n] {
			seen[n] = true
			count++
		}
	}
	return count
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
