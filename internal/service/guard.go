package service

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	instrumentNames = regexp.MustCompile(`(?i)\b(phq[\s-]?9|patient\s+health\s+questionnaire(?:\s*[\s-]\s*9)?)(\s+(?:questionnaire|questions?|screening|assessment|screener|items?))?\b`)
	sentenceSplit   = regexp.MustCompile(`[^.!?]+[.!?]*`)
	echoPrefixes    = []string{"you said", "you mentioned", "youve mentioned", "you told me", "you shared that", "you just said"}
)

// echoOverlap is the share of a sentence's content words that, when found in
// the patient's last message, marks the sentence as an echo.
const echoOverlap = 0.7

// GuardReply post-processes a generated reply: instrument names are replaced,
// sentences that echo the patient's last message are dropped, and only the
// first question is kept.
func GuardReply(reply, lastUser string) string {
	reply = unnameInstrument(reply)
	sentences := SplitSentences(reply)

	userWords := contentWords(lastUser)
	var kept []string
	asked := false
	for _, s := range sentences {
		if isEcho(s, userWords) {
			continue
		}
		if strings.HasSuffix(s, "?") {
			if asked {
				continue
			}
			asked = true
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		// everything was an echo; keep the question so the dialogue can go on
		for _, s := range sentences {
			if strings.HasSuffix(s, "?") {
				return s
			}
		}
		return strings.TrimSpace(reply)
	}
	return strings.Join(kept, " ")
}

// unnameInstrument swaps each instrument name for "screening", which reads
// as a noun ("the screening is next") and as a modifier ("your screening
// score"). A name that opens a sentence is capitalized.
func unnameInstrument(reply string) string {
	var b strings.Builder
	last := 0
	for _, m := range instrumentNames.FindAllStringSubmatchIndex(reply, -1) {
		b.WriteString(reply[last:m[0]])
		out := "screening"
		if m[4] >= 0 {
			switch noun := strings.ToLower(strings.TrimSpace(reply[m[4]:m[5]])); noun {
			case "screening", "screener":
			default:
				out += " " + noun
			}
		}
		if opensSentence(reply[:m[0]]) {
			out = "S" + out[1:]
		}
		b.WriteString(out)
		last = m[1]
	}
	b.WriteString(reply[last:])
	return b.String()
}

func opensSentence(before string) bool {
	before = strings.TrimRightFunc(before, unicode.IsSpace)
	return before == "" || strings.ContainsAny(before[len(before)-1:], ".!?")
}

// SplitSentences splits text into trimmed sentences, keeping punctuation.
func SplitSentences(text string) []string {
	var out []string
	for _, m := range sentenceSplit.FindAllString(text, -1) {
		if s := strings.TrimSpace(m); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isEcho(sentence string, userWords map[string]bool) bool {
	lower := strings.Join(strings.Fields(strings.Map(keepWordRune, strings.ToLower(sentence))), " ")
	for _, p := range echoPrefixes {
		if strings.HasPrefix(lower, p) || strings.HasPrefix(lower, "so "+p) || strings.HasPrefix(lower, "it sounds like "+p) {
			return true
		}
	}
	if len(userWords) == 0 || strings.HasSuffix(sentence, "?") {
		return false
	}
	words := contentWords(sentence)
	if len(words) < 4 {
		return false
	}
	hit := 0
	for w := range words {
		if userWords[w] {
			hit++
		}
	}
	return float64(hit)/float64(len(words)) >= echoOverlap
}

var stopWords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true, "have": true, "has": true,
	"been": true, "for": true, "you": true, "your": true, "are": true, "was": true, "were": true,
	"its": true, "but": true, "not": true, "can": true, "about": true, "from": true, "they": true,
	"what": true, "how": true, "any": true, "some": true, "just": true, "really": true,
}

func contentWords(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.Map(keepWordRune, strings.ToLower(text))) {
		if len(w) > 2 && !stopWords[w] {
			out[w] = true
		}
	}
	return out
}

func keepWordRune(r rune) rune {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		return r
	case r == '\'' || r == '’':
		return -1
	default:
		return ' '
	}
}
