package stage

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

// Answer is the reading of a reply to a yes/no prompt.
type Answer int

const (
	Unknown Answer = iota
	Yes
	No
)

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

var (
	yesPhrases = []string{
		"yes", "yeah", "yep", "yup", "sure", "ok", "okay", "absolutely", "definitely",
		"of course", "please do", "sounds good", "looks good", "go ahead", "send it",
		"approve", "approved", "correct", "i would", "id like", "i would like",
	}
	noPhrases = []string{
		"no", "nope", "nah", "not really", "no thanks", "no thank you", "not now",
		"rather not", "skip", "dont think so", "do not think so", "dont want",
		"do not want", "dont need", "do not need",
	}
	// hedges mark a reply that qualifies its yes or no, or that is unsure;
	// such replies are read as neither and the question is asked again.
	hedges = []string{
		"but", "however", "except", "change", "instead", "although",
		"dont know", "do not know", "not sure", "unsure", "maybe", "either way",
		"dont mind", "no idea", "perhaps",
	}

	closurePhrases = []string{
		"no", "nope", "nothing", "nothing else", "not really", "thats all", "that is all",
		"thats it", "that is it", "thats everything", "that is everything", "im done",
		"i am done", "all good", "no more", "i think thats it", "covers it",
	}
	// disclosure cues mean the patient is still adding information.
	disclosureCues = []string{"also", "actually", "another thing", "one more", "but", "oh and"}

	ordinals = map[string]int{
		"first": 1, "1st": 1, "second": 2, "2nd": 2, "third": 3, "3rd": 3,
		"fourth": 4, "4th": 4, "fifth": 5, "5th": 5,
		"two": 2, "three": 3, "four": 4, "five": 5,
	}
)

// ParseYesNo reads an affirmation or negation. Replies that contain both, or
// that hedge, are Unknown.
func ParseYesNo(text string) Answer {
	padded := pad(text)
	if padded == "  " {
		return Unknown
	}
	if hasAny(padded, hedges) {
		return Unknown
	}
	yes, no := hasAny(padded, yesPhrases), hasAny(padded, noPhrases)
	switch {
	case yes && !no:
		return Yes
	case no && !yes:
		return No
	default:
		return Unknown
	}
}

// IsClosure reports whether text signals that the patient has nothing more to
// add, as a reply to "is there anything else?".
func IsClosure(text string) bool {
	padded := pad(text)
	if hasAny(padded, disclosureCues) {
		return false
	}
	return hasAny(padded, closurePhrases)
}

// ParseSelection maps a reply to one of the candidates: a list number, an
// ordinal, or (part of) a name. It returns "" when no single candidate is
// identified.
func ParseSelection(text string, candidates []domain.Match) string {
	if len(candidates) == 0 {
		return ""
	}
	ws := words(text)

	picked := map[int]bool{}
	for _, w := range ws {
		if n, err := strconv.Atoi(w); err == nil {
			picked[n] = true
			continue
		}
		if n, ok := ordinals[w]; ok {
			picked[n] = true
		}
	}
	if len(picked) == 1 {
		for n := range picked {
			if n >= 1 && n <= len(candidates) {
				return candidates[n-1].Psychiatrist.ID
			}
		}
	}

	padded := " " + strings.Join(ws, " ") + " "
	found := ""
	for _, c := range candidates {
		if nameMentioned(padded, c.Psychiatrist.Name) {
			if found != "" {
				return ""
			}
			found = c.Psychiatrist.ID
		}
	}
	return found
}

// WantsSummaryReview reports a request to look at the summary again.
func WantsSummaryReview(text string) bool {
	padded := pad(text)
	if !strings.Contains(padded, " summary ") {
		return false
	}
	return hasAny(padded, []string{"see", "show", "review", "look", "view", "read"})
}

func nameMentioned(padded, name string) bool {
	nw := words(name)
	if len(nw) == 0 {
		return false
	}
	if strings.Contains(padded, " "+strings.Join(nw, " ")+" ") {
		return true
	}
	// surname alone, skipping titles
	last := nw[len(nw)-1]
	return len(last) > 2 && strings.Contains(padded, " "+last+" ")
}

func hasAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func pad(text string) string {
	return " " + strings.Join(words(text), " ") + " "
}

func words(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
