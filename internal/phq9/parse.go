package phq9

import (
	"strconv"
	"strings"
	"unicode"
)

type phrase struct {
	text  string
	value int
}

// answerPhrases are matched longest first; a matched span is consumed so that
// "nearly every day" is not also read as "every day".
var answerPhrases = []phrase{
	{"more than half of the days", 2},
	{"more than half the days", 2},
	{"more than half", 2},
	{"nearly every day", 3},
	{"almost every day", 3},
	{"nearly everyday", 3},
	{"almost everyday", 3},
	{"every single day", 3},
	{"all the time", 3},
	{"every day", 3},
	{"everyday", 3},
	{"constantly", 3},
	{"always", 3},
	{"most of the time", 2},
	{"most days", 2},
	{"frequently", 2},
	{"often", 2},
	{"a lot", 2},
	{"once in a while", 1},
	{"several days", 1},
	{"a few days", 1},
	{"some days", 1},
	{"occasionally", 1},
	{"sometimes", 1},
	{"a little", 1},
	{"not at all", 0},
	{"not really", 0},
	{"never", 0},
	{"none", 0},
}

// leadingNo counts only as the first word of a reply.
var leadingNo = map[string]bool{"no": true, "nope": true, "nah": true}

// uncertain replies are never scored.
var uncertain = []string{
	"not sure", "unsure", "no idea", "no clue", "dont know", "do not know", "idk",
	"cant say", "cannot say", "hard to say", "never thought", "never really thought",
}

// notAnAnswer follows "no" or "never" when the word is not a frequency.
var notAnAnswer = map[string]bool{"idea": true, "clue": true, "sure": true, "thought": true}

// negations before a frequency make the reply ambiguous ("not every day").
var negations = map[string]bool{"not": true, "isnt": true, "arent": true, "wasnt": true}

// ParseAnswer maps a free-text reply for a single item to 0..3. The second
// return value is false when the reply cannot be mapped: no phrase matched,
// phrases with different values matched, a frequency was negated, or the
// patient said they are unsure. Callers ask the same item again rather than
// guessing.
func ParseAnswer(text string) (int, bool) {
	norm := normalize(text)
	if norm == "" {
		return 0, false
	}
	if v, ok := digitAnswer(norm); ok {
		return v, true
	}
	padded := " " + norm + " "
	for _, u := range uncertain {
		if strings.Contains(padded, " "+u+" ") {
			return 0, false
		}
	}

	value, found := 0, false
	record := func(v int) bool {
		if found && v != value {
			return false
		}
		value, found = v, true
		return true
	}

	fields := strings.Fields(norm)
	if leadingNo[fields[0]] && (len(fields) == 1 || !notAnAnswer[fields[1]]) {
		record(0)
	}

	for _, p := range answerPhrases {
		needle := " " + p.text + " "
		for {
			i := strings.Index(padded, needle)
			if i < 0 {
				break
			}
			before := strings.Fields(padded[:i])
			after := strings.Fields(padded[i+len(needle)-1:])
			padded = padded[:i+1] + strings.Repeat("_", len(p.text)) + padded[i+1+len(p.text):]

			if p.text == "never" && len(after) > 0 && notAnAnswer[after[0]] {
				continue
			}
			if len(before) > 0 && negations[before[len(before)-1]] {
				return 0, false
			}
			if !record(p.value) {
				return 0, false
			}
		}
	}
	return value, found
}

// digitAnswer accepts a reply containing exactly one number token, and only
// when that number is a valid item value.
func digitAnswer(norm string) (int, bool) {
	var found []int
	for _, tok := range strings.Fields(norm) {
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		found = append(found, n)
	}
	if len(found) != 1 {
		return 0, false
	}
	if found[0] < 0 || found[0] > MaxItemScore {
		return 0, false
	}
	return found[0], true
}

func normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// drop apostrophes so "don't" and "dont" compare equal
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
