package phq9

import (
	"errors"
	"testing"
)

func TestScoreScenarios(t *testing.T) {
	tests := []struct {
		name     string
		answers  []int
		score    int
		severity Severity
	}{
		{"mild", []int{1, 2, 0, 1, 1, 0, 0, 0, 0}, 5, SeverityMild},
		{"severe", []int{3, 3, 3, 3, 3, 3, 3, 3, 3}, 27, SeveritySevere},
		{"minimal", []int{0, 0, 0, 0, 0, 0, 0, 0, 0}, 0, SeverityMinimal},
		{"moderate", []int{2, 2, 2, 1, 1, 1, 1, 0, 0}, 10, SeverityModerate},
		{"moderately severe", []int{2, 2, 2, 2, 2, 2, 2, 1, 0}, 15, SeverityModeratelySevere},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(tt.answers)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if got != tt.score {
				t.Errorf("Score() = %d, want %d", got, tt.score)
			}
			if sev := SeverityFor(got); sev != tt.severity {
				t.Errorf("SeverityFor(%d) = %q, want %q", got, sev, tt.severity)
			}
		})
	}
}

func TestScoreIsSumForAllCompleteArrays(t *testing.T) {
	// Walk a spread of complete arrays by treating an index as a base-4 number.
	for n := 0; n < 4*4*4*4*4; n++ {
		answers := make([]int, ItemCount)
		want := 0
		x := n
		for i := range answers {
			answers[i] = x % 4
			want += answers[i]
			x /= 4
		}
		got, err := Score(answers)
		if err != nil {
			t.Fatalf("Score(%v) error = %v", answers, err)
		}
		if got != want {
			t.Fatalf("Score(%v) = %d, want %d", answers, got, want)
		}
	}
}

func TestSeverityMonotonic(t *testing.T) {
	prev := SeverityFor(0).Rank()
	for score := 1; score <= ItemCount*MaxItemScore; score++ {
		r := SeverityFor(score).Rank()
		if r < prev {
			t.Fatalf("severity rank dropped at score %d", score)
		}
		prev = r
	}
	bands := map[int]Severity{4: SeverityMinimal, 5: SeverityMild, 9: SeverityMild, 10: SeverityModerate,
		14: SeverityModerate, 15: SeverityModeratelySevere, 19: SeverityModeratelySevere, 20: SeveritySevere}
	for score, want := range bands {
		if got := SeverityFor(score); got != want {
			t.Errorf("SeverityFor(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestScoreRejectsPartialAndOversized(t *testing.T) {
	for n := 0; n < ItemCount; n++ {
		if _, err := Score(make([]int, n)); !errors.Is(err, ErrIncomplete) {
			t.Errorf("Score(len %d) error = %v, want ErrIncomplete", n, err)
		}
	}
	if _, err := Score(make([]int, ItemCount+1)); !errors.Is(err, ErrTooManyItems) {
		t.Errorf("Score(len 10) error = %v, want ErrTooManyItems", err)
	}
	if _, err := Score([]int{0, 0, 0, 0, 4, 0, 0, 0, 0}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Score(out of range) error = %v, want ErrOutOfRange", err)
	}
}

func TestAssessmentRecord(t *testing.T) {
	var a Assessment
	if _, err := a.Result(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("empty Result() error = %v", err)
	}
	for i, v := range []int{1, 2, 0, 1, 1, 0, 0, 0, 0} {
		if a.NextItem() != i {
			t.Fatalf("NextItem() = %d, want %d", a.NextItem(), i)
		}
		if err := a.Record(v); err != nil {
			t.Fatalf("Record(%d) error = %v", v, err)
		}
	}
	if !a.Complete() {
		t.Fatal("expected complete assessment")
	}
	if err := a.Record(1); !errors.Is(err, ErrTooManyItems) {
		t.Errorf("tenth Record() error = %v, want ErrTooManyItems", err)
	}
	res, err := a.Result()
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 5 || res.Severity != SeverityMild {
		t.Errorf("Result() = %+v", res)
	}
	if err := (&Assessment{}).Record(7); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Record(7) error = %v", err)
	}
}

func TestAssessmentCloneIsIndependent(t *testing.T) {
	a := Assessment{Answers: []int{1, 2}}
	b := a.Clone()
	b.Answers[0] = 3
	if a.Answers[0] != 1 {
		t.Fatal("clone shares answers with original")
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in    string
		want  int
		valid bool
	}{
		{"0", 0, true},
		{"3", 3, true},
		{" 2. ", 2, true},
		{"I'd say 1", 1, true},
		{"Not at all", 0, true},
		{"several days I guess", 1, true},
		{"More than half the days", 2, true},
		{"nearly every day, honestly", 3, true},
		{"every day", 3, true},
		{"sometimes", 1, true},
		{"no", 0, true},
		{"several days, no more than that", 1, true},
		{"7", 0, false},
		{"1 or 2", 0, false},
		{"I'm not sure what you mean", 0, false},
		{"", 0, false},
		{"Nope, never", 0, true},
		{"not often, maybe sometimes", 0, false},
		{"I have no idea", 0, false},
		{"no clue honestly", 0, false},
		{"never really thought about it, I'm not sure", 0, false},
		{"I don't know", 0, false},
		{"some days, not every day", 0, false},
		{"not always", 0, false},
		{"not really, maybe a few days", 0, false},
		{"sometimes, but other weeks nearly every day", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAnswer(tt.in)
		if ok != tt.valid {
			t.Errorf("ParseAnswer(%q) ok = %v, want %v", tt.in, ok, tt.valid)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseAnswer(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
