package service

import (
	"strings"
	"testing"
)

func TestGuardReply(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		lastUser string
		want     string
	}{
		{
			name:  "instrument name",
			reply: "Next I'll ask the PHQ-9 questions. How often have you felt down?",
			want:  "Next I'll ask the screening questions. How often have you felt down?",
		},
		{
			name:  "instrument name as modifier",
			reply: "Your PHQ-9 score is 5.",
			want:  "Your screening score is 5.",
		},
		{
			name:  "instrument name opens the reply",
			reply: "PHQ-9 is a short list of questions.",
			want:  "Screening is a short list of questions.",
		},
		{
			name:  "instrument name with its own noun",
			reply: "This is the Patient Health Questionnaire-9 screener.",
			want:  "This is the screening.",
		},
		{
			name:  "one question",
			reply: "Thanks. How is your sleep? And your appetite? Let me know.",
			want:  "Thanks. How is your sleep? Let me know.",
		},
		{
			name:     "echo prefix",
			reply:    "You mentioned you have trouble sleeping. How long has that been going on?",
			lastUser: "I have trouble sleeping",
			want:     "How long has that been going on?",
		},
		{
			name:     "paraphrase overlap",
			reply:    "Work stress keeps you awake every single night. That sounds exhausting. When did it start?",
			lastUser: "work stress keeps me awake every single night",
			want:     "That sounds exhausting. When did it start?",
		},
		{
			name:     "all echo keeps the question",
			reply:    "You said you feel hopeless?",
			lastUser: "I feel hopeless",
			want:     "You said you feel hopeless?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuardReply(tt.reply, tt.lastUser); got != tt.want {
				t.Fatalf("GuardReply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuardNeverNamesInstrument(t *testing.T) {
	for _, reply := range []string{
		"This is the Patient Health Questionnaire-9.",
		"the phq9 screening is next",
		"Some PHQ 9 items follow.",
		"We use the patient health questionnaire.",
	} {
		got := strings.ToLower(GuardReply(reply, ""))
		if strings.Contains(got, "phq") || strings.Contains(got, "patient health questionnaire") {
			t.Errorf("GuardReply(%q) = %q", reply, got)
		}
	}
}

func TestGuardAtMostOneQuestion(t *testing.T) {
	got := GuardReply("How are you? What brings you in? Anything else? Are you safe?", "")
	if n := strings.Count(got, "?"); n != 1 {
		t.Fatalf("GuardReply() kept %d questions: %q", n, got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("One. Two?  Three!")
	if len(got) != 3 || got[1] != "Two?" {
		t.Fatalf("SplitSentences() = %q", got)
	}
}
