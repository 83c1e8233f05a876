package distress

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMatcher_AllPhrasesWithCaseAndPunctuation(t *testing.T) {
	m := NewMatcher()
	for _, p := range Phrases {
		inputs := []string{
			p,
			strings.ToUpper(p),
			"Honestly... " + p + "!!!",
			"(" + strings.ReplaceAll(p, " ", "  \n ") + ")",
			strings.ReplaceAll(p, "'", "\u2019"),
		}
		for _, in := range inputs {
			if !m.Matches(in) {
				t.Errorf("expected match for %q", in)
			}
		}
	}
}

func TestMatcher_NoWordBoundaries(t *testing.T) {
	m := NewMatcher("hopeless")
	if !m.Matches("such HOPELESSNESS today") {
		t.Error("expected substring match inside a longer word")
	}
	if m.Matches("") || m.Matches("   ") {
		t.Error("blank text must not match")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  I  Want\tTO\n\nDie "); got != "i want to die" {
		t.Errorf("Normalize() = %q", got)
	}
	if got := Normalize("I Don\u2019t want to live"); got != "i don't want to live" {
		t.Errorf("Normalize() should fold curly apostrophes, got %q", got)
	}
}

func TestMatcher_SmartQuotes(t *testing.T) {
	m := NewMatcher()
	for _, text := range []string{"I don\u2019t want to live", "I can\u2019t go on", "I\u2019m a burden"} {
		if !m.Matches(text) {
			t.Errorf("expected match for %q", text)
		}
	}
}

func TestScorer_BenignTextStaysOK(t *testing.T) {
	s := NewScorer(nil)
	for i := 0; i < 50; i++ {
		if v := s.Evaluate("I feel okay today"); v != OK {
			t.Fatalf("turn %d: expected ok, got %s (score %.4f)", i, v, s.Score())
		}
	}
	// Fixed point of 0.5x + 0.07.
	if got := s.Score(); got < 0.139 || got > 0.141 {
		t.Errorf("expected score to settle near 0.14, got %.4f", got)
	}
}

func TestScorer_KeywordShortCircuitsWithoutUpdating(t *testing.T) {
	s := NewScorer(nil)
	if v := s.Evaluate("I want to kill myself"); v != Distress {
		t.Fatalf("expected distress, got %s", v)
	}
	if s.Score() != 0 {
		t.Errorf("keyword match must not update the score, got %.4f", s.Score())
	}
}

func TestScorer_NegationsAccumulate(t *testing.T) {
	s := NewScorer(NewMatcher("zzzz"))
	// "no not never nothing" has 4 distinct negations and 6 vowels: 0.8 + 0.06 = 0.86.
	if v := s.Evaluate("no not never nothing"); v != Distress {
		t.Fatalf("expected distress at %.4f", s.Score())
	}
	s.Reset()
	// Repeated negation words count once.
	if v := s.Evaluate("no no no no"); v != OK {
		t.Fatalf("expected ok at %.4f", s.Score())
	}
	if got := s.Score(); got < 0.239 || got > 0.241 {
		t.Errorf("expected 0.24, got %.4f", got)
	}
}

func TestScorer_Clamped(t *testing.T) {
	s := NewScorer(NewMatcher("zzzz"))
	s.Evaluate(strings.Repeat("aeiou ", 100))
	if s.Score() != 1 {
		t.Errorf("expected clamp to 1, got %.4f", s.Score())
	}
}

func TestCountNegations(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"I had a good day", 0},
		{"I can't, I won't.", 2},
		{"I can’t do this", 1},
		{"nobody knows, nothing helps", 2},
		{"knot notion", 0},
	}
	for _, tt := range tests {
		if got := countNegations(tt.text); got != tt.want {
			t.Errorf("countNegations(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

type stubAsker struct {
	answer bool
	err    error
	calls  int
}

func (s *stubAsker) AskYesNo(ctx context.Context, instruction, text string) (bool, error) {
	s.calls++
	return s.answer, s.err
}

func TestModelClassifier(t *testing.T) {
	ctx := context.Background()

	asker := &stubAsker{}
	c := NewModelClassifier(nil, asker)
	if r := c.Classify(ctx, "I want to kill myself"); r.Verdict != Distress || r.Source != SourceKeyword {
		t.Errorf("expected keyword distress, got %+v", r)
	}
	if asker.calls != 0 {
		t.Error("keyword match must not call the model")
	}

	if r := c.Classify(ctx, "I had a good day"); r.Verdict != OK || r.Source != SourceModel {
		t.Errorf("expected model ok, got %+v", r)
	}

	asker.answer = true
	if r := c.Classify(ctx, "everything feels grey"); r.Verdict != Distress || r.Source != SourceModel {
		t.Errorf("expected model distress, got %+v", r)
	}
}

func TestModelClassifier_FailOpen(t *testing.T) {
	c := NewModelClassifier(nil, &stubAsker{answer: true, err: errors.New("quota exceeded")})
	if r := c.Classify(context.Background(), "everything feels grey"); r.Verdict != OK {
		t.Errorf("expected fail-open ok, got %+v", r)
	}
}

func TestClassify_KeywordOverride(t *testing.T) {
	ctx := context.Background()
	c := NewScoreClassifier(nil)
	if r := c.Classify(ctx, "I had a good day", WithKeywordMatch(true)); r.Verdict != Distress || r.Source != SourceKeyword {
		t.Errorf("expected override to force distress, got %+v", r)
	}
	if r := c.Classify(ctx, "I want to kill myself", WithKeywordMatch(false)); r.Source != SourceScore {
		t.Errorf("expected override to skip matcher, got %+v", r)
	}
}

func TestScoreClassifier_ShortSentencesOK(t *testing.T) {
	c := NewScoreClassifier(nil)
	for _, text := range []string{"I had a good day", "Exams went fine", "See you tomorrow"} {
		c.scorer.Reset()
		if r := c.Classify(context.Background(), text); r.Verdict != OK {
			t.Errorf("%q: expected ok, got %+v", text, r)
		}
	}
}

func TestNewFactory(t *testing.T) {
	if _, err := NewFactory(StrategyModel, nil); !errors.Is(err, ErrAskerRequired) {
		t.Errorf("expected ErrAskerRequired, got %v", err)
	}
	if _, err := NewFactory("magic", nil); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}

	f, err := NewFactory(StrategyScore, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, b := f().(*ScoreClassifier), f().(*ScoreClassifier)
	a.Classify(context.Background(), "no not never")
	if b.scorer.Score() != 0 {
		t.Error("classifiers from one factory must not share a score")
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy(""); err != nil || s != StrategyScore {
		t.Errorf("expected default score strategy, got %q %v", s, err)
	}
	if s, err := ParseStrategy("model"); err != nil || s != StrategyModel {
		t.Errorf("expected model strategy, got %q %v", s, err)
	}
	if _, err := ParseStrategy("llm"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
