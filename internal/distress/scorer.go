package distress

import (
	"math"
	"strings"
	"sync"
	"unicode"
)

// ---- Constants for the decaying score ----

// The values are kept exactly as deployed; they have no clinical derivation.
const (
	decay          = 0.5
	vowelWeight    = 0.01
	negationWeight = 0.2
	scoreThreshold = 0.85
)

// negationWords are counted once each when they appear as standalone tokens.
var negationWords = map[string]bool{
	"no":      true,
	"not":     true,
	"never":   true,
	"nothing": true,
	"nobody":  true,
	"none":    true,
	"nowhere": true,
	"cannot":  true,
	"can't":   true,
	"won't":   true,
	"don't":   true,
}

// ---- Scorer ----

// Scorer keeps one decaying score per session and flags distress when it crosses the
// threshold, even without a phrase match. It is safe for concurrent use.
type Scorer struct {
	matcher *Matcher

	mu        sync.Mutex
	prevScore float64
}

// NewScorer creates a scorer starting at zero. A nil matcher uses the default phrase list.
func NewScorer(m *Matcher) *Scorer {
	if m == nil {
		m = NewMatcher()
	}
	return &Scorer{matcher: m}
}

// Evaluate classifies text. A phrase match returns Distress without touching the score.
func (s *Scorer) Evaluate(text string) Verdict {
	if s.matcher.Matches(text) {
		return Distress
	}
	return s.update(text)
}

// update folds text into the score and thresholds the result.
func (s *Scorer) update(text string) Verdict {
	base := vowelWeight * float64(countVowels(text))
	neg := negationWeight * float64(countNegations(text))

	s.mu.Lock()
	s.prevScore = clamp(decay*s.prevScore + base + neg)
	score := s.prevScore
	s.mu.Unlock()

	if score > scoreThreshold {
		return Distress
	}
	return OK
}

// Score returns the current score.
func (s *Scorer) Score() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prevScore
}

// Reset sets the score back to zero.
func (s *Scorer) Reset() {
	s.mu.Lock()
	s.prevScore = 0
	s.mu.Unlock()
}

// ---- helpers ----

func countVowels(text string) int {
	n := 0
	for _, r := range strings.ToLower(text) {
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			n++
		}
	}
	return n
}

func countNegations(text string) int {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '’'
	})
	seen := make(map[string]bool)
	for _, tok := range tokens {
		tok = strings.ReplaceAll(tok, "’", "'")
		if negationWords[tok] {
			seen[tok] = true
		}
	}
	return len(seen)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Min(v, 1)
}
