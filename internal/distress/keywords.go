// Package distress classifies chat text as ok or distress using a fixed phrase list,
// a decaying toy score, and optionally an external yes/no judgment from a language model.
package distress

import (
	"strings"
)

// ---- Phrase list ----

// Phrases is the fixed, lower-case list of distress phrases. Matching is plain substring
// containment, so "hopeless" also matches inside "hopelessness".
var Phrases = []string{
	// Direct ideation
	"kill myself",
	"killing myself",
	"end my life",
	"ending my life",
	"take my own life",
	"want to die",
	"wanna die",
	"wish i was dead",
	"wish i were dead",
	"better off dead",
	"suicide",
	"suicidal",
	"don't want to live",
	"dont want to live",
	"don't want to be alive",
	"no reason to live",
	"not worth living",
	"end it all",
	"going to end it",
	"sleep forever",
	"never wake up",
	// Hopelessness
	"hopeless",
	"no way out",
	"can't go on",
	"cant go on",
	"can't take it anymore",
	"cant take it anymore",
	"give up on life",
	"giving up on life",
	"nothing matters",
	"no point in living",
	"no point anymore",
	"i am a burden",
	"i'm a burden",
	"everyone would be better without me",
	"nobody would miss me",
	"no one would miss me",
	"worthless",
	"trapped",
	"unbearable",
	// Self-harm
	"hurt myself",
	"hurting myself",
	"harm myself",
	"self harm",
	"self-harm",
	"cut myself",
	"cutting myself",
	"overdose",
	"pills to die",
	"jump off",
	"hang myself",
	"slit my wrists",
	"bleed out",
	// Crisis language
	"goodbye forever",
	"final goodbye",
	"last goodbye",
	"writing a suicide note",
	"my last day",
	"can't breathe",
	"panic attack",
	"emergency",
	"in crisis",
}

// ---- Matcher ----

// Matcher performs substring containment against a normalized phrase list.
type Matcher struct {
	phrases []string
}

// NewMatcher creates a matcher over the given phrases. With no phrases it uses Phrases.
func NewMatcher(phrases ...string) *Matcher {
	if len(phrases) == 0 {
		phrases = Phrases
	}
	m := &Matcher{phrases: make([]string, 0, len(phrases))}
	for _, p := range phrases {
		if p = Normalize(p); p != "" {
			m.phrases = append(m.phrases, p)
		}
	}
	return m
}

// Matches reports whether text contains any phrase.
func (m *Matcher) Matches(text string) bool {
	_, ok := m.MatchedPhrase(text)
	return ok
}

// MatchedPhrase returns the first phrase contained in text.
func (m *Matcher) MatchedPhrase(text string) (string, bool) {
	norm := Normalize(text)
	if norm == "" {
		return "", false
	}
	for _, p := range m.phrases {
		if strings.Contains(norm, p) {
			return p, true
		}
	}
	return "", false
}

// apostrophes folds typographic apostrophes, as typed on phones, into ASCII.
var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u02bc", "'")

// Normalize lower-cases text, folds apostrophes and collapses every run of whitespace into a
// single space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(apostrophes.Replace(text))), " ")
}
