package distress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Verdict is the binary output of a classifier.
type Verdict string

const (
	OK       Verdict = "ok"
	Distress Verdict = "distress"
)

// Source names which signal produced a verdict.
type Source string

const (
	SourceNone    Source = "none"
	SourceKeyword Source = "keyword"
	SourceModel   Source = "model"
	SourceScore   Source = "score"
)

// Result carries a verdict and the signal behind it.
type Result struct {
	Verdict Verdict `json:"verdict"`
	Source  Source  `json:"source"`
}

// IsDistress reports whether the verdict is Distress.
func (r Result) IsDistress() bool { return r.Verdict == Distress }

// Strategy selects a classifier implementation at deployment time.
type Strategy string

const (
	// StrategyModel combines phrase matching with an external yes/no judgment.
	StrategyModel Strategy = "model"
	// StrategyScore combines phrase matching with the decaying toy score.
	StrategyScore Strategy = "score"
)

var (
	ErrUnknownStrategy = errors.New("unknown classifier strategy")
	ErrAskerRequired   = errors.New("model strategy requires a yes/no asker")
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyModel, StrategyScore:
		return Strategy(s), nil
	case "":
		return StrategyScore, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// YesNoAsker asks an external model a question that must be answered YES or NO.
type YesNoAsker interface {
	AskYesNo(ctx context.Context, instruction, text string) (bool, error)
}

// Classifier turns one piece of user text into a verdict.
type Classifier interface {
	Classify(ctx context.Context, text string, opts ...ClassifyOption) Result
}

// classifyOpts holds per-call options.
type classifyOpts struct {
	keywordMatch *bool
}

// ClassifyOption configures a single Classify call.
type ClassifyOption func(*classifyOpts)

// WithKeywordMatch supplies a keyword verdict computed earlier, skipping the matcher.
func WithKeywordMatch(matched bool) ClassifyOption {
	return func(o *classifyOpts) { o.keywordMatch = &matched }
}

func applyOpts(opts []ClassifyOption) classifyOpts {
	var o classifyOpts
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// keywordHit resolves the keyword signal, honouring an override.
func keywordHit(m *Matcher, text string, o classifyOpts) bool {
	if o.keywordMatch != nil {
		return *o.keywordMatch
	}
	if phrase, ok := m.MatchedPhrase(text); ok {
		slog.Debug("distress.keywordHit: phrase matched", "phrase", phrase)
		return true
	}
	return false
}

// ---- Model strategy ----

// ModelInstruction is the system instruction sent with the yes/no judgment request.
const ModelInstruction = "You are a safety classifier for a student wellness chat. " +
	"Decide whether the following message indicates emotional distress, self-harm risk, " +
	"or suicidal thinking. Answer strictly YES or NO with no other words."

// ModelClassifier flags distress on a phrase match or a YES from the external model.
// Any failure of the external call yields OK so the conversation is never blocked.
type ModelClassifier struct {
	matcher *Matcher
	asker   YesNoAsker
}

// NewModelClassifier creates a ModelClassifier. A nil matcher uses the default phrases.
func NewModelClassifier(m *Matcher, asker YesNoAsker) *ModelClassifier {
	if m == nil {
		m = NewMatcher()
	}
	return &ModelClassifier{matcher: m, asker: asker}
}

// Classify implements Classifier.
func (c *ModelClassifier) Classify(ctx context.Context, text string, opts ...ClassifyOption) Result {
	o := applyOpts(opts)
	if keywordHit(c.matcher, text, o) {
		return Result{Verdict: Distress, Source: SourceKeyword}
	}
	if c.asker == nil {
		return Result{Verdict: OK, Source: SourceNone}
	}
	yes, err := c.asker.AskYesNo(ctx, ModelInstruction, text)
	if err != nil {
		slog.Warn("ModelClassifier.Classify: external judgment failed, failing open", "error", err)
		return Result{Verdict: OK, Source: SourceNone}
	}
	if yes {
		return Result{Verdict: Distress, Source: SourceModel}
	}
	return Result{Verdict: OK, Source: SourceModel}
}

// ---- Score strategy ----

// ScoreClassifier flags distress on a phrase match or when the session score crosses the threshold.
type ScoreClassifier struct {
	scorer *Scorer
}

// NewScoreClassifier creates a ScoreClassifier with its own fresh score.
func NewScoreClassifier(m *Matcher) *ScoreClassifier {
	return &ScoreClassifier{scorer: NewScorer(m)}
}

// Classify implements Classifier.
func (c *ScoreClassifier) Classify(ctx context.Context, text string, opts ...ClassifyOption) Result {
	o := applyOpts(opts)
	if keywordHit(c.scorer.matcher, text, o) {
		return Result{Verdict: Distress, Source: SourceKeyword}
	}
	return Result{Verdict: c.scorer.update(text), Source: SourceScore}
}

// ---- Factory ----

// Factory builds one classifier per session so stateful strategies never share a score.
type Factory func() Classifier

// NewFactory returns a Factory for the strategy. The matcher is shared; it is read-only.
func NewFactory(strategy Strategy, asker YesNoAsker) (Factory, error) {
	m := NewMatcher()
	switch strategy {
	case StrategyModel:
		if asker == nil {
			return nil, ErrAskerRequired
		}
		return func() Classifier { return NewModelClassifier(m, asker) }, nil
	case StrategyScore:
		return func() Classifier { return NewScoreClassifier(m) }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
}
