package flow

import (
	"math"
	"strings"

	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/textmatch"
)

// Policy is the tunable data the rules evaluate against.
type Policy struct {
	Thresholds        config.Thresholds
	Lexicon           config.Lexicon
	MenuBillingTokens []string
	MenuOutageTokens  []string

	profanity *textmatch.WordMatcher
	conduct   *textmatch.WordMatcher
}

// NewPolicy combines flow configuration with the keyword lexicon.
func NewPolicy(cfg config.FlowConfig, lex config.Lexicon) Policy {
	return Policy{
		Thresholds:        cfg.Thresholds,
		Lexicon:           lex,
		MenuBillingTokens: cfg.MenuBillingTokens,
		MenuOutageTokens:  cfg.MenuOutageTokens,
		profanity:         textmatch.NewWordMatcher(lex.Profanity),
		conduct:           textmatch.NewWordMatcher(lex.Conduct),
	}
}

// Emo reads an emotion score. Profanity makes the speaker belligerent:
// the angry score is forced to 1.0.
func Emo(sr domain.SentimentResult, emotion string) float64 {
	if strings.EqualFold(emotion, domain.EmotionAngry) && sr.Profanity {
		return 1.0
	}
	return sr.Score(emotion)
}

// IsPositive is the single acceptance gate shared by every acceptance rule.
func (p Policy) IsPositive(sr domain.SentimentResult) bool {
	best := math.Max(Emo(sr, domain.EmotionPositive), math.Max(Emo(sr, domain.EmotionHappy), Emo(sr, domain.EmotionNeutral)))
	return best >= math.Min(p.Thresholds.Positive, p.Thresholds.Neutral)
}

func (p Policy) profane(text string) bool {
	return p.profanity.Match(text)
}

func (p Policy) conductIssue(text string) bool {
	return p.conduct.Match(text)
}

func (p Policy) affirmative(text string) bool {
	return textmatch.EqualsAny(text, p.Lexicon.Affirmative)
}

func emotionPairs(sr domain.SentimentResult) [][]any {
	pairs := make([][]any, 0, len(sr.Emotions))
	for _, e := range sr.Emotions {
		pairs = append(pairs, []any{e.Type, e.Score})
	}
	return pairs
}
