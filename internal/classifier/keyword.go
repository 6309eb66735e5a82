package classifier

import (
	"context"
	"strings"

	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/textmatch"
)

var (
	impatientCues = []string{"impatient", "still out", "how long", "hurry"}
	fearCues      = []string{"sparks", "smoke", "gas", "downed line", "scared"}
	anxiousCues   = []string{"afraid", "anxious"}
	overchargeCue = []string{"overcharged", "overcharge", "charged twice"}
	rejectReplies = []string{"no", "nah", "nope"}
)

// Keyword is a deterministic offline classifier driven by keyword cues.
type Keyword struct {
	lexicon   config.Lexicon
	profanity *textmatch.WordMatcher
	conduct   *textmatch.WordMatcher
}

// NewKeyword builds the classifier from the lexicon policy.
func NewKeyword(lex config.Lexicon) *Keyword {
	return &Keyword{
		lexicon:   lex,
		profanity: textmatch.NewWordMatcher(lex.Profanity),
		conduct:   textmatch.NewWordMatcher(lex.Conduct),
	}
}

func (k *Keyword) Analyze(_ context.Context, text string) (domain.SentimentResult, error) {
	t := strings.ToLower(text)
	sr := domain.SentimentResult{
		Domain:     domain.DomainUnknown,
		Emotions:   []domain.EmotionScore{{Type: domain.EmotionNeutral, Score: 0.6}},
		Intents:    []string{},
		Confidence: 0.9,
	}
	addIntent := func(intent string) {
		if !sr.HasIntent(intent) {
			sr.Intents = append(sr.Intents, intent)
		}
	}

	if strings.Contains(t, "outage") || strings.Contains(t, "power") {
		sr.Domain = domain.DomainOutage
	}
	if strings.Contains(t, "bill") {
		sr.Domain = domain.DomainBilling
	}
	if textmatch.ContainsAny(t, impatientCues) {
		sr.Emotions = []domain.EmotionScore{
			{Type: domain.EmotionImpatient, Score: 0.85},
			{Type: domain.EmotionAngry, Score: 0.2},
		}
		addIntent("outage_status")
	}
	if k.profanity.Match(t) {
		sr.Emotions = []domain.EmotionScore{{Type: domain.EmotionAngry, Score: 0.92}}
		sr.Profanity = true
		if sr.Domain == domain.DomainUnknown {
			sr.Domain = domain.DomainOutage
		}
	}
	if textmatch.ContainsAny(t, fearCues) {
		sr.Domain = domain.DomainOutage
		sr.Emotions = []domain.EmotionScore{{Type: domain.EmotionFearful, Score: 0.9}}
		sr.SafetyFlag = true
	}
	if textmatch.ContainsAny(t, anxiousCues) {
		if sr.Domain == domain.DomainUnknown {
			sr.Domain = domain.DomainOutage
		}
		sr.Emotions = []domain.EmotionScore{{Type: domain.EmotionFearful, Score: 0.85}}
		sr.SafetyFlag = false
	}
	if textmatch.ContainsAny(t, overchargeCue) && sr.Domain != domain.DomainOutage {
		sr.Domain = domain.DomainBilling
		sr.Emotions = []domain.EmotionScore{{Type: domain.EmotionNeutral, Score: 0.7}}
		addIntent(domain.IntentBillingDispute)
	}
	if strings.Contains(t, "disappointed") && strings.Contains(t, "billing") {
		sr.Domain = domain.DomainBilling
		sr.Emotions = []domain.EmotionScore{{Type: domain.EmotionDisappointed, Score: 0.85}}
	}
	if k.conduct.Match(t) {
		addIntent(domain.IntentCSRConduct)
	}
	if textmatch.EqualsAny(t, k.lexicon.Affirmative) {
		sr.Emotions = []domain.EmotionScore{{Type: domain.EmotionHappy, Score: 0.8}}
		addIntent(domain.IntentAcceptSolution)
	}
	if textmatch.EqualsAny(t, rejectReplies) {
		sr.Emotions = []domain.EmotionScore{
			{Type: domain.EmotionAngry, Score: 0.6},
			{Type: domain.EmotionDisappointed, Score: 0.7},
		}
		addIntent("reject_solution")
	}
	return sr, nil
}
