package domain

import "strings"

// Emotion names produced by the classifier.
const (
	EmotionAngry        = "angry"
	EmotionImpatient    = "impatient"
	EmotionFearful      = "fearful"
	EmotionNeutral      = "neutral"
	EmotionDisappointed = "disappointed"
	EmotionPositive     = "positive"
	EmotionHappy        = "happy"
)

// Intent labels the rules react to.
const (
	IntentBillingDispute = "billing_dispute"
	IntentAcceptSolution = "accept_solution"
	IntentCSRConduct     = "csr_conduct"
)

// EmotionScore is one (type, score) pair of a judgment.
type EmotionScore struct {
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// SentimentResult is the classifier's judgment of a single utterance.
type SentimentResult struct {
	Domain     TicketDomain   `json:"domain"`
	Emotions   []EmotionScore `json:"emotions"`
	Profanity  bool           `json:"profanity"`
	SafetyFlag bool           `json:"safety_flag"`
	Intents    []string       `json:"intents"`
	Confidence float64        `json:"confidence"`
}

// NeutralSentiment is the judgment used whenever classification fails.
func NeutralSentiment() SentimentResult {
	return SentimentResult{
		Domain:   DomainUnknown,
		Emotions: []EmotionScore{{Type: EmotionNeutral, Score: 0.6}},
		Intents:  []string{},
	}
}

// Score returns the first score recorded for emotion, or 0 when absent.
func (s SentimentResult) Score(emotion string) float64 {
	for _, e := range s.Emotions {
		if strings.EqualFold(e.Type, emotion) {
			return e.Score
		}
	}
	return 0
}

// HasIntent reports whether intent was detected.
func (s SentimentResult) HasIntent(intent string) bool {
	for _, candidate := range s.Intents {
		if candidate == intent {
			return true
		}
	}
	return false
}

// Snapshot renders the judgment as a journal payload.
func (s SentimentResult) Snapshot() map[string]any {
	emotions := make([]map[string]any, 0, len(s.Emotions))
	for _, e := range s.Emotions {
		emotions = append(emotions, map[string]any{"type": e.Type, "score": e.Score})
	}
	return map[string]any{
		"domain":      s.Domain,
		"emotions":    emotions,
		"profanity":   s.Profanity,
		"safety_flag": s.SafetyFlag,
		"intents":     append([]string{}, s.Intents...),
		"confidence":  s.Confidence,
	}
}
