package classifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/domain"
)

// Classifier judges the sentiment and intent of one utterance.
type Classifier interface {
	Analyze(ctx context.Context, text string) (domain.SentimentResult, error)
}

// Safe wraps a Classifier so callers always receive a well-formed judgment.
type Safe struct {
	inner  Classifier
	logger *zap.Logger
}

// NewSafe builds the wrapper.
func NewSafe(inner Classifier, logger *zap.Logger) *Safe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Safe{inner: inner, logger: logger}
}

// Analyze returns the neutral fallback when the inner classifier errors or panics.
func (s *Safe) Analyze(ctx context.Context, text string) (result domain.SentimentResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("classifier panicked", zap.Any("panic", r))
			result = domain.NeutralSentiment()
		}
	}()

	if s.inner == nil {
		return domain.NeutralSentiment()
	}
	sr, err := s.inner.Analyze(ctx, text)
	if err != nil {
		s.logger.Warn("classifier failed; using neutral judgment", zap.Error(err))
		return domain.NeutralSentiment()
	}
	sr = normalize(sr)
	s.logger.Debug("utterance classified", zap.String("judgment", Describe(sr)))
	return sr
}

func normalize(sr domain.SentimentResult) domain.SentimentResult {
	switch domain.TicketDomain(strings.ToUpper(string(sr.Domain))) {
	case domain.DomainBilling:
		sr.Domain = domain.DomainBilling
	case domain.DomainOutage:
		sr.Domain = domain.DomainOutage
	default:
		sr.Domain = domain.DomainUnknown
	}
	if len(sr.Emotions) == 0 {
		sr.Emotions = domain.NeutralSentiment().Emotions
	}
	for i := range sr.Emotions {
		sr.Emotions[i].Type = strings.ToLower(sr.Emotions[i].Type)
		sr.Emotions[i].Score = clamp(sr.Emotions[i].Score)
	}
	if sr.Intents == nil {
		sr.Intents = []string{}
	}
	sr.Confidence = clamp(sr.Confidence)
	return sr
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Describe renders a judgment for log lines.
func Describe(sr domain.SentimentResult) string {
	parts := make([]string, 0, len(sr.Emotions))
	for _, e := range sr.Emotions {
		parts = append(parts, fmt.Sprintf("%s=%.2f", e.Type, e.Score))
	}
	return fmt.Sprintf("domain=%s emotions=[%s] profanity=%t safety=%t intents=%v",
		sr.Domain, strings.Join(parts, " "), sr.Profanity, sr.SafetyFlag, sr.Intents)
}
