package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/domain"
)

const systemPrompt = `You analyze customer messages for a utility company.
Return ONLY JSON. No prose.
Fields:
- domain: BILLING, OUTAGE, or UNKNOWN
- emotions: array of {type: (angry|impatient|fearful|neutral|disappointed|positive|happy|other), score: 0..1}
- profanity: true if message contains profane language
- safety_flag: true if physical-safety risk (downed lines, smoke, sparks, gas smell)
- intents: include any that apply: billing_dispute, outage_status, prior_ticket, csr_conduct,
          refund_request, accept_solution, reject_solution, provide_account, provide_callback_time, provide_feedback, unknown
- confidence: overall confidence 0..1
Be conservative with safety_flag (true on any plausible safety cue).`

// sentimentFallback maps a coarse sentiment label to scores when the model
// omits the emotions list.
var sentimentFallback = map[string]domain.EmotionScore{
	"angry":    {Type: domain.EmotionAngry, Score: 0.95},
	"fearful":  {Type: domain.EmotionFearful, Score: 0.9},
	"happy":    {Type: domain.EmotionHappy, Score: 0.9},
	"positive": {Type: domain.EmotionPositive, Score: 0.8},
	"negative": {Type: domain.EmotionDisappointed, Score: 0.7},
	"neutral":  {Type: domain.EmotionNeutral, Score: 0.6},
}

type remoteRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Text   string `json:"text"`
}

type remoteJudgment struct {
	Domain     string            `json:"domain"`
	Sentiment  string            `json:"sentiment"`
	Emotions   []json.RawMessage `json:"emotions"`
	Profanity  bool              `json:"profanity"`
	SafetyFlag bool              `json:"safety_flag"`
	Intents    []string          `json:"intents"`
	Confidence float64           `json:"confidence"`
}

// Remote posts utterances to an LLM gateway and parses its JSON judgment.
type Remote struct {
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRemote builds a remote classifier from configuration.
func NewRemote(cfg config.ClassifierConfig, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout(),
		logger:  logger,
	}
}

func (r *Remote) Analyze(ctx context.Context, text string) (domain.SentimentResult, error) {
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return domain.SentimentResult{}, context.DeadlineExceeded
	}

	agent := fiber.Post(r.url)
	agent.JSON(remoteRequest{Model: r.model, System: systemPrompt, Text: text})
	agent.Timeout(timeout)
	if r.apiKey != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+r.apiKey)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return domain.SentimentResult{}, fmt.Errorf("classifier request: %w", errors.Join(errs...))
	}
	if status >= fiber.StatusBadRequest {
		return domain.SentimentResult{}, fmt.Errorf("classifier returned status %d", status)
	}
	r.logger.Debug("classifier raw response", zap.ByteString("body", body))

	judgment, err := parseJudgment(string(body))
	if err != nil {
		return domain.SentimentResult{}, err
	}
	return judgment.toResult(text), nil
}

// parseJudgment accepts the judgment object directly, wrapped in a
// {"text": ...} envelope, fenced in backticks, or embedded in prose.
func parseJudgment(raw string) (remoteJudgment, error) {
	raw = strings.TrimSpace(raw)

	var envelope struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err == nil && envelope.Text != nil {
		raw = strings.TrimSpace(*envelope.Text)
	}

	if strings.HasPrefix(raw, "```") && strings.HasSuffix(raw, "```") {
		lines := strings.Split(raw, "\n")
		if len(lines) >= 2 {
			raw = strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}
	if strings.HasPrefix(raw, "`") && strings.HasSuffix(raw, "`") && len(raw) >= 2 {
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}

	var j remoteJudgment
	if err := json.Unmarshal([]byte(raw), &j); err == nil {
		return j, nil
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first != -1 && last > first {
		if err := json.Unmarshal([]byte(raw[first:last+1]), &j); err == nil {
			return j, nil
		}
	}
	return remoteJudgment{}, errors.New("could not extract JSON from classifier response")
}

func (j remoteJudgment) toResult(text string) domain.SentimentResult {
	emotions := make([]domain.EmotionScore, 0, len(j.Emotions))
	for _, raw := range j.Emotions {
		if e, ok := decodeEmotion(raw); ok {
			emotions = append(emotions, e)
		}
	}
	if len(emotions) == 0 {
		fallback, ok := sentimentFallback[strings.ToLower(j.Sentiment)]
		if !ok {
			fallback = sentimentFallback["neutral"]
		}
		emotions = []domain.EmotionScore{fallback}
	}

	d := domain.TicketDomain(strings.ToUpper(j.Domain))
	if d != domain.DomainBilling && d != domain.DomainOutage && d != domain.DomainUnknown {
		d = guessDomain(text)
	}

	intents := j.Intents
	if intents == nil {
		intents = []string{}
	}
	return domain.SentimentResult{
		Domain:     d,
		Emotions:   emotions,
		Profanity:  j.Profanity,
		SafetyFlag: j.SafetyFlag,
		Intents:    intents,
		Confidence: j.Confidence,
	}
}

// decodeEmotion accepts {"type":..,"score":..} objects and [type, score] pairs.
func decodeEmotion(raw json.RawMessage) (domain.EmotionScore, bool) {
	var obj struct {
		Type  string   `json:"type"`
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Type != "" && obj.Score != nil {
		return domain.EmotionScore{Type: obj.Type, Score: *obj.Score}, true
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return domain.EmotionScore{}, false
	}
	var e domain.EmotionScore
	if err := json.Unmarshal(pair[0], &e.Type); err != nil {
		return domain.EmotionScore{}, false
	}
	if err := json.Unmarshal(pair[1], &e.Score); err != nil {
		return domain.EmotionScore{}, false
	}
	return e, true
}

func guessDomain(text string) domain.TicketDomain {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "power") || strings.Contains(t, "outage"):
		return domain.DomainOutage
	case strings.Contains(t, "bill") || strings.Contains(t, "charge"):
		return domain.DomainBilling
	default:
		return domain.DomainUnknown
	}
}
