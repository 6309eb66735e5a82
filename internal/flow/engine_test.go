package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/agent"
	"github.com/spec-kit/support-router/internal/classifier"
	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/directory"
	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/repository"
	"github.com/spec-kit/support-router/internal/schedule"
)

// Wednesday 10:00 in New York.
var testNow = time.Date(2024, time.March, 6, 15, 0, 0, 0, time.UTC)

type ruleCounter struct {
	mu    sync.Mutex
	rules []string
}

func (c *ruleCounter) RecordRule(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, name)
}

type scriptedAnalyzer struct {
	mu       sync.Mutex
	results  map[string]domain.SentimentResult
	fallback domain.SentimentResult
	calls    int
}

func (a *scriptedAnalyzer) Analyze(_ context.Context, text string) domain.SentimentResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if sr, ok := a.results[text]; ok {
		return sr
	}
	return a.fallback
}

func sentiment(emotions ...domain.EmotionScore) domain.SentimentResult {
	return domain.SentimentResult{Domain: domain.DomainUnknown, Emotions: emotions, Intents: []string{}}
}

func emo(kind string, score float64) domain.EmotionScore {
	return domain.EmotionScore{Type: kind, Score: score}
}

type failingSelector struct {
	fail map[agent.Queue]bool
	next agent.Selector
}

func (s failingSelector) Select(q agent.Queue) (string, error) {
	if s.fail[q] {
		return "", errors.New("selector unavailable")
	}
	return s.next.Select(q)
}

type failingJournal struct{}

func (failingJournal) Append(context.Context, domain.JournalEntry) (domain.JournalEntry, error) {
	return domain.JournalEntry{}, errors.New("journal down")
}

type failingTickets struct{ Tickets }

func (failingTickets) Create(context.Context, *domain.Ticket) (*domain.Ticket, error) {
	return nil, errors.New("ticket store down")
}

// repoTickets adapts repository.TicketRepository to the Tickets interface.
type repoTickets struct{ repository.TicketRepository }

func (r repoTickets) Close(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, _, err := r.TicketRepository.Close(ctx, id)
	return ticket, err
}

type harness struct {
	engine   *Engine
	sessions repository.SessionRepository
	tickets  repository.TicketRepository
	journal  repository.JournalRepository
	billing  repository.BillingRequestRepository
	metrics  *ruleCounter
}

func newHarness(t *testing.T, mutate ...func(*Dependencies)) *harness {
	t.Helper()
	cfg := config.DefaultFlowConfig()
	lex := config.DefaultLexicon()
	clock := func() time.Time { return testNow }

	hours, err := schedule.NewBusinessHours(cfg)
	require.NoError(t, err)

	h := &harness{
		sessions: repository.NewSessionRepository(clock),
		tickets:  repository.NewTicketRepository(repository.NewSLAPolicy(cfg.SLA), clock),
		journal:  repository.NewMemoryJournalRepository(clock),
		billing:  repository.NewBillingRequestRepository(clock),
		metrics:  &ruleCounter{},
	}
	deps := Dependencies{
		Sessions:  h.sessions,
		Tickets:   repoTickets{h.tickets},
		Journal:   h.journal,
		Directory: directory.NewDemo(testNow),
		Agents:    agent.NewTopCSATSelector(cfg),
		Billing:   h.billing,
		Schedule:  hours,
		Analyzer:  classifier.NewSafe(classifier.NewKeyword(lex), zap.NewNop()),
		Metrics:   h.metrics,
		Clock:     clock,
		Logger:    zap.NewNop(),
	}
	for _, m := range mutate {
		m(&deps)
	}

	h.engine, err = NewEngine(deps, NewPolicy(cfg, lex))
	require.NoError(t, err)
	return h
}

func (h *harness) say(t *testing.T, session, text string) domain.TurnOutcome {
	t.Helper()
	return h.sayWithAccount(t, session, text, "")
}

func (h *harness) sayWithAccount(t *testing.T, session, text, account string) domain.TurnOutcome {
	t.Helper()
	in := domain.TurnInput{SessionID: session, Text: text}
	if account != "" {
		in.AccountNumber = &account
	}
	out, err := h.engine.Handle(context.Background(), in)
	require.NoError(t, err)
	return out
}

func (h *harness) ticket(t *testing.T, out domain.TurnOutcome) *domain.Ticket {
	t.Helper()
	require.NotNil(t, out.TicketID, "expected a ticket id in %q", out.Reply)
	ticket, err := h.tickets.GetByID(context.Background(), *out.TicketID)
	require.NoError(t, err)
	return ticket
}

func (h *harness) allTickets(t *testing.T) []domain.Ticket {
	t.Helper()
	list, err := h.tickets.List(context.Background(), repository.TicketFilter{})
	require.NoError(t, err)
	return list
}

func (h *harness) labels(t *testing.T, session string) []string {
	t.Helper()
	entries, err := h.journal.ListBySession(context.Background(), session)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Label)
	}
	return out
}

func assertIdle(t *testing.T, sess domain.Session) {
	t.Helper()
	assert.True(t, sess.Stage.IsIdle(), "stage %q", sess.Stage)
	assert.True(t, sess.Context.IsEmpty(), "context %+v", sess.Context)
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	_, err := NewEngine(Dependencies{}, NewPolicy(config.DefaultFlowConfig(), config.DefaultLexicon()))
	require.Error(t, err)
}

func TestRuleOrder(t *testing.T) {
	h := newHarness(t)
	menu, resume, fresh := h.engine.RuleOrder()

	assert.Equal(t, []string{"menu-route"}, menu)
	assert.Equal(t, []string{
		"outage-angry-profanity",
		"outage-acceptance",
		"outage-feedback",
		"outage-safety-text",
		"outage-account-details",
		"safety-fear",
		"safety-confirm",
		"billing-time-collect",
		"billing-prior-sr-feedback",
		"billing-issue-router",
		"billing-acceptance",
		"outage-impatient",
	}, resume)
	assert.Equal(t, []string{
		"safety-fear",
		"outage-angry-profanity",
		"outage-impatient",
		"billing-disappointed",
		"billing-dispute",
	}, fresh)
}

func TestHandleRequiresSessionID(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Handle(context.Background(), domain.TurnInput{Text: "hello"})
	require.Error(t, err)
}

func TestMenuSkipsClassifier(t *testing.T) {
	analyzer := &scriptedAnalyzer{fallback: domain.NeutralSentiment()}
	h := newHarness(t, func(d *Dependencies) { d.Analyzer = analyzer })

	out := h.say(t, "s-menu", "  Billing ")
	assert.Equal(t, "menu-route", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionPromptBillingIssue}, out.Actions)
	assert.Nil(t, out.TicketID)
	assert.Equal(t, domain.StageAwaitBillingIssue, h.sessions.Get("s-menu").Stage)

	out = h.say(t, "s-menu-2", "POWER OUTAGE")
	assert.Equal(t, []domain.Action{domain.ActionAskAccount}, out.Actions)
	assert.Equal(t, domain.StageAwaitAccountOutage, h.sessions.Get("s-menu-2").Stage)
	assert.Zero(t, analyzer.calls)

	entries, err := h.journal.ListBySession(context.Background(), "s-menu")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.JournalTurn, entries[0].Label)
	assert.Equal(t, "menu-route", entries[0].Payload["rule"])
	assert.Equal(t, map[string]any{"note": "menu"}, entries[0].Payload["sentiment"])
}

func TestOutageHappyPath(t *testing.T) {
	h := newHarness(t)
	const sid = "s-outage"

	out := h.say(t, sid, "Outage Assist")
	assert.Equal(t, "I can help with outage status. Please share your account number to look up your ETR.", out.Reply)
	assert.Equal(t, domain.StageAwaitAccountOutage, h.sessions.Get(sid).Stage)
	assert.Empty(t, h.allTickets(t))

	out = h.sayWithAccount(t, sid, "how long until my power is back?", "ACCT-MERCURY")
	assert.Equal(t, "outage-impatient", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionAskAdditionalInfo}, out.Actions)
	assert.Contains(t, out.Reply, "Thanks, Freddie Mercury.")
	sess := h.sessions.Get(sid)
	assert.Equal(t, domain.StageAwaitAccountDetails, sess.Stage)
	assert.Equal(t, "ACCT-MERCURY", sess.Context.AccountNumber)
	require.NotNil(t, sess.Context.OMS)

	out = h.say(t, sid, "no")
	assert.Equal(t, "outage-account-details", out.Rule)
	ticket := h.ticket(t, out)
	assert.Equal(t, domain.TicketPriorityP2, ticket.Priority)
	assert.Equal(t, domain.DomainOutage, ticket.Domain)
	assert.True(t, ticket.HasTag(domain.TagIVRCallbackOnRestore))
	assert.Nil(t, ticket.Fields["details"])
	assert.Contains(t, out.Reply, "Your SR is "+ticket.ID)
	assert.Equal(t, domain.StageAwaitAcceptOutage, h.sessions.Get(sid).Stage)
	assert.Equal(t, ticket.ID, h.sessions.Get(sid).Context.TicketID)

	out = h.say(t, sid, "yes")
	assert.Equal(t, "outage-acceptance", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionCloseTicket}, out.Actions)
	closed := h.ticket(t, out)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assertIdle(t, h.sessions.Get(sid))

	assert.Equal(t, []string{
		domain.JournalTurn,
		domain.JournalTurn,
		domain.JournalTurn,
		domain.JournalSnapshotOutageAccept,
		domain.JournalAcceptOutageSolution,
		domain.JournalTurn,
	}, h.labels(t, sid))
	assert.Equal(t, []string{"menu-route", "outage-impatient", "outage-account-details", "outage-acceptance"}, h.metrics.rules)
}

func TestOutageAccountFromText(t *testing.T) {
	h := newHarness(t)
	const sid = "s-text-account"

	h.say(t, sid, "outage")
	out := h.say(t, sid, "acct-bowie")
	assert.Equal(t, []domain.Action{domain.ActionAskAdditionalInfo}, out.Actions)
	assert.Equal(t, "ACCT-BOWIE", h.sessions.Get(sid).Context.AccountNumber)

	out = h.say(t, sid, "the whole street is dark")
	ticket := h.ticket(t, out)
	assert.Equal(t, "the whole street is dark", ticket.Fields["details"])
}

func TestOutageUnknownAccountReprompts(t *testing.T) {
	h := newHarness(t)
	const sid = "s-unknown"

	h.say(t, sid, "outage")
	out := h.say(t, sid, "ACCT-NOBODY")
	assert.Equal(t, "Hmm, I couldn't find that account number. Could you re-enter it?", out.Reply)
	assert.Equal(t, domain.StageAwaitAccountOutage, h.sessions.Get(sid).Stage)
	assert.Empty(t, h.allTickets(t))
}

func TestOutageImpatientWithoutAccountAsks(t *testing.T) {
	h := newHarness(t)
	out := h.say(t, "s-impatient", "hurry up, how long will this take")
	assert.Equal(t, "outage-impatient", out.Rule)
	assert.Equal(t, "I can help with your outage. Please share your account number so I can check your status.", out.Reply)
	assert.Equal(t, domain.StageAwaitAccountOutage, h.sessions.Get("s-impatient").Stage)
}

func TestOutagePowerAlreadyRestored(t *testing.T) {
	etr := "2024-03-06T14:00:00Z"
	dir := directory.New([]domain.Account{{Number: "ACCT-DONE", Name: "Joni", ETR: etr, PowerRestored: true}})
	h := newHarness(t, func(d *Dependencies) { d.Directory = dir })

	out := h.sayWithAccount(t, "s-restored", "still out? how long", "ACCT-DONE")
	assert.Equal(t, []domain.Action{domain.ActionNoAction}, out.Actions)
	assert.Contains(t, out.Reply, "Good news, Joni")
	assert.Contains(t, out.Reply, "(ETR was "+etr+")")
	assert.Nil(t, out.TicketID)
	assert.Empty(t, h.allTickets(t))
	assertIdle(t, h.sessions.Get("s-restored"))
}

func TestOutageDeclineCollectsFeedback(t *testing.T) {
	h := newHarness(t)
	const sid = "s-decline"

	h.say(t, sid, "outage")
	h.say(t, sid, "ACCT-PRINCE")
	created := h.say(t, sid, "none")

	out := h.say(t, sid, "no")
	assert.Equal(t, []domain.Action{domain.ActionAskFeedback}, out.Actions)
	assert.Equal(t, domain.StageAwaitFeedbackOutage, h.sessions.Get(sid).Stage)

	out = h.say(t, sid, "please send a crew to the north side")
	assert.Equal(t, "outage-feedback", out.Rule)
	assert.Equal(t, created.TicketID, out.TicketID)
	assert.Equal(t, domain.TicketStatusOpen, h.ticket(t, out).Status)
	assertIdle(t, h.sessions.Get(sid))
	assert.Contains(t, h.labels(t, sid), domain.JournalDeclineOutageSolution)
	assert.Contains(t, h.labels(t, sid), "please send a crew to the north side")
}

func TestAngryProfanityEscalation(t *testing.T) {
	h := newHarness(t)
	const sid = "s-angry"

	out := h.say(t, sid, "my power is still out and this is shit")
	assert.Equal(t, "outage-angry-profanity", out.Rule)
	ticket := h.ticket(t, out)
	assert.Equal(t, domain.TicketPriorityP1, ticket.Priority)
	assert.True(t, ticket.HasTag(domain.TagDeEscalation))
	assert.True(t, ticket.HasTag(domain.TagPriorityCallback))
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent_outage_csat_top", *ticket.AssignedAgentID)
	assert.Contains(t, out.Reply, "A live agent (agent_outage_csat_top)")
	assertIdle(t, h.sessions.Get(sid))
	assert.Contains(t, h.labels(t, sid), domain.JournalAngryProfanityCapture)
}

func TestAngryProfanityGuard(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		sr       domain.SentimentResult
		escalate bool
	}{
		{"model flag overrides low anger", "whatever", domain.SentimentResult{Emotions: []domain.EmotionScore{emo("angry", 0.1)}, Profanity: true}, true},
		{"lexicon fallback", "damn this outage", sentiment(emo("angry", 0.9)), true},
		{"angry but clean", "this is unacceptable", sentiment(emo("angry", 0.9)), false},
		{"profane but calm", "damn, ok", sentiment(emo("angry", 0.3)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analyzer := &scriptedAnalyzer{results: map[string]domain.SentimentResult{tc.text: tc.sr}, fallback: sentiment()}
			h := newHarness(t, func(d *Dependencies) { d.Analyzer = analyzer })

			out := h.say(t, "s", tc.text)
			if tc.escalate {
				assert.Equal(t, "outage-angry-profanity", out.Rule)
			} else {
				assert.NotEqual(t, "outage-angry-profanity", out.Rule)
			}
		})
	}
}

func TestAngryProfanityPreemptsResume(t *testing.T) {
	h := newHarness(t)
	const sid = "s-preempt"

	h.say(t, sid, "outage")
	h.say(t, sid, "ACCT-NICKS")
	pending := h.say(t, sid, "no")

	out := h.say(t, sid, "this is bullshit, fuck you")
	assert.Equal(t, "outage-angry-profanity", out.Rule)
	assert.NotEqual(t, *pending.TicketID, *out.TicketID)
	assert.Equal(t, "ACCT-NICKS", *h.ticket(t, out).Fields["account_number"].(*string))
	assert.Equal(t, domain.TicketStatusOpen, h.ticket(t, pending).Status)
	assertIdle(t, h.sessions.Get(sid))
}

func TestAngryProfanityPreemptsSafetyFearOnIdleSession(t *testing.T) {
	const text = "this is shit, I'm scared"
	analyzer := &scriptedAnalyzer{
		results: map[string]domain.SentimentResult{
			text: {Emotions: []domain.EmotionScore{emo("angry", 0.95), emo("fearful", 0.9)}, Profanity: true, Intents: []string{}},
		},
		fallback: sentiment(),
	}
	h := newHarness(t, func(d *Dependencies) { d.Analyzer = analyzer })
	const sid = "s-angry-scared"

	out := h.say(t, sid, text)
	assert.Equal(t, "outage-angry-profanity", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionNotifyAssignedAgent}, out.Actions)
	ticket := h.ticket(t, out)
	assert.Equal(t, domain.TicketPriorityP1, ticket.Priority)
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent_outage_csat_top", *ticket.AssignedAgentID)
	assertIdle(t, h.sessions.Get(sid))
}

func TestSafetyTextDuringAccountWait(t *testing.T) {
	h := newHarness(t)
	const sid = "s-smoke"

	h.say(t, sid, "outage")
	out := h.say(t, sid, "there is smoke coming from the meter")
	assert.Equal(t, "outage-safety-text", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionPriorityAgentConnect, domain.ActionEmergencyRoute}, out.Actions)
	ticket := h.ticket(t, out)
	assert.Equal(t, domain.TicketPriorityP0, ticket.Priority)
	assert.Equal(t, "Emergency safety text report", ticket.Reason)
	assert.True(t, ticket.HasTag(domain.TagEmergency))
	assert.True(t, ticket.HasTag(domain.TagSafety))
	assert.True(t, ticket.HasTag(domain.TagCSREmergency))
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent_csr_emergency", *ticket.AssignedAgentID)
	assert.Equal(t, 2*time.Minute, ticket.SLADeadline.Sub(ticket.CreatedAt))
	assertIdle(t, h.sessions.Get(sid))

	const shock = "s-shock"
	h.say(t, shock, "outage")
	out = h.say(t, shock, "I got a shock from the meter")
	assert.Equal(t, "outage-safety-text", out.Rule)
	assert.Equal(t, domain.TicketPriorityP0, h.ticket(t, out).Priority)
	assertIdle(t, h.sessions.Get(shock))
}

func TestSafetyFearWithHazard(t *testing.T) {
	h := newHarness(t)
	out := h.say(t, "s-fear", "I see sparks near the pole")
	assert.Equal(t, "safety-fear", out.Rule)
	ticket := h.ticket(t, out)
	assert.Equal(t, "Emergency safety concern", ticket.Reason)
	assert.Equal(t, true, ticket.Fields["safety_flag"])
	assert.Contains(t, out.Reply, "Your emergency ticket is "+ticket.ID)
	assert.Contains(t, h.labels(t, "s-fear"), domain.JournalEmergencyCapture)
}

func TestSafetyFearConfirmation(t *testing.T) {
	h := newHarness(t)
	const sid = "s-confirm"

	out := h.say(t, sid, "I'm afraid something is wrong")
	assert.Equal(t, []domain.Action{domain.ActionAskSafetyConfirm}, out.Actions)
	assert.Equal(t, domain.StageAwaitSafetyConfirm, h.sessions.Get(sid).Stage)

	out = h.say(t, sid, "yes")
	assert.Equal(t, "safety-confirm", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionEmergencyRoute}, out.Actions)
	ticket := h.ticket(t, out)
	assert.Equal(t, domain.TicketPriorityP0, ticket.Priority)
	assert.Equal(t, "Emergency safety confirmed", ticket.Reason)
	assertIdle(t, h.sessions.Get(sid))

	h.say(t, "s-deny", "I'm anxious about this")
	out = h.say(t, "s-deny", "no")
	assert.Equal(t, []domain.Action{domain.ActionContinueSupport}, out.Actions)
	assert.Nil(t, out.TicketID)
	assertIdle(t, h.sessions.Get("s-deny"))
}

func TestEmergencyAgentFallsBackToOutageQueue(t *testing.T) {
	cfg := config.DefaultFlowConfig()
	h := newHarness(t, func(d *Dependencies) {
		d.Agents = failingSelector{fail: map[agent.Queue]bool{agent.QueueCSREmergency: true}, next: agent.NewTopCSATSelector(cfg)}
	})

	out := h.say(t, "s", "there's a downed line and sparks")
	ticket := h.ticket(t, out)
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent_outage_csat_top", *ticket.AssignedAgentID)

	h = newHarness(t, func(d *Dependencies) {
		d.Agents = failingSelector{fail: map[agent.Queue]bool{agent.QueueCSREmergency: true, agent.QueueOutage: true}, next: agent.NewTopCSATSelector(cfg)}
	})
	out = h.say(t, "s", "there's a downed line and sparks")
	assert.Nil(t, h.ticket(t, out).AssignedAgentID)
}

func TestBillingDisputeAcceptedCallback(t *testing.T) {
	h := newHarness(t)
	const sid = "s-billing"

	h.say(t, sid, "billing")
	out := h.sayWithAccount(t, sid, "I was overcharged last month", "ACCT-NICKS")
	assert.Equal(t, "billing-dispute", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionAskTime}, out.Actions)
	assert.Equal(t, domain.StageAwaitBillingTime, h.sessions.Get(sid).Stage)

	out = h.say(t, sid, "10:30am works")
	assert.Equal(t, "billing-time-collect", out.Rule)
	ticket := h.ticket(t, out)
	assert.Equal(t, domain.DomainBilling, ticket.Domain)
	assert.Equal(t, "2024-03-06T10:30:00Z", ticket.Fields["callback_time_et"])
	assert.Equal(t, "Booked a billing callback at 2024-03-06T10:30:00Z. Your service request number is "+ticket.ID+". Does this work for you? (yes/no)", out.Reply)

	req, err := h.billing.GetByTicketID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillingIssueOverchargeDispute, req.IssueType)
	require.NotNil(t, req.FirstName)
	assert.Equal(t, "Stevie", *req.FirstName)

	out = h.say(t, sid, "yes")
	assert.Equal(t, "billing-acceptance", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionConfirm}, out.Actions)
	assertIdle(t, h.sessions.Get(sid))
	assert.Contains(t, h.labels(t, sid), domain.JournalAcceptBillingCallback)
}

func TestBillingDisputeUnparseableTimeUsesNextSlot(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		results: map[string]domain.SentimentResult{
			"I want to dispute this charge": {Emotions: []domain.EmotionScore{emo("neutral", 0.2)}, Intents: []string{domain.IntentBillingDispute}},
		},
		fallback: sentiment(emo("neutral", 0.3)),
	}
	h := newHarness(t, func(d *Dependencies) { d.Analyzer = analyzer })
	const sid = "s-slot"

	h.say(t, sid, "I want to dispute this charge")
	out := h.say(t, sid, "whenever is fine")
	ticket := h.ticket(t, out)
	assert.Equal(t, "2024-03-06T10:00:00-05:00", ticket.Fields["callback_time_et"])
	assert.Equal(t, 24*time.Hour, ticket.SLADeadline.Sub(ticket.CreatedAt))
}

func TestBillingCallbackRejectedEscalates(t *testing.T) {
	h := newHarness(t)
	const sid = "s-reject"

	h.say(t, sid, "I was overcharged")
	booked := h.say(t, sid, "3pm")
	assert.Equal(t, "2024-03-06T15:00:00Z", h.ticket(t, booked).Fields["callback_time_et"])

	out := h.say(t, sid, "no")
	assert.Equal(t, []domain.Action{domain.ActionEscalateAgent}, out.Actions)
	assert.Equal(t, "Understood. I’m connecting you to a live billing agent now (agent: agent_billing_csat_top). Your SR is "+*booked.TicketID+".", out.Reply)
	ticket := h.ticket(t, out)
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent_billing_csat_top", *ticket.AssignedAgentID)
	assertIdle(t, h.sessions.Get(sid))
	assert.Contains(t, h.labels(t, sid), domain.JournalRejectBillingCallback)
}

func TestBillingConductFeedback(t *testing.T) {
	h := newHarness(t)
	const sid = "s-conduct"

	out := h.sayWithAccount(t, sid, "I'm disappointed with billing", "ACCT-BOWIE")
	assert.Equal(t, "billing-disappointed", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionAskPriorSR}, out.Actions)

	out = h.say(t, sid, "it was sr-1a2b3c4d")
	assert.Equal(t, "Thanks. Please share what happened and how we can improve.", out.Reply)
	assert.Equal(t, "SR-1A2B3C4D", h.sessions.Get(sid).Context.PriorSR)

	out = h.say(t, sid, "the agent was rude and hung up on me")
	assert.Equal(t, "billing-prior-sr-feedback", out.Rule)
	assert.Equal(t, []domain.Action{domain.ActionAssignSupervisor}, out.Actions)
	ticket := h.ticket(t, out)
	assert.Equal(t, domain.TicketPriorityP1, ticket.Priority)
	assert.True(t, ticket.HasTag(domain.TagSupervisorReview))
	assert.Equal(t, true, ticket.Fields["conduct_flag"])
	prior, ok := ticket.Fields["prior_sr"].(*string)
	require.True(t, ok)
	assert.Equal(t, "SR-1A2B3C4D", *prior)

	req, err := h.billing.GetByTicketID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillingIssueServiceDissatisfaction, req.IssueType)
	require.NotNil(t, req.LastName)
	assert.Equal(t, "Bowie", *req.LastName)
	assertIdle(t, h.sessions.Get(sid))

	entries, err := h.journal.ListBySession(context.Background(), sid)
	require.NoError(t, err)
	var feedback *domain.JournalEntry
	for i := range entries {
		if entries[i].Label == "the agent was rude and hung up on me" {
			feedback = &entries[i]
		}
	}
	require.NotNil(t, feedback)
	require.NotNil(t, feedback.TicketID)
	assert.Equal(t, "SR-1A2B3C4D", *feedback.TicketID)
}

func TestBillingIssueRouterAndPlainFeedback(t *testing.T) {
	h := newHarness(t)
	const sid = "s-issue"

	h.say(t, sid, "billing")
	out := h.say(t, sid, "your customer service was awful")
	assert.Equal(t, "billing-issue-router", out.Rule)
	assert.Equal(t, domain.StageAwaitPriorSR, h.sessions.Get(sid).Stage)

	out = h.say(t, sid, "I don't have it")
	assert.Equal(t, "No problem. If you don’t have it handy, just tell me what happened.", out.Reply)
	assert.Equal(t, domain.StageAwaitBillingFeedback, h.sessions.Get(sid).Stage)

	out = h.say(t, sid, "the statement was confusing")
	assert.Equal(t, []domain.Action{domain.ActionStoreFeedback}, out.Actions)
	ticket := h.ticket(t, out)
	assert.Equal(t, domain.TicketPriorityP2, ticket.Priority)
	assert.Equal(t, false, ticket.Fields["conduct_flag"])
	assert.Nil(t, ticket.Fields["prior_sr"])

	req, err := h.billing.GetByTicketID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillingIssueServiceFeedback, req.IssueType)
	assert.Nil(t, req.FirstName)
	assertIdle(t, h.sessions.Get(sid))
}

func TestFallbackReply(t *testing.T) {
	analyzer := &scriptedAnalyzer{fallback: sentiment(emo("neutral", 0.3))}
	h := newHarness(t, func(d *Dependencies) { d.Analyzer = analyzer })

	out := h.say(t, "s-fallback", "hello there")
	assert.Equal(t, "fallback", out.Rule)
	assert.Equal(t, "I’m here to help with billing or outage status. Could you share a few more details?", out.Reply)
	assert.Empty(t, out.Actions)
	assert.NotNil(t, out.Actions)
	assert.Nil(t, out.TicketID)
	assert.True(t, h.sessions.Get("s-fallback").Stage.IsIdle())
}

func TestUnmatchedResumeFallsThroughToFresh(t *testing.T) {
	analyzer := &scriptedAnalyzer{fallback: sentiment(emo("neutral", 0.3))}
	h := newHarness(t, func(d *Dependencies) { d.Analyzer = analyzer })
	const sid = "s-stuck"

	h.say(t, sid, "billing")
	out := h.say(t, sid, "hmm")
	assert.Equal(t, "fallback", out.Rule)
	assert.Equal(t, domain.StageAwaitBillingIssue, h.sessions.Get(sid).Stage)
}

func TestJournalFailureDoesNotAbortTurn(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) { d.Journal = failingJournal{} })

	out := h.say(t, "s", "I see sparks near the pole")
	assert.Equal(t, "safety-fear", out.Rule)
	assert.NotNil(t, out.TicketID)
}

func TestTicketStoreFailureFailsTurn(t *testing.T) {
	h := newHarness(t)
	h = newHarness(t, func(d *Dependencies) { d.Tickets = failingTickets{Tickets: repoTickets{h.tickets}} })

	_, err := h.engine.Handle(context.Background(), domain.TurnInput{SessionID: "s", Text: "I see sparks near the pole"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety-fear")
}

func TestClassifierFailureDegradesToNeutral(t *testing.T) {
	broken := classifier.NewSafe(nil, zap.NewNop())
	h := newHarness(t, func(d *Dependencies) { d.Analyzer = broken })

	out := h.say(t, "s", "anything at all")
	assert.Equal(t, "billing-dispute", out.Rule)
}

func TestConcurrentTurnsSerializePerSession(t *testing.T) {
	h := newHarness(t)
	const sid = "s-race"
	h.say(t, sid, "outage")
	h.say(t, sid, "ACCT-COBAIN")

	var wg sync.WaitGroup
	results := make(chan domain.TurnOutcome, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.engine.Handle(context.Background(), domain.TurnInput{SessionID: sid, Text: "no"})
			if err == nil {
				results <- out
			}
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for out := range results {
		if out.Rule == "outage-account-details" {
			created++
		}
	}
	assert.Equal(t, 1, created)

	callbacks := 0
	for _, ticket := range h.allTickets(t) {
		if ticket.HasTag(domain.TagIVRCallbackOnRestore) {
			callbacks++
		}
	}
	assert.Equal(t, 1, callbacks)
}
