package flow

import (
	"context"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/textmatch"
)

type menuRoute struct{ *kit }

func (menuRoute) Name() string { return "menu-route" }

func (r menuRoute) Apply(_ context.Context, turn Turn) (Result, error) {
	switch {
	case textmatch.EqualsAny(turn.Text, r.policy.MenuBillingTokens):
		r.Sessions.SetStage(turn.SessionID, domain.StageAwaitBillingIssue, domain.SessionContext{})
		return commit("Great—what billing issue are you experiencing (e.g., overcharged, refund, payment problem)?", "",
			domain.ActionPromptBillingIssue)
	case textmatch.EqualsAny(turn.Text, r.policy.MenuOutageTokens):
		r.Sessions.SetStage(turn.SessionID, domain.StageAwaitAccountOutage, domain.SessionContext{})
		return commit("I can help with outage status. Please share your account number to look up your ETR.", "",
			domain.ActionAskAccount)
	}
	return decline()
}

type fallback struct{}

func (fallback) Name() string { return "fallback" }

func (fallback) Apply(context.Context, Turn) (Result, error) {
	return commit("I’m here to help with billing or outage status. Could you share a few more details?", "")
}
