package agent

import "github.com/spec-kit/support-router/internal/config"

// Queue names an escalation target.
type Queue string

const (
	QueueOutage       Queue = "OUTAGE"
	QueueCSREmergency Queue = "CSR_EMERGENCY"
	QueueBilling      Queue = "BILLING"
)

// Selector picks an agent for an escalation queue.
type Selector interface {
	Select(queue Queue) (string, error)
}

// TopCSATSelector routes every queue to its fixed top-rated agent. Queues
// it does not know fall through to the billing agent.
type TopCSATSelector struct {
	outage    string
	billing   string
	emergency string
}

// NewTopCSATSelector reads agent ids from the flow configuration.
func NewTopCSATSelector(cfg config.FlowConfig) *TopCSATSelector {
	return &TopCSATSelector{
		outage:    cfg.AgentOutageTop,
		billing:   cfg.AgentBillingTop,
		emergency: cfg.AgentCSREmergency,
	}
}

func (s *TopCSATSelector) Select(queue Queue) (string, error) {
	switch queue {
	case QueueOutage:
		return s.outage, nil
	case QueueCSREmergency:
		return s.emergency, nil
	default:
		return s.billing, nil
	}
}
