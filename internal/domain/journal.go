package domain

import "time"

// Journal labels for terminal and snapshot events.
const (
	JournalTurn                    = "TURN"
	JournalSnapshotOutageAccept    = "SNAPSHOT_OUTAGE_ACCEPT_STEP"
	JournalAcceptOutageSolution    = "ACCEPT_OUTAGE_SOLUTION"
	JournalDeclineOutageSolution   = "DECLINE_OUTAGE_SOLUTION"
	JournalSnapshotBillingAccept   = "SNAPSHOT_BILLING_ACCEPT_STEP"
	JournalAcceptBillingCallback   = "ACCEPT_BILLING_CALLBACK"
	JournalRejectBillingCallback   = "REJECT_BILLING_CALLBACK"
	JournalAngryProfanityCapture   = "ANGRY_PROFANITY_CAPTURE"
	JournalEmergencyTextCapture    = "EMERGENCY_TEXT_CAPTURE"
	JournalEmergencyCapture        = "EMERGENCY_CAPTURE"
	JournalEmergencyConfirmCapture = "EMERGENCY_CONFIRM_CAPTURE"
)

// JournalEntry is an immutable audit record. Seq is monotonic within a session.
type JournalEntry struct {
	ID        string
	SessionID string
	TicketID  *string
	Seq       int64
	Label     string
	Payload   map[string]any
	CreatedAt time.Time
}
