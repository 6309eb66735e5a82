package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-router/internal/domain"
)

// JournalRepository is the append-only audit log of turns and flow events.
type JournalRepository interface {
	Append(ctx context.Context, entry domain.JournalEntry) (domain.JournalEntry, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.JournalEntry, error)
}

type memoryJournal struct {
	mu      sync.Mutex
	entries map[string][]domain.JournalEntry
	now     func() time.Time
}

// NewMemoryJournalRepository returns a process-local journal.
func NewMemoryJournalRepository(now func() time.Time) JournalRepository {
	if now == nil {
		now = time.Now
	}
	return &memoryJournal{entries: make(map[string][]domain.JournalEntry), now: now}
}

// Append assigns the entry id, the next per-session sequence number and
// the creation time.
func (j *memoryJournal) Append(ctx context.Context, entry domain.JournalEntry) (domain.JournalEntry, error) {
	if entry.SessionID == "" {
		return domain.JournalEntry{}, errors.New("journal entry requires a session id")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	list := j.entries[entry.SessionID]
	entry.ID = uuid.NewString()
	entry.Seq = int64(len(list)) + 1
	entry.CreatedAt = j.now().UTC()
	entry.Payload = copyPayload(entry.Payload)
	j.entries[entry.SessionID] = append(list, entry)
	return entry, nil
}

func (j *memoryJournal) ListBySession(ctx context.Context, sessionID string) ([]domain.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	list := j.entries[sessionID]
	out := make([]domain.JournalEntry, len(list))
	copy(out, list)
	return out, nil
}

func copyPayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
