package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-router/internal/domain"
)

type postgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournalRepository persists the journal to the journal_entries table.
func NewPostgresJournalRepository(pool *pgxpool.Pool) JournalRepository {
	return &postgresJournal{pool: pool}
}

// Append relies on the caller holding the session turn lock; the unique
// (session_id, seq) index rejects any interleaved writer.
func (r *postgresJournal) Append(ctx context.Context, entry domain.JournalEntry) (domain.JournalEntry, error) {
	if entry.SessionID == "" {
		return domain.JournalEntry{}, errors.New("journal entry requires a session id")
	}
	payload, err := json.Marshal(copyPayload(entry.Payload))
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("encode journal payload: %w", err)
	}

	const query = `
        INSERT INTO journal_entries (session_id, ticket_id, seq, label, payload)
        SELECT $1::text, $2::text, COALESCE(MAX(seq), 0) + 1, $3::text, $4::jsonb
        FROM journal_entries WHERE session_id = $1
        RETURNING id::text, seq, created_at`
	if err := r.pool.QueryRow(ctx, query,
		entry.SessionID,
		entry.TicketID,
		entry.Label,
		payload,
	).Scan(&entry.ID, &entry.Seq, &entry.CreatedAt); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("append journal entry: %w", err)
	}
	return entry, nil
}

func (r *postgresJournal) ListBySession(ctx context.Context, sessionID string) ([]domain.JournalEntry, error) {
	const query = `
        SELECT id::text, session_id, ticket_id, seq, label, payload, created_at
        FROM journal_entries WHERE session_id = $1 ORDER BY seq`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.JournalEntry, 0)
	for rows.Next() {
		var (
			entry   domain.JournalEntry
			payload []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.TicketID,
			&entry.Seq,
			&entry.Label,
			&payload,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.Payload); err != nil {
				return nil, fmt.Errorf("decode journal payload: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
