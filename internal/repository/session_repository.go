package repository

import (
	"sync"
	"time"

	"github.com/spec-kit/support-router/internal/domain"
)

// SessionRepository holds per-conversation flow state.
type SessionRepository interface {
	Get(id string) domain.Session
	SetStage(id string, stage domain.Stage, patch domain.SessionContext) domain.Session
	Reset(id string) domain.Session
	// Lock serializes turns on one session. The returned func releases it.
	Lock(id string) func()
}

type sessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	locks    map[string]*sync.Mutex
	now      func() time.Time
}

// NewSessionRepository returns an in-memory session store.
func NewSessionRepository(now func() time.Time) SessionRepository {
	if now == nil {
		now = time.Now
	}
	return &sessionRepository{
		sessions: make(map[string]domain.Session),
		locks:    make(map[string]*sync.Mutex),
		now:      now,
	}
}

// Get returns the session, creating an idle one for unseen ids.
func (r *sessionRepository) Get(id string) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(id)
}

// SetStage overwrites the stage and merges patch into the context.
func (r *sessionRepository) SetStage(id string, stage domain.Stage, patch domain.SessionContext) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.load(id)
	sess.Stage = stage
	sess.Context = sess.Context.Merge(patch)
	sess.UpdatedAt = r.now().UTC()
	r.sessions[id] = sess
	return copySession(sess)
}

// Reset returns the session to idle with an empty context.
func (r *sessionRepository) Reset(id string) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := domain.Session{ID: id, Stage: domain.StageIdle, UpdatedAt: r.now().UTC()}
	r.sessions[id] = sess
	return sess
}

func (r *sessionRepository) Lock(id string) func() {
	r.mu.Lock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// load must be called with r.mu held.
func (r *sessionRepository) load(id string) domain.Session {
	sess, ok := r.sessions[id]
	if !ok {
		sess = domain.Session{ID: id, Stage: domain.StageIdle, UpdatedAt: r.now().UTC()}
		r.sessions[id] = sess
	}
	return copySession(sess)
}

func copySession(s domain.Session) domain.Session {
	if s.Context.OMS != nil {
		oms := *s.Context.OMS
		s.Context.OMS = &oms
	}
	return s
}
