package repo

import (
	"context"
	"sync"
	"time"

	"github.com/ebaypulse/server/internal/views/model"
)

type memoryEntry struct {
	session *model.Session
	touched time.Time
}

// MemorySessionRepository keeps sessions in process memory. Idle sessions
// expire after ttl, matching the Redis implementation.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(id).Clone(), nil
}

func (r *MemorySessionRepository) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.load(id).Clone()
	if err := fn(s); err != nil {
		return nil, err
	}
	r.sessions[id] = &memoryEntry{session: s, touched: r.now()}
	return s.Clone(), nil
}

// load returns the stored session or a fresh one. Callers hold r.mu.
func (r *MemorySessionRepository) load(id string) *model.Session {
	e, ok := r.sessions[id]
	if !ok {
		return model.NewSession(id)
	}
	if r.ttl > 0 && r.now().Sub(e.touched) > r.ttl {
		delete(r.sessions, id)
		return model.NewSession(id)
	}
	return e.session
}

// Sweep drops expired sessions.
func (r *MemorySessionRepository) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.sessions {
		if r.now().Sub(e.touched) > r.ttl {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (r *MemorySessionRepository) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

var _ model.SessionRepository = (*MemorySessionRepository)(nil)
