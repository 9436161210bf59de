package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// MemoryQueue - Queue в памяти для STORE_DRIVER=memory и тестов.
type MemoryQueue struct {
	mu      sync.Mutex
	seq     int64
	records map[uuid.UUID]*Record
	idents  map[string]uuid.UUID
}

var _ Queue = (*MemoryQueue)(nil)

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		records: make(map[uuid.UUID]*Record),
		idents:  make(map[string]uuid.UUID),
	}
}

func clone(r *Record) *Record {
	cp := *r
	if r.LockedUntil != nil {
		t := *r.LockedUntil
		cp.LockedUntil = &t
	}
	return &cp
}

func (q *MemoryQueue) Enqueue(_ context.Context, rec *Record) (*Record, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if id, ok := q.idents[rec.Ident()]; ok {
		return clone(q.records[id]), true, nil
	}
	q.seq++
	stored := clone(rec)
	stored.Seq = q.seq
	q.records[stored.ID] = stored
	q.idents[stored.Ident()] = stored.ID
	return clone(stored), false, nil
}

func leaseAlive(r *Record, now time.Time) bool {
	return r.Status == StatusProcessing && r.LockedUntil != nil && r.LockedUntil.After(now)
}

func (q *MemoryQueue) Claim(_ context.Context, now time.Time, limit int, lease time.Duration) ([]*Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	busy := make(map[string]bool)
	var candidates []*Record
	for _, r := range q.records {
		if leaseAlive(r, now) {
			busy[r.EntityKey] = true
			continue
		}
		ready := r.Status == StatusReady && !r.NextAttemptAt.After(now)
		expired := r.Status == StatusProcessing
		if ready || expired {
			candidates = append(candidates, r)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Seq < candidates[j].Seq })

	out := make([]*Record, 0, limit)
	until := now.Add(lease)
	for _, r := range candidates {
		if len(out) >= limit {
			break
		}
		if busy[r.EntityKey] {
			continue
		}
		busy[r.EntityKey] = true
		r.Status = StatusProcessing
		r.Attempts++
		r.LockedUntil = &until
		r.UpdatedAt = now
		out = append(out, clone(r))
	}
	return out, nil
}

func (q *MemoryQueue) get(id uuid.UUID) (*Record, error) {
	r, ok := q.records[id]
	if !ok {
		return nil, apperror.ErrEventNotFound
	}
	return r, nil
}

func (q *MemoryQueue) Complete(_ context.Context, id uuid.UUID, now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, err := q.get(id)
	if err != nil {
		return err
	}
	r.Status = StatusDone
	r.LockedUntil = nil
	r.UpdatedAt = now
	return nil
}

func (q *MemoryQueue) Retry(_ context.Context, id uuid.UUID, nextAt time.Time, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, err := q.get(id)
	if err != nil {
		return err
	}
	r.Status = StatusReady
	r.NextAttemptAt = nextAt
	r.LockedUntil = nil
	r.LastError, r.LastErrorCode = errorFields(cause)
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (q *MemoryQueue) DeadLetter(_ context.Context, id uuid.UUID, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, err := q.get(id)
	if err != nil {
		return err
	}
	r.Status = StatusDead
	r.LockedUntil = nil
	r.LastError, r.LastErrorCode = errorFields(cause)
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (q *MemoryQueue) ListDead(_ context.Context, limit, offset int) ([]*Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dead []*Record
	for _, r := range q.records {
		if r.Status == StatusDead {
			dead = append(dead, clone(r))
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].Seq < dead[j].Seq })
	if offset >= len(dead) {
		return []*Record{}, nil
	}
	dead = dead[offset:]
	if limit > 0 && len(dead) > limit {
		dead = dead[:limit]
	}
	return dead, nil
}

func (q *MemoryQueue) Replay(_ context.Context, id uuid.UUID, now time.Time) (*Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, err := q.get(id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusDead {
		return nil, notDead(id)
	}
	r.Status = StatusReady
	r.Attempts = 0
	r.NextAttemptAt = now
	r.UpdatedAt = now
	return clone(r), nil
}

func (q *MemoryQueue) Depth(_ context.Context) (map[Status]int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[Status]int, 4)
	for _, s := range AllStatuses() {
		out[s] = 0
	}
	for _, r := range q.records {
		out[r.Status]++
	}
	return out, nil
}
