package resurfacing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hubideas/hubideas/internal/ai"
	"github.com/hubideas/hubideas/internal/governance/quota"
	"github.com/hubideas/hubideas/internal/projects"
	"github.com/hubideas/hubideas/internal/push"
)

type fakeStore struct {
	candidates []projects.Project
	notes      map[uuid.UUID][]string
	findErr    error
	markErr    error

	findCalls      int
	openedBefore   time.Time
	remindedBefore time.Time
	reminded       map[uuid.UUID]time.Time
}

func newFakeStore(candidates ...projects.Project) *fakeStore {
	return &fakeStore{
		candidates: candidates,
		notes:      map[uuid.UUID][]string{},
		reminded:   map[uuid.UUID]time.Time{},
	}
}

func (f *fakeStore) FindResurfacingCandidates(_ context.Context, openedBefore, remindedBefore time.Time) ([]projects.Project, error) {
	f.findCalls++
	f.openedBefore, f.remindedBefore = openedBefore, remindedBefore
	return f.candidates, f.findErr
}

func (f *fakeStore) ListNoteContents(_ context.Context, id uuid.UUID) ([]string, error) {
	return f.notes[id], nil
}

func (f *fakeStore) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.reminded[id] = at
	return nil
}

type fakeGate struct {
	permit   quota.Permit
	err      error
	checks   int
	recorded map[uuid.UUID]int64
}

func allowGate() *fakeGate {
	return &fakeGate{permit: quota.Permit{Allowed: true, Remaining: 1000}, recorded: map[uuid.UUID]int64{}}
}

func (g *fakeGate) CheckAndReset(context.Context, uuid.UUID) (quota.Permit, error) {
	g.checks++
	return g.permit, g.err
}

func (g *fakeGate) RecordOrLog(_ context.Context, id uuid.UUID, tokens int64) {
	g.recorded[id] += tokens
}

type fakeGenerator struct {
	result *ai.Result
	err    error
	reqs   []ai.Request
}

func (g *fakeGenerator) Generate(_ context.Context, req ai.Request) (*ai.Result, error) {
	g.reqs = append(g.reqs, req)
	return g.result, g.err
}

func (g *fakeGenerator) Stream(context.Context, ai.Request, func(string) error) (*ai.Result, error) {
	panic("not used")
}

type fakeBroadcaster struct {
	result *push.BroadcastResult
	err    error
	sent   []push.Notification
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, n push.Notification) (*push.BroadcastResult, error) {
	b.sent = append(b.sent, n)
	if b.err != nil {
		return nil, b.err
	}
	if b.result == nil {
		return &push.BroadcastResult{}, nil
	}
	return b.result, nil
}

// seqRand replays fixed values; once exhausted it returns zero.
type seqRand struct {
	floats []float64
	ints   []int
}

func (r *seqRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *seqRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(context.Context) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
	}, true, nil
}
