package push

import (
	"context"
	"errors"
	"sort"
	"sync"

	inats "github.com/hubideas/hubideas/internal/nats"
)

type memRepo struct {
	mu      sync.Mutex
	subs    map[string]Subscription
	listErr error
	deleted []string
}

func newMemRepo(endpoints ...string) *memRepo {
	r := &memRepo{subs: map[string]Subscription{}}
	for _, e := range endpoints {
		r.subs[e] = Subscription{Endpoint: e, P256dh: "p-" + e, Auth: "a-" + e}
	}
	return r
}

func (r *memRepo) Upsert(_ context.Context, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.Endpoint] = *sub
	return nil
}

func (r *memRepo) List(context.Context) ([]Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, endpoint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[endpoint]; !ok {
		return false, nil
	}
	delete(r.subs, endpoint)
	r.deleted = append(r.deleted, endpoint)
	return true, nil
}

func (r *memRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.subs)), nil
}

// scriptedSender fails endpoints listed in errs and records every payload.
type scriptedSender struct {
	mu       sync.Mutex
	errs     map[string]error
	payloads map[string][]byte
}

func newScriptedSender(errs map[string]error) *scriptedSender {
	return &scriptedSender{errs: errs, payloads: map[string][]byte{}}
}

func (s *scriptedSender) Send(_ context.Context, sub Subscription, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[sub.Endpoint] = payload
	return s.errs[sub.Endpoint]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []inats.AuditEvent
}

func (p *recordingPublisher) PublishAuditEvent(_ context.Context, e inats.AuditEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

var errBoom = errors.New("boom")
