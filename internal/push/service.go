package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hubideas/hubideas/internal/metrics"
	inats "github.com/hubideas/hubideas/internal/nats"
)

const defaultConcurrency = 8

type Service struct {
	repo        Repository
	sender      Sender
	events      inats.AuditPublisher
	concurrency int
}

func NewService(repo Repository, sender Sender, events inats.AuditPublisher) *Service {
	return &Service{repo: repo, sender: sender, events: events, concurrency: defaultConcurrency}
}

// Subscribe stores or refreshes a subscription keyed by its endpoint.
func (s *Service) Subscribe(ctx context.Context, req *SubscribeRequest) (*Subscription, error) {
	sub := &Subscription{Endpoint: req.Endpoint, P256dh: req.Keys.P256dh, Auth: req.Keys.Auth}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) Unsubscribe(ctx context.Context, endpoint string) (bool, error) {
	return s.repo.Delete(ctx, endpoint)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Broadcast sends n to every stored subscription. Subscriptions have no
// owner, so every registered device receives every notification.
// Endpoints reported gone are deleted. Individual delivery failures never
// fail the broadcast; only listing does.
func (s *Service) Broadcast(ctx context.Context, n Notification) (*BroadcastResult, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding notification: %w", err)
	}

	subs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		res BroadcastResult
		g   errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, sub := range subs {
		g.Go(func() error {
			err := s.sender.Send(ctx, sub, payload)
			removed := false
			switch {
			case err == nil:
				metrics.PushDeliveriesTotal.WithLabelValues("sent").Inc()
			case errors.Is(err, ErrSubscriptionGone):
				metrics.PushDeliveriesTotal.WithLabelValues("gone").Inc()
				removed = s.remove(ctx, sub.Endpoint)
			default:
				metrics.PushDeliveriesTotal.WithLabelValues("failed").Inc()
				slog.Warn("push delivery failed", "endpoint", sub.Endpoint, "error", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				res.Sent++
				return nil
			}
			res.Failed++
			if removed {
				res.Removed++
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("push broadcast finished",
		"subscriptions", len(subs),
		"sent", res.Sent,
		"failed", res.Failed,
		"removed", res.Removed,
	)
	return &res, nil
}

func (s *Service) remove(ctx context.Context, endpoint string) bool {
	deleted, err := s.repo.Delete(ctx, endpoint)
	if err != nil {
		slog.Error("deleting expired push subscription", "endpoint", endpoint, "error", err)
		return false
	}
	if deleted {
		inats.Emit(ctx, s.events, inats.AuditEvent{
			EventType:    inats.EventSubscriptionRemoved,
			ResourceType: "push_subscription",
			ResourceID:   endpoint,
			Details:      "endpoint reported gone by push service",
		})
	}
	return deleted
}
