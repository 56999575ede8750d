package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hubideas/hubideas/internal/metrics"
	inats "github.com/hubideas/hubideas/internal/nats"
)

// MinuteLimiter is the per-minute burst guard that runs ahead of the monthly quota.
type MinuteLimiter interface {
	Allow(ctx context.Context, userID uuid.UUID, limit int) (bool, error)
	Usage(ctx context.Context, userID uuid.UUID) (int, error)
}

// Service is the AI usage governor. It enforces a monthly token allowance
// per user that rolls over on calendar month boundaries.
type Service struct {
	store        Store
	limiter      MinuteLimiter
	events       inats.AuditPublisher
	maxPerMinute int
	now          func() time.Time
}

// NewService creates a new quota Service. limiter and events may be nil.
func NewService(store Store, limiter MinuteLimiter, events inats.AuditPublisher, maxPerMinute int) *Service {
	return &Service{
		store:        store,
		limiter:      limiter,
		events:       events,
		maxPerMinute: maxPerMinute,
		now:          time.Now,
	}
}

// WithClock replaces the time source. The clock's location decides where
// month boundaries fall.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CheckAndReset reports whether the user may make another AI request.
// When the stored reset lies in an earlier calendar month the usage is
// zeroed first and the full limit is granted. Within the same month the
// call performs no writes.
func (s *Service) CheckAndReset(ctx context.Context, userID uuid.UUID) (Permit, error) {
	q, err := s.store.Get(ctx, userID)
	if err != nil {
		return Permit{}, err
	}

	now := s.now()
	if !sameMonth(q.LastTokenReset, now) {
		won, err := s.store.Reset(ctx, userID, q.LastTokenReset, now)
		if err != nil {
			return Permit{}, err
		}
		if won {
			metrics.QuotaResetsTotal.Inc()
			slog.Debug("quota: monthly reset", "user_id", userID, "previous_reset", q.LastTokenReset)
			inats.Emit(ctx, s.events, inats.AuditEvent{
				OwnerUserID:  &userID,
				EventType:    inats.EventQuotaReset,
				ResourceType: "user",
				ResourceID:   userID.String(),
				Details:      fmt.Sprintf("monthly usage of %d tokens reset", q.TokensUsed),
			})
			return Permit{Allowed: true, Remaining: q.TokenLimit}, nil
		}

		// Another request reset first; evaluate the fresh row.
		q, err = s.store.Get(ctx, userID)
		if err != nil {
			return Permit{}, err
		}
	}

	remaining := q.TokenLimit - q.TokensUsed
	return Permit{Allowed: remaining > 0, Remaining: max(remaining, 0)}, nil
}

// RecordUsage adds the provider-reported token count to the user's usage.
// Non-positive counts are ignored.
func (s *Service) RecordUsage(ctx context.Context, userID uuid.UUID, tokens int64) error {
	if tokens <= 0 {
		return nil
	}
	if err := s.store.IncrementUsage(ctx, userID, tokens); err != nil {
		return err
	}
	metrics.AITokensRecordedTotal.Add(float64(tokens))
	return nil
}

// Require gates an interactive AI request: the per-minute burst limiter
// first (failing open on Redis errors), then the monthly allowance.
func (s *Service) Require(ctx context.Context, userID uuid.UUID) (Permit, error) {
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, userID, s.maxPerMinute)
		if err != nil {
			slog.Warn("quota: rate limiter check failed, allowing request", "error", err)
		} else if !allowed {
			metrics.QuotaRejectionsTotal.WithLabelValues("rate_limit_minute").Inc()
			return Permit{}, ErrRateLimited
		}
	}

	permit, err := s.CheckAndReset(ctx, userID)
	if err != nil {
		return Permit{}, err
	}
	if !permit.Allowed {
		metrics.QuotaRejectionsTotal.WithLabelValues("monthly_tokens").Inc()
		inats.Emit(ctx, s.events, inats.AuditEvent{
			OwnerUserID:  &userID,
			EventType:    inats.EventQuotaExceeded,
			Severity:     inats.SeverityWarn,
			ResourceType: "user",
			ResourceID:   userID.String(),
			Details:      "monthly token limit reached",
		})
		return permit, ErrQuotaExceeded
	}
	return permit, nil
}

// RecordOrLog records usage and only logs failures. Generation already
// happened, so a bookkeeping error must not fail the response.
func (s *Service) RecordOrLog(ctx context.Context, userID uuid.UUID, tokens int64) {
	if err := s.RecordUsage(ctx, userID, tokens); err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrNotFound) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "quota: recording usage", "error", err, "user_id", userID, "tokens", tokens)
	}
}

// GetStatus returns the user's current quota status for API display.
// It applies a pending rollover so the numbers match what the next
// request would see.
func (s *Service) GetStatus(ctx context.Context, userID uuid.UUID) (*Status, error) {
	if _, err := s.CheckAndReset(ctx, userID); err != nil {
		return nil, err
	}

	q, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting quota: %w", err)
	}

	now := s.now()
	start := monthStart(now)
	status := &Status{
		TokenLimit:          q.TokenLimit,
		TokensUsed:          q.TokensUsed,
		Remaining:           max(q.TokenLimit-q.TokensUsed, 0),
		PeriodStart:         start,
		NextReset:           start.AddDate(0, 1, 0),
		RequestsLimitMinute: s.maxPerMinute,
	}

	if s.limiter != nil {
		used, err := s.limiter.Usage(ctx, userID)
		if err != nil {
			slog.Warn("quota: failed to get minute usage", "error", err)
		} else {
			status.RequestsThisMinute = used
		}
	}

	return status, nil
}
