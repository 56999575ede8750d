// Package resurfacing reminds users of one stale project per trigger.
package resurfacing

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/hubideas/hubideas/internal/ai"
	"github.com/hubideas/hubideas/internal/governance/quota"
	"github.com/hubideas/hubideas/internal/metrics"
	inats "github.com/hubideas/hubideas/internal/nats"
	"github.com/hubideas/hubideas/internal/projects"
	"github.com/hubideas/hubideas/internal/push"
)

// ErrUnauthorized is returned by RunPass when the trigger secret does not match.
var ErrUnauthorized = errors.New("invalid trigger secret")

var (
	errOwnerMissing = errors.New("project owner missing")
	errEmptyMessage = errors.New("generated message is empty")
)

// ProjectStore is the slice of the project repository a pass needs.
type ProjectStore interface {
	FindResurfacingCandidates(ctx context.Context, openedBefore, remindedBefore time.Time) ([]projects.Project, error)
	ListNoteContents(ctx context.Context, projectID uuid.UUID) ([]string, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

// QuotaGate decides whether a project owner may spend tokens on an AI
// reminder and charges what the reminder used.
type QuotaGate interface {
	CheckAndReset(ctx context.Context, userID uuid.UUID) (quota.Permit, error)
	RecordOrLog(ctx context.Context, userID uuid.UUID, tokens int64)
}

// Broadcaster delivers a notification to every stored push subscription.
type Broadcaster interface {
	Broadcast(ctx context.Context, n push.Notification) (*push.BroadcastResult, error)
}

// Rand is satisfied by *rand.Rand from math/rand/v2.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Scheduler picks one stale project per pass and pushes a reminder for it.
// A Locker, when set, keeps concurrent triggers from overlapping.
type Scheduler struct {
	secret    string
	projects  ProjectStore
	quota     QuotaGate
	generator ai.Generator
	push      Broadcaster
	locker    Locker
	events    inats.AuditPublisher
	aiTimeout time.Duration
	rng       Rand
	now       func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocker serializes passes across instances.
func WithLocker(l Locker) Option { return func(s *Scheduler) { s.locker = l } }

// WithEvents publishes an audit event for every delivered reminder.
func WithEvents(p inats.AuditPublisher) Option { return func(s *Scheduler) { s.events = p } }

// WithAITimeout bounds message generation. The default is 20s.
func WithAITimeout(d time.Duration) Option { return func(s *Scheduler) { s.aiTimeout = d } }

// WithRand replaces the source used for the gate and the candidate pick.
func WithRand(r Rand) Option { return func(s *Scheduler) { s.rng = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

// NewScheduler returns a Scheduler that accepts triggers carrying secret.
func NewScheduler(secret string, store ProjectStore, gate QuotaGate, gen ai.Generator, b Broadcaster, opts ...Option) *Scheduler {
	s := &Scheduler{
		secret:    secret,
		projects:  store,
		quota:     gate,
		generator: gen,
		push:      b,
		aiTimeout: 20 * time.Second,
		rng:       globalRand{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunPass performs one resurfacing pass. force bypasses the random gate.
// The returned Result is valid whenever err is nil, and also when the
// final bookkeeping write fails after delivery.
func (s *Scheduler) RunPass(ctx context.Context, secret string, force bool) (*Result, error) {
	if s.secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.secret)) != 1 {
		metrics.ResurfacingPassesTotal.WithLabelValues("unauthorized").Inc()
		return nil, ErrUnauthorized
	}

	if !force && s.rng.Float64() > fireProbability {
		metrics.ResurfacingPassesTotal.WithLabelValues("skipped").Inc()
		return &Result{Outcome: OutcomeSkipped, Reason: "Random skip"}, nil
	}

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx)
		switch {
		case err != nil:
			slog.Warn("resurfacing: lock unavailable, running unlocked", "error", err)
		case !ok:
			metrics.ResurfacingPassesTotal.WithLabelValues("busy").Inc()
			return &Result{Outcome: OutcomeSkipped, Reason: "Pass already running"}, nil
		default:
			defer unlock()
		}
	}

	startedAt := s.now()
	candidates, err := s.projects.FindResurfacingCandidates(ctx, startedAt.Add(-staleAfter), startedAt.Add(-cooldown))
	if err != nil {
		metrics.ResurfacingPassesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("finding candidates: %w", err)
	}
	if len(candidates) == 0 {
		metrics.ResurfacingPassesTotal.WithLabelValues("no_candidates").Inc()
		return &Result{Outcome: OutcomeNoCandidates, Message: "No candidate projects found for resurfacing"}, nil
	}

	project := candidates[s.rng.IntN(len(candidates))]
	msg := s.compose(ctx, project)

	delivery := &push.BroadcastResult{}
	if res, err := s.push.Broadcast(ctx, push.Notification{
		Title: notificationTitle,
		Body:  msg.Body(),
		URL:   "/project/" + project.ID.String(),
	}); err != nil {
		slog.Error("resurfacing: broadcasting reminder", "error", err, "project_id", project.ID)
	} else {
		delivery = res
	}

	_, aiUsed := msg.(AIMessage)
	result := &Result{
		Outcome:     OutcomeSent,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		SentTo:      delivery.Sent,
		Failed:      delivery.Failed,
		Removed:     delivery.Removed,
		AIUsed:      aiUsed,
	}

	// Always stamp, even when nothing was delivered, so a failing project
	// waits out the cooldown instead of being retried every trigger.
	if err := s.projects.MarkReminded(ctx, project.ID, s.now()); err != nil {
		metrics.ResurfacingPassesTotal.WithLabelValues("error").Inc()
		return result, fmt.Errorf("marking project reminded: %w", err)
	}

	metrics.ResurfacingPassesTotal.WithLabelValues("sent").Inc()
	s.emitSent(ctx, project, result)
	slog.Info("resurfacing pass finished",
		"project_id", project.ID,
		"candidates", len(candidates),
		"sent", result.SentTo,
		"failed", result.Failed,
		"ai_used", aiUsed,
	)
	return result, nil
}

// compose never returns an empty message. Any failure on the AI path
// yields a FallbackMessage.
func (s *Scheduler) compose(ctx context.Context, p projects.Project) Message {
	m, err := s.generate(ctx, p)
	if err == nil {
		return m
	}
	slog.Info("resurfacing: using fallback message", "project_id", p.ID, "reason", err)
	tmpl := fallbackTemplates[s.rng.IntN(len(fallbackTemplates))]
	return FallbackMessage{Text: fillTemplate(tmpl, p.Name), Cause: err}
}

func (s *Scheduler) generate(ctx context.Context, p projects.Project) (AIMessage, error) {
	if p.OwnerID == nil {
		return AIMessage{}, errOwnerMissing
	}
	ownerID := *p.OwnerID

	permit, err := s.quota.CheckAndReset(ctx, ownerID)
	if err != nil {
		if errors.Is(err, quota.ErrNotFound) {
			return AIMessage{}, errOwnerMissing
		}
		return AIMessage{}, err
	}
	if !permit.Allowed {
		return AIMessage{}, quota.ErrQuotaExceeded
	}

	notes, err := s.projects.ListNoteContents(ctx, p.ID)
	if err != nil {
		return AIMessage{}, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()
	res, err := s.generator.Generate(genCtx, ai.ResurfacingRequest(p.Name, notes))
	if err != nil {
		return AIMessage{}, err
	}
	s.quota.RecordOrLog(ctx, ownerID, res.Tokens)

	if res.Text == "" {
		return AIMessage{}, errEmptyMessage
	}
	return AIMessage{Text: res.Text, Tokens: res.Tokens}, nil
}

func (s *Scheduler) emitSent(ctx context.Context, p projects.Project, r *Result) {
	details, _ := json.Marshal(map[string]any{
		"project_name": p.Name,
		"sent":         r.SentTo,
		"failed":       r.Failed,
		"removed":      r.Removed,
		"ai_used":      r.AIUsed,
	})
	inats.Emit(ctx, s.events, inats.AuditEvent{
		OwnerUserID:  p.OwnerID,
		EventType:    inats.EventResurfacingSent,
		ResourceType: "project",
		ResourceID:   p.ID.String(),
		Details:      string(details),
	})
}
