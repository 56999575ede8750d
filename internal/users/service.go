package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	inats "github.com/hubideas/hubideas/internal/nats"
)

type Service struct {
	repo              Repository
	events            inats.AuditPublisher
	defaultTokenLimit int64
	initialAdminEmail string
}

func NewService(repo Repository, events inats.AuditPublisher, defaultTokenLimit int64, initialAdminEmail string) *Service {
	return &Service{
		repo:              repo,
		events:            events,
		defaultTokenLimit: defaultTokenLimit,
		initialAdminEmail: NormalizeEmail(initialAdminEmail),
	}
}

// NormalizeEmail lower-cases and trims an address and folds googlemail.com
// into gmail.com so both spellings map to one account.
func NormalizeEmail(email string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	if local, ok := strings.CutSuffix(e, "@googlemail.com"); ok {
		e = local + "@gmail.com"
	}
	return e
}

// Create registers a new account. New users wait for approval, except the
// configured initial admin who is approved immediately.
func (s *Service) Create(ctx context.Context, email, name, passwordHash string) (*User, error) {
	now := time.Now()
	user := &User{
		ID:             uuid.New(),
		Email:          NormalizeEmail(email),
		Name:           strings.TrimSpace(name),
		PasswordHash:   passwordHash,
		Role:           RoleUser,
		Status:         StatusWaiting,
		AITokenLimit:   s.defaultTokenLimit,
		LastTokenReset: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if s.initialAdminEmail != "" && user.Email == s.initialAdminEmail {
		user.Role = RoleAdmin
		user.Status = StatusApproved
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, NormalizeEmail(email))
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) SetStatus(ctx context.Context, actor, id uuid.UUID, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	inats.Emit(ctx, s.events, inats.AuditEvent{
		OwnerUserID:  &actor,
		EventType:    inats.EventUserStatusChanged,
		ResourceType: "user",
		ResourceID:   id.String(),
		Details:      "status set to " + string(status),
	})
	return nil
}

// ToggleRole flips a user between USER and ADMIN and returns the new role.
func (s *Service) ToggleRole(ctx context.Context, id uuid.UUID) (Role, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrNotFound
	}
	next := RoleAdmin
	if user.Role == RoleAdmin {
		next = RoleUser
	}
	if err := s.repo.UpdateRole(ctx, id, next); err != nil {
		return "", err
	}
	return next, nil
}

func (s *Service) SetTokenLimit(ctx context.Context, actor, id uuid.UUID, limit int64) error {
	if limit < 0 {
		return fmt.Errorf("token limit must be >= 0, got %d", limit)
	}
	if err := s.repo.SetTokenLimit(ctx, id, limit); err != nil {
		return err
	}
	inats.Emit(ctx, s.events, inats.AuditEvent{
		OwnerUserID:  &actor,
		EventType:    inats.EventTokenLimitChanged,
		ResourceType: "user",
		ResourceID:   id.String(),
		Details:      fmt.Sprintf("token limit set to %d", limit),
	})
	return nil
}
