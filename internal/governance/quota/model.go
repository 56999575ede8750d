package quota

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the user has no quota row.
	ErrNotFound = errors.New("quota: user not found")
	// ErrQuotaExceeded is returned by Require when the monthly allowance is used up.
	ErrQuotaExceeded = errors.New("quota: monthly token limit reached")
	// ErrRateLimited is returned by Require when the per-minute burst limit is hit.
	ErrRateLimited = errors.New("quota: too many requests per minute")
)

// Quota holds the quota columns of a users row.
type Quota struct {
	UserID         uuid.UUID
	TokenLimit     int64
	TokensUsed     int64
	LastTokenReset time.Time
}

// Permit is the outcome of a quota check.
type Permit struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
}

// Status is the API response showing current quota usage and limits.
type Status struct {
	TokenLimit          int64     `json:"token_limit"`
	TokensUsed          int64     `json:"tokens_used"`
	Remaining           int64     `json:"remaining"`
	PeriodStart         time.Time `json:"period_start"`
	NextReset           time.Time `json:"next_reset"`
	RequestsThisMinute  int       `json:"requests_this_minute"`
	RequestsLimitMinute int       `json:"requests_limit_minute"`
}

// sameMonth reports whether t falls in the same calendar month and year as
// now, evaluated in now's location.
func sameMonth(t, now time.Time) bool {
	t = t.In(now.Location())
	return t.Year() == now.Year() && t.Month() == now.Month()
}

// monthStart returns midnight on the first day of now's month.
func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
