package push

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSubscriptionGone means the push service reported the endpoint as
	// expired (404 or 410).
	ErrSubscriptionGone = errors.New("push subscription gone")
	ErrNotConfigured    = errors.New("push is not configured")
)

// Subscription is a browser push endpoint with its key material.
// Subscriptions are not bound to a user.
type Subscription struct {
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"-"`
	Auth      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is the JSON payload the service worker renders.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// BroadcastResult counts the outcome of one fan-out.
type BroadcastResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Removed int `json:"removed"`
}

// SubscribeRequest mirrors the browser PushSubscription.toJSON() shape.
type SubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

// DeliveryError is returned when the push service answers with an
// unexpected status.
type DeliveryError struct {
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("push delivery failed with status %d", e.StatusCode)
}
