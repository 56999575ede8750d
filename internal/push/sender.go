package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/hubideas/hubideas/internal/config"
)

// Sender delivers one encrypted payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub Subscription, payload []byte) error
}

// WebPushSender signs requests with the configured VAPID key pair.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
	client     webpush.HTTPClient
}

func NewWebPushSender(cfg config.PushConfig) *WebPushSender {
	return &WebPushSender{
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		// webpush-go adds the mailto: scheme itself.
		subscriber: strings.TrimPrefix(cfg.VAPIDSubject, "mailto:"),
		ttl:        cfg.TTL,
		client:     http.DefaultClient,
	}
}

func (s *WebPushSender) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

func (s *WebPushSender) Send(ctx context.Context, sub Subscription, payload []byte) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		return fmt.Errorf("sending push notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return statusError(resp.StatusCode)
}

func statusError(code int) error {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrSubscriptionGone
	case code >= 400:
		return &DeliveryError{StatusCode: code}
	default:
		return nil
	}
}
