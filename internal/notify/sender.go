package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/kazz187/devguild/internal/config"
)

// Payload is the JSON body delivered to the browser.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender delivers push notifications to every stored subscription.
type Sender struct {
	cfg    config.NotifyConfig
	subs   *SubscriptionStore
	logger *slog.Logger
}

func NewSender(cfg config.NotifyConfig, subs *SubscriptionStore, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{cfg: cfg, subs: subs, logger: logger}
}

// Enabled reports whether VAPID keys are configured. Without them the
// sender silently drops payloads.
func (s *Sender) Enabled() bool {
	return s.cfg.VAPIDPublicKey != "" && s.cfg.VAPIDPrivateKey != ""
}

// SendToAll fans the payload out to every subscription. Delivery
// failures are logged, never returned: notifications are best effort.
func (s *Sender) SendToAll(ctx context.Context, payload *Payload) {
	if !s.Enabled() {
		s.logger.Warn("push notification: VAPID keys not configured, skipping")
		return
	}

	subs, err := s.subs.List(ctx)
	if err != nil {
		s.logger.Error("push notification: failed to list subscriptions", "error", err)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("push notification: failed to marshal payload", "error", err)
		return
	}

	for _, sub := range subs {
		s.sendToSubscription(ctx, sub, data)
	}
}

func (s *Sender) sendToSubscription(ctx context.Context, sub *Subscription, data []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}

	resp, err := webpush.SendNotification(data, wpSub, &webpush.Options{
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      s.cfg.Subscriber,
		TTL:             86400,
	})
	if err != nil {
		s.logger.Error("push notification: failed to send", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		s.logger.Info("push notification: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := s.subs.Delete(ctx, sub.ID); err != nil {
			s.logger.Error("push notification: failed to delete expired subscription", "id", sub.ID, "error", err)
		}
		return
	}

	if resp.StatusCode >= 400 {
		s.logger.Warn("push notification: unexpected status", "endpoint", sub.Endpoint, "status", resp.StatusCode)
	}
}
