package infra

import (
	"net/http"

	"fuelpump/internal/config"

	"github.com/SherClockHolmes/webpush-go"
)

// PushSender delivers one Web Push message.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real PushSender backed by webpush-go.
type WebPushSender struct{}

func (WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// PushOptions builds the VAPID options shared by every notification.
func PushOptions(cfg *config.Config) *webpush.Options {
	return &webpush.Options{
		Subscriber:      cfg.VAPIDSubject,
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		TTL:             3600,
	}
}
