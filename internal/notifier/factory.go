package notifier

import (
	"fmt"
	"log/slog"

	"lease-notify/internal/config"
)

// New builds the configured sender
func New(cfg config.SenderConfig, dispatch config.DispatchConfig, logger *slog.Logger) (Sender, error) {
	switch cfg.Kind {
	case "log":
		return NewLogSender(logger), nil
	case "shoutrrr":
		return NewShoutrrrSender(cfg.ShoutrrrURLs, dispatch.SendTimeout)
	case "webhook":
		return NewWebhookSender(cfg.WebhookURL, cfg.WebhookToken, dispatch.SendTimeout)
	default:
		return nil, fmt.Errorf("unknown sender kind %q", cfg.Kind)
	}
}
