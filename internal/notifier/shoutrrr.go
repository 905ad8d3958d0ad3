package notifier

import (
	"context"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"lease-notify/internal/models"
)

// ShoutrrrSender delivers notifications through shoutrrr service URLs
// (smtp://, telegram://, slack://, ...). One sender fans out to all URLs.
type ShoutrrrSender struct {
	sender  *router.ServiceRouter
	timeout time.Duration
}

// NewShoutrrrSender builds and validates a sender for the given service URLs
func NewShoutrrrSender(urls []string, timeout time.Duration) (*ShoutrrrSender, error) {
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &ShoutrrrSender{sender: sender, timeout: timeout}, nil
}

// Send delivers one notification; the router enforces the per-send timeout
func (s *ShoutrrrSender) Send(ctx context.Context, n *models.Notification) error {
	_ = ctx // router owns its own timeouts

	params := stypes.Params{}
	params.SetTitle(Subject(n))

	errs := s.sender.Send(Body(n), &params)
	for _, err := range errs {
		if err != nil {
			return &SendError{Category: CategoryUnreachable, Err: err}
		}
	}

	return nil
}
