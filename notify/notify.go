// Package notify delivers outbound notifications about container
// lifecycle events. Notification is best-effort: failures are logged by
// the caller, never surfaced to the user flow.
package notify

import (
	"context"

	"github.com/slack-go/slack"
)

// Notifier receives one-line notifications.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Slack posts notifications to a single Slack channel.
type Slack struct {
	api     *slack.Client
	channel string
}

// NewSlack creates a Slack notifier from a bot token and channel ID.
func NewSlack(botToken, channel string) *Slack {
	return &Slack{
		api:     slack.New(botToken),
		channel: channel,
	}
}

// Notify posts the text to the configured channel.
func (s *Slack) Notify(ctx context.Context, text string) error {
	_, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	return err
}

var _ Notifier = (*Slack)(nil)
