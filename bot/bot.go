// Package bot wires the Telegram transport to the dialogue dispatcher.
package bot

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hrygo/jobbot/bot/session"
	"github.com/hrygo/jobbot/internal/profile"
)

// Client is the Telegram transport collaborator. It feeds inbound
// updates to a Dispatcher and implements Sender and
// session.ChannelProber on top of the Bot API.
//
// The bot is meant for private chats, so the chat a reply goes to is
// the user identifier itself.
type Client struct {
	api     *tgbotapi.BotAPI
	profile *profile.Profile

	// limiter keeps outbound sends under the Bot API flood limits.
	limiter *rate.Limiter
}

func NewClient(p *profile.Profile) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(p.BotToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to authorize bot")
	}
	api.Debug = p.IsDev()

	return &Client{
		api:     api,
		profile: p,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
	}, nil
}

// Username returns the authorized bot account name.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Run consumes updates until ctx is cancelled, handing each one to
// the dispatcher on its own goroutine (the dispatcher serializes per
// user internally). In-flight handlers finish before Run returns.
func (c *Client) Run(ctx context.Context, dispatcher *Dispatcher) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = c.profile.PollTimeout
	updates := c.api.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				wg.Wait()
				return nil
			}
			userID, event, ok := parseEvent(update)
			if !ok {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				dispatcher.Dispatch(ctx, userID, event)
			}()
		}
	}
}

// parseEvent maps a raw update onto a dialogue event. Unknown
// commands deliberately fall through as plain text, the same way the
// original bot's catch-all text handler saw them.
func parseEvent(update tgbotapi.Update) (int64, session.Event, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return 0, nil, false
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return msg.From.ID, session.StartEvent{DisplayName: msg.From.FirstName}, true
		case "addchannel":
			return msg.From.ID, session.AddChannelEvent{Arg: msg.CommandArguments()}, true
		}
	}
	if msg.Text == "" {
		return 0, nil, false
	}
	return msg.From.ID, session.TextEvent{Text: msg.Text}, true
}

// Send delivers one reply, translating the neutral keyboard layout
// into Telegram reply markup.
func (c *Client) Send(ctx context.Context, userID int64, reply session.Reply) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter interrupted")
	}

	msg := tgbotapi.NewMessage(userID, reply.Text)
	switch {
	case len(reply.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(reply.Keyboard))
		for _, row := range reply.Keyboard {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, buttons)
		}
		if reply.OneTimeKeyboard {
			msg.ReplyMarkup = tgbotapi.NewOneTimeReplyKeyboard(rows...)
		} else {
			msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)
		}
	case reply.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}

	if _, err := c.api.Send(msg); err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}

// Probe checks channel reachability by sending a typing chat action
// at it, the cheapest call that fails when the bot is not a member or
// the channel does not exist.
func (c *Client) Probe(_ context.Context, channel string) error {
	action := tgbotapi.ChatActionConfig{
		BaseChat: tgbotapi.BaseChat{ChannelUsername: "@" + channel},
		Action:   tgbotapi.ChatTyping,
	}
	if _, err := c.api.Request(action); err != nil {
		slog.Info("channel probe failed", slog.String("channel", channel), slog.String("error", err.Error()))
		return errors.Wrapf(err, "channel @%s is not reachable", channel)
	}
	return nil
}
