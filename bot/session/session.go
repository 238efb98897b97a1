// Package session implements the onboarding dialogue state machine.
//
// Transition is the single place that decides, from a user's recorded
// state and one inbound event, the next record and the replies to
// send. It never touches storage or the transport; the only external
// capability it consumes is the channel reachability probe.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/jobbot/store"
)

// DoneKeyword finishes preference collection. Exact match,
// case-sensitive.
const DoneKeyword = "Done"

// Event is one inbound dialogue event.
type Event interface {
	isEvent()
}

// StartEvent is the /start command. It always restarts onboarding,
// whatever the current state; previously recorded answers stay in
// storage until new answers overwrite them.
type StartEvent struct {
	// DisplayName is the Telegram profile first name, used only for
	// the greeting.
	DisplayName string
}

// TextEvent is a free-form text message, interpreted per state.
type TextEvent struct {
	Text string
}

// AddChannelEvent is the /addchannel command with its raw argument.
type AddChannelEvent struct {
	Arg string
}

func (StartEvent) isEvent()      {}
func (TextEvent) isEvent()       {}
func (AddChannelEvent) isEvent() {}

// Reply is one outbound message. Keyboard layouts stay transport
// neutral here; the bot client maps them to Telegram markup.
type Reply struct {
	Text            string
	Keyboard        [][]string
	OneTimeKeyboard bool
	RemoveKeyboard  bool
}

// ChannelProber checks that a channel is reachable by the bot. The
// probe is a side-effecting external call; a non-nil error means
// unreachable, nothing more specific.
type ChannelProber interface {
	Probe(ctx context.Context, channel string) error
}

// ChannelProberFunc adapts a function to ChannelProber.
type ChannelProberFunc func(ctx context.Context, channel string) error

func (f ChannelProberFunc) Probe(ctx context.Context, channel string) error {
	return f(ctx, channel)
}

var preferenceKeyboard = [][]string{
	{"Remote", "Full-time"},
	{"Part-time", "Contract"},
	{DoneKeyword},
}

// Machine computes dialogue transitions.
type Machine struct {
	prober ChannelProber
}

func NewMachine(prober ChannelProber) *Machine {
	return &Machine{prober: prober}
}

// Transition applies one event to the record and returns the updated
// record, the replies to deliver in order, and whether the record
// changed and must be persisted. The input record is not mutated.
func (m *Machine) Transition(ctx context.Context, record *store.UserRecord, event Event) (*store.UserRecord, []Reply, bool) {
	next := record.Clone()

	switch e := event.(type) {
	case StartEvent:
		return m.start(next, e)
	case TextEvent:
		return m.text(next, e)
	case AddChannelEvent:
		return m.addChannel(ctx, next, e)
	}
	return next, nil, false
}

func (m *Machine) start(next *store.UserRecord, e StartEvent) (*store.UserRecord, []Reply, bool) {
	name := e.DisplayName
	if name == "" {
		name = "friend"
	}
	next.State = store.StateAwaitingFirstName
	return next, []Reply{
		{Text: fmt.Sprintf("👋 Welcome to JobBot, %s!", name)},
		{Text: "What is your first name?"},
	}, true
}

func (m *Machine) text(next *store.UserRecord, e TextEvent) (*store.UserRecord, []Reply, bool) {
	switch next.State {
	case store.StateAwaitingFirstName:
		next.FirstName = e.Text
		next.State = store.StateAwaitingLastName
		return next, []Reply{
			{Text: fmt.Sprintf("Nice to meet you, %s! What is your last name?", e.Text)},
		}, true

	case store.StateAwaitingLastName:
		next.LastName = e.Text
		next.State = store.StateAwaitingPreferences
		return next, []Reply{
			{
				Text:            fmt.Sprintf("Thanks %s %s! Now let's set up job preferences.", next.FirstName, e.Text),
				Keyboard:        preferenceKeyboard,
				OneTimeKeyboard: true,
			},
		}, true

	case store.StateAwaitingPreferences:
		if e.Text != DoneKeyword {
			// Duplicates are kept on purpose; the picker allows
			// re-sending the same option.
			next.Preferences = append(next.Preferences, e.Text)
			return next, []Reply{
				{Text: fmt.Sprintf("Added %s preference. Select more or click %q", e.Text, DoneKeyword)},
			}, true
		}
		next.State = store.StateReady
		return next, []Reply{
			{
				Text:           "Setup complete! Now add channels with /addchannel @channelname",
				RemoveKeyboard: true,
			},
		}, true
	}

	// ready, new, or anything unknown: the dialogue only begins on an
	// explicit /start, so plain text is silently ignored.
	return next, nil, false
}

func (m *Machine) addChannel(ctx context.Context, next *store.UserRecord, e AddChannelEvent) (*store.UserRecord, []Reply, bool) {
	if strings.TrimSpace(e.Arg) == "" {
		return next, []Reply{{Text: "Usage: /addchannel @channelname"}}, false
	}

	channel := store.NormalizeChannel(e.Arg)
	if err := m.prober.Probe(ctx, channel); err != nil {
		return next, []Reply{
			{Text: fmt.Sprintf("❌ Couldn't access @%s. Ensure:\n- You're a member\n- Channel exists\n- No typos", channel)},
		}, false
	}

	if next.HasChannel(channel) {
		return next, []Reply{
			{Text: fmt.Sprintf("ℹ️ @%s was already added.", channel)},
		}, false
	}

	next.Channels = append(next.Channels, channel)
	return next, []Reply{
		{Text: fmt.Sprintf("✅ @%s added successfully!", channel)},
	}, true
}
