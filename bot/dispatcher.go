package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/jobbot/bot/session"
	"github.com/hrygo/jobbot/store"
)

const storeTimeout = 5 * time.Second

// Sender delivers one reply to a user. Delivery is best-effort; the
// dispatcher logs failures and moves on.
type Sender interface {
	Send(ctx context.Context, userID int64, reply session.Reply) error
}

// Dispatcher bridges transport events to the session state machine:
// load record, run the transition, persist, send the replies. The
// read-modify-write sequence is serialized per user so concurrent
// updates from the same user cannot lose writes; different users
// proceed independently.
type Dispatcher struct {
	store   *store.Store
	sender  Sender
	machine *session.Machine

	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex
}

func NewDispatcher(st *store.Store, sender Sender, prober session.ChannelProber) *Dispatcher {
	return &Dispatcher{
		store:     st,
		sender:    sender,
		machine:   session.NewMachine(prober),
		userLocks: make(map[int64]*sync.Mutex),
	}
}

func (d *Dispatcher) lockUser(userID int64) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		d.userLocks[userID] = lock
	}
	return lock
}

// Dispatch handles one inbound event for one user. It never lets an
// event take the process down: anything unexpected is logged and
// answered with a generic apology.
func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, event session.Event) {
	traceID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handling failed",
				slog.String("trace_id", traceID),
				slog.Int64("user_id", userID),
				slog.String("event", eventName(event)),
				slog.Any("panic", r))
			d.send(ctx, userID, session.Reply{Text: "⚠️ An error occurred. Please try again."}, traceID)
		}
	}()

	replies := d.transitionLocked(ctx, userID, event, traceID)

	for _, reply := range replies {
		d.send(ctx, userID, reply, traceID)
	}
}

// transitionLocked runs load → transition → persist under the
// per-user lock and returns the replies to deliver.
func (d *Dispatcher) transitionLocked(ctx context.Context, userID int64, event session.Event, traceID string) []session.Reply {
	lock := d.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	getCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	record := d.store.GetUser(getCtx, userID)
	cancel()

	next, replies, changed := d.machine.Transition(ctx, record, event)

	if changed {
		putCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		if err := d.store.UpsertUser(putCtx, next); err != nil {
			// Reply delivery still happens; the next event simply
			// starts from the last persisted state.
			slog.Error("failed to persist user record",
				slog.String("trace_id", traceID),
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()))
		}
	}
	return replies
}

func (d *Dispatcher) send(ctx context.Context, userID int64, reply session.Reply, traceID string) {
	if err := d.sender.Send(ctx, userID, reply); err != nil {
		slog.Error("failed to send reply",
			slog.String("trace_id", traceID),
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
	}
}

func eventName(event session.Event) string {
	switch event.(type) {
	case session.StartEvent:
		return "start"
	case session.TextEvent:
		return "text"
	case session.AddChannelEvent:
		return "addchannel"
	}
	return "unknown"
}
