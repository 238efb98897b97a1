package bot

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/jobbot/bot/session"
	"github.com/hrygo/jobbot/internal/profile"
	"github.com/hrygo/jobbot/store"
)

// memDriver is an in-memory store.Driver for dispatcher tests.
type memDriver struct {
	mu      sync.Mutex
	users   map[int64]*store.UserRecord
	jobs    []*store.Job
	upserts int
}

func newMemDriver() *memDriver {
	return &memDriver{users: map[int64]*store.UserRecord{}}
}

func (m *memDriver) Close() error { return nil }

func (m *memDriver) GetUser(_ context.Context, userID int64) (*store.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

func (m *memDriver) UpsertUser(_ context.Context, record *store.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[record.UserID] = record.Clone()
	m.upserts++
	return nil
}

func (m *memDriver) CountUsers(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memDriver) CreateJob(_ context.Context, create *store.Job) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, create)
	return create, nil
}

func (m *memDriver) ListJobs(_ context.Context) ([]*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs, nil
}

// recordingSender captures outbound replies; onSend runs before the
// reply is recorded so tests can observe interleaving with the store.
type recordingSender struct {
	mu     sync.Mutex
	sent   []session.Reply
	onSend func(userID int64, reply session.Reply)
}

func (r *recordingSender) Send(_ context.Context, userID int64, reply session.Reply) error {
	if r.onSend != nil {
		r.onSend(userID, reply)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, reply)
	return nil
}

func (r *recordingSender) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, reply := range r.sent {
		out = append(out, reply.Text)
	}
	return out
}

func newTestDispatcher(driver store.Driver, sender Sender, prober session.ChannelProber) *Dispatcher {
	st := store.New(driver, &profile.Profile{Mode: "dev"})
	return NewDispatcher(st, sender, prober)
}

func okProber(_ context.Context, _ string) error { return nil }

func TestDispatchFullScenario(t *testing.T) {
	driver := newMemDriver()
	sender := &recordingSender{}
	d := newTestDispatcher(driver, sender, session.ChannelProberFunc(okProber))
	ctx := context.Background()

	events := []session.Event{
		session.StartEvent{DisplayName: "Ann"},
		session.TextEvent{Text: "Ann"},
		session.TextEvent{Text: "Lee"},
		session.TextEvent{Text: "Remote"},
		session.TextEvent{Text: "Contract"},
		session.TextEvent{Text: "Done"},
		session.AddChannelEvent{Arg: "@news"},
	}
	for _, event := range events {
		d.Dispatch(ctx, 42, event)
	}

	record, err := driver.GetUser(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, store.StateReady, record.State)
	assert.Equal(t, "Ann", record.FirstName)
	assert.Equal(t, "Lee", record.LastName)
	assert.Equal(t, []string{"Remote", "Contract"}, record.Preferences)
	assert.Equal(t, []string{"news"}, record.Channels)

	texts := sender.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, "✅ @news added successfully!", texts[len(texts)-1])
}

func TestDispatchTextBeforeStartWritesNothing(t *testing.T) {
	driver := newMemDriver()
	sender := &recordingSender{}
	d := newTestDispatcher(driver, sender, session.ChannelProberFunc(okProber))

	d.Dispatch(context.Background(), 7, session.TextEvent{Text: "hello"})

	assert.Empty(t, sender.texts())
	assert.Zero(t, driver.upserts)
	record, err := driver.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestDispatchUsageHintWritesNothing(t *testing.T) {
	driver := newMemDriver()
	sender := &recordingSender{}
	d := newTestDispatcher(driver, sender, session.ChannelProberFunc(okProber))

	d.Dispatch(context.Background(), 7, session.AddChannelEvent{})

	assert.Equal(t, []string{"Usage: /addchannel @channelname"}, sender.texts())
	assert.Zero(t, driver.upserts)
}

func TestDispatchPersistsBeforeSending(t *testing.T) {
	driver := newMemDriver()
	sender := &recordingSender{}
	sender.onSend = func(userID int64, _ session.Reply) {
		record, err := driver.GetUser(context.Background(), userID)
		require.NoError(t, err)
		require.NotNil(t, record, "record must be persisted before replies go out")
		assert.Equal(t, store.StateAwaitingFirstName, record.State)
	}
	d := newTestDispatcher(driver, sender, session.ChannelProberFunc(okProber))

	d.Dispatch(context.Background(), 7, session.StartEvent{DisplayName: "Ann"})

	require.Len(t, sender.texts(), 2)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	driver := newMemDriver()
	sender := &recordingSender{}
	boom := session.ChannelProberFunc(func(_ context.Context, _ string) error {
		panic("probe exploded")
	})
	d := newTestDispatcher(driver, sender, boom)

	require.NotPanics(t, func() {
		d.Dispatch(context.Background(), 7, session.AddChannelEvent{Arg: "@news"})
	})

	assert.Equal(t, []string{"⚠️ An error occurred. Please try again."}, sender.texts())

	// The process keeps serving subsequent events.
	d.Dispatch(context.Background(), 7, session.StartEvent{DisplayName: "Ann"})
	assert.Len(t, sender.texts(), 3)
}

func TestDispatchSerializesPerUser(t *testing.T) {
	driver := newMemDriver()
	sender := &recordingSender{}
	d := newTestDispatcher(driver, sender, session.ChannelProberFunc(okProber))
	ctx := context.Background()

	seed := store.NewUserRecord(7)
	seed.State = store.StateAwaitingPreferences
	require.NoError(t, driver.UpsertUser(ctx, seed))
	driver.upserts = 0

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(ctx, 7, session.TextEvent{Text: "Remote"})
		}()
	}
	wg.Wait()

	record, err := driver.GetUser(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Len(t, record.Preferences, n, "concurrent events for one user must not lose updates")
	assert.Equal(t, n, driver.upserts)
}
