package crosstab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/okta-compat/token-manager/clock"
	"github.com/okta-compat/token-manager/eventbus"
	"github.com/okta-compat/token-manager/scheduler"
)

// fakeNotifier is a Notifier double test cases drive by calling
// fire directly instead of waiting for a real storage event.
type fakeNotifier struct {
	onChange func(key *string, oldValue, newValue *string)
	stopped  bool
}

func (f *fakeNotifier) Subscribe(onChange func(key *string, oldValue, newValue *string)) func() {
	f.onChange = onChange
	return func() { f.stopped = true }
}

func (f *fakeNotifier) fire(key *string, old, new *string) {
	f.onChange(key, old, new)
}

func strp(s string) *string { return &s }

func newTestSynchronizer(bus eventbus.Bus) (*Synchronizer, *scheduler.Scheduler) {
	clk := clock.NewFake(time.Unix(1000000000, 0))
	sched := scheduler.New(clk, func(string) {})
	sync := New("okta-token-storage", 0, 120, sched, bus, clk, func(time.Duration) {})
	return sync, sched
}

// TestSynchronizer_CrossTabAdd implements scenario S5: a storage-change
// notification from null to a single-token blob emits exactly one added
// event and performs no storage write (the synchronizer has no backend
// reference at all — it can't write back even if it wanted to).
func TestSynchronizer_CrossTabAdd(t *testing.T) {
	bus := eventbus.New()
	sync, _ := newTestSynchronizer(bus)
	notifier := &fakeNotifier{}
	sync.Start(notifier)

	type addedCall struct {
		key string
		tok any
	}
	var added []addedCall
	bus.On(eventbus.Added, func(args ...any) {
		added = append(added, addedCall{key: args[0].(string), tok: args[1]})
	}, nil)

	notifier.fire(strp("okta-token-storage"), nil, strp(`{"idToken":{"scopes":["openid"],"expiresAt":2000000000,"idToken":"T"}}`))

	require.Len(t, added, 1)
	assert.Equal(t, "idToken", added[0].key)
}

func TestSynchronizer_IgnoresOtherKeys(t *testing.T) {
	bus := eventbus.New()
	sync, _ := newTestSynchronizer(bus)
	notifier := &fakeNotifier{}
	sync.Start(notifier)

	var fired bool
	bus.On(eventbus.Added, func(args ...any) { fired = true }, nil)

	notifier.fire(strp("some-other-key"), nil, strp(`{"idToken":{"scopes":["openid"],"expiresAt":2000000000,"idToken":"T"}}`))
	assert.False(t, fired)
}

func TestSynchronizer_IgnoresNoOpChange(t *testing.T) {
	bus := eventbus.New()
	sync, _ := newTestSynchronizer(bus)
	notifier := &fakeNotifier{}
	sync.Start(notifier)

	var fired bool
	bus.On(eventbus.Added, func(args ...any) { fired = true }, nil)

	blob := `{"idToken":{"scopes":["openid"],"expiresAt":2000000000,"idToken":"T"}}`
	notifier.fire(strp("okta-token-storage"), strp(blob), strp(blob))
	assert.False(t, fired)
}

func TestSynchronizer_DiffEmitsAddedAndRemoved(t *testing.T) {
	bus := eventbus.New()
	sync, _ := newTestSynchronizer(bus)
	notifier := &fakeNotifier{}
	sync.Start(notifier)

	var addedKeys, removedKeys []string
	bus.On(eventbus.Added, func(args ...any) { addedKeys = append(addedKeys, args[0].(string)) }, nil)
	bus.On(eventbus.Removed, func(args ...any) { removedKeys = append(removedKeys, args[0].(string)) }, nil)

	old := `{"accessToken":{"scopes":["openid"],"expiresAt":2000000000,"accessToken":"a"}}`
	new := `{"idToken":{"scopes":["openid"],"expiresAt":2000000000,"idToken":"T"}}`
	notifier.fire(strp("okta-token-storage"), strp(old), strp(new))

	assert.Equal(t, []string{"idToken"}, addedKeys)
	assert.Equal(t, []string{"accessToken"}, removedKeys)
}

func TestSynchronizer_NullKeyMeansWholesaleClear(t *testing.T) {
	bus := eventbus.New()
	sync, _ := newTestSynchronizer(bus)
	notifier := &fakeNotifier{}
	sync.Start(notifier)

	var removedKeys []string
	bus.On(eventbus.Removed, func(args ...any) { removedKeys = append(removedKeys, args[0].(string)) }, nil)

	old := `{"accessToken":{"scopes":["openid"],"expiresAt":2000000000,"accessToken":"a"}}`
	notifier.fire(nil, strp(old), nil)

	assert.Equal(t, []string{"accessToken"}, removedKeys)
}

func TestSynchronizer_StopUnsubscribes(t *testing.T) {
	bus := eventbus.New()
	sync, _ := newTestSynchronizer(bus)
	notifier := &fakeNotifier{}
	sync.Start(notifier)
	sync.Stop()
	assert.True(t, notifier.stopped)
}

// TestSynchronizer_StartSubscribesExactlyOnce drives the Notifier
// capability through a gomock double rather than the hand-written
// fakeNotifier, asserting Start registers a single subscription and
// Stop invokes the returned unsubscribe func exactly once.
func TestSynchronizer_StartSubscribesExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockNotifier := NewMockNotifier(ctrl)

	var unsubscribeCalls int
	mockNotifier.EXPECT().Subscribe(gomock.Any()).Times(1).Return(func() { unsubscribeCalls++ })

	bus := eventbus.New()
	sync, _ := newTestSynchronizer(bus)
	sync.Start(mockNotifier)
	sync.Stop()

	assert.Equal(t, 1, unsubscribeCalls)
}
