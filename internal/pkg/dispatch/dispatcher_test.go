package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/app/models"
	"github.com/hookline/hookline/internal/pkg/retry"
)

const (
	testAdminID   = "U_admin"
	testForwardID = "U_forward"
)

type fakeStore struct {
	messages      []models.Message
	adminMessages []models.AdminMessage
	interactions  []models.AIInteraction
	profiles      map[string]string

	failAppendMessage bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]string)}
}

func (s *fakeStore) AppendMessage(msg *models.Message) error {
	if s.failAppendMessage {
		return errors.New("storage fault")
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeStore) AppendAdminMessage(msg *models.AdminMessage) error {
	s.adminMessages = append(s.adminMessages, *msg)
	return nil
}

func (s *fakeStore) AppendInteraction(entry *models.AIInteraction) error {
	s.interactions = append(s.interactions, *entry)
	return nil
}

func (s *fakeStore) ProfileExists(userID string) (bool, error) {
	_, ok := s.profiles[userID]
	return ok, nil
}

func (s *fakeStore) InsertProfileIfAbsent(profile *models.UserProfile) (bool, error) {
	if _, ok := s.profiles[profile.UserID]; ok {
		return false, nil
	}
	s.profiles[profile.UserID] = profile.DisplayName
	return true, nil
}

type push struct {
	to   string
	text string
}

type fakeNotifier struct {
	pushes []push
	err    error
}

func (n *fakeNotifier) PushText(_ context.Context, to, text string) error {
	if n.err != nil {
		return n.err
	}
	n.pushes = append(n.pushes, push{to: to, text: text})
	return nil
}

type fakeProfiles struct {
	names map[string]string
	calls int
	err   error
}

func (p *fakeProfiles) GetDisplayName(_ context.Context, userID string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	name, ok := p.names[userID]
	if !ok {
		return "", fmt.Errorf("unknown user %s", userID)
	}
	return name, nil
}

type fakeCompleter struct {
	reply string
	calls int
	err   error
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type fakeNameCache struct {
	names   map[string]string
	stored  map[string]string
	lookups int
}

func (c *fakeNameCache) Lookup(userID string) (string, bool) {
	c.lookups++
	name, ok := c.names[userID]
	return name, ok
}

func (c *fakeNameCache) Store(userID, name string) {
	if c.stored == nil {
		c.stored = make(map[string]string)
	}
	c.stored[userID] = name
}

func testOptions() Options {
	return Options{
		AdminUserID:   testAdminID,
		ForwardUserID: testForwardID,
		AdminRouting:  true,
		Forwarding:    true,
		AIReply:       true,
		Retry: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			Multiplier:     2.0,
			Sleep:          func(time.Duration) {},
		},
	}
}

func envelopeWith(events ...Event) *Envelope {
	return &Envelope{Events: events}
}

func TestDispatch_AdminRecord(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	profiles := &fakeProfiles{}
	completer := &fakeCompleter{reply: "unused"}

	d := New(store, notifier, profiles, completer, nil, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent(testAdminID, "report")))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, store.adminMessages, 1)
	assert.Equal(t, "report", store.adminMessages[0].Text)
	assert.Empty(t, store.messages, "admin messages must not land in the user store")
	assert.Empty(t, notifier.pushes, "admin messages are never forwarded")
	assert.Zero(t, profiles.calls, "admin messages trigger no profile lookup")
}

func TestDispatch_ForwardAndReply(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	completer := &fakeCompleter{reply: "generated answer"}

	d := New(store, notifier, &fakeProfiles{}, completer, nil, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent(testForwardID, "what is the status?")))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, store.interactions, 1, "exactly one interaction log per forward event")
	assert.Equal(t, "what is the status?", store.interactions[0].Prompt)
	assert.Equal(t, "generated answer", store.interactions[0].Response)
	assert.False(t, store.interactions[0].Fallback)
	require.Len(t, notifier.pushes, 1)
	assert.Equal(t, push{to: testForwardID, text: "generated answer"}, notifier.pushes[0])
}

func TestDispatch_ForwardAndReply_FallbackOnExhaustedRetries(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	completer := &fakeCompleter{err: errors.New("model overloaded")}

	d := New(store, notifier, &fakeProfiles{}, completer, nil, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent(testForwardID, "hello?")))

	require.NoError(t, err, "exhausted retries degrade, they do not fail the request")
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 3, completer.calls, "completion must be retried up to MaxAttempts")
	require.Len(t, store.interactions, 1)
	assert.Equal(t, DefaultFallbackReply, store.interactions[0].Response)
	assert.True(t, store.interactions[0].Fallback, "fallback reply still counts as a response")
	require.Len(t, notifier.pushes, 1)
	assert.Equal(t, DefaultFallbackReply, notifier.pushes[0].text)
}

func TestDispatch_StandardRecord(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	profiles := &fakeProfiles{names: map[string]string{"U_customer": "Alice"}}

	d := New(store, notifier, profiles, &fakeCompleter{}, nil, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent("U_customer", "I'd like to order")))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, store.messages, 1)
	assert.Equal(t, "U_customer", store.messages[0].UserID)
	assert.Equal(t, "Alice", store.profiles["U_customer"])
	require.Len(t, notifier.pushes, 1, "standard messages are forwarded to the target")
	assert.Equal(t, push{to: testForwardID, text: "I'd like to order"}, notifier.pushes[0])
}

func TestDispatch_ProfileInsertedOnlyOnce(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{names: map[string]string{"U_customer": "Alice"}}

	d := New(store, &fakeNotifier{}, profiles, &fakeCompleter{}, nil, testOptions())

	_, err := d.Dispatch(context.Background(), envelopeWith(
		*textEvent("U_customer", "first"),
		*textEvent("U_customer", "second"),
	))

	require.NoError(t, err)
	assert.Len(t, store.messages, 2)
	assert.Len(t, store.profiles, 1, "second message must not create a duplicate profile")
	assert.Equal(t, 1, profiles.calls, "existing profile suppresses further lookups")
}

func TestDispatch_ProfileLookupFailureIsRecoverable(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{err: errors.New("profile api down")}

	d := New(store, &fakeNotifier{}, profiles, &fakeCompleter{}, nil, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent("U_customer", "hi")))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Len(t, store.messages, 1, "message persistence must not depend on the profile lookup")
	assert.Empty(t, store.profiles, "failed lookup yields no profile row")
}

func TestDispatch_BadTimestampSkipsOnlyThatEvent(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{names: map[string]string{"U_a": "A", "U_c": "C"}}

	bad := textEvent("U_b", "broken")
	bad.Timestamp = -1

	d := New(store, &fakeNotifier{}, profiles, &fakeCompleter{}, nil, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(
		*textEvent("U_a", "one"),
		*bad,
		*textEvent("U_c", "three"),
	))

	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, store.messages, 2)
	assert.Equal(t, "one", store.messages[0].Text)
	assert.Equal(t, "three", store.messages[1].Text)
}

func TestDispatch_NonTextEventsAreSkipped(t *testing.T) {
	store := newFakeStore()

	follow := Event{Type: "follow", Timestamp: 1700000000000}
	follow.Source.UserID = "U_customer"

	d := New(store, &fakeNotifier{}, &fakeProfiles{}, &fakeCompleter{}, nil, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(follow))

	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, store.messages)
}

func TestDispatch_StorageFaultFailsRequestButKeepsEarlierEvents(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{names: map[string]string{"U_a": "A"}}

	d := New(store, &fakeNotifier{}, profiles, &fakeCompleter{}, nil, testOptions())

	// First batch commits normally, then the store starts failing.
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent("U_a", "fine")))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	store.failAppendMessage = true
	_, err = d.Dispatch(context.Background(), envelopeWith(*textEvent("U_b", "will fail")))

	require.Error(t, err, "a primary-write storage fault is a request-level failure")
	assert.Len(t, store.messages, 1, "earlier committed event must survive a later fault")
}

func TestDispatch_CachedNameSkipsProfileLookup(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{names: map[string]string{"U_customer": "Alice"}}
	names := &fakeNameCache{names: map[string]string{"U_customer": "Cached Alice"}}

	d := New(store, &fakeNotifier{}, profiles, &fakeCompleter{}, names, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent("U_customer", "hi")))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, "Cached Alice", store.profiles["U_customer"], "cached name must win")
	assert.Zero(t, profiles.calls, "a cache hit must not reach the profile API")
}

func TestDispatch_CacheMissFallsBackToAPIAndStores(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{names: map[string]string{"U_customer": "Alice"}}
	names := &fakeNameCache{}

	d := New(store, &fakeNotifier{}, profiles, &fakeCompleter{}, names, testOptions())
	_, err := d.Dispatch(context.Background(), envelopeWith(*textEvent("U_customer", "hi")))

	require.NoError(t, err)
	assert.Equal(t, 1, names.lookups)
	assert.Equal(t, 1, profiles.calls, "a miss must fall through to the profile API")
	assert.Equal(t, "Alice", store.profiles["U_customer"])
	assert.Equal(t, "Alice", names.stored["U_customer"], "fetched name must be written back to the cache")
}

func TestDispatch_CacheMissWithFailingAPIIsRecoverable(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{err: errors.New("profile api down")}
	names := &fakeNameCache{}

	d := New(store, &fakeNotifier{}, profiles, &fakeCompleter{}, names, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent("U_customer", "hi")))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Len(t, store.messages, 1)
	assert.Empty(t, store.profiles)
	assert.Empty(t, names.stored, "nothing is cached when the lookup failed")
}

func TestDispatch_ForwardTargetNotEchoedWhenAIReplyDisabled(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	profiles := &fakeProfiles{names: map[string]string{testForwardID: "Operator"}}

	opts := testOptions()
	opts.AIReply = false

	d := New(store, notifier, profiles, &fakeCompleter{}, nil, opts)
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent(testForwardID, "note to self")))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Len(t, store.messages, 1, "with replies disabled the target's message is a standard record")
	assert.Empty(t, store.interactions)
	assert.Empty(t, notifier.pushes, "the target's own message must not be pushed back to them")
}

func TestDispatch_ForwardingDisabledWithoutTarget(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	profiles := &fakeProfiles{names: map[string]string{"U_customer": "Alice"}}

	opts := testOptions()
	opts.ForwardUserID = "" // absence of the target disables forwarding, no error

	d := New(store, notifier, profiles, &fakeCompleter{}, nil, opts)
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent("U_customer", "hi")))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Empty(t, notifier.pushes)
}

func TestDispatch_PushFailureDoesNotFailRequest(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{err: errors.New("push api down")}
	profiles := &fakeProfiles{names: map[string]string{"U_customer": "Alice"}}

	d := New(store, notifier, profiles, &fakeCompleter{}, nil, testOptions())
	res, err := d.Dispatch(context.Background(), envelopeWith(*textEvent("U_customer", "hi")))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Len(t, store.messages, 1)
}
