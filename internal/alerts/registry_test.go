package alerts

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession is a test double for a listening session
type fakeSession struct {
	mu             sync.Mutex
	received       [][]byte
	live           bool
	sendErr        error
	firstSendDelay time.Duration
}

func newFakeSession() *fakeSession {
	return &fakeSession{live: true}
}

func (s *fakeSession) Send(payload []byte) error {
	s.mu.Lock()
	delay := s.firstSendDelay
	s.firstSendDelay = 0
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.received = append(s.received, payload)
	return nil
}

func (s *fakeSession) IsLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

func (s *fakeSession) Metadata() map[string]string { return nil }

func (s *fakeSession) messages() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.received))
	copy(out, s.received)
	return out
}

func TestRegistry_Register(t *testing.T) {
	t.Run("registers and finds subscribers", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		sess := newFakeSession()

		require.True(t, r.Register("s1", "card_1", sess))

		subs := r.SubscribersOf("card_1")
		require.Len(t, subs, 1)
		assert.Equal(t, "s1", subs[0].SessionID)
		assert.Empty(t, r.SubscribersOf("card_other"))
	})

	t.Run("re-registering the same edge is a no-op success", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		sess := newFakeSession()

		require.True(t, r.Register("s1", "card_1", sess))
		require.True(t, r.Register("s1", "card_1", sess))

		assert.Len(t, r.SubscribersOf("card_1"), 1)
		assert.Equal(t, 1, r.Connections().TotalActive)
	})

	t.Run("rejects empty identifiers and nil handles", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		sess := newFakeSession()

		assert.False(t, r.Register("", "card_1", sess))
		assert.False(t, r.Register("s1", "", sess))
		assert.False(t, r.Register("s1", "card_1", nil))
		assert.Equal(t, 0, r.Connections().TotalActive)
	})

	t.Run("one session may watch several cards and vice versa", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		s1 := newFakeSession()
		s2 := newFakeSession()

		r.Register("s1", "card_1", s1)
		r.Register("s1", "card_2", s1)
		r.Register("s2", "card_1", s2)

		assert.Len(t, r.SubscribersOf("card_1"), 2)
		assert.Len(t, r.SubscribersOf("card_2"), 1)
		assert.Equal(t, 3, r.Connections().TotalActive)
	})
}

func TestRegistry_RegisterAll(t *testing.T) {
	r := NewRegistry(slog.Default())
	sess := newFakeSession()

	results := r.RegisterAll("s1", []string{"card_1", "", "card_2"}, sess)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.Equal(t, "empty card token", results[1].Reason)
	assert.True(t, results[2].OK)

	// Failed cards never block the rest of the batch
	assert.Len(t, r.SubscribersOf("card_1"), 1)
	assert.Len(t, r.SubscribersOf("card_2"), 1)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry(slog.Default())
	sess := newFakeSession()

	r.Register("s1", "card_1", sess)
	r.Register("s1", "card_2", sess)

	assert.True(t, r.Unregister("s1"))
	assert.Empty(t, r.SubscribersOf("card_1"))
	assert.Empty(t, r.SubscribersOf("card_2"))
	assert.Nil(t, r.Health("s1"))

	// Unknown session is not an error
	assert.False(t, r.Unregister("s1"))
}

func TestRegistry_Rebind(t *testing.T) {
	r := NewRegistry(slog.Default())
	old := newFakeSession()
	fresh := newFakeSession()

	require.True(t, r.Register("s1", "card_1", old))
	require.True(t, r.Rebind("s1", fresh))

	subs := r.SubscribersOf("card_1")
	require.Len(t, subs, 1)
	assert.Same(t, fresh, subs[0].Session.(*fakeSession))

	health := r.Health("s1")
	require.NotNil(t, health)
	assert.Equal(t, 1, health.Reconnects)

	assert.False(t, r.Rebind("unknown", fresh))
	assert.False(t, r.Rebind("s1", nil))
}

func TestRegistry_RecordProbe(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.Register("s1", "card_1", newFakeSession())

	r.RecordProbe("s1", true)
	r.RecordProbe("s1", true)
	r.RecordProbe("s1", false)
	r.RecordProbe("unknown", true) // silently ignored

	health := r.Health("s1")
	require.NotNil(t, health)
	assert.Equal(t, 2, health.ProbesPassed)
	assert.Equal(t, 1, health.ProbesFailed)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(slog.Default())
	sess := newFakeSession()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("s1", "card_1", sess)
			r.RecordProbe("s1", true)
		}()
		go func() {
			defer wg.Done()
			r.SubscribersOf("card_1")
			r.Connections()
		}()
	}
	wg.Wait()

	assert.Len(t, r.SubscribersOf("card_1"), 1)
	assert.Equal(t, 50, r.Health("s1").ProbesPassed)
}
