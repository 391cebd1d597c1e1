package presence

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memConn struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	fail   bool
}

func (c *memConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *memConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *memConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type transition struct {
	userID uuid.UUID
	online bool
}

type recordingSink struct {
	mu          sync.Mutex
	transitions []transition
}

func (s *recordingSink) PresenceChanged(userID uuid.UUID, online bool, _ time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, transition{userID: userID, online: online})
}

func (s *recordingSink) all() []transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transition(nil), s.transitions...)
}

func TestConnectDisconnectTransitions(t *testing.T) {
	sink := &recordingSink{}
	r := NewRegistry(sink)
	userID := uuid.New()

	r.Connect(userID, "c1", &memConn{})
	assert.True(t, r.IsOnline(userID))

	r.Disconnect(userID, "c1")
	assert.False(t, r.IsOnline(userID))

	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, transition{userID, true}, got[0])
	assert.Equal(t, transition{userID, false}, got[1])
}

func TestMultiDeviceStaysOnline(t *testing.T) {
	sink := &recordingSink{}
	r := NewRegistry(sink)
	userID := uuid.New()

	r.Connect(userID, "phone", &memConn{})
	r.Connect(userID, "laptop", &memConn{})

	r.Disconnect(userID, "phone")
	assert.True(t, r.IsOnline(userID), "one device left")

	r.Disconnect(userID, "laptop")
	assert.False(t, r.IsOnline(userID))

	// Exactly one online and one offline transition despite two devices.
	got := sink.all()
	require.Len(t, got, 2)
	assert.True(t, got[0].online)
	assert.False(t, got[1].online)
}

func TestRouteToReachesEveryDevice(t *testing.T) {
	r := NewRegistry(nil)
	userID := uuid.New()
	phone, laptop := &memConn{}, &memConn{}
	r.Connect(userID, "phone", phone)
	r.Connect(userID, "laptop", laptop)

	delivered := r.RouteTo(userID, []byte("ping"))
	assert.True(t, delivered)
	assert.Equal(t, 1, phone.sentCount())
	assert.Equal(t, 1, laptop.sentCount())

	assert.False(t, r.RouteTo(uuid.New(), []byte("ping")), "unknown user takes nothing")
}

func TestDeadConnectionImpliesDisconnect(t *testing.T) {
	sink := &recordingSink{}
	r := NewRegistry(sink)
	userID := uuid.New()
	dead := &memConn{fail: true}
	r.Connect(userID, "c1", dead)

	r.RouteTo(userID, []byte("ping"))

	assert.False(t, r.IsOnline(userID))
	assert.True(t, dead.closed)
	got := sink.all()
	require.Len(t, got, 2)
	assert.False(t, got[1].online)
}

func TestBroadcast(t *testing.T) {
	r := NewRegistry(nil)
	a, b := uuid.New(), uuid.New()
	connA, connB := &memConn{}, &memConn{}
	r.Connect(a, "c1", connA)
	r.Connect(b, "c1", connB)

	r.Broadcast([]byte("announcement"))

	assert.Equal(t, 1, connA.sentCount())
	assert.Equal(t, 1, connB.sentCount())
}

func TestOnlineUsers(t *testing.T) {
	r := NewRegistry(nil)
	a, b := uuid.New(), uuid.New()
	r.Connect(a, "c1", &memConn{})
	r.Connect(b, "c1", &memConn{})
	r.Disconnect(b, "c1")

	online := r.OnlineUsers()
	require.Len(t, online, 1)
	assert.Equal(t, a, online[0])
}

func TestConcurrentConnectDisconnect(t *testing.T) {
	r := NewRegistry(&recordingSink{})
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := uuid.NewString()
			r.Connect(userID, connID, &memConn{})
			r.RouteTo(userID, []byte("x"))
			r.Disconnect(userID, connID)
		}(i)
	}
	wg.Wait()

	assert.False(t, r.IsOnline(userID))
}

func TestReconnectDuringDisconnectStaysRoutable(t *testing.T) {
	r := NewRegistry(&recordingSink{})
	userID := uuid.New()

	// A reconnect racing the old connection's teardown must leave the
	// new connection registered and routable.
	for i := 0; i < 1000; i++ {
		oldConn, newConn := &memConn{}, &memConn{}
		r.Connect(userID, "old", oldConn)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Disconnect(userID, "old")
		}()
		go func() {
			defer wg.Done()
			r.Connect(userID, "new", newConn)
		}()
		wg.Wait()

		require.True(t, r.IsOnline(userID), "iteration %d: user offline with a live connection", i)
		require.True(t, r.RouteTo(userID, []byte("x")), "iteration %d: live connection unroutable", i)
		require.Equal(t, 1, newConn.sentCount(), "iteration %d", i)

		r.Disconnect(userID, "new")
	}
}

func TestShutdownClosesEverything(t *testing.T) {
	r := NewRegistry(nil)
	userID := uuid.New()
	conn := &memConn{}
	r.Connect(userID, "c1", conn)

	r.Shutdown()

	assert.True(t, conn.closed)
	assert.False(t, r.IsOnline(userID))
}
