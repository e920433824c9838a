package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stregea/LiveChatOverlay/internal/domain"
)

// testRegistry sets up a registry behind a test HTTP server. Dialing yields
// the client side of a registered session.
func testRegistry(t *testing.T) (*Registry, func(sessionID uuid.UUID) *ws.Conn) {
	t.Helper()

	reg := New(clockwork.NewRealClock())
	t.Cleanup(func() { reg.CloseAll(ws.CloseGoingAway, "test teardown") })

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		sessionID := uuid.MustParse(r.URL.Query().Get("session"))
		reg.Register(sessionID, conn, nil)

		go func() {
			defer reg.Unregister(sessionID)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(func() { server.Close() })

	dial := func(sessionID uuid.UUID) *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID.String()
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return reg, dial
}

// newTestConnPair returns both ends of one websocket connection, so a test
// can hold the server side and register it by hand.
func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	serverCh := make(chan *ws.Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverCh <- conn
	}))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server = <-serverCh
	return server, client
}

func waitForCount(reg *Registry, expected int) bool {
	for range 100 {
		if reg.Count() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func readEnvelope(t *testing.T, conn *ws.Conn) domain.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var env domain.Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestRegistry_BroadcastReachesAllSessions(t *testing.T) {
	reg, dial := testRegistry(t)

	conns := make([]*ws.Conn, 3)
	for i := range conns {
		conns[i] = dial(uuid.New())
	}
	require.True(t, waitForCount(reg, 3))

	env, err := domain.NewEnvelope(domain.EventChatMessage, map[string]string{"message": "hello"})
	require.NoError(t, err)
	reg.Broadcast(env)

	for _, conn := range conns {
		got := readEnvelope(t, conn)
		assert.Equal(t, domain.EventChatMessage, got.Type)

		var data map[string]string
		require.NoError(t, json.Unmarshal(got.Data, &data))
		assert.Equal(t, "hello", data["message"])
	}

	// Exactly once per session: no second frame is pending.
	conns[0].SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = conns[0].ReadMessage()
	assert.Error(t, err)
}

func TestRegistry_UnregisteredSessionMissesBroadcast(t *testing.T) {
	reg, dial := testRegistry(t)

	staying := dial(uuid.New())
	leaving := dial(uuid.New())
	require.True(t, waitForCount(reg, 2))

	leaving.Close()
	require.True(t, waitForCount(reg, 1))

	env, err := domain.NewEnvelope(domain.EventConfig, map[string]any{})
	require.NoError(t, err)
	reg.Broadcast(env)

	got := readEnvelope(t, staying)
	assert.Equal(t, domain.EventConfig, got.Type)
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	reg, dial := testRegistry(t)

	dial(uuid.New())
	require.True(t, waitForCount(reg, 1))

	reg.Unregister(uuid.New())

	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_SendTo(t *testing.T) {
	reg, dial := testRegistry(t)

	targetID := uuid.New()
	otherID := uuid.New()
	target := dial(targetID)
	other := dial(otherID)
	require.True(t, waitForCount(reg, 2))

	env, err := domain.NewEnvelope(domain.EventError, domain.ErrorReply{Reason: "bad payload"})
	require.NoError(t, err)
	assert.True(t, reg.SendTo(targetID, env))

	got := readEnvelope(t, target)
	assert.Equal(t, domain.EventError, got.Type)

	// The other session never sees the unicast.
	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestRegistry_SendToUnknownSession(t *testing.T) {
	reg, _ := testRegistry(t)

	env, err := domain.NewEnvelope(domain.EventConfig, map[string]any{})
	require.NoError(t, err)
	assert.False(t, reg.SendTo(uuid.New(), env))
}

func TestRegistry_CloseAllSendsCloseFrame(t *testing.T) {
	reg, dial := testRegistry(t)

	conn := dial(uuid.New())
	require.True(t, waitForCount(reg, 1))

	reg.CloseAll(ws.CloseGoingAway, "Server shutting down")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*ws.CloseError)
	require.True(t, ok, "expected a close frame, got %v", err)
	assert.Equal(t, ws.CloseGoingAway, closeErr.Code)
	assert.Equal(t, "Server shutting down", closeErr.Text)

	assert.Equal(t, 0, reg.Count(), "registry refuses commands after shutdown")
}

func TestRegistry_CloseAllIdempotentAPI(t *testing.T) {
	reg, dial := testRegistry(t)

	dial(uuid.New())
	require.True(t, waitForCount(reg, 1))

	reg.CloseAll(ws.CloseNormalClosure, "done")

	// Post-shutdown calls degrade to no-ops rather than blocking.
	reg.CloseAll(ws.CloseNormalClosure, "done again")
	reg.Unregister(uuid.New())
	env, err := domain.NewEnvelope(domain.EventConfig, map[string]any{})
	require.NoError(t, err)
	reg.Broadcast(env)
	assert.False(t, reg.SendTo(uuid.New(), env))
	assert.Equal(t, 0, reg.Count())
}

func TestRegistry_SlowSessionDropsButStaysRegistered(t *testing.T) {
	reg, dial := testRegistry(t)

	conn := dial(uuid.New())
	require.True(t, waitForCount(reg, 1))

	// The client never reads. Once the kernel buffers and the writer's queue
	// fill up, further broadcasts drop for this session without removing it.
	env, err := domain.NewEnvelope(domain.EventChatMessage, map[string]string{"message": strings.Repeat("x", 4096)})
	require.NoError(t, err)
	for range messageBufferSize * 8 {
		reg.Broadcast(env)
	}

	assert.Equal(t, 1, reg.Count(), "slow sessions are never evicted by broadcast")
	_ = conn
}

func TestRegistry_RegistrationSnapshotIsFirstFrame(t *testing.T) {
	reg := New(clockwork.NewRealClock())
	t.Cleanup(func() { reg.CloseAll(ws.CloseGoingAway, "test teardown") })

	serverConn, clientConn := newTestConnPair(t)

	snapshot := func() (domain.Envelope, error) {
		return domain.NewEnvelope(domain.EventConfig, map[string]string{"theme": "light"})
	}
	reg.Register(uuid.New(), serverConn, snapshot)

	got := readEnvelope(t, clientConn)
	require.Equal(t, domain.EventConfig, got.Type)
	var data map[string]string
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.Equal(t, "light", data["theme"])

	// Broadcasts submitted after registration arrive after the snapshot.
	env, err := domain.NewEnvelope(domain.EventChatMessage, map[string]string{"message": "hi"})
	require.NoError(t, err)
	reg.Broadcast(env)
	assert.Equal(t, domain.EventChatMessage, readEnvelope(t, clientConn).Type)
}

func TestRegistry_RegistrationSnapshotNeverStale(t *testing.T) {
	reg := New(clockwork.NewRealClock())
	t.Cleanup(func() { reg.CloseAll(ws.CloseGoingAway, "test teardown") })

	serverConn, clientConn := newTestConnPair(t)

	// The document mutates and its broadcast is queued before the new
	// session's registration command reaches the actor, mirroring a client
	// that connects while a config change is in flight.
	var mu sync.Mutex
	theme := "dark"
	snapshot := func() (domain.Envelope, error) {
		mu.Lock()
		defer mu.Unlock()
		return domain.NewEnvelope(domain.EventConfig, map[string]string{"theme": theme})
	}

	mu.Lock()
	theme = "light"
	mu.Unlock()
	env, err := domain.NewEnvelope(domain.EventConfig, map[string]string{"theme": "light"})
	require.NoError(t, err)
	reg.Broadcast(env)

	reg.Register(uuid.New(), serverConn, snapshot)

	// The session missed the earlier broadcast, but its snapshot was built
	// inside the actor after that broadcast was processed, so the first frame
	// already carries the newer document. The client never observes a newer
	// frame followed by an older one.
	got := readEnvelope(t, clientConn)
	require.Equal(t, domain.EventConfig, got.Type)
	var data map[string]string
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.Equal(t, "light", data["theme"])

	clientConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = clientConn.ReadMessage()
	assert.Error(t, err, "exactly one frame: the up-to-date snapshot")
}
