package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/stregea/LiveChatOverlay/internal/domain"
	"github.com/stregea/LiveChatOverlay/internal/metrics"
)

const commandTimeout = 5 * time.Second

// registryCmd is the command interface for the Registry actor.
type registryCmd interface{ isRegistryCmd() }

type baseRegistryCmd struct{}

func (baseRegistryCmd) isRegistryCmd() {}

type registerCmd struct {
	baseRegistryCmd
	sessionID  uuid.UUID
	connection *websocket.Conn
	snapshot   func() (domain.Envelope, error)
}

type unregisterCmd struct {
	baseRegistryCmd
	sessionID uuid.UUID
}

type broadcastCmd struct {
	baseRegistryCmd
	eventType domain.EventType
	data      []byte
}

type sendToCmd struct {
	baseRegistryCmd
	sessionID    uuid.UUID
	data         []byte
	replyChannel chan bool
}

type countCmd struct {
	baseRegistryCmd
	replyChannel chan int
}

type closeAllCmd struct {
	baseRegistryCmd
	code   int
	reason string
}

// Registry maintains the authoritative set of open sessions and is the only
// component that writes to transports. A single goroutine owns the map; the
// public API translates calls into commands.
type Registry struct {
	cmdCh    chan registryCmd
	clock    clockwork.Clock
	sessions map[uuid.UUID]*sessionWriter
	done     chan struct{}
}

// New creates a registry and starts its actor goroutine.
func New(clock clockwork.Clock) *Registry {
	r := &Registry{
		cmdCh:    make(chan registryCmd, 256),
		clock:    clock,
		sessions: make(map[uuid.UUID]*sessionWriter),
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

// Register adds a session to the set. Each accepted connection is registered
// exactly once; the caller owns that contract. A non-nil snapshot is evaluated
// by the actor at registration time and enqueued to the new session ahead of
// everything else, so the session starts from a document at least as new as
// any broadcast already queued and receives every later broadcast after it.
func (r *Registry) Register(sessionID uuid.UUID, conn *websocket.Conn, snapshot func() (domain.Envelope, error)) {
	r.submit(registerCmd{sessionID: sessionID, connection: conn, snapshot: snapshot})
}

// Unregister removes a session. A no-op for unknown sessions, so
// close-then-unregister races are safe.
func (r *Registry) Unregister(sessionID uuid.UUID) {
	r.submit(unregisterCmd{sessionID: sessionID})
}

// Broadcast serializes the envelope once and sends it to every currently open
// session. A session whose buffer is full misses this message; it is not
// removed. Delivery is best-effort per session and never aborts the fan-out.
func (r *Registry) Broadcast(env domain.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal broadcast envelope", "type", string(env.Type), "error", err)
		return
	}
	metrics.RegistryBroadcastsTotal.WithLabelValues(string(env.Type)).Inc()
	r.submit(broadcastCmd{eventType: env.Type, data: data})
}

// SendTo unicasts the envelope to one session. Returns whether the session
// was open and the payload was enqueued. Used for the initial configuration
// snapshot and for error replies.
func (r *Registry) SendTo(sessionID uuid.UUID, env domain.Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal unicast envelope", "type", string(env.Type), "error", err)
		return false
	}

	replyCh := make(chan bool, 1)
	if !r.submit(sendToCmd{sessionID: sessionID, data: data, replyChannel: replyCh}) {
		return false
	}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case ok := <-replyCh:
		return ok
	case <-timer.Chan():
		slog.Warn("SendTo timed out", "session_id", sessionID.String(), "timeout", commandTimeout)
		return false
	case <-r.done:
		return false
	}
}

// Count returns the current open-session count. Observability only - never
// used for control decisions. Returns 0 after shutdown.
func (r *Registry) Count() int {
	replyCh := make(chan int, 1)
	if !r.submit(countCmd{replyChannel: replyCh}) {
		return 0
	}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("Count timed out", "timeout", commandTimeout)
		return 0
	case <-r.done:
		return 0
	}
}

// CloseAll closes every session with the given close code and reason,
// swallowing individual close errors, then clears the set and stops the
// actor. Used once at shutdown.
func (r *Registry) CloseAll(code int, reason string) {
	r.submit(closeAllCmd{code: code, reason: reason})
	<-r.done
}

// submit enqueues a command unless the registry has already shut down.
func (r *Registry) submit(cmd registryCmd) bool {
	select {
	case <-r.done:
		return false
	case r.cmdCh <- cmd:
		return true
	}
}

func (r *Registry) run() {
	defer close(r.done)

	// Panic recovery so a transport primitive blowing up can never take the
	// fan-out loop down with it.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Registry panic recovered", "panic", rec)
			r.closeAllSessions(websocket.CloseInternalServerErr, "internal error")
		}
	}()

	depthTicker := r.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			metrics.RegistryCommandChannelDepth.Set(float64(len(r.cmdCh)))
		case cmd := <-r.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				r.handleRegister(c)
			case unregisterCmd:
				r.handleUnregister(c)
			case broadcastCmd:
				r.handleBroadcast(c)
			case sendToCmd:
				r.handleSendTo(c)
			case countCmd:
				c.replyChannel <- len(r.sessions)
			case closeAllCmd:
				r.closeAllSessions(c.code, c.reason)
				return
			default:
				slog.Warn("Registry received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (r *Registry) handleRegister(c registerCmd) {
	sw := newSessionWriter(c.connection, r.clock)
	r.sessions[c.sessionID] = sw
	metrics.RegistryOpenSessions.Set(float64(len(r.sessions)))

	// Built here, inside the actor: the snapshot reflects every transition
	// whose broadcast is already queued ahead of this command, and it enters
	// the writer queue before any broadcast that arrives after.
	if c.snapshot != nil {
		env, err := c.snapshot()
		if err != nil {
			slog.Error("Failed to build registration snapshot", "session_id", c.sessionID.String(), "error", err)
		} else if data, err := json.Marshal(env); err != nil {
			slog.Error("Failed to marshal registration snapshot", "session_id", c.sessionID.String(), "error", err)
		} else {
			sw.enqueue(data)
		}
	}

	slog.Info("Session registered", "session_id", c.sessionID.String(), "open_sessions", len(r.sessions))
}

func (r *Registry) handleUnregister(c unregisterCmd) {
	sw, exists := r.sessions[c.sessionID]
	if !exists {
		return
	}

	sw.stop()
	delete(r.sessions, c.sessionID)
	metrics.RegistryOpenSessions.Set(float64(len(r.sessions)))
	slog.Info("Session unregistered", "session_id", c.sessionID.String(), "open_sessions", len(r.sessions))
}

func (r *Registry) handleBroadcast(c broadcastCmd) {
	for sessionID, sw := range r.sessions {
		if !sw.enqueue(c.data) {
			metrics.RegistryDroppedMessagesTotal.Inc()
			slog.Warn("Dropped message for slow session",
				"session_id", sessionID.String(),
				"type", string(c.eventType),
			)
		}
	}
}

func (r *Registry) handleSendTo(c sendToCmd) {
	sw, exists := r.sessions[c.sessionID]
	if !exists {
		c.replyChannel <- false
		return
	}
	c.replyChannel <- sw.enqueue(c.data)
}

func (r *Registry) closeAllSessions(code int, reason string) {
	slog.Info("Closing all sessions", "open_sessions", len(r.sessions), "reason", reason)
	for sessionID, sw := range r.sessions {
		sw.stopGraceful(code, reason)
		delete(r.sessions, sessionID)
	}
	metrics.RegistryOpenSessions.Set(0)
}
