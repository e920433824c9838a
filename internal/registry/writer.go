package registry

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/stregea/LiveChatOverlay/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 32
)

// sessionWriter owns all writes to one WebSocket connection. The registry
// goroutine never touches the conn directly; it pushes serialized payloads
// into sendChannel and the writer drains them in FIFO order.
type sessionWriter struct {
	connection  *websocket.Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newSessionWriter(connection *websocket.Conn, clock clockwork.Clock) *sessionWriter {
	sw := &sessionWriter{
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	sw.configurePongHandler()
	sw.wg.Add(1)
	go sw.run()
	return sw
}

func (sw *sessionWriter) run() {
	ticker := sw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer sw.wg.Done()

	for {
		select {
		case msg, ok := <-sw.sendChannel:
			if !ok {
				return
			}
			sw.updateWriteDeadline()
			if err := sw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			sw.updateWriteDeadline()
			if err := sw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Ping failed - client likely disconnected
				metrics.RegistryPingFailures.Inc()
				return
			}
		case <-sw.doneChannel:
			return
		}
	}
}

// enqueue hands a serialized payload to the writer without blocking.
// Returns false when the buffer is full; the message is dropped for this
// session only.
func (sw *sessionWriter) enqueue(msg []byte) bool {
	select {
	case sw.sendChannel <- msg:
		return true
	default:
		return false
	}
}

func (sw *sessionWriter) stop() {
	sw.stopOnce.Do(func() {
		close(sw.doneChannel)
		_ = sw.connection.Close()
	})
	sw.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with code and reason before
// closing. Used by CloseAll at shutdown.
func (sw *sessionWriter) stopGraceful(code int, reason string) {
	sw.stopOnce.Do(func() {
		// Signal the run goroutine to exit first, then wait for it, so the
		// close frame is never written concurrently with a payload.
		close(sw.doneChannel)
		sw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(code, reason)
		sw.updateWriteDeadline()
		_ = sw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = sw.connection.Close()
	})
}

func (sw *sessionWriter) configurePongHandler() {
	sw.updateReadDeadline()
	sw.connection.SetPongHandler(func(string) error {
		sw.updateReadDeadline()
		return nil
	})
}

func (sw *sessionWriter) updateWriteDeadline() {
	deadline := sw.clock.Now().Add(writeDeadline)
	_ = sw.connection.SetWriteDeadline(deadline)
}

func (sw *sessionWriter) updateReadDeadline() {
	deadline := sw.clock.Now().Add(pongDeadline)
	_ = sw.connection.SetReadDeadline(deadline)
}
