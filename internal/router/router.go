package router

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stregea/LiveChatOverlay/internal/domain"
	"github.com/stregea/LiveChatOverlay/internal/metrics"
	"github.com/stregea/LiveChatOverlay/internal/state"
)

// outcome values used as metric labels.
const (
	outcomeApplied  = "applied"
	outcomeIgnored  = "ignored"
	outcomeRejected = "rejected"
)

// instruction is the explicit result of dispatching one event: an optional
// broadcast to all sessions, an optional unicast reply to the sender, and the
// new document when a state transition happened.
type instruction struct {
	broadcast *domain.Envelope
	reply     *domain.Envelope
	changed   *domain.OverlayConfig
	outcome   string
}

// Router classifies inbound session events and drives the state store and
// registry. It is the only component that mutates the store.
type Router struct {
	store       *state.Store
	broadcaster domain.Broadcaster
	listeners   []domain.ConfigListener
}

// New creates a router over the given store and broadcaster.
func New(store *state.Store, broadcaster domain.Broadcaster) *Router {
	return &Router{store: store, broadcaster: broadcaster}
}

// OnConfigChange registers a listener invoked with the full document after
// every applied state transition. Must be called before the server starts
// accepting sessions; the listener list is not mutated afterwards.
func (r *Router) OnConfigChange(l domain.ConfigListener) {
	r.listeners = append(r.listeners, l)
}

// ConfigSnapshot builds the configuration envelope a newly registered session
// starts from. The registry evaluates it inside its actor at registration
// time, so the snapshot is at least as new as any broadcast queued ahead of
// the session and reaches the session before any broadcast that follows. This
// is what lets a late-joining display surface catch up without waiting for
// the next change.
func (r *Router) ConfigSnapshot() (domain.Envelope, error) {
	return domain.NewEnvelope(domain.EventConfig, r.store.Get())
}

// HandleMessage processes one raw inbound message from a session. Malformed
// or invalid events are dropped from the state-mutation perspective; the
// sender gets an error reply and stays connected.
func (r *Router) HandleMessage(sessionID uuid.UUID, raw []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.RouterMalformedEventsTotal.Inc()
		slog.Warn("Dropping unparseable event", "session_id", sessionID.String(), "error", err)
		r.sendReply(sessionID, errorReply("", "malformed envelope"))
		return
	}

	ins := r.dispatch(env)
	metrics.RouterEventsTotal.WithLabelValues(string(env.Type), ins.outcome).Inc()

	if ins.broadcast != nil {
		r.broadcaster.Broadcast(*ins.broadcast)
	}
	if ins.reply != nil {
		r.sendReply(sessionID, *ins.reply)
	}
	if ins.changed != nil {
		for _, l := range r.listeners {
			l(*ins.changed)
		}
	}
}

// dispatch classifies the envelope and applies the matching transition.
// It performs no I/O; everything it decides comes back as an instruction.
func (r *Router) dispatch(env domain.Envelope) instruction {
	switch env.Type {
	case domain.EventConfig:
		return r.dispatchConfig(env.Data)
	case domain.EventChatMessage:
		// Broadcast verbatim - chat events never touch the store.
		return instruction{
			broadcast: &domain.Envelope{Type: domain.EventChatMessage, Data: env.Data},
			outcome:   outcomeApplied,
		}
	case domain.EventConnect:
		return r.dispatchConnect(env.Data)
	case domain.EventDisconnect:
		return r.dispatchDisconnect(env.Data)
	case domain.EventTestSound:
		return instruction{
			broadcast: &domain.Envelope{Type: domain.EventTestSound, Data: json.RawMessage(`{}`)},
			outcome:   outcomeApplied,
		}
	default:
		slog.Warn("Ignoring event with unrecognized type", "type", string(env.Type))
		return instruction{outcome: outcomeIgnored}
	}
}

func (r *Router) dispatchConfig(data json.RawMessage) instruction {
	update, err := state.DecodeUpdate(data)
	if err != nil {
		slog.Warn("Rejecting config update", "error", err)
		reply := errorReply(string(domain.EventConfig), "invalid config update")
		return instruction{reply: &reply, outcome: outcomeRejected}
	}

	cfg := r.store.Apply(update)
	return r.configBroadcast(cfg)
}

func (r *Router) dispatchConnect(data json.RawMessage) instruction {
	var req domain.ConnectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Warn("Rejecting connect with unparseable data", "error", err)
		reply := errorReply(string(domain.EventConnect), "invalid connect request")
		return instruction{reply: &reply, outcome: outcomeRejected}
	}

	platform, ok := domain.ParsePlatform(req.Platform)
	if !ok {
		slog.Warn("Rejecting connect for unknown platform", "platform", req.Platform)
		reply := errorReply(string(domain.EventConnect), "unknown platform: "+req.Platform)
		return instruction{reply: &reply, outcome: outcomeRejected}
	}

	identifier := req.VideoID
	if platform == domain.PlatformTwitch {
		identifier = req.ChannelID
	}
	if identifier == "" {
		slog.Warn("Rejecting connect without identifier", "platform", req.Platform)
		reply := errorReply(string(domain.EventConnect), "missing identifier for "+req.Platform)
		return instruction{reply: &reply, outcome: outcomeRejected}
	}

	active := r.store.ConnectPlatform(platform, identifier)
	slog.Info("Platform connected", "platform", string(platform), "active_platforms", active)

	return r.configBroadcast(r.store.Get())
}

func (r *Router) dispatchDisconnect(data json.RawMessage) instruction {
	var req domain.DisconnectRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			slog.Warn("Rejecting disconnect with unparseable data", "error", err)
			reply := errorReply(string(domain.EventDisconnect), "invalid disconnect request")
			return instruction{reply: &reply, outcome: outcomeRejected}
		}
	}

	if req.Platform == "" {
		r.store.DisconnectAll()
		slog.Info("All platforms disconnected")
	} else if platform, ok := domain.ParsePlatform(req.Platform); ok {
		r.store.DisconnectPlatform(platform)
		slog.Info("Platform disconnected", "platform", string(platform))
	} else {
		// Unknown platform is a no-op, not an error; the broadcast still
		// carries the (unchanged) document.
		slog.Warn("Ignoring disconnect for unknown platform", "platform", req.Platform)
	}

	return r.configBroadcast(r.store.Get())
}

func (r *Router) configBroadcast(cfg domain.OverlayConfig) instruction {
	env, err := domain.NewEnvelope(domain.EventConfig, cfg)
	if err != nil {
		slog.Error("Failed to build config broadcast", "error", err)
		return instruction{outcome: outcomeIgnored}
	}
	return instruction{broadcast: &env, changed: &cfg, outcome: outcomeApplied}
}

func (r *Router) sendReply(sessionID uuid.UUID, env domain.Envelope) {
	if !r.broadcaster.SendTo(sessionID, env) {
		slog.Debug("Error reply not delivered", "session_id", sessionID.String())
	}
}

func errorReply(inResponseTo, reason string) domain.Envelope {
	env, _ := domain.NewEnvelope(domain.EventError, domain.ErrorReply{
		InResponseTo: inResponseTo,
		Reason:       reason,
	})
	return env
}
