package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/stregea/LiveChatOverlay/internal/domain"
	"github.com/stregea/LiveChatOverlay/internal/metrics"
	"github.com/stregea/LiveChatOverlay/internal/platform/correlation"
)

const restartBackoff = 5 * time.Second

// Runner is one platform's chat worker. The identifier is the video ID for
// YouTube and the channel name for Twitch.
type Runner interface {
	Run(ctx context.Context, identifier string) error
}

// Deliver hands a raw chat-message envelope to the router.
type Deliver func(raw []byte)

type worker struct {
	identifier string
	cancel     context.CancelFunc
}

// Supervisor starts and stops platform workers to match the current
// configuration document.
type Supervisor struct {
	mu      sync.Mutex
	runners map[domain.Platform]Runner
	workers map[domain.Platform]*worker
	deliver Deliver
	wg      sync.WaitGroup
	stopped bool
}

// New creates a supervisor delivering chat envelopes through deliver.
// Register runners with SetRunner before the first Apply.
func New(deliver Deliver) *Supervisor {
	return &Supervisor{
		runners: make(map[domain.Platform]Runner),
		workers: make(map[domain.Platform]*worker),
		deliver: deliver,
	}
}

// SetRunner registers the worker implementation for a platform. A platform
// without a runner (missing credentials) is skipped during reconciliation.
func (s *Supervisor) SetRunner(p domain.Platform, r Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[p] = r
}

// Forward is the Sink shared by all workers: it wraps the message in a
// chat-message envelope and pushes it through the router's single entry point.
func (s *Supervisor) Forward(msg domain.ChatMessage) {
	env, err := domain.NewEnvelope(domain.EventChatMessage, msg)
	if err != nil {
		slog.Error("Failed to build chat envelope", "platform", string(msg.Platform), "error", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to serialize chat envelope", "platform", string(msg.Platform), "error", err)
		return
	}
	s.deliver(data)
}

// Apply reconciles running workers against the document's platform state.
// Registered as a ConfigListener on the router.
func (s *Supervisor) Apply(cfg domain.OverlayConfig) {
	desired := map[domain.Platform]string{}
	if cfg.Platforms.YouTube.Enabled {
		desired[domain.PlatformYouTube] = cfg.Platforms.YouTube.VideoID
	}
	if cfg.Platforms.Twitch.Enabled {
		desired[domain.PlatformTwitch] = cfg.Platforms.Twitch.ChannelID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	for platform, w := range s.workers {
		identifier, wanted := desired[platform]
		if wanted && identifier == w.identifier {
			continue
		}
		slog.Info("Stopping ingest worker", "platform", string(platform), "identifier", w.identifier)
		w.cancel()
		delete(s.workers, platform)
	}

	for platform, identifier := range desired {
		if _, running := s.workers[platform]; running {
			continue
		}
		runner, ok := s.runners[platform]
		if !ok {
			slog.Warn("No ingest runner for platform, skipping", "platform", string(platform))
			continue
		}
		s.startWorker(platform, runner, identifier)
	}
}

// Stop cancels all workers and waits for them to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	for platform, w := range s.workers {
		w.cancel()
		delete(s.workers, platform)
	}
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("Ingest supervisor stopped")
}

// startWorker launches a restart loop for one platform. Caller holds s.mu.
// Each worker gets its own correlation ID, shared by every log line the
// worker emits across restarts.
func (s *Supervisor) startWorker(platform domain.Platform, runner Runner, identifier string) {
	ctx, cancel := context.WithCancel(correlation.WithID(context.Background(), correlation.NewID()))
	s.workers[platform] = &worker{identifier: identifier, cancel: cancel}

	slog.InfoContext(ctx, "Starting ingest worker", "platform", string(platform), "identifier", identifier)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			err := runner.Run(ctx, identifier)
			if ctx.Err() != nil {
				return
			}

			metrics.IngestReconnectsTotal.WithLabelValues(string(platform)).Inc()
			slog.WarnContext(ctx, "Ingest worker exited, restarting",
				"platform", string(platform),
				"identifier", identifier,
				"backoff", restartBackoff,
				"error", err,
			)

			timer := time.NewTimer(restartBackoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()
}
