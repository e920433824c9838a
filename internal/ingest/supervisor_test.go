package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stregea/LiveChatOverlay/internal/domain"
	"github.com/stregea/LiveChatOverlay/internal/platform/correlation"
)

// fakeRunner records every Run call and blocks until its context is cancelled.
type fakeRunner struct {
	mu    sync.Mutex
	runs  []string
	alive int
}

func (r *fakeRunner) Run(ctx context.Context, identifier string) error {
	r.mu.Lock()
	r.runs = append(r.runs, identifier)
	r.alive++
	r.mu.Unlock()

	<-ctx.Done()

	r.mu.Lock()
	r.alive--
	r.mu.Unlock()
	return ctx.Err()
}

func (r *fakeRunner) identifiers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func (r *fakeRunner) running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alive
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func configWith(yt, tw string) domain.OverlayConfig {
	cfg := domain.DefaultOverlayConfig()
	if yt != "" {
		cfg.Platforms.YouTube = domain.YouTubeConnection{Enabled: true, VideoID: yt}
	}
	if tw != "" {
		cfg.Platforms.Twitch = domain.TwitchConnection{Enabled: true, ChannelID: tw}
	}
	return cfg
}

func TestSupervisor_StartsWorkerForEnabledPlatform(t *testing.T) {
	runner := &fakeRunner{}
	sup := New(func([]byte) {})
	defer sup.Stop()
	sup.SetRunner(domain.PlatformTwitch, runner)

	sup.Apply(configWith("", "somestreamer"))

	waitFor(t, func() bool { return runner.running() == 1 })
	assert.Equal(t, []string{"somestreamer"}, runner.identifiers())
}

func TestSupervisor_StopsWorkerWhenPlatformDisabled(t *testing.T) {
	runner := &fakeRunner{}
	sup := New(func([]byte) {})
	defer sup.Stop()
	sup.SetRunner(domain.PlatformTwitch, runner)

	sup.Apply(configWith("", "somestreamer"))
	waitFor(t, func() bool { return runner.running() == 1 })

	sup.Apply(configWith("", ""))
	waitFor(t, func() bool { return runner.running() == 0 })
}

func TestSupervisor_RestartsWorkerOnIdentifierChange(t *testing.T) {
	runner := &fakeRunner{}
	sup := New(func([]byte) {})
	defer sup.Stop()
	sup.SetRunner(domain.PlatformTwitch, runner)

	sup.Apply(configWith("", "first"))
	waitFor(t, func() bool { return len(runner.identifiers()) == 1 })

	sup.Apply(configWith("", "second"))
	waitFor(t, func() bool {
		ids := runner.identifiers()
		return len(ids) == 2 && ids[1] == "second"
	})
}

func TestSupervisor_UnchangedConfigKeepsWorker(t *testing.T) {
	runner := &fakeRunner{}
	sup := New(func([]byte) {})
	defer sup.Stop()
	sup.SetRunner(domain.PlatformTwitch, runner)

	sup.Apply(configWith("", "somestreamer"))
	waitFor(t, func() bool { return runner.running() == 1 })
	sup.Apply(configWith("", "somestreamer"))

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, runner.identifiers(), 1, "re-applying the same document must not restart the worker")
}

func TestSupervisor_RunsBothPlatforms(t *testing.T) {
	ytRunner := &fakeRunner{}
	twRunner := &fakeRunner{}
	sup := New(func([]byte) {})
	defer sup.Stop()
	sup.SetRunner(domain.PlatformYouTube, ytRunner)
	sup.SetRunner(domain.PlatformTwitch, twRunner)

	sup.Apply(configWith("abc123", "somestreamer"))

	waitFor(t, func() bool { return ytRunner.running() == 1 && twRunner.running() == 1 })
	assert.Equal(t, []string{"abc123"}, ytRunner.identifiers())
	assert.Equal(t, []string{"somestreamer"}, twRunner.identifiers())
}

func TestSupervisor_SkipsPlatformWithoutRunner(t *testing.T) {
	twRunner := &fakeRunner{}
	sup := New(func([]byte) {})
	defer sup.Stop()
	sup.SetRunner(domain.PlatformTwitch, twRunner)

	// YouTube is enabled but no runner is registered (missing credentials).
	sup.Apply(configWith("abc123", "somestreamer"))

	waitFor(t, func() bool { return twRunner.running() == 1 })
}

func TestSupervisor_StopWaitsForWorkers(t *testing.T) {
	runner := &fakeRunner{}
	sup := New(func([]byte) {})
	sup.SetRunner(domain.PlatformTwitch, runner)

	sup.Apply(configWith("", "somestreamer"))
	waitFor(t, func() bool { return runner.running() == 1 })

	sup.Stop()
	assert.Zero(t, runner.running(), "Stop returns only after workers exited")

	// Apply after Stop is a no-op.
	sup.Apply(configWith("", "another"))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, runner.running())
}

func TestSupervisor_WorkerContextCarriesCorrelationID(t *testing.T) {
	runner := &ctxRunner{}
	sup := New(func([]byte) {})
	defer sup.Stop()
	sup.SetRunner(domain.PlatformTwitch, runner)

	sup.Apply(configWith("", "somestreamer"))

	waitFor(t, func() bool { return runner.seenID() != "" })
	assert.Len(t, runner.seenID(), 8)
}

// ctxRunner captures the correlation ID from its context.
type ctxRunner struct {
	mu sync.Mutex
	id string
}

func (r *ctxRunner) Run(ctx context.Context, _ string) error {
	id, _ := correlation.ID(ctx)
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

func (r *ctxRunner) seenID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func TestSupervisor_ForwardWrapsMessageInEnvelope(t *testing.T) {
	var mu sync.Mutex
	var delivered [][]byte
	sup := New(func(raw []byte) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, raw)
	})
	defer sup.Stop()

	sup.Forward(domain.ChatMessage{
		ID:       "msg-1",
		Username: "viewer",
		Message:  "hello",
		Platform: domain.PlatformTwitch,
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)

	var env domain.Envelope
	require.NoError(t, json.Unmarshal(delivered[0], &env))
	assert.Equal(t, domain.EventChatMessage, env.Type)

	var msg domain.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, "viewer", msg.Username)
	assert.Equal(t, domain.PlatformTwitch, msg.Platform)
}
