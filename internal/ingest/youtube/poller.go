package youtube

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/stregea/LiveChatOverlay/internal/metrics"
	"github.com/stregea/LiveChatOverlay/internal/platform/retry"
)

const (
	minPollInterval    = 2 * time.Second
	breakerMaxFailures = 5
	breakerOpenFor     = 30 * time.Second
)

// Poller drives the liveChatMessages polling loop for one video and hands
// every normalized message to its sink.
type Poller struct {
	api            chatAPI
	sink           Sink
	breaker        *gobreaker.CircuitBreaker
	minInterval    time.Duration
	resolveBackoff time.Duration
}

// NewPoller creates a poller over the given API client.
func NewPoller(api chatAPI, sink Sink) *Poller {
	settings := gobreaker.Settings{
		Name:    "youtube-poll",
		Timeout: breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			slog.Warn("YouTube poll circuit state changed", "from", from.String(), "to", to.String())
			metrics.IngestCircuitState.Set(circuitStateValue(to))
		},
	}
	return &Poller{
		api:            api,
		sink:           sink,
		breaker:        gobreaker.NewCircuitBreaker(settings),
		minInterval:    minPollInterval,
		resolveBackoff: time.Second,
	}
}

// Run resolves the video's live chat and polls it until ctx is cancelled or
// the chat ends. The wait between polls honors the API's
// pollingIntervalMillis, floored at minPollInterval to protect quota.
func (p *Poller) Run(ctx context.Context, videoID string) error {
	policy := retry.Policy{
		MaxAttempts:      3,
		InitialBackoff:   p.resolveBackoff,
		RateLimitBackoff: 30 * time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.WarnContext(ctx, "Retrying live chat resolution", "video_id", videoID, "attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	chatID, err := retry.Do(ctx, policy, classify, func() (string, error) {
		return p.api.LiveChatID(ctx, videoID)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "YouTube live chat resolved", "video_id", videoID)

	pageToken := ""
	for {
		page, err := p.poll(ctx, chatID, pageToken)
		if err != nil {
			if errors.Is(err, ErrChatEnded) || ctx.Err() != nil {
				return err
			}
			slog.WarnContext(ctx, "YouTube poll failed", "video_id", videoID, "error", err)
			if !sleep(ctx, p.minInterval) {
				return ctx.Err()
			}
			continue
		}

		for _, msg := range page.messages {
			metrics.IngestMessagesTotal.WithLabelValues(string(msg.Platform)).Inc()
			p.sink(msg)
		}
		pageToken = page.nextPageToken

		wait := time.Duration(page.pollAfterMs) * time.Millisecond
		if wait < p.minInterval {
			wait = p.minInterval
		}
		if !sleep(ctx, wait) {
			return ctx.Err()
		}
	}
}

func (p *Poller) poll(ctx context.Context, chatID, pageToken string) (*chatPage, error) {
	start := time.Now()
	result, err := p.breaker.Execute(func() (any, error) {
		return p.api.Messages(ctx, chatID, pageToken)
	})
	metrics.IngestPollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return result.(*chatPage), nil
}

func classify(err error) retry.Action {
	if errors.Is(err, ErrChatEnded) || errors.Is(err, context.Canceled) {
		return retry.Stop
	}
	return retry.Retry
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func circuitStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
