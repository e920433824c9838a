// Package twitch reads a channel's chat over IRC and normalizes every message
// into the relay's ChatMessage shape. The core never sees IRC tags or emote
// indices - normalization happens entirely here.
package twitch

import (
	"context"
	"fmt"
	"sort"
	"time"

	irc "github.com/gempir/go-twitch-irc/v4"
	"github.com/google/uuid"

	"github.com/stregea/LiveChatOverlay/internal/domain"
	"github.com/stregea/LiveChatOverlay/internal/metrics"
)

// Sink receives each normalized chat message.
type Sink func(msg domain.ChatMessage)

// Listener connects to one Twitch channel's chat. With empty credentials it
// connects anonymously, which Twitch permits for reading.
type Listener struct {
	username string
	oauth    string
	sink     Sink
}

func NewListener(username, oauth string, sink Sink) *Listener {
	return &Listener{username: username, oauth: oauth, sink: sink}
}

// Run connects and blocks until ctx is cancelled or the connection fails.
func (l *Listener) Run(ctx context.Context, channel string) error {
	var client *irc.Client
	if l.username != "" {
		client = irc.NewClient(l.username, l.oauth)
	} else {
		client = irc.NewAnonymousClient()
	}

	client.OnPrivateMessage(func(msg irc.PrivateMessage) {
		metrics.IngestMessagesTotal.WithLabelValues(string(domain.PlatformTwitch)).Inc()
		l.sink(Normalize(msg))
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = client.Disconnect()
		close(done)
	}()

	client.Join(channel)
	err := client.Connect()

	if ctx.Err() != nil {
		<-done
		return ctx.Err()
	}
	return fmt.Errorf("twitch chat connection closed: %w", err)
}

// Normalize converts an IRC message into the relay's ChatMessage shape.
// Bits cheers surface as donation messages with a display amount.
func Normalize(msg irc.PrivateMessage) domain.ChatMessage {
	out := domain.ChatMessage{
		ID:          msg.ID,
		Username:    msg.User.DisplayName,
		Message:     msg.Message,
		Platform:    domain.PlatformTwitch,
		Color:       msg.User.Color,
		IsModerator: msg.User.Badges["moderator"] > 0 || msg.User.Badges["broadcaster"] > 0,
		Badges:      badgeList(msg.User.Badges),
		Timestamp:   msg.Time,
	}

	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Username == "" {
		out.Username = msg.User.Name
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}
	if msg.Bits > 0 {
		out.IsSuperchat = true
		out.Amount = fmt.Sprintf("%d bits", msg.Bits)
	}

	return out
}

func badgeList(badges map[string]int) []string {
	if len(badges) == 0 {
		return nil
	}
	names := make([]string, 0, len(badges))
	for name, version := range badges {
		names = append(names, fmt.Sprintf("%s/%d", name, version))
	}
	sort.Strings(names)
	return names
}
