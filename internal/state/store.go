package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stregea/LiveChatOverlay/internal/domain"
)

// Store holds the one OverlayConfig per process. Created at startup from
// static defaults, mutated in place for the process lifetime, never persisted.
type Store struct {
	mu  sync.RWMutex
	cfg domain.OverlayConfig
}

// New creates a store seeded with the default document. The credential
// presence flags are fixed at construction and survive every merge.
func New(hasYouTubeCredentials, hasTwitchCredentials bool) *Store {
	cfg := domain.DefaultOverlayConfig()
	cfg.HasYouTubeCredentials = hasYouTubeCredentials
	cfg.HasTwitchCredentials = hasTwitchCredentials
	return &Store{cfg: cfg}
}

// Get returns a defensive copy of the full document.
func (s *Store) Get() domain.OverlayConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// DecodeUpdate parses raw JSON into an OverlayUpdate, rejecting unknown keys.
// The accepted surface is exactly the OverlayUpdate fields; anything else is
// a client bug and gets surfaced instead of silently merged.
func DecodeUpdate(raw []byte) (domain.OverlayUpdate, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var u domain.OverlayUpdate
	if err := dec.Decode(&u); err != nil {
		return domain.OverlayUpdate{}, fmt.Errorf("decode config update: %w", err)
	}
	return u, nil
}

// Apply shallow-merges the update over the current document: each present
// field replaces its top-level counterpart, and a present Platforms replaces
// the whole sub-document. Returns the resulting snapshot.
func (s *Store) Apply(u domain.OverlayUpdate) domain.OverlayConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Platforms != nil {
		s.cfg.Platforms = *u.Platforms
	}
	if u.Theme != nil {
		s.cfg.Theme = *u.Theme
	}
	if u.MaxMessages != nil {
		s.cfg.MaxMessages = max(*u.MaxMessages, 1)
	}
	if u.SoundEnabled != nil {
		s.cfg.SoundEnabled = *u.SoundEnabled
	}
	if u.Volume != nil {
		s.cfg.Volume = clamp01(*u.Volume)
	}
	if u.ShowUsername != nil {
		s.cfg.ShowUsername = *u.ShowUsername
	}
	if u.ShowAvatar != nil {
		s.cfg.ShowAvatar = *u.ShowAvatar
	}
	if u.ShowPlatformIcon != nil {
		s.cfg.ShowPlatformIcon = *u.ShowPlatformIcon
	}
	if u.AvatarShape != nil {
		s.cfg.AvatarShape = *u.AvatarShape
	}
	if u.BackgroundColor != nil {
		s.cfg.BackgroundColor = *u.BackgroundColor
	}
	if u.BackgroundOpacity != nil {
		s.cfg.BackgroundOpacity = clamp01(*u.BackgroundOpacity)
	}
	if u.BorderRadius != nil {
		s.cfg.BorderRadius = *u.BorderRadius
	}
	if u.BlurEffect != nil {
		s.cfg.BlurEffect = *u.BlurEffect
	}
	if u.CustomCSS != nil {
		s.cfg.CustomCSS = *u.CustomCSS
	}

	return s.cfg
}

// ConnectPlatform marks a platform connected with its identifier (video ID
// for YouTube, channel name for Twitch). A missing identifier or unknown
// platform is a no-op - callers validate upstream. Returns the display names
// of the platforms active after the transition.
func (s *Store) ConnectPlatform(p domain.Platform, identifier string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if identifier != "" {
		switch p {
		case domain.PlatformYouTube:
			s.cfg.Platforms.YouTube = domain.YouTubeConnection{Enabled: true, VideoID: identifier}
		case domain.PlatformTwitch:
			s.cfg.Platforms.Twitch = domain.TwitchConnection{Enabled: true, ChannelID: identifier}
		default:
			slog.Warn("Ignoring connect for unknown platform", "platform", string(p))
		}
	}

	return activeNames(s.cfg.Platforms)
}

// DisconnectPlatform clears one platform's connection. Idempotent.
func (s *Store) DisconnectPlatform(p domain.Platform) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch p {
	case domain.PlatformYouTube:
		s.cfg.Platforms.YouTube = domain.YouTubeConnection{}
	case domain.PlatformTwitch:
		s.cfg.Platforms.Twitch = domain.TwitchConnection{}
	}
}

// DisconnectAll clears both platforms. Idempotent.
func (s *Store) DisconnectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Platforms = domain.Platforms{}
}

// ActivePlatforms returns the display names of connected platforms,
// YouTube before Twitch for deterministic overlay labels.
func (s *Store) ActivePlatforms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeNames(s.cfg.Platforms)
}

// IsMultistreamActive reports whether both platforms are connected at once.
func (s *Store) IsMultistreamActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Platforms.YouTube.Enabled && s.cfg.Platforms.Twitch.Enabled
}

func activeNames(p domain.Platforms) []string {
	var names []string
	if p.YouTube.Enabled {
		names = append(names, domain.PlatformYouTube.DisplayName())
	}
	if p.Twitch.Enabled {
		names = append(names, domain.PlatformTwitch.DisplayName())
	}
	return names
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
