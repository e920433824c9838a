package domain

// YouTubeConnection is the YouTube half of the platforms sub-document.
// Enabled implies VideoID is non-empty; the connect transition enforces this.
type YouTubeConnection struct {
	Enabled bool   `json:"enabled"`
	VideoID string `json:"videoId"`
}

// TwitchConnection is the Twitch half of the platforms sub-document.
type TwitchConnection struct {
	Enabled   bool   `json:"enabled"`
	ChannelID string `json:"channelId"`
}

// Platforms always carries exactly the two known platforms. Unknown platform
// names never enter the document because this is a struct, not a map.
type Platforms struct {
	YouTube YouTubeConnection `json:"youtube"`
	Twitch  TwitchConnection  `json:"twitch"`
}

// AvatarShape controls how chat avatars are clipped by the overlay.
type AvatarShape string

const (
	AvatarCircle  AvatarShape = "circle"
	AvatarSquare  AvatarShape = "square"
	AvatarRounded AvatarShape = "rounded"
)

// OverlayConfig is the single shared configuration document: which platforms
// are connected plus every display setting the overlay renders with.
//
// The credential presence flags are derived from process configuration at
// startup and are read-only over the wire; they never appear in OverlayUpdate.
type OverlayConfig struct {
	Platforms Platforms `json:"platforms"`

	Theme             string      `json:"theme"`
	MaxMessages       int         `json:"maxMessages"`
	SoundEnabled      bool        `json:"soundEnabled"`
	Volume            float64     `json:"volume"`
	ShowUsername      bool        `json:"showUsername"`
	ShowAvatar        bool        `json:"showAvatar"`
	ShowPlatformIcon  bool        `json:"showPlatformIcon"`
	AvatarShape       AvatarShape `json:"avatarShape"`
	BackgroundColor   string      `json:"backgroundColor"`
	BackgroundOpacity float64     `json:"backgroundOpacity"`
	BorderRadius      int         `json:"borderRadius"`
	BlurEffect        bool        `json:"blurEffect"`
	CustomCSS         string      `json:"customCSS"`

	HasYouTubeCredentials bool `json:"hasYouTubeCredentials"`
	HasTwitchCredentials  bool `json:"hasTwitchCredentials"`
}

// DefaultOverlayConfig returns the document every process starts from.
func DefaultOverlayConfig() OverlayConfig {
	return OverlayConfig{
		Theme:             "dark",
		MaxMessages:       50,
		SoundEnabled:      false,
		Volume:            0.5,
		ShowUsername:      true,
		ShowAvatar:        true,
		ShowPlatformIcon:  true,
		AvatarShape:       AvatarCircle,
		BackgroundColor:   "#000000",
		BackgroundOpacity: 0.4,
		BorderRadius:      8,
		BlurEffect:        false,
		CustomCSS:         "",
	}
}

// OverlayUpdate is a flat overlay over OverlayConfig: every present field
// replaces the corresponding top-level field wholesale (last writer wins).
// A present Platforms replaces the entire platforms sub-document - there is
// no deep merge. Fields absent from the JSON stay untouched.
type OverlayUpdate struct {
	Platforms *Platforms `json:"platforms,omitempty"`

	Theme             *string      `json:"theme,omitempty"`
	MaxMessages       *int         `json:"maxMessages,omitempty"`
	SoundEnabled      *bool        `json:"soundEnabled,omitempty"`
	Volume            *float64     `json:"volume,omitempty"`
	ShowUsername      *bool        `json:"showUsername,omitempty"`
	ShowAvatar        *bool        `json:"showAvatar,omitempty"`
	ShowPlatformIcon  *bool        `json:"showPlatformIcon,omitempty"`
	AvatarShape       *AvatarShape `json:"avatarShape,omitempty"`
	BackgroundColor   *string      `json:"backgroundColor,omitempty"`
	BackgroundOpacity *float64     `json:"backgroundOpacity,omitempty"`
	BorderRadius      *int         `json:"borderRadius,omitempty"`
	BlurEffect        *bool        `json:"blurEffect,omitempty"`
	CustomCSS         *string      `json:"customCSS,omitempty"`
}
