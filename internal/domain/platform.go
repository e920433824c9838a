package domain

// Platform identifies one of the two supported chat platforms.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformTwitch  Platform = "twitch"
)

// ParsePlatform converts a wire-level platform name to a Platform.
// Returns false for anything outside the two known platforms.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformYouTube:
		return PlatformYouTube, true
	case PlatformTwitch:
		return PlatformTwitch, true
	default:
		return "", false
	}
}

// DisplayName returns the human-readable platform name used in overlay labels.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformTwitch:
		return "Twitch"
	default:
		return string(p)
	}
}
