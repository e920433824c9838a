package youtube

import (
	"time"

	"github.com/google/uuid"
	yt "google.golang.org/api/youtube/v3"

	"github.com/stregea/LiveChatOverlay/internal/domain"
)

// Normalize converts an API live chat message into the relay's ChatMessage
// shape. Superchats carry the API's pre-formatted display amount.
func Normalize(item *yt.LiveChatMessage) domain.ChatMessage {
	out := domain.ChatMessage{
		ID:       item.Id,
		Platform: domain.PlatformYouTube,
	}

	if out.ID == "" {
		out.ID = uuid.NewString()
	}

	if snippet := item.Snippet; snippet != nil {
		out.Message = snippet.DisplayMessage
		if ts, err := time.Parse(time.RFC3339, snippet.PublishedAt); err == nil {
			out.Timestamp = ts
		}
		if sc := snippet.SuperChatDetails; sc != nil {
			out.IsSuperchat = true
			out.Amount = sc.AmountDisplayString
		}
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}

	if author := item.AuthorDetails; author != nil {
		out.Username = author.DisplayName
		out.AvatarURL = author.ProfileImageUrl
		out.IsModerator = author.IsChatModerator || author.IsChatOwner
	}

	return out
}
