package domain

import "time"

// ChatMessage is one normalized inbound chat event. Ingest adapters construct
// it, the router broadcasts it once, and nothing stores it afterwards -
// message retention is a display concern on the overlay side.
type ChatMessage struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Message     string    `json:"message"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Platform    Platform  `json:"platform"`
	Color       string    `json:"color,omitempty"`
	IsModerator bool      `json:"isModerator"`
	IsSuperchat bool      `json:"isSuperchat"`
	Amount      string    `json:"amount,omitempty"`
	Badges      []string  `json:"badges,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
