// Package youtube polls the YouTube Data API for live chat messages and
// resolves channels to their current live stream. Poll cadence follows the
// API's own pollingIntervalMillis; a circuit breaker keeps a broken chat from
// hammering the quota.
package youtube

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/stregea/LiveChatOverlay/internal/domain"
)

// Sink receives each normalized chat message.
type Sink func(msg domain.ChatMessage)

// ErrNoLiveStream is returned when a channel has no live broadcast right now.
var ErrNoLiveStream = errors.New("channel has no active live stream")

// ErrChatEnded is returned when the live chat for a video is over or missing.
var ErrChatEnded = errors.New("live chat is not available for this video")

// chatPage is one page of live chat messages plus the API-mandated wait
// before the next poll.
type chatPage struct {
	messages      []domain.ChatMessage
	nextPageToken string
	pollAfterMs   int64
}

// chatAPI is the slice of the YouTube Data API the poller and lookup need.
// Kept as an interface so tests run against a fake.
type chatAPI interface {
	LiveChatID(ctx context.Context, videoID string) (string, error)
	Messages(ctx context.Context, liveChatID, pageToken string) (*chatPage, error)
	LiveStreamByChannel(ctx context.Context, channelID string) (LiveStream, error)
}

// Client wraps a youtube.Service as a chatAPI.
type Client struct {
	svc *yt.Service
}

// NewClient builds an API-key authenticated YouTube client. Reading public
// live chat requires no OAuth.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	svc, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// LiveChatID resolves a video ID to its active live chat ID.
func (c *Client) LiveChatID(ctx context.Context, videoID string) (string, error) {
	resp, err := c.svc.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("videos.list for %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("video %s: %w", videoID, ErrChatEnded)
	}
	details := resp.Items[0].LiveStreamingDetails
	if details == nil || details.ActiveLiveChatId == "" {
		return "", fmt.Errorf("video %s: %w", videoID, ErrChatEnded)
	}
	return details.ActiveLiveChatId, nil
}

// Messages fetches one page of live chat messages.
func (c *Client) Messages(ctx context.Context, liveChatID, pageToken string) (*chatPage, error) {
	call := c.svc.LiveChatMessages.List(liveChatID, []string{"snippet", "authorDetails"}).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 403 && containsReason(apiErr, "liveChatEnded") {
			return nil, ErrChatEnded
		}
		return nil, fmt.Errorf("liveChatMessages.list: %w", err)
	}

	page := &chatPage{
		nextPageToken: resp.NextPageToken,
		pollAfterMs:   resp.PollingIntervalMillis,
	}
	for _, item := range resp.Items {
		page.messages = append(page.messages, Normalize(item))
	}
	return page, nil
}

// LiveStream is the result of a channel auto-discovery lookup.
type LiveStream struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
}

// LiveStreamByChannel finds the channel's current live broadcast via search.
// This is the expensive call (100 quota units) the quota cache fronts.
func (c *Client) LiveStreamByChannel(ctx context.Context, channelID string) (LiveStream, error) {
	resp, err := c.svc.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		EventType("live").
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return LiveStream{}, fmt.Errorf("search.list for channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == nil || resp.Items[0].Id.VideoId == "" {
		return LiveStream{}, ErrNoLiveStream
	}

	item := resp.Items[0]
	stream := LiveStream{VideoID: item.Id.VideoId}
	if item.Snippet != nil {
		stream.Title = item.Snippet.Title
		stream.ChannelTitle = item.Snippet.ChannelTitle
	}
	return stream, nil
}

func containsReason(apiErr *googleapi.Error, reason string) bool {
	for _, e := range apiErr.Errors {
		if e.Reason == reason {
			return true
		}
	}
	return false
}
