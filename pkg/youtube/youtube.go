package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

var (
	ErrInvalidURL    = errors.New("not a YouTube video URL")
	ErrVideoNotFound = errors.New("video not found")
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Video holds the metadata used to build a study note.
type Video struct {
	ID           string
	Title        string
	Description  string
	ChannelTitle string
	Duration     time.Duration
	PublishedAt  time.Time
	Tags         []string
}

// Text renders the metadata as source text for note generation.
func (v *Video) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video title: %s\n", v.Title)
	if v.ChannelTitle != "" {
		fmt.Fprintf(&b, "Channel: %s\n", v.ChannelTitle)
	}
	if v.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", v.Duration)
	}
	if len(v.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(v.Tags, ", "))
	}
	if v.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", v.Description)
	}
	return b.String()
}

// Client looks up video metadata via the YouTube Data API v3.
type Client struct {
	service *yt.Service
}

// NewClient creates a client authenticated with an API key. Extra options
// (endpoint, http client) are passed through to the API service.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("youtube API key is required")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	srv, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &Client{service: srv}, nil
}

// GetVideo fetches snippet and content details for a video id.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	resp, err := c.service.Videos.
		List([]string{"snippet", "contentDetails"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos.list failed: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, ErrVideoNotFound
	}

	item := resp.Items[0]
	video := &Video{ID: item.Id}
	if item.Snippet != nil {
		video.Title = item.Snippet.Title
		video.Description = item.Snippet.Description
		video.ChannelTitle = item.Snippet.ChannelTitle
		video.Tags = item.Snippet.Tags
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			video.PublishedAt = t
		}
	}
	if item.ContentDetails != nil {
		video.Duration, _ = ParseDuration(item.ContentDetails.Duration)
	}

	return video, nil
}

// ParseVideoID extracts the 11-character video id from the common URL forms:
// youtube.com/watch?v=, youtu.be/, /embed/, /shorts/, /live/ and m./music. hosts.
func ParseVideoID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidURL
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)[0]
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
		if len(parts) >= 2 {
			switch parts[0] {
			case "embed", "shorts", "live", "v":
				id = parts[1]
			}
		}
	default:
		return "", ErrInvalidURL
	}

	if !videoIDPattern.MatchString(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

var durationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration parses the ISO 8601 durations returned in contentDetails (e.g. PT1H2M3S).
func ParseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}

	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, err
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}
