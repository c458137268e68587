// Package youtube is a thin client for the channel operations the pipeline
// needs: listing uploads, rewriting titles, and playlist grouping. OAuth
// token acquisition happens outside this package; the client consumes a
// ready bearer token.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Video is one channel upload.
type Video struct {
	ID          string
	Title       string
	PublishedAt string
}

// Client talks to the YouTube Data API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if strings.TrimSpace(base) != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient constructs a client with the supplied bearer token.
func NewClient(token string, opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ThumbnailURL returns the max resolution thumbnail for a video. This is the
// cheap visual reference used by the first identification tier.
func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/maxresdefault.jpg"
}

// ListUploads returns every video on the authenticated user's uploads
// playlist, following pagination.
func (c *Client) ListUploads(ctx context.Context) ([]Video, error) {
	uploads, err := c.uploadsPlaylistID(ctx)
	if err != nil {
		return nil, err
	}
	if uploads == "" {
		return nil, nil
	}

	var videos []Video
	pageToken := ""
	for {
		values := url.Values{
			"part":       {"snippet"},
			"playlistId": {uploads},
			"maxResults": {"50"},
		}
		if pageToken != "" {
			values.Set("pageToken", pageToken)
		}

		var page playlistItemsResponse
		if err := c.get(ctx, "/playlistItems", values, &page); err != nil {
			return nil, fmt.Errorf("list uploads: %w", err)
		}
		for _, item := range page.Items {
			videos = append(videos, Video{
				ID:          item.Snippet.ResourceID.VideoID,
				Title:       item.Snippet.Title,
				PublishedAt: item.Snippet.PublishedAt,
			})
		}
		if page.NextPageToken == "" {
			return videos, nil
		}
		pageToken = page.NextPageToken
	}
}

// UpdateTitle rewrites a video's title, preserving the rest of its snippet.
func (c *Client) UpdateTitle(ctx context.Context, videoID, newTitle string) error {
	values := url.Values{"part": {"snippet"}, "id": {videoID}}
	var listing videosResponse
	if err := c.get(ctx, "/videos", values, &listing); err != nil {
		return fmt.Errorf("fetch video %s: %w", videoID, err)
	}
	if len(listing.Items) == 0 {
		return fmt.Errorf("video %s not found", videoID)
	}

	snippet := listing.Items[0].Snippet
	snippet["title"] = newTitle

	body := map[string]any{"id": videoID, "snippet": snippet}
	if err := c.send(ctx, http.MethodPut, "/videos", url.Values{"part": {"snippet"}}, body, nil); err != nil {
		return fmt.Errorf("update title for %s: %w", videoID, err)
	}
	return nil
}

// EnsurePlaylist finds or creates the playlist named after a game and
// returns its identifier.
func (c *Client) EnsurePlaylist(ctx context.Context, name string) (string, error) {
	values := url.Values{"part": {"snippet"}, "mine": {"true"}, "maxResults": {"50"}}
	var listing playlistsResponse
	if err := c.get(ctx, "/playlists", values, &listing); err != nil {
		return "", fmt.Errorf("list playlists: %w", err)
	}
	for _, playlist := range listing.Items {
		if strings.EqualFold(playlist.Snippet.Title, name) {
			return playlist.ID, nil
		}
	}

	body := map[string]any{
		"snippet": map[string]string{
			"title":       name,
			"description": fmt.Sprintf("PS5 gameplay videos for %s", name),
		},
		"status": map[string]string{"privacyStatus": "public"},
	}
	var created playlistResource
	if err := c.send(ctx, http.MethodPost, "/playlists", url.Values{"part": {"snippet,status"}}, body, &created); err != nil {
		return "", fmt.Errorf("create playlist %q: %w", name, err)
	}
	return created.ID, nil
}

// AddToPlaylist attaches a video to a playlist. Attaching an already
// attached video is a success, not an error.
func (c *Client) AddToPlaylist(ctx context.Context, videoID, playlistID string) error {
	body := map[string]any{
		"snippet": map[string]any{
			"playlistId": playlistID,
			"resourceId": map[string]string{"kind": "youtube#video", "videoId": videoID},
		},
	}
	err := c.send(ctx, http.MethodPost, "/playlistItems", url.Values{"part": {"snippet"}}, body, nil)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Reason == "videoAlreadyInPlaylist" {
		return nil
	}
	return fmt.Errorf("add %s to playlist %s: %w", videoID, playlistID, err)
}

func (c *Client) uploadsPlaylistID(ctx context.Context) (string, error) {
	values := url.Values{"part": {"contentDetails"}, "mine": {"true"}}
	var listing channelsResponse
	if err := c.get(ctx, "/channels", values, &listing); err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}
	if len(listing.Items) == 0 {
		return "", nil
	}
	return listing.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

// APIError is a structured error response from the API.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube api: http %d %s: %s", e.StatusCode, e.Reason, e.Message)
}

func (c *Client) get(ctx context.Context, path string, values url.Values, target any) error {
	return c.send(ctx, http.MethodGet, path, values, nil, target)
}

func (c *Client) send(ctx context.Context, method, path string, values url.Values, body any, target any) error {
	endpoint := c.baseURL + path
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return parseAPIError(resp.StatusCode, data)
	}
	if target != nil {
		if err := json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func parseAPIError(status int, data []byte) error {
	var wrapper struct {
		Error struct {
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(data, &wrapper); err == nil {
		apiErr.Message = wrapper.Error.Message
		if len(wrapper.Error.Errors) > 0 {
			apiErr.Reason = wrapper.Error.Errors[0].Reason
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

type channelsResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			ResourceID  struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		Snippet map[string]any `json:"snippet"`
	} `json:"items"`
}

type playlistResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title string `json:"title"`
	} `json:"snippet"`
}

type playlistsResponse struct {
	Items []playlistResource `json:"items"`
}
