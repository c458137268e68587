// Package vision wraps the chat-completions vision API used to identify a
// boss from gameplay imagery. The client is single-shot: callers own retry
// policy and use IsTransient to decide whether an error is worth retrying.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second

	// UnknownSentinel is the answer the prompt instructs the model to give
	// when no boss can be identified.
	UnknownSentinel = "Unknown Boss"
)

// Config captures the runtime settings required to talk to the classifier.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	TimeoutSeconds int
}

// Client issues vision classification requests.
type Client struct {
	cfg        Config
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

// NewClient constructs a classifier client from configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			MaxTokens:      cfg.MaxTokens,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.openai.com/v1/chat/completions"
	}
	if client.cfg.MaxTokens <= 0 {
		client.cfg.MaxTokens = 100
	}
	return client
}

// StatusError represents an HTTP-level failure from the classifier API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vision request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// IsTransient reports whether an error originates from a retryable condition:
// rate limiting, request timeouts, or server-side failures. Classification is
// by error origin, never message text.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

// Identify submits one or more image references alongside the known
// candidate list and returns the identified boss name. An empty string means
// the model could not name a boss; that is a miss, not an error.
func (c *Client) Identify(ctx context.Context, images []string, game string, candidates []string) (string, error) {
	if len(images) == 0 {
		return "", errors.New("vision identify: at least one image required")
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("vision identify: api key required")
	}

	content := []contentPart{{Type: "text", Text: buildPrompt(game, candidates)}}
	for _, image := range images {
		content = append(content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: image}})
	}

	payload := chatCompletionRequest{
		Model:     c.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: content}},
		MaxTokens: c.cfg.MaxTokens,
	}

	answer, err := c.sendChatRequest(ctx, payload)
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" || strings.EqualFold(answer, UnknownSentinel) {
		return "", nil
	}
	return answer, nil
}

func buildPrompt(game string, candidates []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "These are screenshots from a %s gameplay video.\n\n", game)
	b.WriteString("Identify the boss being fought in these images. Look for:\n")
	b.WriteString("1. Boss health bars or names displayed on screen\n")
	b.WriteString("2. Large enemy characters that appear to be bosses\n")
	b.WriteString("3. Arena or environment indicators\n")
	b.WriteString("4. Boss introduction text or cutscenes\n\n")
	b.WriteString("If you can identify a specific boss name, respond with ONLY the boss name.\n")
	fmt.Fprintf(&b, "If you cannot identify a specific boss, respond with %q.", UnknownSentinel)
	if len(candidates) > 0 {
		fmt.Fprintf(&b, "\n\nKnown bosses in %s: %s", game, strings.Join(candidates, ", "))
	}
	b.WriteString("\n\nBoss name:")
	return b.String()
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) sendChatRequest(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("vision request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("vision request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("vision request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("vision request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("vision request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("vision request: empty choices")
	}
	return completion.Choices[0].Message.Content, nil
}
