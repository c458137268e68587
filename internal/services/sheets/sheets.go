// Package sheets appends audit rows to a Google Sheet. Every write is best
// effort: a sheet failure never fails the video it describes, so callers
// only ever see a logged warning.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bosstitler/internal/logging"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4"

// Recorder appends rows to the configured audit spreadsheet.
type Recorder struct {
	baseURL       string
	spreadsheetID string
	token         string
	httpClient    *http.Client
	logger        *slog.Logger
}

// Option customizes the recorder.
type Option func(*Recorder)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Recorder) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(base string) Option {
	return func(r *Recorder) {
		if strings.TrimSpace(base) != "" {
			r.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewRecorder constructs a recorder. An empty spreadsheet ID disables all
// writes, turning every Append call into a no-op.
func NewRecorder(spreadsheetID, token string, logger *slog.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	recorder := &Recorder{
		baseURL:       defaultBaseURL,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		token:         strings.TrimSpace(token),
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		logger:        logging.NewComponentLogger(logger, "sheets"),
	}
	for _, opt := range opts {
		opt(recorder)
	}
	return recorder
}

// Enabled reports whether a spreadsheet is configured.
func (r *Recorder) Enabled() bool {
	return r.spreadsheetID != ""
}

// AppendUpdate records a successful title rewrite.
func (r *Recorder) AppendUpdate(ctx context.Context, videoID, originalTitle, newTitle, game, boss string) {
	r.append(ctx, videoID, []any{
		time.Now().UTC().Format(time.RFC3339),
		videoID, originalTitle, newTitle, game, boss, "UPDATED",
	})
}

// AppendError records a failed video with its error message.
func (r *Recorder) AppendError(ctx context.Context, videoID, originalTitle, message string) {
	r.append(ctx, videoID, []any{
		time.Now().UTC().Format(time.RFC3339),
		videoID, originalTitle, "", "", "", "ERROR: " + message,
	})
}

// AppendRollback records a title restored to its original.
func (r *Recorder) AppendRollback(ctx context.Context, videoID, restoredTitle string) {
	r.append(ctx, videoID, []any{
		time.Now().UTC().Format(time.RFC3339),
		videoID, "", restoredTitle, "", "", "ROLLBACK",
	})
}

func (r *Recorder) append(ctx context.Context, videoID string, row []any) {
	if !r.Enabled() {
		return
	}
	body := map[string]any{"values": [][]any{row}}
	encoded, err := json.Marshal(body)
	if err != nil {
		r.logger.Warn("audit row encode failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
		return
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?%s",
		r.baseURL,
		url.PathEscape(r.spreadsheetID),
		url.PathEscape("Sheet1!A:G"),
		url.Values{"valueInputOption": {"RAW"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		r.logger.Warn("audit request build failed", logging.Error(err))
		return
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("audit append failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.logger.Warn("audit append rejected",
			logging.String(logging.FieldVideoID, videoID),
			logging.Int("status", resp.StatusCode),
			logging.String("detail", strings.TrimSpace(string(detail))))
	}
}
