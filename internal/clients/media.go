package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
)

// MediaClient talks to the media service that stores uploaded giveaway
// attachments.
type MediaClient struct {
	baseClient
}

func NewMediaClient(baseURL string, healthTimeout time.Duration) *MediaClient {
	return &MediaClient{baseClient: newBaseClient("media", baseURL, healthTimeout)}
}

type mediaFileResponse struct {
	envelope
	File struct {
		ID       int64  `json:"id"`
		FileType string `json:"file_type"`
	} `json:"file"`
}

// ValidateMediaFile confirms the referenced attachment exists. Returns
// MEDIA_VALIDATION_FAILED otherwise.
func (c *MediaClient) ValidateMediaFile(ctx context.Context, fileID int64) error {
	var resp mediaFileResponse
	path := fmt.Sprintf("/api/media/%d", fileID)

	if err := c.doJSON(ctx, http.MethodGet, path, defaultTimeout, nil, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return callErr.asAppError(errors.ErrCodeMediaValidation, "Media file validation failed").
				WithDetail("media_file_id", fileID)
		}
		return err
	}
	if !resp.Success {
		return errors.New(errors.ErrCodeMediaValidation, "Media file validation failed").
			WithDetail("media_file_id", fileID)
	}
	return nil
}

type mediaURLResponse struct {
	envelope
	URL string `json:"url"`
}

// GetMediaURL resolves the attachment to a URL the bot can embed.
func (c *MediaClient) GetMediaURL(ctx context.Context, fileID int64) (string, error) {
	var resp mediaURLResponse
	path := fmt.Sprintf("/api/media/%d/url", fileID)

	if err := c.doJSON(ctx, http.MethodGet, path, defaultTimeout, nil, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return "", callErr.asAppError(errors.ErrCodeServiceUnavailable, "Media URL unavailable").
				WithDetail("media_file_id", fileID)
		}
		return "", err
	}
	return resp.URL, nil
}

// ScheduleCleanup asks the media service to delete the attachment after
// the given delay. The published message already carries the content.
func (c *MediaClient) ScheduleCleanup(ctx context.Context, fileID int64, delayMinutes int) error {
	path := fmt.Sprintf("/api/media/%d/schedule-cleanup", fileID)
	body := map[string]int{"delay_minutes": delayMinutes}

	if err := c.doJSON(ctx, http.MethodPost, path, defaultTimeout, body, nil); err != nil {
		if callErr, ok := err.(*callError); ok {
			return callErr.asAppError(errors.ErrCodeServiceUnavailable, "Media cleanup scheduling failed").
				WithDetail("media_file_id", fileID)
		}
		return err
	}
	return nil
}

type cleanupStatusResponse struct {
	envelope
	CleanupStatus string `json:"cleanup_status"`
}

// GetCleanupStatus reports whether a scheduled deletion has run yet.
func (c *MediaClient) GetCleanupStatus(ctx context.Context, fileID int64) (string, error) {
	var resp cleanupStatusResponse
	path := fmt.Sprintf("/api/media/%d/cleanup-status", fileID)

	if err := c.doJSON(ctx, http.MethodGet, path, defaultTimeout, nil, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return "", callErr.asAppError(errors.ErrCodeServiceUnavailable, "Media cleanup status unavailable").
				WithDetail("media_file_id", fileID)
		}
		return "", err
	}
	return resp.CleanupStatus, nil
}
