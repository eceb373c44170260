package service

import (
	"context"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/clients"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/logger"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models"
)

// PublishResult reports a successful publish.
type PublishResult struct {
	MessageID             int64     `json:"message_id"`
	PublishedAt           time.Time `json:"published_at"`
	MediaCleanupScheduled bool      `json:"media_cleanup_scheduled"`
}

// Publish runs the publish sequence. No giveaway state is mutated until
// the channel message is actually posted, so a failed attempt can always
// be retried by calling Publish again. ApplyPublish is the point of no
// return; everything after it is best-effort housekeeping.
func (s *Service) Publish(ctx context.Context, id int64) (*PublishResult, error) {
	g, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	if ok, reason := models.CanPublish(g); !ok {
		return nil, errors.New(errors.ErrCodeCannotPublish, reason).
			WithDetail("giveaway_id", id).
			WithDetail("stage", models.Stage(g))
	}

	if err := s.channel.ValidateChannelSetup(ctx, g.AccountID); err != nil {
		return nil, err
	}

	msg := clients.GiveawayMessage{
		AccountID:               g.AccountID,
		GiveawayID:              g.ID,
		MainBody:                g.MainBody,
		WinnerCount:             g.WinnerCount,
		ParticipationButtonText: g.ParticipationButtonText,
		ResultToken:             g.ResultToken,
		MediaFileID:             g.MediaFileID,
	}
	if g.MediaFileID != nil {
		url, err := s.media.GetMediaURL(ctx, *g.MediaFileID)
		if err != nil {
			// Медиа не блокирует публикацию
			logger.Warn().Err(err).
				Int64("giveaway_id", id).
				Int64("media_file_id", *g.MediaFileID).
				Msg("Media URL resolution failed, publishing without media")
		} else {
			msg.MediaURL = url
		}
	}

	posted, err := s.delivery.PostGiveawayMessage(ctx, msg)
	if err != nil {
		entry := models.NewAttempt(id, models.LogActionPublish, false, nil, err.Error(), errorSnapshot(err))
		if logErr := s.repo.RecordAttempt(ctx, entry); logErr != nil {
			logger.Error().Err(logErr).Int64("giveaway_id", id).Msg("Failed to record publish failure")
		}
		return nil, err
	}

	publishedAt := time.Now().UTC()
	if err := s.repo.ApplyPublish(ctx, id, posted.MessageID, publishedAt); err != nil {
		return nil, s.mapApplyError(err, id, "apply publish")
	}
	g.MarkPublished(posted.MessageID, publishedAt)

	cleanupScheduled := false
	if g.MediaFileID != nil {
		if err := s.media.ScheduleCleanup(ctx, *g.MediaFileID, s.cleanupDelayMinutes); err != nil {
			logger.Warn().Err(err).
				Int64("giveaway_id", id).
				Int64("media_file_id", *g.MediaFileID).
				Msg("Media cleanup scheduling failed")
			if updErr := s.repo.UpdateMediaCleanup(ctx, id, models.CleanupFailed, nil); updErr != nil {
				logger.Warn().Err(updErr).Int64("giveaway_id", id).Msg("Failed to record cleanup status")
			}
		} else {
			cleanupScheduled = true
			at := time.Now().UTC().Add(time.Duration(s.cleanupDelayMinutes) * time.Minute)
			if updErr := s.repo.UpdateMediaCleanup(ctx, id, models.CleanupScheduled, &at); updErr != nil {
				logger.Warn().Err(updErr).Int64("giveaway_id", id).Msg("Failed to record cleanup status")
			}
		}
	}

	entry := models.NewAttempt(id, models.LogActionPublish, true, &posted.MessageID, "", map[string]interface{}{
		"message_id":              posted.MessageID,
		"media_cleanup_scheduled": cleanupScheduled,
	})
	if err := s.repo.RecordAttempt(ctx, entry); err != nil {
		logger.Error().Err(err).Int64("giveaway_id", id).Msg("Failed to record publish success")
	}

	logger.Info().
		Int64("giveaway_id", id).
		Int64("message_id", posted.MessageID).
		Msg("Giveaway published")

	return &PublishResult{
		MessageID:             posted.MessageID,
		PublishedAt:           publishedAt,
		MediaCleanupScheduled: cleanupScheduled,
	}, nil
}

// errorSnapshot shapes a failure for the response_snapshot column.
func errorSnapshot(err error) map[string]interface{} {
	snapshot := map[string]interface{}{"error": err.Error()}
	if appErr, ok := errors.AsAppError(err); ok {
		snapshot["error_code"] = appErr.Code
		for k, v := range appErr.Details {
			snapshot[k] = v
		}
	}
	return snapshot
}
