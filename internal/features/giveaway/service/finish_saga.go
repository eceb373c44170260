package service

import (
	"context"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/clients"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/logger"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models"
)

// FinishResult reports the outcome of finishing a giveaway, including the
// parts that were only delivered best-effort.
type FinishResult struct {
	WinnersSelected     int       `json:"winners_selected"`
	TotalParticipants   int       `json:"total_participants"`
	MessagesDelivered   int       `json:"messages_delivered"`
	ConclusionMessageID *int64    `json:"conclusion_message_id,omitempty"`
	FinishedAt          time.Time `json:"finished_at"`
}

// Finish runs the finish sequence. Winner selection is the only hard
// gate: it is irreversible on the participant side, so once it succeeds
// the giveaway is marked finished no matter how delivery goes. Roster
// retrieval, bulk messaging and the conclusion post all degrade to logged
// warnings.
func (s *Service) Finish(ctx context.Context, id int64) (*FinishResult, error) {
	g, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	if ok, reason := models.CanFinish(g); !ok {
		return nil, errors.New(errors.ErrCodeCannotFinish, reason).
			WithDetail("giveaway_id", id).
			WithDetail("stage", models.Stage(g))
	}

	winners, total, err := s.participants.SelectWinners(ctx, id, g.WinnerCount)
	if err != nil {
		return nil, err
	}

	snapshot := map[string]interface{}{
		"winners_selected":   len(winners),
		"total_participants": total,
	}

	// Весь ростер нужен только для рассылки
	var roster []clients.Participant
	if total > 0 {
		roster, err = s.participants.GetParticipants(ctx, id, 1, total)
		if err != nil {
			logger.Warn().Err(err).Int64("giveaway_id", id).Msg("Roster retrieval failed, notifying winners only")
			roster = nil
			snapshot["roster_error"] = err.Error()
		}
	}

	delivered := 0
	bulk, err := s.delivery.SendBulkMessages(ctx, clients.BulkMessage{
		AccountID:     g.AccountID,
		GiveawayID:    g.ID,
		WinnerMessage: g.WinnerMessage,
		LoserMessage:  g.LoserMessage,
		Winners:       winners,
		Participants:  roster,
	})
	if err != nil {
		logger.Warn().Err(err).Int64("giveaway_id", id).Msg("Bulk delivery failed")
		snapshot["bulk_error"] = err.Error()
	} else {
		delivered = int(bulk.Delivered)
	}
	snapshot["messages_delivered"] = delivered

	var conclusionID *int64
	conclusion, err := s.delivery.PostConclusionMessage(ctx, g.AccountID, g.ID, g.PublicConclusionMessage, winners)
	if err != nil {
		logger.Warn().Err(err).Int64("giveaway_id", id).Msg("Conclusion posting failed")
		snapshot["conclusion_error"] = err.Error()
	} else {
		conclusionID = &conclusion.MessageID
		snapshot["conclusion_message_id"] = conclusion.MessageID
	}

	finishedAt := time.Now().UTC()
	if err := s.repo.ApplyFinish(ctx, id, conclusionID, finishedAt); err != nil {
		return nil, s.mapApplyError(err, id, "apply finish")
	}
	g.MarkFinished(conclusionID, finishedAt)

	stats, err := s.repo.GetOrCreateStats(ctx, id)
	if err != nil {
		logger.Warn().Err(err).Int64("giveaway_id", id).Msg("Stats lookup failed after finish")
	} else {
		stats.UpdateParticipants(total, -1)
		stats.UpdateWinners(len(winners))
		stats.UpdateMessagesDelivered(delivered)
		if err := s.repo.UpdateStats(ctx, stats); err != nil {
			logger.Warn().Err(err).Int64("giveaway_id", id).Msg("Stats update failed after finish")
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateGiveawayCache(ctx, id); err != nil {
			logger.Warn().Err(err).Int64("giveaway_id", id).Msg("Stats cache invalidation failed")
		}
	}

	entry := models.NewAttempt(id, models.LogActionFinish, true, conclusionID, "", snapshot)
	if err := s.repo.RecordAttempt(ctx, entry); err != nil {
		logger.Error().Err(err).Int64("giveaway_id", id).Msg("Failed to record finish")
	}

	logger.Info().
		Int64("giveaway_id", id).
		Int("winners_selected", len(winners)).
		Int("messages_delivered", delivered).
		Msg("Giveaway finished")

	return &FinishResult{
		WinnersSelected:     len(winners),
		TotalParticipants:   total,
		MessagesDelivered:   delivered,
		ConclusionMessageID: conclusionID,
		FinishedAt:          finishedAt,
	}, nil
}
