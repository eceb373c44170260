package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models/dto"
)

func finishMessages() *dto.FinishMessagesRequest {
	return &dto.FinishMessagesRequest{
		PublicConclusionMessage: "Winners announced!",
		WinnerMessage:           "You won a prize!",
		LoserMessage:            "Better luck next time",
	}
}

func TestPublishSuccess(t *testing.T) {
	env := newTestEnv()
	g, err := env.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	result, err := env.svc.Publish(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.MessageID)
	assert.False(t, result.PublishedAt.IsZero())
	assert.False(t, result.MediaCleanupScheduled)

	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.MessageID)
	assert.Equal(t, int64(42), *stored.MessageID)
	assert.NotNil(t, stored.PublishedAt)
	assert.Equal(t, models.StatusActive, stored.Status)

	entries := env.repo.logsFor(g.ID, models.LogActionPublish)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	require.NotNil(t, entries[0].TelegramMessageID)
	assert.Equal(t, int64(42), *entries[0].TelegramMessageID)
}

func TestPublishDeliveryFailureLeavesStateUntouched(t *testing.T) {
	env := newTestEnv()
	g, err := env.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	env.delivery.postErr = apperrors.New(apperrors.ErrCodeMessagePosting, "Failed to post giveaway message")

	_, err = env.svc.Publish(context.Background(), g.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMessagePosting))

	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Nil(t, stored.MessageID)
	assert.Nil(t, stored.PublishedAt)

	entries := env.repo.logsFor(g.ID, models.LogActionPublish)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.NotEmpty(t, entries[0].ErrorMessage)
}

func TestPublishRetryAfterDeliveryFailure(t *testing.T) {
	env := newTestEnv()
	g, err := env.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	env.delivery.postErr = apperrors.New(apperrors.ErrCodeMessagePosting, "Failed to post giveaway message")
	_, err = env.svc.Publish(context.Background(), g.ID)
	require.Error(t, err)

	env.delivery.postErr = nil
	result, err := env.svc.Publish(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.MessageID)
	assert.Equal(t, 2, env.delivery.postCalls)

	entries := env.repo.logsFor(g.ID, models.LogActionPublish)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Success)
	assert.True(t, entries[1].Success)
}

func TestPublishTwiceRejected(t *testing.T) {
	env := newTestEnv()
	g, err := env.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = env.svc.Publish(context.Background(), g.ID)
	require.NoError(t, err)

	_, err = env.svc.Publish(context.Background(), g.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCannotPublish))
	assert.Equal(t, 1, env.delivery.postCalls)
}

func TestPublishChannelNotReady(t *testing.T) {
	env := newTestEnv()
	g, err := env.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	env.channel.err = apperrors.New(apperrors.ErrCodeChannelValidation, "Channel is not ready for posting")

	_, err = env.svc.Publish(context.Background(), g.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeChannelValidation))

	// Ни состояния, ни записей в журнале
	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.MessageID)
	assert.Empty(t, env.repo.logsFor(g.ID, models.LogActionPublish))
}

func TestPublishWithMediaSchedulesCleanup(t *testing.T) {
	env := newTestEnv()

	req := validCreateRequest()
	fileID := int64(55)
	req.MediaFileID = &fileID

	g, err := env.svc.Create(context.Background(), req)
	require.NoError(t, err)

	result, err := env.svc.Publish(context.Background(), g.ID)
	require.NoError(t, err)
	assert.True(t, result.MediaCleanupScheduled)
	assert.Equal(t, []int64{55}, env.media.scheduledFiles)

	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CleanupScheduled, stored.MediaCleanupStatus)
	assert.NotNil(t, stored.MediaCleanupTimestamp)
}

func TestPublishMediaURLFailureIsSoft(t *testing.T) {
	env := newTestEnv()
	env.media.urlErr = apperrors.New(apperrors.ErrCodeServiceUnavailable, "Media URL unavailable")

	req := validCreateRequest()
	fileID := int64(55)
	req.MediaFileID = &fileID

	g, err := env.svc.Create(context.Background(), req)
	require.NoError(t, err)

	result, err := env.svc.Publish(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.MessageID)
}

func TestPublishCleanupFailureIsSoft(t *testing.T) {
	env := newTestEnv()
	env.media.scheduleErr = apperrors.New(apperrors.ErrCodeServiceUnavailable, "Media cleanup scheduling failed")

	req := validCreateRequest()
	fileID := int64(55)
	req.MediaFileID = &fileID

	g, err := env.svc.Create(context.Background(), req)
	require.NoError(t, err)

	result, err := env.svc.Publish(context.Background(), g.ID)
	require.NoError(t, err)
	assert.False(t, result.MediaCleanupScheduled)

	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CleanupFailed, stored.MediaCleanupStatus)
}

func TestFinishBeforePublishRejected(t *testing.T) {
	env := newTestEnv()
	g, err := env.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = env.svc.Finish(context.Background(), g.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCannotFinish))
	assert.Equal(t, 0, env.participants.selectCalls)
}

func TestFinishWithoutMessagesRejected(t *testing.T) {
	env := newTestEnv()
	g, err := env.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, err = env.svc.Publish(context.Background(), g.ID)
	require.NoError(t, err)

	_, err = env.svc.Finish(context.Background(), g.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCannotFinish))
	assert.Equal(t, 0, env.participants.selectCalls)
}

func TestFinishRequiresValidOwner(t *testing.T) {
	env := newTestEnv()
	g := mustReadyGiveaway(t, env)

	env.auth.err = apperrors.New(apperrors.ErrCodeAccountValidation, "Account validation failed")

	_, err := env.svc.Finish(context.Background(), g.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccountValidation))
	assert.Equal(t, 0, env.participants.selectCalls)

	env.auth.err = nil
	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
}

func TestFinishRosterFetchSizedBySelectionTotal(t *testing.T) {
	env := newTestEnv()
	g := mustReadyGiveaway(t, env)

	// Пул больше любой разумной страницы
	env.participants.selectTotal = 25000

	result, err := env.svc.Finish(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 25000, result.TotalParticipants)
	assert.Equal(t, 1, env.participants.rosterCalls)
	assert.Equal(t, 25000, env.participants.lastRosterLimit)
}

func TestFinishEmptyPoolSkipsRosterFetch(t *testing.T) {
	env := newTestEnv()
	g := mustReadyGiveaway(t, env)

	env.participants.winners = nil
	env.participants.selectTotal = 0

	result, err := env.svc.Finish(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.WinnersSelected)
	assert.Equal(t, 0, result.TotalParticipants)
	assert.Equal(t, 0, env.participants.rosterCalls)

	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, stored.Status)
}

func TestFinishWinnerSelectionFailureAborts(t *testing.T) {
	env := newTestEnv()
	g := mustReadyGiveaway(t, env)

	env.participants.selectErr = apperrors.New(apperrors.ErrCodeWinnerSelection, "Winner selection failed")

	_, err := env.svc.Finish(context.Background(), g.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeWinnerSelection))

	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Nil(t, stored.FinishedAt)
	assert.Empty(t, env.repo.logsFor(g.ID, models.LogActionFinish))
}

func TestFinishSuccess(t *testing.T) {
	env := newTestEnv()
	g := mustReadyGiveaway(t, env)

	result, err := env.svc.Finish(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.WinnersSelected)
	assert.Equal(t, 4, result.TotalParticipants)
	assert.Equal(t, 4, result.MessagesDelivered)
	require.NotNil(t, result.ConclusionMessageID)
	assert.Equal(t, int64(77), *result.ConclusionMessageID)

	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, stored.Status)
	assert.NotNil(t, stored.FinishedAt)
	require.NotNil(t, stored.ConclusionMessageID)
	assert.Equal(t, int64(77), *stored.ConclusionMessageID)

	stats, err := env.svc.Stats(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.WinnerCount)
	assert.Equal(t, 4, stats.TotalParticipants)
	assert.Equal(t, 4, stats.MessagesDelivered)
}

// Once winners are selected the giveaway must finish no matter how
// delivery goes.
func TestFinishWinnerSelectionAtomic(t *testing.T) {
	env := newTestEnv()
	g := mustReadyGiveaway(t, env)

	env.participants.rosterErr = apperrors.New(apperrors.ErrCodeServiceUnavailable, "roster unavailable")
	env.delivery.bulkErr = apperrors.New(apperrors.ErrCodeMessagePosting, "bulk failed")
	env.delivery.conclusionErr = apperrors.New(apperrors.ErrCodeMessagePosting, "conclusion failed")

	result, err := env.svc.Finish(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.WinnersSelected)
	// Размер пула известен из розыгрыша даже без ростера
	assert.Equal(t, 4, result.TotalParticipants)
	assert.Equal(t, 0, result.MessagesDelivered)
	assert.Nil(t, result.ConclusionMessageID)

	stored, err := env.svc.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, stored.Status)
	assert.Nil(t, stored.ConclusionMessageID)

	stats, err := env.svc.Stats(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.WinnerCount)
	assert.Equal(t, 4, stats.TotalParticipants)
	assert.Equal(t, 0, stats.MessagesDelivered)

	entries := env.repo.logsFor(g.ID, models.LogActionFinish)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)

	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(entries[0].ResponseData, &snapshot))
	assert.Contains(t, snapshot, "bulk_error")
	assert.Contains(t, snapshot, "conclusion_error")
}

func TestFinishTwiceRejected(t *testing.T) {
	env := newTestEnv()
	g := mustFinishGiveaway(t, env)

	_, err := env.svc.Finish(context.Background(), g.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCannotFinish))
	assert.Equal(t, 1, env.participants.selectCalls)
}

// Full lifecycle with all collaborators succeeding.
func TestLifecycleRoundTrip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	g, err := env.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StageCreated, models.Stage(g))

	_, err = env.svc.Publish(ctx, g.ID)
	require.NoError(t, err)

	_, err = env.svc.SetFinishMessages(ctx, g.ID, finishMessages())
	require.NoError(t, err)

	_, err = env.svc.Finish(ctx, g.ID)
	require.NoError(t, err)

	stored, err := env.svc.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, stored.Status)
	assert.Equal(t, models.StageFinished, models.Stage(stored))
	assert.NotNil(t, stored.ConclusionMessageID)

	publishEntries := env.repo.logsFor(g.ID, models.LogActionPublish)
	finishEntries := env.repo.logsFor(g.ID, models.LogActionFinish)
	require.Len(t, publishEntries, 1)
	require.Len(t, finishEntries, 1)
	assert.True(t, publishEntries[0].Success)
	assert.True(t, finishEntries[0].Success)
}

// mustReadyGiveaway creates, publishes and configures finish messages.
func mustReadyGiveaway(t *testing.T, env *testEnv) *models.Giveaway {
	t.Helper()
	ctx := context.Background()

	g, err := env.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = env.svc.Publish(ctx, g.ID)
	require.NoError(t, err)
	_, err = env.svc.SetFinishMessages(ctx, g.ID, finishMessages())
	require.NoError(t, err)
	return g
}
