package service

import (
	"context"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/common/cache"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/logger"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/validation"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models/dto"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/repository"
	"github.com/azatarm-prog/telegive-giveaway/internal/utils/token"
)

const defaultLogLimit = 10

// Options carries the tunables the service reads from configuration.
type Options struct {
	MaxWinnerCount      int
	ResultTokenLength   int
	TokenMaxAttempts    int
	CleanupDelayMinutes int
	StatsCacheTTL       time.Duration
}

// Service orchestrates the giveaway lifecycle. All collaborator access
// goes through the narrow interfaces so the sagas stay testable.
type Service struct {
	repo      repository.GiveawayRepository
	validator *validation.Validator
	tokens    *token.Issuer
	cache     Cache

	auth         AccountValidator
	channel      ChannelValidator
	participants ParticipantGateway
	delivery     MessageDelivery
	media        MediaGateway

	cleanupDelayMinutes int
	statsCacheTTL       time.Duration
}

func NewService(
	repo repository.GiveawayRepository,
	cacheSvc Cache,
	auth AccountValidator,
	channel ChannelValidator,
	participants ParticipantGateway,
	delivery MessageDelivery,
	media MediaGateway,
	opts Options,
) *Service {
	return &Service{
		repo:                repo,
		validator:           validation.NewValidator(opts.MaxWinnerCount, opts.ResultTokenLength),
		tokens:              token.NewIssuer(opts.ResultTokenLength, opts.TokenMaxAttempts),
		cache:               cacheSvc,
		auth:                auth,
		channel:             channel,
		participants:        participants,
		delivery:            delivery,
		media:               media,
		cleanupDelayMinutes: opts.CleanupDelayMinutes,
		statsCacheTTL:       opts.StatsCacheTTL,
	}
}

// Create validates the input, checks the owning account with the auth
// service, issues a result token and inserts the new active giveaway.
// The single-active-per-account rule is enforced by storage.
func (s *Service) Create(ctx context.Context, req *dto.CreateGiveawayRequest) (*models.Giveaway, error) {
	req.Title = validation.Sanitize(req.Title)
	req.MainBody = validation.Sanitize(req.MainBody)
	req.ParticipationButtonText = validation.Sanitize(req.ParticipationButtonText)
	if req.ParticipationButtonText == "" {
		req.ParticipationButtonText = "Participate"
	}

	if issues := s.validator.ValidateCreation(req.AccountID, req.Title, req.MainBody, req.WinnerCount, req.ParticipationButtonText); len(issues) > 0 {
		return nil, errors.NewValidationError(issues)
	}

	if err := s.auth.ValidateAccount(ctx, req.AccountID); err != nil {
		return nil, err
	}

	if req.MediaFileID != nil {
		if err := s.media.ValidateMediaFile(ctx, *req.MediaFileID); err != nil {
			return nil, err
		}
	}

	resultToken, err := s.tokens.IssueUnique(ctx, s.repo.TokenExists)
	if err != nil {
		return nil, err
	}

	g := &models.Giveaway{
		AccountID:               req.AccountID,
		Title:                   req.Title,
		MainBody:                req.MainBody,
		WinnerCount:             req.WinnerCount,
		ParticipationButtonText: req.ParticipationButtonText,
		ResultToken:             resultToken,
		MediaFileID:             req.MediaFileID,
	}

	if err := s.repo.CreateActive(ctx, g); err != nil {
		if limitErr, ok := asActiveLimit(err); ok {
			return nil, errors.NewActiveLimitError(limitErr.AccountID, limitErr.ActiveGiveawayID)
		}
		return nil, errors.NewDatabaseError("create giveaway", err)
	}

	logger.Info().
		Int64("giveaway_id", g.ID).
		Int64("account_id", g.AccountID).
		Msg("Giveaway created")
	return g, nil
}

// GetActive returns the account's single active giveaway.
func (s *Service) GetActive(ctx context.Context, accountID int64) (*models.Giveaway, error) {
	if err := s.auth.ValidateAccount(ctx, accountID); err != nil {
		return nil, err
	}

	g, err := s.repo.GetActiveByAccount(ctx, accountID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.New(errors.ErrCodeNoActiveGiveaway, "No active giveaway for account").
				WithDetail("account_id", accountID)
		}
		return nil, errors.NewDatabaseError("get active giveaway", err)
	}
	return g, nil
}

// GiveawayView is the read-endpoint projection: the stored record plus
// the derived lifecycle info and, once published, the live participant
// count.
type GiveawayView struct {
	*models.Giveaway
	ParticipantCount *int64                `json:"participant_count,omitempty"`
	LifecycleStage   models.LifecycleStage `json:"lifecycle_stage"`
	NextActions      []models.Action       `json:"next_actions"`
}

func (s *Service) view(ctx context.Context, g *models.Giveaway) *GiveawayView {
	v := &GiveawayView{
		Giveaway:       g,
		LifecycleStage: models.Stage(g),
		NextActions:    models.NextActions(g),
	}
	// Счетчик участников есть только у опубликованных гивов
	if g.IsPublished() {
		if count, ok := s.participantCount(ctx, g.ID); ok {
			v.ParticipantCount = &count
		}
	}
	return v
}

// GetActiveView returns the account's active giveaway enriched for the
// read endpoint.
func (s *Service) GetActiveView(ctx context.Context, accountID int64) (*GiveawayView, error) {
	g, err := s.GetActive(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, g), nil
}

// GetView returns one giveaway enriched for the read endpoint.
func (s *Service) GetView(ctx context.Context, id int64) (*GiveawayView, error) {
	g, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, g), nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.Giveaway, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NewGiveawayNotFoundError(id)
		}
		return nil, errors.NewDatabaseError("get giveaway", err)
	}
	return g, nil
}

// getOwned loads a giveaway and confirms its owner account with the auth
// service. Every owner-facing operation goes through here; only the
// public token lookup skips it.
func (s *Service) getOwned(ctx context.Context, id int64) (*models.Giveaway, error) {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.auth.ValidateAccount(ctx, g.AccountID); err != nil {
		return nil, err
	}
	return g, nil
}

// SetFinishMessages stores all three finish messages atomically. Allowed
// at any point while the giveaway is still active, including overwriting
// previously configured messages.
func (s *Service) SetFinishMessages(ctx context.Context, id int64, req *dto.FinishMessagesRequest) (*models.Giveaway, error) {
	g, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	if ok, reason := models.CanUpdateFinishMessages(g); !ok {
		return nil, errors.New(errors.ErrCodeCannotUpdateFinish, reason).
			WithDetail("giveaway_id", id).
			WithDetail("status", g.Status)
	}

	conclusion := validation.Sanitize(req.PublicConclusionMessage)
	winner := validation.Sanitize(req.WinnerMessage)
	loser := validation.Sanitize(req.LoserMessage)

	if issues := s.validator.ValidateFinishMessages(conclusion, winner, loser); len(issues) > 0 {
		return nil, errors.NewValidationError(issues)
	}

	if err := s.repo.ApplyFinishMessages(ctx, id, conclusion, winner, loser); err != nil {
		return nil, s.mapApplyError(err, id, "apply finish messages")
	}
	g.SetFinishMessages(conclusion, winner, loser)

	entry := models.NewAttempt(id, models.LogActionUpdate, true, nil, "", map[string]bool{"messages_ready_for_finish": true})
	if err := s.repo.RecordAttempt(ctx, entry); err != nil {
		logger.Warn().Err(err).Int64("giveaway_id", id).Msg("Failed to record finish-messages update")
	}

	logger.Info().Int64("giveaway_id", id).Msg("Finish messages configured")
	return g, nil
}

// HistoryItem is a giveaway enriched with the live participant count.
type HistoryItem struct {
	*models.Giveaway
	ParticipantsCount *int64 `json:"participants_count,omitempty"`
}

// History returns one page of the account's giveaways, newest first.
// Participant counts are fetched best-effort and cached.
func (s *Service) History(ctx context.Context, accountID int64, page, limit int) ([]*HistoryItem, *dto.Pagination, error) {
	if err := s.auth.ValidateAccount(ctx, accountID); err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	list, total, err := s.repo.ListByAccount(ctx, accountID, page, limit)
	if err != nil {
		return nil, nil, errors.NewDatabaseError("list giveaways", err)
	}

	items := make([]*HistoryItem, 0, len(list))
	for _, g := range list {
		item := &HistoryItem{Giveaway: g}
		if count, ok := s.participantCount(ctx, g.ID); ok {
			item.ParticipantsCount = &count
		}
		items = append(items, item)
	}

	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return items, &dto.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// participantCount reads the cached roster size, falling back to the
// participant service. Failures degrade to no count rather than an error.
func (s *Service) participantCount(ctx context.Context, giveawayID int64) (int64, bool) {
	key := cache.ParticipantCountKey(giveawayID)
	if s.cache != nil {
		var cached int64
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, true
		}
	}

	count, err := s.participants.GetParticipantCount(ctx, giveawayID)
	if err != nil {
		logger.Warn().Err(err).Int64("giveaway_id", giveawayID).Msg("Participant count unavailable")
		return 0, false
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count.Total, s.statsCacheTTL); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache participant count")
		}
	}
	return count.Total, true
}

// Stats returns the stored counters, refreshed from the participant
// service for active giveaways. The refresh is best-effort and cached.
func (s *Service) Stats(ctx context.Context, giveawayID int64) (*models.GiveawayStats, error) {
	g, err := s.getOwned(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.GetOrCreateStats(ctx, giveawayID)
	if err != nil {
		return nil, errors.NewDatabaseError("get stats", err)
	}

	if g.IsActive() {
		s.refreshStats(ctx, stats)
	}
	return stats, nil
}

func (s *Service) refreshStats(ctx context.Context, stats *models.GiveawayStats) {
	key := cache.StatsKey(stats.GiveawayID)
	if s.cache != nil {
		var cached models.GiveawayStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			*stats = cached
			return
		}
	}

	count, err := s.participants.GetParticipantCount(ctx, stats.GiveawayID)
	if err != nil {
		logger.Warn().Err(err).Int64("giveaway_id", stats.GiveawayID).Msg("Stats refresh skipped")
		return
	}

	stats.UpdateParticipants(int(count.Total), int(count.CaptchaCompleted))
	if err := s.repo.UpdateStats(ctx, stats); err != nil {
		logger.Warn().Err(err).Int64("giveaway_id", stats.GiveawayID).Msg("Failed to persist refreshed stats")
		return
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.statsCacheTTL); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache stats")
		}
	}
}

// TokenView is the public, unauthenticated projection served to
// participants checking results. It never exposes the account id or the
// admin-facing title body pair beyond what the original post already showed.
type TokenView struct {
	ID                      int64                 `json:"id"`
	Title                   string                `json:"title"`
	Status                  models.GiveawayStatus `json:"status"`
	WinnerMessage           string                `json:"winner_message,omitempty"`
	LoserMessage            string                `json:"loser_message,omitempty"`
	PublicConclusionMessage string                `json:"public_conclusion_message,omitempty"`
	FinishedAt              *time.Time            `json:"finished_at,omitempty"`
}

// ByToken resolves a result token to the public view of its giveaway.
func (s *Service) ByToken(ctx context.Context, resultToken string) (*TokenView, error) {
	if issues := s.validator.ValidateResultToken(resultToken); len(issues) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidTokenFormat, "Invalid result token format")
	}

	g, err := s.repo.GetByToken(ctx, resultToken)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.New(errors.ErrCodeGiveawayNotFound, "Giveaway not found")
		}
		return nil, errors.NewDatabaseError("get giveaway by token", err)
	}

	view := &TokenView{
		ID:     g.ID,
		Title:  g.Title,
		Status: g.Status,
	}
	// Сообщения о результатах видны только после завершения
	if g.IsFinished() {
		view.WinnerMessage = g.WinnerMessage
		view.LoserMessage = g.LoserMessage
		view.PublicConclusionMessage = g.PublicConclusionMessage
		view.FinishedAt = g.FinishedAt
	}
	return view, nil
}

// Logs returns the most recent publishing-log entries for a giveaway.
func (s *Service) Logs(ctx context.Context, giveawayID int64, limit int) ([]*models.PublishingLog, error) {
	if _, err := s.getOwned(ctx, giveawayID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 50 {
		limit = defaultLogLimit
	}
	entries, err := s.repo.RecentLogs(ctx, giveawayID, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("list publishing logs", err)
	}
	return entries, nil
}

// ValidateState reports internal consistency of the stored record. A
// scheduled media cleanup is reconciled with the media service on the
// way, so the periodic refresher can drive the cleanup status to its
// terminal value through this endpoint.
func (s *Service) ValidateState(ctx context.Context, giveawayID int64) (*models.StateValidation, *models.Giveaway, error) {
	g, err := s.getOwned(ctx, giveawayID)
	if err != nil {
		return nil, nil, err
	}
	s.refreshMediaCleanup(ctx, g)
	report := models.ValidateState(g)
	return &report, g, nil
}

// refreshMediaCleanup is best-effort: the stored status stays scheduled
// when the media service is unreachable or still pending.
func (s *Service) refreshMediaCleanup(ctx context.Context, g *models.Giveaway) {
	if g.MediaFileID == nil || g.MediaCleanupStatus != models.CleanupScheduled {
		return
	}

	status, err := s.media.GetCleanupStatus(ctx, *g.MediaFileID)
	if err != nil {
		logger.Warn().Err(err).Int64("giveaway_id", g.ID).Msg("Media cleanup status unavailable")
		return
	}

	var next models.MediaCleanupStatus
	switch status {
	case "completed":
		next = models.CleanupCompleted
	case "failed":
		next = models.CleanupFailed
	default:
		return
	}

	if err := s.repo.UpdateMediaCleanup(ctx, g.ID, next, g.MediaCleanupTimestamp); err != nil {
		logger.Warn().Err(err).Int64("giveaway_id", g.ID).Msg("Failed to record cleanup status")
		return
	}
	g.MediaCleanupStatus = next
}

func (s *Service) mapApplyError(err error, id int64, operation string) error {
	switch {
	case isNotFound(err):
		return errors.NewGiveawayNotFoundError(id)
	case isStale(err):
		return errors.New(errors.ErrCodeStaleTransition, "Giveaway state changed concurrently").
			WithDetail("giveaway_id", id)
	default:
		return errors.NewDatabaseError(operation, err)
	}
}
