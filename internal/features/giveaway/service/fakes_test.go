package service

import (
	"context"
	"sync"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/clients"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/repository"
)

// memoryRepo is an in-memory GiveawayRepository mirroring the storage
// guarantees of the postgres implementation: single active giveaway per
// account and guarded status transitions.
type memoryRepo struct {
	mu        sync.Mutex
	nextID    int64
	giveaways map[int64]*models.Giveaway
	stats     map[int64]*models.GiveawayStats
	logs      []*models.PublishingLog
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextID:    1,
		giveaways: make(map[int64]*models.Giveaway),
		stats:     make(map[int64]*models.GiveawayStats),
	}
}

func (r *memoryRepo) CreateActive(_ context.Context, g *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.giveaways {
		if existing.AccountID == g.AccountID && existing.Status == models.StatusActive {
			return &repository.ActiveLimitError{AccountID: g.AccountID, ActiveGiveawayID: existing.ID}
		}
	}

	g.ID = r.nextID
	r.nextID++
	g.Status = models.StatusActive
	g.MediaCleanupStatus = models.CleanupPending
	g.CreatedAt = time.Now().UTC()

	copied := *g
	r.giveaways[g.ID] = &copied
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (*models.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *memoryRepo) GetByToken(_ context.Context, token string) (*models.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.giveaways {
		if g.ResultToken == token {
			copied := *g
			return &copied, nil
		}
	}
	return nil, repository.ErrGiveawayNotFound
}

func (r *memoryRepo) TokenExists(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.giveaways {
		if g.ResultToken == token {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) GetActiveByAccount(_ context.Context, accountID int64) (*models.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.giveaways {
		if g.AccountID == accountID && g.Status == models.StatusActive {
			copied := *g
			return &copied, nil
		}
	}
	return nil, repository.ErrGiveawayNotFound
}

func (r *memoryRepo) ListByAccount(_ context.Context, accountID int64, page, limit int) ([]*models.Giveaway, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*models.Giveaway
	for _, g := range r.giveaways {
		if g.AccountID == accountID {
			copied := *g
			all = append(all, &copied)
		}
	}
	// Стабильный порядок по id, новые первыми
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].ID > all[i].ID {
				all[i], all[j] = all[j], all[i]
			}
		}
	}

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *memoryRepo) ApplyPublish(_ context.Context, id, messageID int64, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[id]
	if !ok {
		return repository.ErrGiveawayNotFound
	}
	if g.Status != models.StatusActive || g.MessageID != nil {
		return repository.ErrStaleTransition
	}
	g.MarkPublished(messageID, publishedAt)
	return nil
}

func (r *memoryRepo) ApplyFinishMessages(_ context.Context, id int64, conclusion, winner, loser string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[id]
	if !ok {
		return repository.ErrGiveawayNotFound
	}
	if g.Status != models.StatusActive {
		return repository.ErrStaleTransition
	}
	g.SetFinishMessages(conclusion, winner, loser)
	return nil
}

func (r *memoryRepo) ApplyFinish(_ context.Context, id int64, conclusionMessageID *int64, finishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[id]
	if !ok {
		return repository.ErrGiveawayNotFound
	}
	if g.Status != models.StatusActive || g.MessageID == nil || !g.MessagesReadyForFinish {
		return repository.ErrStaleTransition
	}
	g.MarkFinished(conclusionMessageID, finishedAt)
	return nil
}

func (r *memoryRepo) UpdateMediaCleanup(_ context.Context, id int64, status models.MediaCleanupStatus, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[id]
	if !ok {
		return repository.ErrGiveawayNotFound
	}
	g.MediaCleanupStatus = status
	g.MediaCleanupTimestamp = at
	return nil
}

func (r *memoryRepo) GetOrCreateStats(_ context.Context, giveawayID int64) (*models.GiveawayStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stats[giveawayID]; ok {
		copied := *s
		return &copied, nil
	}
	s := &models.GiveawayStats{ID: giveawayID, GiveawayID: giveawayID, LastUpdated: time.Now().UTC()}
	r.stats[giveawayID] = s
	copied := *s
	return &copied, nil
}

func (r *memoryRepo) UpdateStats(_ context.Context, stats *models.GiveawayStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stats[stats.GiveawayID]; !ok {
		return repository.ErrGiveawayNotFound
	}
	copied := *stats
	copied.LastUpdated = time.Now().UTC()
	r.stats[stats.GiveawayID] = &copied
	return nil
}

func (r *memoryRepo) RecordAttempt(_ context.Context, entry *models.PublishingLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = int64(len(r.logs) + 1)
	entry.CreatedAt = time.Now().UTC()
	r.logs = append(r.logs, entry)
	return nil
}

func (r *memoryRepo) RecentLogs(_ context.Context, giveawayID int64, limit int) ([]*models.PublishingLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.PublishingLog
	for i := len(r.logs) - 1; i >= 0 && len(result) < limit; i-- {
		if r.logs[i].GiveawayID == giveawayID {
			result = append(result, r.logs[i])
		}
	}
	return result, nil
}

func (r *memoryRepo) logsFor(giveawayID int64, action models.LogAction) []*models.PublishingLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.PublishingLog
	for _, entry := range r.logs {
		if entry.GiveawayID == giveawayID && entry.Action == action {
			result = append(result, entry)
		}
	}
	return result
}

// --- Collaborator stubs ---

type stubAuth struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubAuth) ValidateAccount(context.Context, int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *stubAuth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubChannel struct {
	err error
}

func (s *stubChannel) ValidateChannelSetup(context.Context, int64) error {
	return s.err
}

type stubParticipants struct {
	winners     []clients.Participant
	selectTotal int
	selectErr   error
	selectCalls int

	roster          []clients.Participant
	rosterErr       error
	rosterCalls     int
	lastRosterLimit int

	count    clients.ParticipantCount
	countErr error
}

func (s *stubParticipants) SelectWinners(_ context.Context, _ int64, _ int) ([]clients.Participant, int, error) {
	s.selectCalls++
	if s.selectErr != nil {
		return nil, 0, s.selectErr
	}
	return s.winners, s.selectTotal, nil
}

func (s *stubParticipants) GetParticipantCount(context.Context, int64) (*clients.ParticipantCount, error) {
	if s.countErr != nil {
		return nil, s.countErr
	}
	count := s.count
	return &count, nil
}

func (s *stubParticipants) GetParticipants(_ context.Context, _ int64, _ int, limit int) ([]clients.Participant, error) {
	s.rosterCalls++
	s.lastRosterLimit = limit
	if s.rosterErr != nil {
		return nil, s.rosterErr
	}
	return s.roster, nil
}

type stubDelivery struct {
	postMessageID int64
	postErr       error
	postCalls     int

	bulkDelivered int64
	bulkErr       error

	conclusionMessageID int64
	conclusionErr       error
}

func (s *stubDelivery) PostGiveawayMessage(context.Context, clients.GiveawayMessage) (*clients.PostResult, error) {
	s.postCalls++
	if s.postErr != nil {
		return nil, s.postErr
	}
	return &clients.PostResult{MessageID: s.postMessageID}, nil
}

func (s *stubDelivery) PostConclusionMessage(context.Context, int64, int64, string, []clients.Participant) (*clients.PostResult, error) {
	if s.conclusionErr != nil {
		return nil, s.conclusionErr
	}
	return &clients.PostResult{MessageID: s.conclusionMessageID}, nil
}

func (s *stubDelivery) SendBulkMessages(context.Context, clients.BulkMessage) (*clients.BulkResult, error) {
	if s.bulkErr != nil {
		return nil, s.bulkErr
	}
	return &clients.BulkResult{Delivered: s.bulkDelivered}, nil
}

type stubMedia struct {
	validateErr error
	url         string
	urlErr      error
	scheduleErr error

	cleanupStatus    string
	cleanupStatusErr error

	scheduledFiles []int64
}

func (s *stubMedia) ValidateMediaFile(context.Context, int64) error {
	return s.validateErr
}

func (s *stubMedia) GetMediaURL(context.Context, int64) (string, error) {
	if s.urlErr != nil {
		return "", s.urlErr
	}
	return s.url, nil
}

func (s *stubMedia) ScheduleCleanup(_ context.Context, fileID int64, _ int) error {
	if s.scheduleErr != nil {
		return s.scheduleErr
	}
	s.scheduledFiles = append(s.scheduledFiles, fileID)
	return nil
}

func (s *stubMedia) GetCleanupStatus(context.Context, int64) (string, error) {
	if s.cleanupStatusErr != nil {
		return "", s.cleanupStatusErr
	}
	return s.cleanupStatus, nil
}

// testEnv wires a service over the in-memory repo with all collaborators
// stubbed to succeed.
type testEnv struct {
	repo         *memoryRepo
	auth         *stubAuth
	channel      *stubChannel
	participants *stubParticipants
	delivery     *stubDelivery
	media        *stubMedia
	svc          *Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:    newMemoryRepo(),
		auth:    &stubAuth{},
		channel: &stubChannel{},
		participants: &stubParticipants{
			winners:     []clients.Participant{{UserID: 100}, {UserID: 200}, {UserID: 300}},
			selectTotal: 4,
			roster:      []clients.Participant{{UserID: 100}, {UserID: 200}, {UserID: 300}, {UserID: 400}},
			count:       clients.ParticipantCount{Total: 4, CaptchaCompleted: 3},
		},
		delivery: &stubDelivery{postMessageID: 42, bulkDelivered: 4, conclusionMessageID: 77},
		media:    &stubMedia{url: "https://media.example/file.jpg"},
	}
	env.svc = NewService(
		env.repo, nil,
		env.auth, env.channel, env.participants, env.delivery, env.media,
		Options{
			MaxWinnerCount:      100,
			ResultTokenLength:   32,
			TokenMaxAttempts:    10,
			CleanupDelayMinutes: 5,
			StatsCacheTTL:       30 * time.Second,
		},
	)
	return env
}
