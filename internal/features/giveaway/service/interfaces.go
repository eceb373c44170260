package service

import (
	"context"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/clients"
)

// Collaborator surfaces consumed by the service. Satisfied by the typed
// clients in internal/clients; narrowed here so tests can stub them.

type AccountValidator interface {
	ValidateAccount(ctx context.Context, accountID int64) error
}

type ChannelValidator interface {
	ValidateChannelSetup(ctx context.Context, accountID int64) error
}

type ParticipantGateway interface {
	SelectWinners(ctx context.Context, giveawayID int64, winnerCount int) ([]clients.Participant, int, error)
	GetParticipantCount(ctx context.Context, giveawayID int64) (*clients.ParticipantCount, error)
	GetParticipants(ctx context.Context, giveawayID int64, page, limit int) ([]clients.Participant, error)
}

type MessageDelivery interface {
	PostGiveawayMessage(ctx context.Context, msg clients.GiveawayMessage) (*clients.PostResult, error)
	PostConclusionMessage(ctx context.Context, accountID, giveawayID int64, conclusion string, winners []clients.Participant) (*clients.PostResult, error)
	SendBulkMessages(ctx context.Context, msg clients.BulkMessage) (*clients.BulkResult, error)
}

type MediaGateway interface {
	ValidateMediaFile(ctx context.Context, fileID int64) error
	GetMediaURL(ctx context.Context, fileID int64) (string, error)
	ScheduleCleanup(ctx context.Context, fileID int64, delayMinutes int) error
	GetCleanupStatus(ctx context.Context, fileID int64) (string, error)
}

// Cache is the subset of the cache service the giveaway service needs.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateGiveawayCache(ctx context.Context, giveawayID int64) error
}
