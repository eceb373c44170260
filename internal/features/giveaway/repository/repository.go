package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models"
)

var (
	// ErrGiveawayNotFound is returned when no row matches the lookup.
	ErrGiveawayNotFound = errors.New("giveaway not found")

	// ErrStaleTransition is returned when an Apply* mutation matched the row
	// but its status guard failed — a concurrent caller won the race between
	// the precondition check and the update.
	ErrStaleTransition = errors.New("stale status transition")
)

// ActiveLimitError reports a violated single-active-per-account constraint,
// carrying the id of the giveaway already occupying the slot.
type ActiveLimitError struct {
	AccountID        int64
	ActiveGiveawayID int64
}

func (e *ActiveLimitError) Error() string {
	return fmt.Sprintf("account %d already has active giveaway %d", e.AccountID, e.ActiveGiveawayID)
}

// GiveawayRepository owns the persisted entities. CreateActive is atomic with
// respect to concurrent creations for the same account; each Apply* mutation
// is a single guarded row update.
type GiveawayRepository interface {
	// CreateActive inserts a new active giveaway, filling ID and CreatedAt.
	// Returns *ActiveLimitError if the account already has an active one.
	CreateActive(ctx context.Context, g *models.Giveaway) error

	GetByID(ctx context.Context, id int64) (*models.Giveaway, error)
	GetByToken(ctx context.Context, token string) (*models.Giveaway, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	GetActiveByAccount(ctx context.Context, accountID int64) (*models.Giveaway, error)

	// ListByAccount returns one page of the account's giveaways, newest
	// first, together with the total count.
	ListByAccount(ctx context.Context, accountID int64, page, limit int) ([]*models.Giveaway, int, error)

	// ApplyPublish sets the channel message reference and publish timestamp.
	// Guarded on status=active and message_id unset.
	ApplyPublish(ctx context.Context, id, messageID int64, publishedAt time.Time) error

	// ApplyFinishMessages stores all three finish messages and flips
	// readiness. Guarded on status=active.
	ApplyFinishMessages(ctx context.Context, id int64, conclusion, winner, loser string) error

	// ApplyFinish moves the giveaway to its terminal state. Guarded on
	// status=active, message set, messages ready.
	ApplyFinish(ctx context.Context, id int64, conclusionMessageID *int64, finishedAt time.Time) error

	// UpdateMediaCleanup records the cleanup scheduling outcome.
	UpdateMediaCleanup(ctx context.Context, id int64, status models.MediaCleanupStatus, at *time.Time) error

	GetOrCreateStats(ctx context.Context, giveawayID int64) (*models.GiveawayStats, error)
	UpdateStats(ctx context.Context, stats *models.GiveawayStats) error

	// RecordAttempt appends a publishing-log entry. Entries are never
	// updated or deleted by this service.
	RecordAttempt(ctx context.Context, entry *models.PublishingLog) error
	RecentLogs(ctx context.Context, giveawayID int64, limit int) ([]*models.PublishingLog, error)
}
