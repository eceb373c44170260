package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/repository"
)

const uniqueViolation = "23505"

// Имя частичного уникального индекса ON giveaways (account_id) WHERE status='active'.
const activeLimitIndex = "idx_giveaways_single_active"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const giveawayColumns = `
	id, account_id, title, main_body, winner_count, participation_button_text,
	status, message_id, conclusion_message_id, result_token,
	public_conclusion_message, winner_message, loser_message, messages_ready_for_finish,
	media_file_id, media_cleanup_status, media_cleanup_timestamp,
	created_at, published_at, finished_at`

func (r *Repository) CreateActive(ctx context.Context, g *models.Giveaway) error {
	query := `
		INSERT INTO giveaways (
			account_id, title, main_body, winner_count, participation_button_text,
			status, result_token, media_file_id, media_cleanup_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		g.AccountID, g.Title, g.MainBody, g.WinnerCount, g.ParticipationButtonText,
		models.StatusActive, g.ResultToken, g.MediaFileID, models.CleanupPending,
	).Scan(&g.ID, &g.CreatedAt)
	if err == nil {
		g.Status = models.StatusActive
		g.MediaCleanupStatus = models.CleanupPending
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation && pqErr.Constraint == activeLimitIndex {
		limitErr := &repository.ActiveLimitError{AccountID: g.AccountID}
		if active, lookupErr := r.GetActiveByAccount(ctx, g.AccountID); lookupErr == nil {
			limitErr.ActiveGiveawayID = active.ID
		}
		return limitErr
	}
	return fmt.Errorf("insert giveaway: %w", err)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE id = $1`
	g, err := scanGiveaway(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrGiveawayNotFound
		}
		return nil, fmt.Errorf("get giveaway %d: %w", id, err)
	}
	return g, nil
}

func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE result_token = $1`
	g, err := scanGiveaway(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrGiveawayNotFound
		}
		return nil, fmt.Errorf("get giveaway by token: %w", err)
	}
	return g, nil
}

func (r *Repository) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM giveaways WHERE result_token = $1)`, token,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token: %w", err)
	}
	return exists, nil
}

func (r *Repository) GetActiveByAccount(ctx context.Context, accountID int64) (*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE account_id = $1 AND status = $2`
	g, err := scanGiveaway(r.db.QueryRowContext(ctx, query, accountID, models.StatusActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrGiveawayNotFound
		}
		return nil, fmt.Errorf("get active giveaway for account %d: %w", accountID, err)
	}
	return g, nil
}

func (r *Repository) ListByAccount(ctx context.Context, accountID int64, page, limit int) ([]*models.Giveaway, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM giveaways WHERE account_id = $1`, accountID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count giveaways: %w", err)
	}

	offset := (page - 1) * limit
	query := `SELECT ` + giveawayColumns + `
		FROM giveaways
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list giveaways: %w", err)
	}
	defer rows.Close()

	var result []*models.Giveaway
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan giveaway row: %w", err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate giveaways: %w", err)
	}
	return result, total, nil
}

func (r *Repository) ApplyPublish(ctx context.Context, id, messageID int64, publishedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE giveaways
		SET message_id = $2, published_at = $3
		WHERE id = $1 AND status = $4 AND message_id IS NULL`,
		id, messageID, publishedAt, models.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("apply publish: %w", err)
	}
	return r.checkGuarded(ctx, res, id)
}

func (r *Repository) ApplyFinishMessages(ctx context.Context, id int64, conclusion, winner, loser string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE giveaways
		SET public_conclusion_message = $2,
		    winner_message = $3,
		    loser_message = $4,
		    messages_ready_for_finish = TRUE
		WHERE id = $1 AND status = $5`,
		id, conclusion, winner, loser, models.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("apply finish messages: %w", err)
	}
	return r.checkGuarded(ctx, res, id)
}

func (r *Repository) ApplyFinish(ctx context.Context, id int64, conclusionMessageID *int64, finishedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE giveaways
		SET status = $2, conclusion_message_id = $3, finished_at = $4
		WHERE id = $1 AND status = $5 AND message_id IS NOT NULL AND messages_ready_for_finish`,
		id, models.StatusFinished, conclusionMessageID, finishedAt, models.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("apply finish: %w", err)
	}
	return r.checkGuarded(ctx, res, id)
}

func (r *Repository) UpdateMediaCleanup(ctx context.Context, id int64, status models.MediaCleanupStatus, at *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE giveaways
		SET media_cleanup_status = $2, media_cleanup_timestamp = $3
		WHERE id = $1`,
		id, status, at,
	)
	if err != nil {
		return fmt.Errorf("update media cleanup: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update media cleanup: %w", err)
	}
	if affected == 0 {
		return repository.ErrGiveawayNotFound
	}
	return nil
}

// checkGuarded distinguishes a missing row from a lost status race when a
// guarded update touched nothing.
func (r *Repository) checkGuarded(ctx context.Context, res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM giveaways WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check giveaway %d: %w", id, err)
	}
	if !exists {
		return repository.ErrGiveawayNotFound
	}
	return repository.ErrStaleTransition
}

func (r *Repository) GetOrCreateStats(ctx context.Context, giveawayID int64) (*models.GiveawayStats, error) {
	stats, err := r.getStats(ctx, giveawayID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get stats for giveaway %d: %w", giveawayID, err)
	}

	stats = &models.GiveawayStats{GiveawayID: giveawayID}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO giveaway_stats (giveaway_id, total_participants, captcha_completed_participants, winner_count, messages_delivered)
		VALUES ($1, 0, 0, 0, 0)
		ON CONFLICT (giveaway_id) DO UPDATE SET giveaway_id = EXCLUDED.giveaway_id
		RETURNING id, last_updated`,
		giveawayID,
	).Scan(&stats.ID, &stats.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("create stats for giveaway %d: %w", giveawayID, err)
	}
	return stats, nil
}

func (r *Repository) getStats(ctx context.Context, giveawayID int64) (*models.GiveawayStats, error) {
	var s models.GiveawayStats
	err := r.db.QueryRowContext(ctx, `
		SELECT id, giveaway_id, total_participants, captcha_completed_participants,
		       winner_count, messages_delivered, last_updated
		FROM giveaway_stats WHERE giveaway_id = $1`,
		giveawayID,
	).Scan(&s.ID, &s.GiveawayID, &s.TotalParticipants, &s.CaptchaCompletedParticipants,
		&s.WinnerCount, &s.MessagesDelivered, &s.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) UpdateStats(ctx context.Context, stats *models.GiveawayStats) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE giveaway_stats
		SET total_participants = $2,
		    captcha_completed_participants = $3,
		    winner_count = $4,
		    messages_delivered = $5,
		    last_updated = NOW()
		WHERE giveaway_id = $1
		RETURNING last_updated`,
		stats.GiveawayID, stats.TotalParticipants, stats.CaptchaCompletedParticipants,
		stats.WinnerCount, stats.MessagesDelivered,
	).Scan(&stats.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrGiveawayNotFound
		}
		return fmt.Errorf("update stats for giveaway %d: %w", stats.GiveawayID, err)
	}
	return nil
}

func (r *Repository) RecordAttempt(ctx context.Context, entry *models.PublishingLog) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO publishing_logs (giveaway_id, action, telegram_message_id, success, error_message, response_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		entry.GiveawayID, entry.Action, entry.TelegramMessageID,
		entry.Success, nullString(entry.ErrorMessage), nullRaw(entry.ResponseData),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("record publishing log: %w", err)
	}
	return nil
}

func (r *Repository) RecentLogs(ctx context.Context, giveawayID int64, limit int) ([]*models.PublishingLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, giveaway_id, action, telegram_message_id, success, error_message, response_data, created_at
		FROM publishing_logs
		WHERE giveaway_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		giveawayID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list publishing logs: %w", err)
	}
	defer rows.Close()

	var result []*models.PublishingLog
	for rows.Next() {
		var (
			entry    models.PublishingLog
			errMsg   sql.NullString
			respData []byte
		)
		if err := rows.Scan(&entry.ID, &entry.GiveawayID, &entry.Action, &entry.TelegramMessageID,
			&entry.Success, &errMsg, &respData, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan publishing log: %w", err)
		}
		entry.ErrorMessage = errMsg.String
		entry.ResponseData = respData
		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publishing logs: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGiveaway(row rowScanner) (*models.Giveaway, error) {
	var (
		g          models.Giveaway
		conclusion sql.NullString
		winner     sql.NullString
		loser      sql.NullString
	)
	err := row.Scan(
		&g.ID, &g.AccountID, &g.Title, &g.MainBody, &g.WinnerCount, &g.ParticipationButtonText,
		&g.Status, &g.MessageID, &g.ConclusionMessageID, &g.ResultToken,
		&conclusion, &winner, &loser, &g.MessagesReadyForFinish,
		&g.MediaFileID, &g.MediaCleanupStatus, &g.MediaCleanupTimestamp,
		&g.CreatedAt, &g.PublishedAt, &g.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	g.PublicConclusionMessage = conclusion.String
	g.WinnerMessage = winner.String
	g.LoserMessage = loser.String
	return &g, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullRaw(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
