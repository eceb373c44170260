package models

import "time"

type GiveawayStatus string

const (
	StatusActive   GiveawayStatus = "active"
	StatusFinished GiveawayStatus = "finished"
)

type MediaCleanupStatus string

const (
	CleanupPending   MediaCleanupStatus = "pending"
	CleanupScheduled MediaCleanupStatus = "scheduled"
	CleanupCompleted MediaCleanupStatus = "completed"
	CleanupFailed    MediaCleanupStatus = "failed"
)

// Giveaway is the aggregate root of the service. The status column only holds
// active/finished; the finer lifecycle stage is derived from the triple
// (status, message_id, messages_ready_for_finish), see lifecycle.go.
type Giveaway struct {
	ID        int64 `json:"id"`
	AccountID int64 `json:"account_id"`

	// Title is admin-only; MainBody is what subscribers see in the post.
	Title                   string `json:"title"`
	MainBody                string `json:"main_body"`
	WinnerCount             int    `json:"winner_count"`
	ParticipationButtonText string `json:"participation_button_text"`

	PublicConclusionMessage string `json:"public_conclusion_message,omitempty"`
	WinnerMessage           string `json:"winner_message,omitempty"`
	LoserMessage            string `json:"loser_message,omitempty"`
	MessagesReadyForFinish  bool   `json:"messages_ready_for_finish"`

	Status              GiveawayStatus `json:"status"`
	MessageID           *int64         `json:"message_id"`
	ConclusionMessageID *int64         `json:"conclusion_message_id"`
	ResultToken         string         `json:"result_token,omitempty"`

	MediaFileID           *int64             `json:"media_file_id"`
	MediaCleanupStatus    MediaCleanupStatus `json:"media_cleanup_status"`
	MediaCleanupTimestamp *time.Time         `json:"media_cleanup_timestamp,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
	FinishedAt  *time.Time `json:"finished_at"`
}

func (g *Giveaway) IsActive() bool {
	return g.Status == StatusActive
}

func (g *Giveaway) IsFinished() bool {
	return g.Status == StatusFinished
}

func (g *Giveaway) IsPublished() bool {
	return g.MessageID != nil
}

// MarkPublished records the posted channel message. Mutation of the stored
// row happens through the repository; this keeps the in-memory copy in sync.
func (g *Giveaway) MarkPublished(messageID int64, publishedAt time.Time) {
	g.MessageID = &messageID
	g.PublishedAt = &publishedAt
}

// MarkFinished flips the giveaway into its terminal state.
func (g *Giveaway) MarkFinished(conclusionMessageID *int64, finishedAt time.Time) {
	g.Status = StatusFinished
	g.ConclusionMessageID = conclusionMessageID
	g.FinishedAt = &finishedAt
}

// SetFinishMessages stores all three finish messages and flips readiness.
// The readiness flag is true iff all three are non-empty, which the validator
// guarantees before this is called.
func (g *Giveaway) SetFinishMessages(conclusion, winner, loser string) {
	g.PublicConclusionMessage = conclusion
	g.WinnerMessage = winner
	g.LoserMessage = loser
	g.MessagesReadyForFinish = true
}
