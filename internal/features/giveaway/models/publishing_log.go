package models

import (
	"encoding/json"
	"time"
)

// LogAction names the operation a publishing-log entry records.
type LogAction string

const (
	LogActionPublish LogAction = "publish"
	LogActionFinish  LogAction = "finish"
	LogActionUpdate  LogAction = "update"
)

// PublishingLog is an append-only audit record of publish/finish/update
// attempts. Entries are never mutated after insertion; retention pruning is
// an external concern.
type PublishingLog struct {
	ID         int64 `json:"id"`
	GiveawayID int64 `json:"giveaway_id"`

	Action            LogAction       `json:"action"`
	TelegramMessageID *int64          `json:"telegram_message_id"`
	Success           bool            `json:"success"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	ResponseData      json.RawMessage `json:"response_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewAttempt builds a log entry; ResponseData carries the raw collaborator
// response so a failed decision can be reconstructed later.
func NewAttempt(giveawayID int64, action LogAction, success bool, messageID *int64, errMessage string, response interface{}) *PublishingLog {
	entry := &PublishingLog{
		GiveawayID:        giveawayID,
		Action:            action,
		TelegramMessageID: messageID,
		Success:           success,
		ErrorMessage:      errMessage,
		CreatedAt:         time.Now().UTC(),
	}
	if response != nil {
		if data, err := json.Marshal(response); err == nil {
			entry.ResponseData = data
		}
	}
	return entry
}
