package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
)

// BotClient talks to the bot service that performs all Telegram delivery
// on behalf of the giveaway service.
type BotClient struct {
	baseClient
}

func NewBotClient(baseURL string, healthTimeout time.Duration) *BotClient {
	return &BotClient{baseClient: newBaseClient("bot", baseURL, healthTimeout)}
}

// GiveawayMessage is the payload for posting the participation message to
// the account's channel.
type GiveawayMessage struct {
	AccountID               int64  `json:"account_id"`
	GiveawayID              int64  `json:"giveaway_id"`
	MainBody                string `json:"main_body"`
	WinnerCount             int    `json:"winner_count"`
	ParticipationButtonText string `json:"participation_button_text"`
	ResultToken             string `json:"result_token"`
	MediaFileID             *int64 `json:"media_file_id,omitempty"`
	MediaURL                string `json:"media_url,omitempty"`
}

// PostResult carries the Telegram message reference returned by the bot.
type PostResult struct {
	envelope
	MessageID int64 `json:"message_id"`
}

// PostGiveawayMessage publishes the giveaway to the channel. The returned
// message id anchors the giveaway in Telegram.
func (c *BotClient) PostGiveawayMessage(ctx context.Context, msg GiveawayMessage) (*PostResult, error) {
	var resp PostResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/messages/giveaway", postingTimeout, msg, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return nil, callErr.asAppError(errors.ErrCodeMessagePosting, "Failed to post giveaway message").
				WithDetail("giveaway_id", msg.GiveawayID)
		}
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New(errors.ErrCodeMessagePosting, "Failed to post giveaway message").
			WithDetail("giveaway_id", msg.GiveawayID)
	}
	return &resp, nil
}

type conclusionMessage struct {
	AccountID         int64         `json:"account_id"`
	GiveawayID        int64         `json:"giveaway_id"`
	ConclusionMessage string        `json:"conclusion_message"`
	Winners           []Participant `json:"winners"`
}

// PostConclusionMessage publishes the public conclusion to the channel.
func (c *BotClient) PostConclusionMessage(ctx context.Context, accountID, giveawayID int64, conclusion string, winners []Participant) (*PostResult, error) {
	body := conclusionMessage{
		AccountID:         accountID,
		GiveawayID:        giveawayID,
		ConclusionMessage: conclusion,
		Winners:           winners,
	}
	var resp PostResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/messages/conclusion", postingTimeout, body, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return nil, callErr.asAppError(errors.ErrCodeMessagePosting, "Failed to post conclusion message").
				WithDetail("giveaway_id", giveawayID)
		}
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New(errors.ErrCodeMessagePosting, "Failed to post conclusion message").
			WithDetail("giveaway_id", giveawayID)
	}
	return &resp, nil
}

// BulkMessage is the payload for direct winner/loser notifications.
type BulkMessage struct {
	AccountID     int64         `json:"account_id"`
	GiveawayID    int64         `json:"giveaway_id"`
	WinnerMessage string        `json:"winner_message"`
	LoserMessage  string        `json:"loser_message"`
	Winners       []Participant `json:"winners"`
	Participants  []Participant `json:"participants"`
}

// BulkResult reports how many direct messages were delivered.
type BulkResult struct {
	envelope
	Delivered int64 `json:"delivered"`
}

// SendBulkMessages fans direct messages out to every participant. The bot
// side may take a while on large rosters, hence the long timeout.
func (c *BotClient) SendBulkMessages(ctx context.Context, msg BulkMessage) (*BulkResult, error) {
	var resp BulkResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/messages/bulk", bulkTimeout, msg, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return nil, callErr.asAppError(errors.ErrCodeMessagePosting, "Failed to send bulk messages").
				WithDetail("giveaway_id", msg.GiveawayID)
		}
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New(errors.ErrCodeMessagePosting, "Failed to send bulk messages").
			WithDetail("giveaway_id", msg.GiveawayID)
	}
	return &resp, nil
}
