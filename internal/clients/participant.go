package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
)

// ParticipantClient talks to the participant service that owns the
// participation roster and the random winner draw.
type ParticipantClient struct {
	baseClient
}

func NewParticipantClient(baseURL string, healthTimeout time.Duration) *ParticipantClient {
	return &ParticipantClient{baseClient: newBaseClient("participant", baseURL, healthTimeout)}
}

// Participant is the roster entry shape shared with the bot service
// payloads.
type Participant struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// ParticipantCount carries the counters used for stats refresh.
type ParticipantCount struct {
	Total            int64 `json:"total_participants"`
	CaptchaCompleted int64 `json:"captcha_completed_participants"`
}

type selectWinnersResponse struct {
	envelope
	Winners           []Participant `json:"winners"`
	TotalParticipants int           `json:"total_participants"`
}

// SelectWinners asks the participant service to draw winners. This is the
// one call the finish flow cannot proceed without. The returned total is
// the pool size the winners were drawn from.
func (c *ParticipantClient) SelectWinners(ctx context.Context, giveawayID int64, winnerCount int) ([]Participant, int, error) {
	var resp selectWinnersResponse
	path := fmt.Sprintf("/api/participants/%d/select-winners", giveawayID)
	body := map[string]int{"winner_count": winnerCount}

	if err := c.doJSON(ctx, http.MethodPost, path, postingTimeout, body, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return nil, 0, callErr.asAppError(errors.ErrCodeWinnerSelection, "Winner selection failed").
				WithDetail("giveaway_id", giveawayID)
		}
		return nil, 0, err
	}
	if !resp.Success {
		return nil, 0, errors.New(errors.ErrCodeWinnerSelection, "Winner selection failed").
			WithDetail("giveaway_id", giveawayID)
	}
	return resp.Winners, resp.TotalParticipants, nil
}

type participantCountResponse struct {
	envelope
	ParticipantCount
}

// GetParticipantCount returns the live participation counters.
func (c *ParticipantClient) GetParticipantCount(ctx context.Context, giveawayID int64) (*ParticipantCount, error) {
	var resp participantCountResponse
	path := fmt.Sprintf("/api/participants/%d/count", giveawayID)

	if err := c.doJSON(ctx, http.MethodGet, path, defaultTimeout, nil, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return nil, callErr.asAppError(errors.ErrCodeServiceUnavailable, "Participant count unavailable").
				WithDetail("giveaway_id", giveawayID)
		}
		return nil, err
	}
	return &resp.ParticipantCount, nil
}

type participantListResponse struct {
	envelope
	Participants []Participant `json:"participants"`
}

// GetParticipants returns one page of the roster.
func (c *ParticipantClient) GetParticipants(ctx context.Context, giveawayID int64, page, limit int) ([]Participant, error) {
	var resp participantListResponse
	path := fmt.Sprintf("/api/participants/%d?page=%d&limit=%d", giveawayID, page, limit)

	if err := c.doJSON(ctx, http.MethodGet, path, defaultTimeout, nil, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return nil, callErr.asAppError(errors.ErrCodeServiceUnavailable, "Participant roster unavailable").
				WithDetail("giveaway_id", giveawayID)
		}
		return nil, err
	}
	return resp.Participants, nil
}
