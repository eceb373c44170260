package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
)

// ChannelClient talks to the channel service that tracks where each
// account's bot is allowed to post.
type ChannelClient struct {
	baseClient
}

func NewChannelClient(baseURL string, healthTimeout time.Duration) *ChannelClient {
	return &ChannelClient{baseClient: newBaseClient("channel", baseURL, healthTimeout)}
}

type channelPermissionsResponse struct {
	envelope
	Permissions struct {
		CanPostMessages bool `json:"can_post_messages"`
		CanEditMessages bool `json:"can_edit_messages"`
	} `json:"permissions"`
}

// ValidateChannelSetup confirms the account has a configured channel the
// bot may post into. Returns CHANNEL_VALIDATION_FAILED otherwise.
func (c *ChannelClient) ValidateChannelSetup(ctx context.Context, accountID int64) error {
	var resp channelPermissionsResponse
	path := fmt.Sprintf("/api/channels/%d/permissions", accountID)

	if err := c.doJSON(ctx, http.MethodGet, path, defaultTimeout, nil, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return callErr.asAppError(errors.ErrCodeChannelValidation, "Channel validation failed").
				WithDetail("account_id", accountID)
		}
		return err
	}
	if !resp.Success || !resp.Permissions.CanPostMessages {
		return errors.New(errors.ErrCodeChannelValidation, "Channel is not ready for posting").
			WithDetail("account_id", accountID)
	}
	return nil
}
