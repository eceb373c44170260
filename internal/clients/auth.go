package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
)

// AuthClient talks to the auth service that owns bot accounts.
type AuthClient struct {
	baseClient
}

func NewAuthClient(baseURL string, healthTimeout time.Duration) *AuthClient {
	return &AuthClient{baseClient: newBaseClient("auth", baseURL, healthTimeout)}
}

type accountValidationResponse struct {
	envelope
	Account struct {
		ID          int64  `json:"id"`
		BotUsername string `json:"bot_username"`
		IsActive    bool   `json:"is_active"`
	} `json:"account"`
}

// ValidateAccount confirms the account exists and is active. Returns an
// ACCOUNT_VALIDATION_FAILED error otherwise.
func (c *AuthClient) ValidateAccount(ctx context.Context, accountID int64) error {
	var resp accountValidationResponse
	path := fmt.Sprintf("/api/accounts/%d/validate", accountID)

	if err := c.doJSON(ctx, http.MethodGet, path, defaultTimeout, nil, &resp); err != nil {
		if callErr, ok := err.(*callError); ok {
			return callErr.asAppError(errors.ErrCodeAccountValidation, "Account validation failed").
				WithDetail("account_id", accountID)
		}
		return err
	}
	if !resp.Success {
		return errors.New(errors.ErrCodeAccountValidation, "Account validation failed").
			WithDetail("account_id", accountID)
	}
	return nil
}
