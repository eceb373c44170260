package dto

// CreateGiveawayRequest is the payload of POST /api/giveaways/create.
type CreateGiveawayRequest struct {
	AccountID               int64  `json:"account_id"`
	Title                   string `json:"title"`
	MainBody                string `json:"main_body"`
	WinnerCount             int    `json:"winner_count"`
	ParticipationButtonText string `json:"participation_button_text"`
	MediaFileID             *int64 `json:"media_file_id"`
}

// FinishMessagesRequest is the payload of PUT /api/giveaways/:id/finish-messages.
// All three messages must be supplied together.
type FinishMessagesRequest struct {
	PublicConclusionMessage string `json:"public_conclusion_message"`
	WinnerMessage           string `json:"winner_message"`
	LoserMessage            string `json:"loser_message"`
}

// Pagination describes a page of the history listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
