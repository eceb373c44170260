package models

import "time"

// GiveawayStats holds informational counters for a giveaway. They are
// refreshed by the finish saga and by the external periodic refresher;
// last-writer-wins is acceptable, nothing invariant-bearing lives here.
type GiveawayStats struct {
	ID         int64 `json:"id"`
	GiveawayID int64 `json:"giveaway_id"`

	TotalParticipants             int `json:"total_participants"`
	CaptchaCompletedParticipants  int `json:"captcha_completed_participants"`
	WinnerCount                   int `json:"winner_count"`
	MessagesDelivered             int `json:"messages_delivered"`

	LastUpdated time.Time `json:"last_updated"`
}

// UpdateParticipants sets the participant counters. captchaCompleted < 0
// leaves the verification counter untouched.
func (s *GiveawayStats) UpdateParticipants(total, captchaCompleted int) {
	s.TotalParticipants = total
	if captchaCompleted >= 0 {
		s.CaptchaCompletedParticipants = captchaCompleted
	}
	s.LastUpdated = time.Now().UTC()
}

func (s *GiveawayStats) UpdateWinners(count int) {
	s.WinnerCount = count
	s.LastUpdated = time.Now().UTC()
}

func (s *GiveawayStats) UpdateMessagesDelivered(count int) {
	s.MessagesDelivered = count
	s.LastUpdated = time.Now().UTC()
}
