package models

import "fmt"

// LifecycleStage is the derived label over the stored
// (status, message_id, messages_ready_for_finish) triple. It is never stored.
type LifecycleStage string

const (
	StageCreated       LifecycleStage = "created"
	StagePublished     LifecycleStage = "published"
	StageReadyToFinish LifecycleStage = "ready_to_finish"
	StageFinished      LifecycleStage = "finished"
	StageUnknown       LifecycleStage = "unknown"
)

// Action names an operation an owner may perform next.
type Action string

const (
	ActionPublish                 Action = "publish"
	ActionConfigureFinishMessages Action = "configure_finish_messages"
	ActionFinish                  Action = "finish"
	ActionViewStats               Action = "view_stats"
	ActionViewResults             Action = "view_results"
)

// validTransitions enumerates the legal status transitions. finished is
// terminal.
var validTransitions = map[GiveawayStatus][]GiveawayStatus{
	StatusActive:   {StatusFinished},
	StatusFinished: {},
}

// IsValidStatus reports whether s is a known stored status.
func IsValidStatus(s GiveawayStatus) bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransition reports whether the stored status may change from current to
// next. A no-op transition is always legal.
func CanTransition(current, next GiveawayStatus) bool {
	if !IsValidStatus(current) || !IsValidStatus(next) {
		return false
	}
	if current == next {
		return true
	}
	for _, allowed := range validTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Stage derives the lifecycle stage of a giveaway.
func Stage(g *Giveaway) LifecycleStage {
	if g == nil {
		return StageUnknown
	}
	switch g.Status {
	case StatusFinished:
		return StageFinished
	case StatusActive:
		switch {
		case g.MessageID == nil:
			return StageCreated
		case !g.MessagesReadyForFinish:
			return StagePublished
		default:
			return StageReadyToFinish
		}
	}
	return StageUnknown
}

// CanPublish reports whether the giveaway may be posted to the channel.
// Pure precondition check, no side effects; the repository re-checks the same
// condition when applying the mutation.
func CanPublish(g *Giveaway) (bool, string) {
	if g == nil {
		return false, "Giveaway not found"
	}
	if g.Status != StatusActive {
		return false, fmt.Sprintf("Cannot publish giveaway with status: %s", g.Status)
	}
	if g.MessageID != nil {
		return false, "Giveaway has already been published"
	}
	return true, ""
}

// CanUpdateFinishMessages reports whether finish messages may be (re)set.
// Legal at every active stage; re-writing them before finishing is allowed.
func CanUpdateFinishMessages(g *Giveaway) (bool, string) {
	if g == nil {
		return false, "Giveaway not found"
	}
	if g.Status != StatusActive {
		return false, fmt.Sprintf("Cannot update finish messages for giveaway with status: %s", g.Status)
	}
	return true, ""
}

// CanFinish reports whether the giveaway may be concluded.
func CanFinish(g *Giveaway) (bool, string) {
	if g == nil {
		return false, "Giveaway not found"
	}
	if g.Status != StatusActive {
		return false, fmt.Sprintf("Cannot finish giveaway with status: %s", g.Status)
	}
	if g.MessageID == nil {
		return false, "Giveaway must be published before it can be finished"
	}
	if !g.MessagesReadyForFinish {
		return false, "Finish messages must be configured before finishing giveaway"
	}
	return true, ""
}

// NextActions lists the operations available from the current stage.
func NextActions(g *Giveaway) []Action {
	if g == nil {
		return nil
	}

	var actions []Action
	switch Stage(g) {
	case StageCreated:
		actions = append(actions, ActionPublish)
	case StagePublished:
		actions = append(actions, ActionConfigureFinishMessages)
	case StageReadyToFinish:
		actions = append(actions, ActionFinish)
	}

	switch g.Status {
	case StatusActive:
		actions = append(actions, ActionViewStats)
	case StatusFinished:
		actions = append(actions, ActionViewStats, ActionViewResults)
	}

	return actions
}

// StateValidation is the consistency report returned by the validate
// endpoint.
type StateValidation struct {
	Valid          bool           `json:"valid"`
	Issues         []string       `json:"issues"`
	Warnings       []string       `json:"warnings"`
	LifecycleStage LifecycleStage `json:"lifecycle_stage"`
	NextActions    []Action       `json:"next_actions"`
}

// ValidateState cross-checks the stored fields against the status and
// reports inconsistencies. Issues mark invariant violations; warnings mark
// degraded-but-acceptable outcomes (e.g. a finish whose conclusion post
// failed).
func ValidateState(g *Giveaway) StateValidation {
	issues := []string{}
	warnings := []string{}

	if !IsValidStatus(g.Status) {
		issues = append(issues, fmt.Sprintf("Invalid status: %s", g.Status))
	}

	if g.Status == StatusFinished {
		if g.FinishedAt == nil {
			issues = append(issues, "Finished giveaway missing finished_at timestamp")
		}
		if g.ConclusionMessageID == nil {
			warnings = append(warnings, "Finished giveaway missing conclusion message ID")
		}
	}

	if g.Status == StatusActive {
		if g.FinishedAt != nil {
			issues = append(issues, "Active giveaway has finished_at timestamp")
		}
		if g.ConclusionMessageID != nil {
			issues = append(issues, "Active giveaway has conclusion message ID")
		}
	}

	if g.MessagesReadyForFinish {
		required := map[string]string{
			"public_conclusion_message": g.PublicConclusionMessage,
			"winner_message":            g.WinnerMessage,
			"loser_message":             g.LoserMessage,
		}
		for field, value := range required {
			if value == "" {
				issues = append(issues, fmt.Sprintf("Missing %s despite messages_ready_for_finish being true", field))
			}
		}
	}

	return StateValidation{
		Valid:          len(issues) == 0,
		Issues:         issues,
		Warnings:       warnings,
		LifecycleStage: Stage(g),
		NextActions:    NextActions(g),
	}
}
