package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation bounds for giveaway fields.
const (
	MinTitleLength      = 3
	MaxTitleLength      = 255
	MinBodyLength       = 10
	MaxBodyLength       = 4000
	MinWinnerCount      = 1
	MaxButtonTextLength = 100
	MinMessageLength    = 5
	MaxMessageLength    = 4000
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validator performs stateless field validation with runtime-configured
// bounds. Inputs are validated after sanitization-equivalent trimming, so the
// stored values always satisfy the same rules.
type Validator struct {
	maxWinnerCount    int
	resultTokenLength int
}

func NewValidator(maxWinnerCount, resultTokenLength int) *Validator {
	return &Validator{
		maxWinnerCount:    maxWinnerCount,
		resultTokenLength: resultTokenLength,
	}
}

// ValidateCreation checks all creation fields and returns the full list of
// violations, empty when the input is valid.
func (v *Validator) ValidateCreation(accountID int64, title, mainBody string, winnerCount int, buttonText string) []string {
	var errs []string

	if accountID <= 0 {
		errs = append(errs, "Account ID must be a positive integer")
	}

	errs = append(errs, v.ValidateTitle(title)...)
	errs = append(errs, v.ValidateMainBody(mainBody)...)
	errs = append(errs, v.ValidateWinnerCount(winnerCount)...)
	if buttonText != "" {
		errs = append(errs, v.ValidateButtonText(buttonText)...)
	}

	return errs
}

// ValidateTitle checks the admin-facing title bounds. Bounds are in
// characters, not bytes: Cyrillic titles take two bytes per rune.
func (v *Validator) ValidateTitle(title string) []string {
	length := utf8.RuneCountInString(strings.TrimSpace(title))
	if length < MinTitleLength {
		return []string{fmt.Sprintf("Title must be at least %d characters long", MinTitleLength)}
	}
	if length > MaxTitleLength {
		return []string{fmt.Sprintf("Title cannot exceed %d characters", MaxTitleLength)}
	}
	return nil
}

// ValidateMainBody checks the public post body bounds.
func (v *Validator) ValidateMainBody(body string) []string {
	length := utf8.RuneCountInString(strings.TrimSpace(body))
	if length < MinBodyLength {
		return []string{fmt.Sprintf("Main body must be at least %d characters long", MinBodyLength)}
	}
	if length > MaxBodyLength {
		return []string{fmt.Sprintf("Main body cannot exceed %d characters", MaxBodyLength)}
	}
	return nil
}

// ValidateWinnerCount checks the winner count against the configured maximum.
func (v *Validator) ValidateWinnerCount(count int) []string {
	if count < MinWinnerCount {
		return []string{fmt.Sprintf("Winner count must be at least %d", MinWinnerCount)}
	}
	if count > v.maxWinnerCount {
		return []string{fmt.Sprintf("Winner count cannot exceed %d", v.maxWinnerCount)}
	}
	return nil
}

// ValidateButtonText checks the participation button label.
func (v *Validator) ValidateButtonText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{"Button text cannot be empty"}
	}
	if utf8.RuneCountInString(text) > MaxButtonTextLength {
		return []string{fmt.Sprintf("Button text cannot exceed %d characters", MaxButtonTextLength)}
	}
	return nil
}

// ValidateFinishMessages checks the three finish messages together. All three
// must be present; a partial update is rejected wholesale.
func (v *Validator) ValidateFinishMessages(conclusion, winner, loser string) []string {
	var errs []string

	fields := []struct {
		name  string
		value string
	}{
		{"public_conclusion_message", conclusion},
		{"winner_message", winner},
		{"loser_message", loser},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fmt.Sprintf("Field '%s' is required", f.name))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for _, f := range fields {
		for _, msg := range v.validateMessageContent(f.value) {
			errs = append(errs, fmt.Sprintf("%s: %s", f.name, msg))
		}
	}

	return errs
}

func (v *Validator) validateMessageContent(message string) []string {
	length := utf8.RuneCountInString(strings.TrimSpace(message))
	if length < MinMessageLength {
		return []string{fmt.Sprintf("Message must be at least %d characters long", MinMessageLength)}
	}
	if length > MaxMessageLength {
		return []string{fmt.Sprintf("Message cannot exceed %d characters", MaxMessageLength)}
	}
	return nil
}

// ValidateResultToken checks the public result token format. The rules must
// match what the token issuer produces, so unauthenticated lookups can reject
// malformed tokens before touching storage.
func (v *Validator) ValidateResultToken(token string) []string {
	if !tokenPattern.MatchString(token) {
		return []string{"Result token contains invalid characters"}
	}
	if utf8.RuneCountInString(token) != v.resultTokenLength {
		return []string{fmt.Sprintf("Result token must be exactly %d characters long", v.resultTokenLength)}
	}
	return nil
}

// Sanitize strips control characters (except newline and tab) and trims
// surrounding whitespace. Title and body are echoed into channel posts, so
// this runs before anything is stored.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= 32 || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
