package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestValidator() *Validator {
	return NewValidator(100, 32)
}

func TestValidateCreationValid(t *testing.T) {
	v := newTestValidator()

	errs := v.ValidateCreation(7, "Win a Prize", "Join now for ten amazing prizes!", 3, "Participate")
	assert.Empty(t, errs)
}

func TestValidateCreationCollectsAllViolations(t *testing.T) {
	v := newTestValidator()

	errs := v.ValidateCreation(0, "ab", "short", 0, strings.Repeat("x", 101))
	assert.Len(t, errs, 5)
}

func TestValidateTitleBounds(t *testing.T) {
	v := newTestValidator()

	assert.NotEmpty(t, v.ValidateTitle("ab"))
	assert.Empty(t, v.ValidateTitle("abc"))
	assert.Empty(t, v.ValidateTitle(strings.Repeat("a", 255)))
	assert.NotEmpty(t, v.ValidateTitle(strings.Repeat("a", 256)))
}

func TestValidateMainBodyBounds(t *testing.T) {
	v := newTestValidator()

	assert.NotEmpty(t, v.ValidateMainBody("123456789"))
	assert.Empty(t, v.ValidateMainBody("1234567890"))
	assert.Empty(t, v.ValidateMainBody(strings.Repeat("a", 4000)))
	assert.NotEmpty(t, v.ValidateMainBody(strings.Repeat("a", 4001)))
}

// Bounds count characters, not bytes. Cyrillic runes are two bytes each
// in UTF-8, so byte-based checks would halve the effective limits.
func TestValidateBoundsCountRunes(t *testing.T) {
	v := newTestValidator()

	assert.Empty(t, v.ValidateTitle(strings.Repeat("п", 130)))
	assert.Empty(t, v.ValidateTitle(strings.Repeat("п", 255)))
	assert.NotEmpty(t, v.ValidateTitle(strings.Repeat("п", 256)))

	assert.NotEmpty(t, v.ValidateMainBody(strings.Repeat("п", 9)))
	assert.Empty(t, v.ValidateMainBody(strings.Repeat("п", 10)))
	assert.Empty(t, v.ValidateMainBody(strings.Repeat("п", 4000)))
	assert.NotEmpty(t, v.ValidateMainBody(strings.Repeat("п", 4001)))

	assert.Empty(t, v.ValidateButtonText(strings.Repeat("ж", 100)))
	assert.NotEmpty(t, v.ValidateButtonText(strings.Repeat("ж", 101)))

	errs := v.ValidateFinishMessages(strings.Repeat("п", 2500), "You won a prize!", "Better luck next time")
	assert.Empty(t, errs)
}

func TestValidateWinnerCountBounds(t *testing.T) {
	v := newTestValidator()

	assert.NotEmpty(t, v.ValidateWinnerCount(0))
	assert.Empty(t, v.ValidateWinnerCount(1))
	assert.Empty(t, v.ValidateWinnerCount(100))
	assert.NotEmpty(t, v.ValidateWinnerCount(101))
}

func TestValidateWinnerCountConfiguredMax(t *testing.T) {
	v := NewValidator(10, 32)

	assert.Empty(t, v.ValidateWinnerCount(10))
	assert.NotEmpty(t, v.ValidateWinnerCount(11))
}

func TestValidateFinishMessagesAllOrNothing(t *testing.T) {
	v := newTestValidator()

	errs := v.ValidateFinishMessages("Winners announced!", "", "")
	assert.Len(t, errs, 2)
	assert.Contains(t, errs[0], "winner_message")
	assert.Contains(t, errs[1], "loser_message")
}

func TestValidateFinishMessagesContentBounds(t *testing.T) {
	v := newTestValidator()

	errs := v.ValidateFinishMessages("Winners announced!", "hi", "Better luck next time")
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "winner_message")

	errs = v.ValidateFinishMessages("Winners announced!", "You won a prize!", strings.Repeat("x", 4001))
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "loser_message")
}

func TestValidateFinishMessagesValid(t *testing.T) {
	v := newTestValidator()

	errs := v.ValidateFinishMessages("Winners announced!", "You won a prize!", "Better luck next time")
	assert.Empty(t, errs)
}

func TestValidateResultToken(t *testing.T) {
	v := newTestValidator()

	assert.Empty(t, v.ValidateResultToken(strings.Repeat("a", 32)))
	assert.NotEmpty(t, v.ValidateResultToken(strings.Repeat("a", 31)))
	assert.NotEmpty(t, v.ValidateResultToken(""))
	assert.NotEmpty(t, v.ValidateResultToken(strings.Repeat("a", 31)+"!"))
	assert.Empty(t, v.ValidateResultToken(strings.Repeat("_", 16)+strings.Repeat("-", 16)))
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	assert.Equal(t, "hello world", Sanitize("hello\x00 world"))
	assert.Equal(t, "line1\nline2", Sanitize("line1\nline2"))
	assert.Equal(t, "a\tb", Sanitize("a\tb"))
	assert.Equal(t, "trimmed", Sanitize("  trimmed  "))
	assert.Equal(t, "", Sanitize("\x01\x02\x03"))
}
