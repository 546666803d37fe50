// Package validate holds the stateless field checks for admin form
// submissions. Each check returns a human-readable message or "" when
// the value passes; callers collect every failure into one map so the
// form can show all problems at once.
package validate

import (
	"regexp"
	"strconv"
	"strings"

	"commission-board/internal/models"
)

// Field error keys, matching what the admin form expects next to each
// input.
const (
	KeyTitle           = "titleError"
	KeyDescription     = "descriptionError"
	KeyUserID          = "userIdError"
	KeyDeadline        = "deadlineError"
	KeyPrice           = "priceError"
	KeyDiscountedPrice = "discountedPriceError"
	KeyCode            = "codeError"
	KeyStatus          = "statusError"
)

// Errors is the per-field error map returned with a 400.
type Errors map[string]string

// Add records a failure; empty messages are dropped so checks can be
// called unconditionally.
func (e Errors) Add(key, msg string) {
	if msg != "" {
		e[key] = msg
	}
}

// Ok reports whether the submission passed every check.
func (e Errors) Ok() bool {
	return len(e) == 0
}

var nonDigits = regexp.MustCompile(`\D`)

// CommissionTitle: 5-20 characters.
func CommissionTitle(value string) string {
	if value == "" || len(value) < 5 {
		return "Title too short or empty."
	}
	if len(value) > 20 {
		return "Title too long."
	}
	return ""
}

// UpdateTitle: 5-50 characters.
func UpdateTitle(value string) string {
	if value == "" || len(value) < 5 {
		return "Title too short or empty."
	}
	if len(value) > 50 {
		return "Title too long."
	}
	return ""
}

// CommissionDescription: 5-50 characters.
func CommissionDescription(value string) string {
	if value == "" || len(value) < 5 {
		return "Description too short or empty."
	}
	if len(value) > 50 {
		return "Description too long."
	}
	return ""
}

// UpdateDescription: 5-150 characters.
func UpdateDescription(value string) string {
	if value == "" || len(value) < 5 {
		return "Description too short or empty."
	}
	if len(value) > 150 {
		return "Description too long."
	}
	return ""
}

// UserID: 10-20 characters, numeric (a Discord snowflake).
func UserID(value string) string {
	if value == "" || len(value) < 10 {
		return "User ID too short or empty."
	}
	if len(value) > 20 {
		return "User ID too long."
	}
	if _, err := strconv.ParseUint(value, 10, 64); err != nil {
		return "Invalid format."
	}
	return ""
}

// Price: 1-20 characters, parseable as an integer after stripping
// non-digit characters (currency symbols, separators).
func Price(value string) string {
	if value == "" {
		return "Price too short or empty."
	}
	if len(value) > 20 {
		return "Price too long."
	}
	digits := nonDigits.ReplaceAllString(value, "")
	if _, err := strconv.ParseInt(digits, 10, 64); err != nil {
		return "Invalid format."
	}
	return ""
}

// DiscountedPrice: same as Price but optional.
func DiscountedPrice(value string) string {
	if value == "" {
		return ""
	}
	if len(value) > 20 {
		return "Discounted price too long."
	}
	digits := nonDigits.ReplaceAllString(value, "")
	if _, err := strconv.ParseInt(digits, 10, 64); err != nil {
		return "Invalid format."
	}
	return ""
}

// Deadline: required, must parse as an epoch-milliseconds timestamp.
func Deadline(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Deadline empty."
	}
	if _, err := strconv.ParseInt(value, 10, 64); err != nil {
		return "Invalid Date"
	}
	return ""
}

// Code checks the shape of a commission code; existence against the
// store is the caller's round-trip.
func Code(value string) string {
	if len(value) != 14 {
		return "Code too short, long or empty."
	}
	return ""
}

// Status: optional, but when present must be a known status. The check
// runs against the raw form value, so the empty string passes.
func Status(value string) string {
	if value == "" {
		return ""
	}
	if !models.CommissionStatus(value).Valid() {
		return "Invalid status."
	}
	return ""
}
