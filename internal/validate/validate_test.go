package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommissionTitleBoundaries(t *testing.T) {
	assert.Equal(t, "", CommissionTitle("12345"), "5 characters should pass")
	assert.Equal(t, "Title too short or empty.", CommissionTitle("1234"))
	assert.Equal(t, "Title too short or empty.", CommissionTitle(""))
	assert.Equal(t, "", CommissionTitle(strings.Repeat("a", 20)), "20 characters should pass")
	assert.Equal(t, "Title too long.", CommissionTitle(strings.Repeat("a", 21)))
}

func TestUpdateTitleBoundaries(t *testing.T) {
	assert.Equal(t, "", UpdateTitle("12345"))
	assert.Equal(t, "Title too short or empty.", UpdateTitle("1234"))
	assert.Equal(t, "", UpdateTitle(strings.Repeat("a", 50)))
	assert.Equal(t, "Title too long.", UpdateTitle(strings.Repeat("a", 51)))
}

func TestDescriptionBoundaries(t *testing.T) {
	assert.Equal(t, "", CommissionDescription("12345"))
	assert.Equal(t, "Description too short or empty.", CommissionDescription("1234"))
	assert.Equal(t, "", CommissionDescription(strings.Repeat("a", 50)))
	assert.Equal(t, "Description too long.", CommissionDescription(strings.Repeat("a", 51)))

	assert.Equal(t, "", UpdateDescription(strings.Repeat("a", 150)))
	assert.Equal(t, "Description too long.", UpdateDescription(strings.Repeat("a", 151)))
}

func TestUserID(t *testing.T) {
	assert.Equal(t, "", UserID("1234567890"), "10-digit snowflake should pass")
	assert.Equal(t, "", UserID("12345678901234567890"), "20 digits should pass")
	assert.Equal(t, "User ID too short or empty.", UserID("123456789"))
	assert.Equal(t, "User ID too short or empty.", UserID(""))
	assert.Equal(t, "User ID too long.", UserID(strings.Repeat("1", 21)))
	assert.Equal(t, "Invalid format.", UserID("12345abcde"))
}

func TestPrice(t *testing.T) {
	assert.Equal(t, "", Price("50"))
	assert.Equal(t, "", Price("$1,500"), "non-digit characters are stripped before parsing")
	assert.Equal(t, "Price too short or empty.", Price(""))
	assert.Equal(t, "Price too long.", Price(strings.Repeat("1", 21)))
	assert.Equal(t, "Invalid format.", Price("free"))
}

func TestDiscountedPriceOptional(t *testing.T) {
	assert.Equal(t, "", DiscountedPrice(""))
	assert.Equal(t, "", DiscountedPrice("40"))
	assert.Equal(t, "Discounted price too long.", DiscountedPrice(strings.Repeat("1", 21)))
	assert.Equal(t, "Invalid format.", DiscountedPrice("cheap"))
}

func TestDeadline(t *testing.T) {
	assert.Equal(t, "", Deadline("1750000000000"))
	assert.Equal(t, "Deadline empty.", Deadline(""))
	assert.Equal(t, "Deadline empty.", Deadline("   "))
	assert.Equal(t, "Invalid Date", Deadline("tomorrow"))
}

func TestCodeShape(t *testing.T) {
	assert.Equal(t, "", Code("A1B2C3D4E5F607"))
	assert.Equal(t, "Code too short, long or empty.", Code(""))
	assert.Equal(t, "Code too short, long or empty.", Code("A1B2C3D4E5F60"))
	assert.Equal(t, "Code too short, long or empty.", Code("A1B2C3D4E5F6071"))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "", Status(""))
	assert.Equal(t, "", Status("not started"))
	assert.Equal(t, "", Status("stuck"))
	assert.Equal(t, "", Status("completed"))
	assert.Equal(t, "Invalid status.", Status("done"))
}

func TestErrorsCollectAll(t *testing.T) {
	errs := Errors{}
	errs.Add(KeyTitle, CommissionTitle("abc"))
	errs.Add(KeyDescription, CommissionDescription("valid description"))
	errs.Add(KeyPrice, Price(""))

	assert.False(t, errs.Ok())
	assert.Len(t, errs, 2, "only the failures should be kept")
	assert.Contains(t, errs, KeyTitle)
	assert.Contains(t, errs, KeyPrice)
	assert.NotContains(t, errs, KeyDescription)
}
