package momo

import (
	"testing"

	"github.com/cinewave/momoflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePhone(t *testing.T) {
	t.Run("accepts valid formats", func(t *testing.T) {
		for _, phone := range []string{
			"0788123456",
			"0722000111",
			"+250788123456",
			"+14155550123",
			"078 812 3456", // spaces are stripped before matching
			"+250 788 123 456",
		} {
			assert.NoError(t, ValidatePhone(phone), "phone %q should be valid", phone)
		}
	})

	t.Run("rejects malformed numbers", func(t *testing.T) {
		for _, phone := range []string{
			"123",
			"0788123",       // too short
			"07881234567",   // too long
			"1788123456",    // local must start with 07
			"+123",          // international too short
			"+2507881234567890", // international too long
			"notaphone",
			"0788-123-456", // separators other than spaces
		} {
			err := ValidatePhone(phone)
			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr, "phone %q should be rejected", phone)
			assert.Equal(t, "phone", validationErr.Field)
		}
	})

	t.Run("requires a value", func(t *testing.T) {
		err := ValidatePhone("   ")
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "phone number is required", validationErr.Message)
	})
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "0788123456", NormalizePhone("078 812 3456"))
	assert.Equal(t, "+250788123456", NormalizePhone("+250 788 123 456"))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(1))
	assert.NoError(t, ValidateAmount(500000))

	for _, amount := range []int64{0, -1, -500} {
		err := ValidateAmount(amount)
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr, "amount %d should be rejected", amount)
		assert.Equal(t, "amount", validationErr.Field)
	}
}

func TestValidateKind(t *testing.T) {
	assert.NoError(t, ValidateKind(models.PurchaseKindWatch))
	assert.NoError(t, ValidateKind(models.PurchaseKindDownload))

	err := ValidateKind("STREAM")
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "kind", validationErr.Field)
}
