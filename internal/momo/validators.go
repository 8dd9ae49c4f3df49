package momo

import (
	"regexp"
	"strings"

	"github.com/cinewave/momoflow/internal/models"
)

// Accepted payer phone formats: local 07XXXXXXXX or international
// +<countrycode><subscriber>, e.g. +250788123456.
var (
	localPhonePattern = regexp.MustCompile(`^07\d{8}$`)
	intlPhonePattern  = regexp.MustCompile(`^\+\d{10,14}$`)
)

// ValidatePhone checks that a payer phone number is present and well formed
func ValidatePhone(phone string) error {
	cleaned := strings.ReplaceAll(phone, " ", "")
	if cleaned == "" {
		return &models.ValidationError{Field: "phone", Message: "phone number is required"}
	}

	if localPhonePattern.MatchString(cleaned) || intlPhonePattern.MatchString(cleaned) {
		return nil
	}

	return &models.ValidationError{Field: "phone", Message: "must be a valid phone number (e.g. 0788123456)"}
}

// NormalizePhone strips whitespace from a payer phone number
func NormalizePhone(phone string) string {
	return strings.ReplaceAll(phone, " ", "")
}

// ValidateAmount checks if amount is valid (positive)
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return &models.ValidationError{Field: "amount", Message: "must be greater than 0"}
	}
	return nil
}

// ValidateKind checks that the purchase kind is one of the supported values
func ValidateKind(kind models.PurchaseKind) error {
	switch kind {
	case models.PurchaseKindWatch, models.PurchaseKindDownload:
		return nil
	default:
		return &models.ValidationError{Field: "kind", Message: "must be WATCH or DOWNLOAD"}
	}
}
