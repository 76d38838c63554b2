package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits and an optional leading +")

	// ErrInvalidLength indicates the number is outside the E.164 length range
	ErrInvalidLength = errors.New("phone number must have between 8 and 15 digits including country code")

	// ErrMissingCountryCode indicates a national number with no default country to apply
	ErrMissingCountryCode = errors.New("phone number must include a country code")
)

var digitsRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator normalizes traveler phone numbers to E.164 (+<country><number>)
type PhoneValidator struct {
	defaultCountryCode string
}

// NewPhoneValidator creates a validator. National numbers (leading 0) are expanded with
// defaultCountryCode; pass "" to require an explicit country code.
func NewPhoneValidator(defaultCountryCode string) *PhoneValidator {
	return &PhoneValidator{defaultCountryCode: strings.TrimPrefix(defaultCountryCode, "+")}
}

// Validate checks the number and returns it in E.164 form
// Accepts: +44 7700 900123, 0044-7700-900123, (07700) 900123
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	var digits string
	switch {
	case strings.HasPrefix(sanitized, "+"):
		digits = sanitized[1:]
	case strings.HasPrefix(sanitized, "00"):
		digits = sanitized[2:]
	case strings.HasPrefix(sanitized, "0"):
		if v.defaultCountryCode == "" {
			return "", ErrMissingCountryCode
		}
		digits = v.defaultCountryCode + sanitized[1:]
	default:
		digits = sanitized
	}

	if !digitsRegex.MatchString(digits) {
		return "", ErrInvalidFormat
	}

	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidLength
	}

	return "+" + digits, nil
}

// Sanitize removes common separators, keeping a leading +
func (v *PhoneValidator) Sanitize(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\t", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
