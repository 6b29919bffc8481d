package registry

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidName indicates the identity name failed validation.
	ErrInvalidName = errors.New("name must be 2-100 characters")

	// ErrInvalidRegistrationNumber indicates the registration number failed
	// validation.
	ErrInvalidRegistrationNumber = errors.New("registration number must be 3-50 characters of letters, digits, hyphen or underscore")
)

var registrationNumberRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName trims and checks an identity name.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < 2 || n > 100 {
		return "", ErrInvalidName
	}
	return name, nil
}

// ValidateRegistrationNumber checks a registration number and returns its
// canonical uppercased form. Uniqueness is therefore case-insensitive in
// effect while stored values stay canonical.
func ValidateRegistrationNumber(rn string) (string, error) {
	rn = strings.TrimSpace(rn)
	if len(rn) < 3 || len(rn) > 50 || !registrationNumberRe.MatchString(rn) {
		return "", ErrInvalidRegistrationNumber
	}
	return strings.ToUpper(rn), nil
}
