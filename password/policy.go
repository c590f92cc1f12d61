package password

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// MinLength is the minimum password length in characters.
const MinLength = 8

// ErrWeakPassword wraps every policy violation.
var ErrWeakPassword = errors.New("password does not meet policy")

// ValidatePolicy requires at least MinLength characters with one lowercase
// letter, one uppercase letter and one digit.
func ValidatePolicy(password string) error {
	if utf8.RuneCountInString(password) < MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, MinLength)
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case !lower:
		return fmt.Errorf("%w: must contain a lowercase letter", ErrWeakPassword)
	case !upper:
		return fmt.Errorf("%w: must contain an uppercase letter", ErrWeakPassword)
	case !digit:
		return fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	}
	return nil
}
