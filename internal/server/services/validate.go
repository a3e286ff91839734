package services

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

const (
	minUsernameLen = 6
	maxUsernameLen = 20
	minPasswordLen = 6
	maxPasswordLen = 20
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// lengthBetween counts UTF-16 code units. At most 3 UTF-8 bytes per unit
// keeps a 20-unit password within bcrypt's 72-byte input limit.
func lengthBetween(s string, min, max int) bool {
	n := 0
	for _, r := range s {
		if n += utf16.RuneLen(r); n > max {
			return false
		}
	}
	return n >= min
}

// trimmed returns the trimmed value of an optional field, or nil when the
// field is absent or blank.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
