package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 32
)

// UsernamePattern is the public username format: lowercase alphanumerics and
// hyphens, 3-32 characters, no leading or trailing hyphen.
var UsernamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,30})[a-z0-9]$`)

// ErrUsernameFormat is returned when a candidate cannot be turned into a valid username.
var ErrUsernameFormat = errors.New("Username must be 3-32 characters of lowercase letters, numbers, or hyphens")

var (
	invalidUsernameChars = regexp.MustCompile(`[^a-z0-9-]`)
	repeatedHyphens      = regexp.MustCompile(`-+`)
)

// SanitizeUsername is the as-you-type filter of the username field.
//
// It lowercases, replaces every character outside [a-z0-9-] with a hyphen,
// collapses hyphen runs, trims hyphens at both ends and truncates to 32.
// It never pads, so the result may still be too short to submit.
// Applying it twice gives the same result as applying it once.
func SanitizeUsername(s string) string {
	s = strings.ToLower(s)
	s = invalidUsernameChars.ReplaceAllString(s, "-")
	s = repeatedHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > UsernameMaxLength {
		s = strings.TrimRight(s[:UsernameMaxLength], "-")
	}
	return s
}

// ASCIIFold strips accents: "José" → "Jose". Characters with no ASCII
// decomposition are dropped.
func ASCIIFold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var sb strings.Builder
	for _, r := range folded {
		if r < unicode.MaxASCII {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// NormalizeUsername turns arbitrary input (an email local part, a display
// name) into a valid username, or fails with ErrUsernameFormat.
//
// Unlike SanitizeUsername it folds accents, falls back to "user" for empty
// input and pads short results with "x".
func NormalizeUsername(value string) (string, error) {
	s := SanitizeUsername(ASCIIFold(strings.TrimSpace(value)))
	if s == "" {
		s = "user"
	}
	if len(s) < UsernameMinLength {
		s = (s + strings.Repeat("x", UsernameMinLength))[:UsernameMinLength]
	}
	if !UsernamePattern.MatchString(s) {
		return "", ErrUsernameFormat
	}
	return s, nil
}

// UsernameFromEmail derives the default username from an email address.
func UsernameFromEmail(email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	return NormalizeUsername(local)
}

// WithSuffix appends "-n" to base, shortening base so the result still fits.
func WithSuffix(base string, n int) (string, error) {
	suffix := fmt.Sprintf("-%d", n)
	allowed := UsernameMaxLength - len(suffix)
	if allowed > len(base) {
		allowed = len(base)
	}
	trimmed := strings.TrimRight(base[:allowed], "-")
	if trimmed == "" {
		trimmed = base[:allowed]
	}
	candidate := trimmed + suffix
	if len(candidate) < UsernameMinLength {
		candidate = (candidate + strings.Repeat("x", UsernameMinLength))[:UsernameMinLength]
	}
	if !UsernamePattern.MatchString(candidate) {
		return "", ErrUsernameFormat
	}
	return candidate, nil
}
