package api

import (
	"regexp"
	"unicode/utf8"
)

// maxNameLen is the maximum length for name fields (hotline names, member names).
const maxNameLen = 200

// maxGreetingLen is the maximum length for a custom voice greeting.
const maxGreetingLen = 1000

// maxUsernameLen is the maximum length for admin usernames.
const maxUsernameLen = 40

// maxPasswordLen is the maximum length for admin passwords.
const maxPasswordLen = 256

// minPasswordLen is the minimum length for admin passwords.
const minPasswordLen = 8

// maxNumberLen is the maximum length for a raw phone number before parsing.
const maxNumberLen = 40

// slugRe validates hotline slugs: lowercase letters, digits, and hyphens,
// starting and ending with a letter or digit.
var slugRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,38}[a-z0-9])?$`)

// countryRe validates two-letter ISO country codes.
var countryRe = regexp.MustCompile(`^[A-Z]{2}$`)

// validateStringLen checks that a string does not exceed maxLen runes.
// Returns an error message if invalid, empty string if OK.
func validateStringLen(field, value string, maxLen int) string {
	if utf8.RuneCountInString(value) > maxLen {
		return field + " exceeds maximum length"
	}
	return ""
}

// validateRequiredStringLen checks that a non-empty string does not exceed maxLen runes.
func validateRequiredStringLen(field, value string, maxLen int) string {
	if value == "" {
		return field + " is required"
	}
	return validateStringLen(field, value, maxLen)
}

// validateSlug checks that a slug is lowercase-kebab and short enough for a URL.
func validateSlug(field, value string) string {
	if value == "" {
		return field + " is required"
	}
	if !slugRe.MatchString(value) {
		return field + " must be lowercase letters, digits, and hyphens"
	}
	return ""
}

// validateCountry checks an optional two-letter ISO country code.
func validateCountry(field, value string) string {
	if value == "" {
		return ""
	}
	if !countryRe.MatchString(value) {
		return field + " must be a two-letter ISO country code"
	}
	return ""
}

// containsControlChars checks whether a string has control characters
// (except common whitespace like \n, \r, \t).
func containsControlChars(s string) bool {
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return true
		}
	}
	return false
}

// validateNoControlChars rejects strings with control characters.
func validateNoControlChars(field, value string) string {
	if containsControlChars(value) {
		return field + " contains invalid characters"
	}
	return ""
}
