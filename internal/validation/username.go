// Package validation holds input rules shared by services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// UsernameMaxLen bounds usernames, which appear in profile URLs.
const UsernameMaxLen = 30

var (
	usernameRegex      = regexp.MustCompile(`^[a-z0-9_]{1,30}$`)
	usernameDisallowed = regexp.MustCompile(`[^a-z0-9_]+`)
)

// Names that collide with routes or read as official accounts.
var reservedUsernames = map[string]struct{}{
	"admin":         {},
	"api":           {},
	"health":        {},
	"me":            {},
	"media":         {},
	"metrics":       {},
	"notifications": {},
	"posts":         {},
	"profiles":      {},
	"root":          {},
	"settings":      {},
	"socially":      {},
	"support":       {},
	"suggestions":   {},
	"system":        {},
	"users":         {},
	"ws":            {},
}

// NormalizeUsername lowercases raw, strips everything outside [a-z0-9_] and
// truncates to UsernameMaxLen. An empty result becomes "user".
func NormalizeUsername(raw string) string {
	name := usernameDisallowed.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "")
	if name == "" {
		name = "user"
	}
	if len(name) > UsernameMaxLen {
		name = name[:UsernameMaxLen]
	}
	return name
}

// IsReservedUsername reports whether name may not be claimed by a user.
func IsReservedUsername(name string) bool {
	_, ok := reservedUsernames[name]
	return ok
}

// ValidateUsername checks format and reserved names.
func ValidateUsername(name string) error {
	if !usernameRegex.MatchString(name) {
		return fmt.Errorf("username must be 1-%d characters of lowercase letters, numbers and underscores", UsernameMaxLen)
	}
	if IsReservedUsername(name) {
		return fmt.Errorf("username %q is reserved", name)
	}
	return nil
}
