package validation

import (
	"regexp"
	"strings"

	"stash/internal/errors"
)

// Identifiers (profile IDs and workspace names) are limited to a shape
// that is safe to embed in storage keys.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

const targetScheme = "vault://"

func ValidateProfileID(id string) error {
	if id == "" {
		return errors.InvalidInput("profile id cannot be empty")
	}
	if !identifierPattern.MatchString(id) {
		return errors.InvalidInput("profile id contains invalid characters: " + id)
	}
	return nil
}

func ValidateWorkspaceName(name string) error {
	if name == "" {
		return errors.InvalidInput("workspace name cannot be empty")
	}
	if !identifierPattern.MatchString(name) {
		return errors.InvalidInput("workspace name contains invalid characters: " + name)
	}
	return nil
}

// ValidateTarget checks the vault:// identity a workspace publishes to.
func ValidateTarget(target string) error {
	if !strings.HasPrefix(target, targetScheme) {
		return errors.InvalidInput("target must use the vault:// scheme: " + target)
	}
	name := strings.TrimPrefix(target, targetScheme)
	if name == "" || !identifierPattern.MatchString(name) {
		return errors.InvalidInput("target has an invalid vault name: " + target)
	}
	return nil
}
