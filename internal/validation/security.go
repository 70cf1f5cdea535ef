// Package validation guards the values that reach external processes and
// the filesystem.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateArgument rejects arguments carrying shell metacharacters or NUL
// bytes. Arguments are never passed through a shell, but a command line
// containing them is almost certainly a configuration mistake.
func ValidateArgument(arg string) error {
	if strings.ContainsRune(arg, 0) {
		return fmt.Errorf("contains NUL byte")
	}

	dangerous := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'", "\n"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %q", char)
		}
	}
	return nil
}

// ValidateCommand checks that command names an allowed executable. Only the
// base name is compared against the allowlist, so "node_modules/.bin/tsc" is
// accepted when "tsc" is allowed.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	base := strings.TrimSuffix(filepath.Base(command), ".cmd")
	if !allowedCommands[base] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}
	return nil
}

// ValidatePath rejects empty paths and paths with shell metacharacters.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}
	return nil
}
