package container

import (
	"fmt"
	"strings"
)

// Normalize converts p to the archive's canonical portable path form:
// forward-slash separators, `.` components collapsed, and no leading
// slash. `..` components are rejected outright.
//
// spec.md §9 leaves the canonical form as an open question beyond slash
// substitution ("./a/b and a/b collide-or-not inconsistently"); this
// resolves it toward the recommended stricter form so lookups are
// unambiguous.
func Normalize(p string) (string, error) {
	slashed := strings.ReplaceAll(p, `\`, "/")
	parts := strings.Split(slashed, "/")

	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("container: path %q contains a %q component", p, "..")
		default:
			cleaned = append(cleaned, part)
		}
	}
	if len(cleaned) == 0 {
		return "", fmt.Errorf("container: path %q normalizes to empty", p)
	}
	return strings.Join(cleaned, "/"), nil
}
