package fsattr

import (
	"path/filepath"
	"regexp"
	"strings"
)

// shortNamePattern matches 8.3-style generated names such as PROGRA~1 or
// WEBCON~2.CON.
var shortNamePattern = regexp.MustCompile(`(?i)^[^~.\s]{1,6}~[0-9]{1,6}(\.[^.\s]{0,3})?$`)

// LooksLikeShortName reports whether any component of path resembles a
// generated short name. Such names can silently start referring to another
// file, so they are not tracked.
func LooksLikeShortName(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && shortNamePattern.MatchString(part) {
			return true
		}
	}
	return false
}
