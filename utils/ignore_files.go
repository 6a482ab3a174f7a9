package utils

import (
	"path/filepath"
	"strings"
)

// IsDefaultIgnored reports whether a path should always be skipped when
// enumerating Rust sources, regardless of .gitignore contents. Build
// output under target/ is excluded here; macro-expanded sources found
// there must never become configuration declarations.
func IsDefaultIgnored(path string) bool {
	// Define ignore patterns
	ignorePatterns := []string{
		"target",
		".git",
		".svn",
		".hg",
		".idea",
		".vscode",
		".cache",
		"node_modules",
		".fingerprint",
		"incremental",
		"*.rlib",
		"*.rmeta",
		"*.lock",
		"*.log",
		"*.bak",
	}

	// Split the path into parts based on the file separator
	parts := strings.Split(filepath.ToSlash(path), "/")

	// Check each part for any ignore patterns
	for _, part := range parts {
		part = strings.ToLower(part)
		for _, pattern := range ignorePatterns {
			if strings.HasPrefix(pattern, "*") {
				// If the pattern starts with '*', check for suffix
				suffix := strings.TrimPrefix(pattern, "*")
				if strings.HasSuffix(part, suffix) {
					return true
				}
			} else if part == pattern {
				return true
			}
		}
	}
	return false
}
