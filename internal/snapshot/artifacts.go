package snapshot

import (
	"regexp"
	"strings"
)

// pathPattern matches path-like output references: absolute paths or
// ./-relative paths ending in a file extension. Trailing punctuation from the
// surrounding sentence is excluded.
var pathPattern = regexp.MustCompile(`(?:\.{0,2}/)[\w~./-]*[\w-]+\.[A-Za-z0-9]{1,8}`)

// scanArtifactsLocked scans free text for path-like patterns and records them
// in the artifact set. Duplicates collapse; the caller holds s.mu.
func (s *Snapshot) scanArtifactsLocked(text string) {
	if text == "" || !strings.ContainsRune(text, '/') {
		return
	}
	for _, match := range pathPattern.FindAllString(text, -1) {
		s.artifacts[match] = true
	}
}
