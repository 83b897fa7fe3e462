// Package project resolves the identity of a monitored project: the
// assistant's working-directory path, its encoded on-disk directory name,
// and the session keys used to scope per-session state throughout the
// daemon. The encoding/decoding scheme mirrors SanitizePathForClaude in the
// teacher CLI's paths package, narrowed to the single substitution this
// wire format actually uses.
package project

import (
	"os"
	"path/filepath"
	"strings"
)

// SubagentsDirName is the path segment that marks a transcript file as
// belonging to a sub-agent session rather than a main session.
const SubagentsDirName = "subagents"

// Descriptor identifies a project by its encoded transcript directory name
// and, once resolved, its real working-directory basename.
type Descriptor struct {
	EncodedDir  string
	DisplayName string
}

// Encode converts an absolute working-directory path into the directory
// name the assistant uses under the projects root: every "/" becomes "-",
// and the result always starts with "-" since absolute paths start with
// "/". Encoding is lossy — directory names containing literal hyphens
// collide with the separator — so it must be inverted by probing the
// filesystem, not by a pure string transform. See Decode.
func Encode(dir string) string {
	return strings.ReplaceAll(dir, "/", "-")
}

// Decode recovers the original working-directory path from an encoded
// directory name by greedily probing the filesystem for the longest path
// whose segments, rejoined with "/", re-encode to the same string. Returns
// the best-effort reconstruction even if no prefix exists on disk, in
// which case it falls back to literal dash-to-slash substitution.
func Decode(encodedDir string) string {
	if encodedDir == "" {
		return encodedDir
	}

	segments := strings.Split(strings.TrimPrefix(encodedDir, "-"), "-")
	if len(segments) == 0 {
		return encodedDir
	}

	// Walk the segments left to right, at each step taking the longest run
	// of segments that, rejoined with "-", names an existing directory
	// (undoing hyphens that were really part of a directory name). A run
	// with no match on disk falls back to a single segment.
	decoded := ""
	for i := 0; i < len(segments); {
		j := len(segments)
		for ; j > i+1; j-- {
			if info, err := os.Stat(decoded + "/" + strings.Join(segments[i:j], "-")); err == nil && info.IsDir() {
				break
			}
		}
		decoded += "/" + strings.Join(segments[i:j], "-")
		i = j
	}
	return decoded
}

// ResolveDisplayName returns the basename of the decoded working directory,
// which is what gets spoken in project-switch announcements.
func ResolveDisplayName(encodedDir string) string {
	decoded := Decode(encodedDir)
	name := filepath.Base(decoded)
	if name == "." || name == "/" {
		return encodedDir
	}
	return name
}

// SessionKey builds the map key used to scope per-session state: the
// encoded project directory and the session id joined by ":".
func SessionKey(encodedDir, sessionID string) string {
	return encodedDir + ":" + sessionID
}

// IsSubagent reports whether a transcript file path has a "subagents" path
// segment, identifying it as a sub-agent transcript rather than a main
// session transcript.
func IsSubagent(path string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == SubagentsDirName {
			return true
		}
	}
	return false
}

// ExtractProjectDir returns the first path segment under projectsDir: the
// encoded project directory name.
func ExtractProjectDir(path, projectsDir string) string {
	rel, err := filepath.Rel(projectsDir, path)
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	if idx := strings.Index(rel, "/"); idx >= 0 {
		return rel[:idx]
	}
	return rel
}

// ExtractSessionID returns the session uuid embedded in a transcript file
// path: the basename stem for a main-session file
// (<projectsDir>/<encodedDir>/<sessionUuid>.jsonl), or the path segment
// immediately preceding "subagents/" for a sub-agent file
// (<projectsDir>/<encodedDir>/<sessionUuid>/subagents/<agentId>.jsonl).
func ExtractSessionID(path, projectsDir string) string {
	rel, err := filepath.Rel(projectsDir, path)
	if err != nil {
		return ""
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")

	for i, segment := range segments {
		if segment == SubagentsDirName && i > 0 {
			return segments[i-1]
		}
	}

	if len(segments) == 0 {
		return ""
	}
	base := segments[len(segments)-1]
	return strings.TrimSuffix(base, filepath.Ext(base))
}
