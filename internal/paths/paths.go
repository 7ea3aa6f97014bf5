// Package paths resolves the on-disk layout of project repositories.
//
// The layout is compatibility-critical and must not change:
//
//	<root>/<sanitized-name>_<projectID-prefix8>/   git repository
//	  <subproject>/                                LaTeX sources
//	  file/<subproject>/                           legacy nested layout (read-only)
//	  compilations/<jobID>/{source/,output/,metadata.json}
package paths

import (
	"path/filepath"
	"strings"
)

// CompilationsDir is the per-repository directory holding build jobs.
const CompilationsDir = "compilations"

// legacyNestDir is the extra level old repositories nested sub-projects
// under. Readers fall back to it; writers never target it.
const legacyNestDir = "file"

// SanitizeName lowercases a project name and reduces it to a safe directory
// component: runs of non-alphanumeric characters collapse to single
// underscores, trimmed at both ends. An empty result becomes "project".
func SanitizeName(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "project"
	}
	return out
}

// RepoDirName returns the directory name for a project repository:
// "<sanitized-name>_<first 8 chars of projectID>".
func RepoDirName(projectName, projectID string) string {
	prefix := projectID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return SanitizeName(projectName) + "_" + prefix
}

// RepoPath returns the absolute repository path under root.
func RepoPath(root, projectName, projectID string) string {
	return filepath.Join(root, RepoDirName(projectName, projectID))
}

// SubprojectCandidates returns the ordered paths at which a sub-project's
// sources may live, current layout first, legacy nested layout second.
func SubprojectCandidates(repoPath, subprojectID string) []string {
	return []string{
		filepath.Join(repoPath, subprojectID),
		filepath.Join(repoPath, legacyNestDir, subprojectID),
	}
}

// JobDir returns the working directory of a compilation job.
func JobDir(repoPath, jobID string) string {
	return filepath.Join(repoPath, CompilationsDir, jobID)
}

// NormalizeRepoRelative normalizes a caller-supplied file path to a
// POSIX-relative path inside the repository: slashes unified, leading
// slashes stripped. Returns "" for paths that escape the repository or
// reduce to nothing.
func NormalizeRepoRelative(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == "." || clean == "" {
		return ""
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return ""
	}
	return clean
}
