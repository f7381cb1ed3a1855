package dataset

import "path/filepath"

// ExpandPatterns expands glob patterns into file paths. A pattern that
// matches nothing (or is malformed) is kept as a literal path so the
// per-file error reporting can name it.
func ExpandPatterns(patterns []string) []string {
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err == nil && len(matches) > 0 {
			paths = append(paths, matches...)
			continue
		}
		paths = append(paths, pattern)
	}
	return paths
}
