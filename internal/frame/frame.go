// Package frame derives neighboring frame URLs from frame-indexed
// image URLs. It is the single source of truth for this logic; every
// tool that needs a previous-frame URL goes through PrevURL.
package frame

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// filenamePattern matches a frame filename: a zero-padded integer
// index, a dot, then a word extension (e.g. "000512.jpg").
var filenamePattern = regexp.MustCompile(`^(\d+)\.(\w+)$`)

// PrevURL returns the URL of the frame offset steps before the one
// named by url. The frame index keeps its original zero-padding width
// and extension; all other path segments are preserved verbatim.
//
// An empty string is returned when no predecessor can be derived:
// empty input, a final segment that is not a frame filename, or an
// index that would go below zero. That is a recoverable result, not an
// error; PrevURL never fails for arbitrary input.
func PrevURL(url string, offset int) string {
	if url == "" {
		return ""
	}

	parts := strings.Split(url, "/")
	filename := parts[len(parts)-1]

	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}

	num, err := strconv.Atoi(m[1])
	if err != nil {
		// Digit run too long for an int; treat as underivable.
		return ""
	}

	prev := num - offset
	if prev < 0 {
		return ""
	}

	parts[len(parts)-1] = fmt.Sprintf("%0*d.%s", len(m[1]), prev, m[2])
	return strings.Join(parts, "/")
}
