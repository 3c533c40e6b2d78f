// Package stacktrace extracts the application-owned frames from a raw stack
// dump so panic logs stay readable.
package stacktrace

import "strings"

// InternalPaths returns the file:line entries from stack that belong to this
// repository (paths containing "/internal/"). It returns nil when no such
// frame exists, in which case callers should log the full stack instead.
func InternalPaths(stack []byte) []string {
	var paths []string

	for _, line := range strings.Split(string(stack), "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "/internal/") {
			continue
		}

		if idx := strings.Index(line, "/internal/"); idx >= 0 {
			entry := "internal/" + line[idx+len("/internal/"):]
			if cut := strings.Index(entry, " "); cut > 0 {
				entry = entry[:cut]
			}
			paths = append(paths, entry)
		}
	}

	return paths
}
