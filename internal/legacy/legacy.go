// Package legacy detects pre-consolidation monolithic memory files so an
// external migrate flow can decide what to move aside. It never mutates
// anything itself.
package legacy

import (
	"os"
	"path/filepath"
)

// knownFiles are the monolithic files an older, non-tiered memory layout
// left behind in a project's base directory.
var knownFiles = []string{
	"conversations.aicf",
	"decisions.aicf",
	"technical-context.aicf",
	"memory.aicf",
}

// Detect returns the absolute paths of any known legacy memory file found
// directly under baseDir. A missing baseDir is not an error: it simply has
// nothing to detect.
func Detect(baseDir string) ([]string, error) {
	var found []string

	for _, name := range knownFiles {
		path := filepath.Join(baseDir, name)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if info.IsDir() {
			continue
		}
		found = append(found, path)
	}

	return found, nil
}
