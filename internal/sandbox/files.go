package sandbox

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultSourceExtensions are the file types handed to the source analyzer
var DefaultSourceExtensions = []string{".js", ".mjs", ".cjs"}

// ListSourceFiles walks dir and returns source files worth scanning.
// Nested node_modules, hidden directories, and test directories are
// skipped. The walk order is lexical, so results are deterministic.
func ListSourceFiles(dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultSourceExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if name == "node_modules" || name == "test" || name == "tests" ||
				strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(name))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
