package compile

import (
	"path/filepath"
	"strings"
)

// mounts lists the directories a compile reads from or writes to.
// Preload entries in src@dst form contribute their src part.
func mounts(workingDir, sourcePath string, cfg *Config) []string {
	var dirs []string
	seen := make(map[string]struct{})
	add := func(dir string) {
		if dir == "" {
			return
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		dirs = append(dirs, abs)
	}

	add(workingDir)
	add(filepath.Dir(sourcePath))
	for _, include := range cfg.Includes {
		add(include)
	}
	for _, data := range cfg.Data {
		src, _, _ := strings.Cut(data, "@")
		add(filepath.Dir(src))
	}
	return dirs
}
