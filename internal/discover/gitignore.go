package discover

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignorer matches paths against the .gitignore files found between the root
// and each path. Pattern files are read once per directory.
type ignorer struct {
	root     string
	patterns map[string][]gitignore.Pattern
}

func newIgnorer(root string) *ignorer {
	return &ignorer{root: root, patterns: map[string][]gitignore.Pattern{}}
}

// dirsForRel returns the directories from "." down to the parent of rel.
func dirsForRel(rel string) []string {
	dir := filepath.Dir(rel)
	dirs := []string{"."}
	if dir == "." {
		return dirs
	}
	cur := ""
	for _, part := range strings.Split(dir, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		dirs = append(dirs, cur)
	}
	return dirs
}

func (ig *ignorer) dirPatterns(d string) []gitignore.Pattern {
	if ps, ok := ig.patterns[d]; ok {
		return ps
	}
	var ps []gitignore.Pattern
	b, err := os.ReadFile(filepath.Join(ig.root, d, ".gitignore"))
	if err == nil {
		var domain []string
		if d != "." {
			domain = strings.Split(filepath.ToSlash(d), "/")
		}
		for _, line := range strings.Split(string(b), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			ps = append(ps, gitignore.ParsePattern(line, domain))
		}
	}
	ig.patterns[d] = ps
	return ps
}

// Match reports whether rel (relative to the root) is ignored.
func (ig *ignorer) Match(rel string, isDir bool) bool {
	var ps []gitignore.Pattern
	for _, d := range dirsForRel(rel) {
		ps = append(ps, ig.dirPatterns(d)...)
	}
	if len(ps) == 0 {
		return false
	}
	return gitignore.NewMatcher(ps).Match(strings.Split(rel, string(os.PathSeparator)), isDir)
}
