// Package discover selects the input files of a run.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultExt is the extension of capture files.
const DefaultExt = ".cap"

// Options controls Files.
type Options struct {
	// Ext filters by file extension, case-insensitively. Empty means DefaultExt.
	Ext string
	// Recursive walks subdirectories.
	Recursive bool
	// NoGitignore disables .gitignore handling.
	NoGitignore bool
}

func (o Options) ext() string {
	e := strings.TrimSpace(o.Ext)
	if e == "" {
		return DefaultExt
	}
	if !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return strings.ToLower(e)
}

// Files returns the matching regular files under root, sorted. Returned
// paths are root joined with the relative path.
func Files(root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	ext := opts.ext()
	var ig *ignorer
	if !opts.NoGitignore {
		ig = newIgnorer(root)
	}
	var out []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive {
				return fs.SkipDir
			}
			if ig != nil && ig.Match(rel, true) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.ToLower(filepath.Ext(d.Name())) != ext {
			return nil
		}
		if ig != nil && ig.Match(rel, false) {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Window is a modification-time range. A zero bound is open.
type Window struct {
	Since time.Time
	Until time.Time
}

// LastDays returns the window covering the days before now.
func LastDays(now time.Time, days int) Window {
	if days <= 0 {
		return Window{}
	}
	return Window{Since: now.Add(-time.Duration(days) * 24 * time.Hour)}
}

const dateLayout = "2006-01-02"

// ParseWindow builds a window from YYYY-MM-DD bounds. Until is inclusive of
// the whole day.
func ParseWindow(since, until string) (Window, error) {
	var w Window
	if since != "" {
		t, err := time.ParseInLocation(dateLayout, since, time.Local)
		if err != nil {
			return Window{}, fmt.Errorf("invalid since %q: want YYYY-MM-DD", since)
		}
		w.Since = t
	}
	if until != "" {
		t, err := time.ParseInLocation(dateLayout, until, time.Local)
		if err != nil {
			return Window{}, fmt.Errorf("invalid until %q: want YYYY-MM-DD", until)
		}
		w.Until = t.Add(24 * time.Hour)
	}
	if !w.Since.IsZero() && !w.Until.IsZero() && !w.Since.Before(w.Until) {
		return Window{}, fmt.Errorf("since %s is after until %s", since, until)
	}
	return w, nil
}

// Contains reports whether t lies in [Since, Until).
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && !t.Before(w.Until) {
		return false
	}
	return true
}

// Recent keeps the paths whose modification time lies in w, preserving
// order. Files that cannot be stat'ed are dropped.
func Recent(paths []string, w Window) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if w.Contains(info.ModTime()) {
			out = append(out, p)
		}
	}
	return out
}
