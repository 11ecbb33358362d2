// Package buildinfo exposes version metadata for the CLI. Values can be
// overridden at build time via -ldflags. Values set in the cli package
// (cli.Version/cli.Date) are used when the ones here are empty.
package buildinfo

import (
	"runtime"
	"strings"

	"github.com/flarebyte/clipper/cli"
)

var (
	// Version is the semantic version. Falls back to cli.Version, then "dev".
	Version = ""
	// Commit is the VCS commit hash (optional).
	Commit = ""
	// Date is the build date (optional). Falls back to cli.Date.
	Date = ""
	// BuiltBy is an optional builder identifier.
	BuiltBy = ""
)

// Info is the resolved build metadata.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	BuiltBy string `json:"built_by"`
	Go      string `json:"go"`
	GoOS    string `json:"go_os"`
	GoArch  string `json:"go_arch"`
}

// Current resolves the metadata, applying the fallbacks.
func Current() Info {
	v := firstSet(Version, cli.Version, "dev")
	return Info{
		Version: v,
		Commit:  Commit,
		Date:    firstSet(Date, cli.Date),
		BuiltBy: BuiltBy,
		Go:      runtime.Version(),
		GoOS:    runtime.GOOS,
		GoArch:  runtime.GOARCH,
	}
}

// Summary returns a concise single-line version string.
func Summary() string {
	in := Current()
	parts := make([]string, 0, 2)
	if in.Commit != "" {
		c := in.Commit
		if len(c) > 7 {
			c = c[:7]
		}
		parts = append(parts, "commit="+c)
	}
	if in.Date != "" {
		parts = append(parts, "date="+in.Date)
	}
	if len(parts) == 0 {
		return in.Version
	}
	return in.Version + " (" + strings.Join(parts, ", ") + ")"
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
