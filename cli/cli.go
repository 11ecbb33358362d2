// Package cli holds build metadata injected by release scripts.
package cli

// Version and Date should be set at build time using ldflags, e.g.:
//
//	-ldflags "-X 'github.com/flarebyte/clipper/cli.Version=1.2.3' -X 'github.com/flarebyte/clipper/cli.Date=2026-02-09'"
var (
	Version string
	Date    string
)
