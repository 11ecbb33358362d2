// Package config loads run configurations: a list of jobs, each pairing an
// input folder and a rule file with a CSV output.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/flarebyte/clipper/internal/discover"
	"github.com/flarebyte/clipper/internal/fault"
)

// Run is a decoded run configuration. Top-level values are defaults for
// every job.
type Run struct {
	ConfigVersion string `json:"configVersion,omitempty"`
	Workers       int    `json:"workers,omitempty"`
	Extension     string `json:"extension,omitempty"`
	Days          int    `json:"days,omitempty"`
	Since         string `json:"since,omitempty"`
	Until         string `json:"until,omitempty"`
	SourceOffset  string `json:"sourceOffset,omitempty"`
	Jobs          []Job  `json:"jobs"`
}

// Job is one folder to parse into one CSV file.
type Job struct {
	Name        string   `json:"name,omitempty"`
	Folder      string   `json:"folder"`
	Rule        string   `json:"rule"`
	Output      string   `json:"output"`
	Extension   string   `json:"extension,omitempty"`
	Days        *int     `json:"days,omitempty"`
	Since       string   `json:"since,omitempty"`
	Until       string   `json:"until,omitempty"`
	Recursive   *bool    `json:"recursive,omitempty"`
	NoGitignore bool     `json:"noGitignore,omitempty"`
	Fields      []string `json:"fields,omitempty"`
}

// LoadRun reads, decodes and validates a .json or .cue run configuration.
func LoadRun(path string) (Run, error) {
	v, err := compileCUE(path)
	if err != nil {
		return Run{}, err
	}
	version, ok, err := lookupString(v, "configVersion")
	if err != nil {
		return Run{}, err
	}
	if ok && !IsSupportedConfigVersion(version) {
		return Run{}, fmt.Errorf("%w: unsupported configVersion: %q (supported: %s)", fault.ErrConfig, version, SupportedConfigVersionsCSV())
	}
	var r Run
	if err := v.Decode(&r); err != nil {
		return Run{}, fmt.Errorf("%w: invalid config: %v", fault.ErrConfig, err)
	}
	if err := r.validate(); err != nil {
		return Run{}, err
	}
	return r, nil
}

func (r Run) validate() error {
	if r.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", fault.ErrConfig)
	}
	if r.Days < 0 {
		return fmt.Errorf("%w: days must be >= 0", fault.ErrConfig)
	}
	if len(r.Jobs) == 0 {
		return fmt.Errorf("%w: no jobs", fault.ErrConfig)
	}
	var errs []error
	seen := map[string]bool{}
	for i, j := range r.Jobs {
		label := fmt.Sprintf("jobs[%d]", i)
		if j.Name != "" {
			label = fmt.Sprintf("job %q", j.Name)
		}
		for _, req := range []struct{ key, val string }{{"folder", j.Folder}, {"rule", j.Rule}, {"output", j.Output}} {
			if req.val == "" {
				errs = append(errs, fmt.Errorf("%w: %s: missing %s", fault.ErrConfig, label, req.key))
			}
		}
		if j.Days != nil && *j.Days < 0 {
			errs = append(errs, fmt.Errorf("%w: %s: days must be >= 0", fault.ErrConfig, label))
		}
		if j.Output != "" {
			if seen[filepath.Clean(j.Output)] {
				errs = append(errs, fmt.Errorf("%w: %s: output %s is shared with another job", fault.ErrConfig, label, j.Output))
			}
			seen[filepath.Clean(j.Output)] = true
		}
	}
	return errors.Join(errs...)
}

// Resolved is a job with the run defaults applied.
type Resolved struct {
	Name     string
	Folder   string
	Rule     string
	Output   string
	Fields   []string
	Discover discover.Options
	Days     int
	Since    string
	Until    string
}

// Resolve applies run-level defaults to every job.
func (r Run) Resolve() []Resolved {
	out := make([]Resolved, 0, len(r.Jobs))
	for _, j := range r.Jobs {
		res := Resolved{
			Name:   j.Name,
			Folder: j.Folder,
			Rule:   j.Rule,
			Output: j.Output,
			Fields: j.Fields,
			Days:   r.Days,
			Since:  firstNonEmpty(j.Since, r.Since),
			Until:  firstNonEmpty(j.Until, r.Until),
			Discover: discover.Options{
				Ext:         firstNonEmpty(j.Extension, r.Extension),
				Recursive:   j.Recursive == nil || *j.Recursive,
				NoGitignore: j.NoGitignore,
			},
		}
		if res.Name == "" {
			res.Name = filepath.Base(j.Folder)
		}
		if j.Days != nil {
			res.Days = *j.Days
		}
		out = append(out, res)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
