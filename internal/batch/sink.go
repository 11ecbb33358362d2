package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flarebyte/clipper/internal/fault"
)

// Sink consumes succeeded outcomes. Write and Close are called from a single
// goroutine.
type Sink interface {
	Write(o Outcome) error
	Close() error
}

const csvFlushEvery = 64

// CSVSink writes one row per outcome under a fixed header.
type CSVSink struct {
	f       *os.File
	w       *csv.Writer
	columns []string
	pending int
	rows    int
}

// NewCSVSink creates the output directory, truncates path and writes the
// header row.
func NewCSVSink(path string, columns []string) (*CSVSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create output directory: %v", fault.ErrWrite, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fault.ErrWrite, err)
	}
	s := &CSVSink{f: f, w: csv.NewWriter(f), columns: append([]string(nil), columns...)}
	if err := s.w.Write(s.columns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: header: %v", fault.ErrWrite, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: header: %v", fault.ErrWrite, err)
	}
	return s, nil
}

// Rows returns the number of data rows written.
func (s *CSVSink) Rows() int { return s.rows }

func (s *CSVSink) Write(o Outcome) error {
	if err := s.w.Write(o.Result.Row(s.columns)); err != nil {
		return err
	}
	s.rows++
	s.pending++
	if s.pending >= csvFlushEvery {
		s.pending = 0
		s.w.Flush()
		return s.w.Error()
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	werr := s.w.Error()
	cerr := s.f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
