// Package report renders the end-of-run artifacts: the summary line and
// the line-oriented graph dump.
package report

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Summary is the outcome of a finished crawl
type Summary struct {
	Domains int
	Elapsed time.Duration
}

// Rate returns domains per whole second of elapsed time, or 0 when the run
// took less than a second
func (s Summary) Rate() float64 {
	secs := int64(s.Elapsed / time.Second)
	if secs == 0 {
		return 0
	}
	return float64(s.Domains) / float64(secs)
}

func (s Summary) String() string {
	return fmt.Sprintf("found %d domains in %v (%.1f domains/s)", s.Domains, s.Elapsed.Round(time.Millisecond), s.Rate())
}

// Serializer is anything that can write itself as a line-oriented dump
type Serializer interface {
	Serialize(w io.Writer) error
}

// WriteFile writes the serialized dump to path, replacing any existing file
func WriteFile(path string, s Serializer) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	if err := s.Serialize(file); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close dump file: %w", err)
	}
	return nil
}
