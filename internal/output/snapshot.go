package output

import (
	"fmt"

	"github.com/dmitrijs2005/subreport/internal/report"
)

// WriteSnapshot persists s as the snapshot document at path.
func WriteSnapshot(path string, s *report.Snapshot) ([]byte, error) {
	return WriteJSON(path, s.Document())
}

// ReadSnapshot loads and validates the snapshot document at path.
func ReadSnapshot(path string) (*report.Snapshot, error) {
	b, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := report.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
