// Package output holds the sinks of a run: terminal tables, JSON documents
// on disk and an optional S3 copy of those documents.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/filex"
)

const filePerm = 0o644

// Marshal renders v the way every document is stored: two-space indent,
// no HTML escaping, trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile atomically replaces path with data. Failures wrap
// common.ErrPersistence.
func WriteFile(path string, data []byte) error {
	if err := filex.WriteAtomic(path, data, filePerm); err != nil {
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	return nil
}

// WriteJSON marshals v and writes it with WriteFile. It returns the bytes
// written so callers can mirror them elsewhere.
func WriteJSON(path string, v any) ([]byte, error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", common.ErrPersistence, path, err)
	}
	if err := WriteFile(path, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadFile reads path. A missing file wraps common.ErrorNotFound.
func ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// ReadJSON reads and decodes path into v.
func ReadJSON(path string, v any) error {
	b, err := ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}
