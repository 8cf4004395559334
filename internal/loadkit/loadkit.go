// Package loadkit prepares read-heavy load tests: it generates fake URL data
// with a Zipf-distributed read scenario, seeds a store with the data and
// turns the scenario into attack targets.
package loadkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultSeparator splits generated keys such as "key_42" into a prefix and
// the identifier stored in the database.
const DefaultSeparator = "_"

var ErrMalformedKey = errors.New("malformed key")

// Entry is one generated record. Key carries the identifier after the
// separator, Value the URL it resolves to.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ReadCase is one lookup of a read scenario.
type ReadCase struct {
	Key string `json:"key"`
}

// ParseID returns the part of key after the first separator.
func ParseID(key, sep string) (string, error) {
	_, id, ok := strings.Cut(key, sep)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	return id, nil
}

func ReadJSON[T any](path string) ([]T, error) {
	const op = "loadkit.ReadJSON"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	var v []T
	if err := json.NewDecoder(f).Decode(&v); err != nil {
		return nil, fmt.Errorf("%s: failed to decode %s: %w", op, path, err)
	}

	return v, nil
}

func WriteJSON(path string, v any) error {
	const op = "loadkit.WriteJSON"

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("%s: failed to encode %s: %w", op, path, err)
	}

	return f.Close()
}
