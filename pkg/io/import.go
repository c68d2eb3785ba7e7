package io

import (
	"fmt"
	"io"
	"os"

	"github.com/soletide/hydrostat/pkg/body"
)

// ReadJSON decodes a profile from r and validates its ordering invariants.
func ReadJSON(r io.Reader) (*body.Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	p, err := body.UnmarshalProfile(data)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// ImportJSON reads a profile from a JSON file at path.
// This is a convenience wrapper around [ReadJSON] for file-based input.
func ImportJSON(path string) (*body.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	p, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return p, nil
}
