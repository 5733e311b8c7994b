package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/storage"
)

// Roster operations (filesystem-backed)

func (r *RedisStorage) rostersDir() string {
	return filepath.Join(r.dataDir, "rosters")
}

// ListRosters maps roster names to their filenames.
func (r *RedisStorage) ListRosters(ctx context.Context) (map[string]string, error) {
	rosters := make(map[string]string)

	err := filepath.WalkDir(r.rostersDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		spec, err := LoadRoster(path)
		if err != nil {
			r.logger.Warn("Failed to load roster file", "path", path, "error", err)
			return nil
		}

		filename := filepath.Base(path)
		name := spec.Name
		if name == "" {
			name = filename
		}
		rosters[name] = filename
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to walk rosters directory", "error", err)
		return nil, fmt.Errorf("failed to list rosters: %w", err)
	}

	return rosters, nil
}

// GetRoster loads a roster file by name from the rosters directory.
func (r *RedisStorage) GetRoster(ctx context.Context, filename string) (*roster.Spec, error) {
	if filename != filepath.Base(filename) {
		return nil, fmt.Errorf("invalid roster filename: %s", filename)
	}
	return LoadRoster(filepath.Join(r.rostersDir(), filename))
}

// LoadRoster reads a roster file. Unknown fields are rejected.
func LoadRoster(path string) (*roster.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("roster %s: %w", filepath.Base(path), storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var spec roster.Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster %s: %w", filepath.Base(path), err)
	}
	return &spec, nil
}
