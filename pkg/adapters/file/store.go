// Package file keeps run results as JSON documents in a directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/stanza/pkg/domain"
)

// DefaultDir is used when no directory is configured.
var DefaultDir = filepath.Join(".stanza", "runs")

const ext = ".json"

// Store implements ports.ResultStore using the local filesystem.
// Each run is stored as <id>.json under Dir.
type Store struct {
	Dir string
}

// NewStore creates a Store rooted at dir. An empty dir uses DefaultDir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{Dir: dir}
}

func (s *Store) path(id string) (string, error) {
	if id == "" {
		return "", errors.New("run ID cannot be empty")
	}
	if id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid run ID %q", id)
	}
	return filepath.Join(s.Dir, id+ext), nil
}

// Save writes the result. The file is replaced atomically.
func (s *Store) Save(ctx context.Context, result *domain.RunResult) error {
	path, err := s.path(result.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure run directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+result.ID+"-*")
	if err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write run file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	return nil
}

// Load reads the result with the given ID.
func (s *Store) Load(ctx context.Context, id string) (*domain.RunResult, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var result domain.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return &result, nil
}

// Delete removes the run file. Deleting a missing run is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run file: %w", err)
	}
	return nil
}

// List returns the stored run IDs, most recently written first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	type run struct {
		id  string
		mod int64
	}
	runs := make([]run, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		runs = append(runs, run{id: strings.TrimSuffix(name, ext), mod: info.ModTime().UnixNano()})
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].mod == runs[j].mod {
			return runs[i].id < runs[j].id
		}
		return runs[i].mod > runs[j].mod
	})

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.id
	}
	return ids, nil
}
