package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/castforge-labs/castforge-core/internal/config"
	"github.com/castforge-labs/castforge-core/internal/faults"
)

// Local is a filesystem-backed Store rooted at a configured directory.
type Local struct {
	root    string
	baseURL string
	log     *slog.Logger
}

func NewLocal(cfg config.StorageConfig, log *slog.Logger) (*Local, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("storage root not configured")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{
		root:    cfg.Root,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		log:     log.With(slog.String("component", "storage")),
	}, nil
}

// resolve maps a location back to a path relative to the root. Absolute
// locations inside the root are accepted so callers can round-trip the
// values Put returns.
func (l *Local) resolve(location string) (string, error) {
	rel := location
	if filepath.IsAbs(location) {
		var err error
		rel, err = filepath.Rel(l.root, location)
		if err != nil {
			return "", faults.Validation("location %q outside storage root", location)
		}
	}
	rel = filepath.Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", faults.Validation("location %q escapes storage root", location)
	}
	return filepath.Join(l.root, rel), nil
}

func (l *Local) Put(ctx context.Context, data []byte, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", faults.Upstream("create artifact directory", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", faults.Upstream("write artifact", err)
	}
	l.log.Debug("artifact stored", slog.String("path", path), slog.Int("bytes", len(data)))
	return full, nil
}

func (l *Local) Get(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := l.resolve(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, faults.NotFound("artifact %s not found", location)
		}
		return nil, faults.Upstream("read artifact", err)
	}
	return data, nil
}

func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, err := l.resolve(prefix)
	if err != nil {
		return nil, err
	}
	var locations []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			locations = append(locations, path)
		}
		return nil
	})
	if err != nil {
		return nil, faults.Upstream("list artifacts", err)
	}
	sort.Strings(locations)
	return locations, nil
}

func (l *Local) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.resolve(location)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return faults.NotFound("artifact %s not found", location)
		}
		return faults.Upstream("delete artifact", err)
	}
	return nil
}

func (l *Local) URL(location string) string {
	full, err := l.resolve(location)
	if err != nil {
		return ""
	}
	rel, relErr := filepath.Rel(l.root, full)
	if relErr != nil {
		return ""
	}
	if l.baseURL == "" {
		return "file://" + full
	}
	return l.baseURL + "/" + filepath.ToSlash(rel)
}

func (l *Local) Exists(ctx context.Context, location string) bool {
	full, err := l.resolve(location)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(full)
	return statErr == nil
}
