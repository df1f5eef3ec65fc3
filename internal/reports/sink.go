package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink stores a finished report under name and returns where it went.
type Sink interface {
	Save(ctx context.Context, name string, content []byte) (string, error)
}

// FileSink writes reports into a local directory, creating it on demand.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

func (s *FileSink) Save(ctx context.Context, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(s.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize report: %w", err)
	}
	return path, nil
}
