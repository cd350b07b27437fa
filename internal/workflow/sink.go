package workflow

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FileSink saves artifacts under a fixed file name, replacing any previous
// file.
type FileSink struct {
	dir  string
	name string
}

// NewFileSink creates a sink writing dir/name.
func NewFileSink(dir, name string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{dir: dir, name: name}
}

// Save writes data through a temp file and renames it into place.
func (s *FileSink) Save(_ context.Context, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "workflow: create export dir %s", s.dir)
	}
	tmp, err := os.CreateTemp(s.dir, "."+s.name+"-*")
	if err != nil {
		return "", eris.Wrap(err, "workflow: create temp artifact")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "workflow: write artifact")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "workflow: close artifact")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", eris.Wrap(err, "workflow: chmod artifact")
	}

	path := filepath.Join(s.dir, s.name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", eris.Wrapf(err, "workflow: move artifact to %s", path)
	}
	return path, nil
}
