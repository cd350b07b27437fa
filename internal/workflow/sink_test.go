package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_SaveReplacesPrevious(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	sink := NewFileSink(dir, "informe_auditoria.pdf")

	path, err := sink.Save(context.Background(), []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "informe_auditoria.pdf"), path)

	_, err = sink.Save(context.Background(), []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileSink_DefaultsToWorkingDir(t *testing.T) {
	sink := NewFileSink("", "x.pdf")
	assert.Equal(t, ".", sink.dir)
}

func TestFileSink_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewFileSink(filepath.Join(file, "sub"), "x.pdf").Save(context.Background(), []byte("data"))
	require.Error(t, err)
}
