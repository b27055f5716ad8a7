package poller

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectOneBatch(t *testing.T, out <-chan OperationSourceEvent) OperationSourceEvent {
	t.Helper()
	select {
	case ev := <-out:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an operation source event")
		return OperationSourceEvent{}
	}
}

func TestFileOperationSource_EnumeratesDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.graphql"), []byte("query A { a }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.graphql"), []byte("query B { b }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("not graphql"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := FileOperationSource(ctx, []string{dir}, logr.Discard())
	ev := collectOneBatch(t, out)

	require.Empty(t, ev.CollectionErrorMessage)
	require.Len(t, ev.Operations, 2)
	names := []string{ev.Operations[0].SourcePath, ev.Operations[1].SourcePath}
	assert.Contains(t, names, filepath.Join(dir, "a.graphql"))
	assert.Contains(t, names, filepath.Join(dir, "b.graphql"))
}

func TestFileOperationSource_SkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.graphql"), []byte("query Q { q }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.graphql"), []byte("   \n\t"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := FileOperationSource(ctx, []string{dir}, logr.Discard())
	ev := collectOneBatch(t, out)

	require.Empty(t, ev.CollectionErrorMessage)
	require.Len(t, ev.Operations, 1)
	assert.Equal(t, filepath.Join(dir, "real.graphql"), ev.Operations[0].SourcePath)
}

func TestFileOperationSource_SkipsEmptySingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.graphql")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := FileOperationSource(ctx, []string{path}, logr.Discard())
	ev := collectOneBatch(t, out)

	require.Empty(t, ev.CollectionErrorMessage)
	assert.Empty(t, ev.Operations)
}
