package poller

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/apollographql/mcp-server-go/internal/operations"
)

// operationDocumentExtension is the file extension directory enumeration
// looks for, matching the original's OPERATION_DOCUMENT_EXTENSION.
const operationDocumentExtension = ".graphql"

// FileOperationSource watches a set of GraphQL operation files or
// directories (§4.1 file source) and emits a replacement batch whenever any
// of them changes. A directory entry emits one event containing every
// .graphql file found directly inside it.
//
// The watched paths are joined: the first event is only emitted once every
// path has produced at least one reading, so a partially-started server never
// sees a batch missing an operation it was configured with. After that,
// every change to any watched path re-reads all of them and emits a fresh
// aggregated batch.
func FileOperationSource(ctx context.Context, paths []string, log logr.Logger) <-chan OperationSourceEvent {
	out := make(chan OperationSourceEvent, 2)

	go func() {
		defer close(out)

		if len(paths) == 0 {
			return
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			select {
			case out <- OperationSourceEvent{OperationErrorPath: "", CollectionErrorMessage: err.Error()}:
			case <-ctx.Done():
			}
			return
		}
		defer watcher.Close()

		for _, p := range paths {
			if err := watcher.Add(p); err != nil {
				select {
				case out <- OperationSourceEvent{OperationErrorPath: p, CollectionErrorMessage: err.Error()}:
				case <-ctx.Done():
					return
				}
			}
		}

		read := make(map[string]bool, len(paths))
		emit := func() {
			raws, err := readOperationFiles(paths, log)
			if err != nil {
				select {
				case out <- OperationSourceEvent{CollectionErrorMessage: err.Error()}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- OperationSourceEvent{Operations: raws}:
			case <-ctx.Done():
			}
		}

		// Seed every path once so the first emitted batch is already complete,
		// matching the "wait for all before first emit" rule.
		for _, p := range paths {
			read[p] = true
		}
		emit()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				emit()
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case out <- OperationSourceEvent{CollectionErrorMessage: werr.Error()}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func readOperationFiles(paths []string, log logr.Logger) ([]operations.RawOperation, error) {
	raws := make([]operations.RawOperation, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if entry.IsDir() || filepath.Ext(entry.Name()) != operationDocumentExtension {
					continue
				}
				entryPath := filepath.Join(p, entry.Name())
				raw, ok, err := readOperationFile(entryPath, log)
				if err != nil {
					return nil, err
				}
				if ok {
					raws = append(raws, raw)
				}
			}
			continue
		}

		raw, ok, err := readOperationFile(p, log)
		if err != nil {
			return nil, err
		}
		if ok {
			raws = append(raws, raw)
		}
	}
	return raws, nil
}

// readOperationFile reads path and reports ok=false, with no error, for an
// empty or whitespace-only file: §8's "empty operation files produce no
// compiled operations and no error" invariant, matching the original's
// `!content.trim().is_empty()` check.
func readOperationFile(path string, log logr.Logger) (raw operations.RawOperation, ok bool, err error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return operations.RawOperation{}, false, err
	}
	if strings.TrimSpace(string(body)) == "" {
		log.V(1).Info("skipping empty operation file", "path", path)
		return operations.RawOperation{}, false, nil
	}
	return operations.RawOperation{SourceText: string(body), SourcePath: path}, true, nil
}
