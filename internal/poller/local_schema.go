package poller

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
)

// LocalSchemaSource watches a single SDL file (§4.1 local schema source)
// and emits a replacement Schema whenever it changes, closing the stream
// with no final event: a local file never signals NoMoreSchema on its own,
// it simply stops producing updates when the watch loop is cancelled.
// Grounded on FileOperationSource's watch/emit loop, narrowed to one path
// and one gqlschema.Parse call per change.
func LocalSchemaSource(ctx context.Context, path string) <-chan SchemaSourceEvent {
	out := make(chan SchemaSourceEvent, 2)

	go func() {
		defer close(out)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return
		}
		defer watcher.Close()

		if err := watcher.Add(path); err != nil {
			return
		}

		emit := func() bool {
			schema, err := readLocalSchema(path)
			if err != nil {
				return true
			}
			select {
			case out <- SchemaSourceEvent{Schema: schema}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

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
				if !emit() {
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out
}

func readLocalSchema(path string) (*gqlschema.Schema, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return gqlschema.Parse(string(body), path)
}
