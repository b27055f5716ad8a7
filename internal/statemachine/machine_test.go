package statemachine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
	"github.com/apollographql/mcp-server-go/internal/operations"
	"github.com/apollographql/mcp-server-go/internal/poller"
)

const testSDL = `
type Query {
  widget(id: ID!): Widget
}

type Widget {
  id: ID!
  name: String
}
`

func mustSchema(t *testing.T) *gqlschema.Schema {
	t.Helper()
	s, err := gqlschema.Parse(testSDL, "launch-1")
	require.NoError(t, err)
	return s
}

func TestMachine_SchemaThenOperationsReachesRunning(t *testing.T) {
	m := New(operations.CompileOptions{})
	started := false
	m.OnStart = func(ctx context.Context) error {
		started = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schemaEvents := make(chan poller.SchemaSourceEvent, 1)
	opEvents := make(chan poller.OperationSourceEvent, 1)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, schemaEvents, opEvents) }()

	schemaEvents <- poller.SchemaSourceEvent{Schema: mustSchema(t)}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, SchemaConfigured, m.State().Phase)

	opEvents <- poller.OperationSourceEvent{Operations: []operations.RawOperation{
		{SourceText: `query GetWidget($id: ID!) { widget(id: $id) { id name } }`},
	}}
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, Running, m.State().Phase)
	assert.True(t, started)
	assert.Len(t, m.Operations(), 1)

	cancel()
	require.NoError(t, <-done)
}

func TestMachine_FailingOperationIsDroppedNotFatal(t *testing.T) {
	m := New(operations.CompileOptions{})
	m.OnStart = func(ctx context.Context) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schemaEvents := make(chan poller.SchemaSourceEvent, 1)
	opEvents := make(chan poller.OperationSourceEvent, 1)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, schemaEvents, opEvents) }()

	schemaEvents <- poller.SchemaSourceEvent{Schema: mustSchema(t)}
	opEvents <- poller.OperationSourceEvent{Operations: []operations.RawOperation{
		{SourceText: `query GetWidget($id: ID!) { widget(id: $id) { id name } }`},
		{SourceText: `query Broken { doesNotExist }`},
	}}
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, Running, m.State().Phase)
	assert.Len(t, m.Operations(), 1, "the broken operation is dropped, not fatal")

	cancel()
	require.NoError(t, <-done)
}

func TestMachine_NoMoreSchemaBeforeRunningIsFatal(t *testing.T) {
	m := New(operations.CompileOptions{})

	schemaEvents := make(chan poller.SchemaSourceEvent, 1)
	opEvents := make(chan poller.OperationSourceEvent, 1)

	schemaEvents <- poller.SchemaSourceEvent{NoMore: true}

	err := m.Run(context.Background(), schemaEvents, opEvents)
	assert.ErrorIs(t, err, ErrNoSchema)
	assert.Equal(t, Errored, m.State().Phase)
}

func TestMachine_ShutdownStopsCleanly(t *testing.T) {
	m := New(operations.CompileOptions{})
	ctx, cancel := context.WithCancel(context.Background())

	schemaEvents := make(chan poller.SchemaSourceEvent)
	opEvents := make(chan poller.OperationSourceEvent)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, schemaEvents, opEvents) }()

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, Stopping, m.State().Phase)
}
