package statemachine

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
	"github.com/apollographql/mcp-server-go/internal/operations"
	"github.com/apollographql/mcp-server-go/internal/poller"
)

// ToolsChangedFunc is invoked with the full, newly-published compiled
// operation list every time a schema or operations update changes it.
type ToolsChangedFunc func(ops []*operations.Operation)

// StartFunc binds the MCP transport once both schema and operations are
// configured, immediately before Starting -> Running.
type StartFunc func(ctx context.Context) error

// Machine owns the server's central mutable state: the current lifecycle
// phase, the current schema, and the current raw/compiled operation sets.
// The schema and operation maps are guarded by one mutex; readers take a
// brief RLock and never hold it across an upstream call (§5).
type Machine struct {
	mu       sync.RWMutex
	state    State
	schema   *gqlschema.Schema
	raws     map[string]operations.RawOperation
	compiled map[string]*operations.Operation

	CompileOptions operations.CompileOptions
	OnToolsChanged ToolsChangedFunc
	OnStart        StartFunc
	Logger         logr.Logger
}

// New constructs a Machine in the Configuring state.
func New(opts operations.CompileOptions) *Machine {
	return &Machine{
		state:          Initial(),
		raws:           map[string]operations.RawOperation{},
		compiled:       map[string]*operations.Operation{},
		CompileOptions: opts,
		Logger:         logr.Discard(),
	}
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Schema returns the current schema snapshot, or nil before one arrives.
func (m *Machine) Schema() *gqlschema.Schema {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schema
}

// Operations returns the currently published compiled operations.
func (m *Machine) Operations() []*operations.Operation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*operations.Operation, 0, len(m.compiled))
	for _, op := range m.compiled {
		out = append(out, op)
	}
	return out
}

// Lookup finds a compiled operation by MCP tool name.
func (m *Machine) Lookup(name string) (*operations.Operation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, op := range m.compiled {
		if op.ToolDescriptor.Name == name {
			return op, true
		}
	}
	return nil, false
}

// Run merges the schema event stream, the operations event stream, and ctx
// cancellation (the shutdown signal) into the single event loop §4.2
// describes. It returns nil on a clean shutdown, or the terminal error of a
// required source (NoMoreSchema before Running, or a fatal OnStart failure).
func (m *Machine) Run(ctx context.Context, schemaEvents <-chan poller.SchemaSourceEvent, opEvents <-chan poller.OperationSourceEvent) error {
	for {
		select {
		case <-ctx.Done():
			m.transition(State.onShutdown)
			return nil

		case ev, ok := <-schemaEvents:
			if !ok {
				schemaEvents = nil
				continue
			}
			if ev.NoMore {
				var terminal State
				m.transition(func(s State) State {
					terminal = s.onNoMoreSchema()
					return terminal
				})
				if terminal.Phase == Errored {
					return terminal.Err
				}
				continue
			}
			if err := m.applySchema(ctx, ev.Schema); err != nil {
				return err
			}

		case ev, ok := <-opEvents:
			if !ok {
				opEvents = nil
				continue
			}
			if ev.CollectionErrorMessage != "" {
				m.Logger.Info("operation source reported an error", "message", ev.CollectionErrorMessage)
				continue
			}
			if ev.OperationErrorPath != "" {
				m.Logger.Info("operation source reported a path error", "path", ev.OperationErrorPath)
				continue
			}
			if err := m.applyOperations(ctx, ev.Operations); err != nil {
				return err
			}
		}
	}
}

func (m *Machine) applySchema(ctx context.Context, schema *gqlschema.Schema) error {
	m.mu.Lock()
	m.schema = schema
	m.mu.Unlock()

	var transitioned State
	m.transition(func(s State) State {
		transitioned = s.onSchema()
		return transitioned
	})

	m.recompileAll()

	if transitioned.Phase == Starting {
		return m.start(ctx)
	}
	return nil
}

func (m *Machine) applyOperations(ctx context.Context, raws []operations.RawOperation) error {
	m.mu.Lock()
	m.raws = make(map[string]operations.RawOperation, len(raws))
	for _, r := range raws {
		m.raws[r.Identity()] = r
	}
	m.mu.Unlock()

	var transitioned State
	m.transition(func(s State) State {
		transitioned = s.onOperations()
		return transitioned
	})

	m.recompileAll()

	if transitioned.Phase == Starting {
		return m.start(ctx)
	}
	return nil
}

func (m *Machine) start(ctx context.Context) error {
	if m.OnStart != nil {
		if err := m.OnStart(ctx); err != nil {
			m.transition(func(s State) State { return s.onError(err) })
			return err
		}
	}
	m.transition(State.onStarted)
	return nil
}

func (m *Machine) transition(f func(State) State) {
	m.mu.Lock()
	m.state = f(m.state)
	m.mu.Unlock()
}

// recompileAll recompiles every raw operation against the current schema,
// logging and dropping (never crashing on) any individual compile failure —
// the invariant §4.2 requires. Silent Skipped results (subscriptions,
// mutation-mode gating, unnamed operations) are logged at a lower level and
// also dropped from the published set.
func (m *Machine) recompileAll() {
	m.mu.RLock()
	schema := m.schema
	raws := make([]operations.RawOperation, 0, len(m.raws))
	for _, r := range m.raws {
		raws = append(raws, r)
	}
	m.mu.RUnlock()

	if schema == nil {
		return
	}

	compiled := make(map[string]*operations.Operation, len(raws))
	for _, raw := range raws {
		op, skipped, err := operations.CompileOperation(schema, raw, m.CompileOptions)
		if err != nil {
			m.Logger.Error(err, "dropping operation that failed to compile", "identity", raw.Identity())
			continue
		}
		if skipped != nil {
			m.Logger.V(1).Info("operation skipped", "identity", raw.Identity(), "reason", skipped.Message)
			continue
		}
		compiled[raw.Identity()] = op
	}

	m.mu.Lock()
	m.compiled = compiled
	m.mu.Unlock()

	if m.OnToolsChanged != nil {
		list := make([]*operations.Operation, 0, len(compiled))
		for _, op := range compiled {
			list = append(list, op)
		}
		m.OnToolsChanged(list)
	}
}
