package operations

import (
	"testing"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
	"github.com/apollographql/mcp-server-go/internal/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, sdl string) *gqlschema.Schema {
	t.Helper()
	s, err := gqlschema.Parse(sdl, "test")
	require.NoError(t, err)
	return s
}

func TestCompileOperation_ScalarVariable(t *testing.T) {
	schema := mustParse(t, `
		type Query {
			id(input: ID): String
		}
	`)

	op, skipped, err := CompileOperation(schema, RawOperation{
		SourceText: `query Q($id: ID!){ id(input: $id) }`,
	}, CompileOptions{})

	require.NoError(t, err)
	require.Nil(t, skipped)
	assert.Equal(t, "Q", op.ToolDescriptor.Name)
	assert.True(t, op.ToolDescriptor.ReadOnlyHint)

	props, ok := op.ToolDescriptor.InputSchema["properties"].(jsonschema.Schema)
	require.True(t, ok)
	require.Contains(t, props, "id")
	required := op.ToolDescriptor.InputSchema["required"]
	assert.Equal(t, []string{"id"}, required)
}

func TestCompileOperation_RecursiveInput(t *testing.T) {
	schema := mustParse(t, `
		input Filter {
			field: String
			filter: Filter
		}
		type Query {
			field(filter: Filter): String
		}
	`)

	op, skipped, err := CompileOperation(schema, RawOperation{
		SourceText: `query Test($filter: Filter){ field(filter:$filter) }`,
	}, CompileOptions{})

	require.NoError(t, err)
	require.Nil(t, skipped)

	defs, ok := op.ToolDescriptor.InputSchema["definitions"].(map[string]jsonschema.Schema)
	require.True(t, ok)
	_, ok = defs["Filter"]
	require.True(t, ok)
}

func TestCompileOperation_MutationModeNoneSkips(t *testing.T) {
	schema := mustParse(t, `
		type Mutation {
			id: String
		}
		type Query {
			noop: String
		}
	`)

	op, skipped, err := CompileOperation(schema, RawOperation{
		SourceText: `mutation M { id }`,
	}, CompileOptions{MutationMode: MutationModeNone})

	require.NoError(t, err)
	require.Nil(t, op)
	require.NotNil(t, skipped)
	assert.Equal(t, SkipMutationMode, skipped.Reason)
}

func TestCompileOperation_MutationModeExplicitAllows(t *testing.T) {
	schema := mustParse(t, `
		type Mutation {
			id: String
		}
		type Query {
			noop: String
		}
	`)

	op, skipped, err := CompileOperation(schema, RawOperation{
		SourceText: `mutation M { id }`,
	}, CompileOptions{MutationMode: MutationModeExplicit})

	require.NoError(t, err)
	require.Nil(t, skipped)
	require.NotNil(t, op)
	assert.False(t, op.ToolDescriptor.ReadOnlyHint)
}

func TestCompileOperation_VariableCommentOverride(t *testing.T) {
	schema := mustParse(t, `
		type Query {
			customQuery(id: ID): CustomResult
		}
		type CustomResult {
			id: String
		}
	`)

	src := "query Q(\n  # override\n  $idArg: ID){ customQuery(id:$idArg){ id } }"
	op, skipped, err := CompileOperation(schema, RawOperation{SourceText: src}, CompileOptions{})

	require.NoError(t, err)
	require.Nil(t, skipped)

	props := op.ToolDescriptor.InputSchema["properties"].(jsonschema.Schema)
	idArg, ok := props["idArg"].(jsonschema.Schema)
	require.True(t, ok)
	assert.Equal(t, "override", idArg["description"])
}

func TestCompileOperation_VariableCommentOverride_SameLineAsParen(t *testing.T) {
	schema := mustParse(t, `
		type Query {
			customQuery(id: ID): CustomResult
		}
		type CustomResult {
			id: String
		}
	`)

	src := "query Q(# override\n$idArg: ID){ customQuery(id:$idArg){ id } }"
	op, skipped, err := CompileOperation(schema, RawOperation{SourceText: src}, CompileOptions{})

	require.NoError(t, err)
	require.Nil(t, skipped)

	props := op.ToolDescriptor.InputSchema["properties"].(jsonschema.Schema)
	idArg, ok := props["idArg"].(jsonschema.Schema)
	require.True(t, ok)
	assert.Equal(t, "override", idArg["description"])
}

func TestCompileOperation_TooManyOperations(t *testing.T) {
	schema := mustParse(t, `type Query { id: String }`)

	_, _, err := CompileOperation(schema, RawOperation{
		SourceText: `query A { id } query B { id }`,
	}, CompileOptions{})

	assert.ErrorIs(t, err, ErrTooManyOperations)
}

func TestCompileOperation_SubscriptionSkippedSilently(t *testing.T) {
	schema := mustParse(t, `
		type Query { id: String }
		type Subscription { id: String }
	`)

	op, skipped, err := CompileOperation(schema, RawOperation{
		SourceText: `subscription S { id }`,
	}, CompileOptions{})

	require.NoError(t, err)
	require.Nil(t, op)
	require.NotNil(t, skipped)
	assert.Equal(t, SkipSubscription, skipped.Reason)
}

func TestCompileOperation_UnnamedOperationSkipped(t *testing.T) {
	schema := mustParse(t, `type Query { id: String }`)

	op, skipped, err := CompileOperation(schema, RawOperation{
		SourceText: `query { id }`,
	}, CompileOptions{})

	require.NoError(t, err)
	require.Nil(t, op)
	require.NotNil(t, skipped)
	assert.Equal(t, SkipUnnamed, skipped.Reason)
}
