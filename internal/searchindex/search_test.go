package searchindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

const testSDL = `
type Query {
  "Find a widget by id."
  widget(id: ID!): Widget
  widgets: [Widget!]!
}

"A small mechanical part."
type Widget {
  id: ID!
  name: String
  gadget: Gadget
}

"A gadget assembled from widgets."
type Gadget {
  id: ID!
  widgets: [Widget!]!
}
`

func mustBuild(t *testing.T) *Index {
	t.Helper()
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "test", Input: testSDL})
	require.NoError(t, err)
	return Build(schema)
}

func TestSearch_FindsTypeByName(t *testing.T) {
	idx := mustBuild(t)
	paths := idx.Search([]string{"widget"}, DefaultOptions())
	require.NotEmpty(t, paths)
	assert.Equal(t, "Widget", paths[0].Types[0])
}

func TestSearch_PathReachesRoot(t *testing.T) {
	idx := mustBuild(t)
	paths := idx.Search([]string{"gadget"}, DefaultOptions())
	require.NotEmpty(t, paths)
	last := paths[0].Types[len(paths[0].Types)-1]
	assert.Equal(t, "Query", last)
}

func TestSearch_NoBoostWhenAllPathLengthsEqual(t *testing.T) {
	paths := []Path{
		{Types: []string{"A", "Query"}, Score: 1},
		{Types: []string{"B", "Query"}, Score: 2},
	}
	applyShortPathBoost(paths, 0.5)
	assert.Equal(t, 1.0, paths[0].Score)
	assert.Equal(t, 2.0, paths[1].Score)
}

func TestSearch_ShortPathBoostFavorsShorterPaths(t *testing.T) {
	paths := []Path{
		{Types: []string{"A", "Mid", "Query"}, Score: 1},
		{Types: []string{"B", "Query"}, Score: 1},
	}
	applyShortPathBoost(paths, 0.5)
	assert.Greater(t, paths[1].Score, paths[0].Score)
}

func TestSearch_NoMatchesReturnsNil(t *testing.T) {
	idx := mustBuild(t)
	assert.Nil(t, idx.Search([]string{"zzzznomatch"}, DefaultOptions()))
}
