package searchindex

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
)

// Cache memoizes a schema's built Index by launch id, so a re-search after a
// tools-changed notification with no schema delta doesn't rebuild the index.
type Cache struct {
	inner *lru.Cache[string, *Index]
}

// NewCache constructs a Cache holding up to size built indexes.
func NewCache(size int) (*Cache, error) {
	inner, err := lru.New[string, *Index](size)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get returns the cached Index for schema's launch id, building and caching
// one if absent.
func (c *Cache) Get(schema *gqlschema.Schema) *Index {
	if idx, ok := c.inner.Get(schema.LaunchID); ok {
		return idx
	}
	idx := Build(schema.AST)
	c.inner.Add(schema.LaunchID, idx)
	return idx
}
