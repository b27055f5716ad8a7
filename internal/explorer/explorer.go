// Package explorer builds Apollo Studio Explorer deep-links for the
// explorer meta-tool (§4.6): a GraphQL document, variables, and headers
// are JSON-encoded, lz-string compressed, and embedded in a
// studio.apollographql.com URL that opens pre-populated in the browser.
package explorer

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const studioExplorerURL = "https://studio.apollographql.com/graph/%s/variant/%s/explorer?explorerURLState=%s"

// Input is the payload embedded in the explorer URL. Each field defaults
// to the literal string "{}" when the caller omits it, matching what the
// Explorer page itself expects to find pre-filled.
type Input struct {
	Document  string `json:"document"`
	Variables string `json:"variables"`
	Headers   string `json:"headers"`
}

func (in Input) withDefaults() Input {
	if in.Document == "" {
		in.Document = "{}"
	}
	if in.Variables == "" {
		in.Variables = "{}"
	}
	if in.Headers == "" {
		in.Headers = "{}"
	}
	return in
}

// Explorer builds deep-links scoped to one graph ref (graph id and variant).
type Explorer struct {
	graphID string
	variant string
}

// New parses a graph ref of the form "graph-id@variant" into an Explorer.
// A ref with no "@" addresses the "current" variant, matching the graph
// ref convention used everywhere else in this server.
func New(graphRef string) *Explorer {
	id, variant, found := strings.Cut(graphRef, "@")
	if !found {
		variant = "current"
	}
	return &Explorer{graphID: id, variant: variant}
}

// BuildURL renders the Explorer deep-link for the given document,
// variables and headers.
func (e *Explorer) BuildURL(in Input) (string, error) {
	in = in.withDefaults()

	encoded, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode explorer input: %w", err)
	}

	compressed := compressToEncodedURIComponent(string(encoded))

	return fmt.Sprintf(studioExplorerURL, url.PathEscape(e.graphID), url.PathEscape(e.variant), compressed), nil
}
