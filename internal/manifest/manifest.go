// Package manifest decodes persisted-query manifests (§3 PersistedQueryManifest,
// §6 manifest format) and resolves (operation_id, client_name) lookups with
// the client_name=None fallback the spec requires.
package manifest

import (
	"encoding/json"
	"fmt"
)

// Operation is one entry of a decoded manifest.
type Operation struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Body       string `json:"body"`
	ClientName string `json:"clientName,omitempty"`
}

// Manifest is the raw JSON shape described in §6.
type Manifest struct {
	Operations []Operation `json:"operations"`
}

// SignatureValidator validates a raw manifest chunk before it is parsed as
// JSON. Signature verification itself is delegated to the caller (the spec
// treats it as an injected collaborator); any failure rejects the chunk.
type SignatureValidator func(raw []byte) error

// Decode parses raw as a persisted-query manifest, running validate first
// when non-nil.
func Decode(raw []byte, validate SignatureValidator) (*Manifest, error) {
	if validate != nil {
		if err := validate(raw); err != nil {
			return nil, fmt.Errorf("signature validation failed: %w", err)
		}
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode persisted query manifest: %w", err)
	}
	return &m, nil
}

type key struct {
	id         string
	clientName string
}

// Document is the ordered (operation_id, optional client_name) -> body
// mapping built from a decoded Manifest.
type Document struct {
	byKey map[key]Operation
	order []key
}

// Build indexes m for lookup, preserving declaration order.
func Build(m *Manifest) *Document {
	d := &Document{byKey: map[key]Operation{}}
	for _, op := range m.Operations {
		k := key{id: op.ID, clientName: op.ClientName}
		if _, exists := d.byKey[k]; !exists {
			d.order = append(d.order, k)
		}
		d.byKey[k] = op
	}
	return d
}

// Lookup finds the operation for id, preferring a clientName-scoped entry
// and falling back to the client_name-absent entry.
func (d *Document) Lookup(id, clientName string) (Operation, bool) {
	if clientName != "" {
		if op, ok := d.byKey[key{id: id, clientName: clientName}]; ok {
			return op, true
		}
	}
	op, ok := d.byKey[key{id: id}]
	return op, ok
}

// Operations returns every entry in manifest declaration order.
func (d *Document) Operations() []Operation {
	out := make([]Operation, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.byKey[k])
	}
	return out
}
