package poller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apollographql/mcp-server-go/internal/operations"
)

// MaxCollectionSizeForPolling is the cutoff past which a collection source
// stops issuing polling queries (§3 CollectionSource invariant): the stream
// stays open for error reporting but emits no further updates.
const MaxCollectionSizeForPolling = 100

// CollectionRef selects a Platform API operation collection: either by id, or
// as a graph's default collection.
type CollectionRef struct {
	CollectionID string
	GraphRef     string // used when CollectionID == ""
}

type collectionEntry struct {
	ID            string
	LastUpdatedAt string
	SourceText    string
	Headers       map[string]string
	Variables     map[string]any
}

const collectionSnapshotQuery = `
query OperationCollection($collectionId: ID, $graphRef: String) {
  operationCollection(collectionId: $collectionId, graphRef: $graphRef) {
    __typename
    ... on OperationCollectionResult {
      operations {
        id
        lastUpdatedAt
        body
        headers
        variables
      }
    }
    ... on NotFoundError { message }
    ... on PermissionError { message }
    ... on ValidationError { message }
  }
}`

const collectionPollQuery = `
query OperationCollectionTimestamps($collectionId: ID, $graphRef: String) {
  operationCollection(collectionId: $collectionId, graphRef: $graphRef) {
    __typename
    ... on OperationCollectionResult {
      operations { id lastUpdatedAt }
    }
    ... on NotFoundError { message }
    ... on PermissionError { message }
    ... on ValidationError { message }
  }
}`

const collectionHydrateQuery = `
query OperationCollectionEntries($collectionId: ID, $graphRef: String, $ids: [ID!]!) {
  operationCollectionEntries(collectionId: $collectionId, graphRef: $graphRef, ids: $ids) {
    id
    lastUpdatedAt
    body
    headers
    variables
  }
}`

type collectionRequest struct {
	CollectionID string   `json:"collectionId,omitempty"`
	GraphRef     string   `json:"graphRef,omitempty"`
	IDs          []string `json:"ids,omitempty"`
}

type collectionEnvelope struct {
	Data struct {
		OperationCollection *struct {
			Typename   string             `json:"__typename"`
			Operations []collectionWireOp `json:"operations"`
			Message    string             `json:"message"`
		} `json:"operationCollection"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type hydrateEnvelope struct {
	Data struct {
		OperationCollectionEntries []collectionWireOp `json:"operationCollectionEntries"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type collectionWireOp struct {
	ID            string            `json:"id"`
	LastUpdatedAt string            `json:"lastUpdatedAt"`
	Body          string            `json:"body"`
	Headers       map[string]string `json:"headers"`
	Variables     map[string]any    `json:"variables"`
}

// CollectionOperationSource polls the Platform API for an operation
// collection (§4.1 Collection source): an initial full snapshot, then
// cheap (id, last_updated_at) polling with hydration queries for changed
// ids only, until the collection outgrows MaxCollectionSizeForPolling.
func CollectionOperationSource(ctx context.Context, platformAPIURL, apiKey string, ref CollectionRef, pollInterval time.Duration) <-chan OperationSourceEvent {
	out := make(chan OperationSourceEvent, 2)

	go func() {
		defer close(out)

		client := http.DefaultClient
		headers := map[string]string{"x-api-key": apiKey}

		cache := map[string]collectionEntry{}

		snapshot, collErr, err := fetchCollectionSnapshot(ctx, client, platformAPIURL, ref, headers)
		if err != nil {
			if !sendOpEvent(ctx, out, OperationSourceEvent{CollectionErrorMessage: err.Error()}) {
				return
			}
			return
		}
		if collErr != "" {
			sendOpEvent(ctx, out, OperationSourceEvent{CollectionErrorMessage: collErr})
			return
		}
		for _, e := range snapshot {
			cache[e.ID] = e
		}
		if !sendOpEvent(ctx, out, OperationSourceEvent{Operations: toRawOperations(cache)}) {
			return
		}

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if len(cache) > MaxCollectionSizeForPolling {
					continue
				}

				timestamps, collErr, err := fetchCollectionTimestamps(ctx, client, platformAPIURL, ref, headers)
				if err != nil {
					if !sendOpEvent(ctx, out, OperationSourceEvent{CollectionErrorMessage: err.Error()}) {
						return
					}
					continue
				}
				if collErr != "" {
					if !sendOpEvent(ctx, out, OperationSourceEvent{CollectionErrorMessage: collErr}) {
						return
					}
					continue
				}

				changed := diffTimestamps(cache, timestamps)
				if len(changed) == 0 {
					continue
				}

				hydrated, err := fetchCollectionHydration(ctx, client, platformAPIURL, ref, headers, changed)
				if err != nil {
					if !sendOpEvent(ctx, out, OperationSourceEvent{CollectionErrorMessage: err.Error()}) {
						return
					}
					continue
				}

				present := map[string]bool{}
				for _, ts := range timestamps {
					present[ts.ID] = true
				}
				for id := range cache {
					if !present[id] {
						delete(cache, id)
					}
				}
				for _, e := range hydrated {
					cache[e.ID] = e
				}

				if !sendOpEvent(ctx, out, OperationSourceEvent{Operations: toRawOperations(cache)}) {
					return
				}
			}
		}
	}()

	return out
}

func sendOpEvent(ctx context.Context, out chan<- OperationSourceEvent, ev OperationSourceEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func toRawOperations(cache map[string]collectionEntry) []operations.RawOperation {
	raws := make([]operations.RawOperation, 0, len(cache))
	for _, e := range cache {
		raws = append(raws, operations.RawOperation{
			SourceText:       e.SourceText,
			PersistedQueryID: e.ID,
			DefaultHeaders:   e.Headers,
			DefaultVariables: e.Variables,
		})
	}
	return raws
}

func diffTimestamps(cache map[string]collectionEntry, timestamps []collectionWireOp) []string {
	var changed []string
	seen := map[string]bool{}
	for _, ts := range timestamps {
		seen[ts.ID] = true
		cached, ok := cache[ts.ID]
		if !ok || cached.LastUpdatedAt != ts.LastUpdatedAt {
			changed = append(changed, ts.ID)
		}
	}
	for id := range cache {
		if !seen[id] {
			changed = append(changed, id)
		}
	}
	return changed
}

func fetchCollectionSnapshot(ctx context.Context, client *http.Client, url string, ref CollectionRef, headers map[string]string) ([]collectionEntry, string, error) {
	var envelope collectionEnvelope
	req := collectionRequest{CollectionID: ref.CollectionID, GraphRef: ref.GraphRef}
	if err := PostGraphQL(ctx, client, url, graphQLRequestBody{Query: collectionSnapshotQuery, Variables: req}, 30*time.Second, headers, &envelope); err != nil {
		return nil, "", err
	}
	if len(envelope.Errors) > 0 {
		return nil, "", fmt.Errorf("platform api responded with errors: %s", envelope.Errors[0].Message)
	}
	oc := envelope.Data.OperationCollection
	if oc == nil {
		return nil, "", fmt.Errorf("platform api returned no operationCollection")
	}
	switch oc.Typename {
	case "OperationCollectionResult":
		entries := make([]collectionEntry, 0, len(oc.Operations))
		for _, op := range oc.Operations {
			entries = append(entries, collectionEntry{ID: op.ID, LastUpdatedAt: op.LastUpdatedAt, SourceText: op.Body, Headers: op.Headers, Variables: op.Variables})
		}
		return entries, "", nil
	case "NotFoundError", "PermissionError", "ValidationError":
		return nil, fmt.Sprintf("%s: %s", oc.Typename, oc.Message), nil
	default:
		return nil, fmt.Sprintf("invalid collection reference: unrecognised result %q", oc.Typename), nil
	}
}

func fetchCollectionTimestamps(ctx context.Context, client *http.Client, url string, ref CollectionRef, headers map[string]string) ([]collectionWireOp, string, error) {
	var envelope collectionEnvelope
	req := collectionRequest{CollectionID: ref.CollectionID, GraphRef: ref.GraphRef}
	if err := PostGraphQL(ctx, client, url, graphQLRequestBody{Query: collectionPollQuery, Variables: req}, 30*time.Second, headers, &envelope); err != nil {
		return nil, "", err
	}
	if len(envelope.Errors) > 0 {
		return nil, "", fmt.Errorf("platform api responded with errors: %s", envelope.Errors[0].Message)
	}
	oc := envelope.Data.OperationCollection
	if oc == nil {
		return nil, "", fmt.Errorf("platform api returned no operationCollection")
	}
	switch oc.Typename {
	case "OperationCollectionResult":
		return oc.Operations, "", nil
	case "NotFoundError", "PermissionError", "ValidationError":
		return nil, fmt.Sprintf("%s: %s", oc.Typename, oc.Message), nil
	default:
		return nil, fmt.Sprintf("invalid collection reference: unrecognised result %q", oc.Typename), nil
	}
}

func fetchCollectionHydration(ctx context.Context, client *http.Client, url string, ref CollectionRef, headers map[string]string, ids []string) ([]collectionEntry, error) {
	var envelope hydrateEnvelope
	req := collectionRequest{CollectionID: ref.CollectionID, GraphRef: ref.GraphRef, IDs: ids}
	if err := PostGraphQL(ctx, client, url, graphQLRequestBody{Query: collectionHydrateQuery, Variables: req}, 30*time.Second, headers, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("platform api responded with errors: %s", envelope.Errors[0].Message)
	}
	entries := make([]collectionEntry, 0, len(envelope.Data.OperationCollectionEntries))
	for _, op := range envelope.Data.OperationCollectionEntries {
		entries = append(entries, collectionEntry{ID: op.ID, LastUpdatedAt: op.LastUpdatedAt, SourceText: op.Body, Headers: op.Headers, Variables: op.Variables})
	}
	return entries, nil
}
