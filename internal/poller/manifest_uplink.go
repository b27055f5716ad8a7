package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apollographql/mcp-server-go/internal/manifest"
	"github.com/apollographql/mcp-server-go/internal/operations"
)

const persistedQueryManifestQuery = `
query PersistedQueryManifest($apiKey: String!, $ref: String!, $ifAfterId: ID) {
  persistedQueries(ref: $ref, apiKey: $apiKey, ifAfterId: $ifAfterId) {
    __typename
    ... on PersistedQueriesResult {
      id
      minDelaySeconds
      chunks {
        id
        url
      }
    }
    ... on Unchanged {
      id
      minDelaySeconds
    }
    ... on FetchError {
      code
      message
    }
  }
}`

type persistedQueryManifestRequest struct {
	APIKey    string  `json:"apiKey"`
	Ref       string  `json:"ref"`
	IfAfterID *string `json:"ifAfterId"`
}

type manifestChunkRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type persistedQueryManifestEnvelope struct {
	Data struct {
		PersistedQueries struct {
			Typename        string             `json:"__typename"`
			ID              string             `json:"id"`
			MinDelaySeconds *int                `json:"minDelaySeconds"`
			Chunks          []manifestChunkRef `json:"chunks"`
			Code            string             `json:"code"`
			Message         string             `json:"message"`
		} `json:"persistedQueries"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func queryUplinkManifestChunks(ctx context.Context, httpClient *http.Client, url string, req persistedQueryManifestRequest, timeout time.Duration) (UplinkResponse[[]manifestChunkRef], error) {
	headers := map[string]string{"x-apollo-mcp-server-version": serverVersion()}

	var envelope persistedQueryManifestEnvelope
	if err := PostGraphQL(ctx, httpClient, url, graphQLRequestBody{Query: persistedQueryManifestQuery, Variables: req}, timeout, headers, &envelope); err != nil {
		return UplinkResponse[[]manifestChunkRef]{}, err
	}
	if len(envelope.Errors) > 0 {
		return UplinkResponse[[]manifestChunkRef]{}, fmt.Errorf("uplink responded with errors: %s", envelope.Errors[0].Message)
	}

	pq := envelope.Data.PersistedQueries
	switch pq.Typename {
	case "PersistedQueriesResult":
		delay := uint64(0)
		if pq.MinDelaySeconds != nil {
			delay = uint64(*pq.MinDelaySeconds)
		}
		return NewUplinkResponse(pq.Chunks, pq.ID, delay), nil
	case "Unchanged":
		idPresent := pq.ID != ""
		delayPresent := pq.MinDelaySeconds != nil
		delay := uint64(0)
		if delayPresent {
			delay = uint64(*pq.MinDelaySeconds)
		}
		return UnchangedUplinkResponse[[]manifestChunkRef](pq.ID, idPresent, delay, delayPresent), nil
	case "FetchError":
		return ErrorUplinkResponse[[]manifestChunkRef](true, pq.Code, pq.Message), nil
	default:
		return UplinkResponse[[]manifestChunkRef]{}, fmt.Errorf("unrecognised uplink response type %q", pq.Typename)
	}
}

func fetchManifestChunks(ctx context.Context, httpClient *http.Client, chunks []manifestChunkRef, validate manifest.SignatureValidator) (*manifest.Document, error) {
	merged := &manifest.Manifest{}
	for _, chunk := range chunks {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, chunk.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("build chunk request: %w", err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch chunk %s: %w", chunk.ID, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read chunk %s: %w", chunk.ID, err)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("chunk %s responded %d", chunk.ID, resp.StatusCode)
		}
		m, err := manifest.Decode(body, validate)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		merged.Operations = append(merged.Operations, m.Operations...)
	}
	return manifest.Build(merged), nil
}

// UplinkManifestSource streams OperationSourceEvent values by polling Apollo
// Uplink for persisted-query manifest chunks and converting every resolved
// operation into a RawOperation keyed by persisted-query id.
func UplinkManifestSource(ctx context.Context, apiKey, graphRef string, endpoints *Endpoints, pollInterval, timeout time.Duration, validate manifest.SignatureValidator) <-chan OperationSourceEvent {
	p := &UplinkPoller[persistedQueryManifestRequest, []manifestChunkRef]{
		Endpoints:    endpoints,
		PollInterval: pollInterval,
		Timeout:      timeout,
		HTTPClient:   http.DefaultClient,
		BuildRequest: func(lastID string) persistedQueryManifestRequest {
			req := persistedQueryManifestRequest{APIKey: apiKey, Ref: graphRef}
			if lastID != "" {
				req.IfAfterID = &lastID
			}
			return req
		},
		Query: queryUplinkManifestChunks,
	}

	out := make(chan OperationSourceEvent, 2)
	go func() {
		defer close(out)
		for ev := range p.Run(ctx) {
			if ev.Response != nil {
				doc, err := fetchManifestChunks(ctx, http.DefaultClient, *ev.Response, validate)
				if err != nil {
					select {
					case out <- OperationSourceEvent{CollectionErrorMessage: err.Error()}:
					case <-ctx.Done():
						return
					}
					continue
				}
				raws := make([]operations.RawOperation, 0, len(doc.Operations()))
				for _, op := range doc.Operations() {
					raws = append(raws, operations.RawOperation{
						SourceText:       op.Body,
						PersistedQueryID: op.ID,
					})
				}
				select {
				case out <- OperationSourceEvent{Operations: raws}:
				case <-ctx.Done():
					return
				}
				continue
			}
			if ev.Err != nil {
				select {
				case out <- OperationSourceEvent{CollectionErrorMessage: ev.Err.Error()}:
				case <-ctx.Done():
				}
				if ev.Fatal {
					return
				}
			}
		}
	}()
	return out
}
