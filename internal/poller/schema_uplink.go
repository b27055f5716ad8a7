package poller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apollographql/mcp-server-go/internal/gqlschema"
)

// SchemaSourceEvent is a schema source's event union (§4.1): either a
// replacement schema, or NoMoreSchema signalling the source is exhausted.
type SchemaSourceEvent struct {
	Schema *gqlschema.Schema
	NoMore bool
}

const supergraphSDLQuery = `
query SupergraphSdl($apiKey: String!, $ref: String!, $ifAfterId: ID) {
  routerConfig(ref: $ref, apiKey: $apiKey, ifAfterId: $ifAfterId) {
    __typename
    ... on RouterConfigResult {
      id
      minDelaySeconds
      supergraphSdl
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

type supergraphSDLRequest struct {
	APIKey    string  `json:"apiKey"`
	Ref       string  `json:"ref"`
	IfAfterID *string `json:"ifAfterId"`
}

type supergraphSDLEnvelope struct {
	Data struct {
		RouterConfig struct {
			Typename        string `json:"__typename"`
			ID              string `json:"id"`
			MinDelaySeconds *int   `json:"minDelaySeconds"`
			SupergraphSDL   string `json:"supergraphSdl"`
			Code            string `json:"code"`
			Message         string `json:"message"`
		} `json:"routerConfig"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// queryUplinkSchema is the QueryFunc for the schema Uplink poller. Grounded
// on the GraphQL-over-HTTP shape described in §6 plus the RouterConfigResult/
// Unchanged/FetchError union every Apollo Uplink consumer reassembles into
// an UplinkResponse.
func queryUplinkSchema(ctx context.Context, httpClient *http.Client, url string, req supergraphSDLRequest, timeout time.Duration) (UplinkResponse[string], error) {
	headers := map[string]string{
		"x-apollo-mcp-server-version": serverVersion(),
	}

	var envelope supergraphSDLEnvelope
	if err := PostGraphQL(ctx, httpClient, url, graphQLRequestBody{Query: supergraphSDLQuery, Variables: req}, timeout, headers, &envelope); err != nil {
		return UplinkResponse[string]{}, err
	}
	if len(envelope.Errors) > 0 {
		return UplinkResponse[string]{}, fmt.Errorf("uplink responded with errors: %s", envelope.Errors[0].Message)
	}

	rc := envelope.Data.RouterConfig
	switch rc.Typename {
	case "RouterConfigResult":
		delay := uint64(0)
		if rc.MinDelaySeconds != nil {
			delay = uint64(*rc.MinDelaySeconds)
		}
		return NewUplinkResponse(rc.SupergraphSDL, rc.ID, delay), nil
	case "Unchanged":
		idPresent := rc.ID != ""
		delayPresent := rc.MinDelaySeconds != nil
		delay := uint64(0)
		if delayPresent {
			delay = uint64(*rc.MinDelaySeconds)
		}
		return UnchangedUplinkResponse[string](rc.ID, idPresent, delay, delayPresent), nil
	case "FetchError":
		return ErrorUplinkResponse[string](true, rc.Code, rc.Message), nil
	default:
		return UplinkResponse[string]{}, fmt.Errorf("unrecognised uplink response type %q", rc.Typename)
	}
}

type graphQLRequestBody struct {
	Query     string `json:"query"`
	Variables any    `json:"variables,omitempty"`
}

// UplinkSchemaSource streams SchemaSourceEvent values by polling Apollo
// Uplink for the current supergraph SDL.
func UplinkSchemaSource(ctx context.Context, apiKey, graphRef string, endpoints *Endpoints, pollInterval, timeout time.Duration) <-chan SchemaSourceEvent {
	p := &UplinkPoller[supergraphSDLRequest, string]{
		Endpoints:    endpoints,
		PollInterval: pollInterval,
		Timeout:      timeout,
		HTTPClient:   http.DefaultClient,
		BuildRequest: func(lastID string) supergraphSDLRequest {
			req := supergraphSDLRequest{APIKey: apiKey, Ref: graphRef}
			if lastID != "" {
				req.IfAfterID = &lastID
			}
			return req
		},
		Query: queryUplinkSchema,
	}

	out := make(chan SchemaSourceEvent, 2)
	go func() {
		defer close(out)
		for ev := range p.Run(ctx) {
			if ev.Response != nil {
				schema, err := gqlschema.Parse(*ev.Response, p.lastID)
				if err != nil {
					continue
				}
				select {
				case out <- SchemaSourceEvent{Schema: schema}:
				case <-ctx.Done():
					return
				}
				continue
			}
			if ev.Fatal {
				select {
				case out <- SchemaSourceEvent{NoMore: true}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return out
}

// DefaultUplinkEndpoints is the pair of Uplink URLs tried when no override is
// configured (§6).
func DefaultUplinkEndpoints() *Endpoints {
	return Fallback([]string{
		"https://uplink.api.apollographql.com",
		"https://aws.uplink.api.apollographql.com",
	})
}

var buildVersion = "dev"

func serverVersion() string {
	return buildVersion
}

// SetServerVersion overrides the version string sent as
// x-apollo-mcp-server-version; called once from main with the linked build
// version.
func SetServerVersion(v string) {
	if v != "" {
		buildVersion = v
	}
}
