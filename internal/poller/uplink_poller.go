package poller

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// FetchFailedError reports that every endpoint failed during one poll tick,
// matching the original FetchFailedSingle/FetchFailedMultiple distinction.
type FetchFailedError struct {
	URLCount int
}

func (e *FetchFailedError) Error() string {
	if e.URLCount <= 1 {
		return "uplink fetch failed: the only configured endpoint did not respond"
	}
	return fmt.Sprintf("uplink fetch failed: all %d configured endpoints did not respond", e.URLCount)
}

// UplinkEvent is one item on an Uplink poller's event stream. Err is set both
// for a recoverable Error{retry_later:true} (Fatal=false, the stream keeps
// running) and for a terminal failure (Fatal=true, the stream ends after this
// event): FetchFailedError and Error{retry_later:false} both set Fatal.
type UplinkEvent[R any] struct {
	Response *R
	Err      error
	Fatal    bool
}

// QueryFunc performs one Uplink HTTP round trip against url and decodes the
// result into an UplinkResponse[R]. Each concrete source (schema, persisted
// query manifest, ...) supplies its own QueryFunc so header sets and GraphQL
// query bodies stay source-specific; the poller itself is domain-agnostic.
type QueryFunc[Q, R any] func(ctx context.Context, httpClient *http.Client, url string, req Q, timeout time.Duration) (UplinkResponse[R], error)

// UplinkPoller drives the fetch/emit/sleep loop described in §4.1 for a pair
// of request/response types.
type UplinkPoller[Q, R any] struct {
	Endpoints    *Endpoints
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client

	// BuildRequest constructs the next request given the last-seen id (empty
	// on the first tick).
	BuildRequest func(lastID string) Q
	Query        QueryFunc[Q, R]
	// Transform, if set, runs on a New response's payload; a transform
	// failure is treated exactly like a transport failure for that URL (the
	// next URL in the cycle is tried).
	Transform func(R) (R, error)

	lastID string
}

// Run starts the poll loop in a goroutine and returns a bounded (capacity 2,
// per the spec's backpressure rule) event channel. The goroutine exits, and
// the channel is closed, when ctx is cancelled or the stream terminates.
func (p *UplinkPoller[Q, R]) Run(ctx context.Context) <-chan UplinkEvent[R] {
	out := make(chan UplinkEvent[R], 2)
	go p.run(ctx, out)
	return out
}

func (p *UplinkPoller[Q, R]) run(ctx context.Context, out chan<- UplinkEvent[R]) {
	defer close(out)

	interval := p.PollInterval
	for {
		resp, err := p.fetch(ctx)
		if err != nil {
			sendEvent(ctx, out, UplinkEvent[R]{Err: err, Fatal: true})
			return
		}

		switch resp.Tag {
		case UplinkNew:
			p.lastID = resp.ID
			if resp.DelaySecs > 0 {
				interval = time.Duration(resp.DelaySecs) * time.Second
			}
			response := resp.Response
			if !sendEvent(ctx, out, UplinkEvent[R]{Response: &response}) {
				return
			}

		case UplinkUnchanged:
			if resp.IDPresent {
				p.lastID = resp.ID
			}
			if resp.DelayPresent && resp.DelaySecs > 0 {
				interval = time.Duration(resp.DelaySecs) * time.Second
			}

		case UplinkError:
			uerr := fmt.Errorf("uplink error %s: %s", resp.Code, resp.Message)
			fatal := !resp.RetryLater
			if !sendEvent(ctx, out, UplinkEvent[R]{Err: uerr, Fatal: fatal}) {
				return
			}
			if fatal {
				return
			}
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return
		}
	}
}

// sendEvent delivers ev unless ctx is already cancelled; it reports whether
// the stream should keep running.
func sendEvent[R any](ctx context.Context, out chan<- UplinkEvent[R], ev UplinkEvent[R]) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *UplinkPoller[Q, R]) fetch(ctx context.Context) (UplinkResponse[R], error) {
	urls := p.Endpoints.Iter()

	for _, url := range urls {
		req := p.BuildRequest(p.lastID)
		resp, err := p.Query(ctx, p.HTTPClient, url, req, p.Timeout)
		if err != nil {
			continue
		}
		if resp.Tag == UplinkNew && p.Transform != nil {
			transformed, terr := p.Transform(resp.Response)
			if terr != nil {
				continue
			}
			resp.Response = transformed
		}
		return resp, nil
	}

	return UplinkResponse[R]{}, &FetchFailedError{URLCount: len(urls)}
}
