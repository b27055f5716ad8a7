// Package poller implements the source-side event streams: Uplink polling
// (schema and persisted-query manifest config distribution) and Platform-API
// collection polling. Grounded primarily on
// _examples/original_source/crates/apollo-mcp-registry/src/uplink.rs, since
// the teacher repo never polls a remote config source.
package poller

// Endpoints is the round-robin/fallback URL iterator described by the
// original Rust uplink client's `Endpoints` enum. Fallback always tries URLs
// in declared order; RoundRobin rotates a cursor.
type Endpoints struct {
	urls       []string
	roundRobin bool
	cursor     int
}

// Fallback constructs an Endpoints that always iterates urls in order.
func Fallback(urls []string) *Endpoints {
	return &Endpoints{urls: append([]string(nil), urls...)}
}

// RoundRobin constructs an Endpoints that rotates its internal cursor.
func RoundRobin(urls []string) *Endpoints {
	return &Endpoints{urls: append([]string(nil), urls...), roundRobin: true}
}

// Iter materializes the URLs to try for one poll, in the order to try them.
//
// This is the sole place the round-robin cursor advances, and it advances
// len(urls) times per call: cursor is reduced mod n once at the start of the
// call, then incremented once per yielded URL. Because a full call always
// yields exactly n URLs, the cursor returns to the same residue (mod n) by
// the time the next call begins — so in steady state the first URL tried on
// every poll is always urls[0]. This mirrors the original uplink.rs
// `Endpoints::iter` precisely (cursor advances once per item the lazy
// iterator actually produces, and the caller there always drains the full
// cycle via `.take(urls.len())`) and is preserved bit-for-bit rather than
// "fixed" into a more intuitive rotation.
func (e *Endpoints) Iter() []string {
	n := len(e.urls)
	if n == 0 {
		return nil
	}
	if !e.roundRobin {
		return append([]string(nil), e.urls...)
	}

	e.cursor %= n
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, e.urls[e.cursor])
		e.cursor = (e.cursor + 1) % n
	}
	return out
}

// Len reports the number of configured URLs.
func (e *Endpoints) Len() int {
	return len(e.urls)
}
