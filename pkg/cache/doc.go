// Package cache holds short-lived values fetched from Tesla's servers.
//
// Remote vehicle queries are slow, rate limited, and may wake the vehicle. A [Value] remembers the
// result of a query for a fixed time-to-live so that bursts of reads from a smart-home bridge
// translate into at most one remote call per interval. Values are refreshed lazily: nothing is
// fetched until a caller finds the cached entry missing or expired.
//
// The same Value may safely be used from multiple goroutines. A Value does not coordinate the
// refresh itself; callers that want concurrent misses to share one fetch must arrange that
// separately (see the session package).
package cache
