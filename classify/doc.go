// Package classify separates human correspondence from automated mail with
// deterministic, versioned heuristics. No network, no model calls.
package classify
