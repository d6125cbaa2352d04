package chain

import (
	"strings"
)

// eventFilterPrefixes lists the case-insensitive type prefixes persisted for
// each layer. RC is intentionally conservative; broadening it does
// not change any invariant.
var eventFilterPrefixes = map[string][]string{
	"rc": {
		"staking.",
		"session.",
	},
	"ah": {
		"staking.",
		"stakingrcclient.",
		"multiblockelection.",
		"multiblockelectionsigned.",
		"multiblockelectionverifier.",
	},
}

// exactFilterMatches covers prefixes that are really full method names
// rather than a pallet-wide family, e.g. session.NewQueued.
var exactFilterMatches = map[string][]string{
	"ah": {
		"session.newqueued",
		"session.newsession",
	},
}

// PassesFilter reports whether a raw event type string should be persisted
// for the given layer ("rc" or "ah").
func PassesFilter(layer string, eventType string) bool {
	lower := strings.ToLower(eventType)
	for _, exact := range exactFilterMatches[layer] {
		if lower == exact {
			return true
		}
	}
	for _, prefix := range eventFilterPrefixes[layer] {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Pallet/method split helpers used by the interpreter to dispatch on the
// "{pallet}.{Method}" convention without re-parsing strings everywhere.

// Pallet returns the portion of a "pallet.Method" event type before the dot,
// lower-cased.
func Pallet(eventType string) string {
	idx := strings.IndexByte(eventType, '.')
	if idx < 0 {
		return strings.ToLower(eventType)
	}
	return strings.ToLower(eventType[:idx])
}

// Method returns the portion of a "pallet.Method" event type after the dot,
// preserving case (sub-event names like "Registered" are matched verbatim).
func Method(eventType string) string {
	idx := strings.IndexByte(eventType, '.')
	if idx < 0 {
		return ""
	}
	return eventType[idx+1:]
}
