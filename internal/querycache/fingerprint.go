package querycache

import (
	"encoding/json"
	"fmt"
)

// Fingerprint derives the cache key for an operation and its parameters.
// encoding/json writes map keys in sorted order, so the same logical
// parameters always produce the same fingerprint.
func Fingerprint(op string, params any) string {
	if params == nil {
		return op
	}
	b, err := json.Marshal(params)
	if err != nil {
		// Unmarshalable params cannot be cached meaningfully; fall back to
		// a representation that at least stays stable for identical values.
		return fmt.Sprintf("%s:%+v", op, params)
	}
	return op + ":" + string(b)
}

// matchesOp reports whether a fingerprint belongs to an operation, for
// prefix invalidation.
func matchesOp(fingerprint, op string) bool {
	if fingerprint == op {
		return true
	}
	return len(fingerprint) > len(op) && fingerprint[:len(op)] == op && fingerprint[len(op)] == ':'
}
