package derive

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// memo caches one resolver result keyed by a fingerprint of the resolver's
// dependency slice. Correctness never depends on it: a miss recomputes.
type memo[T any] struct {
	key   uint64
	value T
	valid bool
}

// resolve returns the cached value when key matches, otherwise recomputes
// and caches.
func (m *memo[T]) resolve(key uint64, compute func() T) T {
	if m.valid && m.key == key {
		return m.value
	}
	m.value = compute()
	m.key = key
	m.valid = true
	return m.value
}

// fingerprint hashes the JSON encoding of each part into one 64-bit key.
// Parts are the exact record fields a resolver reads, so any change in a
// dependency slice changes the key and invalidates the memo.
func fingerprint(parts ...any) uint64 {
	h := fnv.New64a()
	enc := json.NewEncoder(h)
	for _, part := range parts {
		// Encoding in-memory values of known types cannot fail.
		if err := enc.Encode(part); err != nil {
			panic(fmt.Sprintf("derive: fingerprint encoding: %v", err))
		}
	}
	return h.Sum64()
}
