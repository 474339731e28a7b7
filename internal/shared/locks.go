package shared

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// DocumentLockKey derives the advisory lock key for a document. Commands
// that read-modify-write the same document serialize on this key; commands
// against different documents proceed in parallel.
func DocumentLockKey(id uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write(id[:])
	return int64(h.Sum64())
}
