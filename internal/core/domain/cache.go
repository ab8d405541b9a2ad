package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// CachedEvidence is the retrieval outcome kept alongside a synthesized
// answer so a model change can re-synthesize without re-retrieving.
type CachedEvidence struct {
	Query             string
	Evidence          string
	EvidenceHash      string
	SourceDocumentIDs []string
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Entries      int
	Hits         int64
	Misses       int64
	EvidenceHits int64
	Evictions    int64
}

// HashEvidence fingerprints concatenated evidence text. Identical
// evidence hashes to the same value regardless of which request
// produced it.
func HashEvidence(evidence string) string {
	sum := sha256.Sum256([]byte(evidence))
	return hex.EncodeToString(sum[:])
}
