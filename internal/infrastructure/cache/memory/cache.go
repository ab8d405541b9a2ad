package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

// Config bounds one in-process synthesis cache. Zero values fall back
// to the defaults below.
type Config struct {
	MaxEntries              int
	MaxAge                  time.Duration
	SlidingExpiration       time.Duration
	InvalidateOnModelChange bool
	Model                   string
}

func (c Config) normalized() Config {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
	if c.SlidingExpiration <= 0 {
		c.SlidingExpiration = 2 * time.Hour
	}
	return c
}

type synthesisEntry struct {
	response          string
	evidenceHash      string
	sourceDocumentIDs []string
	model             string
	createdAt         time.Time
	lastAccessedAt    time.Time
	accessCount       int
}

type evidenceEntry struct {
	evidence  domain.CachedEvidence
	createdAt time.Time
}

// SynthesisCache memoizes synthesized answers per (query, evidence)
// pair and keeps the retrieval evidence per query so a model change can
// re-synthesize without re-retrieving. Lookup and write never fail;
// every internal degradation is a miss.
type SynthesisCache struct {
	cfg Config

	mu       sync.RWMutex
	model    string
	entries  map[string]*synthesisEntry
	evidence map[string]*evidenceEntry

	// evictMu serializes eviction scans so concurrent writers cannot
	// double-evict. Normal gets and sets never take it.
	evictMu sync.Mutex

	hits         atomic.Int64
	misses       atomic.Int64
	evidenceHits atomic.Int64
	evictions    atomic.Int64

	now func() time.Time
}

func New(cfg Config) *SynthesisCache {
	cfg = cfg.normalized()
	return &SynthesisCache{
		cfg:      cfg,
		model:    cfg.Model,
		entries:  make(map[string]*synthesisEntry),
		evidence: make(map[string]*evidenceEntry),
		now:      time.Now,
	}
}

// SetModel switches the model identity used for staleness checks.
func (c *SynthesisCache) SetModel(model string) {
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
}

// TryGet returns the cached answer for one question and evidence
// fingerprint. Expired entries are removed on lookup; a model mismatch
// is a miss that keeps the entry, so restoring the model restores the
// hit.
func (c *SynthesisCache) TryGet(query, evidenceHash string) (string, bool) {
	key := synthesisKey(query, evidenceHash)
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return "", false
	}
	if now.Sub(entry.createdAt) > c.cfg.MaxAge {
		delete(c.entries, key)
		c.mu.Unlock()
		c.misses.Add(1)
		return "", false
	}
	if now.Sub(entry.lastAccessedAt) > c.cfg.SlidingExpiration {
		delete(c.entries, key)
		c.mu.Unlock()
		c.misses.Add(1)
		return "", false
	}
	if c.cfg.InvalidateOnModelChange && entry.model != c.model {
		c.mu.Unlock()
		c.misses.Add(1)
		return "", false
	}

	entry.accessCount++
	entry.lastAccessedAt = now
	response := entry.response
	c.mu.Unlock()

	c.hits.Add(1)
	return response, true
}

// TryGetEvidence returns the stored retrieval outcome for a question.
// Evidence follows the absolute age bound only; it has no access
// clock.
func (c *SynthesisCache) TryGetEvidence(query string) (*domain.CachedEvidence, bool) {
	key := evidenceKey(query)
	now := c.now()

	c.mu.Lock()
	entry, ok := c.evidence[key]
	if !ok {
		c.mu.Unlock()
		return nil, false
	}
	if now.Sub(entry.createdAt) > c.cfg.MaxAge {
		delete(c.evidence, key)
		c.mu.Unlock()
		return nil, false
	}
	ev := entry.evidence
	ev.SourceDocumentIDs = append([]string(nil), entry.evidence.SourceDocumentIDs...)
	c.mu.Unlock()

	c.evidenceHits.Add(1)
	return &ev, true
}

// Set stores the synthesized answer and, independently, the evidence
// it was built from. Existing entries are overwritten with fresh
// timestamps and the current model.
func (c *SynthesisCache) Set(query, evidence, response string, sourceDocumentIDs []string) {
	evidenceHash := domain.HashEvidence(evidence)
	ids := append([]string(nil), sourceDocumentIDs...)
	now := c.now()

	c.mu.Lock()
	c.entries[synthesisKey(query, evidenceHash)] = &synthesisEntry{
		response:          response,
		evidenceHash:      evidenceHash,
		sourceDocumentIDs: ids,
		model:             c.model,
		createdAt:         now,
		lastAccessedAt:    now,
		accessCount:       1,
	}
	c.evidence[evidenceKey(query)] = &evidenceEntry{
		evidence: domain.CachedEvidence{
			Query:             query,
			Evidence:          evidence,
			EvidenceHash:      evidenceHash,
			SourceDocumentIDs: ids,
		},
		createdAt: now,
	}
	overEntries := len(c.entries) > c.cfg.MaxEntries
	overEvidence := len(c.evidence) > c.cfg.MaxEntries
	c.mu.Unlock()

	if overEntries {
		c.evictEntries()
	}
	if overEvidence {
		c.evictEvidence()
	}
}

// InvalidateForDocument drops every synthesis and evidence entry whose
// sources include the document. Returns the number removed.
func (c *SynthesisCache) InvalidateForDocument(documentID string) int {
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if containsID(entry.sourceDocumentIDs, documentID) {
			delete(c.entries, key)
			removed++
		}
	}
	for key, entry := range c.evidence {
		if containsID(entry.evidence.SourceDocumentIDs, documentID) {
			delete(c.evidence, key)
			removed++
		}
	}
	c.mu.Unlock()

	return removed
}

// Stats snapshots the cache counters.
func (c *SynthesisCache) Stats() domain.CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return domain.CacheStats{
		Entries:      entries,
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		EvidenceHits: c.evidenceHits.Load(),
		Evictions:    c.evictions.Load(),
	}
}

// evictEntries removes the least-used tenth of the synthesis entries,
// at least one, ranked by access count and then by idle time.
func (c *SynthesisCache) evictEntries() {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	type victim struct {
		key            string
		accessCount    int
		lastAccessedAt time.Time
	}

	c.mu.RLock()
	size := len(c.entries)
	if size <= c.cfg.MaxEntries {
		c.mu.RUnlock()
		return
	}
	victims := make([]victim, 0, size)
	for key, entry := range c.entries {
		victims = append(victims, victim{key: key, accessCount: entry.accessCount, lastAccessedAt: entry.lastAccessedAt})
	}
	c.mu.RUnlock()

	sort.Slice(victims, func(i, j int) bool {
		if victims[i].accessCount != victims[j].accessCount {
			return victims[i].accessCount < victims[j].accessCount
		}
		if !victims[i].lastAccessedAt.Equal(victims[j].lastAccessedAt) {
			return victims[i].lastAccessedAt.Before(victims[j].lastAccessedAt)
		}
		return victims[i].key < victims[j].key
	})

	count := size / 10
	if count < 1 {
		count = 1
	}

	removed := 0
	c.mu.Lock()
	for _, v := range victims {
		if removed == count {
			break
		}
		if _, ok := c.entries[v.key]; ok {
			delete(c.entries, v.key)
			removed++
		}
	}
	c.mu.Unlock()

	c.evictions.Add(int64(removed))
}

// evictEvidence bounds the evidence map the same way, ranked by age
// alone.
func (c *SynthesisCache) evictEvidence() {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	type victim struct {
		key       string
		createdAt time.Time
	}

	c.mu.RLock()
	size := len(c.evidence)
	if size <= c.cfg.MaxEntries {
		c.mu.RUnlock()
		return
	}
	victims := make([]victim, 0, size)
	for key, entry := range c.evidence {
		victims = append(victims, victim{key: key, createdAt: entry.createdAt})
	}
	c.mu.RUnlock()

	sort.Slice(victims, func(i, j int) bool {
		if !victims[i].createdAt.Equal(victims[j].createdAt) {
			return victims[i].createdAt.Before(victims[j].createdAt)
		}
		return victims[i].key < victims[j].key
	})

	count := size / 10
	if count < 1 {
		count = 1
	}

	c.mu.Lock()
	for i := 0; i < len(victims) && i < count; i++ {
		delete(c.evidence, victims[i].key)
	}
	c.mu.Unlock()
}

func synthesisKey(query, evidenceHash string) string {
	return hashKey("synthesis:" + query + ":" + evidenceHash)
}

func evidenceKey(query string) string {
	return hashKey("evidence:" + query)
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
