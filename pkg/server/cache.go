package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/Sumatoshi-tech/gridscreen/pkg/alg/lru"
	"github.com/Sumatoshi-tech/gridscreen/pkg/screening"
)

// HeaderCache reports whether a screen response was served from the result cache.
const HeaderCache = "X-Cache"

const (
	cacheHit  = "hit"
	cacheMiss = "miss"
)

// Rough in-memory footprint of one response sample and one derived value.
const (
	sampleFootprint  = 64
	derivedFootprint = 8
	summaryFootprint = 1024
)

// cacheKey identifies a screening request by the hash of its canonical
// encoding and that encoding's length.
type cacheKey struct {
	sum uint64
	n   int
}

// cacheLookup is a request's cache key together with the canonical encoding
// it was derived from.
type cacheLookup struct {
	key       cacheKey
	canonical []byte
}

// cacheEntry keeps the canonical request next to the response, so that a
// hash collision reads as a miss.
type cacheEntry struct {
	canonical []byte
	resp      ScreenResponse
}

// resultCache keeps screening responses for repeated identical requests.
// Screening is deterministic, so a hit is always current.
type resultCache struct {
	entries *lru.Cache[cacheKey, cacheEntry]
}

func newResultCache(maxBytes int64) *resultCache {
	if maxBytes <= 0 {
		return nil
	}

	return &resultCache{entries: lru.New(lru.WithMaxBytes[cacheKey, cacheEntry](maxBytes, entryFootprint))}
}

// lookup derives the cache lookup of req screened with params.
func (rc *resultCache) lookup(req *ScreenRequest, params screening.Params) (cacheLookup, error) {
	canonical, err := json.Marshal(struct {
		Params      screening.Params `json:"params"`
		Name        string           `json:"name"`
		Samples     []SamplePayload  `json:"samples"`
		FillGaps    bool             `json:"fill_gaps"`
		WithDerived bool             `json:"with_derived"`
	}{params, req.Name, req.Samples, req.FillGaps, req.WithDerived})
	if err != nil {
		return cacheLookup{}, fmt.Errorf("encode cache key: %w", err)
	}

	return cacheLookup{
		key:       cacheKey{sum: xxhash.Sum64(canonical), n: len(canonical)},
		canonical: canonical,
	}, nil
}

func (rc *resultCache) get(l cacheLookup) (ScreenResponse, bool) {
	if rc == nil {
		return ScreenResponse{}, false
	}

	entry, found := rc.entries.Get(l.key)
	if !found || !bytes.Equal(entry.canonical, l.canonical) {
		return ScreenResponse{}, false
	}

	return entry.resp, true
}

func (rc *resultCache) put(l cacheLookup, resp ScreenResponse) {
	if rc == nil {
		return
	}

	resp.RequestID = ""
	rc.entries.Put(l.key, cacheEntry{canonical: l.canonical, resp: resp})
}

func (rc *resultCache) stats() lru.Stats {
	if rc == nil {
		return lru.Stats{}
	}

	return rc.entries.Stats()
}

func entryFootprint(entry cacheEntry) int64 {
	size := int64(summaryFootprint + len(entry.canonical) + len(entry.resp.Samples)*sampleFootprint)

	for _, values := range entry.resp.Derived {
		size += int64(len(values) * derivedFootprint)
	}

	return size
}
