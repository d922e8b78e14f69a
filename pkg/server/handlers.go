package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
	"github.com/Sumatoshi-tech/gridscreen/pkg/report"
	"github.com/Sumatoshi-tech/gridscreen/pkg/screening"
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

var (
	errRateLimited      = errors.New("rate limit exceeded")
	errNotFound         = errors.New("not found")
	errMethodNotAllowed = errors.New("method not allowed")
	errBodyTooLarge     = errors.New("request body too large")
	errMalformedBody    = errors.New("malformed request body")
)

func (s *Server) handleScreen(rw http.ResponseWriter, hr *http.Request) {
	hr.Body = http.MaxBytesReader(rw, hr.Body, s.maxBody)

	var req ScreenRequest

	dec := json.NewDecoder(hr.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(&req)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(rw, hr, http.StatusRequestEntityTooLarge, errBodyTooLarge)

			return
		}

		writeError(rw, hr, http.StatusBadRequest, fmt.Errorf("%w: %w", errMalformedBody, err))

		return
	}

	ctx := observability.ContextWithSeries(hr.Context(), req.Name)
	tagRequest(ctx, req.Name, "")

	params, err := req.params(s.params)
	if err != nil {
		writeError(rw, hr, http.StatusBadRequest, err)

		return
	}

	screener, err := screening.NewScreener(params, s.screenerOpts...)
	if err != nil {
		writeError(rw, hr, http.StatusBadRequest, err)

		return
	}

	lookup, cacheable := s.cacheLookup(ctx, &req, params)
	if cacheable {
		cached, hit := s.cache.get(lookup)
		if hit {
			cached.RequestID = RequestID(ctx)
			tagRequest(ctx, "", cacheHit)
			rw.Header().Set(HeaderCache, cacheHit)
			writeJSON(rw, http.StatusOK, cached)

			return
		}

		tagRequest(ctx, "", cacheMiss)
		rw.Header().Set(HeaderCache, cacheMiss)
	}

	in, err := req.series()
	if err != nil {
		writeError(rw, hr, http.StatusBadRequest, err)

		return
	}

	in, err = prepare(in, req.FillGaps)
	if err != nil {
		writeError(rw, hr, http.StatusBadRequest, err)

		return
	}

	res := screener.Screen(ctx, in)

	resp := ScreenResponse{
		RequestID: RequestID(ctx),
		Params:    params,
		Samples:   toPayload(res.Series),
		Summary:   report.Summarize(req.Name, res),
	}

	if req.WithDerived {
		resp.Derived = derivedPayload(res.Derived)
	}

	if cacheable {
		s.cache.put(lookup, resp)
	}

	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) cacheLookup(ctx context.Context, req *ScreenRequest, params screening.Params) (cacheLookup, bool) {
	if s.cache == nil {
		return cacheLookup{}, false
	}

	lookup, err := s.cache.lookup(req, params)
	if err != nil {
		s.logger.WarnContext(ctx, "result cache bypassed", "error", err)

		return cacheLookup{}, false
	}

	return lookup, true
}

// CacheStats is the body answered by GET /v1/cache.
type CacheStats struct {
	Enabled  bool    `json:"enabled"`
	Entries  int     `json:"entries"`
	Bytes    int64   `json:"bytes"`
	MaxBytes int64   `json:"max_bytes"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

func (s *Server) handleCacheStats(rw http.ResponseWriter, _ *http.Request) {
	stats := s.cache.stats()

	writeJSON(rw, http.StatusOK, CacheStats{
		Enabled:  s.cache != nil,
		Entries:  stats.Entries,
		Bytes:    stats.CurrentSize,
		MaxBytes: stats.MaxSize,
		Hits:     stats.Hits,
		Misses:   stats.Misses,
		HitRate:  stats.HitRate(),
	})
}

func (s *Server) handleParams(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, s.params)
}

// prepare checks the hourly grid, regularizing first when asked to.
func prepare(in series.Series, fillGaps bool) (series.Series, error) {
	if fillGaps && !in.Positional() {
		out, _, err := series.Regularize(in)
		if err != nil {
			return series.Series{}, err
		}

		in = out
	}

	err := series.Validate(in)
	if err != nil {
		return series.Series{}, err
	}

	return in, nil
}

func writeJSON(rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	_ = json.NewEncoder(rw).Encode(body)
}

func writeError(rw http.ResponseWriter, hr *http.Request, status int, err error) {
	writeJSON(rw, status, ErrorResponse{RequestID: RequestID(hr.Context()), Error: err.Error()})
}
