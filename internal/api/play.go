// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/dvrvod/internal/archive"
	xglog "github.com/ManuGH/dvrvod/internal/log"
	"github.com/ManuGH/dvrvod/internal/metrics"
	"github.com/ManuGH/dvrvod/internal/streamproxy"
	"github.com/ManuGH/dvrvod/internal/telemetry"
)

const (
	maxPlayBody  = 1 << 20
	maxBatchSize = 500
)

type playRequest struct {
	RecordID  string   `json:"record_id"`
	RecordIDs []string `json:"record_ids"`
}

type playResponse struct {
	Success  bool   `json:"success"`
	ProxyURL string `json:"proxy_url,omitempty"`
	Message  string `json:"message,omitempty"`
}

type playResult struct {
	RecordID string `json:"record_id"`
	Found    bool   `json:"found"`
	ProxyURL string `json:"proxy_url,omitempty"`
	Message  string `json:"message,omitempty"`
}

type batchResponse struct {
	Success bool         `json:"success"`
	Results []playResult `json:"results"`
	Message string       `json:"message,omitempty"`
}

// validRecordID rejects ids that cannot be embedded in a stream path.
func validRecordID(id string) bool {
	if id == "" || len(id) > 128 || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\?#%\x00\r\n\t ")
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// handlePlay accepts {"record_id"} or {"record_ids":[...]} as JSON, or a
// record_id form/query value.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if isJSON(r) {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxPlayBody))
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, playResponse{Message: "invalid request: " + err.Error()})
			return
		}
	} else {
		req.RecordID = r.FormValue("record_id")
	}

	if len(req.RecordIDs) > 0 {
		s.playBatch(w, r, req.RecordIDs)
		return
	}
	s.playSingle(w, r, strings.TrimSpace(req.RecordID))
}

func (s *Server) playSingle(w http.ResponseWriter, r *http.Request, recordID string) {
	ctx := xglog.ContextWithRecordID(r.Context(), recordID)
	logger := xglog.FromContext(ctx)
	trace.SpanFromContext(ctx).SetAttributes(telemetry.PlayAttributes("single", 1)...)

	if recordID == "" {
		metrics.RecordPlayRequest("single", "bad_request")
		writeJSON(w, http.StatusBadRequest, playResponse{Message: "record_id is required"})
		return
	}
	if !validRecordID(recordID) {
		metrics.RecordPlayRequest("single", "bad_request")
		writeJSON(w, http.StatusBadRequest, playResponse{Message: "invalid record_id"})
		return
	}

	proxyURL, err := s.resolve(ctx, recordID)
	if err != nil {
		metrics.RecordPlayRequest("single", "not_found")
		logger.Warn().Err(err).Str(xglog.FieldEvent, "play.not_found").Msg("recording not found")
		writeJSON(w, http.StatusNotFound, playResponse{Message: "recording not found"})
		return
	}
	metrics.RecordPlayRequest("single", "found")
	logger.Info().Str(xglog.FieldEvent, "play.found").Str(xglog.FieldProxyURL, proxyURL).Msg("recording found")
	writeJSON(w, http.StatusOK, playResponse{Success: true, ProxyURL: proxyURL, Message: "recording found"})
}

// playBatch resolves ids with bounded concurrency. Results keep request
// order. On cancellation the entries finished so far are returned with 408.
func (s *Server) playBatch(w http.ResponseWriter, r *http.Request, ids []string) {
	ctx := r.Context()
	logger := xglog.FromContext(ctx)
	trace.SpanFromContext(ctx).SetAttributes(telemetry.PlayAttributes("batch", len(ids))...)
	metrics.ObserveBatchSize(len(ids))

	if len(ids) > maxBatchSize {
		metrics.RecordPlayRequest("batch", "bad_request")
		writeJSON(w, http.StatusBadRequest, batchResponse{Results: []playResult{}, Message: "too many record_ids"})
		return
	}

	start := time.Now()
	results := make([]playResult, len(ids))
	done := make([]bool, len(ids))
	sem := semaphore.NewWeighted(int64(max(s.Config.Get().DVR.BatchConcurrency, 1)))

	var g errgroup.Group
	for i, raw := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			id := strings.TrimSpace(raw)
			res := playResult{RecordID: id}
			if !validRecordID(id) {
				res.Message = "invalid record_id"
				results[i], done[i] = res, true
				return nil
			}
			proxyURL, err := s.resolve(ctx, id)
			switch {
			case err == nil:
				res.Found, res.ProxyURL = true, proxyURL
			case ctx.Err() != nil:
				return nil
			case !errors.Is(err, archive.ErrNotFound):
				res.Message = "lookup failed"
			}
			results[i], done[i] = res, true
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		partial := make([]playResult, 0, len(ids))
		for i := range results {
			if done[i] {
				partial = append(partial, results[i])
			}
		}
		metrics.RecordPlayRequest("batch", "timeout")
		logger.Error().Str(xglog.FieldEvent, "play.batch_timeout").
			Int("done", len(partial)).Int("total", len(ids)).
			Msg("batch query interrupted")
		writeJSON(w, http.StatusRequestTimeout, batchResponse{Results: partial, Message: "request timeout"})
		return
	}

	found := 0
	for _, res := range results {
		if res.Found {
			found++
		}
	}
	metrics.RecordPlayRequest("batch", "completed")
	logger.Info().Str(xglog.FieldEvent, "play.batch_done").
		Int("total", len(ids)).Int("found", found).
		Dur(xglog.FieldDuration, time.Since(start)).
		Msg("batch query completed")
	writeJSON(w, http.StatusOK, batchResponse{Success: true, Results: results, Message: "batch query completed"})
}

// resolve finds the recording and registers its proxy mapping.
func (s *Server) resolve(ctx context.Context, recordID string) (string, error) {
	upstream, err := s.Locator.Find(ctx, recordID)
	if err != nil {
		return "", err
	}
	s.Cache.Set(ctx, recordID, upstream, s.Config.Get().Cache.TTL)
	return streamproxy.URL(recordID), nil
}
