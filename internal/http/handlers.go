package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"finboard/internal/log"
	"finboard/internal/timeline"
)

// EventTimelineInspected fires after pointer interactions. It is separate
// from timeline:changed so hovering does not refetch the chart.
const EventTimelineInspected = "timeline:inspected"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports ready once a dataset has been loaded. A later failed
// reload keeps serving the previous dataset, so it only shows in checks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.timeline.Status()
	checks := map[string]any{
		"dataset": map[string]any{
			"loaded":       st.Loaded,
			"version":      st.Version,
			"transactions": st.Transactions,
			"last_error":   st.LastError,
		},
		"rate_limiter": map[string]any{
			"active_clients": s.rateLimiter.ActiveClients(),
		},
	}
	status, code := "ready", http.StatusOK
	if !s.timeline.Ready() {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	st := s.timeline.Status()
	rl := s.rateLimiter.GetMetrics()
	sec := s.detector.GetMetrics()
	tr := s.tracer.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tr.TotalRequests)
	metric("http_request_duration_avg_microseconds", "gauge", "Average request duration", tr.AverageResponseTime)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rl.TotalHits)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", rl.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests matching probe patterns", sec.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Requests rejected for their method", sec.BlockedRequests)
	metric("dataset_version", "gauge", "Version of the loaded dataset", st.Version)
	metric("dataset_transactions", "gauge", "Transactions in the loaded dataset", st.Transactions)
	metric("dataset_skipped_transactions", "gauge", "Transactions excluded from buckets", st.Skipped)
	metric("uptime_seconds", "gauge", "Process uptime", int64(time.Since(s.startedAt).Seconds()))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.timeline.Chart()).Write(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.timeline.Status()).Write(w)
}

func (s *Server) handleInspection(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.timeline.Inspection()).Write(w)
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.timeline.Visibility()).Write(w)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ReloadTimeout)
	defer cancel()
	if err := s.timeline.Reload(ctx); err != nil {
		s.writeError(w, r, log.OpReload, err)
		return
	}
	NewResponse().
		TriggerTimelineChanged("reload", s.timeline.Chart()).
		JSON(s.timeline.Status()).
		Write(w)
}

type toggleFunc func(Timeline, context.Context, int64) (timeline.ChartPayload, error)

func (s *Server) handleToggle(action string, fn toggleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ParseNodeID(r)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		chart, err := fn(s.timeline, r.Context(), id)
		if err != nil {
			s.writeError(w, r, log.OpToggle, err, log.FieldNodeID, id)
			return
		}
		NewResponse().TriggerTimelineChanged(action, chart).JSON(chart).Write(w)
	}
}

type zoomFunc func(Timeline, context.Context) (timeline.ChartPayload, bool)

// handleZoom fires timeline:changed only when the level actually moved.
func (s *Server) handleZoom(action string, fn zoomFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chart, changed := fn(s.timeline, r.Context())
		resp := NewResponse()
		if changed {
			resp.TriggerTimelineChanged(action, chart)
		}
		resp.JSON(chart).Write(w)
	}
}

func (s *Server) handleBreakdownMode(w http.ResponseWriter, r *http.Request) {
	mode, err := ParseMode(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	chart, err := s.timeline.SetBreakdownMode(r.Context(), mode)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewResponse().TriggerTimelineChanged("breakdown-mode", chart).JSON(chart).Write(w)
}

func (s *Server) handleBreakdownKey(w http.ResponseWriter, r *http.Request) {
	key, err := ParseBreakdownKey(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	chart, err := s.timeline.ToggleBreakdownKey(r.Context(), key)
	if err != nil {
		s.writeError(w, r, log.OpToggle, err, "breakdown_key", key)
		return
	}
	NewResponse().TriggerTimelineChanged("breakdown-key", chart).JSON(chart).Write(w)
}

type pointerFunc func(Timeline, int) (*timeline.Inspection, error)

func (s *Server) handlePointer(action string, fn pointerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := ParseBucketIndex(r)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		in, err := fn(s.timeline, i)
		if err != nil {
			s.writeError(w, r, log.OpPointer, err, log.FieldBucketIndex, i)
			return
		}
		writeInspection(w, action, in)
	}
}

func (s *Server) handlePointerReset(action string, fn func(Timeline) *timeline.Inspection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeInspection(w, action, fn(s.timeline))
	}
}

func writeInspection(w http.ResponseWriter, action string, in *timeline.Inspection) {
	detail := map[string]any{"action": action, "index": nil}
	if in != nil {
		detail["index"] = in.Index
	}
	NewResponse().Trigger(EventTimelineInspected, detail).JSON(in).Write(w)
}
