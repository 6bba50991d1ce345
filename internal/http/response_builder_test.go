package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/taxonomy"
	"finboard/internal/timeline"
)

func TestResponseBuilderJSON(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusCreated).JSON(map[string]int{"n": 1}).Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"n":1}` {
		t.Errorf("body = %q", got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestResponseBuilderNullBody(t *testing.T) {
	w := httptest.NewRecorder()
	var in *timeline.Inspection
	NewResponse().JSON(in).Write(w)
	if got := strings.TrimSpace(w.Body.String()); got != "null" {
		t.Errorf("body = %q, want null", got)
	}
}

func TestResponseBuilderTriggers(t *testing.T) {
	w := httptest.NewRecorder()
	chart := timeline.ChartPayload{Level: 1, Granularity: timeline.Month, Mode: timeline.ModeOwner}

	NewResponse().
		TriggerTimelineChanged("zoom-in", chart).
		Trigger("custom", struct{}{}).
		Header("X-Custom", "value").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{
		`"timeline:changed"`,
		`"action":"zoom-in"`,
		`"level":1`,
		`"granularity":"month"`,
		`"mode":"owner"`,
		`"custom":{}`,
	} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %s: %s", part, trigger)
		}
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("X-Custom header not set")
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestResponseBuilderEncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Trigger("x", 1).JSON(map[string]any{"bad": make(chan int)}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("failed response still triggers events")
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name string
		b    *ResponseBuilder
		want int
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest},
		{"not found", NotFoundError("x"), http.StatusNotFound},
		{"conflict", ConflictError("x"), http.StatusConflict},
		{"internal", InternalServerError("x"), http.StatusInternalServerError},
		{"unavailable", ServiceUnavailableError("x"), http.StatusServiceUnavailable},
		{"method", MethodNotAllowedError("POST"), http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.b.Write(w)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if !strings.Contains(w.Body.String(), `"error":`) {
				t.Errorf("body = %s, want an error field", w.Body.String())
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		op   string
		err  error
		want int
	}{
		{"unknown node", log.OpToggle, fmt.Errorf("toggle: %w", taxonomy.ErrUnknownNode), http.StatusNotFound},
		{"bucket range", log.OpPointer, fmt.Errorf("x: %w", timeline.ErrBucketOutOfRange), http.StatusBadRequest},
		{"key rejected", log.OpToggle, services.ErrKeyRejected, http.StatusConflict},
		{"reload failure", log.OpReload, errors.New("backend down"), http.StatusServiceUnavailable},
		{"other", log.OpToggle, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.op, tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
