// Package http exposes the timeline over a JSON API for an htmx front end.
//
// This file holds the fluent builder used by every handler to assemble the
// status, HX-Trigger events and JSON body of a response.
package http

import (
	"net/http"

	"finboard/internal/timeline"

	"github.com/goccy/go-json"
)

// EventTimelineChanged is the HX-Trigger event fired after every mutation.
const EventTimelineChanged = "timeline:changed"

// ResponseBuilder accumulates a response before writing it once.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       any
	hasBody    bool
	headers    map[string]string
}

// NewResponse creates a builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional detail to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, detail any) *ResponseBuilder {
	b.triggers[name] = detail
	return b
}

// TimelineChange is the detail of a timeline:changed event.
type TimelineChange struct {
	Action      string               `json:"action"`
	Level       int                  `json:"level"`
	Granularity timeline.Granularity `json:"granularity"`
	Mode        timeline.Mode        `json:"mode"`
}

// TriggerTimelineChanged fires timeline:changed describing chart.
func (b *ResponseBuilder) TriggerTimelineChanged(action string, chart timeline.ChartPayload) *ResponseBuilder {
	return b.Trigger(EventTimelineChanged, TimelineChange{
		Action:      action,
		Level:       chart.Level,
		Granularity: chart.Granularity,
		Mode:        chart.Mode,
	})
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the response body. A nil v is written as JSON null.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	b.hasBody = true
	return b
}

// Write sends the built response. Encoding happens before the status is
// written so a marshal failure can still become a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if trigger, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(trigger))
		}
	}

	if !b.hasBody {
		w.WriteHeader(b.statusCode)
		return
	}
	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Del("HX-Trigger")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ConflictError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func ServiceUnavailableError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}
