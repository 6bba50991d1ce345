// Package http provides HTTP server and handler implementations.
//
// This file parses path parameters and small request bodies. Bodies may be
// JSON or form-encoded since htmx posts forms by default.
package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

var errMissingField = errors.New("missing field")

// RequestBodyParser reads the body once and serves fields from either the
// JSON object or the form values.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes from r.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

// Parse decodes the body as JSON when it looks like an object, otherwise as
// form values.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	switch {
	case body == "":
		p.formData = url.Values{}
	case strings.HasPrefix(body, "{") || strings.Contains(p.contentType, "application/json"):
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON body: %w", err)
		}
	default:
		if p.formData, p.err = url.ParseQuery(body); p.err != nil {
			p.err = fmt.Errorf("invalid form body: %w", p.err)
		}
	}
	return p.err
}

// Get returns a sanitized field value, empty when absent.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseNodeID reads the {id} path parameter as a category node id.
func ParseNodeID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q", raw)
	}
	return id, nil
}

// ParseBreakdownKey reads the {key} path parameter, unescaped.
func ParseBreakdownKey(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "key")
	key, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid breakdown key %q", raw)
	}
	key = sanitizeInput(key)
	if key == "" {
		return "", fmt.Errorf("breakdown key: %w", errMissingField)
	}
	return key, nil
}

// ParseBucketIndex reads the "bucket" body field as a non-negative int.
// Range checks against the chart happen in the view.
func ParseBucketIndex(r *http.Request) (int, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return 0, err
	}
	raw := p.Get("bucket")
	if raw == "" {
		return 0, fmt.Errorf("bucket: %w", errMissingField)
	}
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid bucket index %q", raw)
	}
	return i, nil
}

// ParseMode reads the "mode" body field.
func ParseMode(r *http.Request) (string, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return "", err
	}
	mode := p.Get("mode")
	if mode == "" {
		return "", fmt.Errorf("mode: %w", errMissingField)
	}
	return mode, nil
}

// sanitizeInput trims whitespace and removes control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
