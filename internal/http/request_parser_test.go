package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		key         string
		want        string
		wantJSON    bool
		wantErr     bool
	}{
		{"json string", `{"mode": "owner"}`, "application/json", "mode", "owner", true, false},
		{"json number", `{"bucket": 3}`, "application/json", "bucket", "3", true, false},
		{"json missing key", `{"other": 1}`, "application/json", "bucket", "", true, false},
		{"form", "mode=account", "application/x-www-form-urlencoded", "mode", "account", false, false},
		{"form trims and strips control chars", "mode=%20own\x01er%20", "", "mode", "owner", false, false},
		{"empty body", "", "", "mode", "", false, false},
		{"invalid json", `{"mode": `, "application/json", "mode", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			p := NewRequestBodyParser(r)
			err := p.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParserLimit(t *testing.T) {
	body := `{"mode": "` + strings.Repeat("a", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if err := NewRequestBodyParser(r).Parse(); err == nil {
		t.Errorf("Parse() of oversized body error = nil")
	}
}

func TestParseNodeID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"-3", -3, false},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "id", tt.raw)
			got, err := ParseNodeID(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNodeID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseNodeID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseBreakdownKey(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"alice", "alice", false},
		{"alice_checking", "alice_checking", false},
		{"joint%20account", "joint account", false},
		{"%20", "", true},
		{"%zz", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "key", tt.raw)
			got, err := ParseBreakdownKey(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBreakdownKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBreakdownKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseBucketIndex(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"json", `{"bucket": 2}`, 2, false},
		{"json string", `{"bucket": "5"}`, 5, false},
		{"form", "bucket=0", 0, false},
		{"fraction", `{"bucket": 1.5}`, 0, true},
		{"negative", "bucket=-2", 0, true},
		{"missing", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			got, err := ParseBucketIndex(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBucketIndex() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBucketIndex() = %d, want %d", got, tt.want)
			}
		})
	}

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	if _, err := ParseBucketIndex(r); !errors.Is(err, errMissingField) {
		t.Errorf("ParseBucketIndex(no body) error = %v, want errMissingField", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  owner  ", "owner"},
		{"a\x00b\x1fc", "abc"},
		{"line\nbreak", "line\nbreak"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
