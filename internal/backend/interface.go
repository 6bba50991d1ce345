package backend

import (
	"context"
	"slices"
	"time"

	"finboard/internal/sheets"
)

// Backend is a complete dataset source.
type Backend interface {
	sheets.TransactionSource
	sheets.CategorySource
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Writer is set when the backend can be seeded.
	Writer  sheets.DatasetWriter
	Cleanup CleanupFunc
}

// Close runs Cleanup if present.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleCategoriesSheetName string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string

	// REST specific
	RESTBaseURL     string
	RESTPageSize    int
	RESTConcurrency int
	RESTTimeout     time.Duration

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
	RESTBackend   BackendType = "rest"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	return slices.Contains(GetBackendTypes(), bt)
}
