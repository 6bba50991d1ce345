package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func newTestServer(t *testing.T, sheets map[string][][]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, values := range sheets {
			if strings.Contains(r.URL.Path, "/values/"+name+"!") {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"range":          name,
					"majorDimension": "ROWS",
					"values":         values,
				})
				return
			}
		}
		http.Error(w, `{"error":{"code":404,"message":"sheet not found"}}`, http.StatusNotFound)
	}))
}

func TestClientReadsDataset(t *testing.T) {
	srv := newTestServer(t, map[string][][]interface{}{
		"Transactions": {
			{"id", "posted_at", "amount", "transaction_type", "main_category", "category"},
			{"1", "2024-01-05", "1000", "income", "INCOME", "Salary"},
			{"2", "", "-5", "expense", "EXPENSES", "Food"},
		},
		"Categories": {
			{"Type", "Category", "Subcategory", "ID", "ParentID", "Color", "Icon"},
			{"Income", "", "", "1", "", "", ""},
			{"Income", "Salary", "", "10", "1", "", ""},
		},
	})
	defer srv.Close()

	ctx := context.Background()
	c, err := NewWithEndpoint(ctx, srv.URL+"/", Options{SpreadsheetID: "sheet-1"}, nil)
	if err != nil {
		t.Fatalf("NewWithEndpoint() error = %v", err)
	}

	txs, err := c.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 2 || txs[0].Category != "Salary" {
		t.Errorf("ListTransactions() = %+v", txs)
	}

	tree, err := c.CategoryTree(ctx)
	if err != nil {
		t.Fatalf("CategoryTree() error = %v", err)
	}
	if tree.Len() != 2 {
		t.Errorf("tree.Len() = %d, want 2", tree.Len())
	}
}

func TestClientErrors(t *testing.T) {
	srv := newTestServer(t, map[string][][]interface{}{})
	defer srv.Close()

	ctx := context.Background()
	c, err := NewWithEndpoint(ctx, srv.URL+"/", Options{SpreadsheetID: "sheet-1", TransactionsSheet: "Missing"}, nil)
	if err != nil {
		t.Fatalf("NewWithEndpoint() error = %v", err)
	}
	if _, err := c.ListTransactions(ctx); err == nil || !strings.Contains(err.Error(), "read Missing!A:I") {
		t.Errorf("ListTransactions() error = %v, want read error", err)
	}

	if _, err := New(ctx, Options{}, nil); err == nil {
		t.Error("New() without spreadsheet id: error = nil")
	}
	if _, err := New(ctx, Options{SpreadsheetID: "x"}, nil); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("New() without credentials: error = %v", err)
	}
	if _, err := New(ctx, Options{SpreadsheetID: "x", CredentialsFile: "/non/existent.json"}, nil); err == nil {
		t.Error("New() with missing credentials file: error = nil")
	}
}

func TestNilServiceIsAnError(t *testing.T) {
	c := &Client{}
	if _, err := c.CategoryTree(context.Background()); err == nil {
		t.Error("CategoryTree() on uninitialized client: error = nil")
	}
}
