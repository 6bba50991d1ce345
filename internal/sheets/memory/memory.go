// Package memory serves the dataset from JSON/YAML seed files held in memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"finboard/internal/core"
	"finboard/internal/taxonomy"
)

// Seed file names looked up in the data directory.
const (
	TransactionsFile = "transactions.json"
)

var categoryFiles = []string{"categories.yaml", "categories.yml", "categories.json"}

type Store struct {
	mu    sync.RWMutex
	types []taxonomy.TypeNode
	txs   []core.Transaction
}

func New(types []taxonomy.TypeNode, txs []core.Transaction) *Store {
	return &Store{types: types, txs: txs}
}

// NewFromFiles loads seed files from base. A missing category file falls
// back to the demo tree; a missing transactions file yields no transactions.
// Files that exist but do not parse are errors.
func NewFromFiles(base string) (*Store, error) {
	types := DemoTree()
	for _, name := range categoryFiles {
		path := filepath.Join(base, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		tree, err := taxonomy.LoadFile(path)
		if err != nil {
			return nil, err
		}
		types = tree.Nested()
		break
	}

	var txs []core.Transaction
	data, err := os.ReadFile(filepath.Join(base, TransactionsFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read transactions: %w", err)
	default:
		if txs, err = core.DecodeTransactions(data); err != nil {
			return nil, err
		}
	}
	return New(types, txs), nil
}

// ListTransactions returns a copy of the stored transactions.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.txs...), nil
}

// CategoryTree builds and validates the stored tree.
func (s *Store) CategoryTree(_ context.Context) (*taxonomy.Tree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return taxonomy.Build(s.types)
}

// ReplaceDataset swaps both tree and transactions after validating the tree.
func (s *Store) ReplaceDataset(_ context.Context, types []taxonomy.TypeNode, txs []core.Transaction) error {
	if _, err := taxonomy.Build(types); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = types
	s.txs = append([]core.Transaction(nil), txs...)
	return nil
}

func ref(v int64) *int64 { return &v }

// DemoTree is the category tree served when no seed file is present.
func DemoTree() []taxonomy.TypeNode {
	return []taxonomy.TypeNode{
		{ID: 1, Code: taxonomy.TypeIncome, Name: "Income", Color: "#2E7D32", Icon: "trending-up", Children: []taxonomy.TreeNode{
			{ID: 10, Name: "Salary", Color: "#43A047", Icon: "briefcase", ParentID: ref(1), Children: []taxonomy.TreeNode{
				{ID: 100, Name: "Bonus", Color: "#66BB6A", Icon: "gift", ParentID: ref(10)},
			}},
			{ID: 11, Name: "Interest", Color: "#81C784", Icon: "percent", ParentID: ref(1)},
		}},
		{ID: 2, Code: taxonomy.TypeExpenses, Name: "Expenses", Color: "#C62828", Icon: "trending-down", Children: []taxonomy.TreeNode{
			{ID: 20, Name: "Food", Color: "#EF6C00", Icon: "utensils", ParentID: ref(2), Children: []taxonomy.TreeNode{
				{ID: 200, Name: "Groceries", Color: "#FB8C00", Icon: "shopping-cart", ParentID: ref(20)},
				{ID: 201, Name: "Restaurants", Color: "#FFA726", Icon: "coffee", ParentID: ref(20)},
			}},
			{ID: 21, Name: "Housing", Color: "#6D4C41", Icon: "home", ParentID: ref(2), Children: []taxonomy.TreeNode{
				{ID: 210, Name: "Rent", Color: "#8D6E63", Icon: "key", ParentID: ref(21)},
				{ID: 211, Name: "Utilities", Color: "#A1887F", Icon: "zap", ParentID: ref(21)},
			}},
			{ID: 22, Name: "Transport", Color: "#1565C0", Icon: "car", ParentID: ref(2)},
		}},
		{ID: 3, Code: taxonomy.TypeTransfers, Name: "Transfers", Color: "#455A64", Icon: "repeat", Children: []taxonomy.TreeNode{
			{ID: 30, Name: "Savings", Color: "#546E7A", Icon: "piggy-bank", ParentID: ref(3)},
			{ID: 31, Name: "Credit card", Color: "#78909C", Icon: "credit-card", ParentID: ref(3)},
		}},
		{ID: 4, Code: taxonomy.TypeTargets, Name: "Targets", Color: "#7B1FA2", Icon: "target"},
	}
}
