package timeline

import (
	"testing"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/taxonomy"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func expense(amount string, category, subcategory string, y, m, d int) core.Transaction {
	return core.Transaction{
		PostedAt:    core.NewDate(y, m, d),
		Amount:      dec(amount),
		Type:        core.Expense,
		Category:    category,
		Subcategory: subcategory,
	}
}

func income(amount string, category string, y, m, d int) core.Transaction {
	return core.Transaction{
		PostedAt: core.NewDate(y, m, d),
		Amount:   dec(amount),
		Type:     core.Income,
		Category: category,
	}
}

func transfer(amount string, category string, y, m, d int) core.Transaction {
	return core.Transaction{
		PostedAt:     core.NewDate(y, m, d),
		Amount:       dec(amount),
		Type:         core.Expense,
		MainCategory: core.MainCategoryTransfers,
		Category:     category,
	}
}

func owned(tx core.Transaction, owner, account string) core.Transaction {
	tx.Owner = owner
	tx.BankAccountType = account
	return tx
}

func pid(v int64) *int64 { return &v }

// sampleTree has Food (5) with Groceries (51) and Restaurants (52) under
// expenses, Salary (10) under income and Savings (30) under transfers.
func sampleTree(t testing.TB) *taxonomy.Tree {
	t.Helper()
	tree, err := taxonomy.Build([]taxonomy.TypeNode{
		{ID: 1, Code: taxonomy.TypeIncome, Name: "Income", Color: "#00AA00", Children: []taxonomy.TreeNode{
			{ID: 10, Name: "Salary", Color: "#00CC00", Icon: "briefcase"},
		}},
		{ID: 2, Code: taxonomy.TypeExpenses, Name: "Expenses", Color: "#AA0000", Icon: "minus", Children: []taxonomy.TreeNode{
			{ID: 5, Name: "Food", Color: "#FF8800", Icon: "utensils", Children: []taxonomy.TreeNode{
				{ID: 51, Name: "Groceries", Color: "#FFAA00", ParentID: pid(5)},
				{ID: 52, Name: "Restaurants", ParentID: pid(5)},
			}},
			{ID: 6, Name: "Housing", Children: []taxonomy.TreeNode{
				{ID: 61, Name: "Rent", ParentID: pid(6)},
			}},
		}},
		{ID: 3, Code: taxonomy.TypeTransfers, Name: "Transfers", Color: "#0000AA", Children: []taxonomy.TreeNode{
			{ID: 30, Name: "Savings"},
			{ID: 31, Name: "Credit card"},
		}},
		{ID: 4, Code: taxonomy.TypeTargets, Name: "Targets"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return tree
}

func seriesByName(series []Series, name string) (Series, bool) {
	for _, s := range series {
		if s.Name == name {
			return s, true
		}
	}
	return Series{}, false
}

func ys(s Series) []float64 {
	out := make([]float64, len(s.Data))
	for i, p := range s.Data {
		out[i] = p.Y
	}
	return out
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
