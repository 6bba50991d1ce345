// Package sheets declares the ports through which the timeline reads its
// dataset. Adapters live in sub-packages and in internal/storage and
// internal/restapi.
package sheets

import (
	"context"

	"finboard/internal/core"
	"finboard/internal/taxonomy"
)

// Ports for inbound data adapters.
type (
	// TransactionSource returns the whole transaction history as one
	// materialized list.
	TransactionSource interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// CategorySource returns the validated category tree.
	CategorySource interface {
		CategoryTree(ctx context.Context) (*taxonomy.Tree, error)
	}

	// DatasetWriter replaces the stored dataset in one step. Implemented by
	// backends that can be seeded.
	DatasetWriter interface {
		ReplaceDataset(ctx context.Context, types []taxonomy.TypeNode, txs []core.Transaction) error
	}
)
