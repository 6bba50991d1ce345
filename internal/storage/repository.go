package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finboard/internal/core"
	"finboard/internal/log"
	ports "finboard/internal/sheets"
	"finboard/internal/taxonomy"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const postedAtLayout = "2006-01-02T15:04:05"

// Ensure interface conformance
var (
	_ ports.TransactionSource = (*SQLiteRepository)(nil)
	_ ports.CategorySource    = (*SQLiteRepository)(nil)
	_ ports.DatasetWriter     = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if logger == nil {
		logger = log.Nop()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListTransactions implements sheets.TransactionSource. Rows come back in
// insertion order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

// CategoryTree implements sheets.CategorySource.
func (r *SQLiteRepository) CategoryTree(ctx context.Context) (*taxonomy.Tree, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	nodes := make([]taxonomy.Node, 0, len(cats))
	for _, c := range cats {
		kind, err := parseKind(c.Kind)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, taxonomy.Node{
			ID:       c.ID,
			ParentID: c.ParentID.Int64,
			Kind:     kind,
			Code:     c.Code,
			Name:     c.Name,
			Color:    c.Color,
			Icon:     c.Icon,
		})
	}
	return taxonomy.NewTree(nodes)
}

// ReplaceDataset implements sheets.DatasetWriter. The tree is validated
// before anything is written and the swap happens in one transaction.
func (r *SQLiteRepository) ReplaceDataset(ctx context.Context, types []taxonomy.TypeNode, txs []core.Transaction) error {
	tree, err := taxonomy.Build(types)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	if err := q.DeleteTransactions(ctx); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if err := q.DeleteCategories(ctx); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}

	var position int64
	for _, typeID := range tree.Types() {
		for _, id := range append([]int64{typeID}, tree.Descendants(typeID)...) {
			n, _ := tree.Node(id)
			row := Category{
				ID:       n.ID,
				Kind:     n.Kind.String(),
				Code:     n.Code,
				Name:     n.Name,
				Color:    n.Color,
				Icon:     n.Icon,
				Position: position,
			}
			if n.ParentID != 0 {
				row.ParentID = sql.NullInt64{Int64: n.ParentID, Valid: true}
			}
			if err := q.CreateCategory(ctx, row); err != nil {
				return fmt.Errorf("insert category %d: %w", n.ID, err)
			}
			position++
		}
	}

	for _, t := range txs {
		if err := q.CreateTransaction(ctx, toRow(t)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	if err := q.UpsertDatasetMeta(ctx, time.Now(), "import"); err != nil {
		return fmt.Errorf("record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dataset: %w", err)
	}

	r.logger.InfoContext(ctx, "Dataset replaced",
		"categories", position,
		log.FieldTransactions, len(txs))
	return nil
}

// LastImport returns when the dataset was last replaced. ok is false when
// nothing has been imported yet.
func (r *SQLiteRepository) LastImport(ctx context.Context) (time.Time, bool, error) {
	meta, err := r.queries.GetDatasetMeta(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get dataset meta: %w", err)
	}
	return meta.ImportedAt, true, nil
}

func parseKind(s string) (taxonomy.Kind, error) {
	for _, k := range []taxonomy.Kind{taxonomy.KindType, taxonomy.KindCategory, taxonomy.KindSubcategory} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown category kind %q", s)
}

func toRow(t core.Transaction) TransactionRow {
	row := TransactionRow{
		ID:              t.ID,
		Amount:          t.Amount.String(),
		AmountValid:     !errors.Is(t.Validate(), core.ErrInvalidAmount),
		TransactionType: string(t.Type),
		MainCategory:    t.MainCategory,
		Category:        nullString(t.Category),
		Subcategory:     nullString(t.Subcategory),
		Owner:           nullString(t.Owner),
		BankAccountType: nullString(t.BankAccountType),
	}
	if !t.PostedAt.IsZero() {
		row.PostedAt = sql.NullString{String: t.PostedAt.Format(postedAtLayout), Valid: true}
	}
	return row
}

func fromRow(row TransactionRow) core.Transaction {
	t := core.Transaction{
		ID:              row.ID,
		Type:            core.TransactionType(row.TransactionType),
		MainCategory:    row.MainCategory,
		Category:        row.Category.String,
		Subcategory:     row.Subcategory.String,
		Owner:           row.Owner.String,
		BankAccountType: row.BankAccountType.String,
	}
	if row.PostedAt.Valid {
		if ts, err := time.Parse(postedAtLayout, row.PostedAt.String); err == nil {
			t.PostedAt = ts
		}
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil || !row.AmountValid {
		t.MarkInvalid()
	} else {
		t.Amount = amount
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
