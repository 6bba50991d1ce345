package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Category struct {
	ID       int64
	ParentID sql.NullInt64
	Kind     string
	Code     string
	Name     string
	Color    string
	Icon     string
	Position int64
}

type TransactionRow struct {
	RowID           int64
	ID              string
	PostedAt        sql.NullString
	Amount          string
	AmountValid     bool
	TransactionType string
	MainCategory    string
	Category        sql.NullString
	Subcategory     sql.NullString
	Owner           sql.NullString
	BankAccountType sql.NullString
}

type DatasetMeta struct {
	ImportedAt time.Time
	Source     string
}

const listCategories = `-- name: ListCategories :many
SELECT id, parent_id, kind, code, name, color, icon, position
FROM categories
ORDER BY position
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.ParentID, &i.Kind, &i.Code, &i.Name, &i.Color, &i.Icon, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactions = `-- name: ListTransactions :many
SELECT row_id, id, posted_at, amount, amount_valid, transaction_type, main_category,
       category, subcategory, owner, bank_account_type
FROM transactions
ORDER BY row_id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(
			&i.RowID, &i.ID, &i.PostedAt, &i.Amount, &i.AmountValid, &i.TransactionType, &i.MainCategory,
			&i.Category, &i.Subcategory, &i.Owner, &i.BankAccountType,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createCategory = `-- name: CreateCategory :exec
INSERT INTO categories (id, parent_id, kind, code, name, color, icon, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateCategory(ctx context.Context, arg Category) error {
	_, err := q.db.ExecContext(ctx, createCategory,
		arg.ID, arg.ParentID, arg.Kind, arg.Code, arg.Name, arg.Color, arg.Icon, arg.Position)
	return err
}

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, posted_at, amount, amount_valid, transaction_type, main_category,
                          category, subcategory, owner, bank_account_type)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateTransaction(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.PostedAt, arg.Amount, arg.AmountValid, arg.TransactionType, arg.MainCategory,
		arg.Category, arg.Subcategory, arg.Owner, arg.BankAccountType)
	return err
}

const deleteTransactions = `-- name: DeleteTransactions :exec
DELETE FROM transactions
`

func (q *Queries) DeleteTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteTransactions)
	return err
}

const deleteCategories = `-- name: DeleteCategories :exec
DELETE FROM categories
`

func (q *Queries) DeleteCategories(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteCategories)
	return err
}

const upsertDatasetMeta = `-- name: UpsertDatasetMeta :exec
INSERT INTO dataset_meta (id, imported_at, source) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET imported_at = excluded.imported_at, source = excluded.source
`

func (q *Queries) UpsertDatasetMeta(ctx context.Context, importedAt time.Time, source string) error {
	_, err := q.db.ExecContext(ctx, upsertDatasetMeta, importedAt.UTC(), source)
	return err
}

const getDatasetMeta = `-- name: GetDatasetMeta :one
SELECT imported_at, source FROM dataset_meta WHERE id = 1
`

func (q *Queries) GetDatasetMeta(ctx context.Context) (DatasetMeta, error) {
	var i DatasetMeta
	err := q.db.QueryRowContext(ctx, getDatasetMeta).Scan(&i.ImportedAt, &i.Source)
	return i, err
}
