package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// MainCategoryTransfers marks a transaction as a transfer regardless of its type.
const MainCategoryTransfers = "TRANSFERS"

// Uncategorized is the name used for transactions carrying neither category nor subcategory.
const Uncategorized = "Uncategorized"

type (
	TransactionType string

	// Transaction is a single ledger row as delivered by the transaction service.
	// Empty strings stand in for null category, subcategory, owner and account type.
	Transaction struct {
		ID              string
		PostedAt        time.Time // zero when the source date was missing or malformed
		Amount          decimal.Decimal
		Type            TransactionType
		MainCategory    string
		Category        string
		Subcategory     string
		Owner           string
		BankAccountType string

		invalid bool
	}
)

var (
	ErrMissingDate   = errors.New("missing posting date")
	ErrInvalidAmount = errors.New("invalid amount")
)

// IsTransfer reports whether the transaction belongs to the transfers type.
// Income/expense classification is ignored for transfers.
func (t Transaction) IsTransfer() bool {
	return strings.EqualFold(strings.TrimSpace(t.MainCategory), MainCategoryTransfers)
}

// Magnitude returns the absolute value of the amount.
func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// DisplayName returns the subcategory if present, else the category,
// else Uncategorized.
func (t Transaction) DisplayName() string {
	if s := strings.TrimSpace(t.Subcategory); s != "" {
		return s
	}
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return Uncategorized
}

// Validate reports why a transaction cannot be bucketed.
func (t Transaction) Validate() error {
	if t.invalid {
		return ErrInvalidAmount
	}
	if t.PostedAt.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// Bucketable is shorthand for Validate() == nil.
func (t Transaction) Bucketable() bool {
	return t.Validate() == nil
}

// MarkInvalid flags the transaction as unusable for aggregation.
func (t *Transaction) MarkInvalid() {
	t.invalid = true
}

// NewDate creates a UTC midnight timestamp from year, month, day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
