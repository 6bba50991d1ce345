// Package timeline turns a flat transaction list and a category tree into
// time-bucketed, visibility-filtered, cumulatively stacked chart series,
// and tracks zoom and hover/pin inspection state over them.
package timeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/taxonomy"
)

// Granularity is the width of one time bucket.
type Granularity int

const (
	Quarter Granularity = iota
	Month
	Day
)

func (g Granularity) String() string {
	switch g {
	case Quarter:
		return "quarter"
	case Month:
		return "month"
	case Day:
		return "day"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// MarshalText renders the granularity by name in JSON payloads.
func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Group is one of the three transaction-carrying type groups.
type Group string

const (
	GroupIncome    Group = "income"
	GroupExpenses  Group = "expenses"
	GroupTransfers Group = "transfers"
)

// Groups lists the groups in the order they are stacked and reported.
var Groups = []Group{GroupIncome, GroupExpenses, GroupTransfers}

// TypeCode returns the code of the category-tree type node for the group.
func (g Group) TypeCode() string {
	switch g {
	case GroupIncome:
		return taxonomy.TypeIncome
	case GroupExpenses:
		return taxonomy.TypeExpenses
	default:
		return taxonomy.TypeTransfers
	}
}

// NameRef is the raw name a transaction is filed under. Category is set
// only when Name is a subcategory, and names the category it was recorded
// below.
type NameRef struct {
	Category string
	Name     string
}

func refOf(tx core.Transaction) NameRef {
	ref := NameRef{Name: tx.DisplayName()}
	if strings.TrimSpace(tx.Subcategory) != "" {
		ref.Category = strings.TrimSpace(tx.Category)
	}
	return ref
}

// TimeBucket holds the sums of one period.
//
// Totals and Sums hold magnitudes. TransferNet keeps the signed amount of
// each transfer category so the series builder can split directions.
// Refs and RefNet carry the same amounts keyed by NameRef, which is what
// labeling resolves against.
type TimeBucket struct {
	PeriodStart time.Time
	Totals      map[Group]decimal.Decimal
	Sums        map[Group]map[string]decimal.Decimal
	TransferNet map[string]decimal.Decimal
	Refs        map[Group]map[NameRef]decimal.Decimal
	RefNet      map[NameRef]decimal.Decimal
}

func newBucket(start time.Time) *TimeBucket {
	return &TimeBucket{
		PeriodStart: start,
		Totals:      make(map[Group]decimal.Decimal, len(Groups)),
		Sums:        make(map[Group]map[string]decimal.Decimal, len(Groups)),
		TransferNet: make(map[string]decimal.Decimal),
		Refs:        make(map[Group]map[NameRef]decimal.Decimal, len(Groups)),
		RefNet:      make(map[NameRef]decimal.Decimal),
	}
}

// Total returns the bucket total for a group, zero when absent.
func (b TimeBucket) Total(g Group) decimal.Decimal {
	return b.Totals[g]
}

// Sum returns the magnitude recorded under a raw category name.
func (b TimeBucket) Sum(g Group, name string) decimal.Decimal {
	return b.Sums[g][name]
}

// GroupOf classifies a transaction. Transfers are recognised by their main
// category before the transaction type is looked at. Types other than
// income and expense belong to no group.
func GroupOf(tx core.Transaction) (Group, bool) {
	if tx.IsTransfer() {
		return GroupTransfers, true
	}
	switch core.TransactionType(strings.ToLower(strings.TrimSpace(string(tx.Type)))) {
	case core.Income:
		return GroupIncome, true
	case core.Expense:
		return GroupExpenses, true
	default:
		return "", false
	}
}

// PeriodStart returns the start of the period containing t, built from the
// calendar fields of t as written.
func PeriodStart(t time.Time, g Granularity) time.Time {
	y, m, d := t.Date()
	switch g {
	case Quarter:
		return time.Date(y, ((m-1)/3)*3+1, 1, 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// Aggregate buckets transactions by period. Unbucketable transactions and
// transactions outside every group are skipped. The result is ascending by
// period start with one bucket per period.
func Aggregate(txs []core.Transaction, g Granularity) []TimeBucket {
	index := make(map[int64]*TimeBucket)
	for _, tx := range txs {
		if !tx.Bucketable() {
			continue
		}
		group, ok := GroupOf(tx)
		if !ok {
			continue
		}

		start := PeriodStart(tx.PostedAt, g)
		b, ok := index[start.Unix()]
		if !ok {
			b = newBucket(start)
			index[start.Unix()] = b
		}

		mag := tx.Magnitude()
		ref := refOf(tx)
		name := ref.Name
		b.Totals[group] = b.Totals[group].Add(mag)
		sums := b.Sums[group]
		if sums == nil {
			sums = make(map[string]decimal.Decimal)
			b.Sums[group] = sums
		}
		sums[name] = sums[name].Add(mag)
		refs := b.Refs[group]
		if refs == nil {
			refs = make(map[NameRef]decimal.Decimal)
			b.Refs[group] = refs
		}
		refs[ref] = refs[ref].Add(mag)
		if group == GroupTransfers {
			b.TransferNet[name] = b.TransferNet[name].Add(tx.Amount)
			b.RefNet[ref] = b.RefNet[ref].Add(tx.Amount)
		}
	}

	out := make([]TimeBucket, 0, len(index))
	for _, b := range index {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b TimeBucket) int {
		return a.PeriodStart.Compare(b.PeriodStart)
	})
	return out
}

// DateRange returns the earliest and latest posting dates among the
// bucketable transactions. ok is false when there are none.
func DateRange(txs []core.Transaction) (start, end time.Time, ok bool) {
	for _, tx := range txs {
		if !tx.Bucketable() {
			continue
		}
		if !ok || tx.PostedAt.Before(start) {
			start = tx.PostedAt
		}
		if !ok || tx.PostedAt.After(end) {
			end = tx.PostedAt
		}
		ok = true
	}
	return start, end, ok
}

// Unbucketable counts transactions that Aggregate will skip because of a
// missing date or malformed amount.
func Unbucketable(txs []core.Transaction) int {
	n := 0
	for _, tx := range txs {
		if !tx.Bucketable() {
			n++
		}
	}
	return n
}
