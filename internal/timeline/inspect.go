package timeline

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Inspection is the detail shown for the highlighted bucket. Period totals
// cover every transaction of the period; the per-category maps only list
// what is currently visible. Transfer categories carry signed net amounts.
type Inspection struct {
	Index               int                        `json:"index"`
	PeriodStart         int64                      `json:"period_start"`
	PeriodName          string                     `json:"period_name"`
	Income              decimal.Decimal            `json:"income"`
	Expenses            decimal.Decimal            `json:"expenses"`
	Transfers           decimal.Decimal            `json:"transfers"`
	Balance             decimal.Decimal            `json:"balance"`
	IncomeByCategory    map[string]decimal.Decimal `json:"income_by_category"`
	ExpensesByCategory  map[string]decimal.Decimal `json:"expenses_by_category"`
	TransfersByCategory map[string]decimal.Decimal `json:"transfers_by_category"`
}

// MarshalJSON writes amounts as JSON numbers, like the series values.
func (in Inspection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index               int                        `json:"index"`
		PeriodStart         int64                      `json:"period_start"`
		PeriodName          string                     `json:"period_name"`
		Income              json.RawMessage            `json:"income"`
		Expenses            json.RawMessage            `json:"expenses"`
		Transfers           json.RawMessage            `json:"transfers"`
		Balance             json.RawMessage            `json:"balance"`
		IncomeByCategory    map[string]json.RawMessage `json:"income_by_category"`
		ExpensesByCategory  map[string]json.RawMessage `json:"expenses_by_category"`
		TransfersByCategory map[string]json.RawMessage `json:"transfers_by_category"`
	}{
		Index:               in.Index,
		PeriodStart:         in.PeriodStart,
		PeriodName:          in.PeriodName,
		Income:              number(in.Income),
		Expenses:            number(in.Expenses),
		Transfers:           number(in.Transfers),
		Balance:             number(in.Balance),
		IncomeByCategory:    numbers(in.IncomeByCategory),
		ExpensesByCategory:  numbers(in.ExpensesByCategory),
		TransfersByCategory: numbers(in.TransfersByCategory),
	})
}

// number renders d as a JSON number literal. decimal.Decimal marshals to a
// string by default.
func number(d decimal.Decimal) json.RawMessage {
	return json.RawMessage(d.String())
}

func numbers(m map[string]decimal.Decimal) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = number(v)
	}
	return out
}

// Inspect builds the inspection for bucket idx, or nil when idx is out of
// range.
func Inspect(labeled []LabeledBucket, idx int, g Granularity) *Inspection {
	if idx < 0 || idx >= len(labeled) {
		return nil
	}
	lb := labeled[idx]
	income := lb.Totals[GroupIncome]
	expenses := lb.Totals[GroupExpenses]
	return &Inspection{
		Index:               idx,
		PeriodStart:         lb.PeriodStart.UnixMilli(),
		PeriodName:          PeriodName(lb, g),
		Income:              income,
		Expenses:            expenses,
		Transfers:           lb.Totals[GroupTransfers],
		Balance:             income.Sub(expenses),
		IncomeByCategory:    copyAmounts(lb.Amounts[GroupIncome]),
		ExpensesByCategory:  copyAmounts(lb.Amounts[GroupExpenses]),
		TransfersByCategory: copyAmounts(lb.TransferNet),
	}
}

// PeriodName formats a bucket's period for display:
// "Q1 2024", "January 2024" or "Jan 5, 2024".
func PeriodName(lb LabeledBucket, g Granularity) string {
	t := lb.PeriodStart
	switch g {
	case Quarter:
		return fmt.Sprintf("Q%d %d", (int(t.Month())-1)/3+1, t.Year())
	case Month:
		return t.Format("January 2006")
	default:
		return t.Format("Jan 2, 2006")
	}
}

func copyAmounts(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
