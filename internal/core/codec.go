package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// transactionWire mirrors the transaction service's JSON shape.
type transactionWire struct {
	ID              json.RawMessage `json:"id"`
	PostedAt        *string         `json:"posted_at"`
	Amount          json.RawMessage `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	MainCategory    string          `json:"main_category"`
	Category        *string         `json:"category"`
	Subcategory     *string         `json:"subcategory"`
	Owner           *string         `json:"owner"`
	BankAccountType *string         `json:"bank_account_type"`
}

// UnmarshalJSON decodes one transaction. A malformed date or amount never
// fails the decode; the transaction is kept but excluded from bucketing.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w transactionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode transaction: %w", err)
	}

	*t = Transaction{
		ID:              rawString(w.ID),
		Type:            TransactionType(strings.ToLower(strings.TrimSpace(w.TransactionType))),
		MainCategory:    w.MainCategory,
		Category:        deref(w.Category),
		Subcategory:     deref(w.Subcategory),
		Owner:           deref(w.Owner),
		BankAccountType: deref(w.BankAccountType),
	}

	if w.PostedAt != nil {
		if ts, err := ParsePostedAt(*w.PostedAt); err == nil {
			t.PostedAt = ts
		}
	}

	amount, err := ParseAmount(rawString(w.Amount))
	if err != nil {
		t.MarkInvalid()
	} else {
		t.Amount = amount
	}
	return nil
}

// MarshalJSON encodes the transaction in the transaction service's shape.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := struct {
		ID              string  `json:"id"`
		PostedAt        *string `json:"posted_at"`
		Amount          string  `json:"amount"`
		TransactionType string  `json:"transaction_type"`
		MainCategory    string  `json:"main_category"`
		Category        *string `json:"category"`
		Subcategory     *string `json:"subcategory"`
		Owner           *string `json:"owner"`
		BankAccountType *string `json:"bank_account_type"`
	}{
		ID:              t.ID,
		Amount:          t.Amount.String(),
		TransactionType: string(t.Type),
		MainCategory:    t.MainCategory,
		Category:        nullable(t.Category),
		Subcategory:     nullable(t.Subcategory),
		Owner:           nullable(t.Owner),
		BankAccountType: nullable(t.BankAccountType),
	}
	if !t.PostedAt.IsZero() {
		s := t.PostedAt.Format("2006-01-02T15:04:05")
		out.PostedAt = &s
	}
	return json.Marshal(out)
}

// DecodeTransactions decodes a JSON array of transactions.
func DecodeTransactions(data []byte) ([]Transaction, error) {
	var txs []Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txs, nil
}

func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
