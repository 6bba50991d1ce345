package timeline

import (
	"fmt"
	"slices"
	"strings"

	"finboard/internal/core"
)

// Mode selects how transactions are split into independent series sets.
type Mode string

const (
	ModeAll     Mode = "all"
	ModeOwner   Mode = "owner"
	ModeAccount Mode = "account"
)

// AllKey is the single breakdown key of ModeAll.
const AllKey = "all"

// ParseMode validates a breakdown mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAll, ModeOwner, ModeAccount:
		return m, nil
	default:
		return "", fmt.Errorf("unknown breakdown mode %q", s)
	}
}

// BreakdownKey returns the key a transaction is filed under. ok is false
// when the transaction lacks a field the mode needs.
func BreakdownKey(tx core.Transaction, mode Mode) (string, bool) {
	owner := strings.TrimSpace(tx.Owner)
	switch mode {
	case ModeOwner:
		return owner, owner != ""
	case ModeAccount:
		account := strings.TrimSpace(tx.BankAccountType)
		if owner == "" || account == "" {
			return "", false
		}
		return owner + "_" + account, true
	default:
		return AllKey, true
	}
}

// AvailableKeys lists the distinct keys present in txs, sorted ascending.
func AvailableKeys(txs []core.Transaction, mode Mode) []string {
	if mode == ModeAll {
		return []string{AllKey}
	}
	seen := make(map[string]struct{})
	for _, tx := range txs {
		if k, ok := BreakdownKey(tx, mode); ok {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Partition splits txs by breakdown key, keeping only the selected keys.
// ModeAll ignores selected and returns every transaction under AllKey.
func Partition(txs []core.Transaction, mode Mode, selected []string) map[string][]core.Transaction {
	if mode == ModeAll {
		return map[string][]core.Transaction{AllKey: txs}
	}
	want := make(map[string]bool, len(selected))
	for _, k := range selected {
		want[k] = true
	}
	out := make(map[string][]core.Transaction, len(selected))
	for _, tx := range txs {
		k, ok := BreakdownKey(tx, mode)
		if !ok || !want[k] {
			continue
		}
		out[k] = append(out[k], tx)
	}
	return out
}

// Breakdown is the mode plus the set of keys currently selected.
// Once a key is selected the selection never becomes empty again.
type Breakdown struct {
	mode      Mode
	available []string
	selected  map[string]bool
}

// NewBreakdown starts in ModeAll.
func NewBreakdown() *Breakdown {
	return &Breakdown{
		mode:      ModeAll,
		available: []string{AllKey},
		selected:  map[string]bool{AllKey: true},
	}
}

// SetMode switches mode and selects every key available in txs.
func (b *Breakdown) SetMode(mode Mode, txs []core.Transaction) {
	b.mode = mode
	b.available = AvailableKeys(txs, mode)
	b.selected = make(map[string]bool, len(b.available))
	for _, k := range b.available {
		b.selected[k] = true
	}
}

// Refresh recomputes the available keys after the transactions changed.
// Selected keys that disappeared are dropped; if none survive, every
// available key is selected.
func (b *Breakdown) Refresh(txs []core.Transaction) {
	available := AvailableKeys(txs, b.mode)
	kept := make(map[string]bool, len(available))
	for _, k := range available {
		if b.selected[k] {
			kept[k] = true
		}
	}
	if len(kept) == 0 {
		for _, k := range available {
			kept[k] = true
		}
	}
	b.available = available
	b.selected = kept
}

// Toggle flips one key. It returns false and leaves the selection alone
// when the key is unknown or is the last one selected.
func (b *Breakdown) Toggle(key string) bool {
	if b.mode == ModeAll || !slices.Contains(b.available, key) {
		return false
	}
	if b.selected[key] {
		if len(b.selected) == 1 {
			return false
		}
		delete(b.selected, key)
		return true
	}
	b.selected[key] = true
	return true
}

func (b *Breakdown) Mode() Mode { return b.mode }

// Available returns the keys that can be selected, sorted.
func (b *Breakdown) Available() []string {
	return slices.Clone(b.available)
}

// Selected returns the selected keys in available order.
func (b *Breakdown) Selected() []string {
	out := make([]string, 0, len(b.selected))
	for _, k := range b.available {
		if b.selected[k] {
			out = append(out, k)
		}
	}
	return out
}
