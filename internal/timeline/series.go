package timeline

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Stack identifies one independently stacked band set.
type Stack string

const (
	StackIncome       Stack = "income"
	StackExpenses     Stack = "expenses"
	StackTransfersIn  Stack = "transfers-in"
	StackTransfersOut Stack = "transfers-out"
)

// LabeledBucket is a bucket after visibility filtering: raw category names
// are replaced by display labels and hidden amounts are dropped. Totals are
// copied from the bucket unfiltered.
type LabeledBucket struct {
	PeriodStart time.Time
	Totals      map[Group]decimal.Decimal
	Amounts     map[Group]map[string]decimal.Decimal
	TransferNet map[string]decimal.Decimal
	Labels      map[string]Label
}

// Amount returns the visible magnitude for a display name.
func (lb LabeledBucket) Amount(g Group, name string) decimal.Decimal {
	return lb.Amounts[g][name]
}

// LabelBuckets filters and relabels every bucket through vis.
func LabelBuckets(buckets []TimeBucket, vis *Visibility) []LabeledBucket {
	out := make([]LabeledBucket, 0, len(buckets))
	for _, b := range buckets {
		lb := LabeledBucket{
			PeriodStart: b.PeriodStart,
			Totals:      b.Totals,
			Amounts:     make(map[Group]map[string]decimal.Decimal, len(Groups)),
			TransferNet: make(map[string]decimal.Decimal),
			Labels:      make(map[string]Label),
		}
		for _, g := range Groups {
			for ref, mag := range b.Refs[g] {
				label, ok := vis.ResolveUnder(g, ref.Category, ref.Name)
				if !ok {
					continue
				}
				amounts := lb.Amounts[g]
				if amounts == nil {
					amounts = make(map[string]decimal.Decimal)
					lb.Amounts[g] = amounts
				}
				amounts[label.Name] = amounts[label.Name].Add(mag)
				if g == GroupTransfers {
					lb.TransferNet[label.Name] = lb.TransferNet[label.Name].Add(b.RefNet[ref])
				}
				// Two nodes can share a display name; keep the lowest id so
				// the styling does not depend on map order.
				key := labelKey(g, label.Name)
				if prev, seen := lb.Labels[key]; !seen || label.ID < prev.ID {
					lb.Labels[key] = label
				}
			}
		}
		out = append(out, lb)
	}
	return out
}

func labelKey(g Group, name string) string {
	return string(g) + "\x00" + name
}

// LabelFor returns the label recorded for a display name in any bucket.
func LabelFor(labeled []LabeledBucket, g Group, name string) (Label, bool) {
	key := labelKey(g, name)
	for _, lb := range labeled {
		if l, ok := lb.Labels[key]; ok {
			return l, true
		}
	}
	return Label{}, false
}

// Point is one vertex of a series. X is Unix milliseconds.
type Point struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

// Series is one band of a stacked area chart. Each point is the top edge
// of the band, so the band's thickness at a period is the difference from
// the series below it.
type Series struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Data      []Point `json:"data"`
	Color     string  `json:"color"`
	Category  string  `json:"category"`
	Group     Group   `json:"group"`
	Stack     Stack   `json:"stack"`
	Breakdown string  `json:"breakdown"`
	Icon      string  `json:"icon,omitempty"`
	Orphan    bool    `json:"orphan,omitempty"`

	values []decimal.Decimal
}

// Values returns the exact cumulative values behind Data.
func (s Series) Values() []decimal.Decimal {
	return slices.Clone(s.values)
}

type entry struct {
	name  string
	total decimal.Decimal
}

// BuildSeries stacks the labeled buckets of one breakdown key.
//
// Within each stack, categories are ordered by total magnitude descending,
// then by name. One running value starts at zero and is carried through
// every category and every period: each emitted point is the running value
// after adding that category's amount for that period. Income grows upward,
// expenses downward. Transfer categories are split by the sign of their net
// total into two stacks that each accumulate signed amounts.
func BuildSeries(key string, labeled []LabeledBucket) []Series {
	var out []Series

	out = append(out, stack(key, labeled, GroupIncome, StackIncome,
		magnitudes(labeled, GroupIncome),
		func(lb LabeledBucket, name string) decimal.Decimal { return lb.Amount(GroupIncome, name) })...)

	out = append(out, stack(key, labeled, GroupExpenses, StackExpenses,
		magnitudes(labeled, GroupExpenses),
		func(lb LabeledBucket, name string) decimal.Decimal { return lb.Amount(GroupExpenses, name).Neg() })...)

	in, outgoing := transferEntries(labeled)
	net := func(lb LabeledBucket, name string) decimal.Decimal { return lb.TransferNet[name] }
	out = append(out, stack(key, labeled, GroupTransfers, StackTransfersIn, in, net)...)
	out = append(out, stack(key, labeled, GroupTransfers, StackTransfersOut, outgoing, net)...)

	return out
}

func stack(key string, labeled []LabeledBucket, g Group, st Stack, entries []entry, delta func(LabeledBucket, string) decimal.Decimal) []Series {
	sortEntries(entries)
	out := make([]Series, 0, len(entries))
	running := decimal.Zero
	for _, e := range entries {
		s := Series{
			Name:      seriesName(key, e.name),
			Type:      "area",
			Category:  e.name,
			Group:     g,
			Stack:     st,
			Breakdown: key,
			Data:      make([]Point, 0, len(labeled)),
			values:    make([]decimal.Decimal, 0, len(labeled)),
		}
		if l, ok := LabelFor(labeled, g, e.name); ok {
			s.Color, s.Icon, s.Orphan = l.Color, l.Icon, l.Orphan
		}
		for _, lb := range labeled {
			running = running.Add(delta(lb, e.name))
			s.values = append(s.values, running)
			s.Data = append(s.Data, Point{X: lb.PeriodStart.UnixMilli(), Y: running.InexactFloat64()})
		}
		out = append(out, s)
	}
	return out
}

func seriesName(key, display string) string {
	if key == AllKey {
		return display
	}
	return display + " (" + key + ")"
}

func magnitudes(labeled []LabeledBucket, g Group) []entry {
	totals := make(map[string]decimal.Decimal)
	for _, lb := range labeled {
		for name, v := range lb.Amounts[g] {
			totals[name] = totals[name].Add(v)
		}
	}
	out := make([]entry, 0, len(totals))
	for name, total := range totals {
		if total.IsZero() {
			continue
		}
		out = append(out, entry{name: name, total: total})
	}
	return out
}

// transferEntries splits transfer categories by the sign of their net
// total. Categories that moved money but net to zero go with the inflows.
func transferEntries(labeled []LabeledBucket) (in, out []entry) {
	moved := make(map[string]bool)
	net := make(map[string]decimal.Decimal)
	for _, lb := range labeled {
		for name, v := range lb.Amounts[GroupTransfers] {
			if !v.IsZero() {
				moved[name] = true
			}
			net[name] = net[name].Add(lb.TransferNet[name])
		}
	}
	for name := range moved {
		e := entry{name: name, total: net[name].Abs()}
		if net[name].IsNegative() {
			out = append(out, e)
		} else {
			in = append(in, e)
		}
	}
	return in, out
}

func sortEntries(entries []entry) {
	slices.SortFunc(entries, func(a, b entry) int {
		if c := b.total.Cmp(a.total); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
}
