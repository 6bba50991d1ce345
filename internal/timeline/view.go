package timeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/taxonomy"
)

// ErrBucketOutOfRange is returned for pointer events on a missing bucket.
var ErrBucketOutOfRange = errors.New("bucket index out of range")

// BucketKey identifies one aggregation result.
type BucketKey struct {
	Version     uint64
	Granularity Granularity
	Mode        Mode
	Scope       string
}

// BucketCache memoizes aggregation. Cached slices are never modified.
type BucketCache interface {
	Get(key BucketKey) ([]TimeBucket, bool)
	Put(key BucketKey, buckets []TimeBucket)
}

// View is the state of one timeline chart: the dataset, the tree, and the
// visibility, zoom, hover and breakdown selections over them. A View is not
// safe for concurrent use.
type View struct {
	tree      *taxonomy.Tree
	txs       []core.Transaction
	version   uint64
	vis       *Visibility
	zoom      Zoom
	hover     Hover
	breakdown *Breakdown
	cache     BucketCache
}

// Option configures a View.
type Option func(*View)

// WithBucketCache memoizes aggregation results in c.
func WithBucketCache(c BucketCache) Option {
	return func(v *View) { v.cache = c }
}

// NewView creates a view with everything visible, zoomed out, idle, and
// in ModeAll.
func NewView(tree *taxonomy.Tree, txs []core.Transaction, opts ...Option) *View {
	v := &View{
		tree:      tree,
		txs:       txs,
		version:   1,
		vis:       NewVisibility(tree),
		breakdown: NewBreakdown(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ReloadTree swaps the category tree and resets visibility to all visible.
func (v *View) ReloadTree(tree *taxonomy.Tree) {
	v.tree = tree
	v.vis.Initialize(tree)
	v.hover.Clear()
}

// SetTransactions replaces the dataset. Breakdown keys that vanished are
// deselected and any highlight is cleared.
func (v *View) SetTransactions(txs []core.Transaction) {
	v.txs = txs
	v.version++
	v.breakdown.Refresh(txs)
	v.hover.Clear()
}

// Version increases every time the dataset is replaced.
func (v *View) Version() uint64 { return v.version }

func (v *View) Tree() *taxonomy.Tree { return v.tree }

func (v *View) Transactions() []core.Transaction { return v.txs }

// Visibility returns the current visibility sets.
func (v *View) Visibility() Snapshot { return v.vis.Snapshot() }

func (v *View) ToggleType(id int64) error { return v.vis.ToggleType(id) }
func (v *View) ToggleCategory(id int64) error { return v.vis.ToggleCategory(id) }
func (v *View) ToggleSubcategory(id int64) error { return v.vis.ToggleSubcategory(id) }
func (v *View) ToggleCategoryExpanded(id int64) error { return v.vis.ToggleCategoryExpanded(id) }

// ZoomIn, ZoomOut and ResetZoom always leave the hover state idle since
// bucket indices change meaning with the granularity.
func (v *View) ZoomIn() bool {
	v.hover.Clear()
	return v.zoom.In()
}

func (v *View) ZoomOut() bool {
	v.hover.Clear()
	return v.zoom.Out()
}

func (v *View) ResetZoom() bool {
	v.hover.Clear()
	return v.zoom.Reset()
}

func (v *View) ZoomLevel() int { return v.zoom.Level() }

// SetBreakdownMode switches mode, selecting every available key.
func (v *View) SetBreakdownMode(mode Mode) {
	v.breakdown.SetMode(mode, v.txs)
	v.hover.Clear()
}

// ToggleBreakdownKey flips one key; it reports false when the toggle was
// rejected.
func (v *View) ToggleBreakdownKey(key string) bool {
	if !v.breakdown.Toggle(key) {
		return false
	}
	v.hover.Clear()
	return true
}

func (v *View) BreakdownMode() Mode { return v.breakdown.Mode() }

func (v *View) BreakdownKeys() (selected, available []string) {
	return v.breakdown.Selected(), v.breakdown.Available()
}

// PointerMove highlights bucket i of the combined selection.
func (v *View) PointerMove(i int) error {
	if err := v.checkBucket(i); err != nil {
		return err
	}
	v.hover.Move(i)
	return nil
}

func (v *View) PointerLeave() { v.hover.Leave() }

// PointerClick pins or unpins bucket i of the combined selection.
func (v *View) PointerClick(i int) error {
	if err := v.checkBucket(i); err != nil {
		return err
	}
	v.hover.Click(i)
	return nil
}

func (v *View) Unpin() { v.hover.Unpin() }

// Hover returns the hover phase and highlighted bucket.
func (v *View) Hover() (state HoverState, index int, ok bool) {
	i, ok := v.hover.Index()
	return v.hover.State(), i, ok
}

func (v *View) checkBucket(i int) error {
	if n := len(v.unionBuckets()); i < 0 || i >= n {
		return fmt.Errorf("bucket %d of %d: %w", i, n, ErrBucketOutOfRange)
	}
	return nil
}

// Inspection returns the detail of the highlighted bucket, or nil when idle.
func (v *View) Inspection() *Inspection {
	i, ok := v.hover.Index()
	if !ok {
		return nil
	}
	labeled := LabelBuckets(v.unionBuckets(), v.vis)
	return Inspect(labeled, i, v.zoom.Granularity())
}

// BucketSummary describes one bucket the pointer can address.
type BucketSummary struct {
	Index      int             `json:"index"`
	X          int64           `json:"x"`
	PeriodName string          `json:"period_name"`
	Income     decimal.Decimal `json:"income"`
	Expenses   decimal.Decimal `json:"expenses"`
	Transfers  decimal.Decimal `json:"transfers"`
}

// MarshalJSON writes the totals as JSON numbers.
func (b BucketSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index      int             `json:"index"`
		X          int64           `json:"x"`
		PeriodName string          `json:"period_name"`
		Income     json.RawMessage `json:"income"`
		Expenses   json.RawMessage `json:"expenses"`
		Transfers  json.RawMessage `json:"transfers"`
	}{b.Index, b.X, b.PeriodName, number(b.Income), number(b.Expenses), number(b.Transfers)})
}

// ChartPayload is everything a stacked-area renderer needs for one frame.
type ChartPayload struct {
	Series        []Series        `json:"series"`
	Window        *DateWindow     `json:"window"`
	Level         int             `json:"level"`
	Granularity   Granularity     `json:"granularity"`
	Mode          Mode            `json:"mode"`
	Keys          []string        `json:"keys"`
	AvailableKeys []string        `json:"available_keys"`
	Buckets       []BucketSummary `json:"buckets"`
	Hover         HoverState      `json:"hover"`
	HoverIndex    *int            `json:"hover_index"`
}

// Chart recomputes every series from scratch for the current state.
func (v *View) Chart() ChartPayload {
	g := v.zoom.Granularity()
	mode := v.breakdown.Mode()
	selected := v.breakdown.Selected()

	payload := ChartPayload{
		Series:        []Series{},
		Level:         v.zoom.Level(),
		Granularity:   g,
		Mode:          mode,
		Keys:          selected,
		AvailableKeys: v.breakdown.Available(),
		Buckets:       []BucketSummary{},
		Hover:         v.hover.State(),
	}
	if i, ok := v.hover.Index(); ok {
		payload.HoverIndex = &i
	}
	if start, end, ok := DateRange(v.txs); ok {
		w := v.zoom.Window(start, end)
		payload.Window = &w
	}

	subsets := Partition(v.txs, mode, selected)
	for _, key := range selected {
		labeled := LabelBuckets(v.buckets(key, subsets[key]), v.vis)
		payload.Series = append(payload.Series, BuildSeries(key, labeled)...)
	}

	union := LabelBuckets(v.unionBuckets(), v.vis)
	for i, lb := range union {
		payload.Buckets = append(payload.Buckets, BucketSummary{
			Index:      i,
			X:          lb.PeriodStart.UnixMilli(),
			PeriodName: PeriodName(lb, g),
			Income:     lb.Totals[GroupIncome],
			Expenses:   lb.Totals[GroupExpenses],
			Transfers:  lb.Totals[GroupTransfers],
		})
	}
	return payload
}

// unionBuckets aggregates the union of the selected subsets. Hover indices
// address these buckets.
func (v *View) unionBuckets() []TimeBucket {
	mode := v.breakdown.Mode()
	selected := v.breakdown.Selected()
	if mode == ModeAll || len(selected) == 1 {
		scope := AllKey
		if mode != ModeAll {
			scope = selected[0]
		}
		subsets := Partition(v.txs, mode, selected)
		return v.buckets(scope, subsets[scope])
	}

	subsets := Partition(v.txs, mode, selected)
	var txs []core.Transaction
	for _, key := range selected {
		txs = append(txs, subsets[key]...)
	}
	return v.buckets("union:"+strings.Join(selected, "|"), txs)
}

func (v *View) buckets(scope string, txs []core.Transaction) []TimeBucket {
	key := BucketKey{Version: v.version, Granularity: v.zoom.Granularity(), Mode: v.breakdown.Mode(), Scope: scope}
	if v.cache != nil {
		if b, ok := v.cache.Get(key); ok {
			return b
		}
	}
	b := Aggregate(txs, key.Granularity)
	if v.cache != nil {
		v.cache.Put(key, b)
	}
	return b
}
