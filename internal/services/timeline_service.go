package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/sheets"
	"finboard/internal/taxonomy"
	"finboard/internal/timeline"

	"golang.org/x/sync/errgroup"
)

// ErrKeyRejected is returned when a breakdown key toggle is refused,
// either because the key is unknown or it is the last selected one.
var ErrKeyRejected = errors.New("breakdown key toggle rejected")

// Source is the dataset backend the service reads from.
type Source interface {
	sheets.TransactionSource
	sheets.CategorySource
}

// Status describes the loaded dataset.
type Status struct {
	Loaded       bool      `json:"loaded"`
	Version      uint64    `json:"version"`
	Transactions int       `json:"transactions"`
	Skipped      int       `json:"skipped"`
	Nodes        int       `json:"nodes"`
	LastReload   time.Time `json:"last_reload"`
	LastError    string    `json:"last_error,omitempty"`
}

// TimelineService owns the single timeline view. The view is not safe for
// concurrent use, so every access goes through mu.
type TimelineService struct {
	source Source
	logger *log.Logger
	events *log.StructuredLogger

	mu     sync.Mutex
	view   *timeline.View
	status Status
}

func NewTimelineService(source Source, cache timeline.BucketCache, logger *log.Logger) *TimelineService {
	if logger == nil {
		logger = log.Nop()
	}
	var opts []timeline.Option
	if cache != nil {
		opts = append(opts, timeline.WithBucketCache(cache))
	}
	logger = logger.WithComponent(log.ComponentTimeline)
	return &TimelineService{
		source: source,
		logger: logger,
		events: log.NewStructuredLogger(logger),
		view:   timeline.NewView(nil, nil, opts...),
	}
}

// Reload fetches the tree and transactions concurrently and swaps them into
// the view. On failure the previous dataset stays in place. Visibility is
// kept when the tree is structurally unchanged.
func (s *TimelineService) Reload(ctx context.Context) error {
	start := time.Now()
	var (
		tree *taxonomy.Tree
		txs  []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.source.CategoryTree(gctx)
		if err != nil {
			return fmt.Errorf("load category tree: %w", err)
		}
		tree = t
		return nil
	})
	g.Go(func() error {
		list, err := s.source.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		txs = list
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.status.LastError = err.Error()
		s.events.LogError(ctx, "Dataset reload failed", err, log.ComponentTimeline, log.OpReload, nil)
		return err
	}

	if !s.status.Loaded || !reflect.DeepEqual(s.view.Tree().Nested(), tree.Nested()) {
		s.view.ReloadTree(tree)
	}
	s.view.SetTransactions(txs)

	skipped := timeline.Unbucketable(txs)
	s.status = Status{
		Loaded:       true,
		Version:      s.view.Version(),
		Transactions: len(txs),
		Skipped:      skipped,
		Nodes:        tree.Len(),
		LastReload:   time.Now(),
	}

	fields := log.NewFields().
		WithDataset(s.status.Version, len(txs), skipped).
		WithOperation(log.OpReload)
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	s.logger.InfoContext(ctx, "Dataset reloaded", fields.ToSlice()...)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "Transactions excluded from buckets", log.FieldSkipped, skipped)
	}
	return nil
}

// Status reports the current dataset state.
func (s *TimelineService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Ready reports whether at least one reload has succeeded.
func (s *TimelineService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Loaded
}

func (s *TimelineService) Chart() timeline.ChartPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Chart()
}

func (s *TimelineService) Inspection() *timeline.Inspection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Inspection()
}

func (s *TimelineService) Visibility() timeline.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Visibility()
}

// apply runs fn against the view and returns the resulting chart.
func (s *TimelineService) apply(ctx context.Context, op string, fn func(v *timeline.View) error) (timeline.ChartPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.view); err != nil {
		return timeline.ChartPayload{}, err
	}
	chart := s.view.Chart()
	s.events.LogTimelineChange(ctx, op, chart.Granularity.String(), chart.Level, string(chart.Mode))
	return chart, nil
}

func (s *TimelineService) ToggleType(ctx context.Context, id int64) (timeline.ChartPayload, error) {
	return s.apply(ctx, log.OpToggle, func(v *timeline.View) error { return v.ToggleType(id) })
}

func (s *TimelineService) ToggleCategory(ctx context.Context, id int64) (timeline.ChartPayload, error) {
	return s.apply(ctx, log.OpToggle, func(v *timeline.View) error { return v.ToggleCategory(id) })
}

func (s *TimelineService) ToggleSubcategory(ctx context.Context, id int64) (timeline.ChartPayload, error) {
	return s.apply(ctx, log.OpToggle, func(v *timeline.View) error { return v.ToggleSubcategory(id) })
}

func (s *TimelineService) ToggleCategoryExpanded(ctx context.Context, id int64) (timeline.ChartPayload, error) {
	return s.apply(ctx, log.OpToggle, func(v *timeline.View) error { return v.ToggleCategoryExpanded(id) })
}

// ZoomIn, ZoomOut and ResetZoom report whether the level changed.
func (s *TimelineService) ZoomIn(ctx context.Context) (timeline.ChartPayload, bool) {
	return s.zoom(ctx, (*timeline.View).ZoomIn)
}

func (s *TimelineService) ZoomOut(ctx context.Context) (timeline.ChartPayload, bool) {
	return s.zoom(ctx, (*timeline.View).ZoomOut)
}

func (s *TimelineService) ResetZoom(ctx context.Context) (timeline.ChartPayload, bool) {
	return s.zoom(ctx, (*timeline.View).ResetZoom)
}

func (s *TimelineService) zoom(ctx context.Context, fn func(*timeline.View) bool) (timeline.ChartPayload, bool) {
	var changed bool
	chart, _ := s.apply(ctx, log.OpZoom, func(v *timeline.View) error {
		changed = fn(v)
		return nil
	})
	return chart, changed
}

func (s *TimelineService) SetBreakdownMode(ctx context.Context, raw string) (timeline.ChartPayload, error) {
	mode, err := timeline.ParseMode(raw)
	if err != nil {
		return timeline.ChartPayload{}, err
	}
	return s.apply(ctx, "breakdown", func(v *timeline.View) error {
		v.SetBreakdownMode(mode)
		return nil
	})
}

func (s *TimelineService) ToggleBreakdownKey(ctx context.Context, key string) (timeline.ChartPayload, error) {
	return s.apply(ctx, "breakdown", func(v *timeline.View) error {
		if !v.ToggleBreakdownKey(key) {
			return fmt.Errorf("%w: %q", ErrKeyRejected, key)
		}
		return nil
	})
}

// PointerMove, PointerClick, PointerLeave and Unpin return the resulting
// inspection, nil when nothing is highlighted.
func (s *TimelineService) PointerMove(i int) (*timeline.Inspection, error) {
	return s.pointer(func(v *timeline.View) error { return v.PointerMove(i) })
}

func (s *TimelineService) PointerClick(i int) (*timeline.Inspection, error) {
	return s.pointer(func(v *timeline.View) error { return v.PointerClick(i) })
}

func (s *TimelineService) PointerLeave() *timeline.Inspection {
	in, _ := s.pointer(func(v *timeline.View) error {
		v.PointerLeave()
		return nil
	})
	return in
}

func (s *TimelineService) Unpin() *timeline.Inspection {
	in, _ := s.pointer(func(v *timeline.View) error {
		v.Unpin()
		return nil
	})
	return in
}

func (s *TimelineService) pointer(fn func(v *timeline.View) error) (*timeline.Inspection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.view); err != nil {
		return nil, err
	}
	return s.view.Inspection(), nil
}
