package timeline

import (
	"errors"
	"slices"
	"testing"

	"finboard/internal/taxonomy"
)

func TestInitializeMakesEverythingVisible(t *testing.T) {
	tree := sampleTree(t)
	vis := NewVisibility(tree)
	snap := vis.Snapshot()

	if !slices.Equal(snap.Types, []int64{1, 2, 3, 4}) {
		t.Errorf("Types = %v", snap.Types)
	}
	if !slices.Equal(snap.Categories, []int64{5, 6, 10, 30, 31}) {
		t.Errorf("Categories = %v", snap.Categories)
	}
	if !slices.Equal(snap.Subcategories, []int64{51, 52, 61}) {
		t.Errorf("Subcategories = %v", snap.Subcategories)
	}
	if len(snap.Expanded) != 0 {
		t.Errorf("Expanded = %v, want none", snap.Expanded)
	}
}

func TestToggleCascades(t *testing.T) {
	vis := NewVisibility(sampleTree(t))

	if err := vis.ToggleType(2); err != nil {
		t.Fatalf("ToggleType() error = %v", err)
	}
	for _, id := range []int64{5, 6} {
		if vis.IsCategoryVisible(id) {
			t.Errorf("category %d still visible after hiding its type", id)
		}
	}
	for _, id := range []int64{51, 52, 61} {
		if vis.IsSubcategoryVisible(id) {
			t.Errorf("subcategory %d still visible after hiding its type", id)
		}
	}
	if !vis.IsCategoryVisible(10) {
		t.Error("category of another type was hidden")
	}

	if err := vis.ToggleType(2); err != nil {
		t.Fatalf("ToggleType() error = %v", err)
	}
	if !vis.IsCategoryVisible(5) || !vis.IsSubcategoryVisible(52) {
		t.Error("showing the type did not restore its descendants")
	}

	if err := vis.ToggleCategory(5); err != nil {
		t.Fatalf("ToggleCategory() error = %v", err)
	}
	if vis.IsSubcategoryVisible(51) || vis.IsSubcategoryVisible(52) {
		t.Error("hiding a category left its subcategories visible")
	}
	if !vis.IsSubcategoryVisible(61) {
		t.Error("hiding Food hid a Housing subcategory")
	}
}

func TestToggleTypeOnRestoresHiddenDescendants(t *testing.T) {
	vis := NewVisibility(sampleTree(t))
	_ = vis.ToggleCategory(5)
	_ = vis.ToggleSubcategory(61)
	_ = vis.ToggleCategoryExpanded(6)

	_ = vis.ToggleType(2)
	_ = vis.ToggleType(2)

	// A type turned back on shows its whole subtree, including nodes that
	// were hidden before it was turned off.
	for _, id := range []int64{5, 6} {
		if !vis.IsCategoryVisible(id) {
			t.Errorf("category %d hidden after type round trip", id)
		}
	}
	for _, id := range []int64{51, 52, 61} {
		if !vis.IsSubcategoryVisible(id) {
			t.Errorf("subcategory %d hidden after type round trip", id)
		}
	}
	if !vis.IsExpanded(6) {
		t.Error("type round trip changed expansion")
	}
}

func TestToggleExpandedLeavesVisibilityAlone(t *testing.T) {
	vis := NewVisibility(sampleTree(t))
	before := vis.Snapshot()

	if err := vis.ToggleCategoryExpanded(5); err != nil {
		t.Fatalf("ToggleCategoryExpanded() error = %v", err)
	}
	after := vis.Snapshot()
	if !vis.IsExpanded(5) {
		t.Error("category not expanded")
	}
	if !slices.Equal(before.Categories, after.Categories) || !slices.Equal(before.Subcategories, after.Subcategories) {
		t.Error("expansion changed visibility")
	}
}

func TestToggleRejectsWrongKind(t *testing.T) {
	vis := NewVisibility(sampleTree(t))
	tests := []struct {
		name string
		fn   func() error
	}{
		{"type toggle on category", func() error { return vis.ToggleType(5) }},
		{"category toggle on subcategory", func() error { return vis.ToggleCategory(51) }},
		{"subcategory toggle on type", func() error { return vis.ToggleSubcategory(1) }},
		{"expand unknown", func() error { return vis.ToggleCategoryExpanded(999) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, taxonomy.ErrUnknownNode) {
				t.Errorf("error = %v, want ErrUnknownNode", err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tree := sampleTree(t)

	tests := []struct {
		name     string
		setup    func(v *Visibility)
		group    Group
		raw      string
		want     string
		wantOK   bool
		wantOrph bool
	}{
		{
			name:  "collapsed parent folds subcategory",
			group: GroupExpenses, raw: "Groceries", want: "Food", wantOK: true,
		},
		{
			name:  "collapsed parent folds hidden subcategory too",
			setup: func(v *Visibility) { _ = v.ToggleSubcategory(51) },
			group: GroupExpenses, raw: "Groceries", want: "Food", wantOK: true,
		},
		{
			name:  "expanded parent shows subcategory",
			setup: func(v *Visibility) { _ = v.ToggleCategoryExpanded(5) },
			group: GroupExpenses, raw: "Groceries", want: "Groceries", wantOK: true,
		},
		{
			name: "expanded parent hides hidden subcategory",
			setup: func(v *Visibility) {
				_ = v.ToggleCategoryExpanded(5)
				_ = v.ToggleSubcategory(51)
			},
			group: GroupExpenses, raw: "Groceries", wantOK: false,
		},
		{
			name:  "hidden parent excludes subcategory",
			setup: func(v *Visibility) { _ = v.ToggleCategory(5) },
			group: GroupExpenses, raw: "Groceries", wantOK: false,
		},
		{
			name:  "visible category",
			group: GroupIncome, raw: "Salary", want: "Salary", wantOK: true,
		},
		{
			name:  "hidden category",
			setup: func(v *Visibility) { _ = v.ToggleCategory(10) },
			group: GroupIncome, raw: "Salary", wantOK: false,
		},
		{
			name:  "unknown name becomes orphan",
			group: GroupExpenses, raw: "Legacy pets", want: "Legacy pets", wantOK: true, wantOrph: true,
		},
		{
			name:  "hidden type hides orphans",
			setup: func(v *Visibility) { _ = v.ToggleType(2) },
			group: GroupExpenses, raw: "Legacy pets", wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vis := NewVisibility(tree)
			if tt.setup != nil {
				tt.setup(vis)
			}
			got, ok := vis.Resolve(tt.group, tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Name != tt.want || got.Orphan != tt.wantOrph {
				t.Errorf("Resolve() = %+v, want name %q orphan %v", got, tt.want, tt.wantOrph)
			}
		})
	}
}

func TestResolveLabelStyling(t *testing.T) {
	vis := NewVisibility(sampleTree(t))
	_ = vis.ToggleCategoryExpanded(5)

	got, _ := vis.Resolve(GroupExpenses, "Restaurants")
	if got.Color != "#FF8800" || got.Icon != "utensils" {
		t.Errorf("Restaurants label = %+v, want parent color and icon", got)
	}
	got, _ = vis.Resolve(GroupExpenses, "Rent")
	if got.Name != "Housing" || got.Color != "#AA0000" || got.Icon != "minus" {
		t.Errorf("Rent label = %+v, want Housing with type styling", got)
	}
	got, _ = vis.Resolve(GroupExpenses, "Unknown")
	if got.Color != OrphanColor || got.Icon != OrphanIcon || got.ID != 0 {
		t.Errorf("orphan label = %+v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	vis := NewVisibility(sampleTree(t))
	c := vis.Clone()
	_ = c.ToggleCategory(5)
	if !vis.IsCategoryVisible(5) {
		t.Error("toggling a clone changed the original")
	}
}
