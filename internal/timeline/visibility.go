package timeline

import (
	"fmt"
	"slices"

	"finboard/internal/taxonomy"
)

// Orphan labels fall back to these when a name is missing from the tree.
const (
	OrphanColor = "#9E9E9E"
	OrphanIcon  = "help-circle"
)

type idSet map[int64]struct{}

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) flip(id int64) bool {
	if s.has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s idSet) set(id int64, on bool) {
	if on {
		s[id] = struct{}{}
	} else {
		delete(s, id)
	}
}

func (s idSet) sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s idSet) clone() idSet {
	out := make(idSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Visibility holds which nodes of the category tree are shown and which
// categories are expanded into their subcategories.
//
// Hiding a type hides every category and subcategory below it and showing
// it shows them all again. Categories cascade to their subcategories the
// same way. Expansion never affects inclusion.
type Visibility struct {
	tree          *taxonomy.Tree
	types         idSet
	categories    idSet
	subcategories idSet
	expanded      idSet
}

// NewVisibility returns a state with the whole tree visible.
func NewVisibility(tree *taxonomy.Tree) *Visibility {
	v := &Visibility{}
	v.Initialize(tree)
	return v
}

// Initialize makes every node of tree visible and collapses every category.
func (v *Visibility) Initialize(tree *taxonomy.Tree) {
	v.tree = tree
	v.types = make(idSet)
	v.categories = make(idSet)
	v.subcategories = make(idSet)
	v.expanded = make(idSet)
	for _, id := range tree.Types() {
		v.types[id] = struct{}{}
	}
	for _, id := range tree.Categories() {
		v.categories[id] = struct{}{}
	}
	for _, id := range tree.Subcategories() {
		v.subcategories[id] = struct{}{}
	}
}

func (v *Visibility) node(id int64, kind taxonomy.Kind) (*taxonomy.Node, error) {
	n, ok := v.tree.Node(id)
	if !ok || n.Kind != kind {
		return nil, fmt.Errorf("%s %d: %w", kind, id, taxonomy.ErrUnknownNode)
	}
	return n, nil
}

// ToggleType flips a type and cascades the new state to its descendants.
func (v *Visibility) ToggleType(id int64) error {
	if _, err := v.node(id, taxonomy.KindType); err != nil {
		return err
	}
	on := v.types.flip(id)
	for _, d := range v.tree.Descendants(id) {
		n, _ := v.tree.Node(d)
		if n.Kind == taxonomy.KindCategory {
			v.categories.set(d, on)
		} else {
			v.subcategories.set(d, on)
		}
	}
	return nil
}

// ToggleCategory flips a category and cascades to its subcategories.
func (v *Visibility) ToggleCategory(id int64) error {
	n, err := v.node(id, taxonomy.KindCategory)
	if err != nil {
		return err
	}
	on := v.categories.flip(id)
	for _, sub := range n.Children {
		v.subcategories.set(sub, on)
	}
	return nil
}

// ToggleSubcategory flips a single subcategory.
func (v *Visibility) ToggleSubcategory(id int64) error {
	if _, err := v.node(id, taxonomy.KindSubcategory); err != nil {
		return err
	}
	v.subcategories.flip(id)
	return nil
}

// ToggleCategoryExpanded flips whether a category shows its subcategories
// separately.
func (v *Visibility) ToggleCategoryExpanded(id int64) error {
	if _, err := v.node(id, taxonomy.KindCategory); err != nil {
		return err
	}
	v.expanded.flip(id)
	return nil
}

func (v *Visibility) IsTypeVisible(id int64) bool { return v.types.has(id) }
func (v *Visibility) IsCategoryVisible(id int64) bool { return v.categories.has(id) }
func (v *Visibility) IsSubcategoryVisible(id int64) bool { return v.subcategories.has(id) }
func (v *Visibility) IsExpanded(id int64) bool { return v.expanded.has(id) }

// Clone returns an independent copy sharing the same tree.
func (v *Visibility) Clone() *Visibility {
	return &Visibility{
		tree:          v.tree,
		types:         v.types.clone(),
		categories:    v.categories.clone(),
		subcategories: v.subcategories.clone(),
		expanded:      v.expanded.clone(),
	}
}

// Snapshot is the serialisable form of a Visibility.
type Snapshot struct {
	Types         []int64 `json:"visible_types"`
	Categories    []int64 `json:"visible_categories"`
	Subcategories []int64 `json:"visible_subcategories"`
	Expanded      []int64 `json:"expanded_categories"`
}

// Snapshot returns the four id sets sorted ascending.
func (v *Visibility) Snapshot() Snapshot {
	return Snapshot{
		Types:         v.types.sorted(),
		Categories:    v.categories.sorted(),
		Subcategories: v.subcategories.sorted(),
		Expanded:      v.expanded.sorted(),
	}
}

// Label is the display entry a raw category name resolves to.
type Label struct {
	ID     int64 // 0 for orphans
	Name   string
	Color  string
	Icon   string
	Orphan bool
}

// Resolve maps a raw category name found in a bucket to the label it is
// displayed under. ok is false when the amount must be excluded.
//
// Names missing from the tree become orphan labels so mis-tagged data stays
// visible, unless the whole group's type is hidden.
func (v *Visibility) Resolve(group Group, raw string) (Label, bool) {
	return v.ResolveUnder(group, "", raw)
}

// ResolveUnder is Resolve for a name recorded below category. A
// subcategory of that category is preferred over same-named nodes
// elsewhere in the group.
func (v *Visibility) ResolveUnder(group Group, category, raw string) (Label, bool) {
	typeNode, hasType := v.tree.TypeByCode(group.TypeCode())
	if hasType && !v.types.has(typeNode.ID) {
		return Label{}, false
	}

	n, ok := v.tree.ResolveUnder(group.TypeCode(), category, raw)
	if !ok {
		return Label{Name: raw, Color: OrphanColor, Icon: OrphanIcon, Orphan: true}, true
	}

	switch n.Kind {
	case taxonomy.KindSubcategory:
		parent, _ := v.tree.Parent(n)
		if !v.categories.has(parent.ID) {
			return Label{}, false
		}
		if !v.expanded.has(parent.ID) {
			return v.label(parent), true
		}
		if !v.subcategories.has(n.ID) {
			return Label{}, false
		}
		return v.label(n), true
	case taxonomy.KindCategory:
		if !v.categories.has(n.ID) {
			return Label{}, false
		}
		return v.label(n), true
	default:
		return Label{}, false
	}
}

// label inherits color and icon from the nearest ancestor that sets them.
func (v *Visibility) label(n *taxonomy.Node) Label {
	l := Label{ID: n.ID, Name: n.Name, Color: n.Color, Icon: n.Icon}
	for cur := n; l.Color == "" || l.Icon == ""; {
		parent, ok := v.tree.Parent(cur)
		if !ok {
			break
		}
		if l.Color == "" {
			l.Color = parent.Color
		}
		if l.Icon == "" {
			l.Icon = parent.Icon
		}
		cur = parent
	}
	if l.Color == "" {
		l.Color = OrphanColor
	}
	return l
}
