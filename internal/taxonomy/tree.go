// Package taxonomy holds the category tree: an arena of type, category and
// subcategory nodes indexed by id, validated once at load time.
package taxonomy

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind is the level of a node in the tree.
type Kind int

const (
	KindType Kind = iota
	KindCategory
	KindSubcategory
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindCategory:
		return "category"
	case KindSubcategory:
		return "subcategory"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Type codes of the fixed top-level nodes.
const (
	TypeIncome    = "income"
	TypeExpenses  = "expenses"
	TypeTransfers = "transfers"
	TypeTargets   = "targets" // visual only, never carries transactions
)

// maxDepth is the number of parent hops from a subcategory to its type.
const maxDepth = 2

// Node is one entry of the arena. ParentID is 0 for type nodes.
type Node struct {
	ID       int64
	ParentID int64
	Kind     Kind
	Code     string
	Name     string
	Color    string
	Icon     string
	Children []int64
}

// Tree is the validated category arena.
type Tree struct {
	nodes map[int64]*Node
	types []int64
}

var (
	ErrUnknownNode = errors.New("unknown node")
	ErrInvalidTree = errors.New("invalid category tree")
)

// ValidationError lists every problem found in a tree.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid category tree:\n- %s", strings.Join(e.Problems, "\n- "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidTree }

// NewTree builds a tree from a flat node list and validates it.
// Children order follows the order in which nodes appear in the list.
func NewTree(nodes []Node) (*Tree, error) {
	t := &Tree{nodes: make(map[int64]*Node, len(nodes))}
	var problems []string

	for i := range nodes {
		n := nodes[i]
		n.Children = nil
		if n.ID <= 0 {
			problems = append(problems, fmt.Sprintf("node %q has non-positive id %d", n.Name, n.ID))
			continue
		}
		if _, dup := t.nodes[n.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate node id %d", n.ID))
			continue
		}
		t.nodes[n.ID] = &n
	}

	for i := range nodes {
		n, ok := t.nodes[nodes[i].ID]
		if !ok || n.ParentID == 0 {
			if ok && n.Kind == KindType {
				t.types = append(t.types, n.ID)
			}
			continue
		}
		if parent, ok := t.nodes[n.ParentID]; ok {
			parent.Children = append(parent.Children, n.ID)
		}
	}

	problems = append(problems, t.validate()...)
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return t, nil
}

// validate checks parent references and depth without recursing.
func (t *Tree) validate() []string {
	var problems []string
	for _, id := range t.sortedIDs() {
		n := t.nodes[id]
		switch n.Kind {
		case KindType:
			if n.ParentID != 0 {
				problems = append(problems, fmt.Sprintf("type node %d has a parent", n.ID))
			}
			continue
		case KindCategory, KindSubcategory:
		default:
			problems = append(problems, fmt.Sprintf("node %d has unknown kind %d", n.ID, int(n.Kind)))
			continue
		}

		parent, ok := t.nodes[n.ParentID]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s %d references missing parent %d", n.Kind, n.ID, n.ParentID))
			continue
		}
		if want := n.Kind - 1; parent.Kind != want {
			problems = append(problems, fmt.Sprintf("%s %d has %s parent %d, want %s", n.Kind, n.ID, parent.Kind, parent.ID, want))
			continue
		}

		// Follow the chain with a hop budget so a malformed tree cannot loop.
		cur, hops := n, 0
		for cur.Kind != KindType && hops <= maxDepth {
			next, ok := t.nodes[cur.ParentID]
			if !ok {
				break
			}
			cur = next
			hops++
		}
		if cur.Kind != KindType || hops > maxDepth {
			problems = append(problems, fmt.Sprintf("%s %d does not reach a type node within %d hops", n.Kind, n.ID, maxDepth))
		}
	}
	return problems
}

func (t *Tree) sortedIDs() []int64 {
	ids := make([]int64, 0, len(t.nodes))
	for _, typeID := range t.types {
		ids = append(ids, typeID)
		ids = append(ids, t.Descendants(typeID)...)
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	// Nodes unreachable from any type are still validated.
	var rest []int64
	for id := range t.nodes {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(ids, rest...)
}

// Node returns the node with the given id.
func (t *Tree) Node(id int64) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.nodes[id]
	return n, ok
}

// Types returns the type node ids in load order.
func (t *Tree) Types() []int64 {
	if t == nil {
		return nil
	}
	return append([]int64(nil), t.types...)
}

// TypeByCode returns the type node with the given code.
func (t *Tree) TypeByCode(code string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	for _, id := range t.types {
		if n := t.nodes[id]; strings.EqualFold(n.Code, code) {
			return n, true
		}
	}
	return nil, false
}

// Descendants returns category and subcategory ids under id in tree order.
// For a category it returns its subcategories; for a subcategory, nothing.
func (t *Tree) Descendants(id int64) []int64 {
	n, ok := t.Node(id)
	if !ok {
		return nil
	}
	var out []int64
	for _, childID := range n.Children {
		out = append(out, childID)
		if child, ok := t.nodes[childID]; ok && child.Kind == KindCategory {
			out = append(out, child.Children...)
		}
	}
	return out
}

// Categories returns every category id in tree order.
func (t *Tree) Categories() []int64 {
	return t.collect(KindCategory)
}

// Subcategories returns every subcategory id in tree order.
func (t *Tree) Subcategories() []int64 {
	return t.collect(KindSubcategory)
}

func (t *Tree) collect(kind Kind) []int64 {
	if t == nil {
		return nil
	}
	var out []int64
	for _, typeID := range t.types {
		for _, id := range t.Descendants(typeID) {
			if t.nodes[id].Kind == kind {
				out = append(out, id)
			}
		}
	}
	return out
}

// Parent returns the parent node, if any.
func (t *Tree) Parent(n *Node) (*Node, bool) {
	if n == nil || n.ParentID == 0 {
		return nil, false
	}
	return t.Node(n.ParentID)
}

// Resolve finds a category or subcategory by name inside one type's subtree.
// Category-level matches win over subcategory-level matches; among
// duplicates on the same level the first in tree order wins.
func (t *Tree) Resolve(typeCode, name string) (*Node, bool) {
	typeNode, ok := t.TypeByCode(typeCode)
	if !ok {
		return nil, false
	}
	name = strings.TrimSpace(name)
	var sub *Node
	for _, catID := range typeNode.Children {
		cat := t.nodes[catID]
		if cat.Name == name {
			return cat, true
		}
		if sub != nil {
			continue
		}
		for _, subID := range cat.Children {
			if s := t.nodes[subID]; s.Name == name {
				sub = s
				break
			}
		}
	}
	return sub, sub != nil
}

// ResolveUnder finds a subcategory by name below the named category of one
// type, falling back to Resolve when category is empty or holds no such
// subcategory. Subcategory names only need to be unique within their
// category.
func (t *Tree) ResolveUnder(typeCode, category, name string) (*Node, bool) {
	category = strings.TrimSpace(category)
	if category == "" {
		return t.Resolve(typeCode, name)
	}
	typeNode, ok := t.TypeByCode(typeCode)
	if !ok {
		return nil, false
	}
	name = strings.TrimSpace(name)
	for _, catID := range typeNode.Children {
		cat := t.nodes[catID]
		if cat.Name != category {
			continue
		}
		for _, subID := range cat.Children {
			if s := t.nodes[subID]; s.Name == name {
				return s, true
			}
		}
	}
	return t.Resolve(typeCode, name)
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}
