package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// TypeNode is the nested shape served by the category service:
// type -> categories -> subcategories.
type TypeNode struct {
	ID       int64      `json:"id" yaml:"id"`
	Code     string     `json:"code" yaml:"code"`
	Name     string     `json:"name" yaml:"name"`
	Color    string     `json:"color" yaml:"color"`
	Icon     string     `json:"icon" yaml:"icon"`
	Children []TreeNode `json:"children" yaml:"children"`
}

// TreeNode is a category or subcategory in the nested shape.
type TreeNode struct {
	ID       int64      `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	Color    string     `json:"color" yaml:"color"`
	Icon     string     `json:"icon" yaml:"icon"`
	ParentID *int64     `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Children []TreeNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Build flattens the nested shape into an arena and validates it.
// A declared parent_id that disagrees with the nesting is reported as a
// validation problem rather than silently overridden.
func Build(types []TypeNode) (*Tree, error) {
	var nodes []Node
	var problems []string

	for _, tn := range types {
		nodes = append(nodes, Node{
			ID:    tn.ID,
			Kind:  KindType,
			Code:  strings.ToLower(strings.TrimSpace(tn.Code)),
			Name:  tn.Name,
			Color: tn.Color,
			Icon:  tn.Icon,
		})
		for _, cat := range tn.Children {
			if cat.ParentID != nil && *cat.ParentID != tn.ID {
				problems = append(problems, fmt.Sprintf("category %d declares parent %d but is nested under %d", cat.ID, *cat.ParentID, tn.ID))
			}
			nodes = append(nodes, Node{ID: cat.ID, ParentID: tn.ID, Kind: KindCategory, Name: cat.Name, Color: cat.Color, Icon: cat.Icon})
			for _, sub := range cat.Children {
				if sub.ParentID != nil && *sub.ParentID != cat.ID {
					problems = append(problems, fmt.Sprintf("subcategory %d declares parent %d but is nested under %d", sub.ID, *sub.ParentID, cat.ID))
				}
				if len(sub.Children) > 0 {
					problems = append(problems, fmt.Sprintf("subcategory %d has children; nesting deeper than two levels is not supported", sub.ID))
				}
				nodes = append(nodes, Node{ID: sub.ID, ParentID: cat.ID, Kind: KindSubcategory, Name: sub.Name, Color: sub.Color, Icon: sub.Icon})
			}
		}
	}

	tree, err := NewTree(nodes)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Problems = append(problems, ve.Problems...)
			return nil, ve
		}
		return nil, err
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return tree, nil
}

// Nested converts the arena back to the service shape.
func (t *Tree) Nested() []TypeNode {
	if t == nil {
		return nil
	}
	out := make([]TypeNode, 0, len(t.types))
	for _, typeID := range t.types {
		tn := t.nodes[typeID]
		typeNode := TypeNode{ID: tn.ID, Code: tn.Code, Name: tn.Name, Color: tn.Color, Icon: tn.Icon}
		for _, catID := range tn.Children {
			cn := t.nodes[catID]
			parent := cn.ParentID
			cat := TreeNode{ID: cn.ID, Name: cn.Name, Color: cn.Color, Icon: cn.Icon, ParentID: &parent}
			for _, subID := range cn.Children {
				sn := t.nodes[subID]
				subParent := sn.ParentID
				cat.Children = append(cat.Children, TreeNode{ID: sn.ID, Name: sn.Name, Color: sn.Color, Icon: sn.Icon, ParentID: &subParent})
			}
			typeNode.Children = append(typeNode.Children, cat)
		}
		out = append(out, typeNode)
	}
	return out
}

// DecodeJSON parses the service's JSON array of type nodes.
func DecodeJSON(data []byte) (*Tree, error) {
	var types []TypeNode
	if err := json.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("decode category tree: %w", err)
	}
	return Build(types)
}

// DecodeYAML parses a YAML document with the same shape as the JSON form.
func DecodeYAML(data []byte) (*Tree, error) {
	var types []TypeNode
	if err := yaml.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("decode category tree yaml: %w", err)
	}
	return Build(types)
}

// LoadFile reads a category tree from a .json, .yaml or .yml file.
func LoadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category tree: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return DecodeJSON(data)
	}
}
