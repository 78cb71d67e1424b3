package workspace

import (
	"github.com/google/uuid"
)

// NodeType distinguishes the two kinds of workspace nodes.
type NodeType string

const (
	TypeFile   NodeType = "file"
	TypeFolder NodeType = "folder"
)

// Node is a single entry in the virtual workspace tree. A file carries
// Content; a folder carries Children. IDs are opaque, unique across the
// tree and never reused. Expanded is a UI hint only.
type Node struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     NodeType `json:"type"`
	Content  string   `json:"content,omitempty"`
	Children []*Node  `json:"children,omitempty"`
	Expanded bool     `json:"expanded,omitempty"`
}

// NewFile creates a file node with a freshly generated id.
func NewFile(name, content string) *Node {
	return &Node{
		ID:      uuid.NewString(),
		Name:    name,
		Type:    TypeFile,
		Content: content,
	}
}

// NewFolder creates an empty folder node with a freshly generated id.
func NewFolder(name string) *Node {
	return &Node{
		ID:       uuid.NewString(),
		Name:     name,
		Type:     TypeFolder,
		Children: []*Node{},
	}
}

// IsFolder reports whether the node can hold children.
func (n *Node) IsFolder() bool {
	return n.Type == TypeFolder
}

// Clone deep-copies the node and its entire subtree. When freshIDs is
// true every cloned node gets a newly generated id, which is what copy
// operations need to keep ids globally unique.
func (n *Node) Clone(freshIDs bool) *Node {
	c := &Node{
		ID:       n.ID,
		Name:     n.Name,
		Type:     n.Type,
		Content:  n.Content,
		Expanded: n.Expanded,
	}
	if freshIDs {
		c.ID = uuid.NewString()
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone(freshIDs)
		}
	}
	return c
}

// CloneTree deep-copies a whole tree, preserving ids. Used to hand out
// snapshots that callers may read without racing mutators.
func CloneTree(tree []*Node) []*Node {
	out := make([]*Node, len(tree))
	for i, n := range tree {
		out[i] = n.Clone(false)
	}
	return out
}

// Walk visits every node in the tree depth-first, parents before
// children. The visitor receives the node's slash-delimited path.
func Walk(tree []*Node, visit func(path string, n *Node)) {
	var rec func(prefix string, nodes []*Node)
	rec = func(prefix string, nodes []*Node) {
		for _, n := range nodes {
			p := n.Name
			if prefix != "" {
				p = prefix + "/" + n.Name
			}
			visit(p, n)
			if n.IsFolder() {
				rec(p, n.Children)
			}
		}
	}
	rec("", tree)
}

// CollectIDs returns the set of every id present in the tree.
func CollectIDs(tree []*Node) map[string]struct{} {
	ids := make(map[string]struct{})
	Walk(tree, func(_ string, n *Node) {
		ids[n.ID] = struct{}{}
	})
	return ids
}
