package workspace

import (
	"fmt"
	"strings"
)

// Mutators are pure transforms: they take the old tree and return a new
// one reflecting exactly one change. The input tree is never modified;
// the spine leading to the change is rebuilt and untouched subtrees are
// shared between old and new trees, so previously handed-out snapshots
// stay coherent.

// checkName validates a single name segment. A name containing "/"
// would create a node no slash-delimited path can ever address again.
func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// withChildren rebuilds the tree with the child list of the folder at
// segs replaced by the result of apply. segs must name folders all the
// way down; an empty segs applies at the root.
func withChildren(tree []*Node, segs []string, apply func(children []*Node) ([]*Node, error)) ([]*Node, error) {
	if len(segs) == 0 {
		return apply(tree)
	}
	idx := -1
	for i, n := range tree {
		if n.Name == segs[0] {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, notFound(segs[0])
	}
	node := tree[idx]
	if !node.IsFolder() {
		return nil, notAFolder(segs[0])
	}
	newChildren, err := withChildren(node.Children, segs[1:], apply)
	if err != nil {
		return nil, err
	}
	replacement := *node
	replacement.Children = newChildren
	out := make([]*Node, len(tree))
	copy(out, tree)
	out[idx] = &replacement
	return out, nil
}

// withNode rebuilds the tree with the node at path replaced by the
// result of apply. Returning nil from apply removes the node.
func withNode(tree []*Node, path string, apply func(n *Node) (*Node, error)) ([]*Node, error) {
	segs := Split(path)
	if len(segs) == 0 {
		return nil, notFound(path)
	}
	parent, name := segs[:len(segs)-1], segs[len(segs)-1]
	return withChildren(tree, parent, func(children []*Node) ([]*Node, error) {
		idx := -1
		for i, n := range children {
			if n.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, notFound(path)
		}
		replacement, err := apply(children[idx])
		if err != nil {
			return nil, err
		}
		out := make([]*Node, 0, len(children))
		out = append(out, children[:idx]...)
		if replacement != nil {
			out = append(out, replacement)
		}
		out = append(out, children[idx+1:]...)
		return out, nil
	})
}

// Create inserts a new file or folder named name under parentPath. The
// new node is appended as the last child so that insertion order stays
// stable for rendering. Fails if the parent is missing or a file, or if
// a sibling already bears the name.
func Create(tree []*Node, parentPath, name string, typ NodeType, content string) ([]*Node, *Node, error) {
	if err := checkName(name); err != nil {
		return nil, nil, err
	}
	if typ != TypeFile && typ != TypeFolder {
		return nil, nil, fmt.Errorf("%q: %w", typ, ErrInvalidNodeType)
	}
	parentPath = Clean(parentPath)
	if len(Split(parentPath)) > 0 {
		parent, err := Resolve(tree, parentPath)
		if err != nil {
			return nil, nil, fmt.Errorf("parent folder %q: %w", parentPath, ErrNotFound)
		}
		if !parent.IsFolder() {
			return nil, nil, fmt.Errorf("parent %q: %w", parentPath, ErrNotAFolder)
		}
	}
	var created *Node
	if typ == TypeFile {
		created = NewFile(name, content)
	} else {
		created = NewFolder(name)
	}
	newTree, err := withChildren(tree, Split(parentPath), func(children []*Node) ([]*Node, error) {
		if findChild(children, name) != nil {
			return nil, alreadyExists(Join(parentPath, name))
		}
		out := make([]*Node, 0, len(children)+1)
		out = append(out, children...)
		out = append(out, created)
		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return newTree, created, nil
}

// Delete removes the node at path together with its entire subtree.
func Delete(tree []*Node, path string) ([]*Node, *Node, error) {
	if _, err := Resolve(tree, path); err != nil {
		return nil, nil, err
	}
	var removed *Node
	newTree, err := withNode(tree, path, func(n *Node) (*Node, error) {
		removed = n
		return nil, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return newTree, removed, nil
}

// Rename changes only the Name of the node at path. The id, content and
// children are untouched. Fails on an empty or slash-containing name,
// or when a different sibling already bears newName.
func Rename(tree []*Node, path, newName string) ([]*Node, *Node, error) {
	if err := checkName(newName); err != nil {
		return nil, nil, err
	}
	node, err := Resolve(tree, path)
	if err != nil {
		return nil, nil, err
	}
	siblings, err := ChildrenAt(tree, ParentPath(path))
	if err != nil {
		return nil, nil, err
	}
	for _, s := range siblings {
		if s.Name == newName && s.ID != node.ID {
			return nil, nil, alreadyExists(Join(ParentPath(path), newName))
		}
	}
	var renamed *Node
	newTree, err := withNode(tree, path, func(n *Node) (*Node, error) {
		replacement := *n
		replacement.Name = newName
		renamed = &replacement
		return &replacement, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return newTree, renamed, nil
}

// Move relocates the node at sourcePath to be a child of the folder at
// targetFolderPath ("" means the root). The node keeps its id, content
// and children. Fails when the source is missing, the target is not a
// folder, the destination already has an item with the same name, or a
// folder would be moved into itself or its own subtree.
func Move(tree []*Node, sourcePath, targetFolderPath string) ([]*Node, *Node, error) {
	source := Clean(sourcePath)
	target := Clean(targetFolderPath)
	node, err := Resolve(tree, source)
	if err != nil {
		return nil, nil, err
	}
	targetChildren, err := ChildrenAt(tree, target)
	if err != nil {
		return nil, nil, fmt.Errorf("target folder: %w", err)
	}
	// Cycle prevention works on resolved paths, not ids: a folder may
	// not land on itself or anywhere below itself.
	if node.IsFolder() && (target == source || strings.HasPrefix(target+"/", source+"/")) {
		return nil, nil, fmt.Errorf("%q into %q: %w", displayPath(source), displayPath(target), ErrCyclicMove)
	}
	if target == ParentPath(source) {
		// Moving into the current parent is a no-op, not a collision.
		return tree, node, nil
	}
	if findChild(targetChildren, node.Name) != nil {
		return nil, nil, alreadyExists(Join(target, node.Name))
	}
	removedTree, _, err := Delete(tree, source)
	if err != nil {
		return nil, nil, err
	}
	newTree, err := withChildren(removedTree, Split(target), func(children []*Node) ([]*Node, error) {
		out := make([]*Node, 0, len(children)+1)
		out = append(out, children...)
		out = append(out, node)
		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return newTree, node, nil
}

// Copy deep-clones the node at sourcePath (with freshly generated ids
// throughout the cloned subtree) into the folder at targetFolderPath
// ("" means the root). newName, when non-empty, overrides the clone's
// top-level name. The source is untouched, so no cycle check applies.
func Copy(tree []*Node, sourcePath, targetFolderPath, newName string) ([]*Node, *Node, error) {
	source := Clean(sourcePath)
	target := Clean(targetFolderPath)
	node, err := Resolve(tree, source)
	if err != nil {
		return nil, nil, err
	}
	targetChildren, err := ChildrenAt(tree, target)
	if err != nil {
		return nil, nil, fmt.Errorf("target folder: %w", err)
	}
	clone := node.Clone(true)
	if newName != "" {
		if err := checkName(newName); err != nil {
			return nil, nil, err
		}
		clone.Name = newName
	}
	if findChild(targetChildren, clone.Name) != nil {
		return nil, nil, alreadyExists(Join(target, clone.Name))
	}
	newTree, err := withChildren(tree, Split(target), func(children []*Node) ([]*Node, error) {
		out := make([]*Node, 0, len(children)+1)
		out = append(out, children...)
		out = append(out, clone)
		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return newTree, clone, nil
}

// WriteFile replaces the content of the file at path, keeping its id
// and position. When the path does not resolve it behaves like Create
// with that content, validating the parent path the same way Create
// does. The returned bool reports whether a new file was created.
func WriteFile(tree []*Node, path, content string) ([]*Node, *Node, bool, error) {
	path = Clean(path)
	node, err := Resolve(tree, path)
	if err == nil {
		if node.IsFolder() {
			return nil, nil, false, notAFile(path)
		}
		var written *Node
		newTree, err := withNode(tree, path, func(n *Node) (*Node, error) {
			replacement := *n
			replacement.Content = content
			written = &replacement
			return &replacement, nil
		})
		if err != nil {
			return nil, nil, false, err
		}
		return newTree, written, false, nil
	}
	newTree, created, err := Create(tree, ParentPath(path), BaseName(path), TypeFile, content)
	if err != nil {
		return nil, nil, false, err
	}
	return newTree, created, true, nil
}

// TextEdit describes one modify-text request. Exactly one mode must be
// supplied: NewContent replaces the whole file, FindText/ReplaceText
// substitutes occurrences.
type TextEdit struct {
	NewContent  *string
	FindText    *string
	ReplaceText string
	ReplaceAll  bool
}

// TextEditResult reports what a ModifyText call changed.
type TextEditResult struct {
	Node         *Node
	Replacements int
}

// ModifyText edits the file at path per the supplied TextEdit. In find
// mode a FindText absent from the current content is an error, never a
// silent no-op; ReplaceAll substitutes every non-overlapping occurrence
// while the default substitutes only the first.
func ModifyText(tree []*Node, path string, edit TextEdit) ([]*Node, *TextEditResult, error) {
	if (edit.NewContent == nil) == (edit.FindText == nil) {
		return nil, nil, ErrAmbiguousEdit
	}
	node, err := Resolve(tree, path)
	if err != nil {
		return nil, nil, err
	}
	if node.IsFolder() {
		return nil, nil, notAFile(path)
	}
	var content string
	replacements := 0
	if edit.NewContent != nil {
		content = *edit.NewContent
		replacements = 1
	} else {
		find := *edit.FindText
		if find == "" || !strings.Contains(node.Content, find) {
			return nil, nil, fmt.Errorf("%q in %q: %w", find, displayPath(path), ErrTextNotFound)
		}
		if edit.ReplaceAll {
			replacements = strings.Count(node.Content, find)
			content = strings.ReplaceAll(node.Content, find, edit.ReplaceText)
		} else {
			replacements = 1
			content = strings.Replace(node.Content, find, edit.ReplaceText, 1)
		}
	}
	var edited *Node
	newTree, err := withNode(tree, path, func(n *Node) (*Node, error) {
		replacement := *n
		replacement.Content = content
		edited = &replacement
		return &replacement, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return newTree, &TextEditResult{Node: edited, Replacements: replacements}, nil
}
