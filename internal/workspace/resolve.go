package workspace

import (
	"strings"
)

// Split breaks a slash-delimited path into its segments, discarding
// empty and "." segments. "", "/", "." and "./" all denote the tree
// root and yield an empty slice.
func Split(path string) []string {
	parts := strings.Split(path, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		segs = append(segs, p)
	}
	return segs
}

// Clean returns the canonical form of a path: segments joined by "/"
// with no leading or trailing slash. The root canonicalises to "".
func Clean(path string) string {
	return strings.Join(Split(path), "/")
}

// ParentPath returns the canonical path of the segment's parent, ""
// for top-level entries and the root itself.
func ParentPath(path string) string {
	segs := Split(path)
	if len(segs) <= 1 {
		return ""
	}
	return strings.Join(segs[:len(segs)-1], "/")
}

// BaseName returns the final segment of a path, "" for the root.
func BaseName(path string) string {
	segs := Split(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Join appends a name to a canonical folder path.
func Join(folderPath, name string) string {
	folderPath = Clean(folderPath)
	if folderPath == "" {
		return name
	}
	return folderPath + "/" + name
}

// Resolve walks the tree segment by segment matching on Name and
// returns the node at path. The root is a pseudo-node and cannot be
// resolved to a *Node; resolving the root returns ErrNotFound, so use
// ChildrenAt for the root's child list. Resolution fails the moment a
// segment has no match or an intermediate match is a file.
func Resolve(tree []*Node, path string) (*Node, error) {
	segs := Split(path)
	if len(segs) == 0 {
		return nil, notFound(path)
	}
	current := tree
	for i, seg := range segs {
		node := findChild(current, seg)
		if node == nil {
			return nil, notFound(path)
		}
		if i == len(segs)-1 {
			return node, nil
		}
		if !node.IsFolder() {
			return nil, notFound(path)
		}
		current = node.Children
	}
	return nil, notFound(path)
}

// ChildrenAt returns the child list of the folder at folderPath. The
// root path ("") yields the top-level sequence. Fails if the path does
// not resolve or resolves to a file.
func ChildrenAt(tree []*Node, folderPath string) ([]*Node, error) {
	segs := Split(folderPath)
	if len(segs) == 0 {
		return tree, nil
	}
	node, err := Resolve(tree, folderPath)
	if err != nil {
		return nil, err
	}
	if !node.IsFolder() {
		return nil, notAFolder(folderPath)
	}
	return node.Children, nil
}

// Exists reports whether path resolves to a node. The root always
// exists.
func Exists(tree []*Node, path string) bool {
	if len(Split(path)) == 0 {
		return true
	}
	_, err := Resolve(tree, path)
	return err == nil
}

func findChild(nodes []*Node, name string) *Node {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}
