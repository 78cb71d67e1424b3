package tools

import (
	"context"
	"time"

	"pybench/internal/registry"
	"pybench/internal/workspace"
)

// ItemReport describes the node an item operation touched.
type ItemReport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

func itemReport(path string, n *workspace.Node) ItemReport {
	return ItemReport{
		ID:   n.ID,
		Name: n.Name,
		Path: workspace.Clean(path),
		Type: string(n.Type),
	}
}

// NewCreateItem creates a file or folder at a full path; the parent
// portion of the path must already exist and be a folder.
func NewCreateItem() registry.Tool {
	return registry.Tool{
		Name:        "create_item",
		Description: "Creates a new file or folder at the given path",
		Category:    CategoryItem,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"path": {
					Type:        registry.TypeString,
					Description: "Full path of the new item, relative to the workspace root",
				},
				"type": {
					Type:        registry.TypeString,
					Description: "Kind of item to create",
					Enum:        []string{"file", "folder"},
				},
				"content": {
					Type:        registry.TypeString,
					Description: "Initial content (files only)",
					Default:     "",
				},
			},
			Required: []string{"path", "type"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				Path    string `json:"path"`
				Type    string `json:"type"`
				Content string `json:"content"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			name := workspace.BaseName(req.Path)
			if name == "" {
				return registry.Failf(started, "path must name the item to create")
			}
			if err := checkFileSize(call, req.Content); err != nil {
				return registry.Fail(started, err)
			}
			newTree, created, err := workspace.Create(
				call.Context.Tree,
				workspace.ParentPath(req.Path),
				name,
				workspace.NodeType(req.Type),
				req.Content,
			)
			if err != nil {
				return registry.Fail(started, err)
			}
			call.Context.UpdateTree(newTree)
			return registry.Ok(started, itemReport(req.Path, created))
		},
	}
}

// NewDeleteItem removes an item and, for folders, its entire subtree.
func NewDeleteItem() registry.Tool {
	return registry.Tool{
		Name:        "delete_item",
		Description: "Deletes a file or folder (including its contents)",
		Category:    CategoryItem,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"path": {
					Type:        registry.TypeString,
					Description: "Path of the item to delete",
				},
			},
			Required: []string{"path"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				Path string `json:"path"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			newTree, removed, err := workspace.Delete(call.Context.Tree, req.Path)
			if err != nil {
				return registry.Fail(started, err)
			}
			call.Context.UpdateTree(newTree)
			return registry.Ok(started, itemReport(req.Path, removed))
		},
	}
}

// NewRenameItem changes an item's name in place.
func NewRenameItem() registry.Tool {
	return registry.Tool{
		Name:        "rename_item",
		Description: "Renames a file or folder",
		Category:    CategoryItem,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"path": {
					Type:        registry.TypeString,
					Description: "Path of the item to rename",
				},
				"newName": {
					Type:        registry.TypeString,
					Description: "New name (a single path segment, not a path)",
				},
			},
			Required: []string{"path", "newName"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				Path    string `json:"path"`
				NewName string `json:"newName"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			newTree, renamed, err := workspace.Rename(call.Context.Tree, req.Path, req.NewName)
			if err != nil {
				return registry.Fail(started, err)
			}
			call.Context.UpdateTree(newTree)
			newPath := workspace.Join(workspace.ParentPath(req.Path), req.NewName)
			return registry.Ok(started, itemReport(newPath, renamed))
		},
	}
}

// NewMoveItem relocates an item into another folder, keeping its id
// and contents.
func NewMoveItem() registry.Tool {
	return registry.Tool{
		Name:        "move_item",
		Description: "Moves a file or folder into another folder",
		Category:    CategoryItem,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"sourcePath": {
					Type:        registry.TypeString,
					Description: "Path of the item to move",
				},
				"targetPath": {
					Type:        registry.TypeString,
					Description: "Destination folder path; empty or \"/\" for the workspace root",
				},
			},
			Required: []string{"sourcePath", "targetPath"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				SourcePath string `json:"sourcePath"`
				TargetPath string `json:"targetPath"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			newTree, moved, err := workspace.Move(call.Context.Tree, req.SourcePath, req.TargetPath)
			if err != nil {
				return registry.Fail(started, err)
			}
			call.Context.UpdateTree(newTree)
			newPath := workspace.Join(req.TargetPath, moved.Name)
			return registry.Ok(started, itemReport(newPath, moved))
		},
	}
}

// NewCopyItem deep-copies an item (fresh ids throughout) into another
// folder, optionally under a new name.
func NewCopyItem() registry.Tool {
	return registry.Tool{
		Name:        "copy_item",
		Description: "Copies a file or folder (with its contents) into another folder",
		Category:    CategoryItem,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"sourcePath": {
					Type:        registry.TypeString,
					Description: "Path of the item to copy",
				},
				"targetPath": {
					Type:        registry.TypeString,
					Description: "Destination folder path; empty or \"/\" for the workspace root",
				},
				"newName": {
					Type:        registry.TypeString,
					Description: "Name for the copy; defaults to the source name",
				},
			},
			Required: []string{"sourcePath", "targetPath"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				SourcePath string `json:"sourcePath"`
				TargetPath string `json:"targetPath"`
				NewName    string `json:"newName"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			newTree, clone, err := workspace.Copy(call.Context.Tree, req.SourcePath, req.TargetPath, req.NewName)
			if err != nil {
				return registry.Fail(started, err)
			}
			call.Context.UpdateTree(newTree)
			newPath := workspace.Join(req.TargetPath, clone.Name)
			return registry.Ok(started, itemReport(newPath, clone))
		},
	}
}
