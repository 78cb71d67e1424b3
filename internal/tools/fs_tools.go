package tools

import (
	"context"
	"fmt"
	"time"

	"pybench/internal/registry"
	"pybench/internal/workspace"
)

// checkFileSize enforces the session's per-file content cap.
func checkFileSize(call registry.Call, content string) error {
	if max := call.Context.Limits.MaxFileSize; max > 0 && int64(len(content)) > max {
		return fmt.Errorf("content is %d bytes, exceeding the %d byte file limit", len(content), max)
	}
	return nil
}

// DirEntry is one row of a directory listing. Content is only set when
// the caller asked for it and the entry is a file.
type DirEntry struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	Type    string  `json:"type"`
	Size    int     `json:"size"`
	Content *string `json:"content,omitempty"`
}

// DirectoryListing is the read_directory payload.
type DirectoryListing struct {
	Path    string     `json:"path"`
	Entries []DirEntry `json:"entries"`
}

// FileContent is the read_file payload.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteReport is the write_file payload.
type WriteReport struct {
	Path         string `json:"path"`
	Created      bool   `json:"created"`
	BytesWritten int    `json:"bytesWritten"`
}

// EditReport is the modify_text payload.
type EditReport struct {
	Path         string `json:"path"`
	Replacements int    `json:"replacements"`
	Content      string `json:"content"`
}

// NewReadDirectory lists the entries of a folder ("" or "/" for the
// workspace root), optionally recursing and optionally inlining file
// contents.
func NewReadDirectory() registry.Tool {
	return registry.Tool{
		Name:        "read_directory",
		Description: "Lists files and folders at a path in the workspace",
		Category:    CategoryFilesystem,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"path": {
					Type:        registry.TypeString,
					Description: "Folder path relative to the workspace root; empty or \"/\" for the root",
				},
				"includeContent": {
					Type:        registry.TypeBoolean,
					Description: "Include file contents in the listing",
					Default:     false,
				},
				"recursive": {
					Type:        registry.TypeBoolean,
					Description: "Recurse into subfolders",
					Default:     false,
				},
			},
			Required: []string{"path"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				Path           string `json:"path"`
				IncludeContent bool   `json:"includeContent"`
				Recursive      bool   `json:"recursive"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			children, err := workspace.ChildrenAt(call.Context.Tree, req.Path)
			if err != nil {
				return registry.Fail(started, err)
			}
			listing := DirectoryListing{
				Path:    workspace.Clean(req.Path),
				Entries: collectEntries(children, workspace.Clean(req.Path), req.IncludeContent, req.Recursive),
			}
			return registry.Ok(started, listing).WithMeta("entryCount", len(listing.Entries))
		},
	}
}

func collectEntries(nodes []*workspace.Node, prefix string, includeContent, recursive bool) []DirEntry {
	entries := make([]DirEntry, 0, len(nodes))
	for _, n := range nodes {
		path := workspace.Join(prefix, n.Name)
		entry := DirEntry{
			Name: n.Name,
			Path: path,
			Type: string(n.Type),
			Size: len(n.Content),
		}
		if includeContent && !n.IsFolder() {
			content := n.Content
			entry.Content = &content
		}
		entries = append(entries, entry)
		if recursive && n.IsFolder() {
			entries = append(entries, collectEntries(n.Children, path, includeContent, true)...)
		}
	}
	return entries
}

// NewReadFile returns the content of a single file.
func NewReadFile() registry.Tool {
	return registry.Tool{
		Name:        "read_file",
		Description: "Reads the content of a file in the workspace",
		Category:    CategoryFilesystem,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"path": {
					Type:        registry.TypeString,
					Description: "File path relative to the workspace root",
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
			node, err := workspace.Resolve(call.Context.Tree, req.Path)
			if err != nil {
				return registry.Fail(started, err)
			}
			if node.IsFolder() {
				return registry.Failf(started, "'%s' is a folder, not a file", workspace.Clean(req.Path))
			}
			return registry.Ok(started, FileContent{
				Path:    workspace.Clean(req.Path),
				Content: node.Content,
			}).WithMeta("size", len(node.Content))
		},
	}
}

// NewWriteFile replaces a file's content, creating the file when the
// path does not resolve yet.
func NewWriteFile() registry.Tool {
	return registry.Tool{
		Name:        "write_file",
		Description: "Writes content to a file, creating it if it does not exist",
		Category:    CategoryFilesystem,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"path": {
					Type:        registry.TypeString,
					Description: "File path relative to the workspace root",
				},
				"content": {
					Type:        registry.TypeString,
					Description: "Full file content to write",
				},
			},
			Required: []string{"path", "content"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				Path    string `json:"path"`
				Content string `json:"content"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			if err := checkFileSize(call, req.Content); err != nil {
				return registry.Fail(started, err)
			}
			newTree, _, created, err := workspace.WriteFile(call.Context.Tree, req.Path, req.Content)
			if err != nil {
				return registry.Fail(started, err)
			}
			call.Context.UpdateTree(newTree)
			return registry.Ok(started, WriteReport{
				Path:         workspace.Clean(req.Path),
				Created:      created,
				BytesWritten: len(req.Content),
			})
		},
	}
}

// NewModifyText edits a file either by replacing its whole content or
// by substituting occurrences of a search string. Exactly one mode
// must be supplied.
func NewModifyText() registry.Tool {
	return registry.Tool{
		Name:        "modify_text",
		Description: "Modifies a file's text: whole-content replacement, or find/replace",
		Category:    CategoryFilesystem,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"filePath": {
					Type:        registry.TypeString,
					Description: "File path relative to the workspace root",
				},
				"newContent": {
					Type:        registry.TypeString,
					Description: "Replacement for the entire file content (mutually exclusive with findText)",
				},
				"findText": {
					Type:        registry.TypeString,
					Description: "Exact text to find (mutually exclusive with newContent)",
				},
				"replaceText": {
					Type:        registry.TypeString,
					Description: "Replacement for findText",
				},
				"replaceAll": {
					Type:        registry.TypeBoolean,
					Description: "Replace every occurrence instead of only the first",
					Default:     false,
				},
			},
			Required: []string{"filePath"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				FilePath    string  `json:"filePath"`
				NewContent  *string `json:"newContent"`
				FindText    *string `json:"findText"`
				ReplaceText string  `json:"replaceText"`
				ReplaceAll  bool    `json:"replaceAll"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			newTree, res, err := workspace.ModifyText(call.Context.Tree, req.FilePath, workspace.TextEdit{
				NewContent:  req.NewContent,
				FindText:    req.FindText,
				ReplaceText: req.ReplaceText,
				ReplaceAll:  req.ReplaceAll,
			})
			if err != nil {
				return registry.Fail(started, err)
			}
			if err := checkFileSize(call, res.Node.Content); err != nil {
				return registry.Fail(started, err)
			}
			call.Context.UpdateTree(newTree)
			return registry.Ok(started, EditReport{
				Path:         workspace.Clean(req.FilePath),
				Replacements: res.Replacements,
				Content:      res.Node.Content,
			})
		},
	}
}
