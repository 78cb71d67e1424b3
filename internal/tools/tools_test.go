package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pybench/internal/registry"
	"pybench/internal/runtime"
	"pybench/internal/session"
	"pybench/internal/tools"
	"pybench/internal/workspace"
)

func seedTree(t *testing.T) []*workspace.Node {
	t.Helper()
	var tree []*workspace.Node
	var err error
	tree, _, err = workspace.Create(tree, "", "src", workspace.TypeFolder, "")
	require.NoError(t, err)
	tree, _, _, err = workspace.WriteFile(tree, "src/app.py", "print('app')")
	require.NoError(t, err)
	tree, _, _, err = workspace.WriteFile(tree, "main.py", "print('main')")
	require.NoError(t, err)
	tree, _, _, err = workspace.WriteFile(tree, "notes.txt", "alpha beta alpha")
	require.NoError(t, err)
	return tree
}

// newSession builds a session over a scripted worker. The transport is
// returned for call-count instrumentation.
func newSession(t *testing.T, script func(runtime.Request) *runtime.Reply) (*session.Session, *runtime.MockTransport) {
	t.Helper()
	mt := runtime.NewMockTransport(script)
	packages := runtime.NewPackageSet()
	ch := runtime.NewChannel(mt, packages, zerolog.Nop())
	t.Cleanup(func() { _ = ch.Close() })
	require.NoError(t, ch.Init(context.Background(), time.Second))

	return session.New(zerolog.Nop(),
		session.WithTree(seedTree(t)),
		session.WithChannel(ch, packages),
	), mt
}

func exec(t *testing.T, s *session.Session, tool string, args map[string]any) *registry.Result {
	t.Helper()
	return s.Execute(context.Background(), tool, args)
}

func TestReadDirectory(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	t.Run("root listing", func(t *testing.T) {
		res := exec(t, s, "read_directory", map[string]any{"path": ""})
		require.True(t, res.Success, res.Error)
		listing := res.Data.(tools.DirectoryListing)
		require.Len(t, listing.Entries, 3)
		assert.Equal(t, "src", listing.Entries[0].Name)
		assert.Nil(t, listing.Entries[0].Content)
	})

	t.Run("recursive with content", func(t *testing.T) {
		res := exec(t, s, "read_directory", map[string]any{
			"path":           "/",
			"recursive":      true,
			"includeContent": true,
		})
		require.True(t, res.Success, res.Error)
		listing := res.Data.(tools.DirectoryListing)
		require.Len(t, listing.Entries, 4)
		byPath := map[string]tools.DirEntry{}
		for _, e := range listing.Entries {
			byPath[e.Path] = e
		}
		require.Contains(t, byPath, "src/app.py")
		require.NotNil(t, byPath["src/app.py"].Content)
		assert.Equal(t, "print('app')", *byPath["src/app.py"].Content)
	})

	t.Run("missing folder", func(t *testing.T) {
		res := exec(t, s, "read_directory", map[string]any{"path": "ghost"})
		require.False(t, res.Success)
		assert.Contains(t, res.Error, "ghost")
	})

	t.Run("missing required arg", func(t *testing.T) {
		res := exec(t, s, "read_directory", map[string]any{})
		require.False(t, res.Success)
		assert.Contains(t, res.Error, "missing required parameter 'path'")
	})
}

func TestReadFile(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	res := exec(t, s, "read_file", map[string]any{"path": "src/app.py"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, tools.FileContent{Path: "src/app.py", Content: "print('app')"}, res.Data)

	res = exec(t, s, "read_file", map[string]any{"path": "src"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "folder")

	res = exec(t, s, "read_file", map[string]any{"path": "absent.py"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "does not exist")
}

func TestWriteFile(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	t.Run("overwrite keeps id", func(t *testing.T) {
		before, err := workspace.Resolve(s.Tree(), "notes.txt")
		require.NoError(t, err)
		res := exec(t, s, "write_file", map[string]any{"path": "notes.txt", "content": "fresh"})
		require.True(t, res.Success, res.Error)
		report := res.Data.(tools.WriteReport)
		assert.False(t, report.Created)

		after, err := workspace.Resolve(s.Tree(), "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, "fresh", after.Content)
	})

	t.Run("create when missing", func(t *testing.T) {
		res := exec(t, s, "write_file", map[string]any{"path": "src/new.py", "content": "pass"})
		require.True(t, res.Success, res.Error)
		assert.True(t, res.Data.(tools.WriteReport).Created)
		assert.True(t, workspace.Exists(s.Tree(), "src/new.py"))
	})

	t.Run("missing parent", func(t *testing.T) {
		res := exec(t, s, "write_file", map[string]any{"path": "ghost/new.py", "content": ""})
		require.False(t, res.Success)
	})
}

func TestModifyText(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	t.Run("find replaces first only", func(t *testing.T) {
		res := exec(t, s, "modify_text", map[string]any{
			"filePath":    "notes.txt",
			"findText":    "alpha",
			"replaceText": "gamma",
		})
		require.True(t, res.Success, res.Error)
		report := res.Data.(tools.EditReport)
		assert.Equal(t, "gamma beta alpha", report.Content)
		assert.Equal(t, 1, report.Replacements)
	})

	t.Run("replaceAll", func(t *testing.T) {
		res := exec(t, s, "modify_text", map[string]any{
			"filePath":    "notes.txt",
			"findText":    "a",
			"replaceText": "A",
			"replaceAll":  true,
		})
		require.True(t, res.Success, res.Error)
		node, err := workspace.Resolve(s.Tree(), "notes.txt")
		require.NoError(t, err)
		assert.NotContains(t, node.Content, "a")
	})

	t.Run("whole content mode", func(t *testing.T) {
		res := exec(t, s, "modify_text", map[string]any{
			"filePath":   "notes.txt",
			"newContent": "clean slate",
		})
		require.True(t, res.Success, res.Error)
		node, err := workspace.Resolve(s.Tree(), "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "clean slate", node.Content)
	})

	t.Run("consumed text cannot be found twice", func(t *testing.T) {
		res := exec(t, s, "write_file", map[string]any{"path": "test.txt", "content": "A"})
		require.True(t, res.Success, res.Error)

		args := map[string]any{
			"filePath":    "test.txt",
			"findText":    "A",
			"replaceText": "B",
			"replaceAll":  false,
		}
		res = exec(t, s, "modify_text", args)
		require.True(t, res.Success, res.Error)
		node, err := workspace.Resolve(s.Tree(), "test.txt")
		require.NoError(t, err)
		assert.Equal(t, "B", node.Content)

		res = exec(t, s, "modify_text", args)
		require.False(t, res.Success)
		assert.Contains(t, res.Error, "text not found")
		node, err = workspace.Resolve(s.Tree(), "test.txt")
		require.NoError(t, err)
		assert.Equal(t, "B", node.Content, "failed edit must leave content unchanged")
	})

	t.Run("both modes rejected", func(t *testing.T) {
		res := exec(t, s, "modify_text", map[string]any{
			"filePath":   "notes.txt",
			"newContent": "x",
			"findText":   "y",
		})
		require.False(t, res.Success)
		assert.Contains(t, res.Error, "exactly one")
	})
}

func TestCreateItem(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	res := exec(t, s, "create_item", map[string]any{"path": "src/pkg", "type": "folder"})
	require.True(t, res.Success, res.Error)
	report := res.Data.(tools.ItemReport)
	assert.Equal(t, "folder", report.Type)
	assert.NotEmpty(t, report.ID)

	res = exec(t, s, "create_item", map[string]any{"path": "src/pkg/__init__.py", "type": "file", "content": ""})
	require.True(t, res.Success, res.Error)
	assert.True(t, workspace.Exists(s.Tree(), "src/pkg/__init__.py"))

	res = exec(t, s, "create_item", map[string]any{"path": "src/pkg", "type": "folder"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "already exists")

	res = exec(t, s, "create_item", map[string]any{"path": "x", "type": "device"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "must be one of [file, folder]")
}

func TestDeleteItem(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	res := exec(t, s, "delete_item", map[string]any{"path": "src"})
	require.True(t, res.Success, res.Error)
	assert.False(t, workspace.Exists(s.Tree(), "src"))
	assert.False(t, workspace.Exists(s.Tree(), "src/app.py"))

	res = exec(t, s, "delete_item", map[string]any{"path": "src"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "does not exist")
}

func TestRenameItem(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	res := exec(t, s, "rename_item", map[string]any{"path": "src/app.py", "newName": "core.py"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "src/core.py", res.Data.(tools.ItemReport).Path)
	assert.True(t, workspace.Exists(s.Tree(), "src/core.py"))

	res = exec(t, s, "rename_item", map[string]any{"path": "main.py", "newName": ""})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "empty")

	// A name with a slash would list as a path that never resolves.
	res = exec(t, s, "rename_item", map[string]any{"path": "main.py", "newName": "a/b"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "cannot contain '/'")
	assert.True(t, workspace.Exists(s.Tree(), "main.py"))
}

func TestMoveItem(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	res := exec(t, s, "move_item", map[string]any{"sourcePath": "notes.txt", "targetPath": "src"})
	require.True(t, res.Success, res.Error)
	assert.True(t, workspace.Exists(s.Tree(), "src/notes.txt"))
	assert.False(t, workspace.Exists(s.Tree(), "notes.txt"))

	// Folder into its own subtree must fail at any depth.
	res = exec(t, s, "create_item", map[string]any{"path": "src/sub", "type": "folder"})
	require.True(t, res.Success, res.Error)
	res = exec(t, s, "move_item", map[string]any{"sourcePath": "src", "targetPath": "src/sub"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "into itself")
}

func TestCopyItem(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	res := exec(t, s, "copy_item", map[string]any{"sourcePath": "src", "targetPath": "", "newName": "src2"})
	require.True(t, res.Success, res.Error)
	report := res.Data.(tools.ItemReport)
	assert.Equal(t, "src2", report.Name)
	assert.True(t, workspace.Exists(s.Tree(), "src2/app.py"))
	assert.True(t, workspace.Exists(s.Tree(), "src/app.py"))

	source, err := workspace.Resolve(s.Tree(), "src")
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, report.ID, "copy must mint fresh ids")
}

func TestExecutePython(t *testing.T) {
	s, mt := newSession(t, func(req runtime.Request) *runtime.Reply {
		if req.Type == runtime.RequestRun {
			return &runtime.Reply{ID: req.ID, Type: runtime.ReplyResult, Stdout: "42\n", ExecutionTime: 3.25}
		}
		return runtime.EchoWorkerScript(req)
	})

	res := exec(t, s, "execute_python", map[string]any{
		"code": "print(42)",
		"files": []any{
			map[string]any{"path": "data.txt", "content": "7"},
		},
	})
	require.True(t, res.Success, res.Error)
	report := res.Data.(tools.ExecutionReport)
	assert.Equal(t, "42\n", report.Stdout)
	assert.Greater(t, report.ExecutionTime, 0.0)

	sent := mt.LastSent()
	require.Len(t, sent.Files, 1)
	assert.Equal(t, "data.txt", sent.Files[0].Path)
}

func TestExecutePythonFault(t *testing.T) {
	s, _ := newSession(t, func(req runtime.Request) *runtime.Reply {
		if req.Type == runtime.RequestRun {
			return &runtime.Reply{ID: req.ID, Type: runtime.ReplyError, Error: "NameError: name 'x' is not defined"}
		}
		return runtime.EchoWorkerScript(req)
	})

	res := exec(t, s, "execute_python", map[string]any{"code": "x"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "NameError")
}

func TestExecuteWithWorkspace(t *testing.T) {
	s, mt := newSession(t, runtime.EchoWorkerScript)

	res := exec(t, s, "execute_with_workspace", map[string]any{"code": "print(open('notes.txt').read())"})
	require.True(t, res.Success, res.Error)

	sent := mt.LastSent()
	paths := make([]string, len(sent.Files))
	for i, f := range sent.Files {
		paths[i] = f.Path
	}
	assert.ElementsMatch(t, []string{"src/app.py", "main.py", "notes.txt"}, paths)
}

func TestRunMainScript(t *testing.T) {
	t.Run("prefers workspace main.py", func(t *testing.T) {
		s, mt := newSession(t, runtime.EchoWorkerScript)
		res := exec(t, s, "run_main_script", map[string]any{})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "print('main')", mt.LastSent().Code)
		assert.Equal(t, true, res.Metadata["ranMainScript"])
	})

	t.Run("fallback code", func(t *testing.T) {
		s, mt := newSession(t, runtime.EchoWorkerScript)
		del := exec(t, s, "delete_item", map[string]any{"path": "main.py"})
		require.True(t, del.Success, del.Error)

		res := exec(t, s, "run_main_script", map[string]any{"fallbackCode": "print('fb')"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "print('fb')", mt.LastSent().Code)
		assert.Equal(t, false, res.Metadata["ranMainScript"])
	})

	t.Run("neither available", func(t *testing.T) {
		s, _ := newSession(t, runtime.EchoWorkerScript)
		del := exec(t, s, "delete_item", map[string]any{"path": "main.py"})
		require.True(t, del.Success, del.Error)

		res := exec(t, s, "run_main_script", map[string]any{})
		require.False(t, res.Success)
		assert.Contains(t, res.Error, "main.py")
	})
}

func TestTestCode(t *testing.T) {
	s, _ := newSession(t, func(req runtime.Request) *runtime.Reply {
		if req.Type == runtime.RequestRun {
			return &runtime.Reply{ID: req.ID, Type: runtime.ReplyResult, Stdout: "  42\n", ExecutionTime: 1}
		}
		return runtime.EchoWorkerScript(req)
	})

	t.Run("matching output", func(t *testing.T) {
		res := exec(t, s, "test_code", map[string]any{"code": "print(42)", "expectedOutput": "42"})
		require.True(t, res.Success, res.Error)
		report := res.Data.(tools.TestReport)
		require.NotNil(t, report.Passed)
		assert.True(t, *report.Passed, "whitespace-insensitive comparison")
	})

	t.Run("mismatched output", func(t *testing.T) {
		res := exec(t, s, "test_code", map[string]any{"code": "print(42)", "expectedOutput": "41"})
		require.True(t, res.Success, res.Error)
		report := res.Data.(tools.TestReport)
		require.NotNil(t, report.Passed)
		assert.False(t, *report.Passed)
	})

	t.Run("no expectation", func(t *testing.T) {
		res := exec(t, s, "test_code", map[string]any{"code": "print(42)"})
		require.True(t, res.Success, res.Error)
		assert.Nil(t, res.Data.(tools.TestReport).Passed)
	})
}

func TestInstallPackageDeduplicates(t *testing.T) {
	s, mt := newSession(t, runtime.EchoWorkerScript)

	res := exec(t, s, "install_package", map[string]any{"packageName": "numpy"})
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Data.(tools.InstallReport).AlreadyInstalled)
	require.Equal(t, 1, mt.SentCount(runtime.RequestInstall))

	// Second install short-circuits: no extra channel round trip.
	res = exec(t, s, "install_package", map[string]any{"packageName": "numpy"})
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Data.(tools.InstallReport).AlreadyInstalled)
	assert.Equal(t, 1, mt.SentCount(runtime.RequestInstall))
}

func TestInstallPackageFailureNotRecorded(t *testing.T) {
	s, mt := newSession(t, func(req runtime.Request) *runtime.Reply {
		if req.Type == runtime.RequestInstall {
			return &runtime.Reply{ID: req.ID, Type: runtime.ReplyError, Error: "no matching distribution"}
		}
		return runtime.EchoWorkerScript(req)
	})

	res := exec(t, s, "install_package", map[string]any{"packageName": "no-such-pkg"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "no matching distribution")

	// A failed install must not be remembered as installed.
	res = exec(t, s, "install_package", map[string]any{"packageName": "no-such-pkg"})
	require.False(t, res.Success)
	assert.Equal(t, 2, mt.SentCount(runtime.RequestInstall))
}

func TestListPackages(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)

	res := exec(t, s, "list_packages", map[string]any{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, tools.PackageListing{Packages: []string{}, Count: 0}, res.Data)

	require.True(t, exec(t, s, "install_package", map[string]any{"packageName": "pandas"}).Success)
	require.True(t, exec(t, s, "install_package", map[string]any{"packageName": "numpy"}).Success)

	res = exec(t, s, "list_packages", map[string]any{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"numpy", "pandas"}, res.Data.(tools.PackageListing).Packages)
}

func TestSessionLimits(t *testing.T) {
	mt := runtime.NewMockTransport(func(req runtime.Request) *runtime.Reply {
		if req.Type == runtime.RequestRun {
			return &runtime.Reply{ID: req.ID, Type: runtime.ReplyResult, Stdout: "0123456789", ExecutionTime: 1}
		}
		return runtime.EchoWorkerScript(req)
	})
	packages := runtime.NewPackageSet()
	ch := runtime.NewChannel(mt, packages, zerolog.Nop())
	t.Cleanup(func() { _ = ch.Close() })
	require.NoError(t, ch.Init(context.Background(), time.Second))

	s := session.New(zerolog.Nop(),
		session.WithTree(seedTree(t)),
		session.WithChannel(ch, packages),
		session.WithLimits(registry.Limits{
			MaxFileSize:    8,
			MaxSeedFiles:   2,
			MaxOutputBytes: 4,
		}),
	)

	t.Run("file size cap", func(t *testing.T) {
		res := exec(t, s, "write_file", map[string]any{"path": "big.txt", "content": "0123456789"})
		require.False(t, res.Success)
		assert.Contains(t, res.Error, "file limit")
		assert.False(t, workspace.Exists(s.Tree(), "big.txt"))

		res = exec(t, s, "modify_text", map[string]any{"filePath": "notes.txt", "newContent": "0123456789"})
		require.False(t, res.Success)
		assert.Contains(t, res.Error, "file limit")
	})

	t.Run("seed file cap", func(t *testing.T) {
		// seedTree has three files, one over the limit.
		res := exec(t, s, "execute_with_workspace", map[string]any{"code": "pass"})
		require.False(t, res.Success)
		assert.Contains(t, res.Error, "seed-file limit")
	})

	t.Run("output cap", func(t *testing.T) {
		res := exec(t, s, "execute_python", map[string]any{"code": "print('x'*100)"})
		require.True(t, res.Success, res.Error)
		report := res.Data.(tools.ExecutionReport)
		assert.Equal(t, "0123\n... (output truncated)", report.Stdout)
	})
}

func TestToolSurfaceComplete(t *testing.T) {
	s, _ := newSession(t, runtime.EchoWorkerScript)
	expected := []string{
		"copy_item", "create_item", "delete_item", "execute_python",
		"execute_with_workspace", "install_package", "list_packages",
		"modify_text", "move_item", "read_directory", "read_file",
		"rename_item", "run_main_script", "test_code", "write_file",
	}
	assert.Equal(t, expected, s.Registry().Names())

	cats := s.Registry().Categories()
	assert.Len(t, cats[tools.CategoryFilesystem], 4)
	assert.Len(t, cats[tools.CategoryItem], 5)
	assert.Len(t, cats[tools.CategoryExecution], 4)
	assert.Len(t, cats[tools.CategoryPackage], 2)
}
