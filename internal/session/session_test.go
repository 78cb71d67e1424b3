package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pybench/internal/runtime"
	"pybench/internal/workspace"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	mt := runtime.NewMockTransport(runtime.EchoWorkerScript)
	packages := runtime.NewPackageSet()
	ch := runtime.NewChannel(mt, packages, zerolog.Nop())
	t.Cleanup(func() { _ = ch.Close() })
	require.NoError(t, ch.Init(context.Background(), time.Second))
	return New(zerolog.Nop(), WithChannel(ch, packages))
}

func TestNewRegistersFullToolSurface(t *testing.T) {
	s := newTestSession(t)
	assert.Len(t, s.Registry().Names(), 15)
	assert.Empty(t, s.Tree())

	_, ok := s.Registry().Context()
	assert.True(t, ok, "context must be installed at construction")
}

func TestExecuteSwapsTreeAtomically(t *testing.T) {
	s := newTestSession(t)

	res := s.Execute(context.Background(), "create_item", map[string]any{
		"path": "main.py", "type": "file", "content": "print(1)",
	})
	require.True(t, res.Success, res.Error)

	tree := s.Tree()
	require.Len(t, tree, 1)
	assert.Equal(t, "main.py", tree[0].Name)
}

func TestSnapshotsSurviveLaterMutations(t *testing.T) {
	s := newTestSession(t)

	res := s.Execute(context.Background(), "write_file", map[string]any{"path": "a.txt", "content": "v1"})
	require.True(t, res.Success, res.Error)
	snapshot := s.Tree()

	res = s.Execute(context.Background(), "write_file", map[string]any{"path": "a.txt", "content": "v2"})
	require.True(t, res.Success, res.Error)

	// The earlier snapshot still reads v1: mutators rebuild, never edit
	// in place.
	old, err := workspace.Resolve(snapshot, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", old.Content)

	cur, err := workspace.Resolve(s.Tree(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", cur.Content)
}

func TestFailedCallLeavesTreeUntouched(t *testing.T) {
	s := newTestSession(t)
	res := s.Execute(context.Background(), "write_file", map[string]any{"path": "a.txt", "content": "v1"})
	require.True(t, res.Success, res.Error)
	before := s.Tree()

	res = s.Execute(context.Background(), "no_such_tool", map[string]any{})
	require.False(t, res.Success)
	res = s.Execute(context.Background(), "delete_item", map[string]any{"path": "ghost"})
	require.False(t, res.Success)

	assert.Equal(t, before, s.Tree())
}

func TestConcurrentReadsDuringMutation(t *testing.T) {
	s := newTestSession(t)
	res := s.Execute(context.Background(), "write_file", map[string]any{"path": "a.txt", "content": "x"})
	require.True(t, res.Success, res.Error)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tree := s.Tree()
				if _, err := workspace.Resolve(tree, "a.txt"); err != nil {
					t.Error("a.txt vanished from a snapshot")
					return
				}
			}
		}()
	}
	for j := 0; j < 50; j++ {
		res := s.Execute(context.Background(), "modify_text", map[string]any{
			"filePath": "a.txt", "newContent": "y",
		})
		require.True(t, res.Success, res.Error)
	}
	wg.Wait()
}

func TestContextTracksTreeUnderConcurrentSwaps(t *testing.T) {
	s := newTestSession(t)
	res := s.Execute(context.Background(), "write_file", map[string]any{"path": "a.txt", "content": "0"})
	require.True(t, res.Success, res.Error)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				s.Execute(context.Background(), "modify_text", map[string]any{
					"filePath": "a.txt", "newContent": "x",
				})
			}
		}(i)
	}
	wg.Wait()

	// The registry's context and the session tree must agree once the
	// swaps settle; the context may never lag behind the tree.
	ctx, ok := s.Registry().Context()
	require.True(t, ok)
	assert.Equal(t, s.Tree(), ctx.Tree)
}

func TestSessionWithoutChannelStillServesWorkspaceTools(t *testing.T) {
	s := New(zerolog.Nop())

	res := s.Execute(context.Background(), "write_file", map[string]any{"path": "a.txt", "content": "ok"})
	require.True(t, res.Success, res.Error)

	res = s.Execute(context.Background(), "execute_python", map[string]any{"code": "print(1)"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "no execution runtime")
}
