// Package session wires one agent workspace together: the in-memory
// tree, the tool registry and the execution runtime. A Session is an
// explicit service object constructed per workspace and passed by
// reference, so parallel sessions and tests never share state.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"pybench/internal/registry"
	"pybench/internal/runtime"
	"pybench/internal/tools"
	"pybench/internal/workspace"
)

// Session owns the live workspace tree and the shared execution
// context. Tree replacement is a single atomic swap of the whole
// slice; tools never mutate nodes in place, so snapshots handed out
// earlier stay internally consistent.
type Session struct {
	log      zerolog.Logger
	reg      *registry.Registry
	channel  *runtime.Channel
	packages *runtime.PackageSet
	limits   registry.Limits

	mu   sync.Mutex
	tree []*workspace.Node
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithChannel attaches a runtime channel and its package set.
func WithChannel(ch *runtime.Channel, packages *runtime.PackageSet) Option {
	return func(s *Session) {
		s.channel = ch
		s.packages = packages
	}
}

// WithLimits bounds file sizes, seed-file counts, captured output and
// default execution timeouts for every tool call.
func WithLimits(limits registry.Limits) Option {
	return func(s *Session) {
		s.limits = limits
	}
}

// WithTree seeds the initial workspace tree.
func WithTree(tree []*workspace.Node) Option {
	return func(s *Session) {
		s.tree = tree
	}
}

// New builds a session with the full tool surface registered and the
// execution context installed.
func New(log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		log:  log,
		reg:  registry.New(log),
		tree: []*workspace.Node{},
	}
	for _, opt := range opts {
		opt(s)
	}
	tools.RegisterAll(s.reg)
	s.refreshContext(s.tree)
	return s
}

// Registry exposes the underlying registry for introspection.
func (s *Session) Registry() *registry.Registry {
	return s.reg
}

// Tree returns the current workspace tree snapshot. Nodes are shared
// with the live tree but mutators never modify them in place, so the
// snapshot is safe to read.
func (s *Session) Tree() []*workspace.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Execute dispatches one tool call against the current context.
func (s *Session) Execute(ctx context.Context, name string, args map[string]any) *registry.Result {
	return s.reg.Execute(ctx, name, args)
}

// applyTree is the tree-replacement callback handed to every tool
// call: one atomic whole-tree swap, never a partial mutation. The lock
// is held across the context refresh so the registry's context can
// never lag behind the tree under concurrent swaps.
func (s *Session) applyTree(tree []*workspace.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
	s.refreshContext(tree)
}

func (s *Session) refreshContext(tree []*workspace.Node) {
	s.reg.SetContext(registry.ExecutionContext{
		Tree:       tree,
		UpdateTree: s.applyTree,
		Channel:    s.channel,
		Packages:   s.packages,
		Limits:     s.limits,
	})
}
