package registry

import (
	"time"

	"pybench/internal/runtime"
	"pybench/internal/workspace"
)

// Limits bounds what tool calls may ask of the workspace and runtime.
// Zero values mean unlimited (or the runtime's built-in default for
// the timeouts).
type Limits struct {
	MaxFileSize       int64
	MaxSeedFiles      int
	MaxOutputBytes    int64
	ExecTimeout       time.Duration
	ValidationTimeout time.Duration
}

// ExecutionContext bundles the shared state every tool call runs
// against: the current workspace tree snapshot, the atomic tree
// replacement callback, and the handles to the execution runtime. It
// is owned by the registry; tools receive a per-call copy and must not
// retain it beyond their own call.
type ExecutionContext struct {
	Tree       []*workspace.Node
	UpdateTree func(tree []*workspace.Node)
	Channel    *runtime.Channel
	Packages   *runtime.PackageSet
	Limits     Limits
}

// reservedArgKeys are argument names that always come from the
// execution context. Caller-supplied values under these keys are
// discarded during the merge so a caller can never smuggle in its own
// tree or channel handle.
var reservedArgKeys = []string{"fileTree", "updateFileTree", "channel", "packages"}
