package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler executes one tool call. args is the validated argument map
// with reserved keys stripped; call.Context is a per-call snapshot of
// the shared execution context.
type Handler func(ctx context.Context, call Call) *Result

// Call is everything a handler receives for one invocation.
type Call struct {
	Args    map[string]any
	Context ExecutionContext
}

// Tool is a named, schema-described capability. Immutable once
// registered; registering the same name again overwrites the previous
// definition, and the overwrite is logged so it never happens silently.
type Tool struct {
	Name        string
	Description string
	Category    string
	Parameters  *Schema
	Handler     Handler
}

// Declaration exports the tool's externally visible description.
func (t Tool) Declaration() Declaration {
	return Declaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Registry holds the tool set and the shared execution context, and
// dispatches validated calls. Construct one per session and pass it by
// reference; there is deliberately no package-level instance, so
// isolated sessions and tests cannot leak state into each other.
type Registry struct {
	log zerolog.Logger

	mu      sync.RWMutex
	tools   map[string]Tool
	context *ExecutionContext
}

// New creates an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		log:   log,
		tools: make(map[string]Tool),
	}
}

// Register adds a tool, overwriting any previous definition under the
// same name. Returns true when an existing tool was replaced.
func (r *Registry) Register(t Tool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.tools[t.Name]
	if replaced {
		r.log.Warn().Str("tool", t.Name).Msg("overwriting existing tool registration")
	}
	r.tools[t.Name] = t
	return replaced
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns every registered tool name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetContext installs the shared execution context used by every
// subsequent Execute call. The registry stores its own copy.
func (r *Registry) SetContext(ctx ExecutionContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := ctx
	r.context = &snapshot
}

// Context returns a copy of the current execution context.
func (r *Registry) Context() (ExecutionContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.context == nil {
		return ExecutionContext{}, false
	}
	return *r.context, true
}

// Schemas exports the declarations of every registered tool, sorted by
// name. Computed from the live set on each call so it can never drift
// from what is actually registered.
func (r *Registry) Schemas() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]Declaration, 0, len(r.tools))
	for _, t := range r.tools {
		decls = append(decls, t.Declaration())
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}

// ByCategory returns the tools in one category, sorted by name.
func (r *Registry) ByCategory(category string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0)
	for _, t := range r.tools {
		if t.Category == category {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Categories returns every category with its tool names, both sorted.
func (r *Registry) Categories() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string)
	for _, t := range r.tools {
		out[t.Category] = append(out[t.Category], t.Name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

// ValidateParameters checks args against the tool's declared schema.
// Required-key presence and primitive type checks both run
// unconditionally and every violation is collected; callers get the
// full list, not just the first failure.
func (r *Registry) ValidateParameters(name string, args map[string]any) (bool, []string) {
	t, ok := r.Get(name)
	if !ok {
		return false, []string{fmt.Sprintf("Tool '%s' not found in registry", name)}
	}
	errs := validateAgainstSchema(t.Parameters, args)
	return len(errs) == 0, errs
}

// Execute runs a named tool: look up, merge the shared context over
// the caller's arguments, validate, dispatch. Every failure mode is
// converted into a Result; nothing escapes as an unhandled fault.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) *Result {
	dispatchStart := time.Now()

	tool, ok := r.Get(name)
	if !ok {
		return r.finish(dispatchStart, name, &Result{
			Success:  false,
			Error:    fmt.Sprintf("Tool '%s' not found in registry", name),
			Metadata: map[string]any{MetaExecutionTime: 0.0},
		})
	}

	execCtx, ok := r.Context()
	if !ok {
		return r.finish(dispatchStart, name, &Result{
			Success:  false,
			Error:    "execution context not set",
			Metadata: map[string]any{MetaExecutionTime: 0.0},
		})
	}

	// Copy-in merge: the caller's args never alias the stored map, and
	// reserved keys always come from the context, never the caller.
	merged := make(map[string]any, len(args))
	for k, v := range args {
		merged[k] = v
	}
	for _, key := range reservedArgKeys {
		if _, clash := merged[key]; clash {
			r.log.Warn().Str("tool", name).Str("param", key).Msg("dropping caller-supplied reserved argument")
			delete(merged, key)
		}
	}
	applyDefaults(tool.Parameters, merged)

	if errs := validateAgainstSchema(tool.Parameters, merged); len(errs) > 0 {
		return r.finish(dispatchStart, name, &Result{
			Success:  false,
			Error:    "parameter validation failed: " + strings.Join(errs, "; "),
			Metadata: map[string]any{MetaExecutionTime: 0.0},
		})
	}

	res := r.invoke(ctx, tool, Call{Args: merged, Context: execCtx})
	return r.finish(dispatchStart, name, res)
}

// invoke runs the handler with panic recovery: a programming defect in
// a tool becomes a generic failure instead of tearing down the caller.
func (r *Registry) invoke(ctx context.Context, tool Tool, call Call) (res *Result) {
	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("tool", tool.Name).Interface("panic", rec).Msg("tool handler panicked")
			res = Failf(started, "internal error in tool '%s'", tool.Name)
		}
	}()
	res = tool.Handler(ctx, call)
	if res == nil {
		res = Failf(started, "internal error in tool '%s': handler returned no result", tool.Name)
	}
	return res
}

func (r *Registry) finish(dispatchStart time.Time, name string, res *Result) *Result {
	res.WithMeta(MetaToolName, name)
	res.WithMeta(MetaRegistryExecutionTime, millisSince(dispatchStart))
	if !res.Success {
		r.log.Debug().Str("tool", name).Str("error", res.Error).Msg("tool call failed")
	}
	return res
}
