package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pybench/internal/registry"
	"pybench/internal/runtime"
	"pybench/internal/workspace"
)

const entryPoint = "main.py"

// ExecutionReport is the payload of every code-execution tool.
type ExecutionReport struct {
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	ExecutionTime float64 `json:"executionTime"` // milliseconds
}

// TestReport extends ExecutionReport with the expected-output check.
type TestReport struct {
	ExecutionReport
	ExpectedOutput string `json:"expectedOutput,omitempty"`
	Passed         *bool  `json:"passed,omitempty"`
}

func execReport(call registry.Call, res *runtime.ExecResult) ExecutionReport {
	stdout, stderr := res.Stdout, res.Stderr
	if max := call.Context.Limits.MaxOutputBytes; max > 0 {
		stdout = capOutput(stdout, max)
		stderr = capOutput(stderr, max)
	}
	return ExecutionReport{
		Stdout:        stdout,
		Stderr:        stderr,
		ExecutionTime: float64(res.Duration.Microseconds()) / 1000.0,
	}
}

func capOutput(s string, max int64) string {
	if int64(len(s)) <= max {
		return s
	}
	return s[:max] + "\n... (output truncated)"
}

func requireChannel(call registry.Call) *runtime.Channel {
	return call.Context.Channel
}

func secondsToTimeout(seconds float64, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

// execTimeout resolves the timeout for a general run: the caller's
// seconds argument, then the session limit, then the built-in default.
func execTimeout(call registry.Call, seconds float64) time.Duration {
	fallback := runtime.DefaultExecTimeout
	if call.Context.Limits.ExecTimeout > 0 {
		fallback = call.Context.Limits.ExecTimeout
	}
	return secondsToTimeout(seconds, fallback)
}

func validationTimeout(call registry.Call, seconds float64) time.Duration {
	fallback := runtime.DefaultValidationTimeout
	if call.Context.Limits.ValidationTimeout > 0 {
		fallback = call.Context.Limits.ValidationTimeout
	}
	return secondsToTimeout(seconds, fallback)
}

// checkSeedFiles enforces the session's seed-file cap.
func checkSeedFiles(call registry.Call, files []runtime.SeedFile) error {
	if max := call.Context.Limits.MaxSeedFiles; max > 0 && len(files) > max {
		return fmt.Errorf("%d files exceed the %d seed-file limit", len(files), max)
	}
	return nil
}

// workspaceSeedFiles flattens every file in the tree into path/content
// pairs for the worker's scratch directory.
func workspaceSeedFiles(tree []*workspace.Node) []runtime.SeedFile {
	var files []runtime.SeedFile
	workspace.Walk(tree, func(path string, n *workspace.Node) {
		if !n.IsFolder() {
			files = append(files, runtime.SeedFile{Path: path, Content: n.Content})
		}
	})
	return files
}

// findEntryPoint prefers a top-level main.py, then the first main.py
// anywhere in the tree.
func findEntryPoint(tree []*workspace.Node) (*workspace.Node, bool) {
	if n, err := workspace.Resolve(tree, entryPoint); err == nil && !n.IsFolder() {
		return n, true
	}
	var found *workspace.Node
	workspace.Walk(tree, func(path string, n *workspace.Node) {
		if found == nil && !n.IsFolder() && n.Name == entryPoint {
			found = n
		}
	})
	return found, found != nil
}

// NewExecutePython runs a code snippet in the sandboxed runtime,
// optionally materialising caller-supplied files first.
func NewExecutePython() registry.Tool {
	return registry.Tool{
		Name:        "execute_python",
		Description: "Executes Python code in the sandboxed runtime",
		Category:    CategoryExecution,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"code": {
					Type:        registry.TypeString,
					Description: "Python code to execute",
				},
				"files": {
					Type:        registry.TypeArray,
					Description: "Files to place in the working directory before execution",
					Items: &registry.Schema{
						Type: registry.TypeObject,
						Properties: map[string]*registry.Schema{
							"path":    {Type: registry.TypeString},
							"content": {Type: registry.TypeString},
						},
						Required: []string{"path", "content"},
					},
				},
				"timeout": {
					Type:        registry.TypeNumber,
					Description: "Timeout in seconds (default: 30)",
				},
			},
			Required: []string{"code"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				Code    string             `json:"code"`
				Files   []runtime.SeedFile `json:"files"`
				Timeout float64            `json:"timeout"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			ch := requireChannel(call)
			if ch == nil {
				return registry.Failf(started, "no execution runtime attached to this session")
			}
			if err := checkSeedFiles(call, req.Files); err != nil {
				return registry.Fail(started, err)
			}
			res, err := ch.Run(ctx, req.Code, req.Files, execTimeout(call, req.Timeout))
			if err != nil {
				return registry.Fail(started, err)
			}
			return registry.Ok(started, execReport(call, res))
		},
	}
}

// NewExecuteWithWorkspace runs a code snippet with the entire
// workspace tree materialised into the runtime's working directory, so
// the code can open and import workspace files.
func NewExecuteWithWorkspace() registry.Tool {
	return registry.Tool{
		Name:        "execute_with_workspace",
		Description: "Executes Python code with all workspace files available on disk",
		Category:    CategoryExecution,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"code": {
					Type:        registry.TypeString,
					Description: "Python code to execute",
				},
				"timeout": {
					Type:        registry.TypeNumber,
					Description: "Timeout in seconds (default: 30)",
				},
			},
			Required: []string{"code"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				Code    string  `json:"code"`
				Timeout float64 `json:"timeout"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			ch := requireChannel(call)
			if ch == nil {
				return registry.Failf(started, "no execution runtime attached to this session")
			}
			files := workspaceSeedFiles(call.Context.Tree)
			if err := checkSeedFiles(call, files); err != nil {
				return registry.Fail(started, err)
			}
			res, err := ch.Run(ctx, req.Code, files, execTimeout(call, req.Timeout))
			if err != nil {
				return registry.Fail(started, err)
			}
			return registry.Ok(started, execReport(call, res)).WithMeta("seededFiles", len(files))
		},
	}
}

// NewRunMainScript executes the workspace's main.py (top-level
// preferred, any main.py otherwise). When the workspace has none,
// fallbackCode runs instead; with neither, the call fails.
func NewRunMainScript() registry.Tool {
	return registry.Tool{
		Name:        "run_main_script",
		Description: "Runs the workspace's main.py, or fallback code if no main.py exists",
		Category:    CategoryExecution,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"fallbackCode": {
					Type:        registry.TypeString,
					Description: "Code to run when the workspace has no main.py",
				},
				"timeout": {
					Type:        registry.TypeNumber,
					Description: "Timeout in seconds (default: 30)",
				},
			},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				FallbackCode string  `json:"fallbackCode"`
				Timeout      float64 `json:"timeout"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			ch := requireChannel(call)
			if ch == nil {
				return registry.Failf(started, "no execution runtime attached to this session")
			}
			code := req.FallbackCode
			entry, found := findEntryPoint(call.Context.Tree)
			if found {
				code = entry.Content
			}
			if code == "" {
				return registry.Failf(started, "workspace has no %s and no fallbackCode was given", entryPoint)
			}
			files := workspaceSeedFiles(call.Context.Tree)
			if err := checkSeedFiles(call, files); err != nil {
				return registry.Fail(started, err)
			}
			res, err := ch.Run(ctx, code, files, execTimeout(call, req.Timeout))
			if err != nil {
				return registry.Fail(started, err)
			}
			return registry.Ok(started, execReport(call, res)).WithMeta("ranMainScript", found)
		},
	}
}

// NewTestCode runs a snippet under the tighter validation timeout and,
// when expectedOutput is given, compares it against trimmed stdout.
func NewTestCode() registry.Tool {
	return registry.Tool{
		Name:        "test_code",
		Description: "Runs Python code and optionally checks its output against an expected value",
		Category:    CategoryExecution,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"code": {
					Type:        registry.TypeString,
					Description: "Python code to test",
				},
				"expectedOutput": {
					Type:        registry.TypeString,
					Description: "Expected stdout (leading/trailing whitespace ignored)",
				},
				"timeout": {
					Type:        registry.TypeNumber,
					Description: "Timeout in seconds (default: 15)",
				},
			},
			Required: []string{"code"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				Code           string  `json:"code"`
				ExpectedOutput *string `json:"expectedOutput"`
				Timeout        float64 `json:"timeout"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			ch := requireChannel(call)
			if ch == nil {
				return registry.Failf(started, "no execution runtime attached to this session")
			}
			res, err := ch.Run(ctx, req.Code, nil, validationTimeout(call, req.Timeout))
			if err != nil {
				return registry.Fail(started, err)
			}
			report := TestReport{ExecutionReport: execReport(call, res)}
			if req.ExpectedOutput != nil {
				report.ExpectedOutput = *req.ExpectedOutput
				passed := strings.TrimSpace(res.Stdout) == strings.TrimSpace(*req.ExpectedOutput)
				report.Passed = &passed
			}
			return registry.Ok(started, report)
		},
	}
}
