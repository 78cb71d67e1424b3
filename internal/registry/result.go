package registry

import (
	"fmt"
	"time"
)

// Metadata keys attached to every result.
const (
	MetaExecutionTime         = "executionTime"
	MetaToolName              = "toolName"
	MetaRegistryExecutionTime = "registryExecutionTime"
)

// Result is the uniform outcome of a tool call. Exactly one of Data
// and Error is meaningful depending on Success. Metadata always
// carries executionTime (milliseconds from handler entry to return);
// the registry adds toolName and registryExecutionTime on dispatch.
type Result struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// Ok builds a successful result. started is the handler's entry time.
func Ok(started time.Time, data any) *Result {
	return &Result{
		Success:  true,
		Data:     data,
		Metadata: map[string]any{MetaExecutionTime: millisSince(started)},
	}
}

// Fail builds a failed result from an error.
func Fail(started time.Time, err error) *Result {
	return &Result{
		Success:  false,
		Error:    err.Error(),
		Metadata: map[string]any{MetaExecutionTime: millisSince(started)},
	}
}

// Failf builds a failed result from a format string.
func Failf(started time.Time, format string, args ...any) *Result {
	return &Result{
		Success:  false,
		Error:    fmt.Sprintf(format, args...),
		Metadata: map[string]any{MetaExecutionTime: millisSince(started)},
	}
}

// WithMeta attaches a tool-specific metadata entry.
func (r *Result) WithMeta(key string, value any) *Result {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
	return r
}

func millisSince(started time.Time) float64 {
	return float64(time.Since(started).Microseconds()) / 1000.0
}
