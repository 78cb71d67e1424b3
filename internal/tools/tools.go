// Package tools defines the capability handlers an agent calls against
// the virtual workspace and the sandboxed Python runtime. Each tool is
// a pure contract: a declared parameter schema plus a handler that
// decodes the validated argument map into a typed request.
package tools

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"pybench/internal/registry"
)

// Tool categories used for registry introspection.
const (
	CategoryFilesystem = "filesystem"
	CategoryItem       = "item"
	CategoryExecution  = "execution"
	CategoryPackage    = "package"
)

// decode maps the merged argument map onto a typed request struct,
// matching keys by json tag. The registry has already type-checked the
// primitives, so a decode failure here means a malformed nested value.
func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return fmt.Errorf("failed to build argument decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// RegisterAll registers the complete tool surface on a registry.
func RegisterAll(r *registry.Registry) {
	for _, t := range []registry.Tool{
		NewReadDirectory(),
		NewReadFile(),
		NewWriteFile(),
		NewModifyText(),
		NewCreateItem(),
		NewDeleteItem(),
		NewRenameItem(),
		NewMoveItem(),
		NewCopyItem(),
		NewExecutePython(),
		NewExecuteWithWorkspace(),
		NewRunMainScript(),
		NewTestCode(),
		NewInstallPackage(),
		NewListPackages(),
	} {
		r.Register(t)
	}
}
