package tools

import (
	"context"
	"time"

	"pybench/internal/registry"
)

// InstallReport is the install_package payload.
type InstallReport struct {
	PackageName      string `json:"packageName"`
	Message          string `json:"message"`
	AlreadyInstalled bool   `json:"alreadyInstalled"`
}

// PackageListing is the list_packages payload.
type PackageListing struct {
	Packages []string `json:"packages"`
	Count    int      `json:"count"`
}

// NewInstallPackage installs a package into the running runtime. A
// package already recorded in the installed set short-circuits to
// success without a worker round trip; only a successful worker
// acknowledgement adds a new name to the set.
func NewInstallPackage() registry.Tool {
	return registry.Tool{
		Name:        "install_package",
		Description: "Installs a Python package into the sandboxed runtime",
		Category:    CategoryPackage,
		Parameters: &registry.Schema{
			Type: registry.TypeObject,
			Properties: map[string]*registry.Schema{
				"packageName": {
					Type:        registry.TypeString,
					Description: "Name of the package to install",
				},
			},
			Required: []string{"packageName"},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			var req struct {
				PackageName string `json:"packageName"`
			}
			if err := decode(call.Args, &req); err != nil {
				return registry.Fail(started, err)
			}
			if req.PackageName == "" {
				return registry.Failf(started, "packageName cannot be empty")
			}
			packages := call.Context.Packages
			if packages == nil {
				return registry.Failf(started, "no package state attached to this session")
			}
			if packages.Has(req.PackageName) {
				return registry.Ok(started, InstallReport{
					PackageName:      req.PackageName,
					Message:          req.PackageName + " is already installed",
					AlreadyInstalled: true,
				})
			}
			ch := requireChannel(call)
			if ch == nil {
				return registry.Failf(started, "no execution runtime attached to this session")
			}
			msg, err := ch.Install(ctx, req.PackageName, execTimeout(call, 0))
			if err != nil {
				return registry.Fail(started, err)
			}
			packages.Add(req.PackageName)
			return registry.Ok(started, InstallReport{
				PackageName: req.PackageName,
				Message:     msg,
			})
		},
	}
}

// NewListPackages reports the packages installed into the current
// runtime instance. Pure bookkeeping, no worker round trip.
func NewListPackages() registry.Tool {
	return registry.Tool{
		Name:        "list_packages",
		Description: "Lists packages installed into the sandboxed runtime",
		Category:    CategoryPackage,
		Parameters: &registry.Schema{
			Type:       registry.TypeObject,
			Properties: map[string]*registry.Schema{},
		},
		Handler: func(ctx context.Context, call registry.Call) *registry.Result {
			started := time.Now()
			packages := call.Context.Packages
			if packages == nil {
				return registry.Failf(started, "no package state attached to this session")
			}
			names := packages.List()
			return registry.Ok(started, PackageListing{
				Packages: names,
				Count:    len(names),
			})
		},
	}
}
