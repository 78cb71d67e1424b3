package runtime

import (
	"sort"
	"sync"
)

// PackageSet tracks packages successfully installed into the current
// worker instance. It belongs to the runtime, not the workspace: the
// channel resets it whenever the worker is (re-)initialised.
type PackageSet struct {
	mu  sync.Mutex
	set map[string]struct{}
}

// NewPackageSet returns an empty set.
func NewPackageSet() *PackageSet {
	return &PackageSet{set: make(map[string]struct{})}
}

// Has reports whether name was already installed.
func (p *PackageSet) Has(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.set[name]
	return ok
}

// Add records a successful installation.
func (p *PackageSet) Add(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set[name] = struct{}{}
}

// List returns the installed package names in sorted order.
func (p *PackageSet) List() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.set))
	for name := range p.set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of installed packages.
func (p *PackageSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.set)
}

// Reset empties the set. Called when the worker is re-initialised.
func (p *PackageSet) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set = make(map[string]struct{})
}
