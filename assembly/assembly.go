// Package assembly tracks the built modules of one design session.
package assembly

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"reactorcad/cad"
)

// Workspace is an in-memory assembly. It owns the list of built modules
// and counts refresh cycles; exporters poll Revision to detect changes.
type Workspace struct {
	mu       sync.Mutex
	logger   zerolog.Logger
	modules  []cad.Module
	revision uint64
}

// New creates an empty workspace.
func New(logger zerolog.Logger) *Workspace {
	return &Workspace{logger: logger}
}

// BuildModule registers a freshly created module. Registering the same
// module twice is rejected.
func (w *Workspace) BuildModule(m cad.Module) error {
	if m == nil {
		return fmt.Errorf("module must not be nil")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.modules {
		if existing == m {
			return fmt.Errorf("module already registered")
		}
	}
	w.modules = append(w.modules, m)
	w.revision++
	w.logger.Debug().Int("modules", len(w.modules)).Msg("module registered")
	return nil
}

// DeleteModule removes a module from the workspace.
func (w *Workspace) DeleteModule(m cad.Module) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, existing := range w.modules {
		if existing == m {
			w.modules = append(w.modules[:i], w.modules[i+1:]...)
			w.revision++
			w.logger.Debug().Int("modules", len(w.modules)).Msg("module deleted")
			return nil
		}
	}
	return fmt.Errorf("module not registered")
}

// Refresh bumps the revision after an in-place update.
func (w *Workspace) Refresh() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.revision++
	return nil
}

// Modules returns the registered modules in registration order.
func (w *Workspace) Modules() []cad.Module {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]cad.Module, len(w.modules))
	copy(out, w.modules)
	return out
}

// Revision returns the current change counter.
func (w *Workspace) Revision() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.revision
}
