package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	overlayMu sync.RWMutex
	overlays  = make(map[string]string)
)

// RegisterOverlayString registers a virtual CUE catalog fragment under the
// given name. Fragments are unified with the catalog schema and merged into
// every catalog loaded afterwards; packages typically register their styles
// from an init function.
func RegisterOverlayString(name, src string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("overlay name must not be empty")
	}
	if strings.TrimSpace(src) == "" {
		return errors.New("overlay source must not be empty")
	}
	overlayMu.Lock()
	defer overlayMu.Unlock()
	if _, exists := overlays[trimmed]; exists {
		return fmt.Errorf("overlay %s already registered", trimmed)
	}
	overlays[trimmed] = src
	return nil
}

// MustRegisterOverlayString registers a fragment and panics on failure. It
// is intended for init-time registration of compiled-in fragments.
func MustRegisterOverlayString(name, src string) {
	if err := RegisterOverlayString(name, src); err != nil {
		panic(err)
	}
}

func registeredOverlays() [][2]string {
	overlayMu.RLock()
	defer overlayMu.RUnlock()
	names := make([]string, 0, len(overlays))
	for name := range overlays {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([][2]string, 0, len(names))
	for _, name := range names {
		out = append(out, [2]string{name, overlays[name]})
	}
	return out
}

// ResetOverlaysForTest clears the overlay registry. This helper is intended
// for tests only.
func ResetOverlaysForTest() {
	overlayMu.Lock()
	overlays = make(map[string]string)
	overlayMu.Unlock()
}
