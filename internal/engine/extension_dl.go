//go:build darwin || linux

package engine

import (
	"fmt"
	"log"

	"github.com/ebitengine/purego"
)

// probeExtension opens lib and returns the first of syms it exports.
func probeExtension(lib string, syms []string) (string, error) {
	h, err := purego.Dlopen(lib, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return "", fmt.Errorf("can't open extension %s: %w", lib, err)
	}
	defer func() {
		if err := purego.Dlclose(h); err != nil {
			log.Printf("[DEBUG] can't close %s, %v", lib, err)
		}
	}()
	for _, sym := range syms {
		if _, err := purego.Dlsym(h, sym); err == nil {
			log.Printf("[DEBUG] extension %s, entry point %s", lib, sym)
			return sym, nil
		}
	}
	return "", fmt.Errorf("extension %s exports none of %v", lib, syms)
}
