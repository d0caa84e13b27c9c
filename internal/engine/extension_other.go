//go:build !darwin && !linux

package engine

// probeExtension can't inspect libraries here, the first candidate is left for the
// engine to resolve.
func probeExtension(_ string, syms []string) (string, error) {
	return syms[0], nil
}
