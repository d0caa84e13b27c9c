package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
)

// LoadExtension loads the shared library at path into the connection. With an empty
// entry the default sqlite entry points are tried. The library is opened and its entry
// point resolved before the engine sees it, a missing library or symbol fails early.
func (c *Conn) LoadExtension(ctx context.Context, path, entry string) error {
	if c.db.backend != BackendLocal {
		return fmt.Errorf("%w on %s databases", ErrExtensionLoad, c.db.backend)
	}
	lib, err := resolveExtension(path)
	if err != nil {
		return err
	}
	sym, err := probeExtension(lib, entryPoints(lib, entry))
	if err != nil {
		return err
	}
	return c.conn.Raw(func(dc any) error {
		sc, ok := dc.(interface{ LoadExtension(lib, entry string) error })
		if !ok {
			return fmt.Errorf("%w on %T", ErrExtensionLoad, dc)
		}
		return sc.LoadExtension(lib, sym)
	})
}

// resolveExtension finds the library file, adding the platform suffix when path has
// none, the way sqlite does.
func resolveExtension(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty extension path")
	}
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		return path, nil
	}
	var suffix string
	switch runtime.GOOS {
	case "darwin":
		suffix = ".dylib"
	case "windows":
		suffix = ".dll"
	default:
		suffix = ".so"
	}
	if fi, err := os.Stat(path + suffix); err == nil && !fi.IsDir() {
		return path + suffix, nil
	}
	return "", fmt.Errorf("extension %s not found", path)
}

// entryPoints lists the init symbols to look for: entry if given, otherwise
// sqlite3_extension_init and then sqlite3_X_init, X being the lower case letters of the
// file name up to the first dot, without a leading "lib".
func entryPoints(lib, entry string) []string {
	if entry != "" {
		return []string{entry}
	}
	base := filepath.Base(lib)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimPrefix(strings.ToLower(base), "lib")
	name := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return r
		}
		return -1
	}, base)
	return []string{"sqlite3_extension_init", "sqlite3_" + name + "_init"}
}
