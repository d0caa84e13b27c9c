// Package config loads the process-wide settings of the bridge from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Options are the bridge settings. Every option is read from a LIBSQL_BRIDGE_ prefixed
// environment variable, e.g. LIBSQL_BRIDGE_WORKERS.
type Options struct {
	Workers           int           `long:"workers" env:"WORKERS" default:"8" description:"number of executor workers"`
	Debug             bool          `long:"debug" env:"DEBUG" description:"enable debug logging"`
	BusyTimeout       time.Duration `long:"busy-timeout" env:"BUSY_TIMEOUT" default:"5s" description:"busy timeout for local databases"`
	TursoLoadStrategy string        `long:"turso-load-strategy" env:"TURSO_LOAD_STRATEGY" default:"mixed" description:"turso native library load strategy"`
	CacheDir          string        `long:"cache-dir" env:"CACHE_DIR" description:"directory for replicas of remote databases, user cache dir if empty"`
}

type envOptions struct {
	Bridge Options `group:"bridge" namespace:"bridge" env-namespace:"LIBSQL_BRIDGE"`
}

// Load reads Options from the environment only.
func Load() (Options, error) {
	return Parse(nil)
}

// Parse reads Options from args, falling back to the environment and defaults.
func Parse(args []string) (Options, error) {
	var opts envOptions
	p := flags.NewParser(&opts, flags.IgnoreUnknown)
	if _, err := p.ParseArgs(args); err != nil {
		return Options{}, fmt.Errorf("can't parse bridge options: %w", err)
	}
	if err := opts.Bridge.validate(); err != nil {
		return Options{}, err
	}
	return opts.Bridge, nil
}

func (o Options) validate() error {
	if o.Workers < 1 {
		return fmt.Errorf("invalid workers count %d, must be positive", o.Workers)
	}
	if o.BusyTimeout < 0 {
		return errors.New("busy timeout can't be negative")
	}
	return nil
}
