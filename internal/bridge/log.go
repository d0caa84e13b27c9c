package bridge

import (
	"io"
	"log"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
)

var debugEnabled atomic.Bool

func setupLog(dbg bool) {
	if dbg {
		debugEnabled.Store(true)
	}
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(os.Stderr), lgr.LevelBraces}
	if debugEnabled.Load() {
		logOpts = []lgr.Option{lgr.Out(os.Stderr), lgr.Err(os.Stderr), lgr.Debug, lgr.CallerFunc, lgr.Msec,
			lgr.LevelBraces, lgr.StackTraceOnError}
	}
	colorizer := lgr.Mapper{
		ErrorFunc: func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:  func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:  func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc: func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		TimeFunc:  func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

// EnableDebugLog switches the process to debug logging. It reports true only for the
// call that actually enabled it.
func EnableDebugLog() bool {
	if !debugEnabled.CompareAndSwap(false, true) {
		return false
	}
	setupLog(true)
	log.Printf("[DEBUG] debug logging enabled")
	return true
}
