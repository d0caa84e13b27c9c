// Command sqlbridge is a diagnostic shell over the bridge. It runs SQL scripts through
// the same operations the C library exposes and prints every result set.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/EleDiaz/LibSql.Bindings/internal/boundary"
	"github.com/EleDiaz/LibSql.Bindings/internal/bridge"
	"github.com/EleDiaz/LibSql.Bindings/internal/config"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
)

type options struct {
	Profile        string `short:"p" long:"profile" env:"SQLBRIDGE_PROFILE" description:"yaml connection profile"`
	DB             string `short:"d" long:"db" env:"SQLBRIDGE_DB" description:"local database path or replica path"`
	URL            string `short:"u" long:"url" env:"SQLBRIDGE_URL" description:"primary url of a replicated database"`
	AuthToken      string `short:"t" long:"token" env:"SQLBRIDGE_TOKEN" description:"auth token for the primary"`
	EncryptionKey  string `short:"k" long:"key" env:"SQLBRIDGE_KEY" description:"encryption key of a local database"`
	ReadYourWrites bool   `long:"read-your-writes" description:"push local writes to the primary right away"`
	SyncInterval   int    `long:"sync-interval" description:"periodic sync interval in seconds, 0 to disable"`
	Sync           bool   `long:"sync" description:"sync the replica before running the script"`
	Dbg            bool   `long:"dbg" description:"debug mode"`

	Args struct {
		SQL []string `positional-arg-name:"sql" description:"statements to run, stdin if empty"`
	} `positional-args:"yes"`
}

var revision = "latest"

var exitFunc = os.Exit

func main() {
	fmt.Printf("sqlbridge %s\n", revision)

	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		exitFunc(1)
	}
	setupLog(opts.Dbg)

	if err := run(opts, os.Stdin, os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		exitFunc(1)
	}
}

func run(opts options, in io.Reader, out io.Writer) error {
	cfg, err := opts.syncConfig()
	if err != nil {
		return err
	}
	bopts, err := config.Load()
	if err != nil {
		return err
	}
	rt := bridge.New(bopts)
	defer rt.Drain()
	b := boundary.New(rt)

	db, err := b.OpenSync(cfg)
	if err != nil {
		return fmt.Errorf("can't open %s: %w", cfg.DBPath, err)
	}
	defer b.Close(db)

	if opts.Sync {
		rep, syncErr := b.Sync(db)
		if syncErr != nil {
			return syncErr
		}
		log.Printf("[INFO] synced, frame %d, revision %q", rep.FrameNo, rep.Revision)
	}

	conn, err := b.Connect(db)
	if err != nil {
		return err
	}
	defer b.Disconnect(conn)

	sh := &shell{b: b, conn: conn, out: out}
	if len(opts.Args.SQL) > 0 {
		return sh.script(strings.Join(opts.Args.SQL, " "))
	}
	return sh.stdin(in)
}

// syncConfig merges the profile with command line options, options win.
func (o options) syncConfig() (boundary.SyncConfig, error) {
	var prof profile
	if o.Profile != "" {
		var err error
		if prof, err = loadProfile(o.Profile); err != nil {
			return boundary.SyncConfig{}, err
		}
	}
	cfg := prof.syncConfig()
	if o.DB != "" {
		cfg.DBPath = o.DB
	}
	if o.URL != "" {
		cfg.PrimaryURL = o.URL
	}
	if o.AuthToken != "" {
		cfg.AuthToken = o.AuthToken
	}
	if o.EncryptionKey != "" {
		cfg.EncryptionKey = o.EncryptionKey
	}
	if o.ReadYourWrites {
		cfg.ReadYourWrites = true
	}
	if o.SyncInterval > 0 {
		cfg.SyncInterval = o.SyncInterval
	}
	if cfg.DBPath == "" {
		cfg.DBPath = ":memory:"
	}
	return cfg, nil
}

type shell struct {
	b    *boundary.Bridge
	conn handle.Token
	out  io.Writer
}

// stdin runs one script per line, a trailing backslash continues the line.
func (s *shell) stdin(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	var buf strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasSuffix(line, `\`) {
			buf.WriteString(strings.TrimSuffix(line, `\`))
			buf.WriteString("\n")
			continue
		}
		buf.WriteString(line)
		sql := strings.TrimSpace(buf.String())
		buf.Reset()
		if sql == "" {
			continue
		}
		if err := s.script(sql); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}
	return scanner.Err()
}

func (s *shell) script(sql string) error {
	batch, err := s.b.ExecuteBatch(s.conn, sql)
	if err != nil {
		return err
	}
	defer s.b.FreeBatch(batch)
	for n := 0; ; n++ {
		rows, more, err := s.b.NextBatch(batch)
		if err != nil {
			return err
		}
		if !more {
			fmt.Fprintln(s.out, color.GreenString("ok, %d statements", n))
			return nil
		}
		if rows.IsNull() {
			continue
		}
		err = s.print(rows)
		_ = s.b.FreeRows(rows)
		if err != nil {
			return err
		}
	}
}

func (s *shell) print(rows handle.Token) error {
	n := s.b.ColumnCount(rows)
	names := make([]string, n)
	for i := range names {
		name, err := s.b.ColumnName(rows, i)
		if err != nil {
			return err
		}
		names[i] = name
	}
	fmt.Fprintln(s.out, color.New(color.Bold, color.FgCyan).Sprint(strings.Join(names, "\t")))

	for {
		row, err := s.b.NextRow(rows)
		if err != nil {
			return err
		}
		if row.IsNull() {
			return nil
		}
		cells := make([]string, n)
		for i := range cells {
			if cells[i], err = cell(s.b, rows, row, i); err != nil {
				_ = s.b.FreeRow(row)
				return err
			}
		}
		_ = s.b.FreeRow(row)
		fmt.Fprintln(s.out, strings.Join(cells, "\t"))
	}
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
