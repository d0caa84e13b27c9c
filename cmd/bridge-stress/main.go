// Command bridge-stress hammers one database through the bridge from many goroutines,
// the way foreign threads would drive the C library, and checks integrity periodically.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"
	"github.com/jessevdk/go-flags"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/EleDiaz/LibSql.Bindings/internal/boundary"
	"github.com/EleDiaz/LibSql.Bindings/internal/bridge"
	"github.com/EleDiaz/LibSql.Bindings/internal/config"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
	"github.com/EleDiaz/LibSql.Bindings/internal/value"
)

type options struct {
	DB                string        `short:"d" long:"db" env:"DB_PATH" default:"stress_test.db" description:"database path"`
	Workers           int           `short:"w" long:"workers" env:"NUM_WORKERS" default:"10" description:"number of stress workers"`
	Duration          time.Duration `long:"duration" env:"DURATION" default:"30s" description:"how long to run, 0 until interrupted"`
	Seed              int           `long:"seed" default:"1000" description:"records created before the run"`
	IntegrityInterval time.Duration `long:"integrity-interval" default:"10s" description:"interval between integrity checks"`
	Dbg               bool          `long:"dbg" description:"debug mode"`
}

// record is the stress table, created and seeded with gorm.
type record struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt string
	UpdatedAt string
	Name      string `gorm:"index"`
	Value     int
	Data      []byte
}

type stats struct {
	Inserts    atomic.Int64
	Updates    atomic.Int64
	Deletes    atomic.Int64
	Selects    atomic.Int64
	Batches    atomic.Int64
	Errors     atomic.Int64
	Integrity  atomic.Int64
	Corruption atomic.Bool
}

func (s *stats) String() string {
	return fmt.Sprintf("inserts: %d, updates: %d, deletes: %d, selects: %d, batches: %d, integrity checks: %d, errors: %d",
		s.Inserts.Load(), s.Updates.Load(), s.Deletes.Load(), s.Selects.Load(), s.Batches.Load(),
		s.Integrity.Load(), s.Errors.Load())
}

var exitFunc = os.Exit

func main() {
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		exitFunc(1)
	}
	setupLog(opts.Dbg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := run(ctx, opts)
	if err != nil {
		log.Printf("[ERROR] %v", err)
		exitFunc(1)
	}
	fmt.Println(color.GreenString("done, %s", st))
}

func run(ctx context.Context, opts options) (*stats, error) {
	if err := seed(opts.DB, opts.Seed); err != nil {
		return nil, err
	}

	bopts, err := config.Load()
	if err != nil {
		return nil, err
	}
	if bopts.Workers < opts.Workers {
		bopts.Workers = opts.Workers
	}
	rt := bridge.New(bopts)
	defer rt.Drain()
	b := boundary.New(rt)

	db, err := b.OpenFile(opts.DB)
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w", opts.DB, err)
	}
	defer b.Close(db)

	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	s := &stressor{b: b, db: db, stats: &stats{}}
	go s.reporter(ctx, 5*time.Second)
	go s.integrityWorker(ctx, opts.IntegrityInterval)

	log.Printf("[INFO] starting %d stress workers on %s", opts.Workers, opts.DB)
	wg := syncs.NewErrSizedGroup(opts.Workers, syncs.Context(ctx), syncs.Preemptive)
	for i := 0; i < opts.Workers; i++ {
		id := i
		wg.Go(func() error { return s.worker(ctx, id) })
	}
	if err := wg.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return s.stats, err
	}

	if err := s.integrityCheck(); err != nil {
		return s.stats, err
	}
	return s.stats, nil
}

// seed creates the stress table with gorm and fills it with n records.
func seed(path string, n int) error {
	gdb, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return fmt.Errorf("can't open %s for seeding: %w", path, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := gdb.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return fmt.Errorf("can't set journal mode: %w", err)
	}
	if err := gdb.AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("can't migrate: %w", err)
	}
	if n <= 0 {
		return nil
	}
	now := time.Now().Format(time.RFC3339)
	recs := make([]record, n)
	for i := range recs {
		recs[i] = record{CreatedAt: now, UpdatedAt: now, Name: fmt.Sprintf("seed_%d", i), Value: rand.Intn(10000),
			Data: randomBytes(32)}
	}
	if err := gdb.CreateInBatches(recs, 200).Error; err != nil {
		return fmt.Errorf("can't seed: %w", err)
	}
	log.Printf("[INFO] seeded %d records", n)
	return nil
}

type stressor struct {
	b     *boundary.Bridge
	db    handle.Token
	stats *stats
	// workers hold a read lock, the integrity check holds the write lock
	pause sync.RWMutex
}

func (s *stressor) worker(ctx context.Context, id int) error {
	conn, err := s.b.Connect(s.db)
	if err != nil {
		return fmt.Errorf("worker %d: %w", id, err)
	}
	defer s.b.Disconnect(conn)

	ops := []struct {
		weight int
		fn     func(handle.Token) error
		count  *atomic.Int64
	}{
		{20, s.insert, &s.stats.Inserts},
		{15, s.update, &s.stats.Updates},
		{5, s.delete, &s.stats.Deletes},
		{30, s.selectSome, &s.stats.Selects},
		{10, s.bulk, &s.stats.Inserts},
		{5, s.batch, &s.stats.Batches},
	}
	var total int
	for _, op := range ops {
		total += op.weight
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("[DEBUG] stress worker %d stopped", id)
			return nil
		default:
		}
		pick := rand.Intn(total)
		for _, op := range ops {
			if pick >= op.weight {
				pick -= op.weight
				continue
			}
			s.pause.RLock()
			err := op.fn(conn)
			s.pause.RUnlock()
			if err != nil {
				log.Printf("[DEBUG] worker %d, %v", id, err)
				s.stats.Errors.Add(1)
			} else {
				op.count.Add(1)
			}
			break
		}
		time.Sleep(time.Duration(1+rand.Intn(10)) * time.Millisecond)
	}
}

func (s *stressor) insert(conn handle.Token) error {
	values := s.b.MakePositional()
	defer s.b.FreePositional(values)
	now := time.Now().Format(time.RFC3339)
	for i, v := range []value.Value{value.Text(now), value.Text(now), value.Text(fmt.Sprintf("record_%d", rand.Int63())),
		value.Integer(int64(rand.Intn(10000)))} {
		if err := s.b.BindPositional(values, i, v); err != nil {
			return err
		}
	}
	data := randomBytes(64)
	if err := s.b.BindPositionalBlob(values, 4, data, len(data)); err != nil {
		return err
	}
	_, err := s.b.ExecutePositional(conn,
		"INSERT INTO records (created_at, updated_at, name, value, data) VALUES (?, ?, ?, ?, ?)", values)
	return err
}

func (s *stressor) update(conn handle.Token) error {
	st, err := s.b.Prepare(conn, "UPDATE records SET value = :value, updated_at = :now WHERE id = :id")
	if err != nil {
		return err
	}
	defer s.b.FreeStmt(st)
	values := s.b.MakeNamed()
	defer s.b.FreeNamed(values)
	if err := s.b.BindNamed(values, ":value", value.Integer(int64(rand.Intn(10000)))); err != nil {
		return err
	}
	if err := s.b.BindNamed(values, ":now", value.Text(time.Now().Format(time.RFC3339))); err != nil {
		return err
	}
	if err := s.b.BindNamed(values, ":id", value.Integer(int64(rand.Intn(5000)+1))); err != nil {
		return err
	}
	_, err = s.b.ExecuteStmtNamed(st, values)
	return err
}

func (s *stressor) delete(conn handle.Token) error {
	_, err := s.b.ExecuteNone(conn, fmt.Sprintf("DELETE FROM records WHERE id = %d", rand.Intn(5000)+1))
	return err
}

func (s *stressor) selectSome(conn handle.Token) error {
	values := s.b.MakePositional()
	defer s.b.FreePositional(values)
	if err := s.b.BindPositional(values, 0, value.Integer(int64(rand.Intn(5000)))); err != nil {
		return err
	}
	rows, err := s.b.QueryPositional(conn, "SELECT id, name, value, data FROM records WHERE id > ? LIMIT 10", values)
	if err != nil {
		return err
	}
	defer s.b.FreeRows(rows)
	for {
		row, err := s.b.NextRow(rows)
		if err != nil || row.IsNull() {
			return err
		}
		_, err = s.b.GetString(row, 1)
		if err == nil {
			_, err = s.b.GetBlob(row, 3)
		}
		_ = s.b.FreeRow(row)
		if err != nil {
			return err
		}
	}
}

// bulk inserts records in one immediate transaction through the borrowed connection.
func (s *stressor) bulk(conn handle.Token) error {
	tx, err := s.b.Begin(conn, 2)
	if err != nil {
		return err
	}
	ref, err := s.b.TxConnection(tx)
	if err != nil {
		_ = s.b.Rollback(tx)
		return err
	}
	st, err := s.b.Prepare(ref, "INSERT INTO records (created_at, updated_at, name, value) VALUES (?1, ?1, ?2, ?3)")
	if err != nil {
		_ = s.b.Rollback(tx)
		return err
	}
	defer s.b.FreeStmt(st)
	now := time.Now().Format(time.RFC3339)
	for i := 0; i < 20; i++ {
		values := s.b.MakePositional()
		_ = s.b.BindPositional(values, 0, value.Text(now))
		_ = s.b.BindPositional(values, 1, value.Text(fmt.Sprintf("bulk_%d_%d", time.Now().UnixNano(), i)))
		_ = s.b.BindPositional(values, 2, value.Integer(int64(rand.Intn(10000))))
		_, err = s.b.ExecuteStmtPositional(st, values)
		_ = s.b.FreePositional(values)
		if err != nil {
			_ = s.b.Rollback(tx)
			return err
		}
	}
	return s.b.Commit(tx)
}

func (s *stressor) batch(conn handle.Token) error {
	batch, err := s.b.ExecuteBatch(conn, "SELECT count(*) FROM records; SELECT max(id) FROM records; "+
		"UPDATE records SET value = value + 1 WHERE id = (SELECT min(id) FROM records)")
	if err != nil {
		return err
	}
	defer s.b.FreeBatch(batch)
	for {
		rows, more, err := s.b.NextBatch(batch)
		if err != nil || !more {
			return err
		}
		_ = s.b.FreeRows(rows)
	}
}

func (s *stressor) reporter(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("[INFO] stats, %s, live handles: %d", s.stats, s.b.Live())
		}
	}
}

func (s *stressor) integrityWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.integrityCheck(); err != nil {
				log.Printf("[ERROR] %v", err)
			}
		}
	}
}

// integrityCheck pauses all workers and runs PRAGMA integrity_check.
func (s *stressor) integrityCheck() error {
	s.pause.Lock()
	defer s.pause.Unlock()
	s.stats.Integrity.Add(1)

	conn, err := s.b.Connect(s.db)
	if err != nil {
		return err
	}
	defer s.b.Disconnect(conn)
	rows, err := s.b.Query(conn, "PRAGMA integrity_check")
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	defer s.b.FreeRows(rows)
	row, err := s.b.NextRow(rows)
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	defer s.b.FreeRow(row)
	res, err := s.b.GetString(row, 0)
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if res != "ok" {
		s.stats.Corruption.Store(true)
		return fmt.Errorf("database corruption detected: %s", res)
	}
	log.Printf("[DEBUG] integrity check passed")
	return nil
}

func randomBytes(n int) []byte {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return b
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces}
	}
	colorizer := lgr.Mapper{
		ErrorFunc: func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:  func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:  func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		TimeFunc:  func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	lgr.SetupStdLogger(logOpts...)
}
