// Package indexdb keeps a queryable SQLite index of journaled host calls.
// The JSONL journal stays the source of truth; the index may drop entries
// when its writer falls behind.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"arenagrid.ai/internal/persistence/journal"
)

var _ journal.Sink = (*SQLiteIndex)(nil)

const schemaVersion = "1"

type SQLiteIndex struct {
	db *sql.DB

	ch   chan journal.Entry
	wg   sync.WaitGroup
	once sync.Once

	closed       atomic.Bool
	droppedTotal atomic.Uint64
	writeFails   atomic.Uint64
}

type Stats struct {
	QueueDepth     int
	QueueCapacity  int
	DropTotal      uint64
	WriteFailTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Bursty query loops can journal thousands of attr calls per tick.
		ch: make(chan journal.Entry, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS calls (
			session TEXT NOT NULL,
			seq INTEGER NOT NULL,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			op TEXT NOT NULL,
			origin INTEGER,
			name TEXT,
			targets INTEGER NOT NULL,
			results INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			micros INTEGER NOT NULL,
			code TEXT,
			err TEXT,
			PRIMARY KEY (session, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_op ON calls(op, kind);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_origin ON calls(origin);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Append queues an entry. It never blocks: when the writer falls behind the
// entry is dropped and counted.
func (s *SQLiteIndex) Append(e journal.Entry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- e:
	default:
		s.droppedTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropTotal:      s.droppedTotal.Load(),
		WriteFailTotal: s.writeFails.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertCall, _ := s.db.Prepare(`INSERT OR REPLACE INTO calls(session,seq,at,kind,op,origin,name,targets,results,dropped,micros,code,err) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertCall != nil {
			_ = insertCall.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeFails.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.writeFails.Add(uint64(opCount) + 1)
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	// Commit idle batches so readers sharing the single connection are not
	// starved.
	idle := time.NewTicker(commitMaxWait)
	defer idle.Stop()

	for {
		var (
			e  journal.Entry
			ok bool
		)
		select {
		case e, ok = <-s.ch:
		case <-idle.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		}
		if !ok {
			break
		}
		begin()
		if tx == nil || insertCall == nil {
			s.writeFails.Add(1)
			continue
		}
		var origin any
		if e.Origin != nil {
			origin = int64(e.Origin.Handle)
		}
		if _, err := tx.Stmt(insertCall).Exec(
			e.Session,
			int64(e.Seq),
			e.Time.UTC().Format(time.RFC3339Nano),
			string(e.Kind),
			e.Op,
			origin,
			nullable(e.Name),
			e.Targets,
			e.Results,
			e.Dropped,
			e.Micros,
			nullable(e.Code),
			nullable(e.Err),
		); err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
