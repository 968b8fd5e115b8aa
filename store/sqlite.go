package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// SqliteStore persists all record sets in a single SQLite database.
//
// Tables:
//
//	records(set_name, id, position, data)  PRIMARY KEY (set_name, id)
//	set_totals(set_name, total_price)      PRIMARY KEY (set_name)
//
// A set carries a running total exactly when it has a set_totals row.
// Mutations follow the same document-level read-modify-write cycle as the
// file backend so that all backends share one set of observable semantics.
type SqliteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		set_name TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (set_name, id)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS set_totals (
		set_name TEXT PRIMARY KEY,
		total_price REAL NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) loadLocked(set string) (RecordSet, error) {
	rows, err := s.db.Query(
		"SELECT data FROM records WHERE set_name = ? ORDER BY position",
		set,
	)
	if err != nil {
		return RecordSet{}, err
	}
	defer rows.Close()
	var rs RecordSet
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return RecordSet{}, err
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		rs.Records = append(rs.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return RecordSet{}, err
	}
	err = s.db.QueryRow(
		"SELECT total_price FROM set_totals WHERE set_name = ?", set,
	).Scan(&rs.Total)
	if err == sql.ErrNoRows {
		return rs, nil
	}
	if err != nil {
		return RecordSet{}, err
	}
	rs.HasTotal = true
	return rs, nil
}

func (s *SqliteStore) writeLocked(set string, rs RecordSet) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM records WHERE set_name = ?", set); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM set_totals WHERE set_name = ?", set); err != nil {
		return err
	}
	for pos, rec := range rs.Records {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO records (set_name, id, position, data) VALUES (?, ?, ?, ?)",
			set, RecordID(rec), pos, string(b),
		); err != nil {
			return err
		}
	}
	if rs.HasTotal {
		if _, err := tx.Exec(
			`INSERT INTO set_totals (set_name, total_price) VALUES (?, ?)
			 ON CONFLICT(set_name) DO UPDATE SET total_price = excluded.total_price`,
			set, rs.Total,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SqliteStore) Load(set string) (RecordSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(set)
}

func (s *SqliteStore) Write(set string, rs RecordSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(set, rs)
}

func (s *SqliteStore) Append(set string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.loadLocked(set)
	if err != nil {
		return err
	}
	rs.Append(rec)
	return s.writeLocked(set, rs)
}

func (s *SqliteStore) Remove(set, id string, unitPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.loadLocked(set)
	if err != nil {
		return err
	}
	if !rs.Remove(id, unitPrice) {
		return nil
	}
	return s.writeLocked(set, rs)
}

func (s *SqliteStore) Put(set string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.loadLocked(set)
	if err != nil {
		return err
	}
	rs.Put(rec)
	return s.writeLocked(set, rs)
}

func (s *SqliteStore) Delete(set, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.loadLocked(set)
	if err != nil {
		return false, err
	}
	if !rs.Delete(id) {
		return false, nil
	}
	return true, s.writeLocked(set, rs)
}
