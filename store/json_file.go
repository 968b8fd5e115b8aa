package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CorruptPolicy controls what a JSONFileStore does when a backing document
// exists but cannot be parsed.
type CorruptPolicy int

const (
	// CorruptPreserve renames the unreadable document aside and continues
	// with an empty set. Default.
	CorruptPreserve CorruptPolicy = iota
	// CorruptDiscard treats the unreadable document as empty; the next
	// write overwrites it in place.
	CorruptDiscard
	// CorruptStrict surfaces ErrCorruptStore to the caller.
	CorruptStrict
)

// ParseCorruptPolicy maps a config string to a CorruptPolicy.
// The empty string selects the default.
func ParseCorruptPolicy(s string) (CorruptPolicy, error) {
	switch s {
	case "preserve", "":
		return CorruptPreserve, nil
	case "discard":
		return CorruptDiscard, nil
	case "strict":
		return CorruptStrict, nil
	}
	return 0, fmt.Errorf("unknown corrupt policy: %q (supported: preserve, discard, strict)", s)
}

// JSONFileStore persists each record set as a separate JSON document on disk.
//
// Layout:
//
//	data_dir/
//	  products.json   # catalog set: a plain JSON array of records
//	  cart.json       # total-carrying set: {"products": [...], "totalPrice": n}
//
// Every operation re-reads the document in full and every mutation rewrites
// it in full. The mutex serializes that cycle within this process.
type JSONFileStore struct {
	mu     sync.RWMutex
	dir    string
	policy CorruptPolicy
}

func NewJSONFileStore(dir string, policy CorruptPolicy) (*JSONFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JSONFileStore{dir: dir, policy: policy}, nil
}

func (s *JSONFileStore) setPath(set string) string {
	return filepath.Join(s.dir, set+".json")
}

// totalDocument is the on-disk shape of a set that carries a running total.
type totalDocument struct {
	Products   []Record `json:"products"`
	TotalPrice float64  `json:"totalPrice"`
}

func (s *JSONFileStore) loadSet(path string) (RecordSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RecordSet{}, nil
		}
		return RecordSet{}, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return RecordSet{}, nil
	}
	switch data[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return s.corrupt(path, err)
		}
		return RecordSet{Records: records}, nil
	case '{':
		var doc totalDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return s.corrupt(path, err)
		}
		return RecordSet{Records: doc.Products, Total: doc.TotalPrice, HasTotal: true}, nil
	}
	return s.corrupt(path, fmt.Errorf("unexpected leading byte %q", data[0]))
}

func (s *JSONFileStore) corrupt(path string, cause error) (RecordSet, error) {
	switch s.policy {
	case CorruptStrict:
		return RecordSet{}, fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, cause)
	case CorruptPreserve:
		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if err := os.Rename(path, aside); err != nil {
			return RecordSet{}, err
		}
		slog.Warn("unreadable store document moved aside", "path", path, "aside", aside, "cause", cause)
	default:
		slog.Warn("unreadable store document treated as empty", "path", path, "cause", cause)
	}
	return RecordSet{}, nil
}

func (s *JSONFileStore) saveSet(path string, rs RecordSet) error {
	var doc any
	if rs.HasTotal {
		records := rs.Records
		if records == nil {
			records = []Record{}
		}
		doc = totalDocument{Products: records, TotalPrice: rs.Total}
	} else {
		if rs.Records == nil {
			doc = []Record{}
		} else {
			doc = rs.Records
		}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Load takes the write lock: under the preserve policy even a read can move
// a corrupt document aside.
func (s *JSONFileStore) Load(set string) (RecordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSet(s.setPath(set))
}

func (s *JSONFileStore) Write(set string, rs RecordSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSet(s.setPath(set), rs)
}

func (s *JSONFileStore) Append(set string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.setPath(set)
	rs, err := s.loadSet(path)
	if err != nil {
		return err
	}
	rs.Append(rec)
	return s.saveSet(path, rs)
}

func (s *JSONFileStore) Remove(set, id string, unitPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.setPath(set)
	rs, err := s.loadSet(path)
	if err != nil {
		return err
	}
	if !rs.Remove(id, unitPrice) {
		return nil
	}
	return s.saveSet(path, rs)
}

func (s *JSONFileStore) Put(set string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.setPath(set)
	rs, err := s.loadSet(path)
	if err != nil {
		return err
	}
	rs.Put(rec)
	return s.saveSet(path, rs)
}

func (s *JSONFileStore) Delete(set, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.setPath(set)
	rs, err := s.loadSet(path)
	if err != nil {
		return false, err
	}
	if !rs.Delete(id) {
		return false, nil
	}
	return true, s.saveSet(path, rs)
}

func (s *JSONFileStore) Close() error {
	return nil
}
