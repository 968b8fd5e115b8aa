package store

import (
	"encoding/json"
	"sync"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]RecordSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]RecordSet)}
}

// cloneSet deep-copies a record set by round-tripping the records through
// JSON, so callers never alias stored maps. This also normalizes numeric
// fields to float64, matching what the file and SQLite backends return.
func cloneSet(rs RecordSet) RecordSet {
	if rs.Records == nil {
		return RecordSet{Total: rs.Total, HasTotal: rs.HasTotal}
	}
	b, _ := json.Marshal(rs.Records)
	var records []Record
	_ = json.Unmarshal(b, &records)
	return RecordSet{Records: records, Total: rs.Total, HasTotal: rs.HasTotal}
}

func (m *MemoryStore) Load(set string) (RecordSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSet(m.sets[set]), nil
}

func (m *MemoryStore) Write(set string, rs RecordSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[set] = cloneSet(rs)
	return nil
}

func (m *MemoryStore) Append(set string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := cloneSet(m.sets[set])
	rs.Append(cloneRecord(rec))
	m.sets[set] = rs
	return nil
}

func (m *MemoryStore) Remove(set, id string, unitPrice float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := cloneSet(m.sets[set])
	if rs.Remove(id, unitPrice) {
		m.sets[set] = rs
	}
	return nil
}

func (m *MemoryStore) Put(set string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := cloneSet(m.sets[set])
	rs.Put(cloneRecord(rec))
	m.sets[set] = rs
	return nil
}

func (m *MemoryStore) Delete(set, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := cloneSet(m.sets[set])
	if !rs.Delete(id) {
		return false, nil
	}
	m.sets[set] = rs
	return true, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func cloneRecord(rec Record) Record {
	b, _ := json.Marshal(rec)
	var dst Record
	_ = json.Unmarshal(b, &dst)
	return dst
}
