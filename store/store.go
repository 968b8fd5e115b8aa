// Package store defines the backing record store interface and implementations.
package store

import (
	"errors"
	"math"
	"strconv"
)

// Field names the store interprets inside otherwise opaque records.
const (
	fieldID       = "id"
	fieldQuantity = "quantity"
	fieldPrice    = "price"
)

// ErrCorruptStore is returned when a backing document exists but cannot be
// parsed and the store runs under the strict corruption policy.
var ErrCorruptStore = errors.New("store: corrupt document")

// Record is one stored item. The store treats it as an opaque map except for
// the "id", "quantity" and "price" fields.
type Record map[string]any

// RecordSet is the full collection persisted as a single document: a sequence
// of records plus, for sets mutated through Append/Remove, a running total
// maintained incrementally alongside them.
type RecordSet struct {
	Records  []Record
	Total    float64
	HasTotal bool
}

// Store is the interface that all backing record stores implement.
// Each set is persisted as one document; every mutating call is a full
// read-modify-write cycle against that document, so a missing document is
// indistinguishable from an empty one and never an error.
//
// Put and Delete are the catalog operations: plain upsert/delete by id with
// no total involvement. Append and Remove are the cart operations: Append
// merges by id and adds the record's unit price to the running total, Remove
// is an idempotent delete that subtracts price times quantity. Mixing the two
// families on one set leaves the total stale and is unsupported.
//
// Implementations serialize the read-modify-write cycle against goroutines in
// the same process. Nothing guards against a second process writing the same
// document; callers must ensure a single writing process per data directory.
type Store interface {
	// Load returns the current record set, empty if the document is absent.
	Load(set string) (RecordSet, error)

	// Write replaces the document with rs wholesale.
	Write(set string, rs RecordSet) error

	// Append merges rec into the set by id and updates the running total.
	Append(set string, rec Record) error

	// Remove deletes the record with the given id and subtracts
	// unitPrice x quantity from the total. Removing an absent id is a no-op.
	Remove(set, id string, unitPrice float64) error

	// Put inserts or replaces a record by id, as-is.
	Put(set string, rec Record) error

	// Delete removes a record by id. Returns true if it existed.
	Delete(set, id string) (bool, error)

	// Close releases any underlying resources.
	Close() error
}

// FormatID normalizes an id value to its string key. JSON decoding turns
// numeric ids into float64, so 101 and "101" address the same record.
func FormatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return ""
}

// RecordID returns the record's normalized id key, or "" if it has none.
func RecordID(rec Record) string {
	return FormatID(rec[fieldID])
}

func numField(rec Record, name string) float64 {
	switch v := rec[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// roundTotal snaps values within floating-point noise of zero to exactly
// zero, so draining a set leaves a clean 0 rather than -1.8e-15.
func roundTotal(t float64) float64 {
	if math.Abs(t) < 1e-9 {
		return 0
	}
	return t
}

// Find returns the record with the given id, or nil.
func (s *RecordSet) Find(id string) Record {
	for _, r := range s.Records {
		if RecordID(r) == id {
			return r
		}
	}
	return nil
}

// Append applies the cart merge rule: an existing record with the same id has
// its quantity incremented, otherwise rec is inserted with quantity 1 and its
// price field stripped (the price contributes to the total, not the record).
func (s *RecordSet) Append(rec Record) {
	s.HasTotal = true
	price := numField(rec, fieldPrice)
	id := RecordID(rec)
	if existing := s.Find(id); existing != nil {
		existing[fieldQuantity] = numField(existing, fieldQuantity) + 1
		s.Total = roundTotal(s.Total + price)
		return
	}
	stored := make(Record, len(rec))
	for k, v := range rec {
		if k == fieldPrice {
			continue
		}
		stored[k] = v
	}
	stored[fieldQuantity] = float64(1)
	s.Records = append(s.Records, stored)
	s.Total = roundTotal(s.Total + price)
}

// Remove deletes the record with the given id and subtracts
// unitPrice x quantity from the total, clamped at zero. Returns true if a
// record was removed; removing an absent id changes nothing.
func (s *RecordSet) Remove(id string, unitPrice float64) bool {
	for i, r := range s.Records {
		if RecordID(r) != id {
			continue
		}
		qty := numField(r, fieldQuantity)
		if qty == 0 {
			qty = 1
		}
		s.Records = append(s.Records[:i], s.Records[i+1:]...)
		s.HasTotal = true
		s.Total = roundTotal(s.Total - unitPrice*qty)
		if s.Total < 0 {
			s.Total = 0
		}
		return true
	}
	return false
}

// Put inserts or replaces a record by id, leaving the total untouched.
func (s *RecordSet) Put(rec Record) {
	id := RecordID(rec)
	for i, r := range s.Records {
		if RecordID(r) == id {
			s.Records[i] = rec
			return
		}
	}
	s.Records = append(s.Records, rec)
}

// Delete removes a record by id without total bookkeeping.
// Returns true if it existed.
func (s *RecordSet) Delete(id string) bool {
	for i, r := range s.Records {
		if RecordID(r) == id {
			s.Records = append(s.Records[:i], s.Records[i+1:]...)
			return true
		}
	}
	return false
}
