package store

import (
	"github.com/kmorrow/shopstore/metrics"
)

// instrumentedStore wraps a Store and records an operation counter per call.
type instrumentedStore struct {
	next Store
}

// Instrument returns a Store that delegates to s and records Prometheus
// counters for every operation.
func Instrument(s Store) Store {
	return &instrumentedStore{next: s}
}

func record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.StoreOpsTotal.WithLabelValues(op, outcome).Inc()
}

func (s *instrumentedStore) Load(set string) (RecordSet, error) {
	rs, err := s.next.Load(set)
	record("load", err)
	return rs, err
}

func (s *instrumentedStore) Write(set string, rs RecordSet) error {
	err := s.next.Write(set, rs)
	record("write", err)
	return err
}

func (s *instrumentedStore) Append(set string, rec Record) error {
	err := s.next.Append(set, rec)
	record("append", err)
	return err
}

func (s *instrumentedStore) Remove(set, id string, unitPrice float64) error {
	err := s.next.Remove(set, id, unitPrice)
	record("remove", err)
	return err
}

func (s *instrumentedStore) Put(set string, rec Record) error {
	err := s.next.Put(set, rec)
	record("put", err)
	return err
}

func (s *instrumentedStore) Delete(set, id string) (bool, error) {
	existed, err := s.next.Delete(set, id)
	record("delete", err)
	return existed, err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
