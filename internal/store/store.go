// Package store persists meeting records as one JSON array, most recent
// first, under a single key of a local key-value store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/leonardotrapani/listenin/internal/meeting"
)

const (
	// Key holds the whole collection.
	Key = "listenin_summaries"
	// DemoSeededKey is set once demo meetings have been offered.
	DemoSeededKey = "demo_meetings_initialized"

	DefaultMaxRecords = 50
)

var ErrNotFound = errors.New("store: meeting or action item not found")

// Store is the meeting record collection. Every mutation is a whole
// collection read-modify-write under one lock.
type Store struct {
	kv         KV
	maxRecords int
	mu         sync.Mutex
}

func New(kv KV, maxRecords int) *Store {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &Store{kv: kv, maxRecords: maxRecords}
}

// Open opens the SQLite-backed store at path.
func Open(path string, maxRecords int) (*Store, error) {
	kv, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return New(kv, maxRecords), nil
}

func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) load(ctx context.Context) ([]meeting.Summary, error) {
	data, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return nil, err
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	var records []meeting.Summary
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Key, err)
	}
	return records, nil
}

func (s *Store) write(ctx context.Context, records []meeting.Summary) error {
	if records == nil {
		records = []meeting.Summary{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", Key, err)
	}
	return s.kv.Set(ctx, Key, data)
}

// List returns every record, most recent first.
func (s *Store) List(ctx context.Context) ([]meeting.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save prepends record and drops whatever falls beyond the retention cap.
func (s *Store) Save(ctx context.Context, record meeting.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	records = append([]meeting.Summary{record}, records...)
	if len(records) > s.maxRecords {
		log.Printf("Store: retention cap reached, dropping %d oldest meeting(s)", len(records)-s.maxRecords)
		records = records[:s.maxRecords]
	}
	return s.write(ctx, records)
}

func (s *Store) Get(ctx context.Context, id string) (*meeting.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return &records[i], nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return ErrNotFound
	}
	records = append(records[:i], records[i+1:]...)
	return s.write(ctx, records)
}

// ToggleActionItem flips the completed flag of one action item and returns
// the new value.
func (s *Store) ToggleActionItem(ctx context.Context, id string, index int) (bool, error) {
	var completed bool
	err := s.update(ctx, id, func(rec *meeting.Summary) error {
		if index < 0 || index >= len(rec.ActionItems) {
			return ErrNotFound
		}
		rec.ActionItems[index].Completed = !rec.ActionItems[index].Completed
		completed = rec.ActionItems[index].Completed
		return nil
	})
	return completed, err
}

// DeleteActionItem removes one action item by position.
func (s *Store) DeleteActionItem(ctx context.Context, id string, index int) error {
	return s.update(ctx, id, func(rec *meeting.Summary) error {
		if index < 0 || index >= len(rec.ActionItems) {
			return ErrNotFound
		}
		rec.ActionItems = append(rec.ActionItems[:index], rec.ActionItems[index+1:]...)
		return nil
	})
}

func (s *Store) update(ctx context.Context, id string, fn func(*meeting.Summary) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return ErrNotFound
	}
	if err := fn(&records[i]); err != nil {
		return err
	}
	return s.write(ctx, records)
}

// Search returns the records whose overview or participants match query,
// keeping list order.
func (s *Store) Search(ctx context.Context, query string) ([]meeting.Summary, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []meeting.Summary
	for i := range records {
		if records[i].Matches(query) {
			out = append(out, records[i])
		}
	}
	return out, nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, Key)
}

func indexOf(records []meeting.Summary, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
