package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matzehuels/exprtrail/pkg/cache"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	byHash  map[string]string
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		byHash:  make(map[string]string),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, doc *typez.Document) (Record, error) {
	data, err := typez.Marshal(doc)
	if err != nil {
		return Record{}, err
	}
	hash := cache.Hash(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byHash[hash]; ok {
		return s.records[id], nil
	}
	rec := Record{
		ID:        newID(),
		Hash:      hash,
		Steps:     len(doc.Steps()),
		CreatedAt: s.now().UTC(),
		Data:      data,
	}
	s.records[rec.ID] = rec
	s.byHash[hash] = rec.ID
	return rec, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, notFound(id)
	}
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return notFound(id)
	}
	delete(s.records, id)
	delete(s.byHash, rec.Hash)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		rec.Data = nil
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
