package blobstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

// MemoryStore keeps blobs in process. Used for tests and single-process runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

// Exists implements Store.
func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	metrics.RecordBlobOperation(BackendMemory, "exists", nil)
	return ok, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, key string, body []byte, metadata map[string]string) (err error) {
	defer func() { metrics.RecordBlobOperation(BackendMemory, "put", err) }()
	if err := validKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return ErrExists
	}
	s.objects[key] = Object{
		Key:      key,
		Size:     int64(len(body)),
		Metadata: copyMetadata(metadata),
		Body:     append([]byte(nil), body...),
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (obj Object, err error) {
	defer func() { metrics.RecordBlobOperation(BackendMemory, "get", err) }()
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return Object{}, ErrNotFound
	}
	o.Metadata = copyMetadata(o.Metadata)
	o.Body = append([]byte(nil), o.Body...)
	return o, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, prefix, token string, limit int) (p Page, err error) {
	defer func() { metrics.RecordBlobOperation(BackendMemory, "list", err) }()
	if limit <= 0 {
		return Page{}, ErrInvalidLimit
	}

	s.mu.RLock()
	rows := make([]ObjectInfo, 0)
	for k, o := range s.objects {
		if strings.HasPrefix(k, prefix) && k > token {
			rows = append(rows, ObjectInfo{Key: k, Size: o.Size})
		}
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	if len(rows) > limit+1 {
		rows = rows[:limit+1]
	}
	return page(rows, limit), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
