package objectstore

import (
	"context"
	"errors"
	"io"
	"sync"
)

// MemoryStore keeps blobs in a map for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// FailNextPut makes every subsequent Put return err. Pass nil to clear.
func (s *MemoryStore) FailNextPut(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut = err
}

func (s *MemoryStore) Put(ctx context.Context, path string, body io.Reader) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return Handle{}, s.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Handle{}, err
	}
	s.objects[path] = data
	return Handle{Bucket: "memory", Key: path}, nil
}

func (s *MemoryStore) PublicURL(h Handle) string {
	return "memory://" + h.Key
}

// Object returns a stored blob, for test assertions.
func (s *MemoryStore) Object(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, errors.New("objectstore: object not found")
	}
	return data, nil
}
