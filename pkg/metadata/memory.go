package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store for tests and local development. CIDs
// are the SHA-256 of the content, so identical payloads deduplicate the
// same way a real content-addressed store would.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Put stores data and returns its content hash as the CID
func (s *MemoryStore) Put(_ context.Context, data []byte) (string, error) {
	digest := sha256.Sum256(data)
	cid := hex.EncodeToString(digest[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.data[cid] = stored
	return cid, nil
}

// Get retrieves data by CID
func (s *MemoryStore) Get(_ context.Context, cid string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[cid]
	if !exists {
		return nil, fmt.Errorf("no content for CID %s", cid)
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
