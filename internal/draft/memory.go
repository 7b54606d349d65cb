package draft

import "context"

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, userID, key string, value []byte) error {
	copied := make([]byte, len(value))
	copy(copied, value)
	s.values[userID+"/"+key] = copied
	return nil
}

func (s *MemoryStore) Load(_ context.Context, userID, key string) ([]byte, error) {
	value, ok := s.values[userID+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID, key string) error {
	delete(s.values, userID+"/"+key)
	return nil
}
