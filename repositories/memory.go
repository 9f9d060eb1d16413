package repositories

import (
	"sort"
	"strings"
	"sync"

	"campus-lab/errors"
)

// MemoryStore is an in-process DocumentStore used by tests. Its mutex
// serializes writers, so genuine conflicts cannot happen; instead
// InjectConflicts aborts the next n Update commits with ErrContention,
// which lets tests drive the coordinator's retry path deterministically.
type MemoryStore struct {
	mu        sync.RWMutex
	docs      map[string][]byte
	conflicts int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

// InjectConflicts makes the next n Update calls fail with ErrContention
// after running their function, discarding any buffered writes, the way
// an optimistic store aborts a collided transaction at commit time.
func (s *MemoryStore) InjectConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

func (s *MemoryStore) View(fn func(Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryTxn{store: s})
}

func (s *MemoryStore) Update(fn func(Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := &memoryTxn{store: s, writes: make(map[string][]byte)}
	if err := fn(txn); err != nil {
		return err
	}
	if s.conflicts > 0 {
		s.conflicts--
		return errors.ErrContention
	}
	for key, value := range txn.writes {
		if value == nil {
			delete(s.docs, key)
			continue
		}
		s.docs[key] = value
	}
	return nil
}

// memoryTxn buffers writes until commit. A nil buffered value marks a
// delete.
type memoryTxn struct {
	store  *MemoryStore
	writes map[string][]byte
}

func (t *memoryTxn) Get(key string) ([]byte, error) {
	if t.writes != nil {
		if value, ok := t.writes[key]; ok {
			if value == nil {
				return nil, errors.ErrNotFound
			}
			return value, nil
		}
	}
	value, ok := t.store.docs[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return value, nil
}

func (t *memoryTxn) Set(key string, value []byte) error {
	if t.writes == nil {
		return errors.ErrStoreClosed
	}
	t.writes[key] = value
	return nil
}

func (t *memoryTxn) Delete(key string) error {
	if t.writes == nil {
		return errors.ErrStoreClosed
	}
	t.writes[key] = nil
	return nil
}

func (t *memoryTxn) Ascend(prefix, seek string, fn func(key string, value []byte) (bool, error)) error {
	if seek == "" {
		seek = prefix
	}
	for _, key := range t.sortedKeys(prefix) {
		if key < seek {
			continue
		}
		value, err := t.Get(key)
		if err != nil {
			continue
		}
		goOn, err := fn(key, value)
		if err != nil {
			return err
		}
		if !goOn {
			return nil
		}
	}
	return nil
}

func (t *memoryTxn) Descend(prefix, seek string, fn func(key string, value []byte) (bool, error)) error {
	if seek == "" {
		seek = prefix + "\xff"
	}
	keys := t.sortedKeys(prefix)
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i] > seek {
			continue
		}
		value, err := t.Get(keys[i])
		if err != nil {
			continue
		}
		goOn, err := fn(keys[i], value)
		if err != nil {
			return err
		}
		if !goOn {
			return nil
		}
	}
	return nil
}

func (t *memoryTxn) sortedKeys(prefix string) []string {
	var keys []string
	for key := range t.store.docs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if t.writes != nil {
		for key, value := range t.writes {
			if value != nil && strings.HasPrefix(key, prefix) {
				if _, exists := t.store.docs[key]; !exists {
					keys = append(keys, key)
				}
			}
		}
	}
	sort.Strings(keys)
	return keys
}
