// Package statestore provides StateView implementations backing the
// marketplace engine: a plain in-memory view and a persistent view over a
// key-value database.
package statestore

import (
	"fmt"
	"sync"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
)

// MemoryView is an in-memory StateView. It is the default backing for
// tests and for running without persistence.
type MemoryView struct {
	mu      sync.RWMutex
	entries map[[32]byte][]byte
}

// NewMemoryView creates an empty in-memory view.
func NewMemoryView() *MemoryView {
	return &MemoryView{entries: make(map[[32]byte][]byte)}
}

// Read reads a state entry; returns nil if absent.
func (v *MemoryView) Read(k state.Keylet) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	data, ok := v.entries[k.Key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Exists checks if an entry exists.
func (v *MemoryView) Exists(k state.Keylet) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.entries[k.Key]
	return ok, nil
}

// Insert adds a new entry.
func (v *MemoryView) Insert(k state.Keylet, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.entries[k.Key]; ok {
		return fmt.Errorf("statestore: entry already exists")
	}
	v.entries[k.Key] = clone(data)
	return nil
}

// Update modifies an existing entry.
func (v *MemoryView) Update(k state.Keylet, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.entries[k.Key]; !ok {
		return fmt.Errorf("statestore: entry not found")
	}
	v.entries[k.Key] = clone(data)
	return nil
}

// Erase removes an entry.
func (v *MemoryView) Erase(k state.Keylet) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.entries[k.Key]; !ok {
		return fmt.Errorf("statestore: entry not found")
	}
	delete(v.entries, k.Key)
	return nil
}

// ForEach iterates over all entries. Iteration order is unspecified.
func (v *MemoryView) ForEach(fn func(key [32]byte, data []byte) bool) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for key, data := range v.entries {
		if !fn(key, clone(data)) {
			break
		}
	}
	return nil
}

// ApplyBatch applies a commit as one step under a single lock.
func (v *MemoryView) ApplyBatch(ops []engine.StateOp) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, op := range ops {
		switch op.Action {
		case engine.ActionInsert, engine.ActionModify:
			v.entries[op.Key] = clone(op.Data)
		case engine.ActionErase:
			delete(v.entries, op.Key)
		default:
			return fmt.Errorf("statestore: unexpected action %d", op.Action)
		}
	}
	return nil
}

// Len returns the number of entries.
func (v *MemoryView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
