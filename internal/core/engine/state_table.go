package engine

import (
	"bytes"
	"fmt"

	"github.com/lpando/marketd/internal/core/state"
)

// Action represents the type of modification to a state entry
type Action int

const (
	// ActionCache means the entry was read but not modified
	ActionCache Action = iota
	// ActionInsert means a new entry was created
	ActionInsert
	// ActionModify means an existing entry was modified
	ActionModify
	// ActionErase means an entry was deleted
	ActionErase
)

// TrackedEntry represents a state entry being tracked for changes
type TrackedEntry struct {
	Action   Action
	Original []byte // Original state (nil for inserts)
	Current  []byte // Current state (state before deletion for erases)
}

// ApplyStateTable wraps a StateView and tracks all modifications made by a
// single operation. Nothing reaches the base view until Apply is called;
// discarding the table is a full rollback.
type ApplyStateTable struct {
	base  StateView
	items map[[32]byte]*TrackedEntry
}

// NewApplyStateTable creates a new ApplyStateTable wrapping the given base view
func NewApplyStateTable(base StateView) *ApplyStateTable {
	return &ApplyStateTable{
		base:  base,
		items: make(map[[32]byte]*TrackedEntry),
	}
}

// Read reads a state entry, tracking it as cached
func (t *ApplyStateTable) Read(k state.Keylet) ([]byte, error) {
	if entry, exists := t.items[k.Key]; exists {
		if entry.Action == ActionErase {
			return nil, nil
		}
		return entry.Current, nil
	}

	data, err := t.base.Read(k)
	if err != nil {
		return nil, err
	}

	// Only track entries that exist in the base
	if data != nil {
		t.items[k.Key] = &TrackedEntry{
			Action:   ActionCache,
			Original: data,
			Current:  data,
		}
	}

	return data, nil
}

// Exists checks if an entry exists
func (t *ApplyStateTable) Exists(k state.Keylet) (bool, error) {
	if entry, exists := t.items[k.Key]; exists {
		return entry.Action != ActionErase, nil
	}
	return t.base.Exists(k)
}

// Insert adds a new entry
func (t *ApplyStateTable) Insert(k state.Keylet, data []byte) error {
	if entry, exists := t.items[k.Key]; exists {
		if entry.Action != ActionErase {
			return fmt.Errorf("entry already exists")
		}
		// Re-inserting a deleted entry becomes a modify
		entry.Action = ActionModify
		entry.Current = data
		return nil
	}

	exists, err := t.base.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("entry already exists")
	}

	t.items[k.Key] = &TrackedEntry{
		Action:   ActionInsert,
		Original: nil,
		Current:  data,
	}

	return nil
}

// Update modifies an existing entry
func (t *ApplyStateTable) Update(k state.Keylet, data []byte) error {
	if entry, exists := t.items[k.Key]; exists {
		if entry.Action == ActionErase {
			return fmt.Errorf("entry not found (deleted)")
		}
		if entry.Action == ActionCache {
			entry.Action = ActionModify
		}
		// For insert, keep it as insert with new data
		entry.Current = data
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}

	t.items[k.Key] = &TrackedEntry{
		Action:   ActionModify,
		Original: original,
		Current:  data,
	}

	return nil
}

// Erase removes an entry
func (t *ApplyStateTable) Erase(k state.Keylet) error {
	if entry, exists := t.items[k.Key]; exists {
		if entry.Action == ActionErase {
			return fmt.Errorf("entry already deleted")
		}
		if entry.Action == ActionInsert {
			// Insert then delete = no change
			delete(t.items, k.Key)
			return nil
		}
		entry.Action = ActionErase
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}

	t.items[k.Key] = &TrackedEntry{
		Action:   ActionErase,
		Original: original,
		Current:  original,
	}

	return nil
}

// ForEach iterates over all state entries of the base view
func (t *ApplyStateTable) ForEach(fn func(key [32]byte, data []byte) bool) error {
	return t.base.ForEach(fn)
}

// Changes returns the pending mutations, skipping cached reads and
// modifications that left the entry byte-identical.
func (t *ApplyStateTable) Changes() []StateOp {
	ops := make([]StateOp, 0, len(t.items))
	for key, entry := range t.items {
		switch entry.Action {
		case ActionCache:
			continue
		case ActionModify:
			if bytes.Equal(entry.Original, entry.Current) {
				continue
			}
		}
		op := StateOp{Action: entry.Action, Key: key}
		if entry.Action != ActionErase {
			op.Data = entry.Current
		}
		ops = append(ops, op)
	}
	return ops
}

// Apply commits all changes to the base view. When the base supports
// batch application the whole commit is one call; otherwise changes are
// applied entry by entry.
func (t *ApplyStateTable) Apply() error {
	ops := t.Changes()
	if len(ops) == 0 {
		return nil
	}

	if bv, ok := t.base.(BatchView); ok {
		return bv.ApplyBatch(ops)
	}

	for _, op := range ops {
		k := state.Keylet{Key: op.Key}
		var err error
		switch op.Action {
		case ActionInsert:
			err = t.base.Insert(k, op.Data)
		case ActionModify:
			err = t.base.Update(k, op.Data)
		case ActionErase:
			err = t.base.Erase(k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
