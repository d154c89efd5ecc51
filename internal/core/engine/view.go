package engine

import (
	"github.com/lpando/marketd/internal/core/state"
)

// StateView provides read/write access to marketplace state
type StateView interface {
	// Read reads a state entry; returns nil if absent
	Read(k state.Keylet) ([]byte, error)

	// Exists checks if an entry exists
	Exists(k state.Keylet) (bool, error)

	// Insert adds a new entry
	Insert(k state.Keylet, data []byte) error

	// Update modifies an existing entry
	Update(k state.Keylet, data []byte) error

	// Erase removes an entry
	Erase(k state.Keylet) error

	// ForEach iterates over all state entries
	// If fn returns false, iteration stops early
	ForEach(fn func(key [32]byte, data []byte) bool) error
}

// StateOp is a single mutation produced by committing an apply state table.
type StateOp struct {
	Action Action
	Key    [32]byte
	Data   []byte
}

// BatchView is implemented by views that can take a commit as one atomic
// batch. The apply state table prefers this path when available so a
// backend write failure can never leave a partial commit behind.
type BatchView interface {
	ApplyBatch(ops []StateOp) error
}

// AssetRegistry is the external asset custody collaborator. The engine
// consults it for ownership and approval checks and instructs it to move
// assets at settlement. A registry error fails the whole operation with
// marketplace state untouched.
type AssetRegistry interface {
	// OwnerOf returns the current owner of an asset
	OwnerOf(contract string, assetID uint64) (string, error)

	// IsApprovedForTransfer reports whether operator may move the asset
	IsApprovedForTransfer(contract string, assetID uint64, operator string) (bool, error)

	// Transfer moves the asset from one party to another
	Transfer(contract string, assetID uint64, from, to string) error
}
