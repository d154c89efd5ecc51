// Package registry provides an in-memory asset registry for development
// and testing. It implements the custody interface the engine consults:
// ownership lookups, transfer approvals and transfers.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

// Common registry errors.
var (
	ErrUnknownAsset = errors.New("registry: unknown asset")
	ErrNotOwner     = errors.New("registry: transfer from non-owner")
	ErrNotApproved  = errors.New("registry: transfer not approved")
)

type asset struct {
	owner string
	uri   string
	price uint64

	// approved is the operator allowed to move the asset. Cleared on
	// transfer, so each listing needs a fresh approval.
	approved string
}

// InMemory is a thread-safe in-memory asset registry. Assets are keyed by
// (contract, id); contracts spring into existence on first mint.
type InMemory struct {
	mu     sync.RWMutex
	assets map[string]map[uint64]*asset
	nextID map[string]uint64
}

// NewInMemory creates an empty registry.
func NewInMemory() *InMemory {
	return &InMemory{
		assets: make(map[string]map[uint64]*asset),
		nextID: make(map[string]uint64),
	}
}

// Mint creates a new asset in a contract and returns its id. Ids are
// sequential per contract, starting at 1. The price is the creator's
// asking price, carried as metadata; listings set their own price.
func (r *InMemory) Mint(contract, owner, uri string, price uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.assets[contract] == nil {
		r.assets[contract] = make(map[uint64]*asset)
	}
	r.nextID[contract]++
	id := r.nextID[contract]
	r.assets[contract][id] = &asset{owner: owner, uri: uri, price: price}
	return id
}

// Approve grants operator the right to move the asset. Only the current
// owner may approve. The approval is single-use.
func (r *InMemory) Approve(contract string, assetID uint64, owner, operator string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.lookup(contract, assetID)
	if err != nil {
		return err
	}
	if a.owner != owner {
		return fmt.Errorf("registry: approve by non-owner %q", owner)
	}
	a.approved = operator
	return nil
}

// OwnerOf returns the current owner of an asset.
func (r *InMemory) OwnerOf(contract string, assetID uint64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, err := r.lookup(contract, assetID)
	if err != nil {
		return "", err
	}
	return a.owner, nil
}

// TokenURI returns the metadata URI of an asset.
func (r *InMemory) TokenURI(contract string, assetID uint64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, err := r.lookup(contract, assetID)
	if err != nil {
		return "", err
	}
	return a.uri, nil
}

// AskingPrice returns the asking price recorded at mint time.
func (r *InMemory) AskingPrice(contract string, assetID uint64) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, err := r.lookup(contract, assetID)
	if err != nil {
		return 0, err
	}
	return a.price, nil
}

// IsApprovedForTransfer reports whether operator may move the asset.
func (r *InMemory) IsApprovedForTransfer(contract string, assetID uint64, operator string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, err := r.lookup(contract, assetID)
	if err != nil {
		return false, err
	}
	return a.approved == operator && operator != "", nil
}

// Transfer moves an asset between owners and consumes the approval.
func (r *InMemory) Transfer(contract string, assetID uint64, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.lookup(contract, assetID)
	if err != nil {
		return err
	}
	if a.owner != from {
		return ErrNotOwner
	}
	if a.approved == "" {
		return ErrNotApproved
	}
	a.owner = to
	a.approved = ""
	return nil
}

func (r *InMemory) lookup(contract string, assetID uint64) (*asset, error) {
	contractAssets, ok := r.assets[contract]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrUnknownAsset, contract, assetID)
	}
	a, ok := contractAssets[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrUnknownAsset, contract, assetID)
	}
	return a, nil
}
