package statestore

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
	"github.com/lpando/marketd/internal/storage/compression"
	"github.com/lpando/marketd/internal/storage/database"
)

// DefaultCacheSize is the number of decoded entries the read cache holds.
const DefaultCacheSize = 16384

// KVView is a persistent StateView over a key-value backend. Values are
// compressed before hitting the backend and a small LRU keeps hot entries
// decoded. Commits arrive through ApplyBatch, one atomic backend batch
// per operation.
type KVView struct {
	db         database.DB
	compressor compression.Compressor
	cache      *lru.Cache[[32]byte, []byte]
}

// NewKVView creates a view over db using the named compressor.
func NewKVView(db database.DB, compressorName string, cacheSize int) (*KVView, error) {
	comp, err := compression.Get(compressorName)
	if err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[[32]byte, []byte](cacheSize)
	if err != nil {
		return nil, err
	}
	return &KVView{
		db:         db,
		compressor: comp,
		cache:      cache,
	}, nil
}

// Read reads a state entry; returns nil if absent.
func (v *KVView) Read(k state.Keylet) ([]byte, error) {
	if data, ok := v.cache.Get(k.Key); ok {
		return clone(data), nil
	}

	raw, err := v.db.Read(context.Background(), k.Key[:])
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	data, err := v.compressor.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("statestore: corrupt entry: %w", err)
	}
	v.cache.Add(k.Key, clone(data))
	return data, nil
}

// Exists checks if an entry exists.
func (v *KVView) Exists(k state.Keylet) (bool, error) {
	data, err := v.Read(k)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

// Insert adds a new entry.
func (v *KVView) Insert(k state.Keylet, data []byte) error {
	exists, err := v.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("statestore: entry already exists")
	}
	return v.put(k.Key, data)
}

// Update modifies an existing entry.
func (v *KVView) Update(k state.Keylet, data []byte) error {
	exists, err := v.Exists(k)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("statestore: entry not found")
	}
	return v.put(k.Key, data)
}

// Erase removes an entry.
func (v *KVView) Erase(k state.Keylet) error {
	if err := v.db.Delete(context.Background(), k.Key[:]); err != nil {
		return err
	}
	v.cache.Remove(k.Key)
	return nil
}

// ForEach iterates over all entries in the backend.
func (v *KVView) ForEach(fn func(key [32]byte, data []byte) bool) error {
	iter, err := v.db.Iterator(context.Background(), nil, nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.Next() {
		rawKey := iter.Key()
		if len(rawKey) != 32 {
			continue
		}
		var key [32]byte
		copy(key[:], rawKey)

		data, err := v.compressor.Decompress(iter.Value())
		if err != nil {
			return fmt.Errorf("statestore: corrupt entry: %w", err)
		}
		if !fn(key, data) {
			break
		}
	}
	return iter.Error()
}

// ApplyBatch lands a commit as a single backend batch. The cache is only
// touched once the batch succeeds.
func (v *KVView) ApplyBatch(ops []engine.StateOp) error {
	batch := make([]database.BatchOperation, 0, len(ops))
	for _, op := range ops {
		switch op.Action {
		case engine.ActionInsert, engine.ActionModify:
			compressed, err := v.compressor.Compress(op.Data)
			if err != nil {
				return err
			}
			batch = append(batch, database.BatchOperation{
				Type:  database.BatchPut,
				Key:   append([]byte(nil), op.Key[:]...),
				Value: compressed,
			})
		case engine.ActionErase:
			batch = append(batch, database.BatchOperation{
				Type: database.BatchDelete,
				Key:  append([]byte(nil), op.Key[:]...),
			})
		default:
			return fmt.Errorf("statestore: unexpected action %d", op.Action)
		}
	}

	if err := v.db.Batch(context.Background(), batch); err != nil {
		return err
	}

	for _, op := range ops {
		switch op.Action {
		case engine.ActionInsert, engine.ActionModify:
			v.cache.Add(op.Key, clone(op.Data))
		case engine.ActionErase:
			v.cache.Remove(op.Key)
		}
	}
	return nil
}

func (v *KVView) put(key [32]byte, data []byte) error {
	compressed, err := v.compressor.Compress(data)
	if err != nil {
		return err
	}
	if err := v.db.Write(context.Background(), key[:], compressed); err != nil {
		return err
	}
	v.cache.Add(key, clone(data))
	return nil
}
