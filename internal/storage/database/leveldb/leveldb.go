// Package leveldb backs the market database contract with goleveldb.
package leveldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/lpando/marketd/internal/storage/database"
)

func init() {
	database.RegisterDriver("leveldb", func(path string) (database.DB, error) {
		return Open(path)
	})
}

type DB struct {
	db *leveldb.DB
}

// Open opens or creates a leveldb database at path.
func Open(path string) (*DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb database at %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

func (l *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	if l.db == nil {
		return nil, database.ErrDBClosed
	}

	val, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, database.ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

func (l *DB) Write(ctx context.Context, key, value []byte) error {
	if l.db == nil {
		return database.ErrDBClosed
	}
	return l.db.Put(key, value, &opt.WriteOptions{Sync: true})
}

func (l *DB) Delete(ctx context.Context, key []byte) error {
	if l.db == nil {
		return database.ErrDBClosed
	}
	return l.db.Delete(key, &opt.WriteOptions{Sync: true})
}

func (l *DB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	if l.db == nil {
		return database.ErrDBClosed
	}

	batch := new(leveldb.Batch)
	for _, op := range ops {
		switch op.Type {
		case database.BatchPut:
			batch.Put(op.Key, op.Value)
		case database.BatchDelete:
			batch.Delete(op.Key)
		default:
			return fmt.Errorf("unknown batch operation type: %d", op.Type)
		}
	}

	return l.db.Write(batch, &opt.WriteOptions{Sync: true})
}

func (l *DB) Close() error {
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

type Iterator struct {
	iter iterator.Iterator
}

func (l *DB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	if l.db == nil {
		return nil, database.ErrDBClosed
	}

	iter := l.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &Iterator{iter: iter}, nil
}

func (it *Iterator) Next() bool {
	return it.iter.Next()
}

func (it *Iterator) Key() []byte {
	key := it.iter.Key()
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)
	return keyCopy
}

func (it *Iterator) Value() []byte {
	val := it.iter.Value()
	valCopy := make([]byte, len(val))
	copy(valCopy, val)
	return valCopy
}

func (it *Iterator) Error() error {
	return it.iter.Error()
}

func (it *Iterator) Close() error {
	it.iter.Release()
	return it.iter.Error()
}
