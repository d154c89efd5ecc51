// Package database defines the key-value backend contract the market
// state store runs on, plus a driver registry so backends can be selected
// by name from configuration.
package database

import (
	"context"
	"fmt"
	"sync"
)

// DB defines the basic operations any database implementation must support
type DB interface {
	// Basic operations
	Read(ctx context.Context, key []byte) ([]byte, error)
	Write(ctx context.Context, key []byte, value []byte) error
	Delete(ctx context.Context, key []byte) error

	// Batch applies all operations atomically
	Batch(ctx context.Context, ops []BatchOperation) error

	// Iterator traverses keys in [start, end). A nil bound is open.
	Iterator(ctx context.Context, start, end []byte) (Iterator, error)

	// Close releases the backend
	Close() error
}

// Iterator allows traversing over database entries
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// BatchOperation represents a single operation in a batch
type BatchOperation struct {
	Type  BatchOpType
	Key   []byte
	Value []byte
}

type BatchOpType int

const (
	BatchPut BatchOpType = iota
	BatchDelete
)

// Driver opens a database at the given filesystem path.
type Driver func(path string) (DB, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver installs a backend under a name. Backends call this from
// their init functions; importing a backend package makes it available.
func RegisterDriver(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = driver
}

// Open opens a database using the named backend.
func Open(backend, path string) (DB, error) {
	driversMu.RLock()
	driver, ok := drivers[backend]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
	return driver(path)
}

// Backends returns the names of the registered backends.
func Backends() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}
