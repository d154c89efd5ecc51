package engine

import (
	"encoding/json"
	"errors"
)

// ErrUnknownOperationType is returned when an operation type is unknown
var ErrUnknownOperationType = errors.New("unknown operation type")

var factories = map[Type]func() Operation{}

// Register installs a factory for an operation type. Called from the
// operation files' init functions.
func Register(t Type, fn func() Operation) {
	factories[t] = fn
}

// NewFromType creates a new operation of the given type
func NewFromType(opType Type) (Operation, error) {
	fn, ok := factories[opType]
	if !ok {
		return nil, ErrUnknownOperationType
	}
	return fn(), nil
}

// FromJSON creates an Operation from a JSON object
func FromJSON(data []byte) (Operation, error) {
	var raw struct {
		OperationType string `json:"OperationType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	opType, ok := TypeFromName(raw.OperationType)
	if !ok {
		return nil, ErrUnknownOperationType
	}

	op, err := NewFromType(opType)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, op); err != nil {
		return nil, err
	}

	return op, nil
}

// SupportedTypes returns all supported operation types
func SupportedTypes() []Type {
	return []Type{
		TypeOfferCreate,
		TypeBid,
		TypeBuy,
		TypeAssetClaim,
		TypeOfferCancel,
	}
}
