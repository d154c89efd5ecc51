package engine

import (
	"errors"
	"strings"
)

// Common errors
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidOperationType = errors.New("invalid operation type")
	ErrInvalidAmount        = errors.New("memBAD_AMOUNT: invalid amount")
	ErrInvalidParty         = errors.New("memBAD_PARTY: invalid party")
)

// Operation is the interface that all operation types must implement
type Operation interface {
	// OpType returns the operation type
	OpType() Type

	// GetCommon returns the common operation fields
	GetCommon() *Common

	// Validate checks if the operation is well-formed.
	// Errors carry a "memXXX: message" prefix that the engine parses
	// into a result code.
	Validate() error
}

// Appliable is implemented by operation types that can apply themselves to
// marketplace state. This replaces a central switch in Engine.Apply.
type Appliable interface {
	Apply(ctx *ApplyContext) Result
}

// Common contains fields common to all operation types
type Common struct {
	// Account is the party submitting the operation
	Account string `json:"Account"`

	// OperationType names the operation for wire dispatch
	OperationType string `json:"OperationType"`

	// Funds is the amount attached to the operation, debited from the
	// caller's balance on acceptance. Zero for operations that carry no
	// payment.
	Funds uint64 `json:"Funds,omitempty"`
}

// Validate validates the common fields
func (c *Common) Validate() error {
	if c.Account == "" {
		return errors.New("memBAD_PARTY: Account is required")
	}
	if c.OperationType == "" {
		return errors.New("memINVALID: OperationType is required")
	}
	return nil
}

// BaseOp provides a base implementation for operations
type BaseOp struct {
	Common
	opType Type
}

// OpType returns the operation type
func (b *BaseOp) OpType() Type {
	return b.opType
}

// GetCommon returns the common operation fields
func (b *BaseOp) GetCommon() *Common {
	return &b.Common
}

// Validate validates the base operation
func (b *BaseOp) Validate() error {
	return b.Common.Validate()
}

// NewBaseOp creates a new base operation
func NewBaseOp(opType Type, account string) *BaseOp {
	return &BaseOp{
		Common: Common{
			Account:       account,
			OperationType: opType.String(),
		},
		opType: opType,
	}
}

// parseValidationError extracts a result code from a validation error
// message. Validate() implementations prefix their errors with the code
// (e.g. "memBAD_AMOUNT: price must be positive"). Unknown prefixes map
// to memINVALID.
func parseValidationError(err error) Result {
	msg := err.Error()

	memCodes := map[string]Result{
		"memMALFORMED":    MemMALFORMED,
		"memBAD_PARAMS":   MemBAD_PARAMS,
		"memBAD_AMOUNT":   MemBAD_AMOUNT,
		"memBAD_PARTY":    MemBAD_PARTY,
		"memBAD_DURATION": MemBAD_DURATION,
		"memINVALID":      MemINVALID,
	}

	for code, result := range memCodes {
		if strings.HasPrefix(msg, code) {
			if len(msg) == len(code) || msg[len(code)] == ':' || msg[len(code)] == ' ' {
				return result
			}
		}
	}

	return MemINVALID
}
