// Package testing provides a marketplace test environment: an engine over
// an in-memory state view, a controllable clock and an in-memory asset
// registry, with helpers for funding parties, minting assets and
// submitting operations.
package testing

import (
	"testing"
	"time"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
	"github.com/lpando/marketd/internal/registry"
	"github.com/lpando/marketd/internal/storage/statestore"
)

// Contract is the registry collection test assets are minted into.
const Contract = "test-collection"

// TestEnv wires an engine, registry and manual clock for operation tests.
type TestEnv struct {
	t        *testing.T
	Engine   *engine.Engine
	Registry *registry.InMemory
	Clock    *ManualClock
	View     *statestore.MemoryView
}

// NewTestEnv creates a test environment with default engine configuration.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return NewTestEnvWithConfig(t, engine.DefaultConfig())
}

// NewTestEnvWithConfig creates a test environment with a custom engine
// configuration.
func NewTestEnvWithConfig(t *testing.T, config engine.Config) *TestEnv {
	t.Helper()

	view := statestore.NewMemoryView()
	reg := registry.NewInMemory()
	clock := NewManualClock()

	eng, err := engine.New(view, reg, clock, config)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	return &TestEnv{
		t:        t,
		Engine:   eng,
		Registry: reg,
		Clock:    clock,
		View:     view,
	}
}

// Fund credits a party's balance.
func (env *TestEnv) Fund(party string, amount uint64) {
	env.t.Helper()
	if err := env.Engine.Deposit(party, amount); err != nil {
		env.t.Fatalf("failed to fund %s: %v", party, err)
	}
}

// Balance returns a party's balance.
func (env *TestEnv) Balance(party string) uint64 {
	env.t.Helper()
	balance, err := env.Engine.Balance(party)
	if err != nil {
		env.t.Fatalf("failed to read balance of %s: %v", party, err)
	}
	return balance
}

// Mint creates an asset owned by owner and returns its id.
func (env *TestEnv) Mint(owner string) uint64 {
	env.t.Helper()
	return env.Registry.Mint(Contract, owner, "", 0)
}

// Approve grants the market operator transfer rights over an asset.
func (env *TestEnv) Approve(owner string, assetID uint64) {
	env.t.Helper()
	operator := env.Engine.Config().Operator
	if err := env.Registry.Approve(Contract, assetID, owner, operator); err != nil {
		env.t.Fatalf("failed to approve asset %d: %v", assetID, err)
	}
}

// MintApproved mints an asset and approves the market operator in one step.
func (env *TestEnv) MintApproved(owner string) uint64 {
	env.t.Helper()
	id := env.Mint(owner)
	env.Approve(owner, id)
	return id
}

// Submit applies an operation and returns the full result.
func (env *TestEnv) Submit(op engine.Operation) engine.ApplyResult {
	env.t.Helper()
	return env.Engine.Apply(op)
}

// SubmitOK applies an operation and fails the test unless it succeeds.
// Returns the assigned offer id.
func (env *TestEnv) SubmitOK(op engine.Operation) uint64 {
	env.t.Helper()
	result := env.Engine.Apply(op)
	if !result.Result.IsSuccess() {
		env.t.Fatalf("operation %s failed: %s (%s)", op.OpType(), result.Result, result.Message)
	}
	return result.OfferID
}

// SubmitExpect applies an operation and fails the test unless it returns
// the expected result code.
func (env *TestEnv) SubmitExpect(op engine.Operation, expected engine.Result) engine.ApplyResult {
	env.t.Helper()
	result := env.Engine.Apply(op)
	if result.Result != expected {
		env.t.Fatalf("operation %s: got %s, want %s", op.OpType(), result.Result, expected)
	}
	return result
}

// Advance moves the clock forward.
func (env *TestEnv) Advance(d time.Duration) {
	env.Clock.Advance(d)
}

// Offer fetches an offer record, failing the test if it does not exist.
func (env *TestEnv) Offer(id uint64) *state.Offer {
	env.t.Helper()
	offer, result := env.Engine.GetOffer(id)
	if !result.IsSuccess() {
		env.t.Fatalf("offer %d: %s", id, result)
	}
	return offer
}
