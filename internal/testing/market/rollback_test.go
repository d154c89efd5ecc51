package market

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
	"github.com/lpando/marketd/internal/registry"
	"github.com/lpando/marketd/internal/storage/statestore"
	mtx "github.com/lpando/marketd/internal/testing"
)

// refusingRegistry delegates to a real registry but fails Transfer on
// demand, to exercise delivery-failure rollback.
type refusingRegistry struct {
	*registry.InMemory
	refuse bool
}

func (r *refusingRegistry) Transfer(contract string, assetID uint64, from, to string) error {
	if r.refuse {
		return errors.New("custody refused the transfer")
	}
	return r.InMemory.Transfer(contract, assetID, from, to)
}

// brokenView delegates to a memory view but refuses commits that touch a
// chosen state key, to exercise backend write-failure rollback.
type brokenView struct {
	*statestore.MemoryView
	refuse bool
	deny   [32]byte
}

func (v *brokenView) ApplyBatch(ops []engine.StateOp) error {
	if v.refuse {
		for _, op := range ops {
			if op.Key == v.deny {
				return errors.New("backend refused the write")
			}
		}
	}
	return v.MemoryView.ApplyBatch(ops)
}

func TestBidRefundWriteFailureRollsBack(t *testing.T) {
	view := &brokenView{MemoryView: statestore.NewMemoryView()}
	reg := registry.NewInMemory()
	clock := mtx.NewManualClock()
	eng, err := engine.New(view, reg, clock, engine.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, eng.Deposit("bob", 10_000))
	require.NoError(t, eng.Deposit("carol", 10_000))
	assetID := reg.Mint(mtx.Contract, "alice", "", 0)
	require.NoError(t, reg.Approve(mtx.Contract, assetID, "alice", eng.Config().Operator))

	created := eng.Apply(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))
	require.Equal(t, engine.MesSUCCESS, created.Result)
	id := created.OfferID

	require.Equal(t, engine.MesSUCCESS, eng.Apply(engine.NewBid("bob", id, 4_000)).Result)

	// Carol's outbid must refund bob in the same commit; when the write
	// to bob's account fails, the whole bid is discarded
	view.deny = state.AccountKey("bob").Key
	view.refuse = true
	result := eng.Apply(engine.NewBid("carol", id, 5_000))
	require.Equal(t, engine.MefINTERNAL, result.Result)
	require.False(t, result.Applied)

	// No bid recorded, no money moved
	balance, err := eng.Balance("carol")
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), balance)
	balance, err = eng.Balance("bob")
	require.NoError(t, err)
	require.Equal(t, uint64(6_000), balance)

	offer, res := eng.GetOffer(id)
	require.True(t, res.IsSuccess())
	require.Equal(t, "bob", offer.HighestBidder)
	require.Equal(t, uint64(4_000), offer.HighestBid)

	// With the backend healthy again the same outbid goes through
	view.refuse = false
	require.Equal(t, engine.MesSUCCESS, eng.Apply(engine.NewBid("carol", id, 5_000)).Result)
	balance, err = eng.Balance("bob")
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), balance)
}

func TestBuyTransferFailureRollsBack(t *testing.T) {
	view := statestore.NewMemoryView()
	reg := &refusingRegistry{InMemory: registry.NewInMemory()}
	clock := mtx.NewManualClock()
	eng, err := engine.New(view, reg, clock, engine.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, eng.Deposit("bob", 10_000))
	assetID := reg.Mint(mtx.Contract, "alice", "", 0)
	require.NoError(t, reg.Approve(mtx.Contract, assetID, "alice", eng.Config().Operator))

	created := eng.Apply(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
		WithPrice(3_000))
	require.Equal(t, engine.MesSUCCESS, created.Result)
	id := created.OfferID

	reg.refuse = true
	result := eng.Apply(engine.NewBuy("bob", id, 3_000))
	require.Equal(t, engine.MefTRANSFER_FAILED, result.Result)
	require.False(t, result.Applied)

	// Every effect of the buy was discarded
	balance, err := eng.Balance("bob")
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), balance)
	balance, err = eng.Balance("alice")
	require.NoError(t, err)
	require.Zero(t, balance)

	offer, res := eng.GetOffer(id)
	require.True(t, res.IsSuccess())
	require.Equal(t, state.StatusActive, offer.Status)

	active, ok, err := eng.GetActiveOfferID(mtx.Contract, assetID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, active)

	// Once custody cooperates the same buy goes through
	reg.refuse = false
	result = eng.Apply(engine.NewBuy("bob", id, 3_000))
	require.Equal(t, engine.MesSUCCESS, result.Result)
}

func TestClaimTransferFailureRollsBack(t *testing.T) {
	view := statestore.NewMemoryView()
	reg := &refusingRegistry{InMemory: registry.NewInMemory()}
	clock := mtx.NewManualClock()
	eng, err := engine.New(view, reg, clock, engine.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, eng.Deposit("bob", 10_000))
	assetID := reg.Mint(mtx.Contract, "alice", "", 0)
	require.NoError(t, reg.Approve(mtx.Contract, assetID, "alice", eng.Config().Operator))

	created := eng.Apply(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))
	require.Equal(t, engine.MesSUCCESS, created.Result)
	id := created.OfferID

	require.Equal(t, engine.MesSUCCESS, eng.Apply(engine.NewBid("bob", id, 6_000)).Result)
	clock.Advance(2 * time.Hour)

	reg.refuse = true
	result := eng.Apply(engine.NewAssetClaim("carol", id))
	require.Equal(t, engine.MefTRANSFER_FAILED, result.Result)

	// Seller not paid, bid still escrowed, auction still claimable
	balance, err := eng.Balance("alice")
	require.NoError(t, err)
	require.Zero(t, balance)
	balance, err = eng.Balance("bob")
	require.NoError(t, err)
	require.Equal(t, uint64(4_000), balance)

	offer, res := eng.GetOffer(id)
	require.True(t, res.IsSuccess())
	require.Equal(t, state.StatusActive, offer.Status)

	reg.refuse = false
	require.Equal(t, engine.MesSUCCESS, eng.Apply(engine.NewAssetClaim("carol", id)).Result)
	balance, err = eng.Balance("alice")
	require.NoError(t, err)
	require.Equal(t, uint64(6_000), balance)
}

func TestBuyAfterCustodyChanged(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 10_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
		WithPrice(3_000))

	// The asset leaves alice's hands outside the market, consuming the
	// approval along the way
	require.NoError(t, env.Registry.Transfer(mtx.Contract, assetID, "alice", "dave"))

	env.SubmitExpect(engine.NewBuy("bob", id, 3_000), engine.MecNOT_OWNER)
	require.Equal(t, uint64(10_000), env.Balance("bob"))
	require.Equal(t, state.StatusActive, env.Offer(id).Status)
}

func TestBuyAfterApprovalRevoked(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 10_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
		WithPrice(3_000))

	require.NoError(t, env.Registry.Approve(mtx.Contract, assetID, "alice", ""))

	env.SubmitExpect(engine.NewBuy("bob", id, 3_000), engine.MecNOT_APPROVED)
	require.Equal(t, uint64(10_000), env.Balance("bob"))
}
