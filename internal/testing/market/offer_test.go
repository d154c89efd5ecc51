package market

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
	mtx "github.com/lpando/marketd/internal/testing"
)

func TestOfferCreateFixedPrice(t *testing.T) {
	env := mtx.NewTestEnv(t)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
		WithPrice(1000))
	require.Equal(t, uint64(1), id)

	offer := env.Offer(id)
	require.Equal(t, "alice", offer.Seller)
	require.Equal(t, state.KindFixedPrice, offer.Kind)
	require.Equal(t, state.StatusActive, offer.Status)
	require.Equal(t, uint64(1000), offer.Price)

	total, err := env.Engine.GetTotalOffers()
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)

	active, ok, err := env.Engine.GetActiveOfferID(mtx.Contract, assetID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, active)
}

func TestOfferCreateAuctionDefaultsStartToNow(t *testing.T) {
	env := mtx.NewTestEnv(t)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))

	offer := env.Offer(id)
	require.Equal(t, env.Clock.Now().Unix(), offer.StartTime)
	require.Equal(t, env.Clock.Now().Unix()+3600, offer.EndTime())
}

func TestOfferCreateValidation(t *testing.T) {
	env := mtx.NewTestEnv(t)
	assetID := env.MintApproved("alice")

	// Direct-buy kinds need a price
	env.SubmitExpect(
		engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice),
		engine.MemBAD_AMOUNT)

	// Auction kinds need a duration
	env.SubmitExpect(
		engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction),
		engine.MemBAD_DURATION)

	// Fixed-price offers carry no auction window
	env.SubmitExpect(
		engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
			WithPrice(100).WithWindow(0, 60),
		engine.MemBAD_PARAMS)

	// Unknown kind
	op := engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice)
	op.Kind = "DutchAuction"
	op.Price = 100
	env.SubmitExpect(op, engine.MemBAD_PARAMS)

	// Missing account
	env.SubmitExpect(
		engine.NewOfferCreate("", mtx.Contract, assetID, state.KindFixedPrice).WithPrice(100),
		engine.MemBAD_PARTY)
}

func TestOfferCreateRequiresOwnership(t *testing.T) {
	env := mtx.NewTestEnv(t)
	assetID := env.MintApproved("alice")

	env.SubmitExpect(
		engine.NewOfferCreate("mallory", mtx.Contract, assetID, state.KindFixedPrice).
			WithPrice(100),
		engine.MecNOT_OWNER)

	// Nothing was listed
	total, err := env.Engine.GetTotalOffers()
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestOfferCreateRequiresApproval(t *testing.T) {
	env := mtx.NewTestEnv(t)
	assetID := env.Mint("alice") // no approval

	env.SubmitExpect(
		engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
			WithPrice(100),
		engine.MecNOT_APPROVED)
}

func TestOfferCreateReplacesActiveListing(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 5_000)
	assetID := env.MintApproved("alice")

	first := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))
	env.SubmitOK(engine.NewBid("bob", first, 2_000))
	require.Equal(t, uint64(3_000), env.Balance("bob"))

	// Relisting cancels the first offer and refunds bob's escrowed bid
	second := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
		WithPrice(10_000))
	require.Equal(t, uint64(2), second)

	require.Equal(t, state.StatusCancelled, env.Offer(first).Status)
	require.Equal(t, uint64(5_000), env.Balance("bob"))

	active, ok, err := env.Engine.GetActiveOfferID(mtx.Contract, assetID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, active)
}

func TestOfferCancel(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 1_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))
	env.SubmitOK(engine.NewBid("bob", id, 400))

	// Only the seller may cancel
	env.SubmitExpect(engine.NewOfferCancel("bob", id), engine.MecNO_PERMISSION)

	env.SubmitOK(engine.NewOfferCancel("alice", id))
	require.Equal(t, state.StatusCancelled, env.Offer(id).Status)
	require.Equal(t, uint64(1_000), env.Balance("bob"), "outstanding bid refunded")

	_, ok, err := env.Engine.GetActiveOfferID(mtx.Contract, assetID)
	require.NoError(t, err)
	require.False(t, ok)

	// Cancelling twice fails
	env.SubmitExpect(engine.NewOfferCancel("alice", id), engine.MecNOT_ACTIVE)
}

func TestGetOfferNotFound(t *testing.T) {
	env := mtx.NewTestEnv(t)

	_, result := env.Engine.GetOffer(99)
	require.Equal(t, engine.MecNOT_FOUND, result)

	env.SubmitExpect(engine.NewBid("bob", 99, 100), engine.MecNOT_FOUND)
	env.SubmitExpect(engine.NewBuy("bob", 99, 100), engine.MecNOT_FOUND)
	env.SubmitExpect(engine.NewAssetClaim("bob", 99), engine.MecNOT_FOUND)
	env.SubmitExpect(engine.NewOfferCancel("bob", 99), engine.MecNOT_FOUND)
}
