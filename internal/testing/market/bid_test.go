package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
	mtx "github.com/lpando/marketd/internal/testing"
)

func TestBidEscrowsFunds(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 10_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))

	env.SubmitOK(engine.NewBid("bob", id, 4_000))
	require.Equal(t, uint64(6_000), env.Balance("bob"))

	amount, result := env.Engine.GetCurrentBidAmount(id)
	require.True(t, result.IsSuccess())
	require.Equal(t, uint64(4_000), amount)

	offer := env.Offer(id)
	require.Equal(t, "bob", offer.HighestBidder)
}

func TestOutbidRefundsPreviousBidder(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 1_000_000_000_000_000)
	env.Fund("carol", 2_000_000_000_000_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 7200))

	env.SubmitOK(engine.NewBid("bob", id, 1_000_000_000_000_000))
	require.Zero(t, env.Balance("bob"))

	env.SubmitOK(engine.NewBid("carol", id, 1_120_000_000_000_000))

	// Bob's escrow came back in the same step that recorded carol's bid
	require.Equal(t, uint64(1_000_000_000_000_000), env.Balance("bob"))
	require.Equal(t, uint64(880_000_000_000_000), env.Balance("carol"))

	offer := env.Offer(id)
	require.Equal(t, "carol", offer.HighestBidder)
	require.Equal(t, uint64(1_120_000_000_000_000), offer.HighestBid)
}

func TestBidMustBeatHighestBid(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 10_000)
	env.Fund("carol", 10_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))

	env.SubmitOK(engine.NewBid("bob", id, 5_000))

	// An equal bid does not beat the standing one
	env.SubmitExpect(engine.NewBid("carol", id, 5_000), engine.MecBID_TOO_LOW)
	env.SubmitExpect(engine.NewBid("carol", id, 4_999), engine.MecBID_TOO_LOW)
	require.Equal(t, uint64(10_000), env.Balance("carol"), "rejected bids cost nothing")

	env.SubmitOK(engine.NewBid("carol", id, 5_001))
	require.Equal(t, uint64(10_000), env.Balance("bob"))
}

func TestBidReservePrice(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 10_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithReserve(2_000).WithWindow(0, 3600))

	env.SubmitExpect(engine.NewBid("bob", id, 1_999), engine.MecBID_TOO_LOW)

	// The reserve itself is acceptable as a first bid
	env.SubmitOK(engine.NewBid("bob", id, 2_000))
}

func TestBidInsufficientFunds(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 500)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))

	env.SubmitExpect(engine.NewBid("bob", id, 1_000), engine.MecUNFUNDED)
	require.Equal(t, uint64(500), env.Balance("bob"))

	offer := env.Offer(id)
	require.False(t, offer.HasBid())
}

func TestBidBeforeAuctionStarts(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 10_000)
	assetID := env.MintApproved("alice")

	start := env.Clock.Now().Add(10 * time.Minute).Unix()
	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(start, 3600))

	env.SubmitExpect(engine.NewBid("bob", id, 1_000), engine.MecNOT_ACTIVE)
	require.Equal(t, uint64(10_000), env.Balance("bob"))

	env.Advance(10 * time.Minute)
	env.SubmitOK(engine.NewBid("bob", id, 1_000))
}

func TestBidAfterAuctionEnds(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 10_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))

	env.Advance(time.Hour)
	env.SubmitExpect(engine.NewBid("bob", id, 1_000), engine.MecAUCTION_ENDED)
}

func TestBidOnFixedPriceOffer(t *testing.T) {
	env := mtx.NewTestEnv(t)
	env.Fund("bob", 10_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
		WithPrice(1_000))

	env.SubmitExpect(engine.NewBid("bob", id, 2_000), engine.MecNOT_IN_AUCTION)
}

func TestBidValidation(t *testing.T) {
	env := mtx.NewTestEnv(t)

	env.SubmitExpect(engine.NewBid("bob", 0, 100), engine.MemBAD_PARAMS)
	env.SubmitExpect(engine.NewBid("bob", 1, 0), engine.MemBAD_AMOUNT)
	env.SubmitExpect(engine.NewBid("", 1, 100), engine.MemBAD_PARTY)
}

func TestGetCurrentBidAmountNoBid(t *testing.T) {
	env := mtx.NewTestEnv(t)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))

	amount, result := env.Engine.GetCurrentBidAmount(id)
	require.True(t, result.IsSuccess())
	require.Zero(t, amount)
}
