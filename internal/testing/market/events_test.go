package market

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
	mtx "github.com/lpando/marketd/internal/testing"
)

// recordingSink captures delivered notifications as readable strings.
type recordingSink struct {
	events []string
}

func (s *recordingSink) OfferCreated(offer state.Offer) {
	s.events = append(s.events, fmt.Sprintf("created:%d", offer.ID))
}

func (s *recordingSink) BidAccepted(offer state.Offer, bidder string, amount uint64) {
	s.events = append(s.events, fmt.Sprintf("bid:%d:%s:%d", offer.ID, bidder, amount))
}

func (s *recordingSink) OfferSettled(offer state.Offer, kind engine.SettlementKind, buyer string, amount uint64) {
	s.events = append(s.events, fmt.Sprintf("settled:%d:%s:%s:%d", offer.ID, kind, buyer, amount))
}

func (s *recordingSink) OfferCancelled(offer state.Offer) {
	s.events = append(s.events, fmt.Sprintf("cancelled:%d", offer.ID))
}

func TestEventsDeliveredAfterCommit(t *testing.T) {
	env := mtx.NewTestEnv(t)
	sink := &recordingSink{}
	env.Engine.AddSink(sink)

	env.Fund("bob", 10_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))
	env.SubmitOK(engine.NewBid("bob", id, 4_000))
	env.Advance(2 * time.Hour)
	env.SubmitOK(engine.NewAssetClaim("bob", id))

	require.Equal(t, []string{
		"created:1",
		"bid:1:bob:4000",
		"settled:1:claim:bob:4000",
	}, sink.events)
}

func TestNoEventsForRejectedOperations(t *testing.T) {
	env := mtx.NewTestEnv(t)
	sink := &recordingSink{}
	env.Engine.AddSink(sink)

	assetID := env.MintApproved("alice")

	// Rejected operations never reach the sink
	env.SubmitExpect(
		engine.NewOfferCreate("mallory", mtx.Contract, assetID, state.KindFixedPrice).WithPrice(100),
		engine.MecNOT_OWNER)
	env.SubmitExpect(engine.NewBid("bob", 1, 100), engine.MecNOT_FOUND)

	require.Empty(t, sink.events)
}

func TestReplaceListingEmitsCancelAndCreate(t *testing.T) {
	env := mtx.NewTestEnv(t)
	sink := &recordingSink{}
	env.Engine.AddSink(sink)

	assetID := env.MintApproved("alice")

	env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))
	env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
		WithPrice(2_000))

	require.Equal(t, []string{
		"created:1",
		"cancelled:1",
		"created:2",
	}, sink.events)
}
