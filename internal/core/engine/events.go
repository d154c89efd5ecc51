package engine

import "github.com/lpando/marketd/internal/core/state"

// SettlementKind names how an offer reached Settled.
type SettlementKind string

const (
	SettlementBuy   SettlementKind = "buy"
	SettlementClaim SettlementKind = "claim"
)

// EventSink receives notifications after an operation commits. Sinks run
// on the engine's apply path and should hand work off quickly.
type EventSink interface {
	OfferCreated(offer state.Offer)
	BidAccepted(offer state.Offer, bidder string, amount uint64)
	OfferSettled(offer state.Offer, kind SettlementKind, buyer string, amount uint64)
	OfferCancelled(offer state.Offer)
}

// pendingEvent defers a notification until after commit. Operations queue
// events while applying; the engine delivers them only when the state
// table commits, so sinks never observe a rolled-back operation.
type pendingEvent func(sink EventSink)

// QueueEvent records a notification to deliver after a successful commit.
func (ctx *ApplyContext) QueueEvent(ev pendingEvent) {
	ctx.pending = append(ctx.pending, ev)
}
