package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
)

// Sink adapts the Store to the engine's event sink: every settled offer
// becomes a trade row. Recording happens on the apply path after commit;
// a history failure is logged, never propagated, so a slow or broken
// history database cannot reject market operations.
type Sink struct {
	store *Store
	clock engine.Clock
	log   *zap.Logger
}

// NewSink creates a sink writing to store, stamping rows with clock.
func NewSink(store *Store, clock engine.Clock, log *zap.Logger) *Sink {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{store: store, clock: clock, log: log}
}

// OfferCreated is ignored; only settlements enter history.
func (s *Sink) OfferCreated(state.Offer) {}

// BidAccepted is ignored; only settlements enter history.
func (s *Sink) BidAccepted(state.Offer, string, uint64) {}

// OfferCancelled is ignored; only settlements enter history.
func (s *Sink) OfferCancelled(state.Offer) {}

// OfferSettled records the trade.
func (s *Sink) OfferSettled(offer state.Offer, kind engine.SettlementKind, buyer string, amount uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.store.RecordTrade(ctx, Trade{
		OfferID:       offer.ID,
		AssetContract: offer.AssetContract,
		AssetID:       offer.AssetID,
		Seller:        offer.Seller,
		Buyer:         buyer,
		Amount:        amount,
		Kind:          string(kind),
		OccurredAt:    s.clock.Now(),
	})
	if err != nil {
		s.log.Error("failed to record trade",
			zap.Uint64("offer", offer.ID),
			zap.Error(err))
	}
}
