package engine

import (
	"errors"

	"github.com/lpando/marketd/internal/core/state"
)

func init() {
	Register(TypeBid, func() Operation {
		return &Bid{BaseOp: *NewBaseOp(TypeBid, "")}
	})
}

// Bid attaches funds to an open auction. The attached amount is escrowed
// in the market; the previous highest bidder, if any, is refunded before
// the new bid is recorded.
type Bid struct {
	BaseOp

	// OfferID is the auction to bid on.
	OfferID uint64 `json:"OfferID"`
}

// NewBid creates a new Bid operation
func NewBid(account string, offerID, amount uint64) *Bid {
	op := &Bid{
		BaseOp:  *NewBaseOp(TypeBid, account),
		OfferID: offerID,
	}
	op.Funds = amount
	return op
}

// Validate checks that the bid is well-formed
func (op *Bid) Validate() error {
	if err := op.BaseOp.Validate(); err != nil {
		return err
	}
	if op.OfferID == 0 {
		return errors.New("memBAD_PARAMS: OfferID is required")
	}
	if op.Funds == 0 {
		return errors.New("memBAD_AMOUNT: a bid must attach funds")
	}
	return nil
}

// Apply records the bid, refunding the outbid party in the same step.
func (op *Bid) Apply(ctx *ApplyContext) Result {
	ctx.SetOfferID(op.OfferID)

	offer, result := readOffer(ctx.View, op.OfferID)
	if !result.IsSuccess() {
		return result
	}
	if offer.Status != state.StatusActive {
		return MecNOT_ACTIVE
	}
	if !offer.Kind.HasAuction() {
		return MecNOT_IN_AUCTION
	}
	// The bidding window is [StartTime, EndTime)
	if ctx.Now.Unix() < offer.StartTime {
		return MecNOT_ACTIVE
	}
	if ctx.Now.Unix() >= offer.EndTime() {
		return MecAUCTION_ENDED
	}
	if offer.HasBid() {
		if op.Funds <= offer.HighestBid {
			return MecBID_TOO_LOW
		}
	} else if op.Funds < offer.ReservePrice {
		return MecBID_TOO_LOW
	}

	if result := debit(ctx.View, op.Account, op.Funds); !result.IsSuccess() {
		return result
	}

	// Refund before overwrite: the outbid party's money goes back in the
	// same state table that records the new bid, so no failure can leave
	// both bids escrowed.
	if offer.HasBid() {
		if result := credit(ctx.View, offer.HighestBidder, offer.HighestBid); !result.IsSuccess() {
			return result
		}
	}

	offer.HighestBid = op.Funds
	offer.HighestBidder = op.Account
	if result := writeOffer(ctx.View, offer); !result.IsSuccess() {
		return result
	}

	accepted := *offer
	ctx.QueueEvent(func(sink EventSink) {
		sink.BidAccepted(accepted, accepted.HighestBidder, accepted.HighestBid)
	})
	return MesSUCCESS
}
