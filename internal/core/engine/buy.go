package engine

import (
	"errors"

	"github.com/lpando/marketd/internal/core/state"
)

func init() {
	Register(TypeBuy, func() Operation {
		return &Buy{BaseOp: *NewBaseOp(TypeBuy, "")}
	})
}

// Buy purchases an asset outright at its listed price. On a hybrid offer
// a buy short-circuits the running auction and refunds its highest
// bidder. Attached funds above the price follow the configured
// overpayment policy.
type Buy struct {
	BaseOp

	// OfferID is the listing to buy.
	OfferID uint64 `json:"OfferID"`
}

// NewBuy creates a new Buy operation
func NewBuy(account string, offerID, amount uint64) *Buy {
	op := &Buy{
		BaseOp:  *NewBaseOp(TypeBuy, account),
		OfferID: offerID,
	}
	op.Funds = amount
	return op
}

// Validate checks that the buy is well-formed
func (op *Buy) Validate() error {
	if err := op.BaseOp.Validate(); err != nil {
		return err
	}
	if op.OfferID == 0 {
		return errors.New("memBAD_PARAMS: OfferID is required")
	}
	if op.Funds == 0 {
		return errors.New("memBAD_AMOUNT: a buy must attach funds")
	}
	return nil
}

// Apply settles the sale and delivers the asset.
func (op *Buy) Apply(ctx *ApplyContext) Result {
	ctx.SetOfferID(op.OfferID)

	offer, result := readOffer(ctx.View, op.OfferID)
	if !result.IsSuccess() {
		return result
	}
	if offer.Status != state.StatusActive {
		return MecNOT_ACTIVE
	}
	if !offer.Kind.HasDirectBuy() {
		return MecNOT_FOR_SALE
	}
	if op.Funds < offer.Price {
		return MecPRICE_NOT_ENOUGH
	}

	// Custody can have changed since listing; re-check before moving
	// anything.
	owner, err := ctx.Registry.OwnerOf(offer.AssetContract, offer.AssetID)
	if err != nil {
		return MefINTERNAL
	}
	if owner != offer.Seller {
		return MecNOT_OWNER
	}
	approved, err := ctx.Registry.IsApprovedForTransfer(offer.AssetContract, offer.AssetID, ctx.Config.Operator)
	if err != nil {
		return MefINTERNAL
	}
	if !approved {
		return MecNOT_APPROVED
	}

	if result := debit(ctx.View, op.Account, op.Funds); !result.IsSuccess() {
		return result
	}

	sellerTake := offer.Price
	if ctx.Config.Overpayment == OverpaymentRetain {
		sellerTake = op.Funds
	} else if excess := op.Funds - offer.Price; excess > 0 {
		if result := credit(ctx.View, op.Account, excess); !result.IsSuccess() {
			return result
		}
	}
	if result := credit(ctx.View, offer.Seller, sellerTake); !result.IsSuccess() {
		return result
	}

	// A hybrid offer may carry a live auction; its highest bidder gets
	// their escrow back.
	if offer.HasBid() {
		if result := credit(ctx.View, offer.HighestBidder, offer.HighestBid); !result.IsSuccess() {
			return result
		}
	}

	offer.Status = state.StatusSettled
	if result := writeOffer(ctx.View, offer); !result.IsSuccess() {
		return result
	}
	if err := ctx.View.Erase(state.DirectoryKey(offer.AssetContract, offer.AssetID)); err != nil {
		return MefINTERNAL
	}

	// The registry call comes last: every state change above is still
	// only in the table, so a refusal here rolls the whole buy back.
	if err := ctx.Registry.Transfer(offer.AssetContract, offer.AssetID, offer.Seller, op.Account); err != nil {
		return MefTRANSFER_FAILED
	}

	settled := *offer
	buyer := op.Account
	paid := op.Funds
	ctx.QueueEvent(func(sink EventSink) {
		sink.OfferSettled(settled, SettlementBuy, buyer, paid)
	})
	return MesSUCCESS
}
