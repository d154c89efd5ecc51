package engine

import (
	"errors"

	"github.com/lpando/marketd/internal/core/state"
)

func init() {
	Register(TypeAssetClaim, func() Operation {
		return &AssetClaim{BaseOp: *NewBaseOp(TypeAssetClaim, "")}
	})
}

// AssetClaim settles an ended auction: the escrowed winning bid goes to
// the seller and the asset goes to the winner. Anyone may submit the
// claim; the outcome is the same regardless of who triggers it.
type AssetClaim struct {
	BaseOp

	// OfferID is the auction to settle.
	OfferID uint64 `json:"OfferID"`
}

// NewAssetClaim creates a new AssetClaim operation
func NewAssetClaim(account string, offerID uint64) *AssetClaim {
	return &AssetClaim{
		BaseOp:  *NewBaseOp(TypeAssetClaim, account),
		OfferID: offerID,
	}
}

// Validate checks that the claim is well-formed
func (op *AssetClaim) Validate() error {
	if err := op.BaseOp.Validate(); err != nil {
		return err
	}
	if op.OfferID == 0 {
		return errors.New("memBAD_PARAMS: OfferID is required")
	}
	return nil
}

// Apply delivers the auction outcome.
func (op *AssetClaim) Apply(ctx *ApplyContext) Result {
	ctx.SetOfferID(op.OfferID)

	offer, result := readOffer(ctx.View, op.OfferID)
	if !result.IsSuccess() {
		return result
	}
	if !offer.Kind.HasAuction() || offer.Status != state.StatusActive {
		return MecNOT_IN_AUCTION
	}
	if ctx.Now.Unix() < offer.EndTime() {
		return MecNOT_ENDED
	}
	if !offer.HasBid() {
		return MecNO_BIDDER
	}

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

	// The winning bid is already escrowed; release it to the seller.
	if result := credit(ctx.View, offer.Seller, offer.HighestBid); !result.IsSuccess() {
		return result
	}

	offer.Status = state.StatusSettled
	if result := writeOffer(ctx.View, offer); !result.IsSuccess() {
		return result
	}
	if err := ctx.View.Erase(state.DirectoryKey(offer.AssetContract, offer.AssetID)); err != nil {
		return MefINTERNAL
	}

	if err := ctx.Registry.Transfer(offer.AssetContract, offer.AssetID, offer.Seller, offer.HighestBidder); err != nil {
		return MefTRANSFER_FAILED
	}

	settled := *offer
	ctx.QueueEvent(func(sink EventSink) {
		sink.OfferSettled(settled, SettlementClaim, settled.HighestBidder, settled.HighestBid)
	})
	return MesSUCCESS
}
