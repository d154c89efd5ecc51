package engine

import (
	"errors"
)

func init() {
	Register(TypeOfferCancel, func() Operation {
		return &OfferCancel{BaseOp: *NewBaseOp(TypeOfferCancel, "")}
	})
}

// OfferCancel withdraws an active offer. Only the seller may cancel; an
// outstanding highest bid is refunded.
type OfferCancel struct {
	BaseOp

	// OfferID is the offer to withdraw.
	OfferID uint64 `json:"OfferID"`
}

// NewOfferCancel creates a new OfferCancel operation
func NewOfferCancel(account string, offerID uint64) *OfferCancel {
	return &OfferCancel{
		BaseOp:  *NewBaseOp(TypeOfferCancel, account),
		OfferID: offerID,
	}
}

// Validate checks that the cancel is well-formed
func (op *OfferCancel) Validate() error {
	if err := op.BaseOp.Validate(); err != nil {
		return err
	}
	if op.OfferID == 0 {
		return errors.New("memBAD_PARAMS: OfferID is required")
	}
	return nil
}

// Apply withdraws the offer.
func (op *OfferCancel) Apply(ctx *ApplyContext) Result {
	ctx.SetOfferID(op.OfferID)

	offer, result := readOffer(ctx.View, op.OfferID)
	if !result.IsSuccess() {
		return result
	}
	if offer.Seller != op.Account {
		return MecNO_PERMISSION
	}
	return cancelOffer(ctx, op.OfferID)
}
