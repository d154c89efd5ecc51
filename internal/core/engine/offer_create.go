package engine

import (
	"errors"

	"github.com/lpando/marketd/internal/core/state"
)

func init() {
	Register(TypeOfferCreate, func() Operation {
		return &OfferCreate{BaseOp: *NewBaseOp(TypeOfferCreate, "")}
	})
}

// OfferCreate lists an asset for sale. Depending on Kind the offer accepts
// direct buys, bids, or both. The submitting account must own the asset
// and must have approved the market operator for transfer beforehand.
type OfferCreate struct {
	BaseOp

	// AssetContract identifies the registry collection.
	AssetContract string `json:"AssetContract"`

	// AssetID identifies the asset within the collection.
	AssetID uint64 `json:"AssetID"`

	// Kind names the sale path: FixedPrice, Auction or Hybrid.
	Kind string `json:"Kind"`

	// Price is the direct-buy price. Required for FixedPrice and Hybrid.
	Price uint64 `json:"Price,omitempty"`

	// ReservePrice is the minimum first bid. Zero means no reserve.
	ReservePrice uint64 `json:"ReservePrice,omitempty"`

	// StartTime is the auction start in unix seconds. Zero means now.
	StartTime int64 `json:"StartTime,omitempty"`

	// Duration is the auction window length in seconds. Required when
	// Kind has an auction path.
	Duration int64 `json:"Duration,omitempty"`
}

// NewOfferCreate creates a new OfferCreate operation
func NewOfferCreate(account, contract string, assetID uint64, kind state.OfferKind) *OfferCreate {
	return &OfferCreate{
		BaseOp:        *NewBaseOp(TypeOfferCreate, account),
		AssetContract: contract,
		AssetID:       assetID,
		Kind:          kind.String(),
	}
}

// WithPrice sets the direct-buy price
func (op *OfferCreate) WithPrice(price uint64) *OfferCreate {
	op.Price = price
	return op
}

// WithReserve sets the minimum first bid
func (op *OfferCreate) WithReserve(reserve uint64) *OfferCreate {
	op.ReservePrice = reserve
	return op
}

// WithWindow sets the auction start and duration
func (op *OfferCreate) WithWindow(start, duration int64) *OfferCreate {
	op.StartTime = start
	op.Duration = duration
	return op
}

// Validate checks that the offer is well-formed
func (op *OfferCreate) Validate() error {
	if err := op.BaseOp.Validate(); err != nil {
		return err
	}
	if op.AssetContract == "" {
		return errors.New("memBAD_PARAMS: AssetContract is required")
	}
	kind, ok := state.KindFromName(op.Kind)
	if !ok {
		return errors.New("memBAD_PARAMS: unknown offer kind")
	}
	if kind.HasDirectBuy() && op.Price == 0 {
		return errors.New("memBAD_AMOUNT: direct-buy offers require a positive price")
	}
	if kind.HasAuction() && op.Duration <= 0 {
		return errors.New("memBAD_DURATION: auction offers require a positive duration")
	}
	if !kind.HasAuction() && (op.Duration != 0 || op.ReservePrice != 0) {
		return errors.New("memBAD_PARAMS: fixed-price offers carry no auction window")
	}
	if op.StartTime < 0 {
		return errors.New("memBAD_PARAMS: start time cannot be negative")
	}
	return nil
}

// Apply lists the asset, replacing any prior active offer on it.
func (op *OfferCreate) Apply(ctx *ApplyContext) Result {
	kind, _ := state.KindFromName(op.Kind)

	owner, err := ctx.Registry.OwnerOf(op.AssetContract, op.AssetID)
	if err != nil {
		return MefINTERNAL
	}
	if owner != op.Account {
		return MecNOT_OWNER
	}

	approved, err := ctx.Registry.IsApprovedForTransfer(op.AssetContract, op.AssetID, ctx.Config.Operator)
	if err != nil {
		return MefINTERNAL
	}
	if !approved {
		return MecNOT_APPROVED
	}

	// At most one non-terminal offer per asset. A prior active offer is
	// cancelled, with its outstanding bid refunded, before the new one
	// takes the directory slot.
	dirKey := state.DirectoryKey(op.AssetContract, op.AssetID)
	prior, err := ctx.View.Read(dirKey)
	if err != nil {
		return MefINTERNAL
	}
	if prior != nil {
		priorID, err := state.DecodeUint64(prior)
		if err != nil {
			return MefINTERNAL
		}
		if result := cancelOffer(ctx, priorID); !result.IsSuccess() {
			return result
		}
	}

	total, err := readCounter(ctx.View)
	if err != nil {
		return MefINTERNAL
	}
	id := total + 1

	start := op.StartTime
	if kind.HasAuction() && start == 0 {
		start = ctx.Now.Unix()
	}

	offer := &state.Offer{
		ID:            id,
		AssetContract: op.AssetContract,
		AssetID:       op.AssetID,
		Seller:        op.Account,
		Kind:          kind,
		Status:        state.StatusActive,
		Price:         op.Price,
		ReservePrice:  op.ReservePrice,
		StartTime:     start,
		Duration:      op.Duration,
	}

	if result := writeOffer(ctx.View, offer); !result.IsSuccess() {
		return result
	}
	if err := writeCounter(ctx.View, id); err != nil {
		return MefINTERNAL
	}
	if err := writeDirectory(ctx.View, dirKey, id); err != nil {
		return MefINTERNAL
	}

	ctx.SetOfferID(id)
	created := *offer
	ctx.QueueEvent(func(sink EventSink) { sink.OfferCreated(created) })
	return MesSUCCESS
}

// writeCounter stores the total offer count.
func writeCounter(view StateView, total uint64) error {
	k := state.CounterKey()
	exists, err := view.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return view.Update(k, state.EncodeUint64(total))
	}
	return view.Insert(k, state.EncodeUint64(total))
}

// writeDirectory points the asset's directory slot at an offer id.
func writeDirectory(view StateView, k state.Keylet, id uint64) error {
	exists, err := view.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return view.Update(k, state.EncodeUint64(id))
	}
	return view.Insert(k, state.EncodeUint64(id))
}

// cancelOffer marks an offer Cancelled, refunds its outstanding bid and
// clears its directory slot. Shared by OfferCancel, Buy-over-auction and
// OfferCreate replacing a prior listing.
func cancelOffer(ctx *ApplyContext, id uint64) Result {
	offer, result := readOffer(ctx.View, id)
	if !result.IsSuccess() {
		return result
	}
	if offer.Status != state.StatusActive {
		return MecNOT_ACTIVE
	}

	if offer.HasBid() {
		if result := credit(ctx.View, offer.HighestBidder, offer.HighestBid); !result.IsSuccess() {
			return result
		}
	}

	offer.Status = state.StatusCancelled
	if result := writeOffer(ctx.View, offer); !result.IsSuccess() {
		return result
	}
	if err := ctx.View.Erase(state.DirectoryKey(offer.AssetContract, offer.AssetID)); err != nil {
		return MefINTERNAL
	}

	cancelled := *offer
	ctx.QueueEvent(func(sink EventSink) { sink.OfferCancelled(cancelled) })
	return MesSUCCESS
}
