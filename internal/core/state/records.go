package state

// OfferKind distinguishes the sale paths an offer supports.
// The variant is explicit so an offer can never be created in an
// inconsistent auction/direct-buy combination.
type OfferKind uint8

const (
	// KindFixedPrice sells at Price via Buy only.
	KindFixedPrice OfferKind = iota
	// KindAuction collects bids and settles via AssetClaim only.
	KindAuction
	// KindHybrid runs an auction but can be short-circuited by a direct Buy.
	KindHybrid
)

// String returns the kind name.
func (k OfferKind) String() string {
	switch k {
	case KindFixedPrice:
		return "FixedPrice"
	case KindAuction:
		return "Auction"
	case KindHybrid:
		return "Hybrid"
	default:
		return "Unknown"
	}
}

// KindFromName maps a kind name to its value. The second return is false
// for unknown names.
func KindFromName(name string) (OfferKind, bool) {
	switch name {
	case "FixedPrice":
		return KindFixedPrice, true
	case "Auction":
		return KindAuction, true
	case "Hybrid":
		return KindHybrid, true
	default:
		return KindFixedPrice, false
	}
}

// HasAuction reports whether the offer accepts bids.
func (k OfferKind) HasAuction() bool {
	return k == KindAuction || k == KindHybrid
}

// HasDirectBuy reports whether the offer can be bought outright.
func (k OfferKind) HasDirectBuy() bool {
	return k == KindFixedPrice || k == KindHybrid
}

// OfferStatus is the lifecycle state of an offer. Settled and Cancelled
// are terminal.
type OfferStatus uint8

const (
	StatusActive OfferStatus = iota
	StatusSettled
	StatusCancelled
)

// String returns the status name.
func (s OfferStatus) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusSettled:
		return "Settled"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Offer is the persistent record of a marketplace offer.
// Funds and times are integer units: funds in the market's base unit,
// times in unix seconds.
type Offer struct {
	ID            uint64      `codec:"id"`
	AssetContract string      `codec:"contract"`
	AssetID       uint64      `codec:"asset"`
	Seller        string      `codec:"seller"`
	Kind          OfferKind   `codec:"kind"`
	Status        OfferStatus `codec:"status"`

	// Price is the direct-buy price; zero for pure auctions.
	Price uint64 `codec:"price"`

	// ReservePrice is the minimum first bid; zero means no reserve.
	ReservePrice uint64 `codec:"reserve"`

	StartTime int64 `codec:"start"`
	Duration  int64 `codec:"duration"`

	HighestBid    uint64 `codec:"bid"`
	HighestBidder string `codec:"bidder"`
}

// EndTime returns the unix second at which the auction window closes.
func (o *Offer) EndTime() int64 {
	return o.StartTime + o.Duration
}

// HasBid reports whether at least one bid has been accepted.
func (o *Offer) HasBid() bool {
	return o.HighestBidder != ""
}

// Account is the persistent funds record of a party.
type Account struct {
	Party   string `codec:"party"`
	Balance uint64 `codec:"balance"`
}
