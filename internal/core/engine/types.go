package engine

import "fmt"

// Type represents an operation type code
type Type uint16

const (
	TypeInvalid Type = 0xFFFF

	TypeOfferCreate Type = 0
	TypeBid         Type = 1
	TypeBuy         Type = 2
	TypeAssetClaim  Type = 3
	TypeOfferCancel Type = 4
)

// String returns the string name of the operation type
func (t Type) String() string {
	switch t {
	case TypeOfferCreate:
		return "OfferCreate"
	case TypeBid:
		return "Bid"
	case TypeBuy:
		return "Buy"
	case TypeAssetClaim:
		return "AssetClaim"
	case TypeOfferCancel:
		return "OfferCancel"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

var typeNameMap = map[string]Type{
	"OfferCreate": TypeOfferCreate,
	"Bid":         TypeBid,
	"Buy":         TypeBuy,
	"AssetClaim":  TypeAssetClaim,
	"OfferCancel": TypeOfferCancel,
}

// TypeFromName returns the operation type for a given name
func TypeFromName(name string) (Type, bool) {
	t, ok := typeNameMap[name]
	return t, ok
}
