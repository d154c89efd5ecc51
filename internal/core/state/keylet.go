package state

import (
	"encoding/binary"

	crypto "github.com/lpando/marketd/internal/crypto"
)

// Space identifiers for keylet generation.
// Each entry kind hashes into its own namespace so keys can never collide
// across kinds.
const (
	spaceAccount   uint16 = 'a' // party funds account
	spaceOffer     uint16 = 'o' // marketplace offer
	spaceDirectory uint16 = 'd' // asset -> active offer directory
	spaceCounter   uint16 = 'c' // offer id counter (singleton)
)

// EntryType identifies the kind of record stored under a keylet.
type EntryType uint8

const (
	EntryAccount EntryType = iota
	EntryOffer
	EntryDirectory
	EntryCounter
)

// String returns the entry type name.
func (t EntryType) String() string {
	switch t {
	case EntryAccount:
		return "Account"
	case EntryOffer:
		return "Offer"
	case EntryDirectory:
		return "Directory"
	case EntryCounter:
		return "Counter"
	default:
		return "Unknown"
	}
}

// Keylet represents an addressable location in marketplace state.
// It combines a type identifier with a 256-bit key.
type Keylet struct {
	Type EntryType
	Key  [32]byte
}

// indexHash computes a keylet key by hashing the space and provided data.
func indexHash(space uint16, data ...[]byte) [32]byte {
	spaceBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(spaceBytes, space)

	input := make([]byte, 0, 64)
	input = append(input, spaceBytes...)
	for _, d := range data {
		input = append(input, d...)
	}
	return crypto.Sha512Half(input)
}

// AccountKey returns the keylet for a party's funds account.
func AccountKey(party string) Keylet {
	return Keylet{
		Type: EntryAccount,
		Key:  indexHash(spaceAccount, []byte(party)),
	}
}

// OfferKey returns the keylet for an offer by its sequential id.
func OfferKey(id uint64) Keylet {
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)
	return Keylet{
		Type: EntryOffer,
		Key:  indexHash(spaceOffer, idBytes),
	}
}

// DirectoryKey returns the keylet for the active-offer directory entry of
// an asset. At most one non-terminal offer exists per asset, so the
// directory maps (contract, assetID) to a single offer id.
func DirectoryKey(contract string, assetID uint64) Keylet {
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, assetID)
	return Keylet{
		Type: EntryDirectory,
		Key:  indexHash(spaceDirectory, []byte(contract), idBytes),
	}
}

// CounterKey returns the keylet for the singleton offer id counter.
func CounterKey() Keylet {
	return Keylet{
		Type: EntryCounter,
		Key:  indexHash(spaceCounter),
	}
}
