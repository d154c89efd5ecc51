package engine

import "fmt"

// Result represents an operation result code
type Result int

// Operation result codes, organized by category: mes, mec, mem, mef
const (
	// mesSUCCESS (0)
	MesSUCCESS Result = 0

	// mec state-precondition rejections (100-199)
	// The operation was well-formed but current state refuses it
	MecNOT_FOUND        Result = 100
	MecNOT_OWNER        Result = 101
	MecNOT_APPROVED     Result = 102
	MecNOT_ACTIVE       Result = 103
	MecNOT_IN_AUCTION   Result = 104
	MecNOT_FOR_SALE     Result = 105
	MecAUCTION_ENDED    Result = 106
	MecNOT_ENDED        Result = 107
	MecBID_TOO_LOW      Result = 108
	MecPRICE_NOT_ENOUGH Result = 109
	MecNO_BIDDER        Result = 110
	MecUNFUNDED         Result = 111
	MecNO_PERMISSION    Result = 112

	// mef failure codes (-199 to -100)
	// The operation failed mid-apply; all state changes were discarded
	MefINTERNAL        Result = -199
	MefTRANSFER_FAILED Result = -198

	// mem malformed codes (-299 to -200)
	// The operation is ill-formed regardless of state
	MemMALFORMED    Result = -299
	MemBAD_PARAMS   Result = -298
	MemBAD_AMOUNT   Result = -297
	MemBAD_PARTY    Result = -296
	MemBAD_DURATION Result = -295
	MemINVALID      Result = -294
)

// String returns the string representation of the result code
func (r Result) String() string {
	switch r {
	case MesSUCCESS:
		return "mesSUCCESS"
	case MecNOT_FOUND:
		return "mecNOT_FOUND"
	case MecNOT_OWNER:
		return "mecNOT_OWNER"
	case MecNOT_APPROVED:
		return "mecNOT_APPROVED"
	case MecNOT_ACTIVE:
		return "mecNOT_ACTIVE"
	case MecNOT_IN_AUCTION:
		return "mecNOT_IN_AUCTION"
	case MecNOT_FOR_SALE:
		return "mecNOT_FOR_SALE"
	case MecAUCTION_ENDED:
		return "mecAUCTION_ENDED"
	case MecNOT_ENDED:
		return "mecNOT_ENDED"
	case MecBID_TOO_LOW:
		return "mecBID_TOO_LOW"
	case MecPRICE_NOT_ENOUGH:
		return "mecPRICE_NOT_ENOUGH"
	case MecNO_BIDDER:
		return "mecNO_BIDDER"
	case MecUNFUNDED:
		return "mecUNFUNDED"
	case MecNO_PERMISSION:
		return "mecNO_PERMISSION"
	case MefINTERNAL:
		return "mefINTERNAL"
	case MefTRANSFER_FAILED:
		return "mefTRANSFER_FAILED"
	case MemMALFORMED:
		return "memMALFORMED"
	case MemBAD_PARAMS:
		return "memBAD_PARAMS"
	case MemBAD_AMOUNT:
		return "memBAD_AMOUNT"
	case MemBAD_PARTY:
		return "memBAD_PARTY"
	case MemBAD_DURATION:
		return "memBAD_DURATION"
	case MemINVALID:
		return "memINVALID"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}

// IsSuccess returns true if the result indicates success
func (r Result) IsSuccess() bool {
	return r == MesSUCCESS
}

// IsMec returns true if this is a mec (state precondition) code
func (r Result) IsMec() bool {
	return r >= 100 && r < 200
}

// IsMef returns true if this is a mef (apply failure) code
func (r Result) IsMef() bool {
	return r >= -199 && r <= -100
}

// IsMem returns true if this is a mem (malformed) code
func (r Result) IsMem() bool {
	return r >= -299 && r <= -200
}

// Message returns a human-readable message for the result
func (r Result) Message() string {
	switch r {
	case MesSUCCESS:
		return "The operation was applied."
	case MecNOT_FOUND:
		return "No offer exists with this id."
	case MecNOT_OWNER:
		return "The seller does not own the asset."
	case MecNOT_APPROVED:
		return "The market is not approved to transfer the asset."
	case MecNOT_ACTIVE:
		return "The offer is no longer active."
	case MecNOT_IN_AUCTION:
		return "The asset is not in auction."
	case MecNOT_FOR_SALE:
		return "The offer does not allow a direct buy."
	case MecAUCTION_ENDED:
		return "The auction has ended."
	case MecNOT_ENDED:
		return "The auction has not ended yet."
	case MecBID_TOO_LOW:
		return "The bid does not beat the current highest bid or reserve."
	case MecPRICE_NOT_ENOUGH:
		return "Price is not enough."
	case MecNO_BIDDER:
		return "No bid was placed on the auction."
	case MecUNFUNDED:
		return "Insufficient balance to attach the requested funds."
	case MecNO_PERMISSION:
		return "The caller is not permitted to perform this operation."
	case MefTRANSFER_FAILED:
		return "Asset or funds delivery failed; the operation was rolled back."
	case MefINTERNAL:
		return "Internal failure; the operation was rolled back."
	case MemBAD_AMOUNT:
		return "Amounts must be positive."
	case MemBAD_DURATION:
		return "Auctions require a non-zero duration."
	case MemBAD_PARTY:
		return "A party identifier is required."
	case MemINVALID:
		return "The operation is ill-formed."
	default:
		return r.String()
	}
}
