package engine

import (
	"github.com/lpando/marketd/internal/core/state"
)

// Funds live in per-party account records and only move through the apply
// state table, so a failed operation can never strand or duplicate money.

// readAccount returns the funds record for a party, or a zero-balance
// record if none exists yet.
func readAccount(view StateView, party string) (*state.Account, error) {
	data, err := view.Read(state.AccountKey(party))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return &state.Account{Party: party}, nil
	}
	return state.DecodeAccount(data)
}

// writeAccount stores a funds record, inserting or updating as needed.
func writeAccount(view StateView, acct *state.Account) error {
	k := state.AccountKey(acct.Party)
	data, err := state.EncodeAccount(acct)
	if err != nil {
		return err
	}
	exists, err := view.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return view.Update(k, data)
	}
	return view.Insert(k, data)
}

// debit removes amount from a party's balance. Returns MecUNFUNDED when
// the balance cannot cover it.
func debit(view StateView, party string, amount uint64) Result {
	acct, err := readAccount(view, party)
	if err != nil {
		return MefINTERNAL
	}
	if acct.Balance < amount {
		return MecUNFUNDED
	}
	acct.Balance -= amount
	if err := writeAccount(view, acct); err != nil {
		return MefINTERNAL
	}
	return MesSUCCESS
}

// credit adds amount to a party's balance.
func credit(view StateView, party string, amount uint64) Result {
	if amount == 0 {
		return MesSUCCESS
	}
	acct, err := readAccount(view, party)
	if err != nil {
		return MefINTERNAL
	}
	acct.Balance += amount
	if err := writeAccount(view, acct); err != nil {
		return MefINTERNAL
	}
	return MesSUCCESS
}
