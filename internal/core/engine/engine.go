package engine

import (
	"fmt"
	"sync"

	"github.com/lpando/marketd/internal/core/state"
)

// OverpaymentPolicy decides what happens to funds attached to a Buy above
// the asking price.
type OverpaymentPolicy string

const (
	// OverpaymentRefund returns the excess to the buyer.
	OverpaymentRefund OverpaymentPolicy = "refund"
	// OverpaymentRetain credits the full attached amount to the seller.
	OverpaymentRetain OverpaymentPolicy = "retain"
)

// Valid reports whether the policy is a known value.
func (p OverpaymentPolicy) Valid() bool {
	return p == OverpaymentRefund || p == OverpaymentRetain
}

// Config holds configuration for the marketplace engine
type Config struct {
	// Operator is the identity the engine presents to the asset
	// registry; sellers must approve it before an offer can settle.
	Operator string

	// Overpayment selects the policy for Buy funds above the price.
	Overpayment OverpaymentPolicy
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Operator:    "marketd",
		Overpayment: OverpaymentRefund,
	}
}

// Engine processes marketplace operations against a state view. All
// operations and queries are serialized behind a mutex; callers observe
// each operation as a single indivisible step.
type Engine struct {
	mu       sync.Mutex
	view     StateView
	registry AssetRegistry
	clock    Clock
	config   Config
	sinks    []EventSink
}

// ApplyResult contains the result of applying an operation
type ApplyResult struct {
	// Result is the operation result code
	Result Result

	// Applied indicates if the operation changed state
	Applied bool

	// OfferID carries the assigned id for OfferCreate, and echoes the
	// target offer for other operations
	OfferID uint64

	// Message is a human-readable result message
	Message string
}

// New creates a new marketplace engine
func New(view StateView, registry AssetRegistry, clock Clock, config Config) (*Engine, error) {
	if view == nil {
		return nil, fmt.Errorf("engine: state view is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("engine: asset registry is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if config.Operator == "" {
		config.Operator = DefaultConfig().Operator
	}
	if config.Overpayment == "" {
		config.Overpayment = OverpaymentRefund
	}
	if !config.Overpayment.Valid() {
		return nil, fmt.Errorf("engine: unknown overpayment policy %q", config.Overpayment)
	}
	return &Engine{
		view:     view,
		registry: registry,
		clock:    clock,
		config:   config,
	}, nil
}

// AddSink registers an event sink. Not safe to call concurrently with
// Apply; wire sinks during startup.
func (e *Engine) AddSink(sink EventSink) {
	e.sinks = append(e.sinks, sink)
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Apply processes an operation and commits it to the state view.
// The pipeline is preflight (syntax), then doApply against a
// change-tracking table. Any failure discards the table, leaving prior
// state untouched.
func (e *Engine) Apply(op Operation) ApplyResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Preflight: syntax validation, no state access
	if result := e.preflight(op); !result.IsSuccess() {
		return ApplyResult{
			Result:  result,
			Applied: false,
			Message: result.Message(),
		}
	}

	appliable, ok := op.(Appliable)
	if !ok {
		return ApplyResult{
			Result:  MefINTERNAL,
			Applied: false,
			Message: "operation cannot be applied",
		}
	}

	table := NewApplyStateTable(e.view)
	ctx := &ApplyContext{
		View:     table,
		Registry: e.registry,
		Now:      e.clock.Now(),
		Config:   e.config,
		Engine:   e,
	}

	result := appliable.Apply(ctx)
	if !result.IsSuccess() {
		// Discarding the table is the rollback
		return ApplyResult{
			Result:  result,
			Applied: false,
			OfferID: ctx.offerID,
			Message: result.Message(),
		}
	}

	if err := table.Apply(); err != nil {
		return ApplyResult{
			Result:  MefINTERNAL,
			Applied: false,
			Message: "failed to commit state changes: " + err.Error(),
		}
	}

	for _, ev := range ctx.pending {
		for _, sink := range e.sinks {
			ev(sink)
		}
	}

	return ApplyResult{
		Result:  MesSUCCESS,
		Applied: true,
		OfferID: ctx.offerID,
		Message: MesSUCCESS.Message(),
	}
}

// preflight performs syntax validation on the operation
func (e *Engine) preflight(op Operation) Result {
	common := op.GetCommon()

	if common.Account == "" {
		return MemBAD_PARTY
	}
	if common.OperationType == "" {
		return MemINVALID
	}

	if err := op.Validate(); err != nil {
		return parseValidationError(err)
	}

	return MesSUCCESS
}

// Deposit credits a party's funds balance outside the operation pipeline.
// This is the entry point for money arriving from outside the market.
func (e *Engine) Deposit(party string, amount uint64) error {
	if party == "" {
		return fmt.Errorf("engine: party is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acct, err := readAccount(e.view, party)
	if err != nil {
		return err
	}
	acct.Balance += amount
	return writeAccount(e.view, acct)
}

// Balance returns a party's funds balance.
func (e *Engine) Balance(party string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acct, err := readAccount(e.view, party)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// GetTotalOffers returns the number of offers ever created.
func (e *Engine) GetTotalOffers() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return readCounter(e.view)
}

// GetOffer returns the offer with the given id.
func (e *Engine) GetOffer(id uint64) (*state.Offer, Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return readOffer(e.view, id)
}

// GetCurrentBidAmount returns the highest bid on an offer, zero if no bid
// has been placed.
func (e *Engine) GetCurrentBidAmount(id uint64) (uint64, Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, result := readOffer(e.view, id)
	if !result.IsSuccess() {
		return 0, result
	}
	return offer.HighestBid, MesSUCCESS
}

// GetWinner returns the winning bidder of an ended auction.
func (e *Engine) GetWinner(id uint64) (string, Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, result := readOffer(e.view, id)
	if !result.IsSuccess() {
		return "", result
	}
	if !offer.Kind.HasAuction() {
		return "", MecNOT_IN_AUCTION
	}
	// A cancelled auction has no winner, refunded bid or not
	if offer.Status == state.StatusCancelled {
		return "", MecNOT_IN_AUCTION
	}
	if offer.Status == state.StatusActive && e.clock.Now().Unix() < offer.EndTime() {
		return "", MecNOT_ENDED
	}
	if !offer.HasBid() {
		return "", MecNO_BIDDER
	}
	return offer.HighestBidder, MesSUCCESS
}

// GetActiveOfferID returns the id of the Active offer for an asset, if any.
func (e *Engine) GetActiveOfferID(contract string, assetID uint64) (uint64, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.view.Read(state.DirectoryKey(contract, assetID))
	if err != nil {
		return 0, false, err
	}
	if data == nil {
		return 0, false, nil
	}
	id, err := state.DecodeUint64(data)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// readCounter returns the number of offers created so far.
func readCounter(view StateView) (uint64, error) {
	data, err := view.Read(state.CounterKey())
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, nil
	}
	return state.DecodeUint64(data)
}

// readOffer loads an offer record, mapping absence to MecNOT_FOUND.
func readOffer(view StateView, id uint64) (*state.Offer, Result) {
	if id == 0 {
		return nil, MecNOT_FOUND
	}
	data, err := view.Read(state.OfferKey(id))
	if err != nil {
		return nil, MefINTERNAL
	}
	if data == nil {
		return nil, MecNOT_FOUND
	}
	offer, err := state.DecodeOffer(data)
	if err != nil {
		return nil, MefINTERNAL
	}
	return offer, MesSUCCESS
}

// writeOffer stores an offer record, inserting or updating as needed.
func writeOffer(view StateView, offer *state.Offer) Result {
	k := state.OfferKey(offer.ID)
	data, err := state.EncodeOffer(offer)
	if err != nil {
		return MefINTERNAL
	}
	exists, err := view.Exists(k)
	if err != nil {
		return MefINTERNAL
	}
	if exists {
		if err := view.Update(k, data); err != nil {
			return MefINTERNAL
		}
		return MesSUCCESS
	}
	if err := view.Insert(k, data); err != nil {
		return MefINTERNAL
	}
	return MesSUCCESS
}
