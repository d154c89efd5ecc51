package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
	"github.com/lpando/marketd/internal/registry"
	"github.com/lpando/marketd/internal/storage/history"
)

// Error is a JSON-RPC level failure. Operation rejections are not errors;
// they come back inside the result with their code and message.
type Error struct {
	Code    int
	Message string
}

func errInvalidParams(err error) *Error {
	return &Error{Code: codeInvalidParams, Message: err.Error()}
}

func errInternal(err error) *Error {
	return &Error{Code: codeInternalError, Message: err.Error()}
}

type method func(params json.RawMessage) (any, *Error)

// Handler dispatches marketplace JSON-RPC methods.
type Handler struct {
	engine   *engine.Engine
	registry *registry.InMemory
	history  *history.Store
	methods  map[string]method
}

// NewHandler initializes a Handler. history may be nil when trade history
// is disabled.
func NewHandler(eng *engine.Engine, reg *registry.InMemory, hist *history.Store) *Handler {
	h := &Handler{
		engine:   eng,
		registry: reg,
		history:  hist,
	}

	h.methods = map[string]method{
		// Operations
		"submit":      h.handleSubmit,
		"createOffer": h.handleCreateOffer,
		"bid":         h.handleBid,
		"buy":         h.handleBuy,
		"claimAsset":  h.handleClaimAsset,
		"cancelOffer": h.handleCancelOffer,

		// Queries
		"getOffer":            h.handleGetOffer,
		"getWinner":           h.handleGetWinner,
		"getCurrentBidAmount": h.handleGetCurrentBidAmount,
		"getTotalOffers":      h.handleGetTotalOffers,
		"getActiveOfferId":    h.handleGetActiveOfferID,
		"balance":             h.handleBalance,
		"fund":                h.handleFund,

		// Registry
		"mint":     h.handleMint,
		"approve":  h.handleApprove,
		"ownerOf":  h.handleOwnerOf,
		"tokenURI": h.handleTokenURI,

		// History
		"tradesByAsset": h.handleTradesByAsset,
		"tradesByParty": h.handleTradesByParty,
	}

	return h
}

// Handle dispatches a JSON-RPC method to the appropriate handler.
func (h *Handler) Handle(name string, params json.RawMessage) (any, *Error) {
	m, exists := h.methods[name]
	if !exists {
		return nil, &Error{Code: codeMethodNotFound, Message: fmt.Sprintf("method %s not found", name)}
	}
	return m(params)
}

// applyView is how operation outcomes appear on the wire.
type applyView struct {
	Result  string `json:"result"`
	Applied bool   `json:"applied"`
	OfferID uint64 `json:"offerId,omitempty"`
	Message string `json:"message"`
}

func viewOfApply(result engine.ApplyResult) applyView {
	return applyView{
		Result:  result.Result.String(),
		Applied: result.Applied,
		OfferID: result.OfferID,
		Message: result.Message,
	}
}

// offerView is how offers appear on the wire.
type offerView struct {
	ID            uint64 `json:"id"`
	AssetContract string `json:"assetContract"`
	AssetID       uint64 `json:"assetId"`
	Seller        string `json:"seller"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Price         uint64 `json:"price,omitempty"`
	ReservePrice  uint64 `json:"reservePrice,omitempty"`
	StartTime     int64  `json:"startTime,omitempty"`
	EndTime       int64  `json:"endTime,omitempty"`
	HighestBid    uint64 `json:"highestBid,omitempty"`
	HighestBidder string `json:"highestBidder,omitempty"`
}

func viewOfOffer(o *state.Offer) offerView {
	v := offerView{
		ID:            o.ID,
		AssetContract: o.AssetContract,
		AssetID:       o.AssetID,
		Seller:        o.Seller,
		Kind:          o.Kind.String(),
		Status:        o.Status.String(),
		Price:         o.Price,
		ReservePrice:  o.ReservePrice,
		HighestBid:    o.HighestBid,
		HighestBidder: o.HighestBidder,
	}
	if o.Kind.HasAuction() {
		v.StartTime = o.StartTime
		v.EndTime = o.EndTime()
	}
	return v
}

func decode[T any](params json.RawMessage) (*T, *Error) {
	var p T
	if len(params) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errInvalidParams(err)
	}
	return &p, nil
}

// handleSubmit accepts a raw operation object, the same shape the engine
// serializes, and applies it.
func (h *Handler) handleSubmit(params json.RawMessage) (any, *Error) {
	op, err := engine.FromJSON(params)
	if err != nil {
		return nil, errInvalidParams(err)
	}
	return viewOfApply(h.engine.Apply(op)), nil
}

func (h *Handler) handleCreateOffer(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Account       string `json:"account"`
		AssetContract string `json:"assetContract"`
		AssetID       uint64 `json:"assetId"`
		Kind          string `json:"kind"`
		Price         uint64 `json:"price"`
		ReservePrice  uint64 `json:"reservePrice"`
		StartTime     int64  `json:"startTime"`
		Duration      int64  `json:"duration"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	op := &engine.OfferCreate{
		BaseOp:        *engine.NewBaseOp(engine.TypeOfferCreate, p.Account),
		AssetContract: p.AssetContract,
		AssetID:       p.AssetID,
		Kind:          p.Kind,
		Price:         p.Price,
		ReservePrice:  p.ReservePrice,
		StartTime:     p.StartTime,
		Duration:      p.Duration,
	}
	return viewOfApply(h.engine.Apply(op)), nil
}

func (h *Handler) handleBid(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Account string `json:"account"`
		OfferID uint64 `json:"offerId"`
		Amount  uint64 `json:"amount"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return viewOfApply(h.engine.Apply(engine.NewBid(p.Account, p.OfferID, p.Amount))), nil
}

func (h *Handler) handleBuy(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Account string `json:"account"`
		OfferID uint64 `json:"offerId"`
		Amount  uint64 `json:"amount"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return viewOfApply(h.engine.Apply(engine.NewBuy(p.Account, p.OfferID, p.Amount))), nil
}

func (h *Handler) handleClaimAsset(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Account string `json:"account"`
		OfferID uint64 `json:"offerId"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return viewOfApply(h.engine.Apply(engine.NewAssetClaim(p.Account, p.OfferID))), nil
}

func (h *Handler) handleCancelOffer(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Account string `json:"account"`
		OfferID uint64 `json:"offerId"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return viewOfApply(h.engine.Apply(engine.NewOfferCancel(p.Account, p.OfferID))), nil
}

func (h *Handler) handleGetOffer(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		OfferID uint64 `json:"offerId"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	offer, result := h.engine.GetOffer(p.OfferID)
	if !result.IsSuccess() {
		return map[string]any{"result": result.String(), "message": result.Message()}, nil
	}
	return map[string]any{"result": result.String(), "offer": viewOfOffer(offer)}, nil
}

func (h *Handler) handleGetWinner(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		OfferID uint64 `json:"offerId"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	winner, result := h.engine.GetWinner(p.OfferID)
	if !result.IsSuccess() {
		return map[string]any{"result": result.String(), "message": result.Message()}, nil
	}
	return map[string]any{"result": result.String(), "winner": winner}, nil
}

func (h *Handler) handleGetCurrentBidAmount(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		OfferID uint64 `json:"offerId"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	amount, result := h.engine.GetCurrentBidAmount(p.OfferID)
	if !result.IsSuccess() {
		return map[string]any{"result": result.String(), "message": result.Message()}, nil
	}
	return map[string]any{"result": result.String(), "amount": amount}, nil
}

func (h *Handler) handleGetTotalOffers(json.RawMessage) (any, *Error) {
	total, err := h.engine.GetTotalOffers()
	if err != nil {
		return nil, errInternal(err)
	}
	return map[string]any{"total": total}, nil
}

func (h *Handler) handleGetActiveOfferID(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		AssetContract string `json:"assetContract"`
		AssetID       uint64 `json:"assetId"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	id, ok, err := h.engine.GetActiveOfferID(p.AssetContract, p.AssetID)
	if err != nil {
		return nil, errInternal(err)
	}
	return map[string]any{"active": ok, "offerId": id}, nil
}

func (h *Handler) handleBalance(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Account string `json:"account"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	balance, err := h.engine.Balance(p.Account)
	if err != nil {
		return nil, errInternal(err)
	}
	return map[string]any{"account": p.Account, "balance": balance}, nil
}

func (h *Handler) handleFund(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Account string `json:"account"`
		Amount  uint64 `json:"amount"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := h.engine.Deposit(p.Account, p.Amount); err != nil {
		return nil, errInvalidParams(err)
	}
	balance, err := h.engine.Balance(p.Account)
	if err != nil {
		return nil, errInternal(err)
	}
	return map[string]any{"account": p.Account, "balance": balance}, nil
}

func (h *Handler) handleMint(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Contract string `json:"contract"`
		Owner    string `json:"owner"`
		URI      string `json:"uri"`
		Price    uint64 `json:"price"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if p.Contract == "" || p.Owner == "" {
		return nil, errInvalidParams(fmt.Errorf("contract and owner are required"))
	}

	id := h.registry.Mint(p.Contract, p.Owner, p.URI, p.Price)
	return map[string]any{"assetId": id, "price": p.Price}, nil
}

func (h *Handler) handleApprove(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Contract string `json:"contract"`
		AssetID  uint64 `json:"assetId"`
		Owner    string `json:"owner"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	operator := h.engine.Config().Operator
	if err := h.registry.Approve(p.Contract, p.AssetID, p.Owner, operator); err != nil {
		return nil, errInvalidParams(err)
	}
	return map[string]any{"approved": true, "operator": operator}, nil
}

func (h *Handler) handleOwnerOf(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Contract string `json:"contract"`
		AssetID  uint64 `json:"assetId"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	owner, err := h.registry.OwnerOf(p.Contract, p.AssetID)
	if err != nil {
		return nil, errInvalidParams(err)
	}
	return map[string]any{"owner": owner}, nil
}

func (h *Handler) handleTokenURI(params json.RawMessage) (any, *Error) {
	p, rpcErr := decode[struct {
		Contract string `json:"contract"`
		AssetID  uint64 `json:"assetId"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	uri, err := h.registry.TokenURI(p.Contract, p.AssetID)
	if err != nil {
		return nil, errInvalidParams(err)
	}
	return map[string]any{"uri": uri}, nil
}

func (h *Handler) handleTradesByAsset(params json.RawMessage) (any, *Error) {
	if h.history == nil {
		return nil, &Error{Code: codeMethodNotFound, Message: "trade history is disabled"}
	}
	p, rpcErr := decode[struct {
		AssetContract string `json:"assetContract"`
		AssetID       uint64 `json:"assetId"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	trades, err := h.history.TradesByAsset(ctx, p.AssetContract, p.AssetID)
	if err != nil {
		return nil, errInternal(err)
	}
	return map[string]any{"trades": trades}, nil
}

func (h *Handler) handleTradesByParty(params json.RawMessage) (any, *Error) {
	if h.history == nil {
		return nil, &Error{Code: codeMethodNotFound, Message: "trade history is disabled"}
	}
	p, rpcErr := decode[struct {
		Party string `json:"party"`
	}](params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	trades, err := h.history.TradesByParty(ctx, p.Party)
	if err != nil {
		return nil, errInternal(err)
	}
	return map[string]any{"trades": trades}, nil
}
