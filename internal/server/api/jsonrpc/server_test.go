package jsonrpc_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lpando/marketd/internal/server/api/jsonrpc"
	mtx "github.com/lpando/marketd/internal/testing"
)

type rpcResponse struct {
	JsonRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	ID any `json:"id"`
}

func newTestServer(t *testing.T) (*httptest.Server, *mtx.TestEnv) {
	t.Helper()
	env := mtx.NewTestEnv(t)
	handler := jsonrpc.NewHandler(env.Engine, env.Registry, nil)
	srv := httptest.NewServer(jsonrpc.NewServer(handler, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, env
}

func call(t *testing.T, srv *httptest.Server, method string, params any) rpcResponse {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func result(t *testing.T, resp rpcResponse) map[string]any {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected rpc error")
	var m map[string]any
	require.NoError(t, json.Unmarshal(resp.Result, &m))
	return m
}

func TestFullSessionOverRPC(t *testing.T) {
	srv, _ := newTestServer(t)

	// Mint and approve through the registry methods
	minted := result(t, call(t, srv, "mint", map[string]any{
		"contract": "kitties", "owner": "alice", "uri": "ipfs://cat", "price": 4_000,
	}))
	assetID := minted["assetId"].(float64)
	require.Equal(t, float64(1), assetID)
	require.Equal(t, float64(4_000), minted["price"])

	result(t, call(t, srv, "approve", map[string]any{
		"contract": "kitties", "assetId": assetID, "owner": "alice",
	}))

	// Fund the buyer
	funded := result(t, call(t, srv, "fund", map[string]any{
		"account": "bob", "amount": 10_000,
	}))
	require.Equal(t, float64(10_000), funded["balance"])

	// List the asset
	created := result(t, call(t, srv, "createOffer", map[string]any{
		"account": "alice", "assetContract": "kitties", "assetId": assetID,
		"kind": "FixedPrice", "price": 4_000,
	}))
	require.Equal(t, "mesSUCCESS", created["result"])
	require.Equal(t, true, created["applied"])
	offerID := created["offerId"].(float64)

	// Query it back
	fetched := result(t, call(t, srv, "getOffer", map[string]any{"offerId": offerID}))
	offer := fetched["offer"].(map[string]any)
	require.Equal(t, "alice", offer["seller"])
	require.Equal(t, "FixedPrice", offer["kind"])
	require.Equal(t, float64(4_000), offer["price"])

	active := result(t, call(t, srv, "getActiveOfferId", map[string]any{
		"assetContract": "kitties", "assetId": assetID,
	}))
	require.Equal(t, true, active["active"])

	// Buy it
	bought := result(t, call(t, srv, "buy", map[string]any{
		"account": "bob", "offerId": offerID, "amount": 4_000,
	}))
	require.Equal(t, "mesSUCCESS", bought["result"])

	owner := result(t, call(t, srv, "ownerOf", map[string]any{
		"contract": "kitties", "assetId": assetID,
	}))
	require.Equal(t, "bob", owner["owner"])

	balance := result(t, call(t, srv, "balance", map[string]any{"account": "alice"}))
	require.Equal(t, float64(4_000), balance["balance"])

	uri := result(t, call(t, srv, "tokenURI", map[string]any{
		"contract": "kitties", "assetId": assetID,
	}))
	require.Equal(t, "ipfs://cat", uri["uri"])
}

func TestRejectionsComeBackInResult(t *testing.T) {
	srv, env := newTestServer(t)
	assetID := env.MintApproved("alice")

	// Bid on a fixed-price listing is a rejection, not an RPC error
	created := result(t, call(t, srv, "createOffer", map[string]any{
		"account": "alice", "assetContract": mtx.Contract, "assetId": assetID,
		"kind": "FixedPrice", "price": 1_000,
	}))
	offerID := created["offerId"].(float64)

	resp := result(t, call(t, srv, "bid", map[string]any{
		"account": "bob", "offerId": offerID, "amount": 2_000,
	}))
	require.Equal(t, "mecNOT_IN_AUCTION", resp["result"])
	require.Equal(t, false, resp["applied"])

	missing := result(t, call(t, srv, "getOffer", map[string]any{"offerId": 999}))
	require.Equal(t, "mecNOT_FOUND", missing["result"])
}

func TestSubmitRawOperation(t *testing.T) {
	srv, env := newTestServer(t)
	assetID := env.MintApproved("alice")

	resp := result(t, call(t, srv, "submit", map[string]any{
		"Account":       "alice",
		"OperationType": "OfferCreate",
		"AssetContract": mtx.Contract,
		"AssetID":       assetID,
		"Kind":          "Auction",
		"Duration":      3600,
	}))
	require.Equal(t, "mesSUCCESS", resp["result"])
}

func TestRPCErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := call(t, srv, "teleport", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32601, resp.Error.Code)

	resp = call(t, srv, "tradesByAsset", map[string]any{"assetContract": "kitties"})
	require.NotNil(t, resp.Error, "history disabled")

	// Non-POST is rejected outright
	httpResp, err := http.Get(srv.URL)
	require.NoError(t, err)
	httpResp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, httpResp.StatusCode)
}
