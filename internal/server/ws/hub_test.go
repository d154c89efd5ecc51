package ws_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
	"github.com/lpando/marketd/internal/server/ws"
	mtx "github.com/lpando/marketd/internal/testing"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ws.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev ws.Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func TestHubBroadcastsMarketEvents(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	env := mtx.NewTestEnv(t)
	env.Engine.AddSink(hub)
	env.Fund("bob", 10_000)
	assetID := env.MintApproved("alice")

	id := env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindAuction).
		WithWindow(0, 3600))

	ev := readEvent(t, conn)
	require.Equal(t, "offerCreated", ev.Type)
	require.Equal(t, id, ev.OfferID)
	require.Equal(t, "alice", ev.Seller)

	env.SubmitOK(engine.NewBid("bob", id, 4_000))
	ev = readEvent(t, conn)
	require.Equal(t, "bidAccepted", ev.Type)
	require.Equal(t, "bob", ev.Party)
	require.Equal(t, uint64(4_000), ev.Amount)

	env.Advance(2 * time.Hour)
	env.SubmitOK(engine.NewAssetClaim("bob", id))
	ev = readEvent(t, conn)
	require.Equal(t, "offerSettled", ev.Type)
	require.Equal(t, "claim", ev.Settlement)
}

func TestHubMultipleClients(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	first := dial(t, srv)
	second := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		time.Second, 10*time.Millisecond)

	env := mtx.NewTestEnv(t)
	env.Engine.AddSink(hub)
	assetID := env.MintApproved("alice")
	env.SubmitOK(engine.NewOfferCreate("alice", mtx.Contract, assetID, state.KindFixedPrice).
		WithPrice(500))

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		require.Equal(t, "offerCreated", ev.Type)
	}

	first.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)
}
