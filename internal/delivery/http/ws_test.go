package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

func dialWS(t *testing.T, ts *testServer) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebsocket_SubscribeReceivesSnapshotAndUpdates(t *testing.T) {
	ts := newTestServer(t)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(wsRequest{Action: wsActionSubscribe, EventID: "e1"}))

	ack := readWS(t, conn)
	assert.Equal(t, wsTypeSubscribed, ack.Type)

	snap := readWS(t, conn)
	require.Equal(t, wsTypeAvailability, snap.Type)
	require.NotNil(t, snap.AvailableTickets)
	assert.Equal(t, int64(2), *snap.AvailableTickets)

	code, _ := do[models.Reservation](ts, http.MethodPost, "/api/v1/events/e1/reservations", &alice, nil)
	require.Equal(t, http.StatusCreated, code)

	upd := readWS(t, conn)
	require.Equal(t, wsTypeAvailability, upd.Type)
	assert.Equal(t, "e1", upd.EventID)
	assert.Equal(t, int64(1), *upd.AvailableTickets)
	assert.Greater(t, upd.Seq, snap.Seq)
}

func TestWebsocket_Errors(t *testing.T) {
	ts := newTestServer(t)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	assert.Equal(t, wsTypeError, readWS(t, conn).Type)

	require.NoError(t, conn.WriteJSON(wsRequest{Action: "shout", EventID: "e1"}))
	assert.Equal(t, wsTypeError, readWS(t, conn).Type)

	require.NoError(t, conn.WriteJSON(wsRequest{Action: wsActionSubscribe, EventID: "missing"}))
	msg := readWS(t, conn)
	assert.Equal(t, wsTypeError, msg.Type)
	assert.Equal(t, "missing", msg.EventID)
	assert.Zero(t, ts.bc.SubscriberCount("missing"))
}

func TestWebsocket_UnsubscribeAndDisconnect(t *testing.T) {
	ts := newTestServer(t)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(wsRequest{Action: wsActionSubscribe, EventID: "e1"}))
	readWS(t, conn)
	readWS(t, conn)
	assert.Equal(t, 1, ts.bc.SubscriberCount("e1"))

	require.NoError(t, conn.WriteJSON(wsRequest{Action: wsActionUnsubscribe, EventID: "e1"}))
	assert.Equal(t, wsTypeUnsubscribed, readWS(t, conn).Type)
	assert.Zero(t, ts.bc.SubscriberCount("e1"))

	require.NoError(t, conn.WriteJSON(wsRequest{Action: wsActionSubscribe, EventID: "e1"}))
	readWS(t, conn)
	readWS(t, conn)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return ts.bc.SubscriberCount("e1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocket_SubscriptionLimit(t *testing.T) {
	ts := newTestServer(t)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(wsRequest{Action: wsActionSubscribe, EventID: "e1"}))
	readWS(t, conn)
	readWS(t, conn)

	require.NoError(t, conn.WriteJSON(wsRequest{Action: wsActionSubscribe, EventID: "e2"}))
	msg := readWS(t, conn)
	assert.Equal(t, wsTypeError, msg.Type)
	assert.Equal(t, "e2", msg.EventID)
	assert.Equal(t, "too many subscriptions", msg.Message)
	assert.Zero(t, ts.bc.SubscriberCount("e2"))

	// Re-subscribing to a followed event is not a new subscription.
	require.NoError(t, conn.WriteJSON(wsRequest{Action: wsActionSubscribe, EventID: "e1"}))
	assert.Equal(t, wsTypeSubscribed, readWS(t, conn).Type)
	assert.Equal(t, 1, ts.bc.SubscriberCount("e1"))
}
