package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/roberasa/legalario-transactional-api/internal/stream"
	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

func TestStreamDeliversBroadcastEvents(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, stubSummarizer{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/v1/transactions/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// Wait for the subscriber registration before broadcasting.
	require.Eventually(t, func() bool {
		return srv.hub.Count() == 1
	}, time.Second, 5*time.Millisecond)

	sent := stream.Event{
		TransactionID: "txn-1",
		Status:        transaction.StatusCompleted,
		Amount:        10,
		Type:          "deposit",
		OccurredAt:    time.Now().UTC(),
	}
	srv.hub.Broadcast(sent)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got stream.Event
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, sent.TransactionID, got.TransactionID)
	require.Equal(t, sent.Status, got.Status)
}

func TestStreamEndToEndSubmitNotifies(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, stubSummarizer{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/v1/transactions/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.hub.Count() == 1
	}, time.Second, 5*time.Millisecond)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/transactions", submitBody(t))
	require.NoError(t, err)
	req.Header.Set("Idempotency-Key", "key-ws")
	httpResp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusCreated, httpResp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt stream.Event
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, transaction.StatusCompleted, evt.Status)
	require.Equal(t, "deposit", evt.Type)
}

func TestStreamClosesWhenHubShutsDown(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, stubSummarizer{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/v1/transactions/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.hub.Count() == 1
	}, time.Second, 5*time.Millisecond)

	srv.hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}
