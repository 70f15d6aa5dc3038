// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func startRelayerServer(t *testing.T, push func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var sub wireMessage
		require.NoError(t, conn.ReadJSON(&sub))
		require.Equal(t, "monitor", sub.Event)

		push(conn)
		time.Sleep(50 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSource_PublishesValidMonitorPush(t *testing.T) {
	url := startRelayerServer(t, func(conn *websocket.Conn) {
		require.NoError(t, conn.WriteJSON(wireMessage{
			Event: "monitor",
			Data:  []byte(`{"chainId":"1","blockNumber":42,"blockHash":"0xabc","timestamp":1700000000}`),
		}))
	})

	src := NewSource("1", url, time.Hour, log.Root())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go src.Run(ctx)

	select {
	case block := <-src.Blocks():
		require.Equal(t, uint64(42), block.BlockNumber)
		require.Equal(t, int64(1700000000), block.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("no block published")
	}
}

func TestSource_RejectsInvalidMonitorPush(t *testing.T) {
	url := startRelayerServer(t, func(conn *websocket.Conn) {
		require.NoError(t, conn.WriteJSON(wireMessage{
			Event: "monitor",
			Data:  []byte(`{"chainId":"1","blockNumber":0,"timestamp":0}`),
		}))
	})

	src := NewSource("1", url, time.Hour, log.Root())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go src.Run(ctx)

	select {
	case <-src.Blocks():
		t.Fatal("should not publish a payload failing schema validation")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSource_IgnoresUnknownEventType(t *testing.T) {
	url := startRelayerServer(t, func(conn *websocket.Conn) {
		require.NoError(t, conn.WriteJSON(wireMessage{Event: "ping"}))
		require.NoError(t, conn.WriteJSON(wireMessage{
			Event: "monitor",
			Data:  []byte(`{"chainId":"1","blockNumber":7,"blockHash":"0xdef","timestamp":1700000001}`),
		}))
	})

	src := NewSource("1", url, time.Hour, log.Root())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go src.Run(ctx)

	select {
	case block := <-src.Blocks():
		require.Equal(t, uint64(7), block.BlockNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("no block published after unknown event")
	}
}

func TestNewSource_DefaultsRetryInterval(t *testing.T) {
	src := NewSource("1", "ws://example.invalid", 0, log.Root())
	require.Equal(t, 5*time.Second, src.retryInterval)
}
