package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"candleservice/internal/aggregator"
	"candleservice/pkg/wsfeed"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// feedServer replays frames to every client after the subscription message,
// then closes the stream normally.
func feedServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		// wait for the client's close reply
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSSource(t *testing.T) {
	srv := feedServer(t,
		`{"op":"subscribe","success":true}`,
		`{"topic":"ticks","data":[{"time":"2024-03-01T09:00:00Z","code":"A","price":5},{"time":"2024-03-01T09:10:00Z","code":"A","price":"1"}]}`,
		`{"time":"2024-03-01T09:20:00Z","code":"A","price":9}`,
		`not json`,
		`[{"time":1709285400,"code":"A","price":3}]`,
	)

	src := &WSSource{
		URL:     wsURL(srv),
		Capture: 5 * time.Second,
		Options: wsfeed.Options{Subscribe: []byte(`{"op":"subscribe"}`)},
	}
	idx := Load(context.Background(), src, Options{}, zap.NewNop())
	require.Equal(t, 4, idx.Len())

	c, res := aggregator.New(aggregator.FallbackNone).Query(idx, "A", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, aggregator.ResolutionExact, res)
	assert.Equal(t, aggregator.Candle{Open: 5, High: 9, Low: 1, Close: 3}, c)
}

func TestWSSourceMaxRows(t *testing.T) {
	srv := feedServer(t,
		`[{"time":"2024-03-01T09:00:00Z","code":"A","price":1},{"time":"2024-03-01T09:01:00Z","code":"A","price":2},{"time":"2024-03-01T09:02:00Z","code":"A","price":3}]`,
	)

	src := &WSSource{URL: wsURL(srv), MaxRows: 2, Options: wsfeed.Options{Subscribe: []byte("sub")}}
	idx := Load(context.Background(), src, Options{}, zap.NewNop())
	assert.Equal(t, 2, idx.Len())
}

func TestWSSourceUnreachable(t *testing.T) {
	src := &WSSource{URL: "ws://127.0.0.1:1/feed", Options: wsfeed.Options{DialTimeout: time.Second}}
	idx := Load(context.Background(), src, Options{}, zap.NewNop())
	assert.Equal(t, 0, idx.Len())
}
