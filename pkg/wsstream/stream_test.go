package wsstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	Seq int `json:"seq"`
}

func serve(t *testing.T, handle func(*Stream)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handle(New(context.Background(), conn))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStream_SendAndClose(t *testing.T) {
	t.Parallel()

	url := serve(t, func(s *Stream) {
		for i := 1; i <= 3; i++ {
			_ = s.Send(message{Seq: i})
		}
		s.Close(websocket.CloseNormalClosure, "done")
		assert.ErrorIs(t, s.Send(message{Seq: 4}), ErrClosed)
		// 重复关闭无副作用
		s.Close(websocket.CloseInternalServerErr, "again")
	})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 1; i <= 3; i++ {
		var msg message
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, i, msg.Seq)
	}

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	assert.Equal(t, "done", closeErr.Text)
}

func TestStream_ClientDisconnectCancelsContext(t *testing.T) {
	t.Parallel()

	cancelled := make(chan struct{})
	url := serve(t, func(s *Stream) {
		select {
		case <-s.Context().Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
		}
		s.Close(websocket.CloseNormalClosure, "")
	})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("stream context was not cancelled after client disconnect")
	}
}
