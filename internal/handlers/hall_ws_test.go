package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/auth"
	"github.com/jason-s-yu/bingo/internal/game"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestServer runs a hall behind the full router.
func newTestServer(t *testing.T) (*httptest.Server, *game.Hall) {
	t.Helper()
	require.NoError(t, auth.Init())

	logger := quietLogger()
	hall := game.NewHall(game.HallOptions{Logger: logger})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hall.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(NewRouter(logger, hall, GatewayOptions{}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv, hall
}

func wsURL(srv *httptest.Server, query string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/hall/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func dial(t *testing.T, url string, protocols ...string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: protocols})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

// readEvent returns the next event, skipping the once-a-second countdown.
func readEvent(t *testing.T, c *websocket.Conn) game.GameEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		typ, data, err := c.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, websocket.MessageText, typ)
		var ev game.GameEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type != game.EventTimerUpdate {
			return ev
		}
	}
}

func writeRaw(t *testing.T, c *websocket.Conn, msg string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(msg)))
}

func TestHallWSGuestFlow(t *testing.T) {
	srv, hall := newTestServer(t)
	c := dial(t, wsURL(srv, ""), Subprotocol)
	assert.Equal(t, Subprotocol, c.Subprotocol())

	ev := readEvent(t, c)
	require.Equal(t, game.EventInit, ev.Type)
	assert.NotZero(t, ev.SessionID)
	assert.Equal(t, models.PhaseSelection, ev.Phase)

	// garbage is dropped without closing the connection
	writeRaw(t, c, `{not json`)
	writeRaw(t, c, `{"type":"ping"}`)
	assert.Equal(t, game.EventPong, readEvent(t, c).Type)

	writeRaw(t, c, `{"type":"set_username","username":"Tigist"}`)
	writeRaw(t, c, `{"type":"select_card","cardId":"17"}`)
	writeRaw(t, c, `{"type":"confirm_card","cardId":17}`)
	ack := readEvent(t, c)
	assert.Equal(t, game.EventCardConfirmed, ack.Type)
	assert.Equal(t, 17, ack.CardID)

	st, err := hall.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.PlayerInfo{{SessionID: ev.SessionID, Username: "Tigist", CardID: 17}}, st.Players)
}

func TestHallWSSubprotocolIsOptional(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, wsURL(srv, ""))
	assert.Equal(t, "", c.Subprotocol())
	assert.Equal(t, game.EventInit, readEvent(t, c).Type)
}

func TestHallWSRejectsForeignSubprotocol(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, wsURL(srv, ""), "chat")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestHallWSVerifiedIdentity(t *testing.T) {
	srv, _ := newTestServer(t)
	token, err := auth.CreateJWT(uuid.New(), "dawit")
	require.NoError(t, err)

	c := dial(t, wsURL(srv, "token="+token), Subprotocol)
	require.Equal(t, game.EventInit, readEvent(t, c).Type)

	writeRaw(t, c, `{"type":"set_username","username":"someone else"}`)
	rej := readEvent(t, c)
	assert.Equal(t, game.EventActionRejected, rej.Type)
	assert.Equal(t, game.MsgSetUsername, rej.Action)
}

func TestHallWSRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(srv, ""), &websocket.DialOptions{
		HTTPHeader: http.Header{"Cookie": []string{authCookieName + "=garbage"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHallWSDisconnectRemovesSession(t *testing.T) {
	srv, hall := newTestServer(t)
	c := dial(t, wsURL(srv, ""))
	readEvent(t, c)

	st, err := hall.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, st.Connected)

	require.NoError(t, c.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool {
		st, err := hall.State(context.Background())
		return err == nil && st.Connected == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExtractCookieToken(t *testing.T) {
	assert.Equal(t, "abc", extractCookieToken("auth_token=abc", "auth_token"))
	assert.Equal(t, "abc", extractCookieToken("theme=dark; auth_token=abc; lang=am", "auth_token"))
	assert.Equal(t, "", extractCookieToken("other_auth_token=abc", "auth_token"))
	assert.Equal(t, "", extractCookieToken("", "auth_token"))
}
