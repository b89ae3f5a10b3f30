package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/player-auction-backend/internal/engine"
	"github.com/DoyleJ11/player-auction-backend/internal/hub"
	"github.com/DoyleJ11/player-auction-backend/internal/lobby"
	"github.com/DoyleJ11/player-auction-backend/internal/types"
)

func startServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	log := zaptest.NewLogger(t)
	h := hub.NewHub(context.Background(), hub.Options{Log: log})

	state, err := engine.NewState(engine.Setup{
		Config: engine.Config{TotalCredits: 1000, TotalPlayers: 3},
		Roster: []string{"Ana", "Ben", "Cy"},
		Teams:  []engine.TeamSetup{{Name: "Red"}, {Name: "Blue"}},
	})
	require.NoError(t, err)
	_, err = h.Create(context.Background(), hub.CreateLobby{Code: "WS0001", State: state})
	require.NoError(t, err)

	// The handler may outlive the test by a moment, so it logs nowhere.
	srv := httptest.NewServer(Handler(h, zap.NewNop()))
	t.Cleanup(func() {
		srv.Close()
		_ = h.Shutdown(context.Background())
	})
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMsg(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeMsg(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(raw)))
}

func TestHandler_CommandsAndErrors(t *testing.T) {
	_, url := startServer(t)

	conn, _, err := websocket.Dial(context.Background(), url+"/?code=WS0001", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	first := readMsg(t, conn)
	require.Equal(t, types.MsgStateSnapshot, first.Type)
	assert.Equal(t, 0, first.Version)
	require.NotNil(t, first.View)
	assert.Equal(t, 3, first.View.Registered)

	writeMsg(t, conn, `{"type":"PickNext"}`)
	next := readMsg(t, conn)
	require.Equal(t, types.MsgStateSnapshot, next.Type)
	assert.Equal(t, 1, next.Version)
	assert.NotEmpty(t, next.View.Spotlight)

	writeMsg(t, conn, `{"type":"UndoLast","team":0}`)
	rejected := readMsg(t, conn)
	assert.Equal(t, types.MsgError, rejected.Type)
	assert.Equal(t, "NothingToUndo", rejected.Code)

	writeMsg(t, conn, `{"type":"Bogus"}`)
	assert.Equal(t, "BadRequest", readMsg(t, conn).Code)

	writeMsg(t, conn, `not json`)
	assert.Equal(t, "BadRequest", readMsg(t, conn).Code)

	writeMsg(t, conn, `{"type":"GenerateGroups","groups":{"strategy":"manual","count":2,"assignments":[1,0]}}`)
	grouped := readMsg(t, conn)
	require.Equal(t, types.MsgStateSnapshot, grouped.Type)
	assert.Equal(t, [][]string{{"Blue"}, {"Red"}}, grouped.View.Groups)
}

func TestHandler_UnknownOrMissingCode(t *testing.T) {
	srv, _ := startServer(t)

	resp, err := http.Get(srv.URL + "/?code=NOPE00")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToLobbyMessage(t *testing.T) {
	cases := []struct {
		name string
		in   types.ClientMessage
		ok   bool
	}{
		{"sell", types.ClientMessage{Type: "SellPlayer", Team: 1, Player: "Ana", Price: 200}, true},
		{"complete", types.ClientMessage{Type: "CompleteAuction"}, true},
		{"groups without request", types.ClientMessage{Type: types.MsgGenerateGroups}, false},
		{"unknown", types.ClientMessage{Type: "LockPick"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, reply, ok := toLobbyMessage(tc.in)
			assert.Equal(t, tc.ok, ok)
			if !ok {
				return
			}
			require.NotNil(t, reply)
			if fc, isCmd := msg.(lobby.FromClient); isCmd {
				assert.Equal(t, engine.CommandType(tc.in.Type), fc.Cmd.Type)
				assert.Equal(t, tc.in.Price, fc.Cmd.Price)
			}
		})
	}
}
