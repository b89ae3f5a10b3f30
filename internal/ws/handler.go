package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/player-auction-backend/internal/engine"
	"github.com/DoyleJ11/player-auction-backend/internal/hub"
	"github.com/DoyleJ11/player-auction-backend/internal/lobby"
	"github.com/DoyleJ11/player-auction-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
	replyTimeout = 5 * time.Second
)

// Handler joins the tournament named by ?code= and relays snapshots to the
// client and commands to the lobby. Rejections go back to the sender only.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb, err := h.Ensure(r.Context(), code)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "tournament not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("code", code), zap.String("client", clientID))

		out := make(chan lobby.Snapshot, 8)
		if err := lb.Send(r.Context(), lobby.Join{ClientID: clientID, Outbox: out}); err != nil {
			conn.Close(websocket.StatusGoingAway, "tournament closed")
			return
		}
		defer func() { _ = lb.Send(context.Background(), lobby.Leave{ClientID: clientID}) }()
		log.Debug("client joined")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. A closed outbox means the lobby dropped us or
		// stopped; either way the connection ends.
		go func() {
			defer cancel()
			for snap := range out {
				view := snap.View
				msg := types.ServerMessage{Type: types.MsgStateSnapshot, Version: snap.Version, View: &view}
				if err := writeJSON(ctx, conn, msg); err != nil {
					return
				}
			}
			conn.Close(websocket.StatusGoingAway, "tournament closed")
		}()

		// Reader loop
		for {
			readCtx, readCancel := context.WithTimeout(ctx, readTimeout)
			_, data, err := conn.Read(readCtx)
			readCancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(ctx, conn, types.ServerMessage{Type: types.MsgError, Code: "BadRequest", Error: "bad json"})
				continue
			}

			msg, reply, ok := toLobbyMessage(cm)
			if !ok {
				_ = writeJSON(ctx, conn, types.ServerMessage{Type: types.MsgError, Code: "BadRequest", Error: "unknown type"})
				continue
			}
			if err := lb.Send(ctx, msg); err != nil {
				return
			}

			select {
			case res := <-reply:
				if res.Err != nil {
					_ = writeJSON(ctx, conn, errorMessage(res))
				}
			case <-time.After(replyTimeout):
				log.Warn("lobby did not answer", zap.String("type", cm.Type))
			case <-ctx.Done():
				return
			}
		}
	}
}

func toLobbyMessage(m types.ClientMessage) (lobby.Msg, chan lobby.Result, bool) {
	reply := make(chan lobby.Result, 1)
	if m.Type == types.MsgGenerateGroups {
		if m.Groups == nil {
			return nil, nil, false
		}
		return lobby.GenerateGroups{Request: *m.Groups, Reply: reply}, reply, true
	}

	cmd := engine.Command{Type: engine.CommandType(m.Type), Team: m.Team, Player: m.Player, Price: m.Price}
	switch cmd.Type {
	case engine.CmdPickNext, engine.CmdMarkUnsold, engine.CmdStartNextRound, engine.CmdCompleteAuction,
		engine.CmdSellPlayer, engine.CmdUndoLast, engine.CmdAddPlayer, engine.CmdRemovePlayer:
		return lobby.FromClient{Cmd: cmd, Reply: reply}, reply, true
	default:
		return nil, nil, false
	}
}

func errorMessage(res lobby.Result) types.ServerMessage {
	code := engine.CodeOf(res.Err)
	if code == "" {
		code = "Internal"
	}
	return types.ServerMessage{Type: types.MsgError, Version: res.Version, Code: code, Error: res.Err.Error()}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
