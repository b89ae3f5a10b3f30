package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/player-auction-backend/internal/engine"
	"github.com/DoyleJ11/player-auction-backend/internal/hub"
	"github.com/DoyleJ11/player-auction-backend/internal/lobby"
	"github.com/DoyleJ11/player-auction-backend/internal/store"
	"github.com/DoyleJ11/player-auction-backend/internal/teamgroup"
)

const (
	codeLength   = 6
	maxBodyBytes = 1 << 20
	replyTimeout = 5 * time.Second
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type tournamentResponse struct {
	Code     string         `json:"code"`
	Version  int            `json:"version"`
	RemoteID string         `json:"remoteId,omitempty"`
	View     engine.View    `json:"view"`
	Events   []engine.Event `json:"events,omitempty"`
	Error    *errorBody     `json:"error,omitempty"` // tournament opened, but not stored locally
}

// CreateTournament validates a setup and opens a lobby under a fresh code.
func CreateTournament(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var setup engine.Setup
		if !decodeJSON(w, r, &setup) {
			return
		}
		state, err := engine.NewState(setup)
		if err != nil {
			writeError(w, err)
			return
		}

		lb, saveErr := openLobby(r.Context(), h, log, hub.CreateLobby{State: state})
		if lb == nil {
			writeError(w, saveErr)
			return
		}
		log.Info("tournament created", zap.String("code", lb.Code()), zap.String("name", state.Name), zap.Int("teams", len(state.Teams)))

		view, err := lobbyState(r.Context(), lb)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tournamentResponse{
			Code:    lb.Code(),
			Version: view.Version,
			View:    engine.NewView(view.State),
			Error:   persistenceError(saveErr),
		})
	}
}

// openLobby starts a lobby under msg.Code, or under a fresh code when that
// is empty or taken. A lobby returned with an error is running but was not
// stored locally.
func openLobby(ctx context.Context, h *hub.Hub, log *zap.Logger, msg hub.CreateLobby) (*lobby.Lobby, error) {
	for {
		if msg.Code == "" {
			c, err := freeCode(ctx, h, log)
			if err != nil {
				return nil, err
			}
			msg.Code = c
		}
		lb, err := h.Create(ctx, msg)
		if !errors.Is(err, hub.ErrCodeTaken) {
			return lb, err
		}
		log.Debug("code taken, regenerating", zap.String("code", msg.Code))
		msg.Code = ""
	}
}

func persistenceError(err error) *errorBody {
	if err == nil {
		return nil
	}
	return &errorBody{Code: engine.CodeOf(err), Error: err.Error()}
}

// freeCode draws codes until one is neither running nor stored locally.
func freeCode(ctx context.Context, h *hub.Hub, log *zap.Logger) (string, error) {
	for {
		c, err := GenerateCode()
		if err != nil {
			return "", err
		}
		lb, err := h.Ensure(ctx, c)
		if err != nil {
			return "", err
		}
		if lb == nil {
			return c, nil
		}
		log.Debug("collision on code, regenerating", zap.String("code", c))
	}
}

func GetTournament(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, ok := findLobby(w, r, h)
		if !ok {
			return
		}
		view, err := lobbyState(r.Context(), lb)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tournamentResponse{
			Code:     view.Code,
			Version:  view.Version,
			RemoteID: view.RemoteID,
			View:     engine.NewView(view.State),
		})
	}
}

// CloseTournament stops the lobby and drops its local snapshot. The remote
// copy, if any, stays in the saved list.
func CloseTournament(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Remove(r.Context(), chi.URLParam(r, "code"), true); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ApplyCommand(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd engine.Command
		if !decodeJSON(w, r, &cmd) {
			return
		}
		lb, ok := findLobby(w, r, h)
		if !ok {
			return
		}
		reply := make(chan lobby.Result, 1)
		writeResult(w, r, lb, lobby.FromClient{Cmd: cmd, Reply: reply}, reply)
	}
}

func GenerateGroups(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req teamgroup.Request
		if !decodeJSON(w, r, &req) {
			return
		}
		lb, ok := findLobby(w, r, h)
		if !ok {
			return
		}
		reply := make(chan lobby.Result, 1)
		writeResult(w, r, lb, lobby.GenerateGroups{Request: req, Reply: reply}, reply)
	}
}

type analyzeRequest struct {
	TotalCredits   int           `json:"totalCredits"`
	BasePrice      int           `json:"basePrice"`
	PlayersPerTeam int           `json:"playersPerTeam"`
	Teams          []engine.Team `json:"teams"`
}

// Analyze labels each posted team's strategy. The payload may be wrapped
// in "auctionData".
func Analyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		analyzeRequest
		AuctionData *analyzeRequest `json:"auctionData"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	req := body.analyzeRequest
	if body.AuctionData != nil {
		req = *body.AuctionData
	}

	cfg := engine.Config{TotalCredits: req.TotalCredits, BasePrice: req.BasePrice, PlayersPerTeam: req.PlayersPerTeam}
	results := make([]engine.Analysis, len(req.Teams))
	for i, t := range req.Teams {
		results[i] = engine.Analyze(cfg, t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func findLobby(w http.ResponseWriter, r *http.Request, h *hub.Hub) (*lobby.Lobby, bool) {
	code := chi.URLParam(r, "code")
	lb, err := h.Ensure(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if lb == nil {
		writeError(w, fmt.Errorf("%w: %s", store.ErrNotFound, code))
		return nil, false
	}
	return lb, true
}

func lobbyState(ctx context.Context, lb *lobby.Lobby) (lobby.View, error) {
	reply := make(chan lobby.View, 1)
	if err := lb.Send(ctx, lobby.GetState{Reply: reply}); err != nil {
		return lobby.View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return lobby.View{}, ctx.Err()
	}
}

func writeResult(w http.ResponseWriter, r *http.Request, lb *lobby.Lobby, msg lobby.Msg, reply chan lobby.Result) {
	ctx, cancel := context.WithTimeout(r.Context(), replyTimeout)
	defer cancel()
	if err := lb.Send(ctx, msg); err != nil {
		writeError(w, err)
		return
	}

	var res lobby.Result
	select {
	case res = <-reply:
	case <-ctx.Done():
		writeError(w, ctx.Err())
		return
	}
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, tournamentResponse{Code: lb.Code(), Version: res.Version, View: res.View, Events: res.Events})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BadRequest", Error: err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// writeError maps engine kinds and store lookups onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := engine.CodeOf(err)
	kind, _ := engine.KindOf(err)

	switch {
	case kind == engine.KindValidation:
		status = http.StatusUnprocessableEntity
	case kind == engine.KindState:
		status = http.StatusConflict
	case kind == engine.KindPersistence:
		status = http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "NotFound"
	case errors.Is(err, store.ErrDeleted):
		status, code = http.StatusGone, "Deleted"
	case errors.Is(err, errRemoteDisabled):
		status, code = http.StatusServiceUnavailable, "RemoteDisabled"
	case errors.Is(err, hub.ErrCodeTaken):
		status, code = http.StatusConflict, "CodeTaken"
	case errors.Is(err, lobby.ErrClosed), errors.Is(err, hub.ErrClosed):
		status, code = http.StatusServiceUnavailable, "Closed"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "Timeout"
	}
	if code == "" {
		code = "Internal"
	}
	writeJSON(w, status, errorBody{Code: code, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
