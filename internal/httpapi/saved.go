package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/player-auction-backend/internal/engine"
	"github.com/DoyleJ11/player-auction-backend/internal/hub"
	"github.com/DoyleJ11/player-auction-backend/internal/store"
)

var errRemoteDisabled = errors.New("remote store is not configured")

// SavedStore is the remote list of saved tournaments.
type SavedStore interface {
	List(ctx context.Context) ([]store.Summary, error)
	Get(ctx context.Context, id string) (store.Snapshot, error)
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

func ListSaved(saved SavedStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if saved == nil {
			writeError(w, errRemoteDisabled)
			return
		}
		list, err := saved.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []store.Summary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetSaved(saved SavedStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if saved == nil {
			writeError(w, errRemoteDisabled)
			return
		}
		snap, err := saved.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func DeleteSaved(saved SavedStore) http.HandlerFunc {
	return savedAction(saved, SavedStore.SoftDelete)
}

func RestoreSaved(saved SavedStore) http.HandlerFunc {
	return savedAction(saved, SavedStore.Restore)
}

func savedAction(saved SavedStore, act func(SavedStore, context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if saved == nil {
			writeError(w, errRemoteDisabled)
			return
		}
		if err := act(saved, r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// OpenSaved loads a saved tournament into a lobby so it can be run again.
// It keeps its old code unless another tournament is using it.
func OpenSaved(h *hub.Hub, saved SavedStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if saved == nil {
			writeError(w, errRemoteDisabled)
			return
		}
		snap, err := saved.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}

		code := snap.Code
		if code != "" {
			lb, err := h.Ensure(r.Context(), code)
			if err != nil {
				writeError(w, err)
				return
			}
			if lb != nil {
				view, err := lobbyState(r.Context(), lb)
				if err != nil {
					writeError(w, err)
					return
				}
				if view.RemoteID == snap.ID {
					// Already open; the running lobby is newer.
					writeJSON(w, http.StatusOK, tournamentResponse{Code: code, Version: view.Version, RemoteID: view.RemoteID, View: engine.NewView(view.State)})
					return
				}
				code = ""
			}
		}

		state := snap.State()
		lb, saveErr := openLobby(r.Context(), h, log, hub.CreateLobby{Code: code, State: state, Version: snap.Version, RemoteID: snap.ID})
		if lb == nil {
			writeError(w, saveErr)
			return
		}
		log.Info("saved tournament opened", zap.String("code", lb.Code()), zap.String("id", snap.ID))
		writeJSON(w, http.StatusOK, tournamentResponse{
			Code:     lb.Code(),
			Version:  snap.Version,
			RemoteID: snap.ID,
			View:     engine.NewView(state),
			Error:    persistenceError(saveErr),
		})
	}
}
