package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/player-auction-backend/internal/engine"
	"github.com/DoyleJ11/player-auction-backend/internal/lobby"
	"github.com/DoyleJ11/player-auction-backend/internal/store"
)

var (
	ErrClosed    = errors.New("hub closed")
	ErrCodeTaken = errors.New("tournament code already in use")
)

type HubMsg interface{ isHubMsg() }

// CreateLobby starts a lobby for State under Code and writes its first
// local snapshot. A code that is already live is refused with ErrCodeTaken.
// If only the snapshot fails, Lobby is set and Err is the persistence error.
type CreateLobby struct {
	Code     string
	State    engine.State
	Version  int
	RemoteID string
	Reply    chan LobbyResult
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// EnsureLobby returns the running lobby for Code, restoring it from its
// local snapshot when it is not in memory. Lobby is nil when neither exists.
type EnsureLobby struct {
	Code  string
	Reply chan LobbyResult
}

type LobbyResult struct {
	Lobby *lobby.Lobby
	Err   error
}

// RemoveLobby stops the lobby. With Purge the local snapshot goes too.
type RemoveLobby struct {
	Code  string
	Purge bool
	Reply chan error // optional
}

// ShutdownHub stops every lobby and closes Done once they have flushed.
type ShutdownHub struct {
	Done chan struct{} // optional
}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// LocalStore is the part of store.LocalStore the hub needs.
type LocalStore interface {
	lobby.SnapshotSaver
	Load(code string) (store.Snapshot, bool, error)
	Delete(code string) error
	Codes() ([]string, error)
}

type Options struct {
	Local  LocalStore // nil disables crash recovery
	Remote store.RemoteStore
	Sync   store.SyncOptions
	Rand   engine.RandSource
	Log    *zap.Logger
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     opts.Log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if h.live(msg.Code) != nil {
					msg.Reply <- LobbyResult{Err: fmt.Errorf("%w: %s", ErrCodeTaken, msg.Code)}
					break
				}
				err := h.saveInitial(msg)
				msg.Reply <- LobbyResult{Lobby: h.start(msg.Code, msg.State, msg.Version, msg.RemoteID), Err: err}

			case GetLobby:
				msg.Reply <- h.live(msg.Code) // May be nil

			case EnsureLobby:
				lb, err := h.ensure(msg.Code)
				msg.Reply <- LobbyResult{Lobby: lb, Err: err}

			case RemoveLobby:
				var err error
				if lb := h.lobbies[msg.Code]; lb != nil {
					_ = lb.Send(context.Background(), lobby.Shutdown{})
					<-lb.Done()
					delete(h.lobbies, msg.Code)
				}
				if msg.Purge && h.opts.Local != nil {
					err = h.opts.Local.Delete(msg.Code)
				}
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case ShutdownHub:
				h.shutdown()
				if msg.Done != nil {
					close(msg.Done)
				}
				return
			}
		}
	}
}

// live returns the running lobby for code, forgetting one that has stopped.
func (h *Hub) live(code string) *lobby.Lobby {
	lb := h.lobbies[code]
	if lb == nil {
		return nil
	}
	select {
	case <-lb.Done():
		delete(h.lobbies, code)
		return nil
	default:
		return lb
	}
}

func (h *Hub) ensure(code string) (*lobby.Lobby, error) {
	if lb := h.live(code); lb != nil {
		return lb, nil
	}
	if h.opts.Local == nil {
		return nil, nil
	}
	snap, ok, err := h.opts.Local.Load(code)
	if err != nil || !ok {
		return nil, err
	}
	h.log.Info("lobby restored from snapshot", zap.String("code", code), zap.Int("version", snap.Version))
	return h.start(code, snap.State(), snap.Version, snap.ID), nil
}

// saveInitial stores a new lobby's state so it survives a crash before
// its first command and its code counts as taken.
func (h *Hub) saveInitial(msg CreateLobby) error {
	if h.opts.Local == nil {
		return nil
	}
	snap := store.FromState(msg.Code, msg.Version, msg.State, time.Now().UTC())
	snap.ID = msg.RemoteID
	if err := h.opts.Local.Save(snap); err != nil {
		h.log.Error("initial snapshot failed", zap.String("code", msg.Code), zap.Error(err))
		return err
	}
	return nil
}

func (h *Hub) start(code string, state engine.State, version int, remoteID string) *lobby.Lobby {
	lb := lobby.NewLobby(h.ctx, code, state, lobby.Options{
		Version:  version,
		RemoteID: remoteID,
		Local:    h.opts.Local,
		Remote:   h.opts.Remote,
		Sync:     h.opts.Sync,
		Rand:     h.opts.Rand,
		Log:      h.log,
	})
	h.lobbies[code] = lb
	return lb
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		_ = lb.Send(context.Background(), lobby.Shutdown{})
	}
	for code, lb := range h.lobbies {
		<-lb.Done()
		delete(h.lobbies, code)
	}
	h.cancel()
}

// Ensure is EnsureLobby as a call.
func (h *Hub) Ensure(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan LobbyResult, 1)
	if err := h.send(ctx, EnsureLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.Lobby, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Create is CreateLobby as a call. A non-nil lobby may come back with a
// persistence error.
func (h *Hub) Create(ctx context.Context, msg CreateLobby) (*lobby.Lobby, error) {
	msg.Reply = make(chan LobbyResult, 1)
	if err := h.send(ctx, msg); err != nil {
		return nil, err
	}
	select {
	case r := <-msg.Reply:
		return r.Lobby, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Remove is RemoveLobby as a call.
func (h *Hub) Remove(ctx context.Context, code string, purge bool) error {
	reply := make(chan error, 1)
	if err := h.send(ctx, RemoveLobby{Code: code, Purge: purge, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recover restores a lobby for every stored snapshot.
func (h *Hub) Recover(ctx context.Context) (int, error) {
	if h.opts.Local == nil {
		return 0, nil
	}
	codes, err := h.opts.Local.Codes()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, code := range codes {
		lb, err := h.Ensure(ctx, code)
		if err != nil {
			h.log.Error("recover lobby", zap.String("code", code), zap.Error(err))
			continue
		}
		if lb != nil {
			n++
		}
	}
	return n, nil
}

// Shutdown stops every lobby and waits for their final remote sync.
func (h *Hub) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	if err := h.send(ctx, ShutdownHub{Done: done}); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case <-h.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
