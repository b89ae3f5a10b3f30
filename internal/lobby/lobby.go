package lobby

import (
	"context"
	"errors"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/player-auction-backend/internal/engine"
	"github.com/DoyleJ11/player-auction-backend/internal/store"
	"github.com/DoyleJ11/player-auction-backend/internal/teamgroup"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

// Result answers a mutating message. Err is set either for a rejected
// transition (nothing changed, Version unchanged) or for a failed local
// save (the transition stands).
type Result struct {
	Version int
	Events  []engine.Event
	View    engine.View
	Err     error
}

type FromClient struct {
	Cmd   engine.Command
	Reply chan Result // optional
}

func (FromClient) isLobbyMsg() {}

type GenerateGroups struct {
	Request teamgroup.Request
	Reply   chan Result // optional
}

func (GenerateGroups) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// remoteSynced carries the remote id back from the syncer goroutine.
type remoteSynced struct{ ID string }

func (remoteSynced) isLobbyMsg() {}

// Snapshot is what clients receive after every accepted transition.
type Snapshot struct {
	Version int
	View    engine.View
}

type View struct {
	Code       string
	Version    int
	NumClients int
	RemoteID   string
	State      engine.State
}

// SnapshotSaver is the synchronous local store.
type SnapshotSaver interface {
	Save(store.Snapshot) error
}

type Options struct {
	Version  int    // version of the restored state
	RemoteID string // id of the restored state in the remote store
	Local    SnapshotSaver
	Remote   store.RemoteStore
	Sync     store.SyncOptions
	Rand     engine.RandSource
	Log      *zap.Logger
	Now      func() time.Time
}

type Lobby struct {
	code     string
	inbox    chan Msg
	state    engine.State
	version  int
	remoteID string
	clients  map[string]chan Snapshot

	local  SnapshotSaver
	syncer *store.Syncer
	rng    engine.RandSource
	log    *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLobby(parent context.Context, code string, initial engine.State, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Remote == nil {
		opts.Remote = store.NopRemote{}
	}
	if opts.Rand == nil {
		opts.Rand = engine.DefaultRandSource
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := &Lobby{
		code:     code,
		inbox:    make(chan Msg, 64), // Small buffer
		state:    initial,
		version:  opts.Version,
		remoteID: opts.RemoteID,
		clients:  make(map[string]chan Snapshot),
		local:    opts.Local,
		rng:      opts.Rand,
		log:      opts.Log.With(zap.String("code", code)),
		now:      opts.Now,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	l.syncer = store.NewSyncer(opts.Remote, opts.Sync, l.log, func(id string) {
		select {
		case l.inbox <- remoteSynced{ID: id}:
		case <-l.ctx.Done():
		}
	})

	go l.loop()
	return l
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Code() string { return l.code }

// Done is closed once the lobby has stopped and flushed its remote sync.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Send delivers m unless the lobby has stopped or ctx ends first.
func (l *Lobby) Send(ctx context.Context, m Msg) error {
	select {
	case <-l.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-l.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				l.send(msg.ClientID, msg.Outbox, Snapshot{Version: l.version, View: engine.NewView(l.state)})

			case Leave:
				// A dropped slow client is already gone and closed.
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				before := l.state.Clone()
				events, err := engine.Apply(&l.state, msg.Cmd, l.rng)
				if err != nil {
					l.log.Debug("command rejected", zap.String("type", string(msg.Cmd.Type)), zap.Error(err))
					reply(msg.Reply, Result{Version: l.version, View: engine.NewView(l.state), Err: err})
					break
				}
				if reflect.DeepEqual(before, l.state) {
					// PickNext on a finished round reports it without changing anything.
					reply(msg.Reply, Result{Version: l.version, Events: events, View: engine.NewView(l.state)})
					break
				}
				l.log.Info("command applied", zap.String("type", string(msg.Cmd.Type)), zap.Int("version", l.version+1))
				reply(msg.Reply, l.accept(events))

			case GenerateGroups:
				reply(msg.Reply, l.generateGroups(msg.Request))

			case remoteSynced:
				if msg.ID == l.remoteID {
					break
				}
				l.remoteID = msg.ID
				// Keep the id across restarts.
				_ = l.saveLocal()

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Code:       l.code,
					Version:    l.version,
					NumClients: len(l.clients),
					RemoteID:   l.remoteID,
					State:      l.state.Clone(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) generateGroups(req teamgroup.Request) Result {
	groups, err := teamgroup.Generate(len(l.state.Teams), req, l.rng)
	if err == nil {
		var events []engine.Event
		events, err = engine.AssignGroups(&l.state, groups)
		if err == nil {
			l.log.Info("groups assigned", zap.String("strategy", string(req.Strategy)), zap.Int("count", req.Count))
			return l.accept(events)
		}
	}
	l.log.Debug("grouping rejected", zap.Error(err))
	return Result{Version: l.version, View: engine.NewView(l.state), Err: err}
}

// accept runs after every successful transition: the local snapshot is
// written before anyone hears about the new version.
func (l *Lobby) accept(events []engine.Event) Result {
	l.version++
	err := l.saveLocal()
	l.syncer.Schedule(l.snapshot())

	view := engine.NewView(l.state)
	l.broadcast(Snapshot{Version: l.version, View: view})
	return Result{Version: l.version, Events: events, View: view, Err: err}
}

func (l *Lobby) snapshot() store.Snapshot {
	snap := store.FromState(l.code, l.version, l.state, l.now().UTC())
	snap.ID = l.remoteID
	return snap
}

func (l *Lobby) saveLocal() error {
	if l.local == nil {
		return nil
	}
	if err := l.local.Save(l.snapshot()); err != nil {
		l.log.Error("local snapshot failed", zap.Int("version", l.version), zap.Error(err))
		return err
	}
	return nil
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
	l.syncer.Close()
	close(l.done)
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		l.send(id, ch, snap)
	}
}

// send drops a client whose outbox is full.
func (l *Lobby) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
	default:
		l.log.Debug("dropping slow client", zap.String("client", id))
		close(ch)
		delete(l.clients, id)
	}
}

func reply(ch chan Result, r Result) {
	if ch != nil {
		ch <- r
	}
}
