package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/player-auction-backend/internal/engine"
	"github.com/DoyleJ11/player-auction-backend/internal/store"
	"github.com/DoyleJ11/player-auction-backend/internal/teamgroup"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func recvResult(t *testing.T, ch <-chan Result, within time.Duration) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(within):
		t.Fatalf("timed out waiting for result")
		return Result{}
	}
}

func getState(t *testing.T, l *Lobby) View {
	t.Helper()
	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

// firstPick always spotlights the first candidate.
type firstPick struct{}

func (firstPick) Intn(int) int { return 0 }

func newState(t *testing.T, teams int) engine.State {
	t.Helper()
	roster := []string{"Alice", "Bob", "Cara", "Dev", "Eli", "Fay"}
	setups := make([]engine.TeamSetup, teams)
	for i := range setups {
		setups[i] = engine.TeamSetup{Name: fmt.Sprintf("Team %d", i+1)}
	}
	s, err := engine.NewState(engine.Setup{
		Name:   "Spring Cup",
		Config: engine.Config{TotalCredits: 1000, BasePrice: 100, TotalPlayers: len(roster), PlayersPerTeam: 3},
		Roster: roster,
		Teams:  setups,
	})
	require.NoError(t, err)
	return s
}

func startLobby(t *testing.T, s engine.State, opts Options) *Lobby {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = firstPick{}
	}
	opts.Log = zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLobby(ctx, "ABC123", s, opts)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

func TestLobby_Command_BroadcastsSnapshotAndVersionIncrements(t *testing.T) {
	l := startLobby(t, newState(t, 2), Options{})

	clientOut := make(chan Snapshot, 2) // small buffer so broadcast doesn't block
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	first := recvSnapshot(t, clientOut, 100*time.Millisecond)
	require.Equal(t, 0, first.Version)
	assert.Equal(t, engine.PhaseIdle, first.View.Phase)

	reply := make(chan Result, 1)
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdPickNext}, Reply: reply}

	res := recvResult(t, reply, 100*time.Millisecond)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Version)
	assert.True(t, engine.ContainsEvent(res.Events, engine.EvtPlayerSpotlighted))

	next := recvSnapshot(t, clientOut, 100*time.Millisecond)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, "Alice", next.View.Spotlight)

	l.Inbox() <- Shutdown{}
}

func TestLobby_RejectedCommand_NoBroadcast(t *testing.T) {
	l := startLobby(t, newState(t, 2), Options{})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	reply := make(chan Result, 1)
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdMarkUnsold}, Reply: reply}
	res := recvResult(t, reply, 100*time.Millisecond)
	require.ErrorIs(t, res.Err, engine.ErrInvalidTransition)
	assert.Equal(t, 0, res.Version)

	recvNoSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 0, getState(t, l).Version)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l := startLobby(t, newState(t, 2), Options{})

	clientOut := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdPickNext}}

	view := getState(t, l)
	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}

func TestLobby_SavesLocalSnapshotOnEveryTransition(t *testing.T) {
	local, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	l := startLobby(t, newState(t, 2), Options{Local: local})

	cmds := []engine.Command{
		{Type: engine.CmdPickNext},
		{Type: engine.CmdSellPlayer, Team: 1, Player: "Alice", Price: 250},
	}
	for _, cmd := range cmds {
		reply := make(chan Result, 1)
		l.Inbox() <- FromClient{Cmd: cmd, Reply: reply}
		require.NoError(t, recvResult(t, reply, time.Second).Err)
	}

	snap, ok, err := local.Load("ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, snap.Version)
	assert.Equal(t, getState(t, l).State, snap.State())
}

type failingSaver struct{}

func (failingSaver) Save(store.Snapshot) error {
	return fmt.Errorf("%w: disk full", store.ErrLocalWrite)
}

func TestLobby_LocalSaveFailureReportedButTransitionStands(t *testing.T) {
	l := startLobby(t, newState(t, 2), Options{Local: failingSaver{}})

	reply := make(chan Result, 1)
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdPickNext}, Reply: reply}
	res := recvResult(t, reply, time.Second)

	require.ErrorIs(t, res.Err, store.ErrLocalWrite)
	kind, _ := engine.KindOf(res.Err)
	assert.Equal(t, engine.KindPersistence, kind)
	assert.Equal(t, 1, res.Version)
	assert.Equal(t, "Alice", getState(t, l).State.Round.Spotlight)
}

type recordingRemote struct {
	mu    sync.Mutex
	snaps []store.Snapshot
	fail  bool
}

func (r *recordingRemote) Sync(_ context.Context, snap store.Snapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	if r.fail {
		return "", errors.New("remote down")
	}
	return "7f1c0a4e-0000-4000-8000-000000000001", nil
}

func (r *recordingRemote) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func TestLobby_RemoteSyncIsDebouncedAndIDKept(t *testing.T) {
	remote := &recordingRemote{}
	local, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	l := startLobby(t, newState(t, 2), Options{
		Local:  local,
		Remote: remote,
		Sync:   store.SyncOptions{Debounce: 50 * time.Millisecond, Timeout: time.Second},
	})

	for _, cmd := range []engine.Command{
		{Type: engine.CmdPickNext},
		{Type: engine.CmdMarkUnsold},
		{Type: engine.CmdPickNext},
	} {
		l.Inbox() <- FromClient{Cmd: cmd}
	}

	require.Eventually(t, func() bool {
		return getState(t, l).RemoteID != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, remote.count())

	snap, ok, err := local.Load("ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "7f1c0a4e-0000-4000-8000-000000000001", snap.ID)
	assert.Equal(t, 3, snap.Version)
}

func TestLobby_RemoteFailureDoesNotBlockTransitions(t *testing.T) {
	remote := &recordingRemote{fail: true}
	l := startLobby(t, newState(t, 2), Options{
		Remote: remote,
		Sync:   store.SyncOptions{Debounce: time.Millisecond},
	})

	reply := make(chan Result, 1)
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdPickNext}, Reply: reply}
	require.NoError(t, recvResult(t, reply, time.Second).Err)

	require.Eventually(t, func() bool { return remote.count() == 1 }, time.Second, 5*time.Millisecond)
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdMarkUnsold}, Reply: reply}
	require.NoError(t, recvResult(t, reply, time.Second).Err)
	assert.Empty(t, getState(t, l).RemoteID)
}

func TestLobby_GenerateGroups(t *testing.T) {
	l := startLobby(t, newState(t, 7), Options{Rand: firstPick{}})

	reply := make(chan Result, 1)
	l.Inbox() <- GenerateGroups{Request: teamgroup.Request{Strategy: teamgroup.RandomCustom, Count: 2, Sizes: []int{3, 3}}, Reply: reply}
	res := recvResult(t, reply, time.Second)
	require.ErrorIs(t, res.Err, engine.ErrDistributionMismatch)
	assert.Equal(t, 0, res.Version)

	l.Inbox() <- GenerateGroups{Request: teamgroup.Request{Strategy: teamgroup.RandomCustom, Count: 2, Sizes: []int{3, 4}}, Reply: reply}
	res = recvResult(t, reply, time.Second)
	require.NoError(t, res.Err)
	require.Len(t, res.View.Groups, 2)
	assert.Len(t, res.View.Groups[0], 3)
	assert.Len(t, res.View.Groups[1], 4)
	assert.Len(t, getState(t, l).State.Groups, 2)
}

func TestLobby_Shutdown_ClosesClientsAndSend(t *testing.T) {
	l := startLobby(t, newState(t, 2), Options{})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 500*time.Millisecond)

	l.Inbox() <- Shutdown{}
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop")
	}

	_, ok := <-out
	assert.False(t, ok, "outbox should be closed")
	assert.ErrorIs(t, l.Send(context.Background(), Leave{ClientID: "c1"}), ErrClosed)
}

func TestLobby_LeaveClosesOutbox(t *testing.T) {
	l := startLobby(t, newState(t, 2), Options{})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 500*time.Millisecond)

	l.Inbox() <- Leave{ClientID: "c1"}
	assert.Equal(t, 0, getState(t, l).NumClients)

	select {
	case _, ok := <-out:
		assert.False(t, ok, "outbox should be closed after Leave")
	case <-time.After(time.Second):
		t.Fatal("outbox still open after Leave")
	}

	// Leaving twice, or after being dropped, must not close the outbox again.
	l.Inbox() <- Leave{ClientID: "c1"}
	assert.Equal(t, 0, getState(t, l).NumClients)
}

func TestLobby_PickNextOnFinishedRoundKeepsVersion(t *testing.T) {
	local := &countingSaver{}
	s := newState(t, 2)
	for range s.Roster {
		_, err := engine.PickNext(&s, firstPick{})
		require.NoError(t, err)
		_, err = engine.MarkUnsold(&s)
		require.NoError(t, err)
	}
	require.Equal(t, engine.PhaseRoundComplete, engine.DerivePhase(s))

	l := startLobby(t, s, Options{Local: local})
	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 500*time.Millisecond)

	for _i := 0; _i < 3; _i++ {
		reply := make(chan Result, 1)
		l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdPickNext}, Reply: reply}
		res := recvResult(t, reply, time.Second)
		require.NoError(t, res.Err)
		assert.Equal(t, 0, res.Version)
		assert.True(t, engine.ContainsEvent(res.Events, engine.EvtRoundCompleted))
		assert.Equal(t, engine.PhaseRoundComplete, res.View.Phase)
	}

	recvNoSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 0, getState(t, l).Version)
	assert.Equal(t, 0, local.count())

	// The next real transition still bumps and saves.
	reply := make(chan Result, 1)
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdStartNextRound}, Reply: reply}
	res := recvResult(t, reply, time.Second)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Version)
	assert.Equal(t, 1, local.count())
}

type countingSaver struct {
	mu    sync.Mutex
	saves int
}

func (c *countingSaver) Save(store.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	return nil
}

func (c *countingSaver) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}
