// Package store persists tournament snapshots: synchronously to a local
// file for crash recovery, and asynchronously to a remote database.
package store

import (
	"errors"
	"time"

	"github.com/DoyleJ11/player-auction-backend/internal/engine"
)

// Persistence failures. A failed local write must reach the operator; a
// failed remote sync is logged and retried with the next mutation.
var (
	ErrLocalWrite = engine.NewError(engine.KindPersistence, "LocalWriteFailed", "local snapshot write failed")
	ErrLocalRead  = engine.NewError(engine.KindPersistence, "LocalReadFailed", "local snapshot read failed")
	ErrRemoteSync = engine.NewError(engine.KindPersistence, "RemoteSyncFailed", "remote sync failed")
)

var (
	ErrNotFound = errors.New("tournament not found")
	ErrDeleted  = errors.New("tournament is deleted")
)

// Snapshot is the persisted shape of one tournament.
type Snapshot struct {
	ID      string    `json:"id,omitempty"` // remote id, empty until the first sync
	Code    string    `json:"code"`
	Name    string    `json:"name"`
	Version int       `json:"version"`
	SavedAt time.Time `json:"savedAt"`

	Config engine.Config `json:"config"`
	Roster []string      `json:"roster"`
	Round  engine.Round  `json:"round"`
	Teams  []engine.Team `json:"teams"`
	Pools  [][]int       `json:"pools"`
}

// FromState captures s. The snapshot shares no memory with s.
func FromState(code string, version int, s engine.State, savedAt time.Time) Snapshot {
	c := s.Clone()
	return Snapshot{
		Code:    code,
		Name:    c.Name,
		Version: version,
		SavedAt: savedAt,
		Config:  c.Config,
		Roster:  c.Roster,
		Round:   c.Round,
		Teams:   c.Teams,
		Pools:   c.Groups,
	}
}

func (s Snapshot) State() engine.State {
	return engine.State{
		Name:   s.Name,
		Config: s.Config,
		Roster: s.Roster,
		Round:  s.Round,
		Teams:  s.Teams,
		Groups: s.Pools,
	}.Clone()
}

// Summary is one row of the saved-tournaments list.
type Summary struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}
