// Package types holds the websocket wire messages.
//
// Client -> Server
//
//	PickNext, MarkUnsold, StartNextRound, CompleteAuction: {}
//	SellPlayer:     team, player, price
//	UndoLast:       team
//	AddPlayer:      player
//	RemovePlayer:   player
//	GenerateGroups: groups {strategy, count, sizes?, assignments?}
//
// Server -> Client
//
//	StateSnapshot: version, view (broadcast after every accepted command)
//	Error:         code, error (to the sender only)
package types

import (
	"github.com/DoyleJ11/player-auction-backend/internal/engine"
	"github.com/DoyleJ11/player-auction-backend/internal/teamgroup"
)

// ClientMessage is what the operator console sends over the websocket.
// Type is an engine command name, or "GenerateGroups" with Groups set.
type ClientMessage struct {
	Type   string             `json:"type"`
	Team   int                `json:"team,omitempty"`
	Player string             `json:"player,omitempty"`
	Price  int                `json:"price,omitempty"`
	Groups *teamgroup.Request `json:"groups,omitempty"`
}

type ServerMessage struct {
	Type    string       `json:"type"` // "StateSnapshot" | "Error"
	Version int          `json:"version,omitempty"`
	View    *engine.View `json:"view,omitempty"`
	Code    string       `json:"code,omitempty"`
	Error   string       `json:"error,omitempty"`
}

const (
	MsgStateSnapshot  = "StateSnapshot"
	MsgError          = "Error"
	MsgGenerateGroups = "GenerateGroups"
)
