package engine

import "slices"

type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseSpotlight     Phase = "spotlight"
	PhaseRoundComplete Phase = "round_complete"
	PhaseComplete      Phase = "complete"
)

// Config is the tournament configuration fixed at setup.
type Config struct {
	TotalCredits   int `json:"totalCredits"`
	BasePrice      int `json:"basePrice"`      // 0 disables the floor and reservation rules
	PlayersPerTeam int `json:"playersPerTeam"` // includes icon slots
	TotalPlayers   int `json:"totalPlayers"`   // roster capacity
	MaxRounds      int `json:"maxRounds"`      // 0 means unbounded
}

type Player struct {
	Name   string `json:"name"`
	Price  int    `json:"price"`
	IsIcon bool   `json:"isIcon"`
}

type Team struct {
	Name    string   `json:"name"`
	Manager string   `json:"manager"`
	Budget  int      `json:"budget"`
	Players []Player `json:"players"`
}

// Round is the round state of the roster pool. Pool, Shown and Unsold are
// ordered sets; Spotlight is empty when nobody is offered.
type Round struct {
	Current   int      `json:"currentRound"`
	Pool      []string `json:"poolForRound"`
	Shown     []string `json:"shownInRound"`
	Unsold    []string `json:"unsoldPlayers"`
	Spotlight string   `json:"currentPlayer"`
	Complete  bool     `json:"isComplete"`
}

// State is the whole auction. It is owned by one goroutine at a time and
// mutated only through the operations in this package.
type State struct {
	Name   string   `json:"name"`
	Config Config   `json:"config"`
	Roster []string `json:"roster"`
	Round  Round    `json:"round"`
	Teams  []Team   `json:"teams"`
	// Groups is the post-auction team grouping, by team index.
	Groups [][]int `json:"groups"`
}

type CommandType string

const (
	CmdPickNext        CommandType = "PickNext"
	CmdMarkUnsold      CommandType = "MarkUnsold"
	CmdStartNextRound  CommandType = "StartNextRound"
	CmdCompleteAuction CommandType = "CompleteAuction"
	CmdSellPlayer      CommandType = "SellPlayer"
	CmdUndoLast        CommandType = "UndoLast"
	CmdAddPlayer       CommandType = "AddPlayer"
	CmdRemovePlayer    CommandType = "RemovePlayer"
)

type Command struct {
	Type   CommandType `json:"type"`
	Team   int         `json:"team"`
	Player string      `json:"player,omitempty"`
	Price  int         `json:"price,omitempty"`
}

type EventType string

const (
	EvtPlayerSpotlighted EventType = "PlayerSpotlighted"
	EvtPlayerUnsold      EventType = "PlayerUnsold"
	EvtRoundCompleted    EventType = "RoundCompleted"
	EvtRoundStarted      EventType = "RoundStarted"
	EvtPlayerSold        EventType = "PlayerSold"
	EvtSaleUndone        EventType = "SaleUndone"
	EvtAuctionCompleted  EventType = "AuctionCompleted"
	EvtAuctionReopened   EventType = "AuctionReopened"
	EvtPlayerAdded       EventType = "PlayerAdded"
	EvtPlayerRemoved     EventType = "PlayerRemoved"
	EvtGroupsAssigned    EventType = "GroupsAssigned"
)

type Event struct {
	Type   EventType `json:"type"`
	Team   int       `json:"team,omitempty"`
	Player string    `json:"player,omitempty"`
	Price  int       `json:"price,omitempty"`
	Round  int       `json:"round,omitempty"`
}

// Apply routes a command to its operation. A rejected command leaves s
// untouched.
func Apply(s *State, cmd Command, rng RandSource) ([]Event, error) {
	switch cmd.Type {
	case CmdPickNext:
		return PickNext(s, rng)
	case CmdMarkUnsold:
		return MarkUnsold(s)
	case CmdStartNextRound:
		return StartNextRound(s)
	case CmdCompleteAuction:
		return ForceComplete(s)
	case CmdSellPlayer:
		return Commit(s, cmd.Team, cmd.Player, cmd.Price)
	case CmdUndoLast:
		return UndoLast(s, cmd.Team)
	case CmdAddPlayer:
		return AddPlayer(s, cmd.Player)
	case CmdRemovePlayer:
		return RemovePlayer(s, cmd.Player)
	default:
		return nil, ErrUnsupportedCommand
	}
}

// DerivePhase computes the scheduler phase from the round state.
func DerivePhase(s State) Phase {
	switch {
	case s.Round.Complete:
		return PhaseComplete
	case s.Round.Spotlight != "":
		return PhaseSpotlight
	case len(candidates(s)) == 0 && len(s.Round.Unsold) > 0:
		return PhaseRoundComplete
	default:
		return PhaseIdle
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so snapshots never alias live state.
func (s State) Clone() State {
	c := s
	c.Roster = slices.Clone(s.Roster)
	c.Round.Pool = slices.Clone(s.Round.Pool)
	c.Round.Shown = slices.Clone(s.Round.Shown)
	c.Round.Unsold = slices.Clone(s.Round.Unsold)
	c.Teams = make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		t.Players = slices.Clone(t.Players)
		c.Teams[i] = t
	}
	if s.Groups != nil {
		c.Groups = make([][]int, len(s.Groups))
		for i, g := range s.Groups {
			c.Groups[i] = slices.Clone(g)
		}
	}
	return c
}

func soldSet(s State) map[string]bool {
	sold := make(map[string]bool)
	for _, t := range s.Teams {
		for _, p := range t.Players {
			sold[p.Name] = true
		}
	}
	return sold
}

func isSold(s State, name string) bool {
	for _, t := range s.Teams {
		for _, p := range t.Players {
			if p.Name == name {
				return true
			}
		}
	}
	return false
}

func allTeamsFull(s State) bool {
	if len(s.Teams) == 0 {
		return false
	}
	for _, t := range s.Teams {
		if len(t.Players) < s.Config.PlayersPerTeam {
			return false
		}
	}
	return true
}

func removeName(names []string, name string) []string {
	return slices.DeleteFunc(names, func(n string) bool { return n == name })
}
