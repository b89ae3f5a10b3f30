package engine

import (
	"fmt"
	"slices"
	"strings"
)

// AddPlayer registers a late entry. The player joins the current round's
// pool so it can still be spotlighted this round.
func AddPlayer(s *State, name string) ([]Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrUnknownPlayer)
	}
	if s.Round.Complete {
		return nil, ErrAuctionComplete
	}
	if len(s.Roster) >= s.Config.TotalPlayers {
		return nil, fmt.Errorf("%w: %d/%d", ErrCapacityFull, len(s.Roster), s.Config.TotalPlayers)
	}
	if slices.Contains(s.Roster, name) || isSold(*s, name) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicatePlayer, name)
	}

	s.Roster = append(s.Roster, name)
	if !slices.Contains(s.Round.Pool, name) {
		s.Round.Pool = append(s.Round.Pool, name)
	}
	return []Event{{Type: EvtPlayerAdded, Player: name}}, nil
}

// RemovePlayer withdraws an unsold player from the auction entirely.
// Capacity is unchanged, so a replacement can be added.
func RemovePlayer(s *State, name string) ([]Event, error) {
	if !slices.Contains(s.Roster, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
	if isSold(*s, name) {
		return nil, fmt.Errorf("%w: %q", ErrPlayerSold, name)
	}

	s.Roster = removeName(s.Roster, name)
	s.Round.Pool = removeName(s.Round.Pool, name)
	s.Round.Shown = removeName(s.Round.Shown, name)
	s.Round.Unsold = removeName(s.Round.Unsold, name)
	if s.Round.Spotlight == name {
		s.Round.Spotlight = ""
	}
	return []Event{{Type: EvtPlayerRemoved, Player: name}}, nil
}
