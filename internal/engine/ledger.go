package engine

import (
	"fmt"
	"slices"
)

// Commit sells player to the team at index teamIdx. The sale is validated
// in full before anything changes.
func Commit(s *State, teamIdx int, player string, price int) ([]Event, error) {
	if s.Round.Complete {
		return nil, ErrAuctionComplete
	}
	if teamIdx < 0 || teamIdx >= len(s.Teams) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTeam, teamIdx)
	}
	if isSold(*s, player) {
		return nil, fmt.Errorf("%w: %q", ErrPlayerSold, player)
	}
	if !slices.Contains(s.Roster, player) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, player)
	}

	team := &s.Teams[teamIdx]
	if err := ValidateBid(*team, price, s.Config.BasePrice, s.Config.PlayersPerTeam); err != nil {
		return nil, err
	}

	team.Players = append(team.Players, Player{Name: player, Price: price})
	team.Budget -= price
	s.Round.Unsold = removeName(s.Round.Unsold, player)
	if s.Round.Spotlight == player {
		s.Round.Spotlight = ""
	}

	events := []Event{{Type: EvtPlayerSold, Team: teamIdx, Player: player, Price: price, Round: s.Round.Current}}
	if allTeamsFull(*s) {
		s.Round.Complete = true
		releaseSpotlight(s)
		events = append(events, Event{Type: EvtAuctionCompleted, Round: s.Round.Current})
	}
	return events, nil
}

// UndoLast reverses the team's most recent sale and puts the player back
// into the current round so it can be spotlighted again. Icon players were
// never sold and cannot be undone.
func UndoLast(s *State, teamIdx int) ([]Event, error) {
	if teamIdx < 0 || teamIdx >= len(s.Teams) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTeam, teamIdx)
	}
	team := &s.Teams[teamIdx]
	n := len(team.Players)
	if n == 0 || team.Players[n-1].IsIcon {
		return nil, fmt.Errorf("%w: %s has no sale to reverse", ErrNothingToUndo, team.Name)
	}

	last := team.Players[n-1]
	team.Players = team.Players[:n-1]
	team.Budget += last.Price

	s.Round.Shown = removeName(s.Round.Shown, last.Name)
	if !slices.Contains(s.Round.Pool, last.Name) {
		s.Round.Pool = append(s.Round.Pool, last.Name)
	}
	s.Round.Unsold = removeName(s.Round.Unsold, last.Name)

	events := []Event{{Type: EvtSaleUndone, Team: teamIdx, Player: last.Name, Price: last.Price, Round: s.Round.Current}}
	if s.Round.Complete {
		s.Round.Complete = false
		events = append(events, Event{Type: EvtAuctionReopened, Round: s.Round.Current})
	}
	return events, nil
}

// AssignGroups stores a team grouping after checking it partitions the
// team list.
func AssignGroups(s *State, groups [][]int) ([]Event, error) {
	seen := make([]bool, len(s.Teams))
	covered := 0
	for _, g := range groups {
		for _, idx := range g {
			if idx < 0 || idx >= len(s.Teams) {
				return nil, fmt.Errorf("%w: %d", ErrUnknownTeam, idx)
			}
			if seen[idx] {
				return nil, fmt.Errorf("%w: team %d appears twice", ErrDistributionMismatch, idx)
			}
			seen[idx] = true
			covered++
		}
	}
	if covered != len(s.Teams) {
		return nil, fmt.Errorf("%w: %d of %d teams grouped", ErrUnassignedTeam, covered, len(s.Teams))
	}

	out := make([][]int, len(groups))
	for i, g := range groups {
		out[i] = slices.Clone(g)
	}
	s.Groups = out
	return []Event{{Type: EvtGroupsAssigned}}, nil
}
