package engine

import (
	"fmt"
	"slices"
)

// candidates are the pool players not yet shown this round and not sold,
// in pool order.
func candidates(s State) []string {
	sold := soldSet(s)
	out := make([]string, 0, len(s.Round.Pool))
	for _, name := range s.Round.Pool {
		if sold[name] || slices.Contains(s.Round.Shown, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// PickNext spotlights a uniformly random candidate. With no candidates left
// the round is over; with nobody unsold either, the auction is over.
func PickNext(s *State, rng RandSource) ([]Event, error) {
	if s.Round.Complete {
		return nil, ErrAuctionComplete
	}
	if s.Round.Spotlight != "" {
		return nil, ErrSpotlightHeld
	}

	cands := candidates(*s)
	if len(cands) == 0 {
		events := []Event{{Type: EvtRoundCompleted, Round: s.Round.Current}}
		if len(s.Round.Unsold) == 0 {
			s.Round.Complete = true
			events = append(events, Event{Type: EvtAuctionCompleted, Round: s.Round.Current})
		}
		return events, nil
	}

	// Drawn fresh on every call so players returned by undo are reconsidered.
	chosen := cands[orDefault(rng).Intn(len(cands))]
	s.Round.Spotlight = chosen
	s.Round.Shown = append(s.Round.Shown, chosen)
	return []Event{{Type: EvtPlayerSpotlighted, Player: chosen, Round: s.Round.Current}}, nil
}

// MarkUnsold carries the spotlighted player over to the next round.
func MarkUnsold(s *State) ([]Event, error) {
	if s.Round.Complete {
		return nil, ErrAuctionComplete
	}
	name := s.Round.Spotlight
	if name == "" {
		return nil, ErrNoSpotlight
	}
	if !slices.Contains(s.Round.Unsold, name) {
		s.Round.Unsold = append(s.Round.Unsold, name)
	}
	s.Round.Spotlight = ""
	return []Event{{Type: EvtPlayerUnsold, Player: name, Round: s.Round.Current}}, nil
}

// StartNextRound recycles this round's unsold players into a fresh pool.
func StartNextRound(s *State) ([]Event, error) {
	if s.Round.Complete {
		return nil, ErrAuctionComplete
	}
	if s.Round.Spotlight != "" {
		return nil, ErrSpotlightHeld
	}
	if len(candidates(*s)) > 0 {
		return nil, ErrRoundInProgress
	}
	if len(s.Round.Unsold) == 0 {
		return nil, ErrNoCandidates
	}
	if s.Config.MaxRounds > 0 && s.Round.Current >= s.Config.MaxRounds {
		return nil, fmt.Errorf("%w: %d rounds played", ErrRoundLimit, s.Round.Current)
	}

	s.Round.Current++
	s.Round.Pool = s.Round.Unsold
	s.Round.Unsold = []string{}
	s.Round.Shown = []string{}
	s.Round.Spotlight = ""
	return []Event{{Type: EvtRoundStarted, Round: s.Round.Current}}, nil
}

// ForceComplete ends the auction on the operator's word, whatever is left.
func ForceComplete(s *State) ([]Event, error) {
	if s.Round.Complete {
		return nil, ErrAuctionComplete
	}
	s.Round.Complete = true
	releaseSpotlight(s)
	return []Event{{Type: EvtAuctionCompleted, Round: s.Round.Current}}, nil
}

// releaseSpotlight withdraws the offer without a decision, returning the
// player to the round's available candidates.
func releaseSpotlight(s *State) {
	if s.Round.Spotlight == "" {
		return
	}
	s.Round.Shown = removeName(s.Round.Shown, s.Round.Spotlight)
	s.Round.Spotlight = ""
}
