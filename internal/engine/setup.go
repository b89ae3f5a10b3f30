package engine

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"
)

const minTeams = 2

type TeamSetup struct {
	Name    string   `json:"name"`
	Manager string   `json:"manager"`
	Icons   []string `json:"icons"`
}

// Setup is everything collected before the auction opens.
type Setup struct {
	Name   string      `json:"name"`
	Config Config      `json:"config"`
	Roster []string    `json:"roster"`
	Teams  []TeamSetup `json:"teams"`
}

// NewState validates a setup and opens round 1 over the full roster.
// All problems are reported together.
func NewState(setup Setup) (State, error) {
	cfg := setup.Config
	roster := make([]string, len(setup.Roster))
	for i, name := range setup.Roster {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		roster[i] = name
	}

	maxIcons := 0
	for _, t := range setup.Teams {
		maxIcons = max(maxIcons, len(nonBlank(t.Icons)))
	}
	if cfg.PlayersPerTeam == 0 && len(setup.Teams) > 0 {
		cfg.PlayersPerTeam = ceilDiv(cfg.TotalPlayers, len(setup.Teams)) + maxIcons
	}

	var err error
	if len(setup.Teams) < minTeams {
		err = multierr.Append(err, fmt.Errorf("%w: at least %d teams required, got %d", ErrInvalidSetup, minTeams, len(setup.Teams)))
	}
	if cfg.TotalPlayers <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: total players must be positive", ErrInvalidSetup))
	}
	if cfg.TotalCredits < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: total credits must not be negative", ErrInvalidSetup))
	}
	if cfg.BasePrice < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: base price must not be negative", ErrInvalidSetup))
	}
	if cfg.PlayersPerTeam < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: players per team must not be negative", ErrInvalidSetup))
	}
	if cfg.MaxRounds < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: max rounds must not be negative", ErrInvalidSetup))
	}
	if cfg.TotalPlayers > 0 && len(roster) > cfg.TotalPlayers {
		err = multierr.Append(err, fmt.Errorf("%w: %d players registered, capacity %d", ErrCapacityFull, len(roster), cfg.TotalPlayers))
	}

	seen := make(map[string]bool, len(roster))
	for _, name := range roster {
		if seen[name] {
			err = multierr.Append(err, fmt.Errorf("%w: %q", ErrDuplicatePlayer, name))
		}
		seen[name] = true
	}

	teams := make([]Team, len(setup.Teams))
	for i, ts := range setup.Teams {
		name := strings.TrimSpace(ts.Name)
		if name == "" {
			name = fmt.Sprintf("Team %d", i+1)
		}
		icons := nonBlank(ts.Icons)
		if len(icons) > cfg.PlayersPerTeam {
			err = multierr.Append(err, fmt.Errorf("%w: %s has %d icon players for %d slots", ErrInvalidSetup, name, len(icons), cfg.PlayersPerTeam))
		}
		open := cfg.PlayersPerTeam - len(icons)
		if open > 0 && cfg.BasePrice > 0 && cfg.TotalCredits < open*cfg.BasePrice {
			err = multierr.Append(err, fmt.Errorf("%w: %s cannot fill %d slots at base price %d with %d credits", ErrInvalidSetup, name, open, cfg.BasePrice, cfg.TotalCredits))
		}

		players := make([]Player, 0, max(cfg.PlayersPerTeam, 0))
		for _, icon := range icons {
			if seen[icon] {
				err = multierr.Append(err, fmt.Errorf("%w: %q", ErrDuplicatePlayer, icon))
			}
			seen[icon] = true
			players = append(players, Player{Name: icon, Price: 0, IsIcon: true})
		}
		teams[i] = Team{
			Name:    name,
			Manager: strings.TrimSpace(ts.Manager),
			Budget:  cfg.TotalCredits,
			Players: players,
		}
	}

	if err != nil {
		return State{}, err
	}

	s := State{
		Name:   strings.TrimSpace(setup.Name),
		Config: cfg,
		Roster: roster,
		Round: Round{
			Current: 1,
			Pool:    slices.Clone(roster),
			Shown:   []string{},
			Unsold:  []string{},
		},
		Teams: teams,
	}
	return s, nil
}

func nonBlank(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
