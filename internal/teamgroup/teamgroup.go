// Package teamgroup splits the finalized team list into groups for play.
// Teams are identified by their index in the tournament's team list.
package teamgroup

import (
	"fmt"

	"github.com/DoyleJ11/player-auction-backend/internal/engine"
)

type Strategy string

const (
	RandomEqual  Strategy = "random-equal"
	RandomCustom Strategy = "random-custom"
	Manual       Strategy = "manual"
)

// Request describes one grouping run. Sizes is read by RandomCustom only,
// Assignments (group index per team) by Manual only.
type Request struct {
	Strategy    Strategy `json:"strategy"`
	Count       int      `json:"count"`
	Sizes       []int    `json:"sizes,omitempty"`
	Assignments []int    `json:"assignments,omitempty"`
}

// Groups is an ordered list of groups, each holding team indices.
type Groups [][]int

// Generate partitions teams 0..teams-1 into req.Count groups. On error no
// grouping is returned.
func Generate(teams int, req Request, rng engine.RandSource) (Groups, error) {
	if req.Count < 1 {
		return nil, fmt.Errorf("%w: %d", engine.ErrInvalidGroupCount, req.Count)
	}
	if teams < 1 {
		return nil, fmt.Errorf("%w: no teams to group", engine.ErrInvalidGroupCount)
	}
	if rng == nil {
		rng = engine.DefaultRandSource
	}

	switch req.Strategy {
	case RandomEqual:
		return randomEqual(teams, req.Count, rng), nil
	case RandomCustom:
		return randomCustom(teams, req.Count, req.Sizes, rng)
	case Manual:
		return manual(teams, req.Count, req.Assignments)
	default:
		return nil, fmt.Errorf("%w: grouping strategy %q", engine.ErrUnsupportedCommand, req.Strategy)
	}
}

func randomEqual(teams, count int, rng engine.RandSource) Groups {
	order := shuffled(teams, rng)
	out := make(Groups, count)
	for i := range out {
		out[i] = []int{}
	}
	for i, team := range order {
		out[i%count] = append(out[i%count], team)
	}
	return out
}

func randomCustom(teams, count int, sizes []int, rng engine.RandSource) (Groups, error) {
	if len(sizes) != count {
		return nil, fmt.Errorf("%w: %d sizes for %d groups", engine.ErrDistributionMismatch, len(sizes), count)
	}
	sum := 0
	for i, n := range sizes {
		if n < 0 {
			return nil, fmt.Errorf("%w: group %d has negative size %d", engine.ErrDistributionMismatch, i+1, n)
		}
		sum += n
	}
	if sum != teams {
		return nil, fmt.Errorf("%w: sizes sum to %d, have %d teams", engine.ErrDistributionMismatch, sum, teams)
	}

	order := shuffled(teams, rng)
	out := make(Groups, count)
	next := 0
	for i, n := range sizes {
		out[i] = append([]int{}, order[next:next+n]...)
		next += n
	}
	return out, nil
}

func manual(teams, count int, assignments []int) (Groups, error) {
	if len(assignments) != teams {
		return nil, fmt.Errorf("%w: %d of %d teams assigned", engine.ErrUnassignedTeam, len(assignments), teams)
	}
	out := make(Groups, count)
	for i := range out {
		out[i] = []int{}
	}
	for team, g := range assignments {
		if g < 0 || g >= count {
			return nil, fmt.Errorf("%w: team %d has group %d", engine.ErrUnassignedTeam, team, g)
		}
		out[g] = append(out[g], team)
	}
	return out, nil
}

// shuffled returns 0..n-1 in Fisher-Yates order.
func shuffled(n int, rng engine.RandSource) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
