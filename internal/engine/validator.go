package engine

import "fmt"

// ValidateBid checks a proposed sale against the team's capacity, the floor
// price, its budget and the reservation rule, in that order. The first
// failing check is returned.
//
// The reservation rule keeps basePrice in hand for every slot still open
// after this one, so a team can always complete its roster.
func ValidateBid(team Team, price, basePrice, playersPerTeam int) error {
	filled := len(team.Players)
	if filled >= playersPerTeam {
		return fmt.Errorf("%w: %s has %d/%d players", ErrTeamFull, team.Name, filled, playersPerTeam)
	}

	if price < 0 || (basePrice > 0 && price < basePrice) {
		return fmt.Errorf("%w: %d < %d", ErrBelowBasePrice, price, basePrice)
	}

	if price > team.Budget {
		return fmt.Errorf("%w: %s has %d, bid %d", ErrInsufficientBudget, team.Name, team.Budget, price)
	}

	slotsAfter := playersPerTeam - filled - 1
	reserve := slotsAfter * basePrice
	if team.Budget-price < reserve {
		return fmt.Errorf("%w: must keep at least %d credits for the remaining %d players", ErrReserveViolated, reserve, slotsAfter)
	}

	return nil
}
