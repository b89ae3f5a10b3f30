package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func teamWith(budget int, bought ...int) Team {
	t := Team{Name: "Strikers", Budget: budget}
	for i, price := range bought {
		t.Players = append(t.Players, Player{Name: string(rune('A' + i)), Price: price})
	}
	return t
}

func TestValidateBid(t *testing.T) {
	cases := []struct {
		name           string
		team           Team
		price          int
		basePrice      int
		playersPerTeam int
		wantErr        error
	}{
		{
			name:           "reserve satisfied with room to spare",
			team:           teamWith(500, 100),
			price:          350,
			basePrice:      100,
			playersPerTeam: 3,
		},
		{
			name:           "reserve violated",
			team:           teamWith(500, 100),
			price:          420,
			basePrice:      100,
			playersPerTeam: 3,
			wantErr:        ErrReserveViolated,
		},
		{
			name:           "exact reserve is allowed",
			team:           teamWith(500, 100),
			price:          400,
			basePrice:      100,
			playersPerTeam: 3,
		},
		{
			name:           "last slot may spend everything",
			team:           teamWith(300, 100, 100),
			price:          300,
			basePrice:      100,
			playersPerTeam: 3,
		},
		{
			name:           "full team wins over every other failure",
			team:           teamWith(0, 100, 100, 100),
			price:          1,
			basePrice:      100,
			playersPerTeam: 3,
			wantErr:        ErrTeamFull,
		},
		{
			name:           "floor checked before budget",
			team:           teamWith(10),
			price:          50,
			basePrice:      100,
			playersPerTeam: 3,
			wantErr:        ErrBelowBasePrice,
		},
		{
			name:           "budget checked before reserve",
			team:           teamWith(500),
			price:          600,
			basePrice:      100,
			playersPerTeam: 3,
			wantErr:        ErrInsufficientBudget,
		},
		{
			name:           "zero base price disables floor and reserve",
			team:           teamWith(500),
			price:          500,
			basePrice:      0,
			playersPerTeam: 3,
		},
		{
			name:           "zero price allowed without base price",
			team:           teamWith(500),
			price:          0,
			basePrice:      0,
			playersPerTeam: 3,
		},
		{
			name:           "negative price rejected",
			team:           teamWith(500),
			price:          -5,
			basePrice:      0,
			playersPerTeam: 3,
			wantErr:        ErrBelowBasePrice,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBid(tc.team, tc.price, tc.basePrice, tc.playersPerTeam)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
