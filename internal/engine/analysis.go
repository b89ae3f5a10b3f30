package engine

import "github.com/shopspring/decimal"

type Label string

const (
	LabelComplete   Label = "Complete"
	LabelHighRisk   Label = "High Risk"
	LabelAggressive Label = "Aggressive"
	LabelSaver      Label = "Saver"
	LabelSmartBuy   Label = "Smart Buy"
	LabelBalanced   Label = "Balanced"
)

var (
	riskMultiplier     = decimal.RequireFromString("1.5")
	fallbackRiskShare  = decimal.RequireFromString("0.2")
	aggressiveGap      = decimal.RequireFromString("0.20")
	saverGap           = decimal.RequireFromString("-0.15")
	smartBuySpentBelow = decimal.RequireFromString("0.2")
	smartBuyFillAbove  = decimal.RequireFromString("0.4")
)

// Analysis is a spending-vs-filling read of one team.
type Analysis struct {
	Label          Label `json:"label"`
	AvgBudget      int   `json:"avgBudget"`
	RemainingSlots int   `json:"remainingSlots"`
}

// Analyze labels a team's strategy. Running low on credits per open slot
// dominates; otherwise the gap between the share of credits spent and the
// share of slots filled decides.
func Analyze(cfg Config, team Team) Analysis {
	filled := len(team.Players)
	remaining := cfg.PlayersPerTeam - filled
	if remaining <= 0 {
		return Analysis{Label: LabelComplete, RemainingSlots: max(remaining, 0)}
	}

	avg := team.Budget / remaining
	out := Analysis{Label: LabelBalanced, AvgBudget: avg, RemainingSlots: remaining}

	var threshold decimal.Decimal
	if cfg.BasePrice > 0 {
		threshold = decimal.NewFromInt(int64(cfg.BasePrice)).Mul(riskMultiplier)
	} else if cfg.PlayersPerTeam > 0 {
		threshold = decimal.NewFromInt(int64(cfg.TotalCredits)).
			Div(decimal.NewFromInt(int64(cfg.PlayersPerTeam))).
			Mul(fallbackRiskShare)
	}
	if decimal.NewFromInt(int64(avg)).LessThan(threshold) {
		out.Label = LabelHighRisk
		return out
	}

	spent := decimal.Zero
	if cfg.TotalCredits > 0 {
		spent = decimal.NewFromInt(int64(cfg.TotalCredits - team.Budget)).
			Div(decimal.NewFromInt(int64(cfg.TotalCredits)))
	}
	fill := decimal.NewFromInt(int64(filled)).Div(decimal.NewFromInt(int64(cfg.PlayersPerTeam)))
	gap := spent.Sub(fill)

	switch {
	case gap.GreaterThan(aggressiveGap):
		out.Label = LabelAggressive
	case gap.LessThan(saverGap):
		out.Label = LabelSaver
	case spent.LessThan(smartBuySpentBelow) && fill.GreaterThan(smartBuyFillAbove):
		out.Label = LabelSmartBuy
	}
	return out
}
