package engine

// View is the read-only projection handed to presentation. It never
// exposes the round's internal sets.
type View struct {
	Name       string     `json:"name"`
	Phase      Phase      `json:"phase"`
	Round      int        `json:"round"`
	Spotlight  string     `json:"spotlight,omitempty"`
	Shown      int        `json:"shown"`
	RoundTotal int        `json:"roundTotal"`
	Remaining  int        `json:"remaining"`
	Unsold     int        `json:"unsold"`
	Registered int        `json:"registered"`
	Capacity   int        `json:"capacity"`
	BasePrice  int        `json:"basePrice"`
	Complete   bool       `json:"complete"`
	Teams      []TeamView `json:"teams"`
	Groups     [][]string `json:"groups,omitempty"`
}

type TeamView struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Manager  string   `json:"manager,omitempty"`
	Budget   int      `json:"budget"`
	Filled   int      `json:"filled"`
	Slots    int      `json:"slots"`
	Players  []Player `json:"players"`
	Analysis Analysis `json:"analysis"`
}

func NewView(s State) View {
	v := View{
		Name:       s.Name,
		Phase:      DerivePhase(s),
		Round:      s.Round.Current,
		Spotlight:  s.Round.Spotlight,
		Shown:      len(s.Round.Shown),
		RoundTotal: len(s.Round.Pool),
		Remaining:  len(candidates(s)),
		Unsold:     len(s.Round.Unsold),
		Registered: len(s.Roster),
		Capacity:   s.Config.TotalPlayers,
		BasePrice:  s.Config.BasePrice,
		Complete:   s.Round.Complete,
		Teams:      make([]TeamView, len(s.Teams)),
	}
	for i, t := range s.Teams {
		players := make([]Player, len(t.Players))
		copy(players, t.Players)
		v.Teams[i] = TeamView{
			Index:    i,
			Name:     t.Name,
			Manager:  t.Manager,
			Budget:   t.Budget,
			Filled:   len(t.Players),
			Slots:    s.Config.PlayersPerTeam,
			Players:  players,
			Analysis: Analyze(s.Config, t),
		}
	}
	for _, g := range s.Groups {
		names := make([]string, 0, len(g))
		for _, idx := range g {
			if idx >= 0 && idx < len(s.Teams) {
				names = append(names, s.Teams[idx].Name)
			}
		}
		v.Groups = append(v.Groups, names)
	}
	return v
}
