package research

// ResearchConfig controls how far and how wide a session searches. Build it
// with NewConfig; it is never mutated afterwards.
type ResearchConfig struct {
	Depth   int     `json:"depth"`
	Breadth int     `json:"breadth"`
	Focus   Focus   `json:"focus"`
	Phases  []Phase `json:"phases"`
}

const (
	defaultDepth   = 2
	defaultBreadth = 3
)

// NewConfig fills defaults into a partial configuration and clamps depth
// and breadth into [1, MaxDepth] and [1, MaxBreadth]. A nil Phases slice
// enables every phase; unknown phases are dropped.
func NewConfig(partial ResearchConfig) ResearchConfig {
	cfg := ResearchConfig{
		Depth:   clamp(partial.Depth, defaultDepth, MaxDepth),
		Breadth: clamp(partial.Breadth, defaultBreadth, MaxBreadth),
		Focus:   partial.Focus,
	}

	switch cfg.Focus {
	case FocusSales, FocusCompetitive, FocusComprehensive:
	default:
		cfg.Focus = FocusSales
	}

	if partial.Phases == nil {
		cfg.Phases = append([]Phase(nil), ResearchPhases...)
		return cfg
	}

	cfg.Phases = []Phase{}
	for _, p := range ResearchPhases {
		for _, want := range partial.Phases {
			if want == p {
				cfg.Phases = append(cfg.Phases, p)
				break
			}
		}
	}
	return cfg
}

// Enabled reports whether the caller asked for phase p.
func (c ResearchConfig) Enabled(p Phase) bool {
	for _, q := range c.Phases {
		if q == p {
			return true
		}
	}
	return false
}

func clamp(v, def, max int) int {
	if v == 0 {
		return def
	}
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}
