package guard

// Summary is the structured end-of-pass report. It is always produced, even
// when the pass fails part-way, so that committed corrections are visible.
type Summary struct {
	DryRun bool `json:"dry_run"`

	Positions int `json:"positions"`
	Orders    int `json:"orders"`

	PlannedActions   int      `json:"planned_actions"`
	Corrected        int      `json:"corrected"`
	Cancelled        int      `json:"cancelled"`
	CancelFailures   int      `json:"cancel_failures"`
	OrphansPlanned   int      `json:"orphans_planned"`
	Unprotected      []string `json:"unprotected,omitempty"`
	MissingStops     []string `json:"missing_stops,omitempty"`
	Undersized       []string `json:"undersized,omitempty"`
	Conflicts        []string `json:"conflicts,omitempty"`
	Fallbacks        []string `json:"fallbacks,omitempty"`
	OrdersQueryError string   `json:"orders_query_error,omitempty"`

	SignalsTracked     int `json:"signals_tracked"`
	SignalsDeactivated int `json:"signals_deactivated"`
	LevelsPlaced       int `json:"levels_placed"`
	LevelsCleared      int `json:"levels_cleared"`
	LevelsReached      int `json:"levels_reached"`

	FatalError string `json:"fatal_error,omitempty"`
}
