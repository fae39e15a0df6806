package conversation

import "github.com/stake-plus/getfunded/src/api/types"

// MaxFounderTurns is how many founder replies the agent takes before deciding.
const MaxFounderTurns = 3

// Phase is the conversation state derived from its history.
type Phase struct {
	AwaitingFounder bool `json:"awaitingFounder"`
	AwaitingAgent   bool `json:"awaitingAgent"`
	TurnsUsed       int  `json:"turnsUsed"`
}

// PhaseOf derives the phase from history ordered oldest first.
func PhaseOf(history []types.ChatMessage) Phase {
	var ph Phase
	for _, m := range history {
		if m.Role == types.RoleFounder {
			ph.TurnsUsed++
		}
	}
	if len(history) == 0 || history[len(history)-1].Role == types.RoleFounder {
		ph.AwaitingAgent = true
	} else {
		ph.AwaitingFounder = true
	}
	return ph
}

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionOpening
	ActionProbe
	ActionFinal
)

func (k ActionKind) String() string {
	switch k {
	case ActionOpening:
		return "opening"
	case ActionProbe:
		return "probe"
	case ActionFinal:
		return "final"
	default:
		return "none"
	}
}

// Action is what the agent should do next. Remaining is only set for probes.
type Action struct {
	Kind      ActionKind
	Remaining int
}

func NextAction(history []types.ChatMessage) Action {
	if len(history) == 0 {
		return Action{Kind: ActionOpening}
	}
	ph := PhaseOf(history)
	switch {
	case ph.AwaitingFounder:
		return Action{Kind: ActionNone}
	case ph.TurnsUsed >= MaxFounderTurns:
		return Action{Kind: ActionFinal}
	default:
		return Action{Kind: ActionProbe, Remaining: MaxFounderTurns - ph.TurnsUsed}
	}
}
