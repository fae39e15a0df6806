package conversation

import (
	"fmt"
	"strings"

	"github.com/stake-plus/getfunded/src/ai/core"
	"github.com/stake-plus/getfunded/src/api/types"
	"github.com/stake-plus/getfunded/src/api/verdict"
)

const openingInstruction = `This is the start of the conversation. React to the pitch in your own voice and ask the single most important question you have. Do not give a verdict yet.`

const probeInstruction = `Keep evaluating. Respond to the founder's last answer and ask one focused follow-up question. The founder has %d %s left before you decide. Do not give a verdict yet.`

const finalInstruction = `The founder has used all their replies. Give your closing thoughts, then end your message with this block exactly, filling in the values:

` + verdict.OpenTag + `
SCORE: <number from 0 to 10, one decimal>
VALUATION: <your valuation, e.g. $2M>
FEEDBACK: <two or three sentences of concrete feedback>
FUNDED: <YES or NO>
` + verdict.CloseTag + `

Only answer YES for a score of 8 or higher.`

func systemPrompt(persona string, a Action) string {
	var instruction string
	switch a.Kind {
	case ActionOpening:
		instruction = openingInstruction
	case ActionProbe:
		noun := "replies"
		if a.Remaining == 1 {
			noun = "reply"
		}
		instruction = fmt.Sprintf(probeInstruction, a.Remaining, noun)
	case ActionFinal:
		instruction = finalInstruction
	}
	return strings.TrimSpace(persona) + "\n\n" + instruction
}

func pitchSummary(p *types.Pitch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New pitch from @%s\n\n", p.TwitterHandle)
	fmt.Fprintf(&b, "Startup: %s\n", p.StartupName)
	fmt.Fprintf(&b, "One-liner: %s\n", p.OneLiner)
	fmt.Fprintf(&b, "Problem: %s\n", p.Problem)
	fmt.Fprintf(&b, "Solution: %s\n", p.Solution)
	fmt.Fprintf(&b, "Market: %s\n", p.Market)
	fmt.Fprintf(&b, "Traction: %s\n", p.Traction)
	fmt.Fprintf(&b, "Team: %s\n", p.Team)
	fmt.Fprintf(&b, "Ask: %s", p.Ask)
	return b.String()
}

// buildMessages maps the pitch and its history onto provider roles: the pitch
// summary opens as a user turn, VC replies become assistant turns.
func buildMessages(p *types.Pitch, history []types.ChatMessage) []core.Message {
	out := make([]core.Message, 0, len(history)+1)
	out = append(out, core.Message{Role: core.RoleUser, Content: pitchSummary(p)})
	for _, m := range history {
		role := core.RoleUser
		if m.Role == types.RoleVC {
			role = core.RoleAssistant
		}
		out = append(out, core.Message{Role: role, Content: m.Content})
	}
	return out
}
