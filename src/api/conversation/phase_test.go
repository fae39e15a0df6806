package conversation

import (
	"testing"

	"github.com/stake-plus/getfunded/src/api/types"
	"github.com/stretchr/testify/assert"
)

func history(roles ...string) []types.ChatMessage {
	out := make([]types.ChatMessage, len(roles))
	for i, r := range roles {
		out[i] = types.ChatMessage{Role: r, Content: r}
	}
	return out
}

const (
	vc      = types.RoleVC
	founder = types.RoleFounder
)

func TestPhaseOf(t *testing.T) {
	cases := []struct {
		name string
		h    []types.ChatMessage
		want Phase
	}{
		{"empty", nil, Phase{AwaitingAgent: true}},
		{"opening sent", history(vc), Phase{AwaitingFounder: true}},
		{"founder replied", history(vc, founder), Phase{AwaitingAgent: true, TurnsUsed: 1}},
		{"probe sent", history(vc, founder, vc), Phase{AwaitingFounder: true, TurnsUsed: 1}},
		{"three turns", history(vc, founder, vc, founder, vc, founder), Phase{AwaitingAgent: true, TurnsUsed: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PhaseOf(tc.h))
		})
	}
}

func TestNextAction(t *testing.T) {
	assert.Equal(t, Action{Kind: ActionOpening}, NextAction(nil))
	assert.Equal(t, Action{Kind: ActionNone}, NextAction(history(vc)))
	assert.Equal(t, Action{Kind: ActionProbe, Remaining: 2}, NextAction(history(vc, founder)))
	assert.Equal(t, Action{Kind: ActionProbe, Remaining: 1}, NextAction(history(vc, founder, vc, founder)))
	assert.Equal(t, Action{Kind: ActionFinal}, NextAction(history(vc, founder, vc, founder, vc, founder)))
	// A final reply without a verdict leaves the pitch open; the next founder
	// message triggers another final attempt.
	assert.Equal(t, Action{Kind: ActionFinal}, NextAction(history(vc, founder, vc, founder, vc, founder, vc, founder)))
}

func TestSystemPrompt(t *testing.T) {
	p := systemPrompt("You are Kaido.", Action{Kind: ActionProbe, Remaining: 1})
	assert.Contains(t, p, "You are Kaido.")
	assert.Contains(t, p, "1 reply left")
	assert.NotContains(t, p, "[VERDICT]")

	assert.Contains(t, systemPrompt("x", Action{Kind: ActionProbe, Remaining: 2}), "2 replies left")
	assert.Contains(t, systemPrompt("x", Action{Kind: ActionFinal}), "[VERDICT]")
}

func TestBuildMessages(t *testing.T) {
	p := &types.Pitch{StartupName: "Beacon", TwitterHandle: "keeper", Ask: "$500K"}
	msgs := buildMessages(p, history(vc, founder))
	assert.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Startup: Beacon")
	assert.Contains(t, msgs[0].Content, "@keeper")
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "user", msgs[2].Role)
}
