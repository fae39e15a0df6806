package announce

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/getfunded/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	channel string
	sent    *discordgo.MessageSend
}

func (c *captureSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	c.channel, c.sent = channelID, data
	return &discordgo.Message{ID: "1"}, nil
}

func TestFundedEmbed(t *testing.T) {
	score, valuation, tx := 9.5, "$3M", "0xabc"
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &types.Pitch{
		StartupName: "Beacon", OneLiner: "Uber for lighthouses", TwitterHandle: "keeper",
		Score: &score, Valuation: &valuation, TxHash: &tx, FundedAt: &at,
	}

	cs := &captureSender{}
	require.NoError(t, NewDiscordWithSender(cs, "chan").Funded(context.Background(), p, 8))

	assert.Equal(t, "chan", cs.channel)
	require.Len(t, cs.sent.Embeds, 1)
	e := cs.sent.Embeds[0]
	assert.Equal(t, "Funded: Beacon", e.Title)
	assert.Equal(t, explorerTxURL+"0xabc", e.URL)
	assert.Equal(t, "2026-05-01T12:00:00Z", e.Timestamp)

	values := map[string]string{}
	for _, f := range e.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, map[string]string{
		"Amount": "$8 USDC", "Score": "9.5/10", "Valuation": "$3M", "Founder": "@keeper",
	}, values)
}

func TestNewDiscordRequiresConfig(t *testing.T) {
	_, err := NewDiscord("", "chan")
	assert.Error(t, err)
	_, err = NewDiscord("token", " ")
	assert.Error(t, err)
}
