// Package announce posts funded pitches to a Discord channel.
package announce

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/getfunded/src/api/types"
)

const (
	explorerTxURL = "https://basescan.org/tx/"
	fundedColor   = 0x2ecc71
)

// Sender is the slice of discordgo.Session the announcer uses.
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Discord struct {
	session   Sender
	channelID string
}

// NewDiscord creates a REST-only bot session; no gateway connection is opened.
func NewDiscord(token, channelID string) (*Discord, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("announce: discord token and channel are required")
	}
	s, err := discordgo.New("Bot " + strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("announce: discord session: %w", err)
	}
	return &Discord{session: s, channelID: channelID}, nil
}

func NewDiscordWithSender(s Sender, channelID string) *Discord {
	return &Discord{session: s, channelID: channelID}
}

func (d *Discord) Funded(ctx context.Context, p *types.Pitch, amount int) error {
	_, err := d.session.ChannelMessageSendComplex(d.channelID, fundedMessage(p, amount), discordgo.WithContext(ctx))
	return err
}

func fundedMessage(p *types.Pitch, amount int) *discordgo.MessageSend {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Amount", Value: fmt.Sprintf("$%d USDC", amount), Inline: true},
	}
	if p.Score != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Score", Value: fmt.Sprintf("%.1f/10", *p.Score), Inline: true})
	}
	if p.Valuation != nil && *p.Valuation != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Valuation", Value: *p.Valuation, Inline: true})
	}
	if p.TwitterHandle != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Founder", Value: "@" + p.TwitterHandle, Inline: true})
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Funded: " + p.StartupName,
		Description: p.OneLiner,
		Color:       fundedColor,
		Fields:      fields,
	}
	if p.TxHash != nil {
		embed.URL = explorerTxURL + *p.TxHash
	}
	if p.FundedAt != nil {
		embed.Timestamp = p.FundedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
}
