// Package discordgo provides Discord API adapters using package github.com/bwmarrin/discordgo
package discordgo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/enfoque/notify"
)

const embedColor = 0xE2563B

type messageSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// discordgoNotifier posts notifications as embeds to a single channel.
type discordgoNotifier struct {
	cl        messageSender
	channelID string
	l         *log.Logger
}

// NewClient returns a REST-only bot client. No gateway connection is opened.
func NewClient(token, userAgent string) (*discordgo.Session, error) {
	cl, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	cl.ShouldRetryOnRateLimit = false
	cl.Client = &http.Client{Timeout: 20 * time.Second}
	cl.UserAgent = userAgent
	return cl, nil
}

func NewNotifier(cl messageSender, channelID string, logger *log.Logger) *discordgoNotifier {
	return &discordgoNotifier{
		cl:        cl,
		channelID: channelID,
		l:         logger,
	}
}

func (n *discordgoNotifier) Notify(ctx context.Context, msg notify.Notification) error {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       embedColor,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if msg.Tag != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: msg.Tag}
	}
	m, err := n.cl.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send discord message to channel %s: %w", n.channelID, err)
	}
	n.l.Debug("sent discord notification", "channelID", n.channelID, "messageID", m.ID, "tag", msg.Tag)
	return nil
}

var _ notify.Notifier = (*discordgoNotifier)(nil)
