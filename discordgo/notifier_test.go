package discordgo

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/enfoque/notify"
)

type mockSender struct {
	channelMessageSendEmbedFunc func(string, *discordgo.MessageEmbed, ...discordgo.RequestOption) (*discordgo.Message, error)
}

func (m *mockSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.channelMessageSendEmbedFunc != nil {
		return m.channelMessageSendEmbedFunc(channelID, embed, options...)
	}
	return &discordgo.Message{ID: "m1"}, nil
}

func TestNotifier_Notify(t *testing.T) {
	var (
		gotChannel string
		gotEmbed   *discordgo.MessageEmbed
		gotOptions int
	)
	sender := &mockSender{
		channelMessageSendEmbedFunc: func(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
			gotChannel, gotEmbed, gotOptions = channelID, embed, len(options)
			return &discordgo.Message{ID: "m1"}, nil
		},
	}
	n := NewNotifier(sender, "c1", log.Default())

	err := n.Notify(context.Background(), notify.Notification{
		Title: "Recordatorio de Tarea",
		Body:  "Escribir informe - ¡Es hora de empezar!",
		Tag:   "r1",
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", gotChannel)
	assert.Equal(t, "Recordatorio de Tarea", gotEmbed.Title)
	assert.Equal(t, "Escribir informe - ¡Es hora de empezar!", gotEmbed.Description)
	require.NotNil(t, gotEmbed.Footer)
	assert.Equal(t, "r1", gotEmbed.Footer.Text)
	assert.Equal(t, 1, gotOptions, "request carries the context")
}

func TestNotifier_NotifyError(t *testing.T) {
	sender := &mockSender{
		channelMessageSendEmbedFunc: func(string, *discordgo.MessageEmbed, ...discordgo.RequestOption) (*discordgo.Message, error) {
			return nil, errors.New("HTTP 403 Forbidden")
		},
	}
	err := NewNotifier(sender, "c1", log.Default()).Notify(context.Background(), notify.Notification{Title: "x"})
	assert.ErrorContains(t, err, "403")
}

func TestNewClient(t *testing.T) {
	cl, err := NewClient("token", "enfoque (v0.0.0)")
	require.NoError(t, err)
	assert.Equal(t, "Bot token", cl.Token)
	assert.Equal(t, "enfoque (v0.0.0)", cl.UserAgent)
	assert.False(t, cl.ShouldRetryOnRateLimit)
}
