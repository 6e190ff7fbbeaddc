// Package notify provides the chat notification node.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/go-telegram/bot"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/template"
)

const (
	ChannelTelegram = "telegram"
	ChannelDiscord  = "discord"
)

// NotifyNode delivers a rendered message through a chat channel. The token
// and message are rendered per execution so credentials stay out of stored
// workflow documents.
type NotifyNode struct {
	id      string
	channel string
	token   string
	target  string
	message string
}

func NewNotifyNode(id string, config map[string]any) (*NotifyNode, error) {
	channel, ok := config["channel"].(string)
	if !ok || channel == "" {
		return nil, errors.New("missing required field 'channel'")
	}

	if channel != ChannelTelegram && channel != ChannelDiscord {
		return nil, fmt.Errorf("invalid channel %q, must be 'telegram' or 'discord'", channel)
	}

	token, ok := config["token"].(string)
	if !ok || token == "" {
		return nil, errors.New("missing required field 'token'")
	}

	target, ok := config["target"].(string)
	if !ok || target == "" {
		return nil, errors.New("missing required field 'target'")
	}

	message, ok := config["message"].(string)
	if !ok || message == "" {
		return nil, errors.New("missing required field 'message'")
	}

	return &NotifyNode{
		id:      id,
		channel: channel,
		token:   token,
		target:  target,
		message: message,
	}, nil
}

func (n *NotifyNode) ID() string {
	return n.id
}

func (n *NotifyNode) Type() string {
	return "notify"
}

func (n *NotifyNode) Execute(ctx context.Context, ec models.ExecutionContext, _ map[string]any) (map[string]any, error) {
	renderedMessage, err := template.RenderWithContext(n.message, &ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}

	renderedToken, err := template.RenderWithContext(n.token, &ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render token: %w", err)
	}

	text := fmt.Sprintf("%v", renderedMessage)
	token := fmt.Sprintf("%v", renderedToken)

	switch n.channel {
	case ChannelTelegram:
		if err := n.sendTelegram(ctx, token, text); err != nil {
			return nil, err
		}
	case ChannelDiscord:
		if err := n.sendDiscord(token, text); err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"channel":   n.channel,
		"target":    n.target,
		"delivered": true,
	}, nil
}

func (n *NotifyNode) sendTelegram(ctx context.Context, token, text string) error {
	chatID, err := strconv.ParseInt(n.target, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram target must be a numeric chat id: %w", err)
	}

	tgBot, err := bot.New(token)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	_, err = tgBot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	return nil
}

func (n *NotifyNode) sendDiscord(token, text string) error {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	defer session.Close()

	if _, err := session.ChannelMessageSend(n.target, text); err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}

	return nil
}
