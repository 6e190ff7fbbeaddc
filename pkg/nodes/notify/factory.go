// Package notify provides the chat notification node.
package notify

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type NotifyNodeFactory struct{}

func (f *NotifyNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewNotifyNode(id, config)
}

func (f *NotifyNodeFactory) ID() string {
	return "notify"
}

func (f *NotifyNodeFactory) Name() string {
	return "Notify"
}

func (f *NotifyNodeFactory) Description() string {
	return "Sends a templated message to a Telegram chat or Discord channel"
}

func (f *NotifyNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type":        "string",
				"enum":        []string{"telegram", "discord"},
				"description": "Delivery channel",
			},
			"token": map[string]any{
				"type":        "string",
				"description": "Bot token, template-enabled (usually {{.env.TELEGRAM_TOKEN}} or {{.env.DISCORD_TOKEN}})",
			},
			"target": map[string]any{
				"type":        "string",
				"description": "Telegram chat id or Discord channel id",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message text, template-enabled",
			},
		},
		"required": []string{"channel", "token", "target", "message"},
	}
}

func (f *NotifyNodeFactory) HasSideEffect() bool {
	return true
}

func NewNotifyNodeFactory() protocol.NodeFactory {
	return &NotifyNodeFactory{}
}
