package handlers

import (
	"context"
	"log"
	"strings"

	"vkcopy-bot/internal/locales"

	"github.com/mymmrac/telego"
)

// HandleText processes a non-command text message. The copy flow gets
// first refusal; if the user has no flow in progress the bot replies
// with a short hint.
func (h *MessageHandler) HandleText(ctx context.Context, message telego.Message) error {
	if message.From == nil {
		return nil
	}

	processed, err := h.copyFlow.HandleMessage(ctx, message)
	if err != nil {
		log.Printf("[Text User:%d] Error from copy flow: %v", message.From.ID, err)
		return nil
	}
	if processed {
		h.RecordUserActivity(ctx, message.From, ActionFlowMessage, map[string]interface{}{
			"chat_id": message.Chat.ID,
		})
		return nil
	}

	// Only hint in private chats. In groups the bot stays silent on
	// unrelated chatter.
	if message.Chat.Type != telego.ChatTypePrivate {
		return nil
	}

	localizer := h.getLocalizer(message.From)
	msg := locales.GetMessage(localizer, "MsgErrorUnknownCommand", nil, nil)
	return h.sendSuccess(ctx, message.Chat.ID, msg)
}

// IsCommand reports whether the message text is a bot command and
// returns the bare command name.
func IsCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	command := strings.TrimPrefix(strings.Fields(text)[0], "/")
	// Strip the bot mention in group chats, e.g. /copy@my_bot.
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}
	if command == "" {
		return "", false
	}
	return command, true
}
