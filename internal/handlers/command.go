package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"vkcopy-bot/internal/database"
	"vkcopy-bot/internal/locales"

	"github.com/mymmrac/telego"
)

// HandleStart handles the /start command.
// It registers the bot commands, records the user, and sends a welcome message.
func (h *MessageHandler) HandleStart(ctx context.Context, message telego.Message) error {
	if err := h.SetupCommands(ctx); err != nil {
		return h.sendError(ctx, message.Chat.ID, fmt.Errorf("failed to set up commands: %w", err))
	}

	localizer := h.getLocalizer(message.From)

	h.RecordUserActivity(ctx, message.From, ActionCommandStart, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})

	startMsg := locales.GetMessage(localizer, "MsgStart", nil, nil)
	return h.sendSuccess(ctx, message.Chat.ID, startMsg)
}

// HandleHelp handles the /help command. It lists every command with
// its localized description.
func (h *MessageHandler) HandleHelp(ctx context.Context, message telego.Message) error {
	localizer := h.getLocalizer(message.From)

	var helpText strings.Builder
	helpText.WriteString(locales.GetMessage(localizer, "MsgHelpHeader", nil, nil) + "\n")
	for _, cmd := range h.commands {
		localizedDesc := locales.GetMessage(localizer, cmd.Description, nil, nil)
		helpText.WriteString(fmt.Sprintf("/%s - %s\n", cmd.Command, localizedDesc))
	}
	helpText.WriteString(locales.GetMessage(localizer, "MsgHelpFooter", nil, nil))

	h.RecordUserActivity(ctx, message.From, ActionCommandHelp, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})

	return h.sendSuccess(ctx, message.Chat.ID, helpText.String())
}

// HandleStatus handles the /status command. It reports the API version
// in use and the saved destination chat.
func (h *MessageHandler) HandleStatus(ctx context.Context, message telego.Message) error {
	localizer := h.getLocalizer(message.From)

	targetChat, err := h.targetChats.GetTargetChat(ctx)
	if err != nil {
		if !errors.Is(err, database.ErrTargetChatNotSet) {
			log.Printf("[Cmd:status User:%d] Failed to load target chat: %v", message.From.ID, err)
		}
		targetChat = locales.GetMessage(localizer, "MsgGetChatNotSet", nil, nil)
	}

	statusText := locales.GetMessage(localizer, "MsgStatus", map[string]interface{}{
		"VKVersion":  h.vkVersion,
		"TargetChat": targetChat,
	}, nil)

	h.RecordUserActivity(ctx, message.From, ActionCommandStatus, map[string]interface{}{
		"chat_id":     message.Chat.ID,
		"target_chat": targetChat,
	})

	return h.sendSuccess(ctx, message.Chat.ID, statusText)
}

// HandleVersion handles the /version command.
func (h *MessageHandler) HandleVersion(ctx context.Context, message telego.Message) error {
	localizer := h.getLocalizer(message.From)

	versionText := locales.GetMessage(localizer, "MsgVersion", map[string]interface{}{
		"Version": h.version,
	}, nil)

	h.RecordUserActivity(ctx, message.From, ActionCommandVersion, map[string]interface{}{
		"chat_id": message.Chat.ID,
		"version": h.version,
	})

	return h.sendSuccess(ctx, message.Chat.ID, versionText)
}

// HandleCopy delegates /copy to the copy flow manager.
func (h *MessageHandler) HandleCopy(ctx context.Context, message telego.Message) error {
	h.RecordUserActivity(ctx, message.From, ActionCommandCopy, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})
	if err := h.copyFlow.HandleCopyCommand(ctx, message); err != nil {
		log.Printf("[Cmd:copy User:%d] Error from copy flow: %v", message.From.ID, err)
		return nil
	}
	return nil
}

// HandleCancel delegates /cancel to the copy flow manager.
func (h *MessageHandler) HandleCancel(ctx context.Context, message telego.Message) error {
	h.RecordUserActivity(ctx, message.From, ActionCommandCancel, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})
	if err := h.copyFlow.HandleCancelCommand(ctx, message); err != nil {
		log.Printf("[Cmd:cancel User:%d] Error from copy flow: %v", message.From.ID, err)
		return nil
	}
	return nil
}

// HandleSetChat delegates /setchat to the copy flow manager, which
// owns the chat id intake conversation.
func (h *MessageHandler) HandleSetChat(ctx context.Context, message telego.Message) error {
	h.RecordUserActivity(ctx, message.From, ActionCommandSetChat, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})
	if err := h.copyFlow.HandleSetChatCommand(ctx, message); err != nil {
		log.Printf("[Cmd:setchat User:%d] Error from copy flow: %v", message.From.ID, err)
		return nil
	}
	return nil
}

// HandleGetChat handles /getchat and reports the saved destination chat.
func (h *MessageHandler) HandleGetChat(ctx context.Context, message telego.Message) error {
	localizer := h.getLocalizer(message.From)

	h.RecordUserActivity(ctx, message.From, ActionCommandGetChat, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})

	chatID, err := h.targetChats.GetTargetChat(ctx)
	if err != nil {
		if errors.Is(err, database.ErrTargetChatNotSet) {
			msg := locales.GetMessage(localizer, "MsgGetChatNotSet", nil, nil)
			return h.sendSuccess(ctx, message.Chat.ID, msg)
		}
		return h.sendError(ctx, message.Chat.ID, fmt.Errorf("failed to load target chat: %w", err))
	}

	msg := locales.GetMessage(localizer, "MsgGetChatCurrent", map[string]interface{}{
		"ChatID": chatID,
	}, nil)
	return h.sendSuccess(ctx, message.Chat.ID, msg)
}

// HandleClearChat handles /clearchat and removes the saved destination
// chat, so later jobs deliver into the conversation chat again.
func (h *MessageHandler) HandleClearChat(ctx context.Context, message telego.Message) error {
	localizer := h.getLocalizer(message.From)

	h.RecordUserActivity(ctx, message.From, ActionCommandClearChat, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})

	if err := h.targetChats.ClearTargetChat(ctx); err != nil {
		return h.sendError(ctx, message.Chat.ID, fmt.Errorf("failed to clear target chat: %w", err))
	}

	msg := locales.GetMessage(localizer, "MsgClearChatDone", nil, nil)
	return h.sendSuccess(ctx, message.Chat.ID, msg)
}

// SetupCommands registers the bot's commands with Telegram, with
// descriptions localized to the default language.
func (h *MessageHandler) SetupCommands(ctx context.Context) error {
	if len(h.commands) == 0 {
		log.Println("No commands defined in handler, skipping SetMyCommands.")
		return nil
	}

	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	commands := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		localizedDesc := locales.GetMessage(localizer, cmd.Description, nil, nil)
		commands = append(commands, telego.BotCommand{
			Command:     cmd.Command,
			Description: localizedDesc,
		})
	}

	err := h.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	log.Printf("Successfully set %d bot commands.", len(commands))
	return nil
}
