package handlers

import (
	"context"
	"log"

	"vkcopy-bot/internal/copyflow"
	"vkcopy-bot/internal/database"
	"vkcopy-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// Action types for logging and user updates
const (
	ActionCommandStart     = "command_start"
	ActionCommandHelp      = "command_help"
	ActionCommandStatus    = "command_status"
	ActionCommandVersion   = "command_version"
	ActionCommandCopy      = "command_copy"
	ActionCommandCancel    = "command_cancel"
	ActionCommandSetChat   = "command_setchat"
	ActionCommandGetChat   = "command_getchat"
	ActionCommandClearChat = "command_clearchat"
	ActionFlowMessage      = "flow_message"
)

// Command maps a command string to its description key and handler.
type Command struct {
	Command     string // The command string (e.g., "start").
	Description string // Localization key of the command description for /help.
	Handler     func(context.Context, telego.Message) error
}

// MessageHandler handles incoming Telegram messages. Commands are
// dispatched through the commands table; plain text is offered to the
// copy flow manager, which owns the per-user conversation state.
type MessageHandler struct {
	bot       telegoapi.BotAPI
	version   string
	vkVersion string

	// commands holds the list of available bot commands.
	commands []Command

	targetChats  database.TargetChatRepository
	actionLogger database.UserActionLogger
	userRepo     database.UserRepository
	copyFlow     *copyflow.Manager
}

// NewMessageHandler creates and initializes a new MessageHandler instance.
func NewMessageHandler(
	bot telegoapi.BotAPI,
	version string,
	vkVersion string,
	targetChats database.TargetChatRepository,
	actionLogger database.UserActionLogger,
	userRepo database.UserRepository,
	copyFlow *copyflow.Manager,
) *MessageHandler {
	if bot == nil {
		log.Fatal("MessageHandler: BotAPI dependency is nil")
	}
	if copyFlow == nil {
		log.Fatal("MessageHandler: copy flow manager dependency is nil")
	}
	if targetChats == nil {
		log.Fatal("MessageHandler: target chat repository dependency is nil")
	}
	h := &MessageHandler{
		bot:          bot,
		version:      version,
		vkVersion:    vkVersion,
		targetChats:  targetChats,
		actionLogger: actionLogger,
		userRepo:     userRepo,
		copyFlow:     copyFlow,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Handler: h.HandleStart},
		{Command: "help", Description: "CmdHelpDesc", Handler: h.HandleHelp},
		{Command: "status", Description: "CmdStatusDesc", Handler: h.HandleStatus},
		{Command: "version", Description: "CmdVersionDesc", Handler: h.HandleVersion},
		{Command: "copy", Description: "CmdCopyDesc", Handler: h.HandleCopy},
		{Command: "cancel", Description: "CmdCancelDesc", Handler: h.HandleCancel},
		{Command: "setchat", Description: "CmdSetChatDesc", Handler: h.HandleSetChat},
		{Command: "getchat", Description: "CmdGetChatDesc", Handler: h.HandleGetChat},
		{Command: "clearchat", Description: "CmdClearChatDesc", Handler: h.HandleClearChat},
	}
	return h
}

// GetCommandHandler retrieves the handler for a command string (e.g.
// "start"). It returns nil if the command is not found.
func (h *MessageHandler) GetCommandHandler(command string) func(context.Context, telego.Message) error {
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return cmd.Handler
		}
	}
	return nil
}

// Commands returns the configured command table.
func (h *MessageHandler) Commands() []Command {
	return h.commands
}
