package handlers

import (
	"context"
	"log"

	"vkcopy-bot/internal/locales"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// sendSuccess sends a plain text reply to the user.
func (h *MessageHandler) sendSuccess(ctx context.Context, chatID int64, text string) error {
	_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
	return nil
}

// sendError logs the original error and sends a generic localized
// error message. The original error is returned for the main loop.
func (h *MessageHandler) sendError(ctx context.Context, chatID int64, originalErr error) error {
	log.Printf("Error for user in chat %d: %v", chatID, originalErr)

	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	errMsg := locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil)

	if _, sendErr := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), errMsg)); sendErr != nil {
		log.Printf("Error sending generic error message to chat %d: %v", chatID, sendErr)
	}

	return originalErr
}

// getLocalizer determines the best localizer for a given user,
// falling back to the default language.
func (h *MessageHandler) getLocalizer(user *telego.User) *i18n.Localizer {
	lang := locales.GetDefaultLanguageTag().String()
	if user != nil && user.LanguageCode != "" {
		lang = user.LanguageCode
	}
	return locales.NewLocalizer(lang)
}

// RecordUserActivity combines updating user info and logging the action.
func (h *MessageHandler) RecordUserActivity(ctx context.Context, user *telego.User, action string, details map[string]interface{}) {
	if user == nil {
		log.Printf("Attempted to record activity for nil user, action: %s", action)
		return
	}

	if h.userRepo != nil {
		if err := h.userRepo.UpdateUser(ctx, user.ID, user.Username, user.FirstName, user.LastName, false, action); err != nil {
			log.Printf("Error updating user %d (%s) in DB during action %s: %v", user.ID, user.Username, action, err)
		}
	}

	if h.actionLogger != nil {
		if err := h.actionLogger.LogUserAction(user.ID, action, details); err != nil {
			log.Printf("Error logging action %s for user %d (%s): %v", action, user.ID, user.Username, err)
		}
	}
}
