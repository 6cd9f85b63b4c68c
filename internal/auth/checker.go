package auth

import (
	"context"
	"fmt"
	"log"
	"strings"

	"vkcopy-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// Checker interface for admin checks, allows mocking in tests.
type Checker interface {
	IsChatAdmin(ctx context.Context, chat telego.ChatID, userID int64) (bool, error)
}

// AdminChecker verifies a user's admin status in an arbitrary chat.
// Used to make sure whoever saves a default destination chat actually
// administers it.
type AdminChecker struct {
	bot telegoapi.BotAPI
}

// NewAdminChecker creates a new AdminChecker.
func NewAdminChecker(bot telegoapi.BotAPI) (*AdminChecker, error) {
	if bot == nil {
		return nil, fmt.Errorf("bot instance cannot be nil")
	}
	return &AdminChecker{bot: bot}, nil
}

// IsChatAdmin checks if a user is an administrator or creator of the
// given chat.
func (ac *AdminChecker) IsChatAdmin(ctx context.Context, chat telego.ChatID, userID int64) (bool, error) {
	member, err := ac.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: chat,
		UserID: userID,
	})
	if err != nil {
		// A user not found in the chat is simply not an admin.
		// API errors (network, permissions) should be returned.
		if strings.Contains(strings.ToLower(err.Error()), "user not found") {
			return false, nil
		}
		log.Printf("[AdminCheck User:%d] Error checking chat member: %v. Assuming non-admin.", userID, err)
		return false, fmt.Errorf("failed to get chat member info: %w", err)
	}

	status := member.MemberStatus()
	return status == telego.MemberStatusCreator || status == telego.MemberStatusAdministrator, nil
}
