// Package copyflow collects copy-job parameters from users, either
// step by step in a conversation or from a one-shot /copy command, and
// runs the resulting job.
package copyflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"vkcopy-bot/internal/auth"
	"vkcopy-bot/internal/copier"
	"vkcopy-bot/internal/database"
	"vkcopy-bot/internal/database/models"
	"vkcopy-bot/internal/locales"
	"vkcopy-bot/internal/vk"

	"vkcopy-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// GroupResolver validates a group token against the remote service.
// Implemented by *vk.Client.
type GroupResolver interface {
	ResolveGroup(ctx context.Context, token string) (vk.OwnerID, error)
}

// JobRunner runs one assembled copy job. Implemented by *copier.Copier.
type JobRunner interface {
	Run(ctx context.Context, params copier.Params, progress copier.ProgressFunc) (copier.Report, error)
}

// Manager owns the per-user conversational state for the copy and
// setchat flows.
type Manager struct {
	userSessions map[int64]session
	muSessions   sync.RWMutex

	bot          telegoapi.BotAPI
	resolver     GroupResolver
	runner       JobRunner
	targetChats  database.TargetChatRepository
	adminChecker auth.Checker
}

// NewManager creates a new copy flow manager.
func NewManager(
	bot telegoapi.BotAPI,
	resolver GroupResolver,
	runner JobRunner,
	targetChats database.TargetChatRepository,
	adminChecker auth.Checker,
) *Manager {
	if bot == nil {
		log.Fatal("Copy flow Manager: BotAPI instance is nil")
	}
	if resolver == nil {
		log.Fatal("Copy flow Manager: group resolver is nil")
	}
	if runner == nil {
		log.Fatal("Copy flow Manager: job runner is nil")
	}
	if targetChats == nil {
		log.Fatal("Copy flow Manager: target chat repository is nil")
	}
	if adminChecker == nil {
		log.Fatal("Copy flow Manager: admin checker is nil")
	}

	return &Manager{
		userSessions: make(map[int64]session),
		bot:          bot,
		resolver:     resolver,
		runner:       runner,
		targetChats:  targetChats,
		adminChecker: adminChecker,
	}
}

// GetUserState returns the user's current flow state.
func (m *Manager) GetUserState(userID int64) UserState {
	m.muSessions.RLock()
	defer m.muSessions.RUnlock()
	return m.userSessions[userID].state
}

// sessionFor returns a copy of the user's session, zero-valued when no
// flow is in progress. Sessions are stored by value and only ever
// written back through setSession, so all access stays behind the
// mutex.
func (m *Manager) sessionFor(userID int64) session {
	m.muSessions.RLock()
	defer m.muSessions.RUnlock()
	return m.userSessions[userID]
}

func (m *Manager) setSession(userID int64, s session) {
	m.muSessions.Lock()
	defer m.muSessions.Unlock()
	m.userSessions[userID] = s
}

func (m *Manager) clearSession(userID int64) {
	m.muSessions.Lock()
	defer m.muSessions.Unlock()
	delete(m.userSessions, userID)
}

// HandleCopyCommand handles /copy. With arguments it runs a one-shot
// job immediately; bare, it starts the step-by-step flow.
func (m *Manager) HandleCopyCommand(ctx context.Context, message telego.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	localizer := m.localizerFor(message.From)

	if m.GetUserState(userID) == StateCopying {
		msg := locales.GetMessage(localizer, "MsgCopyAlreadyRunning", nil, nil)
		_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return err
	}

	args := strings.Fields(message.Text)[1:]
	if len(args) > 0 {
		return m.runOneShot(ctx, message, args)
	}

	m.setSession(userID, session{state: StateAwaitingGroup})

	msg := locales.GetMessage(localizer, "MsgCopyAskGroup", nil, nil)
	_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
	return err
}

// HandleSetChatCommand handles /setchat: prompts for a chat id,
// private chats only.
func (m *Manager) HandleSetChatCommand(ctx context.Context, message telego.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	localizer := m.localizerFor(message.From)

	if message.Chat.Type != telego.ChatTypePrivate {
		msg := locales.GetMessage(localizer, "MsgSetChatPrivateOnly", nil, nil)
		_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return err
	}

	current := ""
	if saved, err := m.targetChats.GetTargetChat(ctx); err == nil {
		current = locales.GetMessage(localizer, "MsgSetChatCurrent", map[string]interface{}{"ChatID": saved}, nil)
	}

	m.setSession(userID, session{state: StateAwaitingChatID})

	msg := locales.GetMessage(localizer, "MsgSetChatPrompt", map[string]interface{}{"Current": current}, nil)
	_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
	return err
}

// HandleCancelCommand handles /cancel and clears whatever flow the
// user is in. A job already dispatching runs to completion.
func (m *Manager) HandleCancelCommand(ctx context.Context, message telego.Message) error {
	userID := message.From.ID
	localizer := m.localizerFor(message.From)

	m.clearSession(userID)

	msg := locales.GetMessage(localizer, "MsgCopyCancelled", nil, nil)
	_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), msg))
	return err
}

// runOneShot parses "/copy <group> <from> <to> [count]" and runs the
// job immediately. Arguments arrive pre-assembled (e.g. from a web
// form), so a malformed value just reports usage and aborts.
func (m *Manager) runOneShot(ctx context.Context, message telego.Message, args []string) error {
	chatID := message.Chat.ID
	localizer := m.localizerFor(message.From)

	usage := func() error {
		msg := locales.GetMessage(localizer, "MsgCopyUsage", nil, nil)
		_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return err
	}

	if len(args) < 3 || len(args) > 4 {
		return usage()
	}

	start, err := time.Parse(dateLayout, args[1])
	if err != nil {
		return usage()
	}
	end, err := time.Parse(dateLayout, args[2])
	if err != nil {
		return usage()
	}
	count := defaultCount
	if len(args) == 4 {
		count, err = strconv.Atoi(args[3])
		if err != nil || count < 1 || count > maxCount {
			return usage()
		}
	}

	s := session{
		state:      StateCopying,
		groupToken: args[0],
		start:      start,
		end:        endOfDay(end),
	}
	m.setSession(message.From.ID, s)

	return m.runJob(ctx, message, s, count)
}

// localizerFor builds a localizer from the user's Telegram language
// code, falling back to the default language.
func (m *Manager) localizerFor(user *telego.User) *i18n.Localizer {
	lang := locales.GetDefaultLanguageTag().String()
	if user != nil && user.LanguageCode != "" {
		return locales.NewLocalizer(user.LanguageCode, lang)
	}
	return locales.NewLocalizer(lang)
}

// endOfDay extends an end-date bound through 23:59:59 of its calendar
// day so the range is inclusive.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// sendCopyError reports a failed job to the user and Sentry.
func (m *Manager) sendCopyError(ctx context.Context, chatID int64, localizer *i18n.Localizer, err error) {
	if !errors.Is(err, vk.ErrGroupNotFound) {
		sentry.CaptureException(fmt.Errorf("copy job failed: %w", err))
	}
	msgID := "MsgCopyFailed"
	if errors.Is(err, vk.ErrGroupNotFound) {
		msgID = "MsgCopyGroupNotFound"
	}
	msg := locales.GetMessage(localizer, msgID, nil, nil)
	if _, sendErr := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg)); sendErr != nil {
		log.Printf("[CopyFlow Chat:%d] Failed to send job error message: %v", chatID, sendErr)
	}
}

// destinationChat picks the saved default chat, falling back to the
// chat the command came from.
func (m *Manager) destinationChat(ctx context.Context, conversationChatID int64) string {
	saved, err := m.targetChats.GetTargetChat(ctx)
	if err == nil && saved != "" {
		return saved
	}
	if err != nil && !errors.Is(err, database.ErrTargetChatNotSet) {
		log.Printf("[CopyFlow] Failed to load target chat, using conversation chat: %v", err)
	}
	return strconv.FormatInt(conversationChatID, 10)
}

// saveTargetChat persists a validated chat id.
func (m *Manager) saveTargetChat(ctx context.Context, user *telego.User, chatIDText string) error {
	chat := models.TargetChat{
		ChatID: chatIDText,
		SetBy:  user.ID,
	}
	if user.Username != "" {
		chat.SetByName = user.Username
	}
	return m.targetChats.SetTargetChat(ctx, chat)
}
