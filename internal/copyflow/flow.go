package copyflow

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"vkcopy-bot/internal/copier"
	"vkcopy-bot/internal/locales"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// HandleMessage routes a plain text message through the active flow.
// It returns false when the user has no flow in progress, letting the
// caller treat the message as unrelated chatter.
func (m *Manager) HandleMessage(ctx context.Context, message telego.Message) (bool, error) {
	if message.From == nil {
		return false, nil
	}
	userID := message.From.ID

	state := m.GetUserState(userID)
	switch state {
	case StateAwaitingGroup:
		return true, m.processGroupStep(ctx, message)
	case StateAwaitingStartDate:
		return true, m.processStartDateStep(ctx, message)
	case StateAwaitingEndDate:
		return true, m.processEndDateStep(ctx, message)
	case StateAwaitingCount:
		return true, m.processCountStep(ctx, message)
	case StateAwaitingChatID:
		return true, m.processChatIDStep(ctx, message)
	case StateCopying:
		localizer := m.localizerFor(message.From)
		msg := locales.GetMessage(localizer, "MsgCopyAlreadyRunning", nil, nil)
		_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), msg))
		return true, err
	default:
		return false, nil
	}
}

// processGroupStep validates the supplied group token against the API
// before moving on, so a typo surfaces immediately rather than after
// the dates are entered.
func (m *Manager) processGroupStep(ctx context.Context, message telego.Message) error {
	chatID := message.Chat.ID
	localizer := m.localizerFor(message.From)
	token := strings.TrimSpace(message.Text)

	checking := locales.GetMessage(localizer, "MsgCopyCheckingGroup", map[string]interface{}{"Group": token}, nil)
	if _, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), checking)); err != nil {
		log.Printf("[CopyFlow Chat:%d] Failed to send checking message: %v", chatID, err)
	}

	if _, err := m.resolver.ResolveGroup(ctx, token); err != nil {
		msg := locales.GetMessage(localizer, "MsgCopyGroupNotFound", nil, nil)
		_, sendErr := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return sendErr
	}

	s := m.sessionFor(message.From.ID)
	s.groupToken = token
	s.state = StateAwaitingStartDate
	m.setSession(message.From.ID, s)

	msg := locales.GetMessage(localizer, "MsgCopyAskStartDate", nil, nil)
	_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
	return err
}

func (m *Manager) processStartDateStep(ctx context.Context, message telego.Message) error {
	chatID := message.Chat.ID
	localizer := m.localizerFor(message.From)

	start, err := time.Parse(dateLayout, strings.TrimSpace(message.Text))
	if err != nil {
		msg := locales.GetMessage(localizer, "MsgCopyInvalidDate", nil, nil)
		_, sendErr := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return sendErr
	}

	s := m.sessionFor(message.From.ID)
	s.start = start
	s.state = StateAwaitingEndDate
	m.setSession(message.From.ID, s)

	msg := locales.GetMessage(localizer, "MsgCopyAskEndDate",
		map[string]interface{}{"Date": start.Format(dateLayout)}, nil)
	_, err = m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
	return err
}

func (m *Manager) processEndDateStep(ctx context.Context, message telego.Message) error {
	chatID := message.Chat.ID
	localizer := m.localizerFor(message.From)

	end, err := time.Parse(dateLayout, strings.TrimSpace(message.Text))
	if err != nil {
		msg := locales.GetMessage(localizer, "MsgCopyInvalidDate", nil, nil)
		_, sendErr := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return sendErr
	}

	s := m.sessionFor(message.From.ID)
	if end.Before(s.start) {
		msg := locales.GetMessage(localizer, "MsgCopyEndBeforeStart", nil, nil)
		_, sendErr := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return sendErr
	}
	s.end = endOfDay(end)
	s.state = StateAwaitingCount
	m.setSession(message.From.ID, s)

	msg := locales.GetMessage(localizer, "MsgCopyAskCount",
		map[string]interface{}{"Date": end.Format(dateLayout)}, nil)
	_, err = m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
	return err
}

// processCountStep is the last intake step. An unparsable count falls
// back to the default instead of re-prompting, matching how sloppy
// input is treated once the hard parameters are in.
func (m *Manager) processCountStep(ctx context.Context, message telego.Message) error {
	count := defaultCount
	if n, err := strconv.Atoi(strings.TrimSpace(message.Text)); err == nil && n >= 1 && n <= maxCount {
		count = n
	}

	s := m.sessionFor(message.From.ID)
	s.state = StateCopying
	m.setSession(message.From.ID, s)

	return m.runJob(ctx, message, s, count)
}

// processChatIDStep validates and saves the default destination chat.
func (m *Manager) processChatIDStep(ctx context.Context, message telego.Message) error {
	chatID := message.Chat.ID
	localizer := m.localizerFor(message.From)
	text := strings.TrimSpace(message.Text)

	target, ok := parseChatIDText(text)
	if !ok {
		msg := locales.GetMessage(localizer, "MsgSetChatInvalidID", nil, nil)
		_, sendErr := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return sendErr
	}

	isAdmin, err := m.adminChecker.IsChatAdmin(ctx, target, message.From.ID)
	if err != nil {
		log.Printf("[CopyFlow User:%d] Admin check for %q failed: %v", message.From.ID, text, err)
		sentry.CaptureException(fmt.Errorf("admin check for target chat %q failed: %w", text, err))
	}
	if !isAdmin {
		msg := locales.GetMessage(localizer, "MsgSetChatRequiresAdmin", nil, nil)
		_, sendErr := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return sendErr
	}

	if err := m.saveTargetChat(ctx, message.From, text); err != nil {
		sentry.CaptureException(fmt.Errorf("failed to save target chat: %w", err))
		msg := locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil)
		_, sendErr := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
		return sendErr
	}

	m.clearSession(message.From.ID)

	msg := locales.GetMessage(localizer, "MsgSetChatSaved", nil, nil)
	_, err = m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
	return err
}

// parseChatIDText accepts a numeric chat id or an @username.
func parseChatIDText(text string) (telego.ChatID, bool) {
	if text == "" {
		return telego.ChatID{}, false
	}
	if strings.HasPrefix(text, "@") && len(text) > 1 {
		return tu.Username(text), true
	}
	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return tu.ID(id), true
	}
	return telego.ChatID{}, false
}

// runJob executes the assembled job and reports progress back into the
// conversation chat. The session stays in StateCopying for the
// duration so a second /copy cannot start concurrently.
func (m *Manager) runJob(ctx context.Context, message telego.Message, s session, count int) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	localizer := m.localizerFor(message.From)
	defer m.clearSession(userID)

	destination := m.destinationChat(ctx, chatID)

	starting := locales.GetMessage(localizer, "MsgCopyStarting", map[string]interface{}{
		"Group": s.groupToken,
		"Start": s.start.Format(dateLayout),
		"End":   s.end.Format(dateLayout),
		"Count": count,
		"Chat":  destination,
	}, nil)
	if _, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), starting)); err != nil {
		log.Printf("[CopyFlow Chat:%d] Failed to send starting message: %v", chatID, err)
	}

	start := s.start
	end := s.end
	params := copier.Params{
		GroupToken: s.groupToken,
		Start:      &start,
		End:        &end,
		Count:      count,
		ChatID:     destination,
	}

	progress := func(succeeded, processed, total int) {
		msg := locales.GetMessage(localizer, "MsgCopyProgress", map[string]interface{}{
			"Processed": processed,
			"Total":     total,
			"Succeeded": succeeded,
		}, nil)
		if _, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg)); err != nil {
			log.Printf("[CopyFlow Chat:%d] Failed to send progress message: %v", chatID, err)
		}
	}

	report, err := m.runner.Run(ctx, params, progress)
	if err != nil {
		m.sendCopyError(ctx, chatID, localizer, err)
		return nil
	}

	msgID := "MsgCopyDone"
	data := map[string]interface{}{
		"Succeeded": report.Succeeded,
		"Total":     report.Total,
	}
	if report.Total == 0 {
		msgID = "MsgCopyNoPosts"
		data = nil
	}
	msg := locales.GetMessage(localizer, msgID, data, nil)
	_, err = m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), msg))
	return err
}
