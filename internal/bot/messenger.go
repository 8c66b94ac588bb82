package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/logger"
	"github.com/artur/pogoda-bot/internal/service"
)

// Deliver отправляет ответ в чат. tgbotapi не принимает context,
// ctx используется только для логгера.
func (b *Bot) Deliver(ctx context.Context, chatID int64, r service.Reply) error {
	if r.Empty() {
		return nil
	}

	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(r.Keyboard) > 0 {
		msg.ReplyMarkup = inlineKeyboard(r.Keyboard)
	}

	if _, err := b.api.Send(msg); err != nil {
		logger.From(ctx).Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// AnswerCallback закрывает «часики» на кнопке, при alert - всплывающим окном.
func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// EditText заменяет текст сообщения, убирая клавиатуру.
func (b *Bot) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if _, err := b.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// IsMember проверяет подписку на канал. Любая ошибка означает «не подписан».
func (b *Bot) IsMember(ctx context.Context, userID int64) bool {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: b.channel,
			UserID:             userID,
		},
	})
	if err != nil {
		logger.From(ctx).Debug("membership check failed", zap.String("channel", b.channel), zap.Error(err))
		return false
	}

	switch member.Status {
	case "creator", "administrator", "member":
		return true
	default:
		return false
	}
}

func inlineKeyboard(rows [][]service.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			if btn.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		out = append(out, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}
