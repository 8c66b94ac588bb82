// Package handler связывает обновления Telegram со сценариями бота.
package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/logger"
	"github.com/artur/pogoda-bot/internal/metrics"
	"github.com/artur/pogoda-bot/internal/service"
)

// Messenger - исходящая сторона Telegram.
type Messenger interface {
	Deliver(ctx context.Context, chatID int64, r service.Reply) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
}

// MembershipChecker проверяет подписку на канал.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID int64) bool
}

// WeatherService - сценарии, которые вызывают обработчики.
type WeatherService interface {
	CityQuery(ctx context.Context, userID int64, query string) service.Reply
	Pick(ctx context.Context, userID int64, idx int) service.PickResult
	Repeat(ctx context.Context, userID int64) service.Reply
	Daily(ctx context.Context, userID int64, args string) service.Reply
	QuickDaily(ctx context.Context, userID int64, at string) service.Reply
	StopDaily(ctx context.Context, userID int64) service.Reply
}

func isCommand(update tgbotapi.Update, name string) bool {
	return update.Message != nil && update.Message.IsCommand() && update.Message.Command() == name
}

func senderID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}

func chatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	}
	return senderID(update)
}

// reply отправляет ответ на сообщение.
func reply(ctx context.Context, m Messenger, update tgbotapi.Update, r service.Reply) {
	if r.Empty() {
		return
	}
	if err := m.Deliver(ctx, chatID(update), r); err != nil {
		metrics.Deliveries.WithLabelValues("interactive", "error").Inc()
		logger.From(ctx).Warn("failed to deliver reply", zap.Error(err))
		return
	}
	metrics.Deliveries.WithLabelValues("interactive", "ok").Inc()
}

// replyCallback отвечает на нажатие кнопки: alert всплывающим окном,
// остальное отдельным сообщением в чат.
func replyCallback(ctx context.Context, m Messenger, update tgbotapi.Update, r service.Reply) {
	cq := update.CallbackQuery
	if r.Alert {
		if err := m.AnswerCallback(ctx, cq.ID, r.Text, true); err != nil {
			logger.From(ctx).Warn("failed to answer callback", zap.Error(err))
		}
		return
	}

	if err := m.AnswerCallback(ctx, cq.ID, "", false); err != nil {
		logger.From(ctx).Warn("failed to answer callback", zap.Error(err))
	}
	reply(ctx, m, update, r)
}
