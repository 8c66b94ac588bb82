package handler

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/pogoda-bot/internal/service"
)

// DailyHandler - /daily HH:MM.
type DailyHandler struct {
	messenger Messenger
	weather   WeatherService
}

func NewDailyHandler(m Messenger, w WeatherService) *DailyHandler {
	return &DailyHandler{messenger: m, weather: w}
}

func (h *DailyHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "daily")
}

func (h *DailyHandler) Handle(ctx context.Context, update tgbotapi.Update) {
	r := h.weather.Daily(ctx, senderID(update), update.Message.CommandArguments())
	reply(ctx, h.messenger, update, r)
}

// StopHandler - /stop.
type StopHandler struct {
	messenger Messenger
	weather   WeatherService
}

func NewStopHandler(m Messenger, w WeatherService) *StopHandler {
	return &StopHandler{messenger: m, weather: w}
}

func (h *StopHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "stop")
}

func (h *StopHandler) Handle(ctx context.Context, update tgbotapi.Update) {
	reply(ctx, h.messenger, update, h.weather.StopDaily(ctx, senderID(update)))
}

// QuickDailyHandler - кнопка подписки под прогнозом (daily:HH:MM).
type QuickDailyHandler struct {
	messenger Messenger
	weather   WeatherService
}

func NewQuickDailyHandler(m Messenger, w WeatherService) *QuickDailyHandler {
	return &QuickDailyHandler{messenger: m, weather: w}
}

func (h *QuickDailyHandler) CanHandle(update tgbotapi.Update) bool {
	return update.CallbackQuery != nil &&
		strings.HasPrefix(update.CallbackQuery.Data, service.CallbackDailyPrefix)
}

func (h *QuickDailyHandler) Handle(ctx context.Context, update tgbotapi.Update) {
	at := strings.TrimPrefix(update.CallbackQuery.Data, service.CallbackDailyPrefix)
	replyCallback(ctx, h.messenger, update, h.weather.QuickDaily(ctx, senderID(update), at))
}
