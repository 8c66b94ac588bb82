package handler

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/logger"
	"github.com/artur/pogoda-bot/internal/service"
)

// CityHandler принимает любой текст, кроме команд, как название города.
type CityHandler struct {
	messenger Messenger
	weather   WeatherService
}

func NewCityHandler(m Messenger, w WeatherService) *CityHandler {
	return &CityHandler{messenger: m, weather: w}
}

func (h *CityHandler) CanHandle(update tgbotapi.Update) bool {
	return update.Message != nil &&
		!update.Message.IsCommand() &&
		strings.TrimSpace(update.Message.Text) != ""
}

func (h *CityHandler) Handle(ctx context.Context, update tgbotapi.Update) {
	r := h.weather.CityQuery(ctx, senderID(update), update.Message.Text)
	reply(ctx, h.messenger, update, r)
}

// PickHandler обрабатывает выбор города из списка (pick:<i>).
type PickHandler struct {
	messenger Messenger
	weather   WeatherService
}

func NewPickHandler(m Messenger, w WeatherService) *PickHandler {
	return &PickHandler{messenger: m, weather: w}
}

func (h *PickHandler) CanHandle(update tgbotapi.Update) bool {
	return update.CallbackQuery != nil &&
		strings.HasPrefix(update.CallbackQuery.Data, service.CallbackPickPrefix)
}

func (h *PickHandler) Handle(ctx context.Context, update tgbotapi.Update) {
	cq := update.CallbackQuery

	idx, err := strconv.Atoi(strings.TrimPrefix(cq.Data, service.CallbackPickPrefix))
	if err != nil {
		replyCallback(ctx, h.messenger, update, service.PickErrorReply())
		return
	}

	res := h.weather.Pick(ctx, senderID(update), idx)
	if res.Expired {
		replyCallback(ctx, h.messenger, update, service.PickExpiredReply())
		return
	}

	if cq.Message != nil && cq.Message.Chat != nil {
		if err := h.messenger.EditText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, res.Chosen()); err != nil {
			logger.From(ctx).Warn("failed to edit picker message", zap.Error(err))
		}
	}
	replyCallback(ctx, h.messenger, update, res.Reply)
}

// RepeatHandler повторяет прогноз (/repeat).
type RepeatHandler struct {
	messenger Messenger
	weather   WeatherService
}

func NewRepeatHandler(m Messenger, w WeatherService) *RepeatHandler {
	return &RepeatHandler{messenger: m, weather: w}
}

func (h *RepeatHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "repeat")
}

func (h *RepeatHandler) Handle(ctx context.Context, update tgbotapi.Update) {
	reply(ctx, h.messenger, update, h.weather.Repeat(ctx, senderID(update)))
}
