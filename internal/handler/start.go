package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/logger"
	"github.com/artur/pogoda-bot/internal/service"
)

type StartHandler struct {
	messenger Messenger
}

func NewStartHandler(m Messenger) *StartHandler {
	return &StartHandler{messenger: m}
}

func (h *StartHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "start")
}

func (h *StartHandler) Handle(ctx context.Context, update tgbotapi.Update) {
	logger.From(ctx).Info("greeting user", zap.String("name", getUserName(update.Message.From)))
	reply(ctx, h.messenger, update, service.WelcomeReply())
}

type HelpHandler struct {
	messenger Messenger
}

func NewHelpHandler(m Messenger) *HelpHandler {
	return &HelpHandler{messenger: m}
}

func (h *HelpHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "help")
}

func (h *HelpHandler) Handle(ctx context.Context, update tgbotapi.Update) {
	reply(ctx, h.messenger, update, service.HelpReply())
}

func getUserName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.UserName
}
