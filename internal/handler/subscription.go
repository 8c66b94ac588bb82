package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/logger"
	"github.com/artur/pogoda-bot/internal/service"
)

// Gate пропускает к обработчику только подписчиков канала.
type Gate struct {
	checker   MembershipChecker
	messenger Messenger
	joinURL   string
}

func NewGate(c MembershipChecker, m Messenger, joinURL string) *Gate {
	return &Gate{checker: c, messenger: m, joinURL: joinURL}
}

// Wrap возвращает обработчик, который сначала проверяет подписку.
func (g *Gate) Wrap(next Handler) Handler {
	return &gated{gate: g, next: next}
}

// Handler повторяет интерфейс bot.Handler, чтобы не тянуть пакет bot.
type Handler interface {
	CanHandle(update tgbotapi.Update) bool
	Handle(ctx context.Context, update tgbotapi.Update)
}

type gated struct {
	gate *Gate
	next Handler
}

func (h *gated) CanHandle(update tgbotapi.Update) bool {
	return h.next.CanHandle(update)
}

func (h *gated) Handle(ctx context.Context, update tgbotapi.Update) {
	if !h.gate.checker.IsMember(ctx, senderID(update)) {
		logger.From(ctx).Info("not subscribed, showing gate")
		reply(ctx, h.gate.messenger, update, service.GateReply(h.gate.joinURL))
		return
	}
	h.next.Handle(ctx, update)
}

// SubscriptionCheckHandler - кнопка «Проверить подписку».
type SubscriptionCheckHandler struct {
	checker   MembershipChecker
	messenger Messenger
}

func NewSubscriptionCheckHandler(c MembershipChecker, m Messenger) *SubscriptionCheckHandler {
	return &SubscriptionCheckHandler{checker: c, messenger: m}
}

func (h *SubscriptionCheckHandler) CanHandle(update tgbotapi.Update) bool {
	return update.CallbackQuery != nil && update.CallbackQuery.Data == service.CallbackCheckSub
}

func (h *SubscriptionCheckHandler) Handle(ctx context.Context, update tgbotapi.Update) {
	member := h.checker.IsMember(ctx, senderID(update))
	logger.From(ctx).Info("subscription checked", zap.Bool("member", member))
	replyCallback(ctx, h.messenger, update, service.SubscriptionReply(member))
}
