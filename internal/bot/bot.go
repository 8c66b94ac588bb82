package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/logger"
	"github.com/artur/pogoda-bot/internal/metrics"
)

type Handler interface {
	CanHandle(update tgbotapi.Update) bool
	Handle(ctx context.Context, update tgbotapi.Update)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	handlers []Handler
	channel  string
	log      *zap.Logger
	wg       sync.WaitGroup
}

func New(token, channel string, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}
	return NewWithAPI(api, channel, log), nil
}

// NewWithAPI оборачивает уже созданный клиент Bot API.
func NewWithAPI(api *tgbotapi.BotAPI, channel string, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	if api != nil {
		log.Info("authorized", zap.String("account", api.Self.UserName))
	}
	return &Bot{
		api:      api,
		handlers: make([]Handler, 0),
		channel:  channel,
		log:      log,
	}
}

func (b *Bot) RegisterHandler(h Handler) {
	b.handlers = append(b.handlers, h)
	b.log.Debug("registered handler", zap.String("handler", fmt.Sprintf("%T", h)))
}

// Dispatch отдаёт обновление первому подходящему обработчику в отдельной горутине.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	l := b.log.With(
		zap.Int("update_id", update.UpdateID),
		zap.String("trace_id", uuid.NewString()),
	)

	switch {
	case update.Message != nil:
		metrics.Updates.WithLabelValues("message").Inc()
		if from := update.Message.From; from != nil {
			l = l.With(zap.Int64("user_id", from.ID))
		}
		l.Debug("message", zap.String("text", update.Message.Text))
	case update.CallbackQuery != nil:
		metrics.Updates.WithLabelValues("callback").Inc()
		if from := update.CallbackQuery.From; from != nil {
			l = l.With(zap.Int64("user_id", from.ID))
		}
		l.Debug("callback", zap.String("data", update.CallbackQuery.Data))
	default:
		// Пропускаем только если нет ни сообщения, ни callback
		metrics.Updates.WithLabelValues("other").Inc()
		l.Debug("skipping update: no message or callback")
		return
	}

	for _, handler := range b.handlers {
		if !handler.CanHandle(update) {
			continue
		}

		l.Debug("handling", zap.String("handler", fmt.Sprintf("%T", handler)))
		hctx := logger.Into(ctx, l)

		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					l.Error("handler panicked", zap.Any("panic", r))
				}
			}()
			h.Handle(hctx, update)
		}(handler)
		return
	}

	l.Debug("no handler found for update")
}

// Run читает обновления long polling до отмены ctx. Обработчики получают
// handlerCtx, чтобы остановка чтения не обрывала уже начатые ответы.
func (b *Bot) Run(ctx, handlerCtx context.Context) {
	// Пока висит вебхук, getUpdates отвечает ошибкой.
	if err := b.DeleteWebhook(false); err != nil {
		b.log.Warn("failed to delete webhook before polling", zap.Error(err))
	}

	b.log.Info("starting long polling", zap.Int("handlers", len(b.handlers)))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.Dispatch(handlerCtx, update)
		}
	}
}

// SetWebhook регистрирует адрес вебхука в Telegram.
func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("failed to build webhook: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	b.log.Info("webhook set", zap.String("url", url))
	return nil
}

// DeleteWebhook снимает вебхук; dropPending сбрасывает накопившиеся обновления.
func (b *Bot) DeleteWebhook(dropPending bool) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	b.log.Info("webhook deleted", zap.Bool("drop_pending", dropPending))
	return nil
}

// Wait ждёт завершения запущенных обработчиков, пока жив ctx.
func (b *Bot) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.log.Warn("handlers still running at shutdown", zap.Error(ctx.Err()))
	}
}
