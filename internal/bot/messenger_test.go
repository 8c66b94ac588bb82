package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/artur/pogoda-bot/internal/service"
)

type apiCall struct {
	method string
	form   url.Values
}

// fakeTelegram отвечает на методы Bot API, которыми пользуется бот.
type fakeTelegram struct {
	mu       sync.Mutex
	calls    []apiCall
	statuses map[string]string
	pending  string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, form: r.PostForm})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Pogoda","username":"pogoda_bot"}}`)
	case "sendMessage":
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":10,"date":0,"chat":{"id":%s,"type":"private"}}}`, r.PostForm.Get("chat_id"))
	case "getUpdates":
		f.mu.Lock()
		result := f.pending
		f.pending = ""
		f.mu.Unlock()
		if result == "" {
			result = "[]"
		}
		fmt.Fprintf(w, `{"ok":true,"result":%s}`, result)
	case "getChatMember":
		status, ok := f.statuses[r.PostForm.Get("user_id")]
		if !ok {
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: user not found"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"user":{"id":%s,"is_bot":false,"first_name":"U"},"status":%q}}`, r.PostForm.Get("user_id"), status)
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeTelegram) last(method string) (apiCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i], true
		}
	}
	return apiCall{}, false
}

func newTestBot(t *testing.T) (*Bot, *fakeTelegram) {
	t.Helper()

	fake := &fakeTelegram{statuses: map[string]string{
		"1": "member",
		"2": "administrator",
		"3": "creator",
		"4": "left",
		"5": "kicked",
		"6": "restricted",
	}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithClient("TOKEN", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	return NewWithAPI(api, "@alexbullpogoda", nil), fake
}

func TestDeliver_PlainText(t *testing.T) {
	b, fake := newTestBot(t)

	require.NoError(t, b.Deliver(context.Background(), 42, service.Reply{Text: "Привет"}))

	call, ok := fake.last("sendMessage")
	require.True(t, ok)
	require.Equal(t, "42", call.form.Get("chat_id"))
	require.Equal(t, "Привет", call.form.Get("text"))
	require.Empty(t, call.form.Get("parse_mode"))
	require.Empty(t, call.form.Get("reply_markup"))
}

func TestDeliver_MarkdownWithKeyboard(t *testing.T) {
	b, fake := newTestBot(t)

	r := service.Reply{
		Text:     "*Гродно*",
		Markdown: true,
		Keyboard: [][]service.Button{
			{{Text: "Подписаться", URL: "https://t.me/alexbullpogoda"}},
			{{Text: "Проверить", Data: "check_sub"}},
		},
	}
	require.NoError(t, b.Deliver(context.Background(), 42, r))

	call, ok := fake.last("sendMessage")
	require.True(t, ok)
	require.Equal(t, tgbotapi.ModeMarkdown, call.form.Get("parse_mode"))
	markup := call.form.Get("reply_markup")
	require.Contains(t, markup, `"url":"https://t.me/alexbullpogoda"`)
	require.Contains(t, markup, `"callback_data":"check_sub"`)
}

func TestDeliver_EmptyReplyIsNoop(t *testing.T) {
	b, fake := newTestBot(t)

	require.NoError(t, b.Deliver(context.Background(), 42, service.Reply{}))

	_, ok := fake.last("sendMessage")
	require.False(t, ok)
}

func TestIsMember(t *testing.T) {
	b, fake := newTestBot(t)

	tests := []struct {
		userID int64
		want   bool
	}{
		{1, true},
		{2, true},
		{3, true},
		{4, false},
		{5, false},
		{6, false},
		{404, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.userID), func(t *testing.T) {
			require.Equal(t, tt.want, b.IsMember(context.Background(), tt.userID))
		})
	}

	call, ok := fake.last("getChatMember")
	require.True(t, ok)
	require.Equal(t, "@alexbullpogoda", call.form.Get("chat_id"))
}

func TestAnswerCallbackAndEdit(t *testing.T) {
	b, fake := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, b.AnswerCallback(ctx, "cb-1", "Ошибка выбора.", true))
	call, ok := fake.last("answerCallbackQuery")
	require.True(t, ok)
	require.Equal(t, "cb-1", call.form.Get("callback_query_id"))
	require.Equal(t, "true", call.form.Get("show_alert"))

	require.NoError(t, b.EditText(ctx, 42, 10, "Вы выбрали: Гродно"))
	call, ok = fake.last("editMessageText")
	require.True(t, ok)
	require.Equal(t, "10", call.form.Get("message_id"))
	require.Equal(t, "Вы выбрали: Гродно", call.form.Get("text"))
}

func TestWebhookLifecycle(t *testing.T) {
	b, fake := newTestBot(t)

	require.NoError(t, b.SetWebhook("https://example.org/webhook/secret123"))
	call, ok := fake.last("setWebhook")
	require.True(t, ok)
	require.Equal(t, "https://example.org/webhook/secret123", call.form.Get("url"))

	require.NoError(t, b.DeleteWebhook(true))
	call, ok = fake.last("deleteWebhook")
	require.True(t, ok)
	require.Equal(t, "true", call.form.Get("drop_pending_updates"))
}

func TestRun_DeletesWebhookAndKeepsHandlerContext(t *testing.T) {
	b, fake := newTestBot(t)

	fake.mu.Lock()
	fake.pending = `[{"update_id":1,"message":{"message_id":1,"date":0,"text":"Гродно",` +
		`"chat":{"id":5,"type":"private"},"from":{"id":5,"is_bot":false,"first_name":"U"}}}]`
	fake.mu.Unlock()

	started := make(chan struct{})
	release := make(chan struct{})
	var handlerErr error
	b.RegisterHandler(&MockHandler{
		canHandleFunc: textIs("Гродно"),
		handleFunc: func(ctx context.Context, update tgbotapi.Update) {
			close(started)
			<-release
			handlerErr = ctx.Err()
		},
	})

	handlerCtx, cancelHandlers := context.WithCancel(context.Background())
	defer cancelHandlers()
	pollCtx, stopPolling := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		b.Run(pollCtx, handlerCtx)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("update was not dispatched")
	}

	// Чтение остановлено, а начатый обработчик ещё работает.
	stopPolling()
	<-done
	close(release)
	b.Wait(context.Background())
	require.NoError(t, handlerErr)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	deleteAt, pollAt := -1, -1
	for i, c := range fake.calls {
		if c.method == "deleteWebhook" && deleteAt < 0 {
			deleteAt = i
			require.Empty(t, c.form.Get("drop_pending_updates"))
		}
		if c.method == "getUpdates" && pollAt < 0 {
			pollAt = i
		}
	}
	require.GreaterOrEqual(t, deleteAt, 0)
	require.Greater(t, pollAt, deleteAt)
}
