package handler

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/pogoda-bot/internal/service"
)

func TestStartHandler_CanHandle(t *testing.T) {
	handler := NewStartHandler(nil)

	tests := []struct {
		name     string
		update   tgbotapi.Update
		expected bool
	}{
		{
			name:     "handles /start command",
			update:   command(1, "/start"),
			expected: true,
		},
		{
			name:     "handles /start with bot mention",
			update:   command(1, "/start@pogoda_bot"),
			expected: true,
		},
		{
			name:     "ignores regular message",
			update:   text(1, "Hello"),
			expected: false,
		},
		{
			name:     "ignores other commands",
			update:   command(1, "/help"),
			expected: false,
		},
		{
			name:     "ignores nil message",
			update:   tgbotapi.Update{},
			expected: false,
		},
		{
			name:     "ignores callback query",
			update:   callback(1, "some_data"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := handler.CanHandle(tt.update)
			if result != tt.expected {
				t.Errorf("CanHandle() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestStartHandler_Handle(t *testing.T) {
	m := &fakeMessenger{}
	NewStartHandler(m).Handle(context.Background(), command(7, "/start"))

	if len(m.delivered) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(m.delivered))
	}
	if m.delivered[0].chatID != 7 {
		t.Errorf("Expected chat 7, got %d", m.delivered[0].chatID)
	}
	if m.delivered[0].reply.Text != service.WelcomeReply().Text {
		t.Errorf("Unexpected welcome text: %q", m.delivered[0].reply.Text)
	}
}

func TestHelpHandler_Handle(t *testing.T) {
	m := &fakeMessenger{}
	h := NewHelpHandler(m)

	if !h.CanHandle(command(1, "/help")) {
		t.Fatal("HelpHandler should handle /help")
	}
	h.Handle(context.Background(), command(1, "/help"))

	if len(m.delivered) != 1 || m.delivered[0].reply.Text != service.HelpReply().Text {
		t.Errorf("Expected help text, got %+v", m.delivered)
	}
}

func TestGetUserName_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		user     *tgbotapi.User
		expected string
	}{
		{
			name:     "prefers first name over username",
			user:     &tgbotapi.User{FirstName: "John", UserName: "john_doe"},
			expected: "John",
		},
		{
			name:     "uses username when first name empty",
			user:     &tgbotapi.User{UserName: "john_doe"},
			expected: "john_doe",
		},
		{
			name:     "handles both empty",
			user:     &tgbotapi.User{},
			expected: "",
		},
		{
			name:     "handles unicode in first name",
			user:     &tgbotapi.User{FirstName: "Артур", UserName: "artur"},
			expected: "Артур",
		},
		{
			name:     "handles nil user",
			user:     nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getUserName(tt.user)
			if result != tt.expected {
				t.Errorf("getUserName() = %q, want %q", result, tt.expected)
			}
		})
	}
}
