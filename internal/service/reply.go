package service

// Callback-данные inline-кнопок.
const (
	CallbackPickPrefix  = "pick:"
	CallbackDailyPrefix = "daily:"
	CallbackCheckSub    = "check_sub"
)

// Button - inline-кнопка: либо с callback-данными, либо со ссылкой.
type Button struct {
	Text string
	Data string
	URL  string
}

// Reply - ответ пользователю, не привязанный к транспорту.
type Reply struct {
	Text     string
	Markdown bool
	Keyboard [][]Button
	// Alert - показать всплывающим уведомлением, если ответ на нажатие кнопки.
	Alert bool
}

// Empty сообщает, что отвечать не нужно.
func (r Reply) Empty() bool {
	return r.Text == ""
}

// PickResult - итог выбора города из списка.
type PickResult struct {
	Expired bool
	Label   string
	Reply   Reply
}

// Chosen - текст, которым заменяется сообщение со списком.
func (p PickResult) Chosen() string {
	return textChosen(p.Label)
}

func WelcomeReply() Reply { return Reply{Text: textWelcome} }

func HelpReply() Reply { return Reply{Text: textHelp} }

func PickErrorReply() Reply { return Reply{Text: textPickError, Alert: true} }

func PickExpiredReply() Reply { return Reply{Text: textPickExpired, Alert: true} }

// GateReply - приглашение подписаться на канал.
func GateReply(joinURL string) Reply {
	return Reply{
		Text: textGate,
		Keyboard: [][]Button{
			{{Text: textGateJoin, URL: joinURL}},
			{{Text: textGateCheck, Data: CallbackCheckSub}},
		},
	}
}

// SubscriptionReply - ответ на «Проверить подписку».
func SubscriptionReply(member bool) Reply {
	if member {
		return Reply{Text: textSubConfirmed}
	}
	return Reply{Text: textSubNotVisible, Alert: true}
}
