package service

import "fmt"

const (
	textHelp = "Пришлите название города (на русском или латиницей) — отвечу прогнозом на завтра.\n\n" +
		"Команды:\n" +
		"• /start — начать\n" +
		"• /help — помощь\n" +
		"• /repeat — повторить прогноз по последнему городу\n" +
		"• /daily HH:MM — присылать прогноз каждый день (ваше местное время)\n" +
		"• /stop — остановить ежедневную рассылку\n"

	textWelcome = "Привет! 👋 Напишите название города — пришлю прогноз на завтра.\n\n" + textHelp

	textNotFound       = "Не нашёл такой город. Попробуйте ещё раз (можно добавить страну: «Гродно, BY»)."
	textChooseCity     = "Уточните, пожалуйста, город:"
	textForecastFailed = "Не удалось получить прогноз. Попробуйте позже."
	textUnknownCity    = "Я ещё не знаю ваш город. Пришлите название города сообщением."
	textDailyUsage     = "Использование: /daily HH:MM\nНапример: /daily 08:30"
	textDailyNoCity    = "Сначала выберите город: пришлите его название сообщением."
	textQuickNoCity    = "Сначала выберите город."
	textDailyStopped   = "Ежедневная рассылка отключена."
	textPickError      = "Ошибка выбора."
	textPickExpired    = "Слишком старый список — пришлите город ещё раз."
	textSubscribe      = "🔔 Подписаться на ежедневный прогноз (08:00)"

	textGate = "Функция доступна только подписчикам канала.\n" +
		"1) Подпишись на канал\n" +
		"2) Нажми «Проверить подписку» 👇"
	textGateJoin      = "✅ Подписаться на канал"
	textGateCheck     = "🔄 Проверить подписку"
	textSubConfirmed  = "✅ Подписка подтверждена! Теперь отправьте название города."
	textSubNotVisible = "Не вижу подписку. Подпишись и нажми снова."

	// DefaultDailyTime - время для кнопки быстрой подписки под прогнозом.
	DefaultDailyTime = "08:00"
)

func textDailySet(at, tz string) string {
	return fmt.Sprintf("Готово! Буду присылать прогноз каждый день в %s по вашему времени (%s).", at, tz)
}

func textQuickDailySet(at, tz string) string {
	return fmt.Sprintf("Подписал! Ежедневный прогноз в %s по времени %s.", at, tz)
}

func textChosen(label string) string {
	return "Вы выбрали: " + label
}
