package weather

import (
	"fmt"
	"math"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const placeholder = "—"

var compassPoints = [16]string{
	"Север", "Северо‑северо‑восток", "Северо‑восток", "Восток‑северо‑восток",
	"Восток", "Восток‑юго‑восток", "Юго‑восток", "Юго‑юго‑восток",
	"Юг", "Юго‑юго‑запад", "Юго‑запад", "Запад‑юго‑запад",
	"Запад", "Запад‑северо‑запад", "Северо‑запад", "Северо‑северо‑запад",
}

// Icon возвращает эмодзи для кода погоды WMO.
func Icon(code *int) string {
	if code == nil {
		return "🌤️"
	}
	c := *code
	switch {
	case c == 0:
		return "☀️"
	case c == 1 || c == 2:
		return "🌤️"
	case c == 3:
		return "☁️"
	case c >= 45 && c <= 48:
		return "🌫️"
	case c >= 51 && c <= 67:
		return "🌦️"
	case c >= 71 && c <= 77:
		return "🌨️"
	case c >= 80 && c <= 82:
		return "🌧️"
	case c >= 85 && c <= 86:
		return "❄️"
	case c >= 95 && c <= 99:
		return "⛈️"
	default:
		return "🌤️"
	}
}

// WindDirection переводит градусы в один из 16 румбов.
func WindDirection(deg *float64) string {
	if deg == nil || math.IsNaN(*deg) || math.IsInf(*deg, 0) {
		return "Нет данных"
	}
	d := math.Mod(*deg, 360)
	if d < 0 {
		d += 360
	}
	idx := int(math.Floor(d/22.5+0.5)) % 16
	return compassPoints[idx]
}

// CityLabel собирает подпись "Город, Регион, CC" без пустых частей.
func CityLabel(c Candidate) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Name, c.Admin1, c.CountryCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// FormatForecast рендерит прогноз в семь строк Markdown.
func FormatForecast(label string, f Forecast) string {
	lines := []string{
		fmt.Sprintf("%s Прогноз на завтра для *%s* (%s).",
			Icon(f.WeatherCode), tgbotapi.EscapeText(tgbotapi.ModeMarkdown, label), f.Date),
		formatTemperature(f.TMin, f.TMax),
		"Облачность: " + percent(f.Clouds),
		"Осадки: " + precipitation(f.PrecipMM),
		"Вероятность осадков: " + percent(f.PrecipProb),
		formatWind(f.WindMax, f.WindDir),
		fmt.Sprintf("Восход: %s  Закат: %s", clock(f.Sunrise), clock(f.Sunset)),
	}
	return strings.Join(lines, "\n")
}

func formatTemperature(tmin, tmax *float64) string {
	if tmin == nil && tmax == nil {
		return "Температура: " + placeholder
	}
	return fmt.Sprintf("Температура: от %s° до %s°C", degrees(tmin), degrees(tmax))
}

func formatWind(speed, dir *float64) string {
	if speed == nil {
		return "Ветер: " + placeholder
	}
	return fmt.Sprintf("Ветер: до %d м/с, направление: %s", roundInt(*speed), WindDirection(dir))
}

func degrees(v *float64) string {
	if v == nil {
		return placeholder
	}
	return fmt.Sprintf("%d", roundInt(*v))
}

func percent(v *float64) string {
	if v == nil {
		return placeholder
	}
	return fmt.Sprintf("%d%%", roundInt(*v))
}

func precipitation(v *float64) string {
	if v == nil {
		return placeholder
	}
	return fmt.Sprintf("%.1f мм", *v)
}

// clock оставляет от ISO-времени Open-Meteo ("2025-01-02T08:41") только часы и минуты.
func clock(v *string) string {
	if v == nil || *v == "" {
		return placeholder
	}
	if t, err := time.Parse("2006-01-02T15:04", *v); err == nil {
		return t.Format("15:04")
	}
	return *v
}

// roundInt округляет до целого; -0.4 даёт 0, а не "-0".
func roundInt(v float64) int {
	return int(math.Round(v))
}
