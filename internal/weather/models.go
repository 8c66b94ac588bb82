package weather

// FallbackTimezone подставляется, когда геокодер не вернул часовой пояс
// или вернул неизвестный.
const FallbackTimezone = "UTC"

// MaxCandidates - сколько вариантов города показываем на выбор.
const MaxCandidates = 5

// Candidate - один вариант ответа геокодера.
type Candidate struct {
	Name        string  `json:"name"`
	Admin1      string  `json:"admin1,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone,omitempty"`
}

// Forecast - дневной прогноз. Любое поле кроме Date может отсутствовать.
type Forecast struct {
	Date        string
	TMin        *float64
	TMax        *float64
	PrecipMM    *float64
	PrecipProb  *float64
	WindMax     *float64
	WindDir     *float64
	WeatherCode *int
	Sunrise     *string
	Sunset      *string
	Clouds      *float64
}
