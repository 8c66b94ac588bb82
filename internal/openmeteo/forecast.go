package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/weather"
)

var dailyFields = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
	"precipitation_probability_max",
	"windspeed_10m_max",
	"winddirection_10m_dominant",
	"weathercode",
	"sunrise",
	"sunset",
	"cloudcover_mean",
}

type forecastResponse struct {
	Daily map[string]json.RawMessage `json:"daily"`
}

// Tomorrow возвращает прогноз на завтра в часовом поясе tz.
// Если в ответе одна дата, берётся она.
func (c *Client) Tomorrow(ctx context.Context, lat, lon float64, tz string) (*weather.Forecast, error) {
	if tz == "" {
		tz = weather.FallbackTimezone
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("timezone", tz)
	params.Set("daily", strings.Join(dailyFields, ","))

	body, err := c.get(ctx, c.forecastCB, "forecast", c.forecastURL, params)
	if err != nil {
		return nil, err
	}

	var payload forecastResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode forecast response: %v", ErrUnavailable, err)
	}

	dates := decodeStrings(payload.Daily["time"])
	var idx int
	switch {
	case len(dates) == 0:
		return nil, ErrNoForecast
	case len(dates) > 1:
		idx = 1
	}

	date := ""
	if dates[idx] != nil {
		date = *dates[idx]
	}

	f := &weather.Forecast{
		Date:       date,
		TMax:       pickFloat(payload.Daily["temperature_2m_max"], idx),
		TMin:       pickFloat(payload.Daily["temperature_2m_min"], idx),
		PrecipMM:   pickFloat(payload.Daily["precipitation_sum"], idx),
		PrecipProb: pickFloat(payload.Daily["precipitation_probability_max"], idx),
		WindMax:    pickFloat(payload.Daily["windspeed_10m_max"], idx),
		WindDir:    pickFloat(payload.Daily["winddirection_10m_dominant"], idx),
		Clouds:     pickFloat(payload.Daily["cloudcover_mean"], idx),
		Sunrise:    pickString(payload.Daily["sunrise"], idx),
		Sunset:     pickString(payload.Daily["sunset"], idx),
	}
	if v := pickFloat(payload.Daily["weathercode"], idx); v != nil && *v == math.Trunc(*v) {
		code := int(*v)
		f.WeatherCode = &code
	}

	c.log.Debug("forecast fetched",
		zap.String("date", f.Date),
		zap.Float64("lat", lat),
		zap.Float64("lon", lon))

	return f, nil
}

// Каждый массив разбирается отдельно: битое поле не ломает остальные.
func decodeFloats(raw json.RawMessage) []*float64 {
	if len(raw) == 0 {
		return nil
	}
	var out []*float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func decodeStrings(raw json.RawMessage) []*string {
	if len(raw) == 0 {
		return nil
	}
	var out []*string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func pickFloat(raw json.RawMessage, idx int) *float64 {
	vals := decodeFloats(raw)
	if idx >= len(vals) {
		return nil
	}
	return vals[idx]
}

func pickString(raw json.RawMessage, idx int) *string {
	vals := decodeStrings(raw)
	if idx >= len(vals) {
		return nil
	}
	return vals[idx]
}
