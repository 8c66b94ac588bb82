package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/artur/pogoda-bot/internal/weather"
)

type geocodeResponse struct {
	Results []struct {
		Name        string  `json:"name"`
		Admin1      string  `json:"admin1"`
		CountryCode string  `json:"country_code"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Timezone    string  `json:"timezone"`
	} `json:"results"`
}

// Search ищет город по названию и возвращает не больше count вариантов.
// Пустой ответ - это nil без ошибки.
func (c *Client) Search(ctx context.Context, query string, count int) ([]weather.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if count <= 0 {
		count = weather.MaxCandidates
	}

	params := url.Values{}
	params.Set("name", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("language", c.language)
	params.Set("format", "json")

	body, err := c.get(ctx, c.geocodeCB, "geocode", c.geocodeURL, params)
	if err != nil {
		return nil, err
	}

	var payload geocodeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	out := make([]weather.Candidate, 0, len(payload.Results))
	for _, r := range payload.Results {
		if len(out) == count {
			break
		}
		out = append(out, weather.Candidate{
			Name:        r.Name,
			Admin1:      r.Admin1,
			CountryCode: r.CountryCode,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			Timezone:    r.Timezone,
		})
	}
	return out, nil
}
