package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(srv.Client(), Config{
		GeocodeURL:  srv.URL + "/v1/search",
		ForecastURL: srv.URL + "/v1/forecast",
	}, nil)
}

func TestSearch_Params(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "/v1/search", r.URL.Path)
		require.Equal(t, "Гродно", q.Get("name"))
		require.Equal(t, "5", q.Get("count"))
		require.Equal(t, "ru", q.Get("language"))
		require.Equal(t, "json", q.Get("format"))

		fmt.Fprint(w, `{"results":[{"name":"Гродно","admin1":"Гродненская область","country_code":"BY","latitude":53.68,"longitude":23.83,"timezone":"Europe/Minsk"}]}`)
	})

	got, err := c.Search(context.Background(), "  Гродно ", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Гродно", got[0].Name)
	require.Equal(t, "BY", got[0].CountryCode)
	require.Equal(t, "Europe/Minsk", got[0].Timezone)
	require.InDelta(t, 53.68, got[0].Latitude, 1e-9)
}

func TestSearch_CapsResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		parts := make([]string, 0, 8)
		for i := 0; i < 8; i++ {
			parts = append(parts, fmt.Sprintf(`{"name":"City%d","latitude":%d,"longitude":0}`, i, i))
		}
		fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(parts, ","))
	})

	got, err := c.Search(context.Background(), "City", 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Equal(t, "City4", got[4].Name)
}

func TestSearch_NoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"generationtime_ms":0.5}`)
	})

	got, err := c.Search(context.Background(), "Qwzxv", 5)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSearch_EmptyQuerySkipsRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})

	got, err := c.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSearch_Non200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Search(context.Background(), "Гродно", 5)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestSearch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(&http.Client{Timeout: 20 * time.Millisecond}, Config{GeocodeURL: srv.URL}, nil)

	_, err := c.Search(context.Background(), "Гродно", 5)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSearch_BreakerOpens(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 7; i++ {
		_, err := c.Search(context.Background(), "Гродно", 5)
		require.ErrorIs(t, err, ErrUnavailable)
	}
	require.Equal(t, 5, calls)
}

const forecastTwoDays = `{
  "daily": {
    "time": ["2025-01-01", "2025-01-02"],
    "temperature_2m_max": [1.0, 9.8],
    "temperature_2m_min": [-3.0, 3.4],
    "precipitation_sum": [0.0, 1.2],
    "precipitation_probability_max": [10, 40],
    "windspeed_10m_max": [3.0, 5.6],
    "winddirection_10m_dominant": [90, 180],
    "weathercode": [0, 61],
    "sunrise": ["2025-01-01T08:42", "2025-01-02T08:41"],
    "sunset": ["2025-01-01T17:01", "2025-01-02T17:02"],
    "cloudcover_mean": [20, 75]
  }
}`

func TestTomorrow_PicksSecondDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "/v1/forecast", r.URL.Path)
		require.Equal(t, "53.68", q.Get("latitude"))
		require.Equal(t, "23.83", q.Get("longitude"))
		require.Equal(t, "Europe/Minsk", q.Get("timezone"))
		require.Equal(t, strings.Join(dailyFields, ","), q.Get("daily"))

		fmt.Fprint(w, forecastTwoDays)
	})

	f, err := c.Tomorrow(context.Background(), 53.68, 23.83, "Europe/Minsk")
	require.NoError(t, err)
	require.Equal(t, "2025-01-02", f.Date)
	require.InDelta(t, 9.8, *f.TMax, 1e-9)
	require.InDelta(t, 3.4, *f.TMin, 1e-9)
	require.InDelta(t, 1.2, *f.PrecipMM, 1e-9)
	require.InDelta(t, 40, *f.PrecipProb, 1e-9)
	require.InDelta(t, 5.6, *f.WindMax, 1e-9)
	require.InDelta(t, 180, *f.WindDir, 1e-9)
	require.InDelta(t, 75, *f.Clouds, 1e-9)
	require.Equal(t, 61, *f.WeatherCode)
	require.Equal(t, "2025-01-02T08:41", *f.Sunrise)
	require.Equal(t, "2025-01-02T17:02", *f.Sunset)
}

func TestTomorrow_SingleDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"daily":{"time":["2025-01-05"],"temperature_2m_max":[4.2]}}`)
	})

	f, err := c.Tomorrow(context.Background(), 1, 2, "UTC")
	require.NoError(t, err)
	require.Equal(t, "2025-01-05", f.Date)
	require.InDelta(t, 4.2, *f.TMax, 1e-9)
	require.Nil(t, f.TMin)
	require.Nil(t, f.WeatherCode)
}

func TestTomorrow_NoDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"daily":{"time":[]}}`)
	})

	_, err := c.Tomorrow(context.Background(), 1, 2, "UTC")
	require.ErrorIs(t, err, ErrNoForecast)
}

func TestTomorrow_PartialPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"daily":{
			"time":["2025-01-01","2025-01-02"],
			"temperature_2m_max":[1.0],
			"temperature_2m_min":[null, 2.0],
			"precipitation_sum":"broken",
			"weathercode":[0, null],
			"sunrise":[1, 2]
		}}`)
	})

	f, err := c.Tomorrow(context.Background(), 1, 2, "UTC")
	require.NoError(t, err)
	require.Equal(t, "2025-01-02", f.Date)
	require.Nil(t, f.TMax, "short array")
	require.InDelta(t, 2.0, *f.TMin, 1e-9)
	require.Nil(t, f.PrecipMM, "wrong type")
	require.Nil(t, f.WeatherCode, "null element")
	require.Nil(t, f.Sunrise, "numbers instead of strings")
	require.Nil(t, f.Sunset, "missing field")
}

func TestTomorrow_Non200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Tomorrow(context.Background(), 1, 2, "UTC")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestTomorrow_DefaultTimezone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "UTC", r.URL.Query().Get("timezone"))
		fmt.Fprint(w, forecastTwoDays)
	})

	_, err := c.Tomorrow(context.Background(), 1, 2, "")
	require.NoError(t, err)
}
