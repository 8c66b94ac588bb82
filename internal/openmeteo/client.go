// Package openmeteo - клиент геокодера и прогноза Open-Meteo.
package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/metrics"
)

const (
	DefaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	maxBodyBytes = 1 << 20
)

var (
	// ErrUnavailable - сервис не ответил, ответил не 200 или выключен предохранителем.
	ErrUnavailable = errors.New("open-meteo unavailable")
	// ErrNoForecast - ответ пришёл, но в нём нет ни одной даты.
	ErrNoForecast = errors.New("forecast has no dates")
)

// Config - адреса API и язык геокодера.
type Config struct {
	GeocodeURL  string
	ForecastURL string
	Language    string
}

// Client ходит в Open-Meteo без ретраев; каждый эндпоинт за своим предохранителем.
type Client struct {
	http        *http.Client
	geocodeURL  string
	forecastURL string
	language    string
	geocodeCB   *gobreaker.CircuitBreaker
	forecastCB  *gobreaker.CircuitBreaker
	log         *zap.Logger
}

// New создаёт клиент. Таймаут задаётся в httpClient.
func New(httpClient *http.Client, cfg Config, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = DefaultGeocodeURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.Language == "" {
		cfg.Language = "ru"
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		http:        httpClient,
		geocodeURL:  cfg.GeocodeURL,
		forecastURL: cfg.ForecastURL,
		language:    cfg.Language,
		geocodeCB:   newBreaker("open-meteo-geocode", log),
		forecastCB:  newBreaker("open-meteo-forecast", log),
		log:         log,
	}
}

func newBreaker(name string, log *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// get выполняет один GET и возвращает тело ответа 200.
func (c *Client) get(ctx context.Context, cb *gobreaker.CircuitBreaker, api, endpoint string, params url.Values) ([]byte, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	})
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(api, "error").Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, api, err)
	}

	metrics.UpstreamRequests.WithLabelValues(api, "ok").Inc()
	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type from circuit breaker", ErrUnavailable)
	}
	return body, nil
}
