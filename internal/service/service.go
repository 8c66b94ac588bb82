// Package service - сценарии бота: поиск города, выбор из списка, прогноз
// и ежедневная рассылка. Транспорт Telegram сюда не протекает.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/database/models"
	"github.com/artur/pogoda-bot/internal/logger"
	"github.com/artur/pogoda-bot/internal/metrics"
	"github.com/artur/pogoda-bot/internal/scheduler"
	"github.com/artur/pogoda-bot/internal/session"
	"github.com/artur/pogoda-bot/internal/weather"
)

const maxButtonText = 64

var (
	// ErrNoLocation - у пользователя не выбран город.
	ErrNoLocation = errors.New("no location selected")
	// ErrInvalidTime - время рассылки не в формате HH:MM.
	ErrInvalidTime = scheduler.ErrInvalidTime
)

// ProfileStore - постоянное хранилище профилей.
type ProfileStore interface {
	GetOrCreate(ctx context.Context, userID int64) (models.Profile, error)
	Update(ctx context.Context, userID int64, fn func(*models.Profile) error) (models.Profile, error)
	All(ctx context.Context) (map[int64]models.Profile, error)
}

// Geocoder ищет города по названию.
type Geocoder interface {
	Search(ctx context.Context, query string, count int) ([]weather.Candidate, error)
}

// Forecaster получает прогноз на завтра.
type Forecaster interface {
	Tomorrow(ctx context.Context, lat, lon float64, tz string) (*weather.Forecast, error)
}

// DailyScheduler держит ежедневные задачи пользователей.
type DailyScheduler interface {
	Schedule(userID int64, at, tz string, job scheduler.Job) error
	Cancel(userID int64)
}

// Notifier доставляет сообщение пользователю. Им пользуются и обработчики
// команд, и планировщик.
type Notifier interface {
	Deliver(ctx context.Context, chatID int64, r Reply) error
}

// Deps - зависимости сервиса.
type Deps struct {
	Store      ProfileStore
	Sessions   session.Store
	Geocoder   Geocoder
	Forecaster Forecaster
	Scheduler  DailyScheduler
	Notifier   Notifier
}

// Service реализует сценарии бота.
type Service struct {
	store      ProfileStore
	sessions   session.Store
	geocoder   Geocoder
	forecaster Forecaster
	scheduler  DailyScheduler
	notifier   Notifier
	log        *zap.Logger

	// Профиль и задача пользователя меняются вместе под его замком.
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// New создаёт сервис.
func New(d Deps, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:      d.Store,
		sessions:   d.Sessions,
		geocoder:   d.Geocoder,
		forecaster: d.Forecaster,
		scheduler:  d.Scheduler,
		notifier:   d.Notifier,
		log:        log,
		locks:      make(map[int64]*sync.Mutex),
	}
}

// lockUser захватывает замок пользователя и возвращает функцию освобождения.
func (s *Service) lockUser(userID int64) func() {
	s.locksMu.Lock()
	m, ok := s.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[userID] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

// CityQuery обрабатывает название города: не найден, найден один или список на выбор.
func (s *Service) CityQuery(ctx context.Context, userID int64, query string) Reply {
	log := logger.From(ctx)
	query = strings.TrimSpace(query)

	gen, err := s.sessions.Begin(ctx, userID, query)
	if err != nil {
		log.Error("failed to begin session", zap.Error(err))
	}

	candidates, err := s.geocoder.Search(ctx, query, weather.MaxCandidates)
	if err != nil {
		log.Warn("geocoding failed", zap.String("query", query), zap.Error(err))
		candidates = nil
	}
	if len(candidates) > weather.MaxCandidates {
		candidates = candidates[:weather.MaxCandidates]
	}

	switch len(candidates) {
	case 0:
		return Reply{Text: textNotFound}
	case 1:
		return s.resolve(ctx, userID, candidates[0])
	}

	ok, err := s.sessions.Offer(ctx, userID, gen, candidates)
	if err != nil {
		log.Error("failed to store candidates", zap.Error(err))
		return Reply{Text: textForecastFailed}
	}
	if !ok {
		// Пользователь уже прислал новый запрос.
		log.Debug("candidates superseded", zap.String("query", query))
		return Reply{}
	}

	keyboard := make([][]Button, 0, len(candidates))
	for i, c := range candidates {
		keyboard = append(keyboard, []Button{{
			Text: truncate(weather.CityLabel(c), maxButtonText),
			Data: CallbackPickPrefix + strconv.Itoa(i),
		}})
	}
	return Reply{Text: textChooseCity, Keyboard: keyboard}
}

// Pick применяет выбранный из списка вариант. Список закрывается после первого выбора.
func (s *Service) Pick(ctx context.Context, userID int64, idx int) PickResult {
	c, ok, err := s.sessions.Take(ctx, userID, idx)
	if err != nil {
		logger.From(ctx).Error("failed to take candidate", zap.Error(err))
		return PickResult{Expired: true}
	}
	if !ok {
		return PickResult{Expired: true}
	}

	return PickResult{
		Label: weather.CityLabel(c),
		Reply: s.resolve(ctx, userID, c),
	}
}

// Repeat повторяет прогноз по сохранённому городу или последнему запросу.
func (s *Service) Repeat(ctx context.Context, userID int64) Reply {
	p, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		logger.From(ctx).Error("failed to get profile", zap.Error(err))
	}
	if p.HasLocation() {
		lat, lon, tz := p.Location()
		return s.forecastReply(ctx, p.CityLabel, lat, lon, tz)
	}

	q, err := s.sessions.LastQuery(ctx, userID)
	if err != nil {
		logger.From(ctx).Error("failed to get last query", zap.Error(err))
	}
	if q == "" {
		return Reply{Text: textUnknownCity}
	}
	return s.CityQuery(ctx, userID, q)
}

// Daily обрабатывает аргументы команды /daily.
func (s *Service) Daily(ctx context.Context, userID int64, args string) Reply {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return Reply{Text: textDailyUsage}
	}

	at, tz, err := s.SetDaily(ctx, userID, fields[0])
	switch {
	case errors.Is(err, ErrInvalidTime):
		return Reply{Text: textDailyUsage}
	case errors.Is(err, ErrNoLocation):
		return Reply{Text: textDailyNoCity}
	case err != nil:
		return Reply{Text: textForecastFailed}
	}
	return Reply{Text: textDailySet(at, tz)}
}

// QuickDaily - подписка кнопкой под прогнозом.
func (s *Service) QuickDaily(ctx context.Context, userID int64, at string) Reply {
	at, tz, err := s.SetDaily(ctx, userID, at)
	switch {
	case errors.Is(err, ErrInvalidTime):
		return PickErrorReply()
	case errors.Is(err, ErrNoLocation):
		return Reply{Text: textQuickNoCity, Alert: true}
	case err != nil:
		return Reply{Text: textForecastFailed, Alert: true}
	}
	return Reply{Text: textQuickDailySet(at, tz)}
}

// SetDaily сохраняет время рассылки и ставит задачу. Возвращает нормализованное
// время и часовой пояс пользователя.
func (s *Service) SetDaily(ctx context.Context, userID int64, at string) (string, string, error) {
	at, err := scheduler.NormalizeTime(at)
	if err != nil {
		return "", "", err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	p, err := s.store.Update(ctx, userID, func(p *models.Profile) error {
		if !p.HasLocation() {
			return ErrNoLocation
		}
		p.Daily = &models.Daily{Time: at}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNoLocation) {
			logger.From(ctx).Error("failed to save daily time", zap.Error(err))
		}
		return "", "", err
	}

	if err := s.schedule(userID, at, p.TZ); err != nil {
		logger.From(ctx).Error("failed to schedule daily job", zap.Error(err))
		if _, rerr := s.store.Update(ctx, userID, func(p *models.Profile) error {
			p.Daily = nil
			return nil
		}); rerr != nil {
			logger.From(ctx).Error("failed to roll back daily time", zap.Error(rerr))
		}
		return "", "", err
	}
	return at, p.TZ, nil
}

// StopDaily снимает ежедневную рассылку.
func (s *Service) StopDaily(ctx context.Context, userID int64) Reply {
	unlock := s.lockUser(userID)
	defer unlock()

	s.scheduler.Cancel(userID)
	if _, err := s.store.Update(ctx, userID, func(p *models.Profile) error {
		p.Daily = nil
		return nil
	}); err != nil {
		logger.From(ctx).Error("failed to clear daily time", zap.Error(err))
	}
	return Reply{Text: textDailyStopped}
}

// SendScheduled - одна плановая отправка. Ошибки только логируются.
func (s *Service) SendScheduled(ctx context.Context, userID int64) {
	log := s.log.With(zap.Int64("user_id", userID), zap.String("trigger", "scheduled"))
	ctx = logger.Into(ctx, log)

	p, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		log.Error("failed to get profile", zap.Error(err))
		metrics.Deliveries.WithLabelValues("scheduled", "error").Inc()
		return
	}
	if p.Daily == nil {
		// Рассылку уже отключили, задача осталась лишней.
		log.Warn("scheduled send without daily time, cancelling job")
		s.cancelIfStopped(ctx, userID)
		metrics.Deliveries.WithLabelValues("scheduled", "skipped").Inc()
		return
	}
	if !p.HasLocation() {
		log.Warn("scheduled send without location, skipping")
		metrics.Deliveries.WithLabelValues("scheduled", "skipped").Inc()
		return
	}

	lat, lon, tz := p.Location()
	f, err := s.forecaster.Tomorrow(ctx, lat, lon, tz)
	if err != nil {
		log.Warn("scheduled forecast unavailable", zap.Error(err))
		metrics.Deliveries.WithLabelValues("scheduled", "skipped").Inc()
		return
	}

	reply := Reply{Text: weather.FormatForecast(p.CityLabel, *f), Markdown: true}
	if err := s.notifier.Deliver(ctx, userID, reply); err != nil {
		log.Error("failed to deliver scheduled forecast", zap.Error(err))
		metrics.Deliveries.WithLabelValues("scheduled", "error").Inc()
		return
	}
	metrics.Deliveries.WithLabelValues("scheduled", "ok").Inc()
	log.Info("scheduled forecast delivered")
}

// RestoreSchedules ставит задачи для всех сохранённых подписок.
func (s *Service) RestoreSchedules(ctx context.Context) (int, error) {
	profiles, err := s.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	restored := 0
	for userID, p := range profiles {
		if p.Daily == nil || !p.HasLocation() {
			continue
		}
		if err := s.schedule(userID, p.Daily.Time, p.TZ); err != nil {
			s.log.Warn("failed to restore daily job",
				zap.Int64("user_id", userID),
				zap.String("time", p.Daily.Time),
				zap.Error(err))
			continue
		}
		restored++
	}
	return restored, nil
}

// cancelIfStopped снимает задачу, если в профиле рассылки по-прежнему нет.
func (s *Service) cancelIfStopped(ctx context.Context, userID int64) {
	unlock := s.lockUser(userID)
	defer unlock()

	p, err := s.store.GetOrCreate(ctx, userID)
	if err != nil || p.Daily != nil {
		return
	}
	s.scheduler.Cancel(userID)
}

func (s *Service) schedule(userID int64, at, tz string) error {
	return s.scheduler.Schedule(userID, at, tz, func(ctx context.Context) {
		s.SendScheduled(ctx, userID)
	})
}

// resolve сохраняет выбранный город и отвечает прогнозом.
func (s *Service) resolve(ctx context.Context, userID int64, c weather.Candidate) Reply {
	log := logger.From(ctx)
	label := weather.CityLabel(c)
	tz := normalizeTimezone(c.Timezone)

	unlock := s.lockUser(userID)
	p, err := s.store.Update(ctx, userID, func(p *models.Profile) error {
		p.SetLocation(label, c.Latitude, c.Longitude, tz)
		return nil
	})
	if err != nil {
		log.Error("failed to save location", zap.Error(err))
	} else if p.Daily != nil {
		// Часовой пояс мог смениться вместе с городом.
		if err := s.schedule(userID, p.Daily.Time, tz); err != nil {
			log.Error("failed to reschedule daily job", zap.Error(err))
		}
	}
	unlock()

	return s.forecastReply(ctx, label, c.Latitude, c.Longitude, tz)
}

func (s *Service) forecastReply(ctx context.Context, label string, lat, lon float64, tz string) Reply {
	f, err := s.forecaster.Tomorrow(ctx, lat, lon, tz)
	if err != nil {
		logger.From(ctx).Warn("forecast unavailable", zap.String("city", label), zap.Error(err))
		return Reply{Text: textForecastFailed}
	}

	return Reply{
		Text:     weather.FormatForecast(label, *f),
		Markdown: true,
		Keyboard: [][]Button{{{Text: textSubscribe, Data: CallbackDailyPrefix + DefaultDailyTime}}},
	}
}

func normalizeTimezone(tz string) string {
	if tz == "" {
		return weather.FallbackTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return weather.FallbackTimezone
	}
	return tz
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
