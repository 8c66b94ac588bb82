// Package scheduler держит по одной ежедневной задаче на пользователя
// в его часовом поясе.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/metrics"
)

// ErrInvalidTime - время не в формате HH:MM.
var ErrInvalidTime = errors.New("time must be HH:MM")

var validate = validator.New()

// NormalizeTime приводит "8:30" и "08:30" к "08:30" и проверяет диапазон.
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[1] == ':' {
		s = "0" + s
	}
	if err := validate.Var(s, "len=5,datetime=15:04"); err != nil {
		return "", ErrInvalidTime
	}
	return s, nil
}

// Key - идентификатор задачи пользователя.
func Key(userID int64) string {
	return "daily_" + strconv.FormatInt(userID, 10)
}

// Job - действие, выполняемое по расписанию.
type Job func(ctx context.Context)

// Scheduler - таблица задач поверх cron: не больше одной записи на ключ.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New создаёт планировщик. timeout ограничивает одно выполнение задачи.
func New(log *zap.Logger, timeout time.Duration) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cl := cronLogger{log: log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		log:     log,
		timeout: timeout,
		entries: make(map[string]cron.EntryID),
	}
}

// Schedule ставит ежедневную задачу на at (HH:MM) в часовом поясе tz,
// заменяя предыдущую задачу пользователя.
func (s *Scheduler) Schedule(userID int64, at, tz string, job Job) error {
	at, err := NormalizeTime(at)
	if err != nil {
		return err
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", tz, err)
	}

	hour, _ := strconv.Atoi(at[:2])
	minute, _ := strconv.Atoi(at[3:])
	spec := fmt.Sprintf("CRON_TZ=%s %d %d * * *", tz, minute, hour)

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("failed to parse schedule %q: %w", spec, err)
	}

	key := Key(userID)
	timeout := s.timeout
	run := cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		job(ctx)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[key]; ok {
		s.cron.Remove(id)
	}
	s.entries[key] = s.cron.Schedule(schedule, run)
	metrics.DailyJobs.Set(float64(len(s.entries)))

	s.log.Info("daily job scheduled",
		zap.String("key", key),
		zap.String("time", at),
		zap.String("tz", tz))
	return nil
}

// Cancel снимает задачу пользователя. Отсутствие задачи не ошибка.
func (s *Scheduler) Cancel(userID int64) {
	key := Key(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[key]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.entries, key)
	metrics.DailyJobs.Set(float64(len(s.entries)))

	s.log.Info("daily job cancelled", zap.String("key", key))
}

// Next возвращает ближайшее срабатывание задачи пользователя после from.
func (s *Scheduler) Next(userID int64, from time.Time) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[Key(userID)]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	entry := s.cron.Entry(id)
	if entry.Schedule == nil {
		return time.Time{}, false
	}
	return entry.Schedule.Next(from), true
}

// Len возвращает число активных задач.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start запускает cron в отдельной горутине.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", s.Len()))
}

// Stop останавливает cron и ждёт выполняющиеся задачи, пока жив ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", zap.Error(ctx.Err()))
	}
}

// cronLogger пробрасывает логи cron в zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
