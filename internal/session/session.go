// Package session хранит короткоживущее состояние диалога: последний запрос
// города и список вариантов, ожидающих выбора.
package session

import (
	"context"
	"sync"

	"github.com/artur/pogoda-bot/internal/weather"
)

// Store - контракт хранилища сессий.
type Store interface {
	// Begin фиксирует новый запрос, сбрасывает ожидающий выбор и возвращает его поколение.
	Begin(ctx context.Context, userID int64, query string) (uint64, error)
	// Offer сохраняет варианты, если поколение ещё актуально. false - запрос уже устарел.
	Offer(ctx context.Context, userID int64, gen uint64, candidates []weather.Candidate) (bool, error)
	// Take забирает вариант по индексу и закрывает выбор. false - списка нет или индекс вне диапазона.
	Take(ctx context.Context, userID int64, idx int) (weather.Candidate, bool, error)
	// LastQuery возвращает последний запрос пользователя.
	LastQuery(ctx context.Context, userID int64) (string, error)
	Close() error
}

type entry struct {
	gen        uint64
	query      string
	candidates []weather.Candidate
}

// Memory - сессии в памяти процесса.
type Memory struct {
	mu    sync.Mutex
	users map[int64]*entry
}

// NewMemory создаёт пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{users: make(map[int64]*entry)}
}

func (m *Memory) Begin(ctx context.Context, userID int64, query string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.users[userID]
	if !ok {
		e = &entry{}
		m.users[userID] = e
	}
	e.gen++
	e.query = query
	e.candidates = nil
	return e.gen, nil
}

func (m *Memory) Offer(ctx context.Context, userID int64, gen uint64, candidates []weather.Candidate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.users[userID]
	if !ok || e.gen != gen {
		return false, nil
	}
	e.candidates = append([]weather.Candidate(nil), candidates...)
	return true, nil
}

func (m *Memory) Take(ctx context.Context, userID int64, idx int) (weather.Candidate, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.users[userID]
	if !ok || idx < 0 || idx >= len(e.candidates) {
		return weather.Candidate{}, false, nil
	}
	c := e.candidates[idx]
	e.candidates = nil
	return c, true, nil
}

func (m *Memory) LastQuery(ctx context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.users[userID]; ok {
		return e.query, nil
	}
	return "", nil
}

func (m *Memory) Close() error { return nil }
