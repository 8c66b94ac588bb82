// Package jsonstore хранит профили одним JSON-документом на диске.
// Запись атомарная: временный файл и rename поверх основного.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/artur/pogoda-bot/internal/database/models"
)

type document struct {
	Users map[string]models.Profile `json:"users"`
}

// Store - документ профилей в памяти и его копия на диске.
type Store struct {
	path string
	log  *zap.Logger

	mu  sync.Mutex
	doc document
}

// New создаёт хранилище. Файл не читается до Load.
func New(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		path: path,
		log:  log,
		doc:  document{Users: make(map[string]models.Profile)},
	}
}

// Load читает документ с диска. Отсутствующий или битый файл даёт пустой документ.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = document{Users: make(map[string]models.Profile)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("failed to read data file, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("failed to parse data file, starting empty", zap.String("path", s.path), zap.Error(err))
		return nil
	}
	if doc.Users != nil {
		s.doc = doc
	}

	s.log.Info("data file loaded", zap.String("path", s.path), zap.Int("users", len(s.doc.Users)))
	return nil
}

// GetOrCreate возвращает копию профиля, регистрируя пустой при отсутствии.
func (s *Store) GetOrCreate(ctx context.Context, userID int64) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strconv.FormatInt(userID, 10)
	p, ok := s.doc.Users[key]
	if !ok {
		s.doc.Users[key] = p
	}
	return p.Clone(), nil
}

// Update применяет fn к копии профиля и сохраняет документ.
// Если запись на диск не удалась, изменение в памяти откатывается.
func (s *Store) Update(ctx context.Context, userID int64, fn func(*models.Profile) error) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strconv.FormatInt(userID, 10)
	prev, existed := s.doc.Users[key]

	next := prev.Clone()
	if err := fn(&next); err != nil {
		return prev.Clone(), err
	}

	s.doc.Users[key] = next
	if err := s.save(); err != nil {
		if existed {
			s.doc.Users[key] = prev
		} else {
			delete(s.doc.Users, key)
		}
		return prev.Clone(), err
	}
	return next.Clone(), nil
}

// All возвращает снимок всех профилей.
func (s *Store) All(ctx context.Context) (map[int64]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64]models.Profile, len(s.doc.Users))
	for key, p := range s.doc.Users {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.log.Warn("skipping profile with bad key", zap.String("key", key))
			continue
		}
		out[id] = p.Clone()
	}
	return out, nil
}

// Save записывает весь документ на диск.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// Close ничего не держит открытым.
func (s *Store) Close() error { return nil }

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}
