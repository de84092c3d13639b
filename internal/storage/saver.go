package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/pilotsim/internal/config"
	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/snapshot"
)

// Open создаёт хранилище снимков по конфигурации
func Open(cfg config.StorageConfig) (SnapshotRepo, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemorySnapshotRepo(), nil
	case "badger":
		return NewBadgerSnapshotRepo(cfg.BadgerPath)
	case "redis":
		rc := DefaultRedisConfig()
		if cfg.RedisAddr != "" {
			rc.Addr = cfg.RedisAddr
		}
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		return NewRedisSnapshotRepo(rc)
	case "maria":
		return NewMariaSnapshotRepo(cfg.MariaDSN)
	default:
		return nil, fmt.Errorf("неизвестное хранилище снимков: %s", cfg.Backend)
	}
}

// Saver сохраняет снимки в фоне. Цикл симуляции только предлагает
// свежий снимок и никогда не ждёт хранилища: между сохранениями
// остаётся лишь последний предложенный снимок.
type Saver struct {
	repo     SnapshotRepo
	interval time.Duration
	keep     int

	mu      sync.Mutex
	pending *snapshot.Frame
	saved   uint64 // Номер последнего сохранённого кадра

	logger *logging.Logger
}

// NewSaver создаёт фоновое сохранение с периодом interval, храня keep снимков
func NewSaver(repo SnapshotRepo, interval time.Duration, keep int) *Saver {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Saver{
		repo:     repo,
		interval: interval,
		keep:     keep,
		logger:   logging.GetComponentLogger("storage"),
	}
}

// Offer запоминает снимок для ближайшего сохранения
func (s *Saver) Offer(f *snapshot.Frame) {
	if f == nil {
		return
	}
	s.mu.Lock()
	s.pending = f
	s.mu.Unlock()
}

// Run сохраняет снимки до отмены ctx, при остановке сохраняет последний
func (s *Saver) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.Error("ошибка сохранения снимка: %v", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Flush(final); err != nil {
				s.logger.Error("ошибка сохранения снимка при остановке: %v", err)
			}
			cancel()
			return
		}
	}
}

// Flush сохраняет ожидающий снимок и удаляет лишние
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	f := s.pending
	s.pending = nil
	s.mu.Unlock()

	if f == nil {
		return nil
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return err
	}

	s.mu.Lock()
	s.saved = f.Frame
	s.mu.Unlock()

	if s.keep > 0 {
		n, err := s.repo.Prune(ctx, s.keep)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Debug("удалено %d старых снимков", n)
		}
	}
	return nil
}

// LastSaved номер последнего сохранённого кадра
func (s *Saver) LastSaved() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}
