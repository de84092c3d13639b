// Package storage сохраняет снимки кадров в памяти, BadgerDB, Redis или MariaDB.
package storage

import (
	"context"
	"errors"

	"github.com/annel0/pilotsim/internal/snapshot"
)

// ErrNotFound снимок не найден
var ErrNotFound = errors.New("снимок не найден")

// SnapshotRepo хранилище снимков кадров. Снимки адресуются номером кадра.
type SnapshotRepo interface {
	// Save сохраняет снимок. Повторное сохранение кадра перезаписывает его.
	Save(ctx context.Context, f *snapshot.Frame) error

	// Latest возвращает последний сохранённый снимок или ErrNotFound
	Latest(ctx context.Context) (*snapshot.Frame, error)

	// Get возвращает снимок кадра или ErrNotFound
	Get(ctx context.Context, frame uint64) (*snapshot.Frame, error)

	// List номера сохранённых кадров, новые первыми, не больше limit (0: все)
	List(ctx context.Context, limit int) ([]uint64, error)

	// Prune оставляет keep последних снимков и возвращает число удалённых
	Prune(ctx context.Context, keep int) (int, error)

	Close() error
}
