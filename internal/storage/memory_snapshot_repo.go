package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/annel0/pilotsim/internal/snapshot"
)

// MemorySnapshotRepo хранит снимки в памяти процесса.
// Используется по умолчанию и в тестах; данные теряются при перезапуске.
type MemorySnapshotRepo struct {
	mu     sync.RWMutex
	frames map[uint64][]byte // Сжатые снимки, чтобы не делить указатели с вызывающим
	codec  *Codec
}

// NewMemorySnapshotRepo создаёт пустое хранилище
func NewMemorySnapshotRepo() *MemorySnapshotRepo {
	return &MemorySnapshotRepo{
		frames: make(map[uint64][]byte),
		codec:  &defaultCodec,
	}
}

func (r *MemorySnapshotRepo) Save(ctx context.Context, f *snapshot.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := r.codec.Encode(f)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.frames[f.Frame] = data
	r.mu.Unlock()
	return nil
}

func (r *MemorySnapshotRepo) Latest(ctx context.Context) (*snapshot.Frame, error) {
	ids, err := r.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, ids[0])
}

func (r *MemorySnapshotRepo) Get(ctx context.Context, frame uint64) (*snapshot.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	data, ok := r.frames[frame]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.codec.Decode(data)
}

func (r *MemorySnapshotRepo) List(ctx context.Context, limit int) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.frames))
	for id := range r.frames {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *MemorySnapshotRepo) Prune(ctx context.Context, keep int) (int, error) {
	ids, err := r.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(ids) <= keep {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids[keep:] {
		delete(r.frames, id)
	}
	return len(ids) - keep, nil
}

// Count число хранимых снимков
func (r *MemorySnapshotRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

func (r *MemorySnapshotRepo) Close() error { return nil }
