package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/pilotsim/internal/snapshot"
)

var framePrefix = []byte("frame/")

// frameKey ключ снимка: префикс и номер кадра big-endian, чтобы порядок ключей совпадал с порядком кадров
func frameKey(frame uint64) []byte {
	key := make([]byte, len(framePrefix)+8)
	copy(key, framePrefix)
	binary.BigEndian.PutUint64(key[len(framePrefix):], frame)
	return key
}

func frameFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(framePrefix):])
}

// BadgerSnapshotRepo хранит снимки в локальной BadgerDB
type BadgerSnapshotRepo struct {
	db      *badger.DB
	mu      sync.RWMutex
	isReady bool
	codec   *Codec
}

// NewBadgerSnapshotRepo открывает базу по пути path.
// Пустой path открывает базу в памяти (для тестов).
func NewBadgerSnapshotRepo(path string) (*BadgerSnapshotRepo, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Badger пишет слишком подробно

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	return &BadgerSnapshotRepo{db: db, isReady: true, codec: &defaultCodec}, nil
}

func (r *BadgerSnapshotRepo) ready() error {
	if !r.isReady {
		return fmt.Errorf("хранилище BadgerDB закрыто")
	}
	return nil
}

func (r *BadgerSnapshotRepo) Save(ctx context.Context, f *snapshot.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := r.codec.Encode(f)
	if err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(frameKey(f.Frame), data)
	})
}

func (r *BadgerSnapshotRepo) Get(ctx context.Context, frame uint64) (*snapshot.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return nil, err
	}

	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(frameKey(frame))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения снимка %d: %w", frame, err)
	}
	return r.codec.Decode(data)
}

func (r *BadgerSnapshotRepo) Latest(ctx context.Context) (*snapshot.Frame, error) {
	ids, err := r.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, ids[0])
}

// List обходит ключи в обратном порядке без чтения значений
func (r *BadgerSnapshotRepo) List(ctx context.Context, limit int) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return nil, err
	}

	var ids []uint64
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = framePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// При обратном обходе поиск начинается с ключа больше любого кадра
		seek := append(append([]byte{}, framePrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seek); it.ValidForPrefix(framePrefix); it.Next() {
			ids = append(ids, frameFromKey(it.Item().Key()))
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
		return nil
	})
	return ids, err
}

func (r *BadgerSnapshotRepo) Prune(ctx context.Context, keep int) (int, error) {
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

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return 0, err
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for _, id := range ids[keep:] {
		if err := wb.Delete(frameKey(id)); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("ошибка удаления старых снимков: %w", err)
	}
	return len(ids) - keep, nil
}

func (r *BadgerSnapshotRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isReady {
		return nil
	}
	r.isReady = false
	return r.db.Close()
}
