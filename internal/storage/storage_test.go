package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/pilotsim/internal/config"
	"github.com/annel0/pilotsim/internal/snapshot"
	"github.com/annel0/pilotsim/internal/vec"
)

func frame(n uint64) *snapshot.Frame {
	return &snapshot.Frame{
		Frame:  n,
		System: "Delta Pavonis",
		Player: 1,
		Pilots: []snapshot.Pilot{
			{ID: 1, Name: "Player", Pos: vec.New(float64(n), -3), Armour: 0.5, Flags: 1 << 20},
			{ID: 2, Name: "Pirate", Pos: vec.New(100, 200), Life: "alive"},
		},
	}
}

// testRepoContract общие проверки для всех реализаций SnapshotRepo
func testRepoContract(t *testing.T, repo SnapshotRepo) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		_, err := repo.Latest(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.Get(ctx, 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Save and Get", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, frame(10)))
		got, err := repo.Get(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), got.Frame)
		require.Len(t, got.Pilots, 2)
		assert.InDelta(t, 10.0, got.Pilots[0].Pos.X(), 1e-9)
		assert.Equal(t, uint32(1<<20), got.Pilots[0].Flags)
	})

	t.Run("Latest and List order", func(t *testing.T) {
		for _, n := range []uint64{30, 20, 40} {
			require.NoError(t, repo.Save(ctx, frame(n)))
		}
		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(40), latest.Frame)

		ids, err := repo.List(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{40, 30, 20, 10}, ids)

		ids, err = repo.List(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []uint64{40, 30}, ids)
	})

	t.Run("Overwrite", func(t *testing.T) {
		f := frame(40)
		f.System = "Sol"
		require.NoError(t, repo.Save(ctx, f))
		got, err := repo.Get(ctx, 40)
		require.NoError(t, err)
		assert.Equal(t, "Sol", got.System)
	})

	t.Run("Prune", func(t *testing.T) {
		n, err := repo.Prune(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		ids, err := repo.List(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{40, 30}, ids)

		n, err = repo.Prune(ctx, 5)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMemorySnapshotRepo(t *testing.T) {
	repo := NewMemorySnapshotRepo()
	defer repo.Close()
	testRepoContract(t, repo)
}

func TestBadgerSnapshotRepo(t *testing.T) {
	repo, err := NewBadgerSnapshotRepo("")
	require.NoError(t, err)
	defer repo.Close()
	testRepoContract(t, repo)

	require.NoError(t, repo.Close())
	assert.Error(t, repo.Save(context.Background(), frame(1)), "Закрытое хранилище отказывает")
}

func TestRedisSnapshotRepo(t *testing.T) {
	addr := os.Getenv("PILOTSIM_TEST_REDIS")
	if addr == "" {
		t.Skip("PILOTSIM_TEST_REDIS не задан")
	}
	cfg := DefaultRedisConfig()
	cfg.Addr = addr
	cfg.KeyPrefix = "pilotsim:test:" + time.Now().Format("150405.000") + ":"
	repo, err := NewRedisSnapshotRepo(cfg)
	require.NoError(t, err)
	defer repo.Close()
	testRepoContract(t, repo)
}

func TestMariaSnapshotRepo(t *testing.T) {
	dsn := os.Getenv("PILOTSIM_TEST_MARIA")
	if dsn == "" {
		t.Skip("PILOTSIM_TEST_MARIA не задан")
	}
	repo, err := NewMariaSnapshotRepo(dsn)
	require.NoError(t, err)
	defer repo.Close()
	_, err = repo.db.Exec(`DELETE FROM frame_snapshots`)
	require.NoError(t, err)
	testRepoContract(t, repo)
}

func TestCodec_Compresses(t *testing.T) {
	f := frame(1)
	for i := 0; i < 200; i++ {
		f.Pilots = append(f.Pilots, snapshot.Pilot{ID: uint32(i + 3), Name: "Drone", Life: "alive", Hyper: "none"})
	}

	var c Codec
	data, err := c.Encode(f)
	require.NoError(t, err)

	back, err := c.Decode(data)
	require.NoError(t, err)
	assert.Len(t, back.Pilots, len(f.Pilots))

	_, err = c.Decode([]byte("не zstd"))
	assert.Error(t, err)
}

func TestSaver_KeepsLatestOffer(t *testing.T) {
	repo := NewMemorySnapshotRepo()
	s := NewSaver(repo, time.Hour, 2)
	ctx := context.Background()

	require.NoError(t, s.Flush(ctx), "Без снимка сохранять нечего")
	assert.Zero(t, repo.Count())

	s.Offer(frame(1))
	s.Offer(frame(2))
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 1, repo.Count(), "Сохраняется только последний предложенный снимок")
	assert.Equal(t, uint64(2), s.LastSaved())

	for _, n := range []uint64{3, 4, 5} {
		s.Offer(frame(n))
		require.NoError(t, s.Flush(ctx))
	}
	ids, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 4}, ids)
}

func TestSaver_FlushesOnStop(t *testing.T) {
	repo := NewMemorySnapshotRepo()
	s := NewSaver(repo, time.Hour, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.Offer(frame(7))
	cancel()
	<-done

	got, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Frame)
}

func TestOpen(t *testing.T) {
	repo, err := Open(config.Default().Storage)
	require.NoError(t, err)
	assert.IsType(t, &MemorySnapshotRepo{}, repo)
}
