package world

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/pilotsim/internal/catalog"
	"github.com/annel0/pilotsim/internal/config"
	"github.com/annel0/pilotsim/internal/escort"
	"github.com/annel0/pilotsim/internal/eventbus"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/player"
	"github.com/annel0/pilotsim/internal/vec"
)

type hookCall struct {
	handler uint32
	pilot   uint32
	t       pilot.HookType
}

type recorder struct {
	mu    sync.Mutex
	calls []hookCall
}

func (r *recorder) RunHook(handler, pilotID uint32, t pilot.HookType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, hookCall{handler, pilotID, t})
	return nil
}

func (r *recorder) count(handler uint32, t pilot.HookType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.handler == handler && c.t == t {
			n++
		}
	}
	return n
}

func newTestWorld(t *testing.T, opts Options) *World {
	t.Helper()
	cat, err := catalog.Load("../../configs/catalog.yml")
	require.NoError(t, err)
	if opts.Config == nil {
		opts.Config = config.Default()
		opts.Config.Sim.StartSystem = "Delta Pavonis"
	}
	opts.Catalog = cat
	w, err := New(opts)
	require.NoError(t, err)
	return w
}

// run выполняет кадры, пока не пройдёт seconds секунд симуляции
func run(w *World, seconds float64) {
	for t := 0.0; t < seconds; t += 0.1 {
		w.Step(context.Background(), 0.1)
	}
}

func TestNew_Validation(t *testing.T) {
	cat, err := catalog.Load("../../configs/catalog.yml")
	require.NoError(t, err)

	_, err = New(Options{Catalog: cat})
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Sim.StartSystem = "Nowhere"
	_, err = New(Options{Config: cfg, Catalog: cat})
	assert.Error(t, err)

	cfg.Sim.StartSystem = ""
	w, err := New(Options{Config: cfg, Catalog: cat})
	require.NoError(t, err)
	assert.Equal(t, "Delta Pavonis", w.System(), "Без стартовой системы берётся первая из каталога")
}

func TestStep_SubdividesAndSkips(t *testing.T) {
	w := newTestWorld(t, Options{})

	w.Step(context.Background(), 0.5)
	assert.Equal(t, uint64(0), w.Frame(), "Слишком длинный кадр пропускается")
	assert.Nil(t, w.Latest())

	w.Step(context.Background(), 0.05)
	require.NotNil(t, w.Latest())
	assert.Equal(t, uint64(1), w.Latest().Frame)
	assert.InDelta(t, 0.05, w.Latest().SimTime, 1e-9)
	assert.Equal(t, "Delta Pavonis", w.Latest().System)
}

func TestEnqueue_AppliedAtFrameBoundary(t *testing.T) {
	w := newTestWorld(t, Options{})

	var id uint32
	done, err := w.Enqueue(func(w *World) error {
		p, err := w.Spawn("Hyena", "Raider", "Pirate", vec.New(300, 0), 0)
		if err == nil {
			id = p.ID()
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 0, w.Registry().Len(), "До кадра команда не применяется")

	w.Step(context.Background(), 0.02)
	require.NoError(t, <-done)

	snap, ok := w.Latest().Pilot(id)
	require.True(t, ok)
	assert.Equal(t, "Raider", snap.Name)
	assert.Equal(t, "Pirate", snap.Faction)

	done, err = w.Enqueue(func(w *World) error {
		_, err := w.Spawn("Galaxy", "", "Pirate", vec.Zero(), 0)
		return err
	})
	require.NoError(t, err)
	w.Step(context.Background(), 0.02)
	assert.ErrorIs(t, <-done, ErrUnknownShip)
}

func TestSubmit_ContextCancelled(t *testing.T) {
	w := newTestWorld(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.Submit(ctx, func(w *World) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded, "Без цикла команда не выполняется")
}

func TestRunCommand_RecoversPanic(t *testing.T) {
	w := newTestWorld(t, Options{})
	done, err := w.Enqueue(func(w *World) error { panic("сбой") })
	require.NoError(t, err)

	w.Step(context.Background(), 0.02)
	assert.Error(t, <-done)
	assert.Equal(t, uint64(1), w.Frame(), "Кадр выполнен несмотря на панику")
}

func TestDeath_HookFiresOnceAndPilotReaped(t *testing.T) {
	rec := &recorder{}
	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()

	events := make(chan *eventbus.Envelope, 64)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		events <- ev
	})
	require.NoError(t, err)

	w := newTestWorld(t, Options{Hooks: rec, Bus: bus})
	p, err := w.Spawn("Hyena", "Target", "Independent", vec.New(500, 0), 0)
	require.NoError(t, err)
	id := p.ID()
	require.NoError(t, w.AddHook(id, "death", 42))
	require.NoError(t, w.AddHook(id, "attacked", 43))
	require.NoError(t, w.AddHook(id, "death", 44))
	assert.Equal(t, 1, w.RmHook(44))

	absorbed, err := w.Damage(id, "raw", 1000)
	require.NoError(t, err)
	assert.Greater(t, absorbed, 0.0)

	run(w, 3)

	assert.Equal(t, 1, rec.count(42, pilot.HookDeath), "DEATH срабатывает ровно один раз")
	assert.Equal(t, 0, rec.count(44, pilot.HookDeath), "Снятый обработчик не вызывается")
	_, ok := w.Registry().Get(id)
	assert.False(t, ok, "Уничтоженный пилот удалён из реестра")
	_, ok = w.Latest().Pilot(id)
	assert.False(t, ok)

	w.FlushEvents(context.Background())
	var sawHook, sawDeath bool
	timeout := time.After(time.Second)
	for !(sawHook && sawDeath) {
		select {
		case ev := <-events:
			switch ev.EventType {
			case eventbus.TypeHook:
				var hp eventbus.HookPayload
				require.NoError(t, ev.Decode(&hp))
				if hp.Hook == "death" {
					assert.Equal(t, id, hp.Pilot)
					assert.Equal(t, "Target", hp.Name)
					sawHook = true
				}
			case eventbus.TypeDeath:
				var dp eventbus.DeathPayload
				require.NoError(t, ev.Decode(&dp))
				assert.Equal(t, id, dp.Pilot)
				assert.False(t, dp.Player)
				sawDeath = true
			}
		case <-timeout:
			t.Fatalf("события не получены: hook=%v death=%v", sawHook, sawDeath)
		}
	}
}

func TestDamage_Errors(t *testing.T) {
	w := newTestWorld(t, Options{})
	_, err := w.Damage(99, "raw", 10)
	assert.ErrorIs(t, err, ErrNoPilot)

	p, err := w.Spawn("Lancelot", "", "Empire", vec.Zero(), 0)
	require.NoError(t, err)
	_, err = w.Damage(p.ID(), "plasma", 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = w.Damage(p.ID(), "raw", -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, w.AddHook(p.ID(), "teleport", 1), ErrInvalidArgument)
}

func TestPlayerSession(t *testing.T) {
	w := newTestWorld(t, Options{})
	assert.ErrorIs(t, w.PlayerCommand("accel", 1), player.ErrNoSession)

	p, err := w.StartPlayer("Hyena", "Ace", vec.New(0, 2000))
	require.NoError(t, err)
	assert.Equal(t, pilot.PlayerID, p.ID())
	assert.Equal(t, "Delta Pavonis", p.System)
	require.NotNil(t, w.Session())

	_, err = w.StartPlayer("Hyena", "Ace", vec.Zero())
	assert.Error(t, err, "Вторая сессия не начинается")

	require.NoError(t, w.PlayerCommand("thyperspace", 1))
	assert.Equal(t, "Alpha Centauri", w.Session().HyperTarget())

	w.Step(context.Background(), 0.02)
	assert.Equal(t, pilot.PlayerID, w.Latest().Player)
}

func TestPlayerDeath_EndsSession(t *testing.T) {
	w := newTestWorld(t, Options{})
	p, err := w.StartPlayer("Lancelot", "Ace", vec.Zero())
	require.NoError(t, err)

	_, err = w.Damage(p.ID(), "raw", 10000)
	require.NoError(t, err)
	run(w, 3)

	assert.False(t, w.Session().Active())
	assert.Equal(t, uint32(0), w.Latest().Player)
}

func TestJump_RequiresAdjacentSystem(t *testing.T) {
	w := newTestWorld(t, Options{})
	p, err := w.StartPlayer("Hyena", "Ace", vec.New(0, 2000))
	require.NoError(t, err)

	assert.ErrorIs(t, w.Jump(p.ID(), "Sol"), pilot.ErrNoHyperTarget)
	assert.ErrorIs(t, w.Jump(77, "Sol"), ErrNoPilot)
	require.NoError(t, w.Jump(p.ID(), "Eridani"))
	assert.Equal(t, pilot.HypPrep, p.HyperPhase())
}

func TestArrival_PlayerMovesWorldAndEscorts(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()
	w := newTestWorld(t, Options{Bus: bus})

	pl, err := w.StartPlayer("Hyena", "Ace", vec.New(0, 2000))
	require.NoError(t, err)
	esc, err := w.SpawnEscort(pl.ID(), "Lancelot")
	require.NoError(t, err)
	npc, err := w.Spawn("Hyena", "Trader", "Trader", vec.New(400, 0), 0)
	require.NoError(t, err)
	require.NoError(t, w.PlayerCommand("thyperspace", 1))

	pl.System = "Alpha Centauri"
	w.Registry().Arrived(pl, "Delta Pavonis")

	assert.Equal(t, "Alpha Centauri", w.System())
	assert.Empty(t, w.Session().HyperTarget(), "Цель прыжка сбрасывается по прибытии")
	assert.Equal(t, "Alpha Centauri", esc.System, "Эскорт следует за игроком")
	assert.False(t, esc.IsDeleted())
	assert.True(t, npc.IsDeleted(), "Чужие пилоты остаются в старой системе")

	w.Step(context.Background(), 0.02)
	_, ok := w.Registry().Get(npc.ID())
	assert.False(t, ok)
	assert.Equal(t, "Alpha Centauri", w.Latest().System)
}

func TestArrival_NPCLeavesSystem(t *testing.T) {
	w := newTestWorld(t, Options{})
	npc, err := w.Spawn("Lancelot", "", "Empire", vec.New(2000, 0), 0)
	require.NoError(t, err)

	npc.System = "Eridani"
	w.Registry().Arrived(npc, "Delta Pavonis")
	assert.True(t, npc.IsDeleted())
	assert.Equal(t, "Delta Pavonis", w.System())
}

func TestDeploy_FighterDocksOnReturn(t *testing.T) {
	w := newTestWorld(t, Options{})
	carrier, err := w.Spawn("Kestrel", "Carrier", "Empire", vec.Zero(), 0)
	require.NoError(t, err)

	_, err = w.Deploy(carrier.ID(), 0)
	assert.Error(t, err, "Слот без ангара")

	fighter, err := w.Deploy(carrier.ID(), 2)
	require.NoError(t, err)
	assert.True(t, fighter.HasFlag(pilot.FlagCarried))
	assert.Equal(t, carrier.ID(), fighter.Parent())
	require.Len(t, carrier.Escorts(), 1)

	assert.Equal(t, 1, escort.Return(w.Registry(), carrier))
	w.Step(context.Background(), 0.02)

	_, ok := w.Registry().Get(fighter.ID())
	assert.False(t, ok, "Истребитель вернулся в ангар")
	assert.Empty(t, carrier.Escorts())
}
