package pilot_test

import (
	"errors"
	"testing"

	"github.com/annel0/pilotsim/internal/faction"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/pilot/pilottest"
	"github.com/annel0/pilotsim/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	pilot.NopMetrics
	violations map[string]int
	hooks      map[pilot.HookType]int
	aiErrors   int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{violations: map[string]int{}, hooks: map[pilot.HookType]int{}}
}

func (m *countingMetrics) InvariantViolation(kind string) { m.violations[kind]++ }
func (m *countingMetrics) HookFired(t pilot.HookType)     { m.hooks[t]++ }
func (m *countingMetrics) AIError()                       { m.aiErrors++ }

func TestRegistry_CreateAssignsIDs(t *testing.T) {
	reg := pilottest.Registry()
	npc := pilottest.Spawn(reg, "NPC", vec.Zero(), 0)
	player := pilottest.Spawn(reg, "Игрок", vec.Zero(), pilot.FlagPlayer)
	npc2 := pilottest.Spawn(reg, "NPC2", vec.Zero(), 0)

	assert.Equal(t, pilot.PlayerID, player.ID())
	assert.Equal(t, uint32(2), npc.ID())
	assert.Equal(t, uint32(3), npc2.ID())

	_, err := reg.Create(pilottest.Ship(), "Второй игрок", 0, nil, 0, vec.Zero(), vec.Zero(), pilot.FlagPlayer)
	assert.Error(t, err)

	_, ok := reg.Get(0)
	assert.False(t, ok, "ID 0 означает отсутствие пилота")
	got, ok := reg.Player()
	require.True(t, ok)
	assert.Same(t, player, got)
}

func TestRegistry_HookFiresOnce(t *testing.T) {
	metrics := newCountingMetrics()
	reg := pilot.NewRegistry(pilot.DefaultParams(), faction.NewTable(), metrics)
	p := pilottest.SpawnID(reg, 7, vec.Zero())
	p.AddHook(pilot.HookDeath, 42)
	p.AddHook(pilot.HookBoard, 43)

	rec := &pilottest.Recorder{}
	require.True(t, p.Kill(reg.Events()))
	drained := reg.DispatchHooks(rec)

	require.Len(t, drained, 1)
	assert.Equal(t, []pilottest.HookCall{{Handler: 42, Pilot: 7, Type: pilot.HookDeath}}, rec.Calls)
	assert.Equal(t, 1, metrics.hooks[pilot.HookDeath])
	assert.Len(t, p.Hooks(), 2, "Регистрации сохраняются после вызова")

	// Повторный разбор пустой очереди ничего не вызывает
	assert.Empty(t, reg.DispatchHooks(rec))
	assert.Equal(t, 1, rec.Count(42))
}

func TestRegistry_RemovedHookDoesNotFire(t *testing.T) {
	reg := pilottest.Registry()
	p := pilottest.SpawnID(reg, 7, vec.Zero())
	p.AddHook(pilot.HookDeath, 42)

	rec := &pilottest.Recorder{}
	p.Kill(reg.Events())
	assert.Equal(t, 1, reg.RmHook(42))
	reg.DispatchHooks(rec)

	assert.Zero(t, rec.Count(42))
}

func TestRegistry_HookRemovedDuringDispatch(t *testing.T) {
	reg := pilottest.Registry()
	p := pilottest.SpawnID(reg, 7, vec.Zero())
	p.AddHook(pilot.HookDeath, 42)
	p.AddHook(pilot.HookDeath, 43)

	rec := &pilottest.Recorder{}
	// Первый обработчик снимает второй до того, как до него дойдёт очередь
	rec.OnCall = func(c pilottest.HookCall) {
		if c.Handler == 42 {
			reg.RmHook(43)
		}
	}
	require.True(t, p.Kill(reg.Events()))
	reg.DispatchHooks(rec)

	assert.Equal(t, 1, rec.Count(42))
	assert.Zero(t, rec.Count(43))
	assert.Equal(t, []pilot.Hook{{Type: pilot.HookDeath, Handler: 42}}, p.Hooks())
}

func TestRegistry_HookErrorsAndChains(t *testing.T) {
	reg := pilottest.Registry()
	a := pilottest.SpawnID(reg, 7, vec.Zero())
	b := pilottest.SpawnID(reg, 8, vec.Zero())
	a.AddHook(pilot.HookHail, 1)
	a.AddHook(pilot.HookHail, 2)
	b.AddHook(pilot.HookHail, 3)

	rec := &pilottest.Recorder{Err: errors.New("скрипт упал")}
	// Первый обработчик вызывает b на связь: событие разбирается в том же вызове
	rec.OnCall = func(c pilottest.HookCall) {
		if c.Handler == 1 {
			_ = a.Hail(reg, b.ID())
		}
	}
	reg.Events().QueueHook(a.ID(), pilot.HookHail)
	drained := reg.DispatchHooks(rec)

	assert.Len(t, drained, 2)
	assert.Equal(t, 1, rec.Count(1))
	assert.Equal(t, 1, rec.Count(2), "Ошибка обработчика не прерывает обход")
	assert.Equal(t, 1, rec.Count(3))
}

func TestRunHook_RecoversPanic(t *testing.T) {
	reg := pilottest.Registry()
	p := pilottest.SpawnID(reg, 5, vec.Zero())
	p.AddHook(pilot.HookJump, 1)
	p.AddHook(pilot.HookJump, 2)
	p.AddHook(pilot.HookDeath, 3)

	var seen []uint32
	d := pilot.HookDispatcherFunc(func(handler, pilotID uint32, tp pilot.HookType) error {
		seen = append(seen, handler)
		if handler == 1 {
			panic("сбой")
		}
		return nil
	})
	assert.Equal(t, 2, pilot.RunHook(p, pilot.HookJump, d))
	assert.Equal(t, []uint32{1, 2}, seen)

	assert.Equal(t, 2, p.RmHook(1)+p.RmHook(3))
	assert.Equal(t, []pilot.Hook{{Type: pilot.HookJump, Handler: 2}}, p.Hooks())
}

func TestRegistry_UpdateIsolatesPanics(t *testing.T) {
	metrics := newCountingMetrics()
	reg := pilot.NewRegistry(pilot.DefaultParams(), faction.NewTable(), metrics)
	broken := pilottest.SpawnID(reg, 2, vec.Zero())
	healthy := pilottest.SpawnID(reg, 3, vec.Zero())
	healthy.SetHealth(50, 0)

	broken.Solid = nil
	assert.NotPanics(t, func() { reg.Update(1) })
	assert.Equal(t, 1, metrics.violations["panic"])
	assert.Greater(t, healthy.Armour(), 50.0, "Остальные пилоты обновились")
}

func TestRegistry_Reap(t *testing.T) {
	reg := pilottest.Registry()
	a := pilottest.Spawn(reg, "A", vec.Zero(), 0)
	b := pilottest.Spawn(reg, "B", vec.Zero(), 0)
	c := pilottest.Spawn(reg, "C", vec.Zero(), 0)

	b.MarkDelete()
	_, ok := reg.Get(b.ID())
	assert.True(t, ok, "Помеченный пилот доступен до очистки")

	assert.Equal(t, []uint32{b.ID()}, reg.Reap())
	_, ok = reg.Get(b.ID())
	assert.False(t, ok)
	assert.Equal(t, []*pilot.Pilot{a, c}, reg.All())
	assert.Empty(t, reg.Reap())
}

func TestRegistry_NextPrevID(t *testing.T) {
	factions := faction.NewTable()
	pirates, err := factions.Add(faction.Faction{Name: "Pirate", Standing: -50})
	require.NoError(t, err)
	traders, err := factions.Add(faction.Faction{Name: "Trader", Standing: 20})
	require.NoError(t, err)

	reg := pilot.NewRegistry(pilot.DefaultParams(), factions, nil)
	pilottest.Spawn(reg, "Игрок", vec.Zero(), pilot.FlagPlayer)
	mk := func(fac faction.ID) uint32 {
		p, err := reg.Create(pilottest.Ship(), "npc", fac, nil, 0, vec.Zero(), vec.Zero(), 0)
		require.NoError(t, err)
		return p.ID()
	}
	t1 := mk(traders)
	p1 := mk(pirates)
	t2 := mk(traders)
	p2 := mk(pirates)

	assert.Equal(t, t1, reg.NextID(0, false))
	assert.Equal(t, p1, reg.NextID(t1, false))
	assert.Equal(t, t1, reg.NextID(p2, false), "По кругу")
	assert.Equal(t, p2, reg.PrevID(t1, false))
	assert.Equal(t, t2, reg.PrevID(p2, false))

	assert.Equal(t, p1, reg.NextID(0, true))
	assert.Equal(t, p2, reg.NextID(p1, true))
	assert.Equal(t, p1, reg.NextID(p2, true))
	assert.Equal(t, p2, reg.PrevID(p1, true))

	empty := pilottest.Registry()
	assert.Zero(t, empty.NextID(0, false))
}

func TestRegistry_ViewCommandTarget(t *testing.T) {
	reg := pilottest.Registry()
	escort := pilottest.SpawnID(reg, 5, vec.Zero())
	target := pilottest.SpawnID(reg, 7, vec.New(200, 0))
	escort.SetCommand(pilot.Command{Kind: pilot.CmdAttack, Target: target.ID()})

	assert.True(t, reg.View(escort).CommandTargetValid)

	require.True(t, target.Kill(reg.Events()))
	assert.False(t, reg.View(escort).CommandTargetValid, "Гибнущая цель не годится для приказа")

	escort.SetCommand(pilot.Command{Kind: pilot.CmdAttack, Target: 99})
	assert.False(t, reg.View(escort).CommandTargetValid)
}

func TestRegistry_Queries(t *testing.T) {
	factions := faction.NewTable()
	pirates, err := factions.Add(faction.Faction{Name: "Pirate", Standing: -50})
	require.NoError(t, err)
	reg := pilot.NewRegistry(pilot.DefaultParams(), factions, nil)

	player := pilottest.Spawn(reg, "Игрок", vec.New(0, 0), pilot.FlagPlayer)
	friend, err := reg.Create(pilottest.Ship(), "Друг", 0, nil, 0, vec.New(-50, 0), vec.Zero(), 0)
	require.NoError(t, err)
	pirate, err := reg.Create(pilottest.Ship(), "Пират", pirates, nil, 0, vec.New(300, 0), vec.Zero(), 0)
	require.NoError(t, err)

	id, ok := reg.NearestHostile()
	require.True(t, ok)
	assert.Equal(t, pirate.ID(), id)

	id, ok = reg.NearestPilot(player)
	require.True(t, ok)
	assert.Equal(t, friend.ID(), id)

	id, ok = reg.NearestEnemy(pirate)
	require.True(t, ok)
	assert.Equal(t, player.ID(), id, "Пират враждебен игроку")

	assert.Len(t, reg.InRadius(vec.Zero(), 100), 2)

	pirate.SetFlag(pilot.FlagFriendly)
	assert.False(t, reg.IsHostile(pirate))

	friend.SetTarget(player.ID())
	view := reg.View(friend)
	assert.True(t, view.TargetValid)
	assert.Equal(t, player.ID(), view.Target.ID)
	assert.InDelta(t, 1.0, view.Armour, 1e-9)
}
