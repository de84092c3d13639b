package weapons

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/pilot/pilottest"
	"github.com/annel0/pilotsim/internal/vec"
)

func boltShot(shooter *pilot.Pilot, target uint32) pilot.Shot {
	return pilot.Shot{
		Shooter: shooter.ID(),
		Weapon:  pilottest.Laser(),
		Pos:     shooter.Solid.Pos,
		Vel:     vec.Zero(),
		Dir:     0,
		Target:  target,
	}
}

func TestBoltHitsFirstPilotOnPath(t *testing.T) {
	reg := pilottest.Registry()
	a := pilottest.Spawn(reg, "A", vec.New(0, 0), 0)
	b := pilottest.Spawn(reg, "B", vec.New(100, 0), 0)

	w := New(reg)
	w.Fire([]pilot.Shot{boltShot(a, b.ID())})
	require.Equal(t, 1, w.Len())

	// За 0.1 с снаряд пролетает 90 и задевает круг радиуса 12 вокруг B
	w.Update(0.1)
	assert.Equal(t, 0, w.Len(), "Снаряд расходуется на попадании")

	impacts := reg.Events().TakeImpacts()
	require.Len(t, impacts, 1)
	assert.Equal(t, b.ID(), impacts[0].Target)
	assert.Equal(t, a.ID(), impacts[0].Shooter)
	assert.InDelta(t, 10.0, impacts[0].Damage, 1e-9)
	assert.NotNil(t, impacts[0].Impactor, "Для отдачи нужно тело снаряда")
}

func TestBoltExpiresAfterRange(t *testing.T) {
	reg := pilottest.Registry()
	a := pilottest.Spawn(reg, "A", vec.New(0, 0), 0)

	w := New(reg)
	w.Fire([]pilot.Shot{boltShot(a, 0)})

	// Дальность 600 при скорости 900: около 0.67 с полёта
	w.Update(0.5)
	assert.Equal(t, 1, w.Len())
	w.Update(0.2)
	assert.Equal(t, 0, w.Len())
	assert.Empty(t, reg.Events().TakeImpacts())
	assert.Empty(t, reg.Events().TakeExplosions(), "Болт без радиуса взрыва не взрывается")
}

func TestMissileDetonatesOnContact(t *testing.T) {
	reg := pilottest.Registry()
	a := pilottest.Spawn(reg, "A", vec.New(0, 0), 0)
	b := pilottest.Spawn(reg, "B", vec.New(100, 0), 0)

	w := New(reg)
	w.Fire([]pilot.Shot{{
		Shooter: a.ID(),
		Weapon:  pilottest.Launcher(),
		Ammo:    pilottest.Missile(),
		Pos:     a.Solid.Pos,
		Target:  b.ID(),
	}})

	w.Update(0.1)
	assert.Equal(t, 1, w.Len())
	w.Update(0.1)
	assert.Equal(t, 0, w.Len())

	ex := reg.Events().TakeExplosions()
	require.Len(t, ex, 1)
	assert.InDelta(t, 20.0, ex[0].Radius, 1e-9)
	assert.Equal(t, a.ID(), ex[0].Exclude)
	assert.Empty(t, reg.Events().TakeImpacts(), "Взрывной снаряд бьёт только взрывом")
	assert.Len(t, reg.Events().TakeEffects(), 1)
}

func TestMissileTurnsTowardTarget(t *testing.T) {
	reg := pilottest.Registry()
	a := pilottest.Spawn(reg, "A", vec.New(0, 0), 0)
	b := pilottest.Spawn(reg, "B", vec.New(1000, 1000), 0)

	w := New(reg)
	w.Fire([]pilot.Shot{{
		Shooter: a.ID(),
		Weapon:  pilottest.Launcher(),
		Ammo:    pilottest.Missile(),
		Pos:     a.Solid.Pos,
		Target:  b.ID(),
	}})
	w.Update(0.1)

	st := w.Projectiles()
	require.Len(t, st, 1)
	assert.InDelta(t, homingTurn*0.1, st[0].Dir, 1e-9, "Доворот ограничен скоростью поворота")
}

func TestEscortsAreNotHitByLeader(t *testing.T) {
	reg := pilottest.Registry()
	a := pilottest.Spawn(reg, "A", vec.New(0, 0), 0)
	esc := pilottest.Spawn(reg, "Escort", vec.New(50, 0), 0)
	esc.SetParent(a.ID())
	b := pilottest.Spawn(reg, "B", vec.New(150, 0), 0)

	w := New(reg)
	w.Fire([]pilot.Shot{boltShot(a, b.ID())})
	w.Update(0.1)
	w.Update(0.1)

	impacts := reg.Events().TakeImpacts()
	require.Len(t, impacts, 1)
	assert.Equal(t, b.ID(), impacts[0].Target)
}

func TestBeamHitsNearestAlongRay(t *testing.T) {
	reg := pilottest.Registry()
	a := pilottest.Spawn(reg, "A", vec.New(0, 0), 0)
	near := pilottest.Spawn(reg, "Near", vec.New(200, 0), 0)
	pilottest.Spawn(reg, "Far", vec.New(300, 0), 0)

	beam := pilottest.Beam()
	beam.Warmup = 0
	require.NoError(t, a.AddOutfit(pilottest.SlotHigh1, beam))
	require.NoError(t, a.Activate(pilottest.SlotHigh1))

	w := New(reg)
	w.Update(0.5)

	impacts := reg.Events().TakeImpacts()
	require.Len(t, impacts, 1)
	assert.Equal(t, near.ID(), impacts[0].Target)
	assert.InDelta(t, 10.0, impacts[0].Damage, 1e-9, "Урон луча масштабируется шагом")

	beams := w.Beams()
	require.Len(t, beams, 1)
	assert.InDelta(t, 5.0, beams[0].From.X(), 1e-9, "Луч начинается в точке крепления")
	assert.InDelta(t, 200.0, beams[0].To.X(), 1e-9)

	// Выключенный луч больше не трассируется
	require.NoError(t, a.Deactivate(pilottest.SlotHigh1))
	w.Update(0.5)
	assert.Empty(t, w.Beams())
}

func TestClear(t *testing.T) {
	reg := pilottest.Registry()
	a := pilottest.Spawn(reg, "A", vec.New(0, 0), 0)

	w := New(reg)
	w.Fire([]pilot.Shot{boltShot(a, 0), boltShot(a, 0)})
	assert.Equal(t, 2, w.Len())
	w.Clear()
	assert.Equal(t, 0, w.Len())
	assert.Empty(t, w.Projectiles())
}
