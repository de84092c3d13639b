package physics

import (
	"math"
	"testing"

	"github.com/annel0/pilotsim/internal/vec"
	"github.com/stretchr/testify/assert"
)

func TestSolid_UpdateAppliesForceAlongHeading(t *testing.T) {
	s := NewSolid(10, 0, vec.Zero(), vec.Zero())
	s.Force = 100 // ускорение 10

	s.Update(1)

	assert.InDelta(t, 10.0, s.Vel.X(), 1e-9, "Скорость по X должна вырасти на F/m*dt")
	assert.InDelta(t, 0.0, s.Vel.Y(), 1e-9)
	assert.InDelta(t, 10.0, s.Pos.X(), 1e-9, "Позиция интегрируется новой скоростью")
	assert.Equal(t, 0.0, s.Force, "Аккумулятор силы должен сбрасываться")
}

func TestSolid_UpdateTurns(t *testing.T) {
	s := NewSolid(1, 0, vec.Zero(), vec.Zero())
	s.DirVel = -math.Pi / 2

	s.Update(1)
	assert.InDelta(t, 3*math.Pi/2, s.Dir, 1e-9, "Курс нормализуется в [0, 2π)")

	// Второй тик без силы: скорость не меняется
	s.Update(1)
	assert.True(t, s.Vel.IsZero())
}

func TestSolid_ZeroDtIsNoop(t *testing.T) {
	s := NewSolid(1, 1, vec.New(5, 5), vec.New(1, 0))
	s.Force = 10
	s.Update(0)
	assert.Equal(t, 10.0, s.Force)
	assert.InDelta(t, 5.0, s.Pos.X(), 1e-9)
}

func TestSolid_ApplyImpulse(t *testing.T) {
	s := NewSolid(4, 0, vec.Zero(), vec.Zero())
	s.ApplyImpulse(vec.New(8, 0))
	assert.InDelta(t, 2.0, s.Vel.X(), 1e-9)
}

func TestCollisionHelpers(t *testing.T) {
	a := NewCircleCollider(10)
	b := NewCircleCollider(5)

	assert.True(t, CheckCircleCollision(vec.Zero(), a, vec.New(14, 0), b))
	assert.False(t, CheckCircleCollision(vec.Zero(), a, vec.New(16, 0), b))
	assert.True(t, a.IsPointInside(vec.Zero(), vec.New(6, 8)))

	// Отрезок пролетает сквозь окружность
	assert.True(t, SegmentHitsCircle(vec.New(-100, 0), vec.New(100, 0), vec.Zero(), 5))
	assert.False(t, SegmentHitsCircle(vec.New(-100, 20), vec.New(100, 20), vec.Zero(), 5))
}

func TestRebound(t *testing.T) {
	s := NewSolid(1, 0, vec.Zero(), vec.New(0, -10))
	Rebound(s, vec.New(0, 1), 0.5)
	assert.InDelta(t, 5.0, s.Vel.Y(), 1e-9)

	// Удаляющееся тело не отражается
	Rebound(s, vec.New(0, 1), 0.5)
	assert.InDelta(t, 5.0, s.Vel.Y(), 1e-9)
}
