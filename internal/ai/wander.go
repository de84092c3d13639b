// Package ai содержит ИИ пилотов по умолчанию.
package ai

import (
	"math"

	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/vec"
)

const (
	aimTolerance    = 0.2  // Ошибка курса для стрельбы, рад
	thrustTolerance = 0.6  // Ошибка курса для разгона, рад
	followDistance  = 150  // Дистанция следования за ведущим
	engageRange     = 1.5  // Дальность обнаружения врага в дальностях оружия
	wanderScale     = 0.05 // Скорость изменения курса блуждания
	wanderThrust    = 0.4
	holdSpeed       = 5.0
)

// Wander ИИ: атакует цели и врагов в пределах досягаемости, следует за ведущим,
// без дел плавно блуждает по шуму Перлина. Используется только из цикла симуляции.
type Wander struct {
	noise   *Noise
	elapsed map[uint32]float64
}

// NewWander создаёт ИИ блуждания
func NewWander(seed int64) *Wander {
	return &Wander{
		noise:   NewNoise(seed),
		elapsed: make(map[uint32]float64),
	}
}

// Think реализует pilot.AI
func (w *Wander) Think(v pilot.View, dt float64) (pilot.Intent, error) {
	w.elapsed[v.ID] += dt

	switch v.Command.Kind {
	case pilot.CmdAttack:
		if v.TargetValid && v.Target.ID == v.Command.Target {
			return w.chase(v, v.Target), nil
		}
		if v.CommandTargetValid {
			// Цель приказа ещё не выбрана
			return pilot.Intent{Target: v.Command.Target, SetTarget: true}, nil
		}
		// Цель гибнет или исчезла: ведём себя как без приказа
	case pilot.CmdHold:
		return brake(v), nil
	case pilot.CmdReturn:
		if v.HasLeader {
			return follow(v, v.Leader), nil
		}
	}

	if v.TargetValid {
		return w.chase(v, v.Target), nil
	}
	if v.HasEnemy && v.WeaponRange > 0 &&
		v.Pos.Dist(v.NearestEnemy.Pos) <= v.WeaponRange*engageRange {
		return pilot.Intent{Target: v.NearestEnemy.ID, SetTarget: true}, nil
	}
	if v.HasLeader {
		return follow(v, v.Leader), nil
	}
	return w.wander(v), nil
}

// Forget удаляет состояние пилота
func (w *Wander) Forget(id uint32) {
	delete(w.elapsed, id)
}

func (w *Wander) chase(v pilot.View, c pilot.Contact) pilot.Intent {
	diff := vec.AngleDiff(v.Dir, v.Pos.AngleTo(c.Pos))
	in := pilot.Intent{Turn: turnTo(diff)}
	if math.Abs(diff) < thrustTolerance {
		in.Thrust = 1
	}
	if v.WeaponRange > 0 && math.Abs(diff) < aimTolerance &&
		v.Pos.Dist(c.Pos) <= v.WeaponRange {
		in.Primary = true
		in.Secondary = v.Energy > 0.5
	}
	return in
}

func (w *Wander) wander(v pilot.View) pilot.Intent {
	n := w.noise.At(float64(v.ID)*0.37, w.elapsed[v.ID]*wanderScale)
	heading := vec.NormalizeAngle(n * 4 * math.Pi)
	return pilot.Intent{
		Turn:   turnTo(vec.AngleDiff(v.Dir, heading)),
		Thrust: wanderThrust,
	}
}

func follow(v pilot.View, leader pilot.Contact) pilot.Intent {
	if v.Pos.Dist(leader.Pos) <= followDistance {
		return matchVelocity(v, leader.Vel)
	}
	diff := vec.AngleDiff(v.Dir, v.Pos.AngleTo(leader.Pos))
	in := pilot.Intent{Turn: turnTo(diff)}
	if math.Abs(diff) < thrustTolerance {
		in.Thrust = 1
	}
	return in
}

// brake разворачивает против скорости и гасит её
func brake(v pilot.View) pilot.Intent {
	return matchVelocity(v, vec.Zero())
}

func matchVelocity(v pilot.View, target vec.Vector2D) pilot.Intent {
	rel := v.Vel.Sub(target)
	if rel.Mod() < holdSpeed {
		return pilot.Intent{}
	}
	diff := vec.AngleDiff(v.Dir, rel.Angle()+math.Pi)
	in := pilot.Intent{Turn: turnTo(diff)}
	if math.Abs(diff) < aimTolerance {
		in.Thrust = 1
	}
	return in
}

func turnTo(diff float64) float64 {
	return math.Max(-1, math.Min(1, 10*diff))
}
