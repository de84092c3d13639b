package pilot

import (
	"math"

	"github.com/annel0/pilotsim/internal/vec"
)

// checkSanity приводит пилота к ближайшему допустимому состоянию.
// Нарушения считаются ошибками программы: пишутся в лог и метрики.
func (p *Pilot) checkSanity(env Env) {
	p.clampPool("armour", &p.armour, p.armourMax, env)
	p.clampPool("shield", &p.shield, p.shieldMax, env)
	p.clampPool("energy", &p.energy, p.energyMax, env)
	p.clampPool("fuel", &p.fuel, p.fuelMax, env)

	if p.life != LifeAlive && p.hyp != HypNone {
		p.violation(env, "phase", "уничтоженный пилот в фазе прыжка %s", p.hyp)
		p.hyp = HypNone
	}
	if p.hyp > HypEnd {
		p.violation(env, "phase", "неизвестная фаза прыжка %d", p.hyp)
		p.hyp = HypNone
	}
	if p.hyp != HypNone && p.hypTarget == "" {
		p.violation(env, "phase", "фаза %s без системы назначения", p.hyp)
		p.hyp = HypNone
	}

	for _, s := range p.slots {
		if s.payloadMatches() {
			continue
		}
		p.violation(env, "slot", "слот %d: данные не соответствуют снаряжению", s.index)
		if s.outfit == nil {
			s.payload = nil
			continue
		}
		if a, ok := s.payload.(*AmmoPayload); ok {
			if a.Quantity < 0 {
				a.Quantity = 0
			}
			a.Deployed = int(clampf(float64(a.Deployed), 0, float64(a.Quantity)))
			continue
		}
		s.payload = newPayload(s.outfit, p.id, s.index)
	}
	if p.secondary >= len(p.slots) {
		p.violation(env, "slot", "вторичное оружие %d вне диапазона", p.secondary)
		p.secondary = -1
	}

	if bad(p.Solid.Pos.X()) || bad(p.Solid.Pos.Y()) {
		p.violation(env, "kinematics", "некорректная позиция")
		p.Solid.Pos = vec.Zero()
	}
	if bad(p.Solid.Vel.X()) || bad(p.Solid.Vel.Y()) {
		p.violation(env, "kinematics", "некорректная скорость")
		p.Solid.Vel = vec.Zero()
	}
	if bad(p.Solid.Dir) {
		p.violation(env, "kinematics", "некорректный курс")
		p.Solid.Dir = 0
	}
}

func (p *Pilot) clampPool(name string, v *float64, hi float64, env Env) {
	if math.IsNaN(*v) {
		p.violation(env, "pool", "%s: NaN", name)
		*v = 0
		return
	}
	if *v < 0 || *v > hi {
		p.violation(env, "pool", "%s=%.3f вне [0, %.3f]", name, *v, hi)
		*v = clampf(*v, 0, math.Max(0, hi))
	}
}

func (p *Pilot) violation(env Env, kind, format string, args ...interface{}) {
	if env != nil {
		env.Metrics().InvariantViolation(kind)
	}
	args = append([]interface{}{p.id}, args...)
	if p.Params().DebugInvariants {
		logger().Error("нарушение инварианта у пилота %d: "+format, args...)
		return
	}
	logger().Warn("нарушение инварианта у пилота %d: "+format, args...)
}

func bad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
