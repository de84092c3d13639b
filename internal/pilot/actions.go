package pilot

import (
	"fmt"
	"math"
)

const (
	boardSizeApprox = 0.8  // Доля размера цели, в пределах которой возможен абордаж
	boardMaxVel     = 25.0 // Предельная относительная скорость при стыковке
	hailDuration    = 10.0 // Сколько пилот вызывает игрока на связь
)

// RefuelStart начинает дозаправку цели топливом пилота
func (p *Pilot) RefuelStart(env Env, target uint32) error {
	if p.life != LifeAlive {
		return ErrDead
	}
	t, ok := env.Get(target)
	if !ok || t == p || !t.Targetable() || t.IsDead() {
		return ErrNoTarget
	}
	if p.fuel <= 0 {
		return ErrNoFuel
	}
	p.target = target
	p.refueled = 0
	p.flags |= FlagRefueling
	p.flags &^= FlagRefuelBoarding
	return nil
}

// updateRefuel сближается с целью и перекачивает топливо
func (p *Pilot) updateRefuel(dt float64, env Env) {
	if p.flags&FlagRefueling == 0 {
		return
	}
	params := p.Params()
	t, ok := env.Get(p.target)
	if !ok || t.IsDead() || !t.Targetable() || p.hyp != HypNone {
		p.stopRefuel()
		return
	}

	if p.flags&FlagRefuelBoarding == 0 {
		if p.Solid.Pos.Dist(t.Solid.Pos) <= t.Radius()*2*boardSizeApprox &&
			p.Solid.Vel.Dist(t.Solid.Vel) <= boardMaxVel {
			p.flags |= FlagRefuelBoarding
		}
		return
	}

	amount := math.Min(params.RefuelRate*dt, params.HyperFuel-p.refueled)
	amount = math.Min(amount, p.fuel)
	amount = math.Min(amount, t.fuelMax-t.fuel)
	if amount <= 0 {
		p.stopRefuel()
		return
	}
	p.fuel -= amount
	t.fuel += amount
	p.refueled += amount
	if p.refueled >= params.HyperFuel {
		p.stopRefuel()
	}
}

func (p *Pilot) stopRefuel() {
	p.flags &^= FlagRefueling | FlagRefuelBoarding
	p.refueled = 0
}

// Board берёт цель на абордаж. Цель должна быть выведена из строя и рядом.
// Кредиты цели переходят пилоту, у цели ставится в очередь BOARD.
func (p *Pilot) Board(env Env) error {
	if p.life != LifeAlive {
		return ErrDead
	}
	if p.IsDisabled() {
		return ErrDisabled
	}
	t, ok := env.Get(p.target)
	if !ok || t == p || !t.Targetable() || t.IsDead() {
		return ErrNoTarget
	}
	switch {
	case t.flags&FlagNoBoard != 0:
		return fmt.Errorf("пилот %d: абордаж запрещён: %w", t.id, ErrNoTarget)
	case !t.IsDisabled():
		return fmt.Errorf("пилот %d: %w", t.id, ErrNotDisabled)
	case t.flags&FlagBoarded != 0:
		return fmt.Errorf("пилот %d: %w", t.id, ErrAlreadyBoarded)
	case p.Solid.Pos.Dist(t.Solid.Pos) > t.Radius()*2*boardSizeApprox:
		return fmt.Errorf("пилот %d: %w", t.id, ErrTooFar)
	case p.Solid.Vel.Dist(t.Solid.Vel) > boardMaxVel:
		return fmt.Errorf("пилот %d: %w", t.id, ErrTooFast)
	}

	t.flags |= FlagBoarded
	if loot := t.credits; loot > 0 {
		t.credits = 0
		p.ModCredits(loot)
	}
	env.Events().QueueHook(t.id, HookBoard)
	return nil
}

// Hail вызывает цель на связь
func (p *Pilot) Hail(env Env, target uint32) error {
	t, ok := env.Get(target)
	if !ok || t == p || !t.Targetable() || t.IsDead() {
		return ErrNoTarget
	}
	env.Events().QueueHook(t.id, HookHail)
	return nil
}

// StartHailing помечает пилота как вызывающего игрока на связь
func (p *Pilot) StartHailing() {
	p.flags |= FlagHailing
	p.htimer = hailDuration
}

// Distress подаёт сигнал бедствия один раз
func (p *Pilot) Distress(msg string) bool {
	if p.flags&FlagDistressed != 0 {
		return false
	}
	p.flags |= FlagDistressed
	p.SetComm(msg, 5)
	return true
}
