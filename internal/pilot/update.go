package pilot

import (
	"math"

	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/vec"
)

// Update продвигает пилота на dt секунд
func (p *Pilot) Update(dt float64, env Env) {
	// (1) Ожидает удаления
	if p.IsDeleted() {
		return
	}
	// (2) Гибель
	if p.life != LifeAlive {
		p.updateDeath(dt, env)
		return
	}

	p.tickTimers(dt)

	// (3) Движение
	p.steer()
	p.Solid.Update(dt)
	p.limitSpeed(dt)

	// (4) Слоты
	p.updateSlots(dt)

	// (5) Восстановление
	p.regen(dt)

	// (6) Затухание враждебности
	if p.playerDamage > 0 {
		p.playerDamage = math.Max(0, p.playerDamage-p.Params().HostileDecay*dt)
	}

	// (7) Гиперпрыжок
	if p.hyp != HypNone {
		p.updateHyperspace(dt, env)
	}
	p.updateRefuel(dt, env)

	// (8) Решения ИИ и ручное управление
	if !p.IsPlayer() && !p.IsDeleted() && !p.IsDisabled() {
		if p.HasFlag(FlagManualControl) {
			p.runTasks(dt, env)
		} else {
			p.tcontrol -= dt
			if p.tcontrol <= 0 {
				tick := p.Params().AIControlTick
				p.tcontrol += tick
				if p.tcontrol <= 0 {
					p.tcontrol = tick
				}
				p.think(env, tick)
			}
		}
	}
	p.act(env)

	p.checkSanity(env)
}

func (p *Pilot) tickTimers(dt float64) {
	for i := range p.timers {
		p.timers[i] -= dt
	}
	if p.commTimer > 0 {
		p.commTimer -= dt
		if p.commTimer <= 0 {
			p.commTimer = 0
			p.commMsg = ""
		}
	}
	if p.htimer > 0 {
		p.htimer -= dt
		if p.htimer <= 0 {
			p.htimer = 0
			p.flags &^= FlagHailing
		}
	}
}

// steer переводит намерение в силу и угловую скорость
func (p *Pilot) steer() {
	if p.hyp != HypNone {
		p.steerHyperspace()
		return
	}
	if p.IsDisabled() {
		p.Solid.Force = 0
		p.Solid.DirVel = 0
		return
	}

	force := p.thrust * p.intent.Thrust
	if p.HasFlag(FlagAfterburner) {
		force *= 1 + p.abThrust/100
	}
	p.Solid.Force = force
	p.Solid.DirVel = p.turn * p.intent.Turn
	p.engineGlow = p.intent.Thrust
}

// limitSpeed ограничивает скорость вне фаз разгона и полёта
func (p *Pilot) limitSpeed(dt float64) {
	switch p.hyp {
	case HypBegin, HypTraveling:
		return
	}
	if p.IsDisabled() {
		p.Solid.Vel = p.Solid.Vel.Scale(math.Max(0, 1-0.1*dt))
		return
	}
	speed := p.speed
	if p.HasFlag(FlagAfterburner) {
		speed *= 1 + p.abSpeed/100
	}
	p.Solid.Vel = vec.LimitSpeed(p.Solid.Vel, speed, dt)
}

// regen восстанавливает щит, броню и энергию. Выведенные из строя
// корабли не восстанавливают щит и броню.
func (p *Pilot) regen(dt float64) {
	if !p.IsDisabled() {
		p.armour = math.Min(p.armourMax, p.armour+p.armourRegen*dt)
		p.shield = math.Min(p.shieldMax, p.shield+p.shieldRegen*dt)
	}

	if p.energyTau > 0 {
		k := math.Min(1, dt/p.energyTau)
		p.energy += (p.energyMax - p.energy) * k
	}
	if p.HasFlag(FlagAfterburner) {
		p.energy -= p.abEnergy * dt
		if p.energy <= 0 {
			p.energy = 0
			if s, ok := p.Slot(p.afterburner); ok {
				p.turnOff(s)
			}
		}
	}
	p.energy = clampf(p.energy, 0, p.energyMax)
}

// runTasks выполняет очередь ручного управления. Опустевшая очередь вызывает IDLE.
func (p *Pilot) runTasks(dt float64, env Env) {
	if len(p.tasks) == 0 {
		return
	}
	p.intent = p.tasks[0].Intent.clamp()
	p.taskTime += dt
	if p.taskTime < p.tasks[0].Duration {
		return
	}
	p.tasks = p.tasks[1:]
	p.taskTime = 0
	if len(p.tasks) == 0 {
		p.intent = Intent{}
		env.Events().QueueHook(p.id, HookIdle)
	}
}

// act выполняет огневые намерения и форсаж
func (p *Pilot) act(env Env) {
	if p.IsDeleted() || p.life != LifeAlive {
		return
	}
	if p.intent.Primary {
		p.Shoot(env, false)
	} else {
		p.ShootStop(false)
	}
	if p.intent.Secondary {
		p.Shoot(env, true)
	} else {
		p.ShootStop(true)
	}

	if s, ok := p.Slot(p.afterburner); ok && p.hyp == HypNone && !p.IsDisabled() {
		if p.intent.Afterburn && s.state == SlotOff && p.energy > 0 {
			_ = p.Activate(s.index)
		} else if !p.intent.Afterburn && s.state != SlotOff {
			p.turnOff(s)
		}
	}
}

// updateDeath цепочка взрывов и финальный взрыв
func (p *Pilot) updateDeath(dt float64, env Env) {
	p.ptimer -= dt
	p.expTimer -= dt

	if p.ptimer < 0 {
		if p.life != LifeExploded {
			p.finalExplosion(env)
		}
		p.MarkDelete()
		return
	}

	switch {
	case p.flags&FlagDeathSound == 0 && p.ptimer < 0.05:
		p.flags |= FlagDeathSound
	case p.life != LifeExploded && p.ptimer < 0.2:
		p.finalExplosion(env)
	case p.expTimer <= 0:
		p.expTimer = 0.08 * (p.ptimer - p.expTimer) / math.Max(p.ptimer, 0.01)
		env.Events().AddEffect(EffectExplosionSmall, p.Solid.Pos)
	}
}

func (p *Pilot) finalExplosion(env Env) {
	p.life = LifeExploded
	a := math.Sqrt(p.Solid.Mass)
	dmg := 2 * math.Max(0, 2*a*(1+math.Sqrt(p.fuel+1)/28))
	env.Events().QueueExplosion(ExplosionEvent{
		Pos:     p.Solid.Pos,
		Radius:  p.Radius() * p.Params().ExplosionRadius,
		Type:    outfit.DamageKinetic,
		Damage:  dmg,
		Exclude: p.id,
		Source:  p.id,
	})
	env.Events().AddEffect(EffectExplosionLarge, p.Solid.Pos)
}
