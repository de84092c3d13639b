package pilot

import (
	"fmt"
	"math"

	"github.com/annel0/pilotsim/internal/vec"
)

const (
	minVelErr = 1.0  // Скорость, ниже которой корабль считается остановленным
	maxDirErr = 0.05 // Допустимая ошибка курса, рад
)

// Arriver получает уведомление о выходе пилота из гиперпространства
type Arriver interface {
	Arrived(p *Pilot, from string)
}

// Hyperspace начинает гиперпрыжок в систему target
func (p *Pilot) Hyperspace(target string) error {
	params := p.Params()
	switch {
	case target == "":
		return ErrNoHyperTarget
	case p.life != LifeAlive:
		return ErrDead
	case p.IsDisabled():
		return ErrDisabled
	case p.hyp != HypNone:
		return fmt.Errorf("фаза %s: %w", p.hyp, ErrAlreadyJumping)
	case p.fuel < params.HyperFuel:
		return fmt.Errorf("топливо %.0f из %.0f: %w", p.fuel, params.HyperFuel, ErrNoFuel)
	case p.Solid.Pos.Mod() < params.HyperExitMin:
		return fmt.Errorf("до центра %.0f, нужно %.0f: %w", p.Solid.Pos.Mod(), params.HyperExitMin, ErrTooClose)
	}

	p.hypTarget = target
	p.setPhase(HypPrep)
	p.ptimer = params.HyperEngineDelay
	p.flags &^= FlagAfterburner
	// Лучи гаснут сразу, новые выстрелы в прыжке запрещены
	p.ShootStop(false)
	p.ShootStop(true)
	return nil
}

// HyperspaceAbort прерывает прыжок. Допустимо только в фазах PREP и BEGIN.
func (p *Pilot) HyperspaceAbort() error {
	if p.hyp != HypPrep && p.hyp != HypBegin {
		return fmt.Errorf("фаза %s: %w", p.hyp, ErrAbortNotAllowed)
	}
	p.setPhase(HypNone)
	p.hypTarget = ""
	p.ptimer = 0
	p.Solid.Force = 0
	return nil
}

// HyperspaceDelay оставшееся время текущей фазы
func (p *Pilot) HyperspaceDelay() float64 {
	if p.hyp == HypNone {
		return 0
	}
	return math.Max(0, p.ptimer)
}

// setPhase единственное место смены фазы
func (p *Pilot) setPhase(h HyperPhase) {
	if p.hyp != h {
		logger().Trace("пилот %d: гиперпрыжок %s -> %s", p.id, p.hyp, h)
	}
	p.hyp = h
}

// steerHyperspace задаёт силу и поворот в фазах прыжка
func (p *Pilot) steerHyperspace() {
	params := p.Params()
	switch p.hyp {
	case HypPrep:
		// Тормозим, затем разворачиваемся от центра системы
		if p.Solid.Vel.Mod() > minVelErr {
			diff := p.face(p.Solid.Vel.Angle() + math.Pi)
			if math.Abs(diff) < maxDirErr {
				p.Solid.Force = p.thrust
			} else {
				p.Solid.Force = 0
			}
		} else {
			p.Solid.Force = 0
			p.face(p.Solid.Pos.Angle())
		}
	case HypBegin, HypTraveling:
		p.Solid.DirVel = 0
		p.Solid.Force = params.HyperThrust * p.Solid.Mass
	case HypEnd:
		p.Solid.DirVel = 0
		p.Solid.Force = 0
	}
}

// updateHyperspace продвигает машину состояний прыжка
func (p *Pilot) updateHyperspace(dt float64, env Env) {
	params := p.Params()
	switch p.hyp {
	case HypPrep:
		p.ptimer -= dt
		if p.ptimer <= 0 {
			p.setPhase(HypBegin)
			p.ptimer = 0
		}

	case HypBegin:
		if p.Solid.Vel.Mod() >= params.HyperVel {
			p.setPhase(HypTraveling)
			p.ptimer = params.HyperFlyDelay
			p.hypElapsed = 0
			env.Events().AddEffect(EffectHyperspace, p.Solid.Pos)
		}

	case HypTraveling:
		p.ptimer -= dt
		p.hypElapsed += dt
		if p.ptimer <= 0 {
			p.arrive(env)
		}

	case HypEnd:
		p.ptimer -= dt
		if p.ptimer <= 0 {
			p.setPhase(HypNone)
			p.ptimer = 0
			p.hypTarget = ""
		}
	}
}

// arrive переносит пилота в систему назначения
func (p *Pilot) arrive(env Env) {
	params := p.Params()
	from := p.System
	dir := p.Solid.Dir

	p.fuel = math.Max(0, p.fuel-params.HyperFuel)
	p.System = p.hypTarget

	dist := (params.HyperEnterMin + params.HyperEnterMax) / 2
	p.Solid.Pos = vec.NewPolar(dist, dir+math.Pi)
	p.Solid.Vel = vec.NewPolar(params.HyperVel, dir)
	p.Solid.Force = 0

	p.setPhase(HypEnd)
	p.ptimer = params.HyperFadeout
	p.hypElapsed = 0

	env.Events().QueueHook(p.id, HookJump)
	env.Metrics().Jump()
	logger().Debug("пилот %d (%s) прыгнул %s -> %s", p.id, p.Name, from, p.System)

	if a, ok := env.(Arriver); ok {
		a.Arrived(p, from)
	}
}

// face поворачивает пилота к курсу dir и возвращает оставшуюся разницу
func (p *Pilot) face(dir float64) float64 {
	diff := vec.AngleDiff(p.Solid.Dir, dir)
	p.Solid.DirVel = p.turn * clampf(10*diff, -1, 1)
	return diff
}
