// Package weapons ведёт снаряды и лучи и превращает попадания в события кадра.
package weapons

import (
	"math"

	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/physics"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/vec"
)

const (
	homingTurn     = 2.0 // Скорость доворота ракеты, рад/с
	projectileMass = 1.0
)

// Projectile снаряд в полёте
type Projectile struct {
	ID      uint64
	Shooter uint32
	Target  uint32
	Outfit  *outfit.Outfit
	Solid   *physics.Solid
	Life    float64 // Оставшееся время полёта
}

// State снимок снаряда для отрисовки
type State struct {
	ID      uint64       `json:"id"`
	Outfit  string       `json:"outfit"`
	Pos     vec.Vector2D `json:"pos"`
	Dir     float64      `json:"dir"`
	Shooter uint32       `json:"shooter"`
}

// BeamState снимок активного луча
type BeamState struct {
	ID      uint64       `json:"id"`
	Shooter uint32       `json:"shooter"`
	From    vec.Vector2D `json:"from"`
	To      vec.Vector2D `json:"to"`
}

// System оружейная система кадра. Используется только из цикла симуляции.
type System struct {
	reg         *pilot.Registry
	projectiles []*Projectile
	beams       []BeamState
	nextID      uint64
	logger      *logging.Logger
}

// New создаёт оружейную систему над реестром
func New(reg *pilot.Registry) *System {
	return &System{
		reg:    reg,
		logger: logging.GetComponentLogger("weapons"),
	}
}

// Fire создаёт снаряды по выстрелам. Выстрелы лучей только отмечают включение:
// лучи ведутся по состоянию слотов.
func (s *System) Fire(shots []pilot.Shot) {
	for _, sh := range shots {
		if sh.BeamID != 0 {
			continue
		}
		o := sh.Projectile()
		if o == nil || o.Speed <= 0 {
			continue
		}
		life := 0.0
		if o.Range > 0 {
			life = o.Range / o.Speed
		}
		if life <= 0 {
			continue
		}
		s.nextID++
		vel := sh.Vel.Add(vec.NewPolar(o.Speed, sh.Dir))
		s.projectiles = append(s.projectiles, &Projectile{
			ID:      s.nextID,
			Shooter: sh.Shooter,
			Target:  sh.Target,
			Outfit:  o,
			Solid:   physics.NewSolid(projectileMass+o.Mass, sh.Dir, sh.Pos, vel),
			Life:    life,
		})
	}
}

// Update продвигает снаряды и лучи на dt и ставит попадания в очередь событий
func (s *System) Update(dt float64) {
	ev := s.reg.Events()

	kept := s.projectiles[:0]
	for _, p := range s.projectiles {
		if s.step(p, dt, ev) {
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(s.projectiles); i++ {
		s.projectiles[i] = nil
	}
	s.projectiles = kept

	s.updateBeams(dt, ev)
}

// step продвигает снаряд. false: снаряд израсходован.
func (s *System) step(p *Projectile, dt float64, ev *pilot.Events) bool {
	p.Life -= dt
	if p.Life <= 0 {
		s.detonate(p, p.Solid.Pos, ev)
		return false
	}

	// Ракеты доворачивают на цель
	if p.Target != 0 && p.Outfit.Kind == outfit.KindAmmo {
		if t, ok := s.reg.Get(p.Target); ok && t.Targetable() {
			diff := vec.AngleDiff(p.Solid.Dir, p.Solid.Pos.AngleTo(t.Solid.Pos))
			turn := math.Max(-homingTurn*dt, math.Min(homingTurn*dt, diff))
			p.Solid.Dir = vec.NormalizeAngle(p.Solid.Dir + turn)
			p.Solid.Vel = vec.NewPolar(p.Solid.Vel.Mod(), p.Solid.Dir)
		}
	}

	from := p.Solid.Pos
	p.Solid.Update(dt)
	to := p.Solid.Pos

	for _, q := range s.reg.All() {
		if !s.canHit(p.Shooter, q) {
			continue
		}
		if !physics.SegmentHitsCircle(from, to, q.Solid.Pos, q.Radius()) {
			continue
		}
		if p.Outfit.Explosion > 0 {
			s.detonate(p, q.Solid.Pos, ev)
		} else {
			ev.QueueImpact(pilot.Impact{
				Target:   q.ID(),
				Shooter:  p.Shooter,
				Impactor: p.Solid,
				Type:     p.Outfit.DamageType,
				Damage:   p.Outfit.Damage,
				Pos:      q.Solid.Pos,
			})
		}
		return false
	}
	return true
}

// detonate подрывает снаряд с радиусом взрыва
func (s *System) detonate(p *Projectile, at vec.Vector2D, ev *pilot.Events) {
	if p.Outfit.Explosion <= 0 {
		return
	}
	ev.QueueExplosion(pilot.ExplosionEvent{
		Pos:     at,
		Radius:  p.Outfit.Explosion,
		Type:    p.Outfit.DamageType,
		Damage:  p.Outfit.Damage,
		Exclude: p.Shooter,
		Source:  p.Shooter,
	})
	ev.AddEffect(pilot.EffectExplosionSmall, at)
}

// canHit снаряд стрелка может задеть пилота q
func (s *System) canHit(shooter uint32, q *pilot.Pilot) bool {
	if q.ID() == shooter || !q.Targetable() || q.IsDead() {
		return false
	}
	// Свой эскорт и свой ведущий не задеваются
	if q.Parent() == shooter {
		return false
	}
	if src, ok := s.reg.Get(shooter); ok && src.Parent() == q.ID() {
		return false
	}
	return true
}

// updateBeams трассирует включённые лучи. Урон луча задан в секунду.
func (s *System) updateBeams(dt float64, ev *pilot.Events) {
	s.beams = s.beams[:0]
	for _, p := range s.reg.All() {
		if p.IsDead() || p.Hidden() {
			continue
		}
		for _, slot := range p.Slots() {
			o := slot.Outfit()
			if o == nil || !o.Kind.IsBeam() || slot.State() != pilot.SlotOn {
				continue
			}
			b, _ := slot.Beam()
			from := p.MountPos(slot)
			dir := p.Solid.Dir
			if o.Kind.IsTurret() {
				if t, ok := s.reg.Get(p.Target()); ok && t.Targetable() {
					dir = from.AngleTo(t.Solid.Pos)
				}
			}
			to := from.Add(vec.NewPolar(o.Range, dir))

			if q, ok := s.firstHit(p.ID(), from, to); ok {
				to = q.Solid.Pos
				ev.QueueImpact(pilot.Impact{
					Target:  q.ID(),
					Shooter: p.ID(),
					Type:    o.DamageType,
					Damage:  o.Damage * dt,
					Pos:     q.Solid.Pos,
				})
			}
			st := BeamState{Shooter: p.ID(), From: from, To: to}
			if b != nil {
				st.ID = b.BeamID
			}
			s.beams = append(s.beams, st)
		}
	}
}

// firstHit ближайший к началу луча пилот на отрезке
func (s *System) firstHit(shooter uint32, from, to vec.Vector2D) (*pilot.Pilot, bool) {
	var best *pilot.Pilot
	bestD := math.Inf(1)
	for _, q := range s.reg.All() {
		if !s.canHit(shooter, q) {
			continue
		}
		if !physics.SegmentHitsCircle(from, to, q.Solid.Pos, q.Radius()) {
			continue
		}
		if d := from.Dist2(q.Solid.Pos); d < bestD {
			best, bestD = q, d
		}
	}
	return best, best != nil
}

// Len число снарядов в полёте
func (s *System) Len() int { return len(s.projectiles) }

// Projectiles снимок снарядов
func (s *System) Projectiles() []State {
	out := make([]State, 0, len(s.projectiles))
	for _, p := range s.projectiles {
		out = append(out, State{
			ID:      p.ID,
			Outfit:  p.Outfit.Name,
			Pos:     p.Solid.Pos,
			Dir:     p.Solid.Dir,
			Shooter: p.Shooter,
		})
	}
	return out
}

// Beams снимок активных лучей
func (s *System) Beams() []BeamState {
	out := make([]BeamState, len(s.beams))
	copy(out, s.beams)
	return out
}

// Clear убирает все снаряды, например при смене системы игроком
func (s *System) Clear() {
	if n := len(s.projectiles); n > 0 {
		s.logger.Debug("убрано %d снарядов", n)
	}
	s.projectiles = nil
	s.beams = nil
}
