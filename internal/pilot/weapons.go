package pilot

import (
	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/vec"
)

// Shot выстрел, передаваемый системе вооружения
type Shot struct {
	Shooter uint32
	Slot    int
	Weapon  *outfit.Outfit
	Ammo    *outfit.Outfit // Для пусковых установок
	Pos     vec.Vector2D
	Vel     vec.Vector2D // Скорость стрелка
	Dir     float64
	Target  uint32
	BeamID  uint64 // 0: не луч
}

// Projectile описание снаряда: боеприпас для пусковых, иначе само оружие
func (s Shot) Projectile() *outfit.Outfit {
	if s.Ammo != nil {
		return s.Ammo
	}
	return s.Weapon
}

// MountPos точка крепления слота в мировых координатах
func (p *Pilot) MountPos(s *Slot) vec.Vector2D {
	return p.Solid.Pos.Add(s.Mount.Offset(p.Solid.Dir))
}

// Shoot стреляет основным оружием или выбранным вторичным.
// Возвращает число выстрелов; сами выстрелы забираются TakeShots.
func (p *Pilot) Shoot(env Env, secondary bool) int {
	if p.life != LifeAlive || p.IsDisabled() || p.hyp != HypNone {
		return 0
	}

	fired := 0
	if secondary {
		if s, ok := p.Slot(p.secondary); ok && s.outfit != nil {
			if p.fireSlot(env, s) {
				fired++
			}
		}
		return fired
	}

	for _, s := range p.slots {
		o := s.outfit
		if o == nil || !o.Kind.IsWeapon() || o.Kind.IsSecondary() {
			continue
		}
		if p.fireSlot(env, s) {
			fired++
		}
	}
	return fired
}

// ShootStop выключает лучи основного или вторичного оружия
func (p *Pilot) ShootStop(secondary bool) {
	for _, s := range p.slots {
		o := s.outfit
		if o == nil || !o.Kind.IsBeam() || s.state == SlotOff {
			continue
		}
		if secondary != (s.index == p.secondary) {
			continue
		}
		p.turnOff(s)
	}
}

func (p *Pilot) fireSlot(env Env, s *Slot) bool {
	o := s.outfit
	if !s.Ready() {
		return false
	}

	shot := Shot{
		Shooter: p.id,
		Slot:    s.index,
		Weapon:  o,
		Pos:     p.MountPos(s),
		Vel:     p.Solid.Vel,
		Dir:     p.Solid.Dir,
		Target:  p.target,
	}

	// Турели наводятся на цель
	if o.Kind.IsTurret() && env != nil {
		if t, ok := env.Get(p.target); ok && t.Targetable() {
			shot.Dir = shot.Pos.AngleTo(t.Solid.Pos)
		}
	}

	switch {
	case o.Kind.IsBeam():
		if err := p.Activate(s.index); err != nil {
			return false
		}
		if b, ok := s.Beam(); ok {
			shot.BeamID = b.BeamID
		}

	case o.Kind.IsFighterBay():
		// Истребители выпускаются через приказы эскорту
		return false

	case o.Kind.IsLauncher():
		a, ok := s.Ammo()
		if !ok || a.Ammo == nil || a.Quantity-a.Deployed <= 0 {
			return false
		}
		if p.energy < o.EnergyUse {
			return false
		}
		p.energy -= o.EnergyUse
		shot.Ammo = a.Ammo
		a.Quantity--
		if a.Quantity == 0 {
			a.Ammo = nil
		}
		s.timer = -o.Delay
		p.CalcStats()

	default:
		if p.energy < o.EnergyUse {
			return false
		}
		p.energy -= o.EnergyUse
		s.timer = -o.Delay
	}

	p.shots = append(p.shots, shot)
	return true
}

// TakeShots забирает выстрелы, накопленные с прошлого вызова
func (p *Pilot) TakeShots() []Shot {
	out := p.shots
	p.shots = nil
	return out
}
