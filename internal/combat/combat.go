// Package combat применяет урон от попаданий и взрывов к пилотам реестра.
package combat

import (
	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/physics"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/vec"
)

// Resolver разрешает попадания и взрывы кадра
type Resolver struct {
	Registry *pilot.Registry
	Damage   outfit.DamageTable
	Metrics  pilot.Metrics

	logger *logging.Logger
}

// NewResolver создаёт резолвер со стандартной таблицей поглощения
func NewResolver(reg *pilot.Registry) *Resolver {
	return &Resolver{
		Registry: reg,
		Damage:   outfit.DefaultDamageTable(),
		Metrics:  reg.Metrics(),
		logger:   logging.GetComponentLogger("combat"),
	}
}

func (r *Resolver) log() *logging.Logger {
	if r.logger == nil {
		r.logger = logging.GetComponentLogger("combat")
	}
	return r.logger
}

func (r *Resolver) metrics() pilot.Metrics {
	if r.Metrics == nil {
		return pilot.NopMetrics{}
	}
	return r.Metrics
}

// Hit наносит урон пилоту p и возвращает поглощённый урон.
// impactor задаёт отдачу и может быть nil, shooter: ID стрелявшего (0: среда).
func (r *Resolver) Hit(p *pilot.Pilot, impactor *physics.Solid, shooter uint32,
	dtype outfit.DamageType, dmg float64) float64 {

	if p == nil || dmg <= 0 {
		return 0
	}
	if p.Life() == pilot.LifeExploded || p.IsDeleted() || p.Hidden() ||
		p.HasFlag(pilot.FlagInvincible) {
		return 0
	}

	params := p.Params()
	events := r.Registry.Events()

	dShield, dArmour, knockback := r.Damage.Calc(dtype, dmg)
	absorbed := p.ApplyDamage(dShield, dArmour)
	r.metrics().Hit(dtype.String(), absorbed)

	if impactor != nil && knockback > 0 && p.Solid != nil {
		p.Solid.ApplyImpulse(impactor.Momentum().Scale(knockback))
	}

	if p.Life() != pilot.LifeAlive {
		return absorbed
	}
	p.SetFlag(pilot.FlagCombat)

	// Враждебность копится только от урона игрока
	if shooter == pilot.PlayerID && shooter != p.ID() && absorbed > 0 && !p.HasFlag(pilot.FlagHostile) {
		total := p.ShieldMax() + p.ArmourMax()
		if total > 0 && p.AddPlayerDamage(absorbed/total) >= params.HostileThreshold {
			p.SetFlag(pilot.FlagHostile)
			p.ClearFlag(pilot.FlagFriendly)
			r.log().Debug("пилот %d (%s) стал враждебен игроку", p.ID(), p.Name)
		}
	}

	if p.HasFlag(pilot.FlagManualControl) && absorbed > 0 {
		events.QueueHook(p.ID(), pilot.HookAttacked)
	}

	if p.Armour() <= 0 {
		r.kill(p, shooter)
		return absorbed
	}
	if p.Armour() < params.DisabledArmour*p.ArmourMax() {
		if p.Disable(events) {
			r.log().Debug("пилот %d (%s) выведен из строя", p.ID(), p.Name)
		}
	}
	return absorbed
}

func (r *Resolver) kill(p *pilot.Pilot, shooter uint32) {
	if !p.Kill(r.Registry.Events()) {
		return
	}
	r.metrics().Death()
	r.log().Info("пилот %d (%s) уничтожен, стрелял %d", p.ID(), p.Name, shooter)

	// Лидер теряет ссылку на эскорт, ангар: истребитель
	parent, ok := r.Registry.Get(p.Parent())
	if !ok {
		return
	}
	parent.RemoveEscort(p.ID())
	if p.HasFlag(pilot.FlagCarried) {
		if i, ok := parent.FighterSlot(p.Ship.Name); ok {
			parent.LoseFighter(i)
		}
	}
}

// Explode наносит урон всем пилотам в радиусе, кроме exclude.
// Урон убывает линейно от центра к краю. Возвращает число задетых пилотов.
func (r *Resolver) Explode(x, y, radius float64, dtype outfit.DamageType,
	damage float64, exclude, source uint32) int {

	if radius <= 0 || damage <= 0 {
		return 0
	}
	center := vec.New(x, y)
	hit := 0
	for _, p := range r.Registry.InRadius(center, radius) {
		if p.ID() == exclude {
			continue
		}
		k := 1 - p.Solid.Pos.Dist(center)/radius
		if k <= 0 {
			continue
		}
		// Ударная волна толкает от центра
		wave := physics.NewSolid(damage*k, 0, center, vec.NewPolar(1, center.AngleTo(p.Solid.Pos)))
		if r.Hit(p, wave, source, dtype, damage*k) > 0 {
			hit++
		}
	}
	return hit
}

// ResolveImpacts применяет попадания в порядке поступления
func (r *Resolver) ResolveImpacts(impacts []pilot.Impact) {
	for _, im := range impacts {
		p, ok := r.Registry.Get(im.Target)
		if !ok {
			continue
		}
		if r.Hit(p, im.Impactor, im.Shooter, im.Type, im.Damage) > 0 {
			r.Registry.Events().AddEffect(pilot.EffectHit, im.Pos)
		}
	}
}

// ResolveExplosions применяет взрывы в порядке поступления
func (r *Resolver) ResolveExplosions(explosions []pilot.ExplosionEvent) {
	for _, ev := range explosions {
		r.Explode(ev.Pos.X(), ev.Pos.Y(), ev.Radius, ev.Type, ev.Damage, ev.Exclude, ev.Source)
	}
}

// Resolve забирает из очереди и применяет сначала попадания, затем взрывы
func (r *Resolver) Resolve() {
	ev := r.Registry.Events()
	r.ResolveImpacts(ev.TakeImpacts())
	r.ResolveExplosions(ev.TakeExplosions())
}
