package pilot

import (
	"github.com/annel0/pilotsim/internal/outfit"
)

// CalcStats пересчитывает характеристики по кораблю и снаряжению.
// Доли ресурсов сохраняются. Вызывается после любого изменения слотов или груза.
func (p *Pilot) CalcStats() {
	sh := p.Ship

	// Запоминаем доли
	ac := fracOr(p.armour, p.armourMax)
	sc := fracOr(p.shield, p.shieldMax)
	ec := fracOr(p.energy, p.energyMax)
	fc := fracOr(p.fuel, p.fuelMax)

	var mods outfit.Modifiers
	var massOutfit, cpuUsed float64
	var nweap int
	var rangeSum, speedSum float64

	p.flags &^= FlagHasTurret | FlagHasBeam
	p.afterburner = -1
	p.abThrust, p.abSpeed, p.abEnergy = 0, 0, 0

	for i, s := range p.slots {
		o := s.outfit
		if o == nil {
			continue
		}
		massOutfit += o.Mass
		cpuUsed += o.CPU
		addMods(&mods, o.Mods)

		if a, ok := s.payload.(*AmmoPayload); ok && a.Ammo != nil {
			massOutfit += a.Ammo.Mass * float64(a.Quantity-a.Deployed)
		}
		if o.Kind.IsTurret() {
			p.flags |= FlagHasTurret
		}
		if o.Kind.IsBeam() {
			p.flags |= FlagHasBeam
		}
		if o.Kind == outfit.KindAfterburner && p.afterburner < 0 {
			p.afterburner = i
			p.abThrust = o.ABThrust
			p.abSpeed = o.ABSpeed
			p.abEnergy = o.ABEnergy
		}
		// Средние дальность и скорость основного оружия
		if o.Kind.IsWeapon() && !o.Kind.IsSecondary() {
			nweap++
			rangeSum += o.Range
			speedSum += o.Speed
		}
	}
	if p.afterburner < 0 {
		p.flags &^= FlagAfterburner
	}

	p.massOutfit = massOutfit
	p.massCargo = float64(p.cargoUsed())
	p.Solid.Mass = sh.Mass + p.massOutfit + p.massCargo

	p.thrust = (sh.Thrust + mods.Thrust) * sh.Mass
	p.turnBase = sh.Turn + mods.Turn
	p.turn = p.turnBase * sh.Mass / p.Solid.Mass
	p.speed = sh.Speed + mods.Speed

	p.cpuMax = sh.CPU + mods.CPU
	p.cpu = p.cpuMax - cpuUsed

	p.armourMax = sh.Armour + mods.Armour
	p.armourRegen = sh.ArmourRegen + mods.ArmourRegen
	p.shieldMax = sh.Shield + mods.Shield
	p.shieldRegen = sh.ShieldRegen + mods.ShieldRegen
	p.energyMax = sh.Energy + mods.Energy
	p.energyRegen = sh.EnergyRegen + mods.EnergyRegen
	p.fuelMax = sh.Fuel + mods.Fuel
	p.cargoMax = sh.Cargo + mods.Cargo

	// Постоянная времени восстановления энергии
	p.energyTau = 0
	if p.energyRegen > 0 && p.energyMax > 0 {
		p.energyTau = p.energyMax / p.energyRegen
	}

	if nweap > 0 {
		p.weapRange = rangeSum / float64(nweap)
		p.weapSpeed = speedSum / float64(nweap)
	} else {
		p.weapRange, p.weapSpeed = 0, 0
	}

	// Восстанавливаем доли
	p.armour = ac * maxf0(p.armourMax)
	p.shield = sc * maxf0(p.shieldMax)
	p.energy = ec * maxf0(p.energyMax)
	p.fuel = fc * maxf0(p.fuelMax)
}

func addMods(dst *outfit.Modifiers, m outfit.Modifiers) {
	dst.Thrust += m.Thrust
	dst.Turn += m.Turn
	dst.Speed += m.Speed
	dst.Armour += m.Armour
	dst.ArmourRegen += m.ArmourRegen
	dst.Shield += m.Shield
	dst.ShieldRegen += m.ShieldRegen
	dst.Energy += m.Energy
	dst.EnergyRegen += m.EnergyRegen
	dst.Fuel += m.Fuel
	dst.Cargo += m.Cargo
	dst.CPU += m.CPU
}

// fracOr возвращает долю, для пустого максимума: 1
func fracOr(v, m float64) float64 {
	if m <= 0 {
		return 1
	}
	return clampf(v/m, 0, 1)
}

func maxf0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
