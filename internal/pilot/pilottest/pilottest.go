// Package pilottest содержит общие заготовки для тестов пакетов симуляции.
package pilottest

import (
	"sync"

	"github.com/annel0/pilotsim/internal/faction"
	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/ship"
	"github.com/annel0/pilotsim/internal/vec"
)

// Индексы слотов корабля Ship
const (
	SlotHigh1 = iota
	SlotHigh2
	SlotMedium1
	SlotMedium2
	SlotLow1
	SlotLow2
)

// Ship лёгкий корабль с шестью слотами
func Ship() *ship.Ship {
	return &ship.Ship{
		Name:        "Hyena",
		Class:       "Fighter",
		Mass:        100,
		Thrust:      150,
		Turn:        3,
		Speed:       250,
		Armour:      100,
		ArmourRegen: 1,
		Shield:      50,
		ShieldRegen: 2,
		Energy:      100,
		EnergyRegen: 10,
		Fuel:        300,
		CPU:         20,
		Cargo:       10,
		Radius:      12,
		Sprites:     36,
		Slots: []ship.SlotSpec{
			{Type: outfit.SlotHigh, Mount: ship.Mount{X: 5}},
			{Type: outfit.SlotHigh, Mount: ship.Mount{X: 5, Y: 3}},
			{Type: outfit.SlotMedium},
			{Type: outfit.SlotMedium},
			{Type: outfit.SlotLow},
			{Type: outfit.SlotLow},
		},
	}
}

func Laser() *outfit.Outfit {
	return &outfit.Outfit{
		Name: "Laser Cannon", Kind: outfit.KindBolt, Slot: outfit.SlotHigh,
		Mass: 2, CPU: 5, Damage: 10, DamageType: outfit.DamageEnergy,
		Delay: 0.5, EnergyUse: 2, Range: 600, Speed: 900,
	}
}

func Turret() *outfit.Outfit {
	return &outfit.Outfit{
		Name: "Laser Turret", Kind: outfit.KindTurretBolt, Slot: outfit.SlotHigh,
		Mass: 4, CPU: 6, Damage: 8, DamageType: outfit.DamageEnergy,
		Delay: 0.4, EnergyUse: 2, Range: 500, Speed: 800,
	}
}

func Beam() *outfit.Outfit {
	return &outfit.Outfit{
		Name: "Ion Beam", Kind: outfit.KindBeam, Slot: outfit.SlotHigh,
		Mass: 3, CPU: 8, Damage: 20, DamageType: outfit.DamageIon,
		Warmup: 1, Duration: 3, Delay: 2, EnergyUse: 5, Range: 400,
	}
}

func Missile() *outfit.Outfit {
	return &outfit.Outfit{
		Name: "Banshee Missile", Kind: outfit.KindAmmo, Mass: 1,
		Damage: 30, DamageType: outfit.DamageKinetic, Speed: 500, Range: 1500, Explosion: 20,
	}
}

func Launcher() *outfit.Outfit {
	return &outfit.Outfit{
		Name: "Banshee Launcher", Kind: outfit.KindLauncher, Slot: outfit.SlotMedium,
		Mass: 5, CPU: 4, Delay: 1, AmmoName: "Banshee Missile", MaxAmmo: 10,
		Ammo: Missile(),
	}
}

func Fighter() *outfit.Outfit {
	return &outfit.Outfit{Name: "Lancelot Fighter", Kind: outfit.KindFighter, Mass: 5, ShipName: "Lancelot"}
}

func FighterBay() *outfit.Outfit {
	return &outfit.Outfit{
		Name: "Lancelot Bay", Kind: outfit.KindFighterBay, Slot: outfit.SlotMedium,
		Mass: 10, CPU: 6, Delay: 2, AmmoName: "Lancelot Fighter", MaxAmmo: 2,
		Ammo: Fighter(),
	}
}

func Booster() *outfit.Outfit {
	return &outfit.Outfit{
		Name: "Shield Capacitor", Kind: outfit.KindModification, Slot: outfit.SlotLow,
		Mass: 3, CPU: 3,
		Mods: outfit.Modifiers{Shield: 25, ShieldRegen: 1, Thrust: -5},
	}
}

func CPUHog() *outfit.Outfit {
	return &outfit.Outfit{
		Name: "Targeting Array", Kind: outfit.KindModification, Slot: outfit.SlotLow,
		Mass: 1, CPU: 50,
	}
}

func Afterburner() *outfit.Outfit {
	return &outfit.Outfit{
		Name: "Afterburner", Kind: outfit.KindAfterburner, Slot: outfit.SlotLow,
		Mass: 2, CPU: 2, ABThrust: 100, ABSpeed: 50, ABEnergy: 10,
	}
}

// Registry реестр с параметрами по умолчанию
func Registry() *pilot.Registry {
	return pilot.NewRegistry(pilot.DefaultParams(), faction.NewTable(), nil)
}

// Spawn создаёт пилота без снаряжения в точке pos
func Spawn(r *pilot.Registry, name string, pos vec.Vector2D, flags pilot.Flags) *pilot.Pilot {
	p, err := r.Create(Ship(), name, 1, nil, 0, pos, vec.Zero(), flags)
	if err != nil {
		panic(err)
	}
	return p
}

// SpawnID вставляет пилота с заданным ID
func SpawnID(r *pilot.Registry, id uint32, pos vec.Vector2D) *pilot.Pilot {
	p := pilot.New(id, Ship(), "pilot", 1, nil, 0, pos, vec.Zero(), 0)
	if err := r.Insert(p); err != nil {
		panic(err)
	}
	return p
}

// HookCall вызов обработчика
type HookCall struct {
	Handler uint32
	Pilot   uint32
	Type    pilot.HookType
}

// Recorder запоминает вызовы хуков
type Recorder struct {
	mu    sync.Mutex
	Calls []HookCall
	Err   error
	// OnCall вызывается внутри RunHook, если задан
	OnCall func(c HookCall)
}

func (r *Recorder) RunHook(handler uint32, pilotID uint32, t pilot.HookType) error {
	c := HookCall{Handler: handler, Pilot: pilotID, Type: t}
	r.mu.Lock()
	r.Calls = append(r.Calls, c)
	r.mu.Unlock()
	if r.OnCall != nil {
		r.OnCall(c)
	}
	return r.Err
}

// Count число вызовов обработчика handler
func (r *Recorder) Count(handler uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c.Handler == handler {
			n++
		}
	}
	return n
}

// StubAI возвращает заданное намерение или ошибку
type StubAI struct {
	Intent pilot.Intent
	Err    error
	Panic  bool
	Calls  int
	Last   pilot.View
}

func (a *StubAI) Think(view pilot.View, dt float64) (pilot.Intent, error) {
	a.Calls++
	a.Last = view
	if a.Panic {
		panic("сбой скрипта ИИ")
	}
	return a.Intent, a.Err
}
