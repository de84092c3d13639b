package pilot

import "github.com/annel0/pilotsim/internal/config"

// Params константы симуляции пилотов
type Params struct {
	// Гиперпрыжок
	HyperEngineDelay float64
	HyperFlyDelay    float64
	HyperStarsBlur   float64
	HyperFadeout     float64
	HyperFuel        float64
	HyperThrust      float64
	HyperVel         float64
	HyperEnterMin    float64
	HyperEnterMax    float64
	HyperExitMin     float64

	// Бой
	DisabledArmour   float64
	HostileThreshold float64
	HostileDecay     float64
	ExplosionRadius  float64

	// Дозаправка
	RefuelTime float64
	RefuelRate float64

	AIControlTick   float64
	DebugInvariants bool
}

// NewParams строит параметры из конфигурации
func NewParams(cfg *config.Config) *Params {
	h := cfg.Hyperspace
	refuelTime := cfg.Combat.RefuelTime
	if refuelTime <= 0 {
		refuelTime = 3
	}
	return &Params{
		HyperEngineDelay: h.EngineDelay,
		HyperFlyDelay:    h.FlyDelay,
		HyperStarsBlur:   h.StarsBlur,
		HyperFadeout:     h.Fadeout,
		HyperFuel:        h.Fuel,
		HyperThrust:      h.Thrust,
		HyperVel:         h.Velocity(),
		HyperEnterMin:    h.EnterMin(),
		HyperEnterMax:    h.EnterMax(),
		HyperExitMin:     h.ExitMin,

		DisabledArmour:   cfg.Combat.DisabledArmour,
		HostileThreshold: cfg.Combat.HostileThreshold,
		HostileDecay:     cfg.Combat.HostileDecay,
		ExplosionRadius:  cfg.Combat.ExplosionRadius,

		RefuelTime: refuelTime,
		RefuelRate: h.Fuel / refuelTime,

		AIControlTick:   cfg.Sim.AIControlTick,
		DebugInvariants: cfg.Sim.DebugInvariants,
	}
}

// DefaultParams параметры конфигурации по умолчанию
func DefaultParams() *Params {
	return NewParams(config.Default())
}
