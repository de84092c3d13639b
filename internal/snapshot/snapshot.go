// Package snapshot содержит неизменяемые копии состояния кадра
// для отрисовки, REST API и хранилища.
package snapshot

import (
	"time"

	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/vec"
	"github.com/annel0/pilotsim/internal/weapons"
)

// Pilot копия видимого состояния пилота
type Pilot struct {
	ID          uint32       `json:"id"`
	Name        string       `json:"name"`
	Ship        string       `json:"ship"`
	Faction     string       `json:"faction"`
	System      string       `json:"system"`
	Pos         vec.Vector2D `json:"pos"`
	Vel         vec.Vector2D `json:"vel"`
	Dir         float64      `json:"dir"`
	SpriteFrame int          `json:"sprite"`
	Armour      float64      `json:"armour"` // Доли от максимума
	Shield      float64      `json:"shield"`
	Energy      float64      `json:"energy"`
	Fuel        float64      `json:"fuel"`
	Life        string       `json:"life"`
	Hyper       string       `json:"hyper"`
	Flags       uint32       `json:"flags"` // Слово флагов в исходной раскладке
	Target      uint32       `json:"target,omitempty"`
	Parent      uint32       `json:"parent,omitempty"`
	Comm        string       `json:"comm,omitempty"`
	StarBlur    float64      `json:"star_blur,omitempty"`
	EngineGlow  float64      `json:"engine_glow,omitempty"`
}

// Frame снимок кадра. После публикации не изменяется.
type Frame struct {
	Frame       uint64              `json:"frame"`
	Time        time.Time           `json:"time"`
	SimTime     float64             `json:"sim_time"` // Секунды симуляции с запуска
	System      string              `json:"system"`
	Player      uint32              `json:"player,omitempty"`
	Pilots      []Pilot             `json:"pilots"`
	Projectiles []weapons.State     `json:"projectiles,omitempty"`
	Beams       []weapons.BeamState `json:"beams,omitempty"`
	Effects     []pilot.Effect      `json:"effects,omitempty"`
}

// Build собирает снимок из реестра и оружейной системы.
// Вызывается из цикла симуляции после фазы удаления.
func Build(frame uint64, simTime float64, system string, reg *pilot.Registry, w *weapons.System, effects []pilot.Effect) *Frame {
	f := &Frame{
		Frame:   frame,
		Time:    time.Now().UTC(),
		SimTime: simTime,
		System:  system,
		Effects: effects,
	}
	if pl, ok := reg.Player(); ok {
		f.Player = pl.ID()
	}

	all := reg.All()
	f.Pilots = make([]Pilot, 0, len(all))
	for _, p := range all {
		f.Pilots = append(f.Pilots, FromPilot(reg, p))
	}
	if w != nil {
		f.Projectiles = w.Projectiles()
		f.Beams = w.Beams()
	}
	return f
}

// FromPilot копирует состояние одного пилота
func FromPilot(reg *pilot.Registry, p *pilot.Pilot) Pilot {
	armour, shield, energy := p.Fractions()
	fuel := 0.0
	if p.FuelMax() > 0 {
		fuel = p.Fuel() / p.FuelMax()
	}
	comm, _ := p.CommMessage()

	return Pilot{
		ID:          p.ID(),
		Name:        p.Name,
		Ship:        p.Ship.Name,
		Faction:     reg.Factions().Name(p.Faction),
		System:      p.System,
		Pos:         p.Solid.Pos,
		Vel:         p.Solid.Vel,
		Dir:         p.Solid.Dir,
		SpriteFrame: p.SpriteFrame(),
		Armour:      armour,
		Shield:      shield,
		Energy:      energy,
		Fuel:        fuel,
		Life:        p.Life().String(),
		Hyper:       p.HyperPhase().String(),
		Flags:       p.FlagWord(),
		Target:      p.Target(),
		Parent:      p.Parent(),
		Comm:        comm,
		StarBlur:    p.StarBlur(),
		EngineGlow:  p.EngineGlow(),
	}
}

// Pilot ищет пилота в снимке
func (f *Frame) Pilot(id uint32) (Pilot, bool) {
	for _, p := range f.Pilots {
		if p.ID == id {
			return p, true
		}
	}
	return Pilot{}, false
}
