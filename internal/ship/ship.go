package ship

import (
	"fmt"
	"math"

	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/vec"
)

// Mount описывает точку крепления относительно центра корабля
type Mount struct {
	X float64 `yaml:"x"` // Смещение вперёд по курсу
	Y float64 `yaml:"y"` // Смещение влево от курса
	H float64 `yaml:"h"` // Высота (для отрисовки)
}

// Offset возвращает смещение точки крепления в мировых координатах при курсе dir
func (m Mount) Offset(dir float64) vec.Vector2D {
	cos, sin := math.Cos(dir), math.Sin(dir)
	return vec.New(m.X*cos-m.Y*sin, m.X*sin+m.Y*cos+m.H)
}

// SlotSpec описывает слот в конструкции корабля
type SlotSpec struct {
	Type    outfit.SlotType `yaml:"type"`
	Mount   Mount           `yaml:"mount"`
	Default string          `yaml:"default"` // Снаряжение по умолчанию

	DefaultOutfit *outfit.Outfit `yaml:"-"` // Разрешается каталогом
}

// Ship описывает класс корабля. Один экземпляр разделяется всеми пилотами этого класса.
type Ship struct {
	Name  string `yaml:"name"`
	Class string `yaml:"class"`
	Price int    `yaml:"price"`

	// Движение
	Mass   float64 `yaml:"mass"`
	Thrust float64 `yaml:"thrust"` // Ускорение, умножается на массу при расчёте тяги
	Turn   float64 `yaml:"turn"`   // Угловая скорость в рад/с
	Speed  float64 `yaml:"speed"`

	// Живучесть
	Armour      float64 `yaml:"armour"`
	ArmourRegen float64 `yaml:"armour_regen"`
	Shield      float64 `yaml:"shield"`
	ShieldRegen float64 `yaml:"shield_regen"`
	Energy      float64 `yaml:"energy"`
	EnergyRegen float64 `yaml:"energy_regen"`
	Fuel        float64 `yaml:"fuel"`

	CPU     float64 `yaml:"cpu"`
	Cargo   int     `yaml:"cargo"`
	Radius  float64 `yaml:"radius"`  // Радиус коллайдера
	Sprites int     `yaml:"sprites"` // Количество кадров поворота

	Slots []SlotSpec `yaml:"slots"`
}

// Validate проверяет корректность описания корабля
func (s *Ship) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("корабль без имени")
	}
	if s.Mass <= 0 {
		return fmt.Errorf("корабль %s: масса должна быть положительной", s.Name)
	}
	if s.Armour <= 0 {
		return fmt.Errorf("корабль %s: броня должна быть положительной", s.Name)
	}
	if s.Thrust < 0 || s.Turn < 0 || s.Speed < 0 || s.Shield < 0 || s.Energy < 0 || s.Fuel < 0 || s.CPU < 0 || s.Cargo < 0 {
		return fmt.Errorf("корабль %s: отрицательные параметры", s.Name)
	}
	for i, slot := range s.Slots {
		if slot.Type == outfit.SlotNull {
			return fmt.Errorf("корабль %s: слот %d без типа", s.Name, i)
		}
	}
	return nil
}

// CountSlots возвращает число слотов указанного типа
func (s *Ship) CountSlots(t outfit.SlotType) int {
	n := 0
	for _, slot := range s.Slots {
		if slot.Type == t {
			n++
		}
	}
	return n
}

// SpriteFrame возвращает номер кадра спрайта для курса dir
func (s *Ship) SpriteFrame(dir float64) int {
	if s.Sprites <= 0 {
		return 0
	}
	step := 2 * math.Pi / float64(s.Sprites)
	frame := int(math.Round(dir/step)) % s.Sprites
	if frame < 0 {
		frame += s.Sprites
	}
	return frame
}
