// Package catalog загружает описания кораблей, снаряжения, товаров, фракций
// и звёздных систем из YAML и связывает их между собой.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/annel0/pilotsim/internal/economy"
	"github.com/annel0/pilotsim/internal/faction"
	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/ship"
	"github.com/annel0/pilotsim/internal/vec"
)

// System описание звёздной системы и её прыжковых маршрутов
type System struct {
	Name    string   `yaml:"name"`
	X       float64  `yaml:"x"`
	Y       float64  `yaml:"y"`
	Faction string   `yaml:"faction"`
	Jumps   []string `yaml:"jumps"`
}

// Pos положение системы на звёздной карте
func (s System) Pos() vec.Vector2D { return vec.New(s.X, s.Y) }

// file формат файла каталога
type file struct {
	Factions    []faction.Faction   `yaml:"factions"`
	Commodities []economy.Commodity `yaml:"commodities"`
	Outfits     []*outfit.Outfit    `yaml:"outfits"`
	Ships       []*ship.Ship        `yaml:"ships"`
	Systems     []System            `yaml:"systems"`
}

// Catalog неизменяемый после загрузки набор описаний.
// Корабли и снаряжение разделяются всеми пилотами.
type Catalog struct {
	Factions *faction.Table

	ships       map[string]*ship.Ship
	outfits     map[string]*outfit.Outfit
	commodities map[string]*economy.Commodity
	systems     []System
}

// Load читает каталог из файла
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать каталог %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("каталог %s: %w", path, err)
	}

	logging.GetComponentLogger("catalog").Info("📦 Каталог загружен: %d кораблей, %d снаряжения, %d товаров, %d систем",
		len(c.ships), len(c.outfits), len(c.commodities), len(c.systems))
	return c, nil
}

// Parse разбирает каталог из YAML и разрешает ссылки по именам
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML: %w", err)
	}

	c := &Catalog{
		Factions:    faction.NewTable(),
		ships:       make(map[string]*ship.Ship),
		outfits:     make(map[string]*outfit.Outfit),
		commodities: make(map[string]*economy.Commodity),
	}

	for _, fac := range f.Factions {
		if _, err := c.Factions.Add(fac); err != nil {
			return nil, err
		}
	}
	if err := c.Factions.Link(); err != nil {
		return nil, err
	}

	for i := range f.Commodities {
		com := &f.Commodities[i]
		if err := com.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.commodities[com.Name]; dup {
			return nil, fmt.Errorf("товар %s описан дважды", com.Name)
		}
		c.commodities[com.Name] = com
	}

	for _, o := range f.Outfits {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.outfits[o.Name]; dup {
			return nil, fmt.Errorf("снаряжение %s описано дважды", o.Name)
		}
		c.outfits[o.Name] = o
	}

	for _, sh := range f.Ships {
		if err := sh.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.ships[sh.Name]; dup {
			return nil, fmt.Errorf("корабль %s описан дважды", sh.Name)
		}
		c.ships[sh.Name] = sh
	}

	if err := c.resolve(); err != nil {
		return nil, err
	}

	if err := c.loadSystems(f.Systems); err != nil {
		return nil, err
	}
	return c, nil
}

// resolve связывает боеприпасы, истребители и снаряжение по умолчанию
func (c *Catalog) resolve() error {
	for _, o := range c.outfits {
		if o.AmmoName != "" {
			ammo, ok := c.outfits[o.AmmoName]
			if !ok {
				return fmt.Errorf("снаряжение %s: неизвестный боеприпас %s", o.Name, o.AmmoName)
			}
			want := outfit.KindAmmo
			if o.Kind.IsFighterBay() {
				want = outfit.KindFighter
			}
			if ammo.Kind != want {
				return fmt.Errorf("снаряжение %s: %s не подходит как боеприпас", o.Name, ammo.Name)
			}
			o.Ammo = ammo
		}
		if o.Kind == outfit.KindFighter {
			if _, ok := c.ships[o.ShipName]; !ok {
				return fmt.Errorf("истребитель %s: неизвестный корабль %s", o.Name, o.ShipName)
			}
		}
	}

	for _, sh := range c.ships {
		for i := range sh.Slots {
			slot := &sh.Slots[i]
			if slot.Default == "" {
				continue
			}
			o, ok := c.outfits[slot.Default]
			if !ok {
				return fmt.Errorf("корабль %s: неизвестное снаряжение %s в слоте %d", sh.Name, slot.Default, i)
			}
			if o.Slot != slot.Type {
				return fmt.Errorf("корабль %s: %s не подходит к слоту %d (%s)", sh.Name, o.Name, i, slot.Type)
			}
			slot.DefaultOutfit = o
		}
	}
	return nil
}

func (c *Catalog) loadSystems(systems []System) error {
	names := make(map[string]bool, len(systems))
	for _, s := range systems {
		if s.Name == "" {
			return fmt.Errorf("система без имени")
		}
		if names[s.Name] {
			return fmt.Errorf("система %s описана дважды", s.Name)
		}
		names[s.Name] = true
	}
	for _, s := range systems {
		if s.Faction != "" {
			if _, ok := c.Factions.Lookup(s.Faction); !ok {
				return fmt.Errorf("система %s: неизвестная фракция %s", s.Name, s.Faction)
			}
		}
		for _, j := range s.Jumps {
			if !names[j] {
				return fmt.Errorf("система %s: прыжок в неизвестную систему %s", s.Name, j)
			}
		}
	}
	c.systems = systems
	return nil
}

// Ship возвращает корабль по имени
func (c *Catalog) Ship(name string) (*ship.Ship, bool) {
	sh, ok := c.ships[name]
	return sh, ok
}

// Outfit возвращает снаряжение по имени
func (c *Catalog) Outfit(name string) (*outfit.Outfit, bool) {
	o, ok := c.outfits[name]
	return o, ok
}

// Commodity возвращает товар по имени
func (c *Catalog) Commodity(name string) (*economy.Commodity, bool) {
	com, ok := c.commodities[name]
	return com, ok
}

// Systems возвращает описания систем в порядке файла
func (c *Catalog) Systems() []System {
	out := make([]System, len(c.systems))
	copy(out, c.systems)
	return out
}

// ShipNames имена кораблей по алфавиту
func (c *Catalog) ShipNames() []string {
	names := make([]string, 0, len(c.ships))
	for name := range c.ships {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rearm заполняет пусковые установки и ангары пилота их боеприпасами.
// Снаряжение по умолчанию ставится при создании пилота, боезапас: здесь.
func (c *Catalog) Rearm(p *pilot.Pilot) (int, error) {
	total := 0
	for _, s := range p.Slots() {
		o := s.Outfit()
		if o == nil || !o.Kind.UsesAmmo() || o.Ammo == nil {
			continue
		}
		n, err := p.AddAmmo(s.Index(), o.Ammo, o.MaxAmmo)
		if errors.Is(err, pilot.ErrAmmoFull) {
			continue
		}
		if err != nil {
			return total, fmt.Errorf("пилот %s: %w", p.Name, err)
		}
		total += n
	}
	return total, nil
}
