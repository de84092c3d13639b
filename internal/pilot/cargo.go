package pilot

import (
	"fmt"

	"github.com/annel0/pilotsim/internal/economy"
)

// Cargo позиция трюма. MissionID != 0: миссионный груз.
type Cargo struct {
	Commodity *economy.Commodity
	Quantity  int
	MissionID uint32
}

// Cargo возвращает копию содержимого трюма
func (p *Pilot) Cargo() []Cargo {
	out := make([]Cargo, len(p.commodities))
	copy(out, p.commodities)
	return out
}

func (p *Pilot) cargoUsed() int {
	used := 0
	for _, c := range p.commodities {
		used += c.Quantity
	}
	return used
}

// CargoUsed занятое место в тоннах
func (p *Pilot) CargoUsed() int { return p.cargoUsed() }

// CargoFree свободное место в тоннах
func (p *Pilot) CargoFree() int {
	free := p.cargoMax - p.cargoUsed()
	if free < 0 {
		return 0
	}
	return free
}

// AddCargo добавляет товар, сколько поместится. Возвращает добавленное количество.
func (p *Pilot) AddCargo(c *economy.Commodity, quantity int) int {
	q := quantity
	if free := p.CargoFree(); q > free {
		q = free
	}
	if q <= 0 || c == nil {
		return 0
	}

	for i := range p.commodities {
		if p.commodities[i].Commodity == c && p.commodities[i].MissionID == 0 {
			p.commodities[i].Quantity += q
			p.CalcStats()
			return q
		}
	}
	p.commodities = append(p.commodities, Cargo{Commodity: c, Quantity: q})
	p.CalcStats()
	return q
}

// RmCargo убирает обычный товар. Возвращает убранное количество.
func (p *Pilot) RmCargo(c *economy.Commodity, quantity int) int {
	for i := range p.commodities {
		pc := &p.commodities[i]
		if pc.Commodity != c || pc.MissionID != 0 {
			continue
		}
		q := quantity
		if q > pc.Quantity {
			q = pc.Quantity
		}
		if q <= 0 {
			return 0
		}
		pc.Quantity -= q
		if pc.Quantity == 0 {
			p.commodities = append(p.commodities[:i], p.commodities[i+1:]...)
		}
		p.CalcStats()
		return q
	}
	return 0
}

// MoveCargo переносит весь трюм src в dest. Частичный перенос не выполняется.
// Миссионный груз получает новые идентификаторы dest.
func MoveCargo(dest, src *Pilot) error {
	if used := src.cargoUsed(); dest.CargoFree() < used {
		return fmt.Errorf("перенос %d т в пилота %d: %w", used, dest.id, ErrCargoFull)
	}
	for _, c := range src.commodities {
		if c.MissionID != 0 {
			dest.missionSeq++
			c.MissionID = dest.missionSeq
		}
		dest.commodities = append(dest.commodities, c)
	}
	src.commodities = nil
	dest.CalcStats()
	src.CalcStats()
	return nil
}

// AddMissionCargo грузит миссионный груз целиком и возвращает его идентификатор
func (p *Pilot) AddMissionCargo(c *economy.Commodity, quantity int) (uint32, error) {
	if c == nil || quantity <= 0 {
		return 0, fmt.Errorf("некорректный миссионный груз")
	}
	if p.CargoFree() < quantity {
		return 0, fmt.Errorf("миссионный груз %s x%d: %w", c.Name, quantity, ErrCargoFull)
	}
	p.missionSeq++
	id := p.missionSeq
	p.commodities = append(p.commodities, Cargo{Commodity: c, Quantity: quantity, MissionID: id})
	p.CalcStats()
	return id, nil
}

// RmMissionCargo убирает миссионный груз. При jettison груз выбрасывается в космос.
func (p *Pilot) RmMissionCargo(id uint32, jettison bool) error {
	for i, c := range p.commodities {
		if c.MissionID != id {
			continue
		}
		p.commodities = append(p.commodities[:i], p.commodities[i+1:]...)
		if jettison {
			logger().Debug("пилот %d выбросил миссионный груз %d (%s x%d)", p.id, id, c.Commodity.Name, c.Quantity)
		}
		p.CalcStats()
		return nil
	}
	return fmt.Errorf("груз %d: %w", id, ErrNoMissionCargo)
}

// Credits текущие кредиты
func (p *Pilot) Credits() int64 { return p.credits }

// HasCredits проверяет наличие суммы
func (p *Pilot) HasCredits(amount int64) bool { return p.credits >= amount }

// ModCredits изменяет кредиты, не опуская их ниже нуля
func (p *Pilot) ModCredits(amount int64) int64 {
	p.credits += amount
	if p.credits < 0 {
		p.credits = 0
	}
	return p.credits
}

// Pay списывает сумму, если её хватает
func (p *Pilot) Pay(amount int64) error {
	if !p.HasCredits(amount) {
		return fmt.Errorf("нужно %d, есть %d: %w", amount, p.credits, ErrNoCredits)
	}
	p.credits -= amount
	return nil
}
