package pilot

import (
	"fmt"

	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/ship"
)

// SlotState состояние заряжаемого снаряжения
type SlotState uint8

const (
	SlotOff SlotState = iota
	SlotWarmup
	SlotOn
)

func (s SlotState) String() string {
	switch s {
	case SlotWarmup:
		return "warmup"
	case SlotOn:
		return "on"
	default:
		return "off"
	}
}

// Payload данные слота, зависящие от вида снаряжения:
// *BeamPayload для лучей, *AmmoPayload для пусковых установок и ангаров.
type Payload interface {
	payload()
}

// BeamPayload идентификатор экземпляра луча
type BeamPayload struct {
	BeamID uint64
}

// AmmoPayload боезапас пусковой установки или ангара
type AmmoPayload struct {
	Ammo     *outfit.Outfit
	Quantity int
	Deployed int // Выпущенные истребители, не больше Quantity
}

func (*BeamPayload) payload() {}
func (*AmmoPayload) payload() {}

// Slot точка крепления снаряжения
type Slot struct {
	Type  outfit.SlotType
	Mount ship.Mount

	outfit  *outfit.Outfit
	state   SlotState
	timer   float64 // Прогрев: остаток; включён: время работы; выключен: <0: остаток перезарядки
	payload Payload
	index   int
}

func (s *Slot) Index() int             { return s.index }
func (s *Slot) Outfit() *outfit.Outfit { return s.outfit }
func (s *Slot) State() SlotState       { return s.state }
func (s *Slot) Timer() float64         { return s.timer }
func (s *Slot) Payload() Payload       { return s.payload }
func (s *Slot) Empty() bool            { return s.outfit == nil }

// Ammo возвращает боезапас, если слот его хранит
func (s *Slot) Ammo() (*AmmoPayload, bool) {
	a, ok := s.payload.(*AmmoPayload)
	return a, ok
}

// Beam возвращает данные луча, если в слоте луч
func (s *Slot) Beam() (*BeamPayload, bool) {
	b, ok := s.payload.(*BeamPayload)
	return b, ok
}

// Ready оружие перезаряжено
func (s *Slot) Ready() bool {
	return s.outfit != nil && s.state == SlotOff && s.timer >= 0
}

// payloadMatches проверяет соответствие данных виду снаряжения
func (s *Slot) payloadMatches() bool {
	if s.outfit == nil {
		return s.payload == nil
	}
	switch {
	case s.outfit.Kind.IsBeam():
		_, ok := s.payload.(*BeamPayload)
		return ok
	case s.outfit.Kind.UsesAmmo():
		a, ok := s.payload.(*AmmoPayload)
		return ok && a.Quantity >= 0 && a.Deployed >= 0 && a.Deployed <= a.Quantity
	default:
		return s.payload == nil
	}
}

func newPayload(o *outfit.Outfit, pilotID uint32, idx int) Payload {
	switch {
	case o.Kind.IsBeam():
		return &BeamPayload{BeamID: uint64(pilotID)<<16 | uint64(idx)}
	case o.Kind.UsesAmmo():
		return &AmmoPayload{}
	default:
		return nil
	}
}

// Slots возвращает все слоты
func (p *Pilot) Slots() []*Slot { return p.slots }

// Slot возвращает слот по индексу
func (p *Pilot) Slot(i int) (*Slot, bool) {
	if i < 0 || i >= len(p.slots) {
		return nil, false
	}
	return p.slots[i], true
}

// SlotsOf возвращает слоты указанного типа
func (p *Pilot) SlotsOf(t outfit.SlotType) []*Slot {
	var out []*Slot
	for _, s := range p.slots {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// AddOutfit устанавливает снаряжение в слот. При нехватке CPU или энергии
// слот и характеристики возвращаются к прежнему состоянию.
func (p *Pilot) AddOutfit(i int, o *outfit.Outfit) error {
	s, ok := p.Slot(i)
	if !ok {
		return fmt.Errorf("слот %d: %w", i, ErrInvalidSlot)
	}
	if o == nil {
		return fmt.Errorf("слот %d: пустое снаряжение", i)
	}
	if s.outfit != nil {
		return fmt.Errorf("слот %d (%s): %w", i, s.outfit.Name, ErrSlotOccupied)
	}
	if o.Slot != s.Type {
		return fmt.Errorf("%s в слот %s: %w", o.Name, s.Type, ErrSlotMismatch)
	}

	saved := *s
	pools := [4]float64{p.armour, p.shield, p.energy, p.fuel}
	s.outfit = o
	s.state = SlotOff
	s.timer = 0
	s.payload = newPayload(o, p.id, i)
	p.CalcStats()

	if p.cpu < 0 || p.energyMax < 0 {
		cpu := p.cpu
		*s = saved
		p.CalcStats()
		p.armour, p.shield, p.energy, p.fuel = pools[0], pools[1], pools[2], pools[3]
		return fmt.Errorf("%s: остаток CPU %.1f: %w", o.Name, cpu, ErrCapacityExceeded)
	}
	return nil
}

// RmOutfit снимает снаряжение. Слот становится пустым, выключенным, без таймеров и боезапаса.
func (p *Pilot) RmOutfit(i int) error {
	s, ok := p.Slot(i)
	if !ok {
		return fmt.Errorf("слот %d: %w", i, ErrInvalidSlot)
	}
	if s.outfit == nil {
		return nil
	}
	if i == p.afterburner {
		p.flags &^= FlagAfterburner
	}
	s.outfit = nil
	s.state = SlotOff
	s.timer = 0
	s.payload = nil
	if p.secondary == i {
		p.secondary = -1
	}
	p.CalcStats()
	return nil
}

// Activate включает снаряжение: с прогревом или сразу
func (p *Pilot) Activate(i int) error {
	s, ok := p.Slot(i)
	if !ok {
		return fmt.Errorf("слот %d: %w", i, ErrInvalidSlot)
	}
	if s.outfit == nil {
		return fmt.Errorf("слот %d: %w", i, ErrSlotEmpty)
	}
	if s.state != SlotOff {
		return nil
	}
	if s.outfit.Warmup > 0 {
		s.state = SlotWarmup
		s.timer = s.outfit.Warmup
	} else {
		s.state = SlotOn
		s.timer = 0
	}
	if i == p.afterburner {
		p.flags |= FlagAfterburner
	}
	return nil
}

// Deactivate выключает снаряжение. Лучи уходят на перезарядку.
func (p *Pilot) Deactivate(i int) error {
	s, ok := p.Slot(i)
	if !ok {
		return fmt.Errorf("слот %d: %w", i, ErrInvalidSlot)
	}
	if s.outfit == nil || s.state == SlotOff {
		return nil
	}
	p.turnOff(s)
	return nil
}

func (p *Pilot) turnOff(s *Slot) {
	s.state = SlotOff
	s.timer = 0
	if s.outfit != nil && s.outfit.Kind.IsBeam() {
		s.timer = -s.outfit.Delay
	}
	if s.index == p.afterburner {
		p.flags &^= FlagAfterburner
	}
}

// AddAmmo добавляет боезапас в пусковую установку или ангар.
// Возвращает фактически добавленное количество.
func (p *Pilot) AddAmmo(i int, ammo *outfit.Outfit, n int) (int, error) {
	s, ok := p.Slot(i)
	if !ok {
		return 0, fmt.Errorf("слот %d: %w", i, ErrInvalidSlot)
	}
	a, ok := s.Ammo()
	if !ok {
		return 0, fmt.Errorf("слот %d: %w", i, ErrNotLauncher)
	}
	if ammo == nil || (s.outfit.AmmoName != "" && ammo.Name != s.outfit.AmmoName) {
		return 0, fmt.Errorf("слот %d: %w", i, ErrAmmoMismatch)
	}
	if a.Ammo != nil && a.Ammo != ammo && a.Quantity > 0 {
		return 0, fmt.Errorf("слот %d: %w", i, ErrAmmoMismatch)
	}
	if n <= 0 {
		return 0, nil
	}

	room := n
	if s.outfit.MaxAmmo > 0 {
		room = s.outfit.MaxAmmo - a.Quantity
	}
	if room <= 0 {
		return 0, fmt.Errorf("слот %d: %w", i, ErrAmmoFull)
	}
	if n > room {
		n = room
	}

	a.Ammo = ammo
	a.Quantity += n
	p.CalcStats()
	return n, nil
}

// RmAmmo убирает боезапас. Запрос больше наличия обрезается до нуля.
// Возвращает фактически убранное количество.
func (p *Pilot) RmAmmo(i int, n int) int {
	s, ok := p.Slot(i)
	if !ok || n <= 0 {
		return 0
	}
	a, ok := s.Ammo()
	if !ok {
		return 0
	}
	if n > a.Quantity {
		n = a.Quantity
	}
	a.Quantity -= n
	if a.Deployed > a.Quantity {
		a.Deployed = a.Quantity
	}
	if a.Quantity == 0 {
		a.Ammo = nil
	}
	p.CalcStats()
	return n
}

// LaunchFighter выпускает истребитель из ангара и возвращает его описание
func (p *Pilot) LaunchFighter(i int) (*outfit.Outfit, error) {
	s, ok := p.Slot(i)
	if !ok {
		return nil, fmt.Errorf("слот %d: %w", i, ErrInvalidSlot)
	}
	a, ok := s.Ammo()
	if !ok || !s.outfit.Kind.IsFighterBay() {
		return nil, fmt.Errorf("слот %d: %w", i, ErrNotLauncher)
	}
	if !s.Ready() || a.Ammo == nil || a.Quantity-a.Deployed <= 0 {
		return nil, fmt.Errorf("слот %d: нет готовых истребителей", i)
	}
	a.Deployed++
	s.timer = -s.outfit.Delay
	p.CalcStats()
	return a.Ammo, nil
}

// DockFighter возвращает истребитель в ангар
func (p *Pilot) DockFighter(i int) error {
	s, ok := p.Slot(i)
	if !ok {
		return fmt.Errorf("слот %d: %w", i, ErrInvalidSlot)
	}
	a, ok := s.Ammo()
	if !ok || a.Deployed <= 0 {
		return fmt.Errorf("слот %d: нет выпущенных истребителей", i)
	}
	a.Deployed--
	p.CalcStats()
	return nil
}

// LoseFighter списывает погибший истребитель
func (p *Pilot) LoseFighter(i int) {
	s, ok := p.Slot(i)
	if !ok {
		return
	}
	a, ok := s.Ammo()
	if !ok || a.Deployed <= 0 {
		return
	}
	a.Deployed--
	p.RmAmmo(i, 1)
}

// FighterSlot ищет ангар, выпускающий корабль shipName
func (p *Pilot) FighterSlot(shipName string) (int, bool) {
	for _, s := range p.slots {
		if s.outfit == nil || !s.outfit.Kind.IsFighterBay() {
			continue
		}
		if a, ok := s.Ammo(); ok && a.Ammo != nil && a.Ammo.ShipName == shipName {
			return s.index, true
		}
	}
	return -1, false
}

// Secondary индекс выбранного вторичного оружия, -1 если не выбрано
func (p *Pilot) Secondary() int { return p.secondary }

// SwitchSecondary выбирает вторичное оружие. -1 снимает выбор.
func (p *Pilot) SwitchSecondary(i int) error {
	if i < 0 {
		p.secondary = -1
		return nil
	}
	s, ok := p.Slot(i)
	if !ok {
		return fmt.Errorf("слот %d: %w", i, ErrInvalidSlot)
	}
	if s.outfit == nil || !s.outfit.Kind.IsSecondary() {
		return fmt.Errorf("слот %d: %w", i, ErrNotSecondary)
	}
	p.secondary = i
	return nil
}

// NextSecondary переключает вторичное оружие вперёд (dir > 0) или назад
func (p *Pilot) NextSecondary(dir int) {
	n := len(p.slots)
	if n == 0 {
		return
	}
	step := 1
	if dir < 0 {
		step = -1
	}
	start := p.secondary
	if start < 0 {
		start = -step
		if step < 0 {
			start = n
		}
	}
	for k := 1; k <= n; k++ {
		i := start + step*k
		if i < 0 || i >= n {
			break
		}
		if s := p.slots[i]; s.outfit != nil && s.outfit.Kind.IsSecondary() {
			p.secondary = i
			return
		}
	}
	p.secondary = -1
}

// updateSlots продвигает таймеры слотов
func (p *Pilot) updateSlots(dt float64) {
	for _, s := range p.slots {
		if s.outfit == nil {
			continue
		}
		switch s.state {
		case SlotWarmup:
			s.timer -= dt
			if s.timer <= 0 {
				s.state = SlotOn
				s.timer = 0
			}
		case SlotOn:
			s.timer += dt
			if s.outfit.Kind.IsBeam() {
				if s.outfit.Duration > 0 && s.timer >= s.outfit.Duration {
					p.turnOff(s)
					continue
				}
				use := s.outfit.EnergyUse * dt
				if p.energy < use {
					p.turnOff(s)
					continue
				}
				p.energy -= use
			}
		case SlotOff:
			if s.timer < 0 {
				s.timer += dt
				if s.timer > 0 {
					s.timer = 0
				}
			}
		}
	}
}
