// Package escort передаёт приказы ведущего эскорту и управляет истребителями ангаров.
package escort

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/ship"
	"github.com/annel0/pilotsim/internal/vec"
)

var (
	// ErrUnknownShip корабль истребителя отсутствует в каталоге
	ErrUnknownShip = errors.New("неизвестный корабль")
	// ErrNotEscort пилот не является эскортом ведущего
	ErrNotEscort = errors.New("пилот не в эскорте")
)

// Ships источник описаний кораблей
type Ships interface {
	Ship(name string) (*ship.Ship, bool)
}

// spawnDistance отступ нового эскорта от ведущего в радиусах ведущего
const spawnDistance = 2.0

func logger() *logging.Logger {
	return logging.GetComponentLogger("escort")
}

// command записывает приказ каждому живому эскорту ведущего.
// Ссылки на исчезнувших пилотов пропускаются. Возвращает число получивших приказ.
func command(reg *pilot.Registry, leader *pilot.Pilot, c pilot.Command) int {
	if leader == nil {
		return 0
	}
	n := 0
	for _, e := range leader.Escorts() {
		p, ok := reg.Get(e.ID)
		if !ok || p.IsDead() {
			continue
		}
		p.SetCommand(c)
		n++
	}
	if n > 0 {
		logger().Debug("пилот %d: приказ %s получили %d эскорт(ов)", leader.ID(), c.Kind, n)
	}
	return n
}

// Attack приказывает атаковать цель ведущего. Без цели приказ не отдаётся.
func Attack(reg *pilot.Registry, leader *pilot.Pilot) int {
	if leader == nil {
		return 0
	}
	t, ok := reg.Get(leader.Target())
	if !ok || !t.Targetable() || t.IsDead() {
		return 0
	}
	return command(reg, leader, pilot.Command{Kind: pilot.CmdAttack, Target: t.ID()})
}

// Hold приказывает держать позицию
func Hold(reg *pilot.Registry, leader *pilot.Pilot) int {
	return command(reg, leader, pilot.Command{Kind: pilot.CmdHold})
}

// Return приказывает вернуться к ведущему
func Return(reg *pilot.Registry, leader *pilot.Pilot) int {
	return command(reg, leader, pilot.Command{Kind: pilot.CmdReturn})
}

// Clear отменяет приказы
func Clear(reg *pilot.Registry, leader *pilot.Pilot) int {
	return command(reg, leader, pilot.Command{Kind: pilot.CmdClear})
}

// Create создаёт эскорт рядом с ведущим и добавляет ссылку на него
func Create(reg *pilot.Registry, leader *pilot.Pilot, sh *ship.Ship, t pilot.EscortType, ai pilot.AI) (*pilot.Pilot, error) {
	if leader == nil || sh == nil {
		return nil, fmt.Errorf("эскорт: не задан ведущий или корабль")
	}
	flags := pilot.FlagEscort
	if t == pilot.EscortBay {
		flags |= pilot.FlagCarried
	}

	dir := leader.Solid.Dir
	offset := vec.NewPolar(leader.Radius()*spawnDistance, dir+math.Pi)
	pos := leader.Solid.Pos.Add(offset)

	p, err := reg.Create(sh, sh.Name, leader.Faction, ai, dir, pos, leader.Solid.Vel, flags)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать эскорт %s: %w", sh.Name, err)
	}
	p.System = leader.System
	p.SetParent(leader.ID())
	leader.AddEscort(sh.Name, t, p.ID())
	logger().Info("пилот %d: создан эскорт %d (%s, %s)", leader.ID(), p.ID(), sh.Name, t)
	return p, nil
}

// Deploy выпускает истребитель из ангара в слоте slot
func Deploy(reg *pilot.Registry, leader *pilot.Pilot, slot int, ships Ships, ai pilot.AI) (*pilot.Pilot, error) {
	fighter, err := leader.LaunchFighter(slot)
	if err != nil {
		return nil, err
	}
	sh, ok := ships.Ship(fighter.ShipName)
	if !ok {
		_ = leader.DockFighter(slot)
		return nil, fmt.Errorf("истребитель %s: %w", fighter.ShipName, ErrUnknownShip)
	}

	p, err := Create(reg, leader, sh, pilot.EscortBay, ai)
	if err != nil {
		_ = leader.DockFighter(slot)
		return nil, err
	}
	// Истребитель вылетает из точки крепления ангара
	if s, ok := leader.Slot(slot); ok {
		p.Solid.Pos = leader.MountPos(s)
	}
	return p, nil
}

// Dock возвращает истребитель в ангар ведущего. Истребитель удаляется из реестра в фазе очистки.
func Dock(reg *pilot.Registry, fighter *pilot.Pilot) error {
	if fighter == nil || !fighter.HasFlag(pilot.FlagCarried) {
		return ErrNotEscort
	}
	leader, ok := reg.Get(fighter.Parent())
	if !ok || leader.IsDead() {
		return fmt.Errorf("пилот %d: ведущий %d: %w", fighter.ID(), fighter.Parent(), pilot.ErrNoTarget)
	}
	if fighter.Solid.Pos.Dist(leader.Solid.Pos) > leader.Radius()*2 {
		return fmt.Errorf("пилот %d: %w", fighter.ID(), pilot.ErrTooFar)
	}
	slot, ok := leader.FighterSlot(fighter.Ship.Name)
	if !ok {
		return fmt.Errorf("пилот %d: нет ангара для %s: %w", fighter.ID(), fighter.Ship.Name, ErrNotEscort)
	}
	if err := leader.DockFighter(slot); err != nil {
		return err
	}
	leader.RemoveEscort(fighter.ID())
	fighter.MarkDelete()
	return nil
}

// Cycle возвращает следующий (dir > 0) или предыдущий эскорт после current по кругу.
// Исчезнувшие эскорты пропускаются, 0: живых эскортов нет.
func Cycle(reg *pilot.Registry, leader *pilot.Pilot, current uint32, dir int) uint32 {
	var alive []uint32
	for _, e := range leader.Escorts() {
		if p, ok := reg.Get(e.ID); ok && p.Targetable() && !p.IsDead() {
			alive = append(alive, e.ID)
		}
	}
	if len(alive) == 0 {
		return 0
	}

	pos := -1
	for i, id := range alive {
		if id == current {
			pos = i
			break
		}
	}
	switch {
	case pos < 0 && dir >= 0:
		return alive[0]
	case pos < 0:
		return alive[len(alive)-1]
	case dir >= 0:
		return alive[(pos+1)%len(alive)]
	default:
		return alive[(pos-1+len(alive))%len(alive)]
	}
}
