// Package player хранит состояние текущей сессии игрока и переводит
// именованные команды ввода в действия пилота игрока.
package player

import (
	"errors"
	"math"
	"sync"

	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/vec"
)

var (
	// ErrNoSession сессия игрока не начата или завершена
	ErrNoSession = errors.New("нет активной сессии игрока")
	// ErrNotPlayer пилот не является пилотом игрока
	ErrNotPlayer = errors.New("пилот не принадлежит игроку")
	// ErrUnknownCommand команда ввода не распознана
	ErrUnknownCommand = errors.New("неизвестная команда")
)

// Session текущая сессия игрока. Создаётся при старте игры и завершается
// при гибели или выходе. Передаётся подсистемам явно.
type Session struct {
	mu  sync.Mutex
	reg *pilot.Registry
	id  uint32

	active bool

	// Состояние ввода
	accel     float64
	left      float64
	right     float64
	reverse   bool
	face      bool
	primary   bool
	secondary bool
	afterburn bool

	hyperTarget string

	logger *logging.Logger
}

// Start начинает сессию для пилота игрока
func Start(reg *pilot.Registry, p *pilot.Pilot) (*Session, error) {
	if p == nil || !p.IsPlayer() {
		return nil, ErrNotPlayer
	}
	if _, ok := reg.Get(p.ID()); !ok {
		return nil, ErrNotPlayer
	}
	s := &Session{
		reg:    reg,
		id:     p.ID(),
		active: true,
		logger: logging.GetComponentLogger("player"),
	}
	s.logger.Info("сессия игрока начата: пилот %d (%s)", p.ID(), p.Name)
	return s, nil
}

// End завершает сессию. Повторный вызов ничего не делает.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	s.logger.Info("сессия игрока завершена: пилот %d", s.id)
}

// Active сессия продолжается
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ID пилота игрока
func (s *Session) ID() uint32 { return s.id }

// Pilot возвращает пилота игрока, если сессия активна и пилот ещё в реестре
func (s *Session) Pilot() (*pilot.Pilot, bool) {
	if !s.Active() {
		return nil, false
	}
	return s.reg.Get(s.id)
}

// HyperTarget выбранная система назначения
func (s *Session) HyperTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hyperTarget
}

// Think переводит состояние ввода в намерение пилота игрока.
// Вызывается миром перед обновлением реестра.
func (s *Session) Think() {
	p, ok := s.Pilot()
	if !ok || p.IsDead() {
		return
	}
	s.mu.Lock()
	in := pilot.Intent{
		Thrust:    s.accel,
		Turn:      s.left - s.right,
		Primary:   s.primary,
		Secondary: s.secondary,
		Afterburn: s.afterburn,
	}
	face, reverse := s.face, s.reverse
	s.mu.Unlock()

	switch {
	case face:
		if t, ok := s.reg.Get(p.Target()); ok && t.Targetable() {
			in.Turn = turnTo(p, p.Solid.Pos.AngleTo(t.Solid.Pos))
		}
	case reverse:
		if v := p.Solid.Vel; !v.IsZero() {
			in.Turn = turnTo(p, v.Angle()+math.Pi)
		}
	}
	p.SetIntent(in)
}

func turnTo(p *pilot.Pilot, dir float64) float64 {
	diff := vec.AngleDiff(p.Solid.Dir, dir)
	return math.Max(-1, math.Min(1, 10*diff))
}

// ClearHyperTarget сбрасывает выбранную систему после прыжка
func (s *Session) ClearHyperTarget() {
	s.set(func() { s.hyperTarget = "" })
}
