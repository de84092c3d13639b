package player

import (
	"fmt"

	"github.com/annel0/pilotsim/internal/escort"
	"github.com/annel0/pilotsim/internal/pilot"
)

// Routes карта прыжков между системами
type Routes interface {
	Adjacent(system string) []string
}

// Controller выполняет именованные команды ввода над пилотом игрока
type Controller struct {
	s      *Session
	routes Routes
}

// NewController создаёт контроллер сессии
func NewController(s *Session, routes Routes) *Controller {
	return &Controller{s: s, routes: routes}
}

// Commands имена команд, которые понимает Dispatch
var Commands = []string{
	"accel", "left", "right", "reverse", "afterburn",
	"primary", "secondary", "secondary_next", "secondary_prev",
	"target_next", "target_prev", "target_nearest",
	"target_nextHostile", "target_prevHostile", "target_hostile", "target_clear",
	"face", "board",
	"e_targetNext", "e_targetPrev", "e_attack", "e_hold", "e_return", "e_clear",
	"thyperspace", "jump", "abort_jump", "hail",
}

// Dispatch выполняет команду. value > 0: нажатие (для осей: величина), 0: отпускание.
// Дискретные команды срабатывают только на нажатие.
func (c *Controller) Dispatch(name string, value float64) error {
	p, ok := c.s.Pilot()
	if !ok {
		return ErrNoSession
	}
	press := value > 0
	axis := value
	if axis < 0 {
		axis = 0
	}
	if axis > 1 {
		axis = 1
	}

	// Отпускание допустимо и для погибшего пилота
	if p.IsDead() && press {
		return pilot.ErrDead
	}

	reg := c.s.reg
	s := c.s

	switch name {
	// Движение
	case "accel":
		s.set(func() { s.accel = axis })
	case "left":
		s.set(func() { s.left = axis })
	case "right":
		s.set(func() { s.right = axis })
	case "reverse":
		s.set(func() { s.reverse = press })
	case "face":
		s.set(func() { s.face = press })
	case "afterburn":
		s.set(func() { s.afterburn = press })

	// Оружие
	case "primary":
		s.set(func() { s.primary = press })
	case "secondary":
		s.set(func() { s.secondary = press })
	case "secondary_next":
		if press {
			p.NextSecondary(1)
		}
	case "secondary_prev":
		if press {
			p.NextSecondary(-1)
		}

	// Выбор цели
	case "target_next":
		if press {
			p.SetTarget(reg.NextID(p.Target(), false))
		}
	case "target_prev":
		if press {
			p.SetTarget(reg.PrevID(p.Target(), false))
		}
	case "target_nextHostile":
		if press {
			p.SetTarget(reg.NextID(p.Target(), true))
		}
	case "target_prevHostile":
		if press {
			p.SetTarget(reg.PrevID(p.Target(), true))
		}
	case "target_nearest":
		if press {
			id, _ := reg.NearestPilot(p)
			p.SetTarget(id)
		}
	case "target_hostile":
		if press {
			id, _ := reg.NearestHostile()
			p.SetTarget(id)
		}
	case "target_clear":
		if press {
			p.SetTarget(0)
		}

	// Эскорт
	case "e_targetNext":
		if press {
			p.SetTarget(escort.Cycle(reg, p, p.Target(), 1))
		}
	case "e_targetPrev":
		if press {
			p.SetTarget(escort.Cycle(reg, p, p.Target(), -1))
		}
	case "e_attack":
		if press {
			escort.Attack(reg, p)
		}
	case "e_hold":
		if press {
			escort.Hold(reg, p)
		}
	case "e_return":
		if press {
			escort.Return(reg, p)
		}
	case "e_clear":
		if press {
			escort.Clear(reg, p)
		}

	// Взаимодействие
	case "board":
		if press {
			return p.Board(reg)
		}
	case "hail":
		if press {
			return p.Hail(reg, p.Target())
		}

	// Гиперпространство
	case "thyperspace":
		if press {
			return c.nextHyperTarget(p)
		}
	case "jump":
		if press {
			return p.Hyperspace(s.HyperTarget())
		}
	case "abort_jump":
		if press {
			return p.HyperspaceAbort()
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return nil
}

// nextHyperTarget выбирает следующую соседнюю систему по кругу
func (c *Controller) nextHyperTarget(p *pilot.Pilot) error {
	if p.HyperPhase() != pilot.HypNone {
		return pilot.ErrAlreadyJumping
	}
	if c.routes == nil {
		return pilot.ErrNoHyperTarget
	}
	adj := c.routes.Adjacent(p.System)
	if len(adj) == 0 {
		return pilot.ErrNoHyperTarget
	}
	cur := c.s.HyperTarget()
	next := adj[0]
	for i, name := range adj {
		if name == cur {
			next = adj[(i+1)%len(adj)]
			break
		}
	}
	c.s.set(func() { c.s.hyperTarget = next })
	return nil
}

func (s *Session) set(f func()) {
	s.mu.Lock()
	f()
	s.mu.Unlock()
}
