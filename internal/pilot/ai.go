package pilot

import (
	"fmt"

	"github.com/annel0/pilotsim/internal/vec"
)

// MaxAITimers число таймеров, доступных ИИ
const MaxAITimers = 2

// CommandKind приказ ведущего эскорту
type CommandKind uint8

const (
	CmdNone CommandKind = iota
	CmdAttack
	CmdHold
	CmdReturn
	CmdClear
)

func (c CommandKind) String() string {
	switch c {
	case CmdAttack:
		return "attack"
	case CmdHold:
		return "hold"
	case CmdReturn:
		return "return"
	case CmdClear:
		return "clear"
	default:
		return "none"
	}
}

// Command приказ с целью
type Command struct {
	Kind   CommandKind
	Target uint32
}

// Intent намерения пилота на следующий кадр
type Intent struct {
	Thrust    float64 // [0, 1]
	Turn      float64 // [-1, 1], положительное: против часовой
	Primary   bool
	Secondary bool
	Afterburn bool

	Target    uint32
	SetTarget bool
}

// IsIdle намерение ничего не делать
func (i Intent) IsIdle() bool {
	return i.Thrust == 0 && i.Turn == 0 && !i.Primary && !i.Secondary && !i.Afterburn
}

// clamp приводит намерение к допустимым диапазонам
func (i Intent) clamp() Intent {
	i.Thrust = clampf(i.Thrust, 0, 1)
	i.Turn = clampf(i.Turn, -1, 1)
	return i
}

// Contact сведения о другом пилоте
type Contact struct {
	ID  uint32
	Pos vec.Vector2D
	Vel vec.Vector2D
}

// View данные, доступные ИИ. Значение, ИИ не может изменить пилота через него.
type View struct {
	ID       uint32
	Pos      vec.Vector2D
	Vel      vec.Vector2D
	Dir      float64
	MaxSpeed float64
	Turn     float64

	Armour float64 // Доли от максимума
	Shield float64
	Energy float64

	WeaponRange float64
	Timers      [MaxAITimers]float64

	Target       Contact
	TargetValid  bool
	NearestEnemy Contact
	HasEnemy     bool
	Nearest      Contact
	HasNearest   bool

	Leader    Contact
	HasLeader bool
	Command   Command
	// Цель приказа CmdAttack существует и ещё жива
	CommandTargetValid bool
}

// AI внешний модуль принятия решений
type AI interface {
	Think(view View, dt float64) (Intent, error)
}

// AIFunc адаптер функции к AI
type AIFunc func(view View, dt float64) (Intent, error)

func (f AIFunc) Think(view View, dt float64) (Intent, error) { return f(view, dt) }

// Task задача ручного управления: держать намерение указанное время
type Task struct {
	Intent   Intent
	Duration float64
}

// think опрашивает ИИ. При ошибке или панике сохраняется прежнее намерение.
func (p *Pilot) think(env Env, dt float64) {
	if p.ai == nil {
		return
	}
	intent, err := safeThink(p.ai, env.View(p), dt)
	if err != nil {
		env.Metrics().AIError()
		logger().Warn("ИИ пилота %d (%s): %v, сохраняем прежнее намерение", p.id, p.Name, err)
		return
	}
	p.applyIntent(env, intent)
}

func safeThink(ai AI, view View, dt float64) (intent Intent, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника: %v", r)
		}
	}()
	return ai.Think(view, dt)
}

// applyIntent проверяет и применяет намерение
func (p *Pilot) applyIntent(env Env, intent Intent) {
	intent = intent.clamp()
	if intent.SetTarget {
		if intent.Target == 0 {
			p.target = 0
		} else if t, ok := env.Get(intent.Target); ok && t != p && t.Targetable() {
			p.target = intent.Target
		}
		intent.SetTarget = false
	}
	p.intent = intent
}
