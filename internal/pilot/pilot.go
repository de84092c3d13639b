package pilot

import (
	"math"

	"github.com/annel0/pilotsim/internal/faction"
	"github.com/annel0/pilotsim/internal/physics"
	"github.com/annel0/pilotsim/internal/ship"
	"github.com/annel0/pilotsim/internal/vec"
)

// PlayerID зарезервированный ID пилота игрока
const PlayerID uint32 = 1

// EscortType роль эскорта
type EscortType uint8

const (
	EscortNull EscortType = iota
	EscortBay
	EscortMercenary
	EscortAlly
)

func (t EscortType) String() string {
	switch t {
	case EscortBay:
		return "bay"
	case EscortMercenary:
		return "mercenary"
	case EscortAlly:
		return "ally"
	default:
		return "null"
	}
}

// Escort ссылка на эскорт. Эскорт: самостоятельная запись реестра,
// ведущий им не владеет.
type Escort struct {
	Ship string
	Type EscortType
	ID   uint32
}

// Pilot корабль под управлением игрока, ИИ или ведущего
type Pilot struct {
	id      uint32
	Name    string
	Title   string
	Faction faction.ID
	Ship    *ship.Ship
	Solid   *physics.Solid
	System  string

	// Ресурсы
	armour, armourMax, armourRegen float64
	shield, shieldMax, shieldRegen float64
	fuel, fuelMax                  float64
	energy, energyMax, energyRegen float64
	energyTau                      float64

	// Характеристики, пересчитываемые CalcStats
	thrust, turn, turnBase, speed float64
	cpu, cpuMax                   float64
	massOutfit, massCargo         float64
	weapRange, weapSpeed          float64
	cargoMax                      int
	abThrust, abSpeed, abEnergy   float64

	life  Life
	hyp   HyperPhase
	flags Flags

	slots       []*Slot
	secondary   int
	afterburner int

	credits     int64
	commodities []Cargo
	missionSeq  uint32

	escorts []Escort
	hooks   []Hook
	target  uint32
	parent  uint32

	// ИИ
	ai       AI
	intent   Intent
	command  Command
	tasks    []Task
	taskTime float64
	tcontrol float64
	timers   [MaxAITimers]float64

	ptimer     float64 // Таймер фаз гиперпрыжка и смерти
	expTimer   float64 // Таймер мелких взрывов при гибели
	hypTarget  string
	hypElapsed float64
	refueled   float64

	commMsg    string
	commTimer  float64
	htimer     float64
	engineGlow float64

	playerDamage float64
	shots        []Shot
	params       *Params
}

// New создаёт пилота на корабле sh. Слоты берутся из конструкции корабля,
// снаряжение по умолчанию устанавливается, если не задан FlagNoOutfits.
func New(id uint32, sh *ship.Ship, name string, fac faction.ID, ai AI,
	dir float64, pos, vel vec.Vector2D, flags Flags) *Pilot {

	p := &Pilot{
		id:          id,
		Name:        name,
		Faction:     fac,
		Ship:        sh,
		Solid:       physics.NewSolid(sh.Mass, dir, pos, vel),
		flags:       flags,
		ai:          ai,
		secondary:   -1,
		afterburner: -1,
	}
	if id == PlayerID {
		p.flags |= FlagPlayer
	}

	p.slots = make([]*Slot, len(sh.Slots))
	for i, spec := range sh.Slots {
		p.slots[i] = &Slot{Type: spec.Type, Mount: spec.Mount, index: i}
	}

	p.CalcStats()
	if !flags.Has(FlagNoOutfits) {
		for i, spec := range sh.Slots {
			if spec.DefaultOutfit == nil {
				continue
			}
			if err := p.AddOutfit(i, spec.DefaultOutfit); err != nil {
				logger().Warn("пилот %d (%s): снаряжение по умолчанию %s не установлено: %v",
					id, name, spec.DefaultOutfit.Name, err)
			}
		}
	}

	p.armour = p.armourMax
	p.shield = p.shieldMax
	p.energy = p.energyMax
	p.fuel = p.fuelMax
	return p
}

func (p *Pilot) ID() uint32 { return p.id }

func (p *Pilot) Armour() float64    { return p.armour }
func (p *Pilot) ArmourMax() float64 { return p.armourMax }
func (p *Pilot) Shield() float64    { return p.shield }
func (p *Pilot) ShieldMax() float64 { return p.shieldMax }
func (p *Pilot) Fuel() float64      { return p.fuel }
func (p *Pilot) FuelMax() float64   { return p.fuelMax }
func (p *Pilot) Energy() float64    { return p.energy }
func (p *Pilot) EnergyMax() float64 { return p.energyMax }

func (p *Pilot) Thrust() float64      { return p.thrust }
func (p *Pilot) Turn() float64        { return p.turn }
func (p *Pilot) Speed() float64       { return p.speed }
func (p *Pilot) CPU() float64         { return p.cpu }
func (p *Pilot) CPUMax() float64      { return p.cpuMax }
func (p *Pilot) Mass() float64        { return p.Solid.Mass }
func (p *Pilot) WeaponRange() float64 { return p.weapRange }
func (p *Pilot) WeaponSpeed() float64 { return p.weapSpeed }

// Fractions возвращает доли брони, щита и энергии
func (p *Pilot) Fractions() (armour, shield, energy float64) {
	return frac(p.armour, p.armourMax), frac(p.shield, p.shieldMax), frac(p.energy, p.energyMax)
}

// SetHealth устанавливает броню и щит, ограничивая их максимумом
func (p *Pilot) SetHealth(armour, shield float64) {
	p.armour = clampf(armour, 0, p.armourMax)
	p.shield = clampf(shield, 0, p.shieldMax)
}

// SetFuel устанавливает топливо в пределах [0, max]
func (p *Pilot) SetFuel(fuel float64) {
	p.fuel = clampf(fuel, 0, p.fuelMax)
}

// SetEnergy устанавливает энергию в пределах [0, max]
func (p *Pilot) SetEnergy(energy float64) {
	p.energy = clampf(energy, 0, p.energyMax)
}

// Life стадия жизненного цикла
func (p *Pilot) Life() Life { return p.life }

// IsDead пилот разрушается или уже взорван
func (p *Pilot) IsDead() bool { return p.life != LifeAlive }

// HyperPhase текущая фаза гиперпрыжка
func (p *Pilot) HyperPhase() HyperPhase { return p.hyp }

// HyperTarget система назначения прыжка
func (p *Pilot) HyperTarget() string { return p.hypTarget }

// Flags атрибуты пилота
func (p *Pilot) Flags() Flags { return p.flags }

// HasFlag проверяет атрибут
func (p *Pilot) HasFlag(f Flags) bool { return p.flags&f != 0 }

// SetFlag устанавливает атрибут
func (p *Pilot) SetFlag(f Flags) { p.flags |= f }

// ClearFlag снимает атрибут
func (p *Pilot) ClearFlag(f Flags) { p.flags &^= f }

// FlagWord собирает классическое 32-битное слово состояния
func (p *Pilot) FlagWord() uint32 {
	return composeWord(p.flags, p.hyp, p.life)
}

func (p *Pilot) IsPlayer() bool   { return p.flags&FlagPlayer != 0 }
func (p *Pilot) IsDisabled() bool { return p.flags&FlagDisabled != 0 }
func (p *Pilot) IsDeleted() bool  { return p.flags&FlagDelete != 0 }

// Hidden пилот в гиперпространстве, его нельзя выбрать целью или задеть
func (p *Pilot) Hidden() bool {
	return p.hyp == HypTraveling || p.hyp == HypEnd
}

// Targetable пилота можно выбрать целью
func (p *Pilot) Targetable() bool {
	return p.life != LifeExploded && !p.IsDeleted() && !p.Hidden()
}

// MarkDelete помечает пилота к удалению в фазе очистки
func (p *Pilot) MarkDelete() { p.flags |= FlagDelete }

func (p *Pilot) Target() uint32 { return p.target }

// SetTarget задаёт цель. Существование цели проверяется при каждом обращении.
func (p *Pilot) SetTarget(id uint32) {
	if id == p.id {
		return
	}
	p.target = id
}

func (p *Pilot) Parent() uint32 { return p.parent }

func (p *Pilot) SetParent(id uint32) { p.parent = id }

// Escorts возвращает копию списка эскорта
func (p *Pilot) Escorts() []Escort {
	out := make([]Escort, len(p.escorts))
	copy(out, p.escorts)
	return out
}

// AddEscort добавляет ссылку на эскорт
func (p *Pilot) AddEscort(shipName string, t EscortType, id uint32) {
	p.escorts = append(p.escorts, Escort{Ship: shipName, Type: t, ID: id})
}

// RemoveEscort удаляет ссылку на эскорт
func (p *Pilot) RemoveEscort(id uint32) bool {
	for i, e := range p.escorts {
		if e.ID == id {
			p.escorts = append(p.escorts[:i], p.escorts[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Pilot) Intent() Intent { return p.intent }

// SetIntent задаёт намерения напрямую (управление игроком)
func (p *Pilot) SetIntent(i Intent) { p.intent = i.clamp() }

func (p *Pilot) Command() Command { return p.command }

// SetCommand записывает приказ ведущего
func (p *Pilot) SetCommand(c Command) { p.command = c }

// SetAI заменяет модуль ИИ
func (p *Pilot) SetAI(ai AI) { p.ai = ai }

// AITimers таймеры ИИ
func (p *Pilot) AITimers() [MaxAITimers]float64 { return p.timers }

// SetAITimer задаёт таймер ИИ; он убывает каждый кадр
func (p *Pilot) SetAITimer(i int, v float64) {
	if i >= 0 && i < MaxAITimers {
		p.timers[i] = v
	}
}

func (p *Pilot) PlayerDamage() float64 { return p.playerDamage }

// AddPlayerDamage увеличивает накопленную враждебность к игроку
func (p *Pilot) AddPlayerDamage(v float64) float64 {
	p.playerDamage += v
	return p.playerDamage
}

// CommMessage текст над кораблём и оставшееся время показа
func (p *Pilot) CommMessage() (string, float64) { return p.commMsg, p.commTimer }

// SetComm показывает сообщение над кораблём
func (p *Pilot) SetComm(msg string, seconds float64) {
	p.commMsg = msg
	p.commTimer = seconds
}

// EngineGlow яркость выхлопа [0, 1]
func (p *Pilot) EngineGlow() float64 { return p.engineGlow }

var defaultParams = DefaultParams()

// Params константы, с которыми работает пилот
func (p *Pilot) Params() *Params {
	if p.params == nil {
		return defaultParams
	}
	return p.params
}

// SetParams задаёт константы симуляции
func (p *Pilot) SetParams(params *Params) { p.params = params }

// StarBlur параметр размытия звёзд [0, 1] во время прыжка
func (p *Pilot) StarBlur() float64 {
	params := p.Params()
	switch p.hyp {
	case HypTraveling:
		if params.HyperStarsBlur <= 0 {
			return 1
		}
		return math.Min(1, p.hypElapsed/params.HyperStarsBlur)
	case HypEnd:
		if params.HyperFadeout <= 0 {
			return 0
		}
		return clampf(p.ptimer/params.HyperFadeout, 0, 1)
	}
	return 0
}

// SpriteFrame кадр спрайта для текущего курса
func (p *Pilot) SpriteFrame() int {
	return p.Ship.SpriteFrame(p.Solid.Dir)
}

// Radius радиус коллайдера
func (p *Pilot) Radius() float64 {
	if p.Ship.Radius > 0 {
		return p.Ship.Radius
	}
	return 10
}

// SetManualControl включает или снимает ручное управление
func (p *Pilot) SetManualControl(on bool) {
	if on {
		p.flags |= FlagManualControl
		return
	}
	p.flags &^= FlagManualControl
	p.tasks = nil
	p.taskTime = 0
}

// PushTask добавляет задачу ручного управления
func (p *Pilot) PushTask(t Task) {
	p.tasks = append(p.tasks, t)
}

// Tasks число задач в очереди
func (p *Pilot) Tasks() int { return len(p.tasks) }

// Kill начинает гибель пилота. Повторный вызов ничего не делает.
// DEATH ставится в очередь ровно один раз.
func (p *Pilot) Kill(ev *Events) bool {
	if p.life != LifeAlive {
		return false
	}
	p.life = LifeDying
	p.armour = 0
	p.hyp = HypNone
	p.hypTarget = ""
	p.flags &^= FlagAfterburner | FlagRefueling | FlagRefuelBoarding | FlagBoarding
	p.intent = Intent{}
	p.shots = nil

	p.ptimer = 1 + math.Sqrt(10*p.armourMax*p.shieldMax)/1000
	p.expTimer = 0
	if ev != nil {
		ev.QueueHook(p.id, HookDeath)
	}
	return true
}

// Disable выводит корабль из строя. DISABLE ставится в очередь один раз.
func (p *Pilot) Disable(ev *Events) bool {
	if p.flags&(FlagDisabled|FlagNoDisable) != 0 || p.life != LifeAlive {
		return false
	}
	p.flags |= FlagDisabled
	p.flags &^= FlagAfterburner
	if p.hyp == HypPrep || p.hyp == HypBegin {
		p.hyp = HypNone
		p.hypTarget = ""
	}
	p.intent = Intent{}
	if ev != nil {
		ev.QueueHook(p.id, HookDisable)
	}
	return true
}

// ApplyDamage снимает урон сначала со щита, остаток переходит на броню
// пропорционально непоглощённой доле. Возвращает поглощённый урон.
func (p *Pilot) ApplyDamage(dShield, dArmour float64) float64 {
	if dShield < 0 {
		dShield = 0
	}
	if dArmour < 0 {
		dArmour = 0
	}

	var absorbed float64
	switch {
	case p.shield-dShield > 0:
		absorbed = dShield
		p.shield -= dShield
	case p.shield > 0:
		mod := 1.0
		if dShield > 0 {
			mod = 1 - p.shield/dShield
		}
		through := math.Min(p.armour, dArmour*mod)
		absorbed = p.shield + through
		p.shield = 0
		p.armour -= through
	case p.armour > 0:
		absorbed = math.Min(p.armour, dArmour)
		p.armour -= absorbed
	}
	if p.armour < 0 {
		p.armour = 0
	}
	return absorbed
}

func frac(v, m float64) float64 {
	if m <= 0 {
		return 0
	}
	return v / m
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
