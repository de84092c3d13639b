package pilot

import (
	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/physics"
	"github.com/annel0/pilotsim/internal/vec"
)

// HookEvent событие пилота, ожидающее вызова обработчиков
type HookEvent struct {
	Pilot uint32
	Type  HookType
	Frame uint64
}

// ExplosionEvent взрыв с уроном по площади
type ExplosionEvent struct {
	Pos     vec.Vector2D
	Radius  float64
	Type    outfit.DamageType
	Damage  float64
	Exclude uint32 // Пилот, не получающий урона
	Source  uint32
}

// EffectKind визуальный эффект для отрисовки
type EffectKind uint8

const (
	EffectExplosionSmall EffectKind = iota + 1
	EffectExplosionLarge
	EffectHyperspace
	EffectHit
)

// Effect визуальный эффект без влияния на симуляцию
type Effect struct {
	Kind EffectKind   `json:"kind"`
	Pos  vec.Vector2D `json:"pos"`
}

// Impact попадание снаряда или луча, найденное системой вооружения
type Impact struct {
	Target   uint32
	Shooter  uint32
	Impactor *physics.Solid // Для отдачи, может быть nil
	Type     outfit.DamageType
	Damage   float64
	Pos      vec.Vector2D
}

// Events очередь событий кадра. Заполняется в фазе изменений,
// опустошается миром в фиксированном порядке до удаления пилотов.
type Events struct {
	Hooks      []HookEvent
	Explosions []ExplosionEvent
	Impacts    []Impact
	Effects    []Effect

	frame uint64
}

// QueueHook ставит событие хука в очередь
func (e *Events) QueueHook(id uint32, t HookType) {
	e.Hooks = append(e.Hooks, HookEvent{Pilot: id, Type: t, Frame: e.frame})
}

// QueueExplosion ставит взрыв в очередь
func (e *Events) QueueExplosion(ev ExplosionEvent) {
	e.Explosions = append(e.Explosions, ev)
}

// QueueImpact ставит попадание в очередь
func (e *Events) QueueImpact(im Impact) {
	e.Impacts = append(e.Impacts, im)
}

// AddEffect добавляет визуальный эффект кадра
func (e *Events) AddEffect(kind EffectKind, pos vec.Vector2D) {
	e.Effects = append(e.Effects, Effect{Kind: kind, Pos: pos})
}

// TakeHooks забирает накопленные события хуков
func (e *Events) TakeHooks() []HookEvent {
	out := e.Hooks
	e.Hooks = nil
	return out
}

// TakeExplosions забирает накопленные взрывы
func (e *Events) TakeExplosions() []ExplosionEvent {
	out := e.Explosions
	e.Explosions = nil
	return out
}

// TakeImpacts забирает накопленные попадания
func (e *Events) TakeImpacts() []Impact {
	out := e.Impacts
	e.Impacts = nil
	return out
}

// TakeEffects забирает эффекты кадра
func (e *Events) TakeEffects() []Effect {
	out := e.Effects
	e.Effects = nil
	return out
}

// BeginFrame отмечает номер текущего кадра
func (e *Events) BeginFrame(frame uint64) {
	e.frame = frame
}

// Frame номер текущего кадра
func (e *Events) Frame() uint64 { return e.frame }
