package pilot

import "fmt"

// HookType тип события, на которое подписывается внешний обработчик
type HookType uint8

const (
	HookNone     HookType = iota
	HookDeath             // Пилот уничтожен
	HookBoard             // Пилот взят на абордаж
	HookDisable           // Пилот выведен из строя
	HookJump              // Пилот совершил прыжок
	HookHail              // Пилота вызывают на связь
	HookAttacked          // Пилот под ручным управлением атакован
	HookIdle              // Пилот под ручным управлением выполнил все задачи
)

var hookNames = [...]string{"none", "death", "board", "disable", "jump", "hail", "attacked", "idle"}

func (t HookType) String() string {
	if int(t) < len(hookNames) {
		return hookNames[t]
	}
	return fmt.Sprintf("hook(%d)", t)
}

// ParseHookType разбирает имя типа хука
func ParseHookType(s string) (HookType, error) {
	for i, name := range hookNames {
		if i > 0 && name == s {
			return HookType(i), nil
		}
	}
	return HookNone, fmt.Errorf("неизвестный тип хука: %s", s)
}

// Hook регистрация внешнего обработчика
type Hook struct {
	Type    HookType
	Handler uint32
}

// HookDispatcher вызывает внешние обработчики (скриптовую систему).
// Обработчик может быть вызван ноль и более раз.
type HookDispatcher interface {
	RunHook(handler uint32, pilotID uint32, t HookType) error
}

// HookDispatcherFunc адаптер функции к HookDispatcher
type HookDispatcherFunc func(handler uint32, pilotID uint32, t HookType) error

func (f HookDispatcherFunc) RunHook(handler uint32, pilotID uint32, t HookType) error {
	return f(handler, pilotID, t)
}

// AddHook регистрирует обработчик события
func (p *Pilot) AddHook(t HookType, handler uint32) {
	p.hooks = append(p.hooks, Hook{Type: t, Handler: handler})
}

// RmHook удаляет все регистрации обработчика. Возвращает число удалённых.
func (p *Pilot) RmHook(handler uint32) int {
	kept := p.hooks[:0]
	removed := 0
	for _, h := range p.hooks {
		if h.Handler == handler {
			removed++
			continue
		}
		kept = append(kept, h)
	}
	p.hooks = kept
	return removed
}

// HasHook проверяет, зарегистрирован ли обработчик на событие
func (p *Pilot) HasHook(t HookType, handler uint32) bool {
	for _, h := range p.hooks {
		if h.Type == t && h.Handler == handler {
			return true
		}
	}
	return false
}

// Hooks возвращает копию регистраций
func (p *Pilot) Hooks() []Hook {
	out := make([]Hook, len(p.hooks))
	copy(out, p.hooks)
	return out
}

// RunHook вызывает каждый зарегистрированный обработчик типа t ровно один раз.
// Регистрации сохраняются. Ошибки обработчиков не прерывают обход.
// Возвращает число вызванных обработчиков.
func RunHook(p *Pilot, t HookType, d HookDispatcher) int {
	if p == nil || d == nil {
		return 0
	}
	// Обработчик может снять регистрацию во время вызова,
	// поэтому каждая проверяется непосредственно перед вызовом
	hooks := p.Hooks()
	run := 0
	for _, h := range hooks {
		if h.Type != t || !p.HasHook(t, h.Handler) {
			continue
		}
		run++
		if err := safeRunHook(d, h.Handler, p.id, t); err != nil {
			logger().Warn("хук %d (%s) пилота %d завершился с ошибкой: %v", h.Handler, t, p.id, err)
		}
	}
	return run
}

func safeRunHook(d HookDispatcher, handler, pilotID uint32, t HookType) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в обработчике: %v", r)
		}
	}()
	return d.RunHook(handler, pilotID, t)
}
