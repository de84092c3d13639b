// Package world содержит цикл симуляции: единственную горутину,
// которая изменяет пилотов, и очередь внешних команд к ней.
package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/pilotsim/internal/ai"
	"github.com/annel0/pilotsim/internal/catalog"
	"github.com/annel0/pilotsim/internal/combat"
	"github.com/annel0/pilotsim/internal/config"
	"github.com/annel0/pilotsim/internal/escort"
	"github.com/annel0/pilotsim/internal/eventbus"
	"github.com/annel0/pilotsim/internal/faction"
	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/metrics"
	"github.com/annel0/pilotsim/internal/observability"
	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/player"
	"github.com/annel0/pilotsim/internal/snapshot"
	"github.com/annel0/pilotsim/internal/storage"
	"github.com/annel0/pilotsim/internal/vec"
	"github.com/annel0/pilotsim/internal/weapons"
)

const (
	commandQueueSize = 256
	outboxSize       = 1024
	publishTimeout   = 2 * time.Second
	escortSpread     = 3.0 // Отступ эскорта от игрока после прыжка, в радиусах игрока
)

var (
	// ErrBusy очередь команд переполнена
	ErrBusy = errors.New("очередь команд мира переполнена")
	// ErrUnknownShip корабля нет в каталоге
	ErrUnknownShip = errors.New("неизвестный корабль")
	// ErrUnknownFaction фракции нет в каталоге
	ErrUnknownFaction = errors.New("неизвестная фракция")
	// ErrNoPilot пилот не найден
	ErrNoPilot = errors.New("пилот не найден")
	// ErrInvalidArgument неверный параметр внешней команды
	ErrInvalidArgument = errors.New("неверный параметр")
)

// FrameMetrics метрики цикла. *metrics.Sim удовлетворяет интерфейсу.
type FrameMetrics interface {
	Frame(d time.Duration, pilots, projectiles int)
	FrameSkipped()
	Command(err error)
}

type nopFrameMetrics struct{}

func (nopFrameMetrics) Frame(time.Duration, int, int) {}
func (nopFrameMetrics) FrameSkipped()                 {}
func (nopFrameMetrics) Command(error)                 {}

// Options зависимости мира. Обязательны только Config и Catalog.
type Options struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Hooks   pilot.HookDispatcher // По умолчанию хуки только пишутся в лог
	Bus     eventbus.EventBus
	Metrics *metrics.Sim
	Saver   *storage.Saver
}

type command struct {
	fn   func(w *World) error
	done chan error
}

// World владеет реестром пилотов и выполняет кадры.
// Все методы, кроме Submit, Enqueue, Latest и Run, вызываются из цикла
// симуляции: внутри команд Submit или до запуска Run.
type World struct {
	cfg     config.SimConfig
	catalog *catalog.Catalog
	stars   *StarMap

	reg      *pilot.Registry
	weapons  *weapons.System
	resolver *combat.Resolver
	ai       *ai.Wander
	hooks    pilot.HookDispatcher

	session    *player.Session
	controller *player.Controller

	system  string
	frame   uint64
	simTime float64

	commands chan command
	outbox   chan *eventbus.Envelope
	dropped  atomic.Uint64
	latest   atomic.Pointer[snapshot.Frame]

	bus     eventbus.EventBus
	metrics FrameMetrics
	saver   *storage.Saver
	tracer  trace.Tracer
	logger  *logging.Logger
}

// New создаёт мир в стартовой системе из конфигурации
func New(opts Options) (*World, error) {
	if opts.Config == nil || opts.Catalog == nil {
		return nil, fmt.Errorf("мир: не заданы конфигурация или каталог")
	}
	cfg := opts.Config

	stars, err := NewStarMap(opts.Catalog.Systems())
	if err != nil {
		return nil, err
	}
	system := cfg.Sim.StartSystem
	if system == "" {
		if names := stars.Names(); len(names) > 0 {
			system = names[0]
		}
	}
	if system != "" && !stars.Has(system) {
		return nil, fmt.Errorf("стартовая система %q отсутствует на карте", system)
	}

	var pm pilot.Metrics
	w := &World{
		cfg:      cfg.Sim,
		catalog:  opts.Catalog,
		stars:    stars,
		ai:       ai.NewWander(cfg.Sim.Seed),
		hooks:    opts.Hooks,
		system:   system,
		commands: make(chan command, commandQueueSize),
		outbox:   make(chan *eventbus.Envelope, outboxSize),
		bus:      opts.Bus,
		metrics:  nopFrameMetrics{},
		saver:    opts.Saver,
		tracer:   observability.Tracer(),
		logger:   logging.GetWorldLogger(),
	}
	if opts.Metrics != nil {
		w.metrics = opts.Metrics
		pm = opts.Metrics
	}
	if w.hooks == nil {
		w.hooks = pilot.HookDispatcherFunc(w.logHook)
	}

	w.reg = pilot.NewRegistry(pilot.NewParams(cfg), opts.Catalog.Factions, pm)
	w.reg.OnArrive = w.arrived
	w.weapons = weapons.New(w.reg)
	w.resolver = combat.NewResolver(w.reg)

	w.logger.Info("🌌 Мир создан: система %s, %d систем на карте", system, len(stars.Names()))
	return w, nil
}

// Registry реестр пилотов
func (w *World) Registry() *pilot.Registry { return w.reg }

// StarMap карта прыжков
func (w *World) StarMap() *StarMap { return w.stars }

// Catalog справочник кораблей и снаряжения
func (w *World) Catalog() *catalog.Catalog { return w.catalog }

// System текущая система игрока
func (w *World) System() string { return w.system }

// Frame номер последнего кадра
func (w *World) Frame() uint64 { return w.frame }

// Session текущая сессия игрока, nil до StartPlayer
func (w *World) Session() *player.Session { return w.session }

// Latest последний опубликованный снимок, nil до первого кадра
func (w *World) Latest() *snapshot.Frame { return w.latest.Load() }

// Dropped число событий, не попавших в шину из-за переполнения очереди
func (w *World) Dropped() uint64 { return w.dropped.Load() }

// Enqueue ставит команду в очередь без ожидания. Результат придёт в канал
// после применения команды в начале ближайшего кадра.
func (w *World) Enqueue(fn func(w *World) error) (<-chan error, error) {
	done := make(chan error, 1)
	select {
	case w.commands <- command{fn: fn, done: done}:
		return done, nil
	default:
		return nil, ErrBusy
	}
}

// Submit ставит команду в очередь и ждёт её выполнения
func (w *World) Submit(ctx context.Context, fn func(w *World) error) error {
	done, err := w.Enqueue(fn)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *World) applyCommands() {
	for {
		select {
		case c := <-w.commands:
			err := w.runCommand(c.fn)
			w.metrics.Command(err)
			c.done <- err
		default:
			return
		}
	}
}

func (w *World) runCommand(fn func(w *World) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("паника в команде мира: %v", r)
			err = fmt.Errorf("паника в команде: %v", r)
		}
	}()
	return fn(w)
}

// Run выполняет кадры с частотой из конфигурации до отмены ctx
func (w *World) Run(ctx context.Context) error {
	if w.bus != nil {
		go w.publishLoop(ctx)
	}

	period := w.cfg.FrameDuration()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	w.logger.Info("🚀 Цикл симуляции запущен: кадр %v", period)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("🛑 Цикл симуляции остановлен на кадре %d", w.frame)
			return nil
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now
			w.Step(ctx, elapsed)
		}
	}
}

// Step выполняет один кадр длительностью elapsed секунд.
// Длинный кадр делится на шаги не больше MaxStep, кадр длиннее
// SkipThreshold пропускается целиком.
func (w *World) Step(ctx context.Context, elapsed float64) {
	w.applyCommands()

	if w.cfg.SkipThreshold > 0 && elapsed > w.cfg.SkipThreshold {
		w.metrics.FrameSkipped()
		w.logger.Debug("кадр пропущен: %.3f с", elapsed)
		return
	}
	if elapsed <= 0 {
		return
	}

	start := time.Now()
	w.frame++
	_, span := w.tracer.Start(ctx, "world.Step", trace.WithAttributes(
		attribute.Int64("sim.frame", int64(w.frame)),
		attribute.Float64("sim.elapsed", elapsed),
	))
	defer span.End()

	w.reg.Events().BeginFrame(w.frame)

	maxStep := w.cfg.MaxStep
	if maxStep <= 0 {
		maxStep = elapsed
	}
	for elapsed > maxStep {
		w.tick(maxStep)
		elapsed -= maxStep
	}
	if elapsed > 0 {
		w.tick(elapsed)
	}

	f := snapshot.Build(w.frame, w.simTime, w.system, w.reg, w.weapons, w.reg.Events().TakeEffects())
	w.latest.Store(f)
	if w.saver != nil {
		w.saver.Offer(f)
	}

	span.SetAttributes(
		attribute.Int("sim.pilots", w.reg.Len()),
		attribute.Int("sim.projectiles", w.weapons.Len()),
	)
	w.metrics.Frame(time.Since(start), w.reg.Len(), w.weapons.Len())
}

// tick один шаг интегрирования: изменения, бой, хуки, удаление
func (w *World) tick(dt float64) {
	if w.session != nil && w.session.Active() {
		w.session.Think()
	}
	w.reg.Update(dt)
	w.dockReturning()

	w.weapons.Fire(w.reg.TakeShots())
	w.weapons.Update(dt)
	w.resolver.Resolve()

	for _, ev := range w.reg.DispatchHooks(w.hooks) {
		w.publishHook(ev)
	}

	for _, id := range w.reg.Reap() {
		w.ai.Forget(id)
		w.reaped(id)
	}
	w.simTime += dt
}

// dockReturning принимает в ангары истребители, вернувшиеся к носителю
func (w *World) dockReturning() {
	for _, p := range w.reg.All() {
		if !p.HasFlag(pilot.FlagCarried) || p.IsDead() || p.IsDeleted() {
			continue
		}
		if p.Command().Kind != pilot.CmdReturn {
			continue
		}
		if err := escort.Dock(w.reg, p); err == nil {
			w.logger.Debug("истребитель %d вернулся в ангар %d", p.ID(), p.Parent())
		}
	}
}

func (w *World) reaped(id uint32) {
	isPlayer := w.session != nil && w.session.ID() == id
	w.emit(eventbus.TypeDeath, eventbus.PriorityCritical, eventbus.DeathPayload{
		Frame:  w.frame,
		Pilot:  id,
		Player: isPlayer,
	})
	if isPlayer && w.session.Active() {
		w.session.End()
		w.weapons.Clear()
		w.logger.Warn("💀 Пилот игрока %d удалён, сессия завершена", id)
	}
}

// arrived вызывается реестром, когда пилот вышел из гиперпространства
func (w *World) arrived(p *pilot.Pilot, from string) {
	w.emit(eventbus.TypeJump, eventbus.PriorityNormal, eventbus.JumpPayload{
		Frame: w.frame,
		Pilot: p.ID(),
		From:  from,
		To:    p.System,
	})

	if !p.IsPlayer() {
		// Пилот покинул систему игрока
		if p.System != w.system {
			p.MarkDelete()
		}
		return
	}

	w.system = p.System
	if w.session != nil {
		w.session.ClearHyperTarget()
	}
	w.weapons.Clear()

	// Живые эскорты прыгают вместе с игроком, остальные остаются в старой системе
	following := 0
	for _, q := range w.reg.All() {
		if q == p {
			continue
		}
		if q.Parent() == p.ID() && !q.IsDead() && !q.IsDeleted() {
			following++
			q.System = p.System
			q.Solid.Pos = p.Solid.Pos.Add(vec.NewPolar(p.Radius()*escortSpread,
				p.Solid.Dir+math.Pi+float64(following)*0.5))
			q.Solid.Vel = p.Solid.Vel
			continue
		}
		q.MarkDelete()
	}
	w.logger.Info("🌠 Игрок прибыл в %s из %s, эскортов: %d", p.System, from, following)
}

// StartPlayer создаёт пилота игрока и начинает сессию
func (w *World) StartPlayer(shipName, name string, pos vec.Vector2D) (*pilot.Pilot, error) {
	if w.session != nil && w.session.Active() {
		return nil, fmt.Errorf("сессия игрока уже активна")
	}
	sh, ok := w.catalog.Ship(shipName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", shipName, ErrUnknownShip)
	}

	p, err := w.reg.Create(sh, name, faction.Player, nil, math.Pi/2, pos, vec.Zero(), pilot.FlagPlayer)
	if err != nil {
		return nil, err
	}
	p.System = w.system
	if _, err := w.catalog.Rearm(p); err != nil {
		w.logger.Warn("пилот игрока %d: не удалось пополнить боезапас: %v", p.ID(), err)
	}

	s, err := player.Start(w.reg, p)
	if err != nil {
		p.MarkDelete()
		return nil, err
	}
	w.session = s
	w.controller = player.NewController(s, w.stars)
	return p, nil
}

// PlayerCommand выполняет именованную команду ввода игрока
func (w *World) PlayerCommand(name string, value float64) error {
	if w.controller == nil {
		return player.ErrNoSession
	}
	return w.controller.Dispatch(name, value)
}

// Spawn создаёт пилота ИИ в текущей системе
func (w *World) Spawn(shipName, name, factionName string, pos vec.Vector2D, dir float64) (*pilot.Pilot, error) {
	sh, ok := w.catalog.Ship(shipName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", shipName, ErrUnknownShip)
	}
	fac, ok := w.reg.Factions().Lookup(factionName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", factionName, ErrUnknownFaction)
	}
	if name == "" {
		name = sh.Name
	}

	p, err := w.reg.Create(sh, name, fac, w.ai, dir, pos, vec.Zero(), 0)
	if err != nil {
		return nil, err
	}
	p.System = w.system
	if _, err := w.catalog.Rearm(p); err != nil {
		w.logger.Warn("пилот %d: не удалось пополнить боезапас: %v", p.ID(), err)
	}
	w.logger.Debug("создан пилот %d (%s, %s) в %s", p.ID(), name, factionName, w.system)
	return p, nil
}

// SpawnEscort создаёт наёмный эскорт для пилота leaderID
func (w *World) SpawnEscort(leaderID uint32, shipName string) (*pilot.Pilot, error) {
	leader, ok := w.reg.Get(leaderID)
	if !ok || leader.IsDead() {
		return nil, fmt.Errorf("ведущий %d: %w", leaderID, ErrNoPilot)
	}
	sh, ok := w.catalog.Ship(shipName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", shipName, ErrUnknownShip)
	}
	p, err := escort.Create(w.reg, leader, sh, pilot.EscortMercenary, w.ai)
	if err != nil {
		return nil, err
	}
	if _, err := w.catalog.Rearm(p); err != nil {
		w.logger.Warn("эскорт %d: не удалось пополнить боезапас: %v", p.ID(), err)
	}
	return p, nil
}

// Deploy выпускает истребитель из ангара пилота
func (w *World) Deploy(leaderID uint32, slot int) (*pilot.Pilot, error) {
	leader, ok := w.reg.Get(leaderID)
	if !ok || leader.IsDead() {
		return nil, fmt.Errorf("пилот %d: %w", leaderID, ErrNoPilot)
	}
	return escort.Deploy(w.reg, leader, slot, w.catalog, w.ai)
}

// Jump отправляет пилота в соседнюю систему
func (w *World) Jump(id uint32, target string) error {
	p, ok := w.reg.Get(id)
	if !ok {
		return fmt.Errorf("пилот %d: %w", id, ErrNoPilot)
	}
	if !w.stars.CanJump(p.System, target) {
		return fmt.Errorf("нет прыжка %s -> %s: %w", p.System, target, pilot.ErrNoHyperTarget)
	}
	return p.Hyperspace(target)
}

// Damage наносит пилоту урон от среды и возвращает поглощённую величину
func (w *World) Damage(id uint32, dtype string, amount float64) (float64, error) {
	p, ok := w.reg.Get(id)
	if !ok {
		return 0, fmt.Errorf("пилот %d: %w", id, ErrNoPilot)
	}
	t, err := outfit.ParseDamageType(dtype)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: урон должен быть положительным", ErrInvalidArgument)
	}
	return w.resolver.Hit(p, nil, 0, t, amount), nil
}

// AddHook регистрирует обработчик события пилота
func (w *World) AddHook(id uint32, hookType string, handler uint32) error {
	p, ok := w.reg.Get(id)
	if !ok {
		return fmt.Errorf("пилот %d: %w", id, ErrNoPilot)
	}
	t, err := pilot.ParseHookType(hookType)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	p.AddHook(t, handler)
	return nil
}

// RmHook снимает обработчик со всех пилотов
func (w *World) RmHook(handler uint32) int {
	return w.reg.RmHook(handler)
}

func (w *World) logHook(handler, pilotID uint32, t pilot.HookType) error {
	w.logger.Info("🪝 хук %s: обработчик %d, пилот %d", t, handler, pilotID)
	return nil
}

func (w *World) publishHook(ev pilot.HookEvent) {
	name := ""
	if p, ok := w.reg.Get(ev.Pilot); ok {
		name = p.Name
	}
	priority := eventbus.PriorityNormal
	if ev.Type == pilot.HookDeath {
		priority = eventbus.PriorityCritical
	}
	w.emit(eventbus.TypeHook, priority, eventbus.HookPayload{
		Frame:  ev.Frame,
		Pilot:  ev.Pilot,
		Name:   name,
		Hook:   ev.Type.String(),
		System: w.system,
	})
}

// emit кладёт событие в очередь публикации. Цикл симуляции не ждёт шину:
// при переполнении очереди событие отбрасывается.
func (w *World) emit(eventType string, priority int, payload interface{}) {
	if w.bus == nil {
		return
	}
	env, err := eventbus.NewEnvelope(eventType, priority, payload)
	if err != nil {
		w.logger.Error("не удалось упаковать событие %s: %v", eventType, err)
		return
	}
	select {
	case w.outbox <- env:
	default:
		if w.dropped.Add(1)%100 == 1 {
			w.logger.Warn("очередь событий переполнена, отброшено %d", w.dropped.Load())
		}
	}
}

// publishLoop отправляет события в шину вне цикла симуляции
func (w *World) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-w.outbox:
			w.publish(ctx, env)
		}
	}
}

// FlushEvents синхронно отправляет накопленные события
func (w *World) FlushEvents(ctx context.Context) {
	for {
		select {
		case env := <-w.outbox:
			w.publish(ctx, env)
		default:
			return
		}
	}
}

func (w *World) publish(ctx context.Context, env *eventbus.Envelope) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := w.bus.Publish(pctx, env); err != nil {
		w.logger.Warn("не удалось опубликовать событие %s: %v", env.EventType, err)
	}
}
