package pilot

import (
	"fmt"
	"math"
	"sort"

	"github.com/annel0/pilotsim/internal/faction"
	"github.com/annel0/pilotsim/internal/ship"
	"github.com/annel0/pilotsim/internal/vec"
)

// maxHookRounds ограничивает цепочки хуков, порождающих новые события
const maxHookRounds = 8

// Registry живые пилоты. Используется только из цикла симуляции.
// Удаление отложенное: пилоты с FlagDelete убираются в Reap.
type Registry struct {
	pilots   map[uint32]*Pilot
	order    []*Pilot
	nextID   uint32
	params   *Params
	events   *Events
	metrics  Metrics
	factions *faction.Table

	// OnArrive вызывается после выхода пилота из гиперпространства
	OnArrive func(p *Pilot, from string)
}

// NewRegistry создаёт пустой реестр
func NewRegistry(params *Params, factions *faction.Table, metrics Metrics) *Registry {
	if params == nil {
		params = DefaultParams()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if factions == nil {
		factions = faction.NewTable()
	}
	return &Registry{
		pilots:   make(map[uint32]*Pilot),
		nextID:   PlayerID,
		params:   params,
		events:   &Events{},
		metrics:  metrics,
		factions: factions,
	}
}

func (r *Registry) Params() *Params          { return r.params }
func (r *Registry) Events() *Events          { return r.events }
func (r *Registry) Metrics() Metrics         { return r.metrics }
func (r *Registry) Factions() *faction.Table { return r.factions }

// Create создаёт пилота и добавляет его в реестр.
// С FlagPlayer пилот получает PlayerID, остальные: следующий свободный ID.
func (r *Registry) Create(sh *ship.Ship, name string, fac faction.ID, ai AI,
	dir float64, pos, vel vec.Vector2D, flags Flags) (*Pilot, error) {

	var id uint32
	if flags.Has(FlagPlayer) {
		if _, exists := r.pilots[PlayerID]; exists {
			return nil, fmt.Errorf("пилот игрока уже существует")
		}
		id = PlayerID
	} else {
		r.nextID++
		id = r.nextID
	}

	p := New(id, sh, name, fac, ai, dir, pos, vel, flags)
	if err := r.Insert(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Insert добавляет готового пилота. ID не должен повторяться.
func (r *Registry) Insert(p *Pilot) error {
	if p.id == 0 {
		return fmt.Errorf("пилот без ID")
	}
	if _, exists := r.pilots[p.id]; exists {
		return fmt.Errorf("пилот %d уже существует", p.id)
	}
	if p.id > r.nextID {
		r.nextID = p.id
	}
	p.params = r.params
	r.pilots[p.id] = p
	r.order = append(r.order, p)
	logger().Debug("пилот %d (%s) добавлен", p.id, p.Name)
	return nil
}

// Get возвращает пилота по ID. Пилоты, ожидающие удаления, доступны до Reap.
func (r *Registry) Get(id uint32) (*Pilot, bool) {
	if id == 0 {
		return nil, false
	}
	p, ok := r.pilots[id]
	return p, ok
}

// Player возвращает пилота игрока
func (r *Registry) Player() (*Pilot, bool) {
	return r.Get(PlayerID)
}

// All возвращает пилотов в порядке добавления
func (r *Registry) All() []*Pilot {
	out := make([]*Pilot, len(r.order))
	copy(out, r.order)
	return out
}

// Len число пилотов
func (r *Registry) Len() int { return len(r.order) }

// Update обновляет всех пилотов. Паника одного пилота не прерывает обход.
func (r *Registry) Update(dt float64) {
	// Пилоты, созданные во время обхода, обновятся в следующем кадре
	n := len(r.order)
	for i := 0; i < n; i++ {
		r.safeUpdate(r.order[i], dt)
	}
}

func (r *Registry) safeUpdate(p *Pilot, dt float64) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.InvariantViolation("panic")
			logger().Error("паника при обновлении пилота %d (%s): %v", p.id, p.Name, rec)
		}
	}()
	p.Update(dt, r)
}

// TakeShots собирает выстрелы всех пилотов
func (r *Registry) TakeShots() []Shot {
	var out []Shot
	for _, p := range r.order {
		out = append(out, p.TakeShots()...)
	}
	return out
}

// Arrived передаёт выход из гиперпространства миру
func (r *Registry) Arrived(p *Pilot, from string) {
	if r.OnArrive != nil {
		r.OnArrive(p, from)
	}
}

// RmHook снимает обработчик со всех пилотов
func (r *Registry) RmHook(handler uint32) int {
	removed := 0
	for _, p := range r.order {
		removed += p.RmHook(handler)
	}
	return removed
}

// DispatchHooks вызывает обработчики для событий очереди. Регистрации
// проверяются в момент вызова, поэтому снятый до этого хук не сработает.
// События, добавленные обработчиками, разбираются в том же вызове.
func (r *Registry) DispatchHooks(d HookDispatcher) []HookEvent {
	var drained []HookEvent
	for round := 0; round < maxHookRounds; round++ {
		batch := r.events.TakeHooks()
		if len(batch) == 0 {
			return drained
		}
		for _, ev := range batch {
			p, ok := r.Get(ev.Pilot)
			if !ok {
				continue
			}
			n := RunHook(p, ev.Type, d)
			for i := 0; i < n; i++ {
				r.metrics.HookFired(ev.Type)
			}
		}
		drained = append(drained, batch...)
	}
	if rest := r.events.TakeHooks(); len(rest) > 0 {
		logger().Warn("слишком длинная цепочка хуков, отброшено %d событий", len(rest))
	}
	return drained
}

// Reap удаляет пилотов, помеченных к удалению. Возвращает их ID.
func (r *Registry) Reap() []uint32 {
	var removed []uint32
	kept := r.order[:0]
	for _, p := range r.order {
		if p.IsDeleted() {
			removed = append(removed, p.id)
			delete(r.pilots, p.id)
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(r.order); i++ {
		r.order[i] = nil
	}
	r.order = kept
	if len(removed) > 0 {
		logger().Debug("удалены пилоты %v", removed)
	}
	return removed
}

// IsHostile пилот враждебен игроку
func (r *Registry) IsHostile(p *Pilot) bool {
	if p.IsPlayer() {
		return false
	}
	if p.HasFlag(FlagFriendly) {
		return false
	}
	return p.HasFlag(FlagHostile) || r.factions.IsPlayerEnemy(p.Faction)
}

// AreEnemies пилоты воюют друг с другом
func (r *Registry) AreEnemies(a, b *Pilot) bool {
	if a == b {
		return false
	}
	if a.IsPlayer() || a.parent == PlayerID {
		return r.IsHostile(b)
	}
	if b.IsPlayer() || b.parent == PlayerID {
		return r.IsHostile(a)
	}
	return r.factions.AreEnemies(a.Faction, b.Faction)
}

// Nearest возвращает ближайшего к p пилота, удовлетворяющего pred
func (r *Registry) Nearest(p *Pilot, pred func(q *Pilot) bool) (*Pilot, bool) {
	var best *Pilot
	bestD := math.Inf(1)
	for _, q := range r.order {
		if q == p || !q.Targetable() || q.IsDead() {
			continue
		}
		if pred != nil && !pred(q) {
			continue
		}
		if d := p.Solid.Pos.Dist2(q.Solid.Pos); d < bestD {
			best, bestD = q, d
		}
	}
	return best, best != nil
}

// NearestEnemy ближайший враг пилота
func (r *Registry) NearestEnemy(p *Pilot) (uint32, bool) {
	q, ok := r.Nearest(p, func(q *Pilot) bool { return r.AreEnemies(p, q) })
	if !ok {
		return 0, false
	}
	return q.id, true
}

// NearestHostile ближайший враждебный игроку пилот
func (r *Registry) NearestHostile() (uint32, bool) {
	player, ok := r.Player()
	if !ok {
		return 0, false
	}
	q, ok := r.Nearest(player, r.IsHostile)
	if !ok {
		return 0, false
	}
	return q.id, true
}

// NearestPilot ближайший пилот
func (r *Registry) NearestPilot(p *Pilot) (uint32, bool) {
	q, ok := r.Nearest(p, nil)
	if !ok {
		return 0, false
	}
	return q.id, true
}

// InRadius пилоты в радиусе от точки, включая уничтожаемых
func (r *Registry) InRadius(center vec.Vector2D, radius float64) []*Pilot {
	var out []*Pilot
	r2 := radius * radius
	for _, q := range r.order {
		if q.Hidden() || q.IsDeleted() {
			continue
		}
		if q.Solid.Pos.Dist2(center) <= r2 {
			out = append(out, q)
		}
	}
	return out
}

// NextID следующий после id пилот для выбора цели, по кругу.
// hostileOnly оставляет только враждебных игроку. 0: подходящих нет.
func (r *Registry) NextID(id uint32, hostileOnly bool) uint32 {
	return r.cycleID(id, hostileOnly, 1)
}

// PrevID предыдущий перед id пилот для выбора цели
func (r *Registry) PrevID(id uint32, hostileOnly bool) uint32 {
	return r.cycleID(id, hostileOnly, -1)
}

func (r *Registry) cycleID(id uint32, hostileOnly bool, dir int) uint32 {
	var ids []uint32
	for _, q := range r.order {
		if q.IsPlayer() || !q.Targetable() || q.IsDead() {
			continue
		}
		if hostileOnly && !r.IsHostile(q) {
			continue
		}
		ids = append(ids, q.id)
	}
	if len(ids) == 0 {
		return 0
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if dir > 0 {
		for _, c := range ids {
			if c > id {
				return c
			}
		}
		return ids[0]
	}
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] < id {
			return ids[i]
		}
	}
	return ids[len(ids)-1]
}

// View строит данные для ИИ пилота
func (r *Registry) View(p *Pilot) View {
	a, s, e := p.Fractions()
	v := View{
		ID:          p.id,
		Pos:         p.Solid.Pos,
		Vel:         p.Solid.Vel,
		Dir:         p.Solid.Dir,
		MaxSpeed:    p.speed,
		Turn:        p.turn,
		Armour:      a,
		Shield:      s,
		Energy:      e,
		WeaponRange: p.weapRange,
		Timers:      p.timers,
		Command:     p.command,
	}
	if t, ok := r.Get(p.target); ok && t.Targetable() && !t.IsDead() {
		v.Target = contactOf(t)
		v.TargetValid = true
	}
	if p.command.Kind == CmdAttack {
		t, ok := r.Get(p.command.Target)
		v.CommandTargetValid = ok && t != p && t.Targetable() && !t.IsDead()
	}
	if id, ok := r.NearestEnemy(p); ok {
		q, _ := r.Get(id)
		v.NearestEnemy = contactOf(q)
		v.HasEnemy = true
	}
	if id, ok := r.NearestPilot(p); ok {
		q, _ := r.Get(id)
		v.Nearest = contactOf(q)
		v.HasNearest = true
	}
	if l, ok := r.Get(p.parent); ok && l.Targetable() {
		v.Leader = contactOf(l)
		v.HasLeader = true
	}
	return v
}

func contactOf(q *Pilot) Contact {
	return Contact{ID: q.id, Pos: q.Solid.Pos, Vel: q.Solid.Vel}
}
