package faction

import (
	"fmt"
	"sync"
)

// ID идентификатор фракции
type ID int

// Player фракция игрока
const Player ID = 0

// Faction описывает фракцию
type Faction struct {
	ID       ID       `yaml:"-"`
	Name     string   `yaml:"name"`
	Enemies  []string `yaml:"enemies"`
	Allies   []string `yaml:"allies"`
	Standing float64  `yaml:"standing"` // Отношение к игроку, [-100, 100]
}

// Table хранит фракции и их отношения.
// Чтение возможно из любых горутин, изменения: только из цикла симуляции.
type Table struct {
	mu       sync.RWMutex
	factions map[ID]*Faction
	byName   map[string]ID
	enemies  map[ID]map[ID]bool
	allies   map[ID]map[ID]bool
}

// NewTable создаёт таблицу с фракцией игрока
func NewTable() *Table {
	t := &Table{
		factions: make(map[ID]*Faction),
		byName:   make(map[string]ID),
		enemies:  make(map[ID]map[ID]bool),
		allies:   make(map[ID]map[ID]bool),
	}
	t.factions[Player] = &Faction{ID: Player, Name: "Player", Standing: 100}
	t.byName["Player"] = Player
	return t
}

// Add добавляет фракцию и возвращает её ID
func (t *Table) Add(f Faction) (ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f.Name == "" {
		return 0, fmt.Errorf("фракция без имени")
	}
	if _, exists := t.byName[f.Name]; exists {
		return 0, fmt.Errorf("фракция %s уже существует", f.Name)
	}

	f.ID = ID(len(t.factions))
	t.factions[f.ID] = &f
	t.byName[f.Name] = f.ID
	return f.ID, nil
}

// Link разрешает имена союзников и врагов после загрузки всех фракций
func (t *Table) Link() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, f := range t.factions {
		for _, name := range f.Enemies {
			other, ok := t.byName[name]
			if !ok {
				return fmt.Errorf("фракция %s: неизвестный враг %s", f.Name, name)
			}
			t.setRelation(t.enemies, id, other)
		}
		for _, name := range f.Allies {
			other, ok := t.byName[name]
			if !ok {
				return fmt.Errorf("фракция %s: неизвестный союзник %s", f.Name, name)
			}
			t.setRelation(t.allies, id, other)
		}
	}
	return nil
}

func (t *Table) setRelation(rel map[ID]map[ID]bool, a, b ID) {
	if rel[a] == nil {
		rel[a] = make(map[ID]bool)
	}
	if rel[b] == nil {
		rel[b] = make(map[ID]bool)
	}
	rel[a][b] = true
	rel[b][a] = true
}

// Lookup возвращает ID фракции по имени
func (t *Table) Lookup(name string) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byName[name]
	return id, ok
}

// Name возвращает имя фракции
func (t *Table) Name(id ID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if f, ok := t.factions[id]; ok {
		return f.Name
	}
	return "Unknown"
}

// AreEnemies проверяет враждебность двух фракций.
// Для фракции игрока учитывается репутация.
func (t *Table) AreEnemies(a, b ID) bool {
	if a == b {
		return false
	}
	if a == Player {
		return t.IsPlayerEnemy(b)
	}
	if b == Player {
		return t.IsPlayerEnemy(a)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enemies[a][b]
}

// AreAllies проверяет союзность двух фракций
func (t *Table) AreAllies(a, b ID) bool {
	if a == b {
		return true
	}
	if a == Player {
		return t.IsPlayerFriend(b)
	}
	if b == Player {
		return t.IsPlayerFriend(a)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allies[a][b]
}

// IsPlayerEnemy фракция враждебна игроку
func (t *Table) IsPlayerEnemy(id ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.factions[id]
	return ok && id != Player && f.Standing < 0
}

// IsPlayerFriend фракция дружественна игроку
func (t *Table) IsPlayerFriend(id ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.factions[id]
	return ok && (id == Player || f.Standing >= 70)
}

// ModPlayer изменяет отношение фракции к игроку и ограничивает его диапазоном [-100, 100]
func (t *Table) ModPlayer(id ID, delta float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.factions[id]
	if !ok || id == Player {
		return
	}
	f.Standing += delta
	if f.Standing > 100 {
		f.Standing = 100
	} else if f.Standing < -100 {
		f.Standing = -100
	}
}

// Standing возвращает отношение фракции к игроку
func (t *Table) Standing(id ID) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if f, ok := t.factions[id]; ok {
		return f.Standing
	}
	return 0
}
