package world

import (
	"fmt"
	"sort"

	"github.com/annel0/pilotsim/internal/catalog"
)

// StarMap карта систем и прыжковых маршрутов между ними.
// Не изменяется после создания.
type StarMap struct {
	systems map[string]catalog.System
	order   []string
}

// NewStarMap строит карту из описаний каталога. Маршруты считаются двусторонними.
func NewStarMap(systems []catalog.System) (*StarMap, error) {
	m := &StarMap{systems: make(map[string]catalog.System, len(systems))}
	for _, s := range systems {
		if _, dup := m.systems[s.Name]; dup {
			return nil, fmt.Errorf("система %s описана дважды", s.Name)
		}
		s.Jumps = append([]string(nil), s.Jumps...)
		m.systems[s.Name] = s
		m.order = append(m.order, s.Name)
	}

	// Достраиваем обратные маршруты
	for _, name := range m.order {
		for _, j := range m.systems[name].Jumps {
			other, ok := m.systems[j]
			if !ok {
				return nil, fmt.Errorf("система %s: прыжок в неизвестную систему %s", name, j)
			}
			if !contains(other.Jumps, name) {
				other.Jumps = append(other.Jumps, name)
				m.systems[j] = other
			}
		}
	}
	for name, s := range m.systems {
		sort.Strings(s.Jumps)
		m.systems[name] = s
	}
	return m, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Has система есть на карте
func (m *StarMap) Has(name string) bool {
	_, ok := m.systems[name]
	return ok
}

// Adjacent системы, доступные прыжком из system, по алфавиту
func (m *StarMap) Adjacent(system string) []string {
	s, ok := m.systems[system]
	if !ok {
		return nil
	}
	return append([]string(nil), s.Jumps...)
}

// CanJump между системами есть прямой маршрут
func (m *StarMap) CanJump(from, to string) bool {
	s, ok := m.systems[from]
	return ok && contains(s.Jumps, to)
}

// System описание системы
func (m *StarMap) System(name string) (catalog.System, bool) {
	s, ok := m.systems[name]
	return s, ok
}

// Names имена систем в порядке каталога
func (m *StarMap) Names() []string {
	return append([]string(nil), m.order...)
}

// Route кратчайший по числу прыжков маршрут из from в to без начальной системы.
// Пустой результат: систем нет или маршрута нет.
func (m *StarMap) Route(from, to string) []string {
	if !m.Has(from) || !m.Has(to) || from == to {
		return nil
	}
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range m.systems[cur].Jumps {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				var route []string
				for at := to; at != from; at = prev[at] {
					route = append([]string{at}, route...)
				}
				return route
			}
			queue = append(queue, next)
		}
	}
	return nil
}
