package physics

import (
	"math"

	"github.com/annel0/pilotsim/internal/vec"
)

// Solid представляет физическое тело пилота.
// Сила задаётся скаляром и всегда действует вдоль текущего курса.
type Solid struct {
	Mass   float64      // Масса (т)
	Dir    float64      // Курс в радианах, [0, 2π)
	DirVel float64      // Угловая скорость (рад/с)
	Vel    vec.Vector2D // Скорость
	Pos    vec.Vector2D // Позиция
	Force  float64      // Накопленная сила вдоль курса, сбрасывается каждый тик
}

// NewSolid создаёт тело с начальными параметрами
func NewSolid(mass, dir float64, pos, vel vec.Vector2D) *Solid {
	if mass <= 0 {
		mass = 1
	}
	return &Solid{
		Mass: mass,
		Dir:  normalizeDir(dir),
		Pos:  pos,
		Vel:  vel,
	}
}

// Update интегрирует тело на шаг dt явным методом Эйлера:
// сила -> скорость, угловая скорость -> курс, скорость -> позиция.
func (s *Solid) Update(dt float64) {
	if dt <= 0 {
		return
	}

	if s.Force != 0 && s.Mass > 0 {
		accel := s.Force / s.Mass
		s.Vel = s.Vel.AddXY(accel*math.Cos(s.Dir)*dt, accel*math.Sin(s.Dir)*dt)
	}

	if s.DirVel != 0 {
		s.Dir = normalizeDir(s.Dir + s.DirVel*dt)
	}

	s.Pos = s.Pos.AddXY(s.Vel.X()*dt, s.Vel.Y()*dt)

	// Аккумулятор силы живёт один тик
	s.Force = 0
}

// ApplyImpulse добавляет к скорости импульс, делённый на массу
func (s *Solid) ApplyImpulse(impulse vec.Vector2D) {
	if s.Mass <= 0 {
		return
	}
	s.Vel = s.Vel.Add(impulse.Scale(1 / s.Mass))
}

// Heading возвращает единичный вектор курса
func (s *Solid) Heading() vec.Vector2D {
	return vec.NewPolar(1, s.Dir)
}

// Momentum возвращает импульс тела
func (s *Solid) Momentum() vec.Vector2D {
	return s.Vel.Scale(s.Mass)
}

// Copy возвращает независимую копию тела
func (s *Solid) Copy() *Solid {
	c := *s
	return &c
}

// normalizeDir приводит курс к диапазону [0, 2π)
func normalizeDir(dir float64) float64 {
	dir = math.Mod(dir, 2*math.Pi)
	if dir < 0 {
		dir += 2 * math.Pi
	}
	return dir
}
