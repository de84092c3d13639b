package physics

import (
	"github.com/annel0/pilotsim/internal/vec"
)

// CircleCollider представляет круглый коллайдер корабля или снаряда
type CircleCollider struct {
	Radius float64 // Радиус в пикселях
}

// NewCircleCollider создаёт коллайдер с указанным радиусом
func NewCircleCollider(radius float64) *CircleCollider {
	if radius < 0 {
		radius = 0
	}
	return &CircleCollider{Radius: radius}
}

// IsPointInside проверяет, находится ли точка внутри коллайдера
func (cc *CircleCollider) IsPointInside(center, point vec.Vector2D) bool {
	return center.Dist2(point) <= cc.Radius*cc.Radius
}

// CheckCircleCollision проверяет пересечение двух круглых коллайдеров
func CheckCircleCollision(pos1 vec.Vector2D, c1 *CircleCollider, pos2 vec.Vector2D, c2 *CircleCollider) bool {
	r := c1.Radius + c2.Radius
	return pos1.Dist2(pos2) <= r*r
}

// InRadius проверяет, лежит ли точка в радиусе от центра
func InRadius(center, point vec.Vector2D, radius float64) bool {
	return center.Dist2(point) <= radius*radius
}

// SegmentHitsCircle проверяет, пересекает ли отрезок from->to окружность.
// Используется для быстрых снарядов, которые за тик пролетают цель насквозь.
func SegmentHitsCircle(from, to, center vec.Vector2D, radius float64) bool {
	d := to.Sub(from)
	f := from.Sub(center)

	a := d.Dot(d)
	if a == 0 {
		return InRadius(center, from, radius)
	}

	// Проекция центра на отрезок, зажатая в [0, 1]
	t := -f.Dot(d) / a
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := from.Add(d.Scale(t))
	return InRadius(center, closest, radius)
}

// Rebound отражает скорость тела от поверхности с нормалью normal,
// сохраняя долю энергии restitution (0..1).
func Rebound(s *Solid, normal vec.Vector2D, restitution float64) {
	if s.Vel.Dot(normal) >= 0 {
		return // Уже удаляется от поверхности
	}
	s.Vel = vec.Reflect(s.Vel, normal).Scale(restitution)
}
