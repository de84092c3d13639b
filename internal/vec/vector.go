package vec

import (
	"encoding/json"
	"math"
)

// SpeedDamp определяет долю превышения скорости, гасимую за секунду в LimitSpeed.
// При SpeedDamp*dt >= 1 скорость обрезается сразу.
const SpeedDamp = 3.0

// Vector2D представляет 2D вектор с кэшированной полярной формой.
// Поля закрыты: изменить вектор можно только через операции,
// которые пересчитывают модуль и угол.
type Vector2D struct {
	x, y  float64
	mod   float64 // Модуль
	angle float64 // Угол в радианах, (-π, π]
}

// New создаёт вектор по декартовым координатам
func New(x, y float64) Vector2D {
	return Vector2D{
		x:     x,
		y:     y,
		mod:   math.Hypot(x, y),
		angle: math.Atan2(y, x),
	}
}

// NewPolar создаёт вектор по модулю и углу. Нулевой модуль даёт Zero().
func NewPolar(mod, angle float64) Vector2D {
	if mod == 0 {
		return Zero()
	}
	if mod < 0 {
		mod = -mod
		angle += math.Pi
	}
	return Vector2D{
		x:     mod * math.Cos(angle),
		y:     mod * math.Sin(angle),
		mod:   mod,
		angle: NormalizeAngle(angle),
	}
}

// Zero возвращает нулевой вектор
func Zero() Vector2D {
	return Vector2D{}
}

// X возвращает декартову координату X
func (v Vector2D) X() float64 { return v.x }

// Y возвращает декартову координату Y
func (v Vector2D) Y() float64 { return v.y }

// Mod возвращает модуль вектора
func (v Vector2D) Mod() float64 { return v.mod }

// Angle возвращает угол вектора
func (v Vector2D) Angle() float64 { return v.angle }

// IsZero проверяет, нулевой ли вектор
func (v Vector2D) IsZero() bool {
	return v.x == 0 && v.y == 0
}

// Add складывает два вектора
func (v Vector2D) Add(other Vector2D) Vector2D {
	return New(v.x+other.x, v.y+other.y)
}

// AddXY добавляет к вектору приращение по осям
func (v Vector2D) AddXY(dx, dy float64) Vector2D {
	return New(v.x+dx, v.y+dy)
}

// Sub вычитает вектор
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return New(v.x-other.x, v.y-other.y)
}

// Scale умножает вектор на скаляр
func (v Vector2D) Scale(k float64) Vector2D {
	return New(v.x*k, v.y*k)
}

// WithMod возвращает вектор того же направления с новым модулем
func (v Vector2D) WithMod(mod float64) Vector2D {
	return NewPolar(mod, v.angle)
}

// Dot возвращает скалярное произведение
func (v Vector2D) Dot(other Vector2D) float64 {
	return v.x*other.x + v.y*other.y
}

// Dist возвращает расстояние до другой точки
func (v Vector2D) Dist(other Vector2D) float64 {
	return math.Hypot(v.x-other.x, v.y-other.y)
}

// Dist2 возвращает квадрат расстояния (без корня)
func (v Vector2D) Dist2(other Vector2D) float64 {
	dx := v.x - other.x
	dy := v.y - other.y
	return dx*dx + dy*dy
}

// AngleTo возвращает угол направления от v к other
func (v Vector2D) AngleTo(other Vector2D) float64 {
	return math.Atan2(other.y-v.y, other.x-v.x)
}

// Reflect отражает вектор относительно нормали n.
// Нормаль не обязана быть единичной.
func Reflect(v, n Vector2D) Vector2D {
	if n.mod == 0 {
		return v
	}
	nx := n.x / n.mod
	ny := n.y / n.mod
	d := 2 * (v.x*nx + v.y*ny)
	return New(v.x-d*nx, v.y-d*ny)
}

// NormalizeAngle приводит угол к диапазону (-π, π]
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// AngleDiff возвращает разницу углов a-ref, нормализованную к (-π, π]
func AngleDiff(ref, a float64) float64 {
	return NormalizeAngle(a - ref)
}

// LimitSpeed ограничивает модуль скорости величиной speed, сохраняя направление.
// Превышение гасится плавно (SpeedDamp за секунду), при большом dt: сразу.
func LimitSpeed(vel Vector2D, speed, dt float64) Vector2D {
	if speed < 0 {
		speed = 0
	}
	if vel.mod <= speed {
		return vel
	}
	k := SpeedDamp * dt
	if k >= 1 || dt <= 0 {
		return NewPolar(speed, vel.angle)
	}
	mod := vel.mod - (vel.mod-speed)*k
	return NewPolar(math.Max(speed, mod), vel.angle)
}

// vectorJSON внешнее представление для снапшотов
type vectorJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MarshalJSON сериализует только декартовы координаты
func (v Vector2D) MarshalJSON() ([]byte, error) {
	return json.Marshal(vectorJSON{X: v.x, Y: v.y})
}

// UnmarshalJSON восстанавливает вектор и его полярную форму
func (v *Vector2D) UnmarshalJSON(data []byte) error {
	var raw vectorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = New(raw.X, raw.Y)
	return nil
}
