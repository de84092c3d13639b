package outfit

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SlotType определяет энергетическую категорию слота
type SlotType uint8

const (
	SlotNull   SlotType = iota // Некорректный слот
	SlotLow                    // Слот низкой энергии
	SlotMedium                 // Слот средней энергии
	SlotHigh                   // Слот высокой энергии
)

var slotNames = map[SlotType]string{
	SlotNull:   "null",
	SlotLow:    "low",
	SlotMedium: "medium",
	SlotHigh:   "high",
}

// String возвращает строковое представление типа слота
func (s SlotType) String() string {
	if name, ok := slotNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSlotType разбирает тип слота из строки
func ParseSlotType(s string) (SlotType, error) {
	for t, name := range slotNames {
		if name == strings.ToLower(s) && t != SlotNull {
			return t, nil
		}
	}
	return SlotNull, fmt.Errorf("неизвестный тип слота: %q", s)
}

// UnmarshalYAML позволяет писать тип слота строкой в каталоге
func (s *SlotType) UnmarshalYAML(node *yaml.Node) error {
	t, err := ParseSlotType(node.Value)
	if err != nil {
		return err
	}
	*s = t
	return nil
}

// Kind определяет вид снаряжения
type Kind uint8

const (
	KindNull           Kind = iota
	KindBolt                // Болтовое оружие
	KindBeam                // Лучевое оружие
	KindTurretBolt          // Болтовая турель
	KindTurretBeam          // Лучевая турель
	KindLauncher            // Пусковая установка
	KindTurretLauncher      // Турельная пусковая установка
	KindAmmo                // Боеприпас
	KindFighterBay          // Ангар истребителей
	KindFighter             // Истребитель (боеприпас ангара)
	KindAfterburner         // Форсаж
	KindModification        // Модификация корабля
)

var kindNames = map[Kind]string{
	KindNull:           "null",
	KindBolt:           "bolt",
	KindBeam:           "beam",
	KindTurretBolt:     "turret_bolt",
	KindTurretBeam:     "turret_beam",
	KindLauncher:       "launcher",
	KindTurretLauncher: "turret_launcher",
	KindAmmo:           "ammo",
	KindFighterBay:     "fighter_bay",
	KindFighter:        "fighter",
	KindAfterburner:    "afterburner",
	KindModification:   "modification",
}

// String возвращает строковое представление вида
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind разбирает вид снаряжения из строки
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == strings.ToLower(s) && k != KindNull {
			return k, nil
		}
	}
	return KindNull, fmt.Errorf("неизвестный вид снаряжения: %q", s)
}

// UnmarshalYAML позволяет писать вид строкой в каталоге
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseKind(node.Value)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// IsBeam непрерывное лучевое оружие
func (k Kind) IsBeam() bool { return k == KindBeam || k == KindTurretBeam }

// IsBolt болтовое оружие
func (k Kind) IsBolt() bool { return k == KindBolt || k == KindTurretBolt }

// IsLauncher пусковая установка
func (k Kind) IsLauncher() bool { return k == KindLauncher || k == KindTurretLauncher }

// IsTurret турельное оружие
func (k Kind) IsTurret() bool {
	return k == KindTurretBolt || k == KindTurretBeam || k == KindTurretLauncher
}

// IsFighterBay ангар истребителей
func (k Kind) IsFighterBay() bool { return k == KindFighterBay }

// UsesAmmo снаряжение хранит запас боеприпасов в слоте
func (k Kind) UsesAmmo() bool { return k.IsLauncher() || k.IsFighterBay() }

// IsWeapon любое стреляющее снаряжение
func (k Kind) IsWeapon() bool { return k.IsBeam() || k.IsBolt() || k.UsesAmmo() }

// IsSecondary оружие, управляемое вторичным огнём
func (k Kind) IsSecondary() bool { return k.UsesAmmo() }

// Modifiers описывает прибавки, которые снаряжение даёт кораблю
type Modifiers struct {
	Thrust      float64 `yaml:"thrust"`
	Turn        float64 `yaml:"turn"`
	Speed       float64 `yaml:"speed"`
	Armour      float64 `yaml:"armour"`
	ArmourRegen float64 `yaml:"armour_regen"`
	Shield      float64 `yaml:"shield"`
	ShieldRegen float64 `yaml:"shield_regen"`
	Energy      float64 `yaml:"energy"`
	EnergyRegen float64 `yaml:"energy_regen"`
	Fuel        float64 `yaml:"fuel"`
	Cargo       int     `yaml:"cargo"`
	CPU         float64 `yaml:"cpu"`
}

// Outfit описывает предмет снаряжения. Экземпляры общие и доступны только на чтение.
type Outfit struct {
	Name  string   `yaml:"name"`
	Kind  Kind     `yaml:"kind"`
	Slot  SlotType `yaml:"slot"`
	Mass  float64  `yaml:"mass"`
	CPU   float64  `yaml:"cpu"` // Потребление CPU
	Price int      `yaml:"price"`

	// Оружие
	Damage     float64    `yaml:"damage"`      // Урон за выстрел (для луча: в секунду)
	DamageType DamageType `yaml:"damage_type"` // Тип урона
	Delay      float64    `yaml:"delay"`       // Перезарядка между выстрелами (с)
	Warmup     float64    `yaml:"warmup"`      // Прогрев луча (с)
	Duration   float64    `yaml:"duration"`    // Максимальная длительность луча (с), 0: без ограничения
	EnergyUse  float64    `yaml:"energy"`      // Энергия за выстрел (для луча: в секунду)
	Range      float64    `yaml:"range"`
	Speed      float64    `yaml:"speed"`     // Скорость снаряда
	Explosion  float64    `yaml:"explosion"` // Радиус взрыва снаряда, 0: прямое попадание
	AmmoName   string     `yaml:"ammo"`      // Имя боеприпаса для пусковых и ангаров
	MaxAmmo    int        `yaml:"max_ammo"`  // Ёмкость слота
	ShipName   string     `yaml:"ship"`      // Корабль истребителя (для KindFighter)
	Ammo       *Outfit    `yaml:"-"`         // Разрешается каталогом по AmmoName

	// Форсаж
	ABThrust float64 `yaml:"ab_thrust"` // Прибавка тяги в процентах
	ABSpeed  float64 `yaml:"ab_speed"`  // Прибавка скорости в процентах
	ABEnergy float64 `yaml:"ab_energy"` // Расход энергии в секунду

	Mods Modifiers `yaml:"mods"`
}

// Validate проверяет согласованность описания
func (o *Outfit) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("снаряжение без имени")
	}
	if o.Kind == KindNull {
		return fmt.Errorf("снаряжение %s: не указан вид", o.Name)
	}
	// Боеприпасы и истребители не устанавливаются в слоты
	if o.Kind != KindAmmo && o.Kind != KindFighter && o.Slot == SlotNull {
		return fmt.Errorf("снаряжение %s: не указан тип слота", o.Name)
	}
	if o.Kind.UsesAmmo() && o.AmmoName == "" {
		return fmt.Errorf("снаряжение %s: не указан боеприпас", o.Name)
	}
	if o.Kind == KindFighter && o.ShipName == "" {
		return fmt.Errorf("истребитель %s: не указан корабль", o.Name)
	}
	if o.Mass < 0 || o.Delay < 0 || o.Warmup < 0 || o.MaxAmmo < 0 {
		return fmt.Errorf("снаряжение %s: отрицательные параметры", o.Name)
	}
	return nil
}

// String возвращает имя снаряжения
func (o *Outfit) String() string {
	if o == nil {
		return "<empty>"
	}
	return o.Name
}
