package outfit

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DamageType определяет тип урона
type DamageType uint8

const (
	DamageRaw       DamageType = iota // Без модификаторов
	DamageEnergy                      // Энергетический
	DamageKinetic                     // Кинетический
	DamageIon                         // Ионный
	DamageRadiation                   // Радиационный
	DamageEMP                         // ЭМИ
)

var damageNames = map[DamageType]string{
	DamageRaw:       "raw",
	DamageEnergy:    "energy",
	DamageKinetic:   "kinetic",
	DamageIon:       "ion",
	DamageRadiation: "radiation",
	DamageEMP:       "emp",
}

// String возвращает строковое представление типа урона
func (d DamageType) String() string {
	if name, ok := damageNames[d]; ok {
		return name
	}
	return "unknown"
}

// ParseDamageType разбирает тип урона из строки
func ParseDamageType(s string) (DamageType, error) {
	for d, name := range damageNames {
		if name == strings.ToLower(s) {
			return d, nil
		}
	}
	return DamageRaw, fmt.Errorf("неизвестный тип урона: %q", s)
}

// UnmarshalYAML позволяет писать тип урона строкой
func (d *DamageType) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseDamageType(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// DamageMod множители урона для одного типа
type DamageMod struct {
	Shield    float64 `yaml:"shield"`
	Armour    float64 `yaml:"armour"`
	Knockback float64 `yaml:"knockback"`
}

// DamageTable таблица поглощения по типам урона
type DamageTable map[DamageType]DamageMod

// DefaultDamageTable возвращает стандартную таблицу поглощения
func DefaultDamageTable() DamageTable {
	return DamageTable{
		DamageRaw:       {Shield: 1, Armour: 1, Knockback: 0},
		DamageEnergy:    {Shield: 1.1, Armour: 0.7, Knockback: 0.1},
		DamageKinetic:   {Shield: 0.8, Armour: 1.2, Knockback: 1},
		DamageIon:       {Shield: 1, Armour: 0.8, Knockback: 0.4},
		DamageRadiation: {Shield: 0.15, Armour: 1, Knockback: 0.4},
		DamageEMP:       {Shield: 0.6, Armour: 1.3, Knockback: 0},
	}
}

// Calc возвращает урон по щиту, по броне и коэффициент отбрасывания.
// Неизвестный тип считается сырым уроном.
func (t DamageTable) Calc(dtype DamageType, dmg float64) (dshield, darmour, knockback float64) {
	mod, ok := t[dtype]
	if !ok {
		mod = DamageMod{Shield: 1, Armour: 1}
	}
	return dmg * mod.Shield, dmg * mod.Armour, mod.Knockback
}
