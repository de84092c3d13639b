package pilot

import "strings"

// Life описывает жизненный цикл пилота. Переходы только вперёд.
type Life uint8

const (
	LifeAlive    Life = iota
	LifeDying         // Корабль разрушается, идёт цепочка взрывов
	LifeExploded      // Финальный взрыв произошёл
)

func (l Life) String() string {
	switch l {
	case LifeAlive:
		return "alive"
	case LifeDying:
		return "dying"
	case LifeExploded:
		return "exploded"
	default:
		return "unknown"
	}
}

// HyperPhase фаза гиперпрыжка. Пилот всегда находится ровно в одной фазе.
type HyperPhase uint8

const (
	HypNone      HyperPhase = iota
	HypPrep                 // Прогрев двигателя, торможение
	HypBegin                // Разгон до скорости прыжка
	HypTraveling            // В гиперпространстве
	HypEnd                  // Выход в системе назначения
)

func (h HyperPhase) String() string {
	switch h {
	case HypNone:
		return "none"
	case HypPrep:
		return "prep"
	case HypBegin:
		return "begin"
	case HypTraveling:
		return "traveling"
	case HypEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Flags независимые атрибуты пилота
type Flags uint32

const (
	// Задаются при создании
	FlagPlayer Flags = 1 << iota
	FlagEscort
	FlagCarried
	FlagNoOutfits
	FlagHasTurret
	FlagHasBeam

	// Динамические
	FlagHailing
	FlagNoDisable
	FlagInvincible
	FlagHostile
	FlagFriendly
	FlagCombat
	FlagAfterburner
	FlagBoarded
	FlagNoBoard
	FlagBoarding
	FlagBribed
	FlagDistressed
	FlagRefueling
	FlagRefuelBoarding
	FlagManualControl
	FlagDisabled
	FlagDeathSound
	FlagDelete
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagPlayer, "player"},
	{FlagEscort, "escort"},
	{FlagCarried, "carried"},
	{FlagNoOutfits, "no_outfits"},
	{FlagHasTurret, "has_turret"},
	{FlagHasBeam, "has_beam"},
	{FlagHailing, "hailing"},
	{FlagNoDisable, "nodisable"},
	{FlagInvincible, "invincible"},
	{FlagHostile, "hostile"},
	{FlagFriendly, "friendly"},
	{FlagCombat, "combat"},
	{FlagAfterburner, "afterburner"},
	{FlagBoarded, "boarded"},
	{FlagNoBoard, "noboard"},
	{FlagBoarding, "boarding"},
	{FlagBribed, "bribed"},
	{FlagDistressed, "distressed"},
	{FlagRefueling, "refueling"},
	{FlagRefuelBoarding, "refuel_boarding"},
	{FlagManualControl, "manual_control"},
	{FlagDisabled, "disabled"},
	{FlagDeathSound, "death_sound"},
	{FlagDelete, "delete"},
}

// Has проверяет, что установлены все биты f
func (fl Flags) Has(f Flags) bool { return fl&f == f }

func (fl Flags) String() string {
	var names []string
	for _, n := range flagNames {
		if fl&n.f != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// Биты классического 32-битного слова состояния
const (
	wordPlayer         = 1 << 0
	wordEscort         = 1 << 1
	wordCarried        = 1 << 2
	wordNoOutfits      = 1 << 5
	wordHasTurret      = 1 << 6
	wordHasBeams       = 1 << 7
	wordHailing        = 1 << 8
	wordNoDisable      = 1 << 9
	wordInvincible     = 1 << 10
	wordHostile        = 1 << 11
	wordFriendly       = 1 << 12
	wordCombat         = 1 << 13
	wordAfterburner    = 1 << 14
	wordHypPrep        = 1 << 15
	wordHypBegin       = 1 << 16
	wordHyperspace     = 1 << 17
	wordHypEnd         = 1 << 18
	wordBoarded        = 1 << 19
	wordNoBoard        = 1 << 20
	wordBoarding       = 1 << 21
	wordBribed         = 1 << 22
	wordDistressed     = 1 << 23
	wordRefueling      = 1 << 24
	wordRefuelBoarding = 1 << 25
	wordManualControl  = 1 << 26
	wordDisabled       = 1 << 27
	wordDead           = 1 << 28
	wordDeathSound     = 1 << 29
	wordExploded       = 1 << 30
	wordDelete         = 1 << 31
)

var wordBits = []struct {
	f   Flags
	bit uint32
}{
	{FlagPlayer, wordPlayer},
	{FlagEscort, wordEscort},
	{FlagCarried, wordCarried},
	{FlagNoOutfits, wordNoOutfits},
	{FlagHasTurret, wordHasTurret},
	{FlagHasBeam, wordHasBeams},
	{FlagHailing, wordHailing},
	{FlagNoDisable, wordNoDisable},
	{FlagInvincible, wordInvincible},
	{FlagHostile, wordHostile},
	{FlagFriendly, wordFriendly},
	{FlagCombat, wordCombat},
	{FlagAfterburner, wordAfterburner},
	{FlagBoarded, wordBoarded},
	{FlagNoBoard, wordNoBoard},
	{FlagBoarding, wordBoarding},
	{FlagBribed, wordBribed},
	{FlagDistressed, wordDistressed},
	{FlagRefueling, wordRefueling},
	{FlagRefuelBoarding, wordRefuelBoarding},
	{FlagManualControl, wordManualControl},
	{FlagDisabled, wordDisabled},
	{FlagDeathSound, wordDeathSound},
	{FlagDelete, wordDelete},
}

// composeWord собирает 32-битное слово из атрибутов, фазы и жизненного цикла
func composeWord(fl Flags, hyp HyperPhase, life Life) uint32 {
	var w uint32
	for _, b := range wordBits {
		if fl&b.f != 0 {
			w |= b.bit
		}
	}
	switch hyp {
	case HypPrep:
		w |= wordHypPrep
	case HypBegin:
		w |= wordHypBegin
	case HypTraveling:
		w |= wordHyperspace
	case HypEnd:
		w |= wordHypEnd
	}
	if life >= LifeDying {
		w |= wordDead
	}
	if life == LifeExploded {
		w |= wordExploded
	}
	return w
}
