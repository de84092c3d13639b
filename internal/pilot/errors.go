package pilot

import "errors"

// Ошибки проверки и ёмкости. Состояние пилота при них не меняется.
var (
	ErrInvalidSlot      = errors.New("несуществующий слот")
	ErrSlotMismatch     = errors.New("тип снаряжения не подходит к слоту")
	ErrSlotOccupied     = errors.New("слот уже занят")
	ErrSlotEmpty        = errors.New("слот пуст")
	ErrCapacityExceeded = errors.New("недостаточно CPU или энергии")
	ErrNotLauncher      = errors.New("снаряжение не использует боезапас")
	ErrAmmoMismatch     = errors.New("боезапас не подходит к пусковой установке")
	ErrAmmoFull         = errors.New("боезапас полон")
	ErrNotSecondary     = errors.New("снаряжение нельзя выбрать вторичным оружием")
	ErrCargoFull        = errors.New("недостаточно места в трюме")
	ErrNoMissionCargo   = errors.New("миссионный груз не найден")
	ErrNoCredits        = errors.New("недостаточно кредитов")

	ErrNoHyperTarget    = errors.New("не выбрана система назначения")
	ErrNoFuel           = errors.New("недостаточно топлива")
	ErrTooClose         = errors.New("слишком близко к центру системы")
	ErrAlreadyJumping   = errors.New("гиперпрыжок уже выполняется")
	ErrAbortNotAllowed  = errors.New("прыжок нельзя прервать в текущей фазе")
	ErrDisabled         = errors.New("корабль выведен из строя")
	ErrDead             = errors.New("пилот уничтожен")
	ErrNoTarget         = errors.New("цель недоступна")
	ErrNotDisabled      = errors.New("цель не выведена из строя")
	ErrAlreadyBoarded   = errors.New("цель уже взята на абордаж")
	ErrTooFar           = errors.New("цель слишком далеко")
	ErrTooFast          = errors.New("слишком большая относительная скорость")
)
