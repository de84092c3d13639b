package eventbus

import "errors"

// ErrClosed шина уже закрыта
var ErrClosed = errors.New("шина событий закрыта")

// Типы событий симуляции
const (
	TypeHook  = "hook"  // Сработал хук пилота
	TypeDeath = "death" // Пилот уничтожен и удалён из реестра
	TypeJump  = "jump"  // Пилот прибыл в новую систему
)

// HookPayload полезная нагрузка события хука
type HookPayload struct {
	Frame  uint64 `json:"frame" bson:"frame"`
	Pilot  uint32 `json:"pilot" bson:"pilot"`
	Name   string `json:"name" bson:"name"`
	Hook   string `json:"hook" bson:"hook"`
	System string `json:"system,omitempty" bson:"system,omitempty"`
}

// DeathPayload полезная нагрузка удаления пилота
type DeathPayload struct {
	Frame  uint64 `json:"frame" bson:"frame"`
	Pilot  uint32 `json:"pilot" bson:"pilot"`
	Player bool   `json:"player" bson:"player"`
}

// JumpPayload полезная нагрузка прибытия в систему
type JumpPayload struct {
	Frame uint64 `json:"frame" bson:"frame"`
	Pilot uint32 `json:"pilot" bson:"pilot"`
	From  string `json:"from" bson:"from"`
	To    string `json:"to" bson:"to"`
}
