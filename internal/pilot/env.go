package pilot

import "github.com/annel0/pilotsim/internal/logging"

// Env окружение, в котором обновляется пилот. Реализуется Registry.
type Env interface {
	Params() *Params
	Events() *Events
	Metrics() Metrics
	Get(id uint32) (*Pilot, bool)
	View(p *Pilot) View
}

// Metrics счётчики симуляции пилотов
type Metrics interface {
	InvariantViolation(kind string)
	AIError()
	HookFired(t HookType)
	Jump()
	Death()
	Hit(dtype string, absorbed float64)
}

// NopMetrics ничего не считает
type NopMetrics struct{}

func (NopMetrics) InvariantViolation(string) {}
func (NopMetrics) AIError()                  {}
func (NopMetrics) HookFired(HookType)        {}
func (NopMetrics) Jump()                     {}
func (NopMetrics) Death()                    {}
func (NopMetrics) Hit(string, float64)       {}

func logger() *logging.Logger {
	return logging.GetPilotLogger()
}
