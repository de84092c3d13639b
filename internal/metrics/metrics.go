// Package metrics экспортирует счётчики симуляции и процесса в Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/pilotsim/internal/pilot"
)

const namespace = "pilotsim"

// Sim счётчики симуляции. Реализует pilot.Metrics.
type Sim struct {
	pilotsActive  prometheus.Gauge
	projectiles   prometheus.Gauge
	frameDuration prometheus.Histogram
	framesSkipped prometheus.Counter
	hits          *prometheus.CounterVec
	damage        *prometheus.CounterVec
	deaths        prometheus.Counter
	hooks         *prometheus.CounterVec
	jumps         prometheus.Counter
	violations    *prometheus.CounterVec
	aiErrors      prometheus.Counter
	commands      *prometheus.CounterVec
}

var _ pilot.Metrics = (*Sim)(nil)

// NewSim создаёт метрики и регистрирует их в reg
func NewSim(reg prometheus.Registerer) *Sim {
	m := &Sim{
		pilotsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pilots_active",
			Help:      "Пилотов в реестре после фазы удаления.",
		}),
		projectiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "projectiles_active",
			Help:      "Снарядов в полёте.",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Время обработки кадра.",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.0167, 0.025, 0.05, 0.1},
		}),
		framesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Кадров, пропущенных из-за слишком большого шага.",
		}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Попаданий по типу урона.",
		}, []string{"damage_type"}),
		damage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "damage_absorbed_total",
			Help:      "Поглощённого урона по типу.",
		}, []string{"damage_type"}),
		deaths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deaths_total",
			Help:      "Уничтоженных пилотов.",
		}),
		hooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hooks_fired_total",
			Help:      "Вызовов обработчиков по типу хука.",
		}, []string{"hook"}),
		jumps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jumps_total",
			Help:      "Завершённых гиперпрыжков.",
		}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Исправленных нарушений инвариантов по виду.",
		}, []string{"kind"}),
		aiErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_errors_total",
			Help:      "Ошибок и паник ИИ.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Внешних команд по результату.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.pilotsActive, m.projectiles, m.frameDuration, m.framesSkipped,
		m.hits, m.damage, m.deaths, m.hooks, m.jumps, m.violations, m.aiErrors, m.commands,
	)
	return m
}

func (m *Sim) InvariantViolation(kind string) { m.violations.WithLabelValues(kind).Inc() }
func (m *Sim) AIError()                       { m.aiErrors.Inc() }
func (m *Sim) HookFired(t pilot.HookType)     { m.hooks.WithLabelValues(t.String()).Inc() }
func (m *Sim) Jump()                          { m.jumps.Inc() }
func (m *Sim) Death()                         { m.deaths.Inc() }

func (m *Sim) Hit(dtype string, absorbed float64) {
	m.hits.WithLabelValues(dtype).Inc()
	if absorbed > 0 {
		m.damage.WithLabelValues(dtype).Add(absorbed)
	}
}

// Frame отмечает обработанный кадр
func (m *Sim) Frame(d time.Duration, pilots, projectiles int) {
	m.frameDuration.Observe(d.Seconds())
	m.pilotsActive.Set(float64(pilots))
	m.projectiles.Set(float64(projectiles))
}

// FrameSkipped отмечает пропущенный кадр
func (m *Sim) FrameSkipped() { m.framesSkipped.Inc() }

// Command отмечает обработанную внешнюю команду
func (m *Sim) Command(err error) {
	if err != nil {
		m.commands.WithLabelValues("error").Inc()
		return
	}
	m.commands.WithLabelValues("ok").Inc()
}
