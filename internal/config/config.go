package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации симуляции.
// Незаданные поля заполняются значениями из Default.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Sim        SimConfig        `yaml:"sim"`
	Hyperspace HyperspaceConfig `yaml:"hyperspace"`
	Combat     CombatConfig     `yaml:"combat"`
	Server     ServerConfig     `yaml:"server"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Storage    StorageConfig    `yaml:"storage"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Auth       AuthConfig       `yaml:"auth"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// SimConfig параметры кадра симуляции
type SimConfig struct {
	FPS             int     `yaml:"fps"`
	MaxStep         float64 `yaml:"max_step"`       // Максимальный шаг интегрирования, с
	SkipThreshold   float64 `yaml:"skip_threshold"` // Кадр длиннее пропускается, с
	AIControlTick   float64 `yaml:"ai_tick"`        // Период опроса ИИ, с
	DebugInvariants bool    `yaml:"debug_invariants"`
	Seed            int64   `yaml:"seed"`
	StartSystem     string  `yaml:"start_system"`
}

// FrameDuration возвращает период кадра
func (s SimConfig) FrameDuration() time.Duration {
	if s.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.FPS)
}

// HyperspaceConfig константы гиперпрыжка
type HyperspaceConfig struct {
	EngineDelay float64 `yaml:"engine_delay"`
	FlyDelay    float64 `yaml:"fly_delay"`
	StarsBlur   float64 `yaml:"stars_blur"`
	StarsLength float64 `yaml:"stars_length"`
	Fadeout     float64 `yaml:"fadeout"`
	Fuel        float64 `yaml:"fuel"`
	Thrust      float64 `yaml:"thrust"`
	ExitMin     float64 `yaml:"exit_min"`
}

// Velocity скорость входа в гиперпространство
func (h HyperspaceConfig) Velocity() float64 { return h.Thrust * h.FlyDelay }

// EnterMin минимальная дистанция выхода в системе назначения
func (h HyperspaceConfig) EnterMin() float64 { return h.Velocity() * 0.5 }

// EnterMax максимальная дистанция выхода в системе назначения
func (h HyperspaceConfig) EnterMax() float64 { return h.Velocity() * 0.6 }

// CombatConfig пороги боя
type CombatConfig struct {
	DisabledArmour   float64 `yaml:"disabled_armour"`   // Доля брони, ниже которой корабль выведен из строя
	HostileThreshold float64 `yaml:"hostile_threshold"` // Порог враждебности к игроку
	HostileDecay     float64 `yaml:"hostile_decay"`     // Затухание враждебности в секунду
	ExplosionRadius  float64 `yaml:"explosion_radius"`  // Радиус финального взрыва на единицу радиуса корабля
	RefuelTime       float64 `yaml:"refuel_time"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// GetRESTPort возвращает порт REST API с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "PILOTSIM_REST_PORT", 8088)
}

// GetMetricsPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "PILOTSIM_METRICS_PORT", 2112)
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

// StorageConfig хранилище снапшотов
type StorageConfig struct {
	Backend       string  `yaml:"backend"` // memory | badger | redis | maria
	BadgerPath    string  `yaml:"badger_path"`
	RedisAddr     string  `yaml:"redis_addr"`
	RedisPassword string  `yaml:"redis_password"`
	RedisDB       int     `yaml:"redis_db"`
	MariaDSN      string  `yaml:"maria_dsn"`
	Interval      float64 `yaml:"snapshot_interval"` // Период сохранения, с
	Keep          int     `yaml:"keep"`              // Сколько снапшотов хранить
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type ArchiveConfig struct {
	MongoURI   string `yaml:"mongo_uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Dir: "logs"},
		Sim: SimConfig{
			FPS:           60,
			MaxStep:       1.0 / 50.0,
			SkipThreshold: 0.25,
			AIControlTick: 0.25,
			Seed:          1,
		},
		Hyperspace: HyperspaceConfig{
			EngineDelay: 3,
			FlyDelay:    5,
			StarsBlur:   3,
			StarsLength: 1000,
			Fadeout:     1,
			Fuel:        100,
			Thrust:      2000,
			ExitMin:     1500,
		},
		Combat: CombatConfig{
			DisabledArmour:   0.3,
			HostileThreshold: 0.09,
			HostileDecay:     0.005,
			ExplosionRadius:  2,
			RefuelTime:       3,
		},
		EventBus: EventBusConfig{Stream: "PILOTSIM_EVENTS", Retention: 24},
		Storage:  StorageConfig{Backend: "memory", BadgerPath: "data/snapshots", Interval: 10, Keep: 20},
		Telemetry: TelemetryConfig{
			ServiceName: "pilotsim",
		},
		Auth:    AuthConfig{Issuer: "pilotsim"},
		Archive: ArchiveConfig{Database: "pilotsim", Collection: "hook_events"},
		Catalog: CatalogConfig{Path: "configs/catalog.yml"},
	}
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх Default.
// Если path == "", берёт путь из ENV PILOTSIM_CONFIG; без пути возвращает Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("PILOTSIM_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать конфигурацию %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать конфигурацию %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, без которых симуляция не может работать
func (c *Config) Validate() error {
	if c.Sim.MaxStep <= 0 {
		return fmt.Errorf("sim.max_step должен быть положительным")
	}
	if c.Sim.SkipThreshold < c.Sim.MaxStep {
		return fmt.Errorf("sim.skip_threshold меньше sim.max_step")
	}
	if c.Sim.AIControlTick <= 0 {
		return fmt.Errorf("sim.ai_tick должен быть положительным")
	}
	if c.Combat.DisabledArmour < 0 || c.Combat.DisabledArmour >= 1 {
		return fmt.Errorf("combat.disabled_armour вне диапазона [0, 1)")
	}
	if c.Hyperspace.EngineDelay < 0 || c.Hyperspace.FlyDelay <= 0 || c.Hyperspace.Thrust <= 0 {
		return fmt.Errorf("некорректные параметры гиперпрыжка")
	}
	switch c.Storage.Backend {
	case "memory", "badger", "redis", "maria":
	default:
		return fmt.Errorf("неизвестное хранилище снапшотов: %s", c.Storage.Backend)
	}
	return nil
}
