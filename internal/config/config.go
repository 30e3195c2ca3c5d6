package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/blockverse/internal/cache"
	"github.com/annel0/blockverse/internal/mesh"
	"github.com/annel0/blockverse/internal/streaming"
)

// Config корневая структура конфигурации сервера.
type Config struct {
	World       WorldConfig         `yaml:"world"`
	Streaming   streaming.Config    `yaml:"streaming"`
	Mesh        mesh.PipelineConfig `yaml:"mesh"`
	Storage     StorageConfig       `yaml:"storage"`
	Cache       CacheConfig         `yaml:"cache"`
	EventBus    EventBusConfig      `yaml:"eventbus"`
	Replication ReplicationConfig   `yaml:"replication"`
	Server      ServerConfig        `yaml:"server"`
	Logging     LoggingConfig       `yaml:"logging"`
	Telemetry   TelemetryConfig     `yaml:"telemetry"`
}

type WorldConfig struct {
	Seed       int64  `yaml:"seed"`
	Generator  string `yaml:"generator"` // terrain | flat | empty
	FlatHeight int    `yaml:"flat_height"`
	// YAML-файл с дополнительными объявлениями блоков
	BlocksFile string `yaml:"blocks_file"`
	TickRate   int    `yaml:"tick_rate"`
	SaveEvery  int    `yaml:"save_every_seconds"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend"` // badger | memory
	DataPath string `yaml:"data_path"`
}

type CacheConfig struct {
	Enabled      bool `yaml:"enabled"`
	cache.Config `yaml:",inline"`
}

type EventBusConfig struct {
	// Пустой URL - шина в памяти процесса
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ReplicationConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Source    string `yaml:"source"`
	Compress  bool   `yaml:"compress"`
	InboxSize int    `yaml:"inbox_size"`
}

type ServerConfig struct {
	RESTPort int    `yaml:"rest_port"`
	NodeID   string `yaml:"node_id"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	// Уровни отдельных компонентов: mesh: debug
	Components map[string]string `yaml:"components"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // host:port OTLP/HTTP коллектора
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BLOCKVERSE_REST_PORT", 8088)
}

// TickInterval возвращает период авторитетного тика
func (w *WorldConfig) TickInterval() time.Duration {
	if w.TickRate <= 0 {
		return time.Second / 20
	}
	return time.Second / time.Duration(w.TickRate)
}

// SaveInterval возвращает период сохранения изменённых чанков
func (w *WorldConfig) SaveInterval() time.Duration {
	return time.Duration(w.SaveEvery) * time.Second
}

// RetentionDuration возвращает срок хранения событий в JetStream
func (e *EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Default возвращает конфигурацию одиночного сервера без внешних сервисов
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:       1337,
			Generator:  "terrain",
			FlatHeight: 4,
			TickRate:   20,
			SaveEvery:  30,
		},
		Streaming: streaming.DefaultConfig(),
		Storage: StorageConfig{
			Backend:  "badger",
			DataPath: "data",
		},
		Cache: CacheConfig{
			Config: cache.Config{RedisURL: "localhost:6379", DefaultTTL: 30 * time.Second},
		},
		EventBus: EventBusConfig{Stream: "BLOCKVERSE", Retention: 24},
		Replication: ReplicationConfig{
			Source:    "authority",
			Compress:  true,
			InboxSize: 256,
		},
		Logging:   LoggingConfig{Level: "info", Dir: "logs"},
		Telemetry: TelemetryConfig{ServiceName: "blockverse"},
	}
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error
	switch c.World.Generator {
	case "terrain", "flat", "empty":
	default:
		errs = append(errs, fmt.Errorf("world.generator: неизвестный генератор %q", c.World.Generator))
	}
	switch c.Storage.Backend {
	case "badger", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.backend: неизвестное хранилище %q", c.Storage.Backend))
	}
	if c.Streaming.RenderForgetRadius != 0 && c.Streaming.RenderForgetRadius < c.Streaming.RenderChunkRadius {
		errs = append(errs, errors.New("streaming: render_forget_radius меньше render_chunk_radius"))
	}
	if c.World.TickRate < 0 {
		errs = append(errs, errors.New("world.tick_rate не может быть отрицательным"))
	}
	return errors.Join(errs...)
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV BLOCKVERSE_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("BLOCKVERSE_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан - использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
