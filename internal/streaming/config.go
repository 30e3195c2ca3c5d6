package streaming

import "time"

// Config - параметры стриминга чанков
type Config struct {
	RenderChunkRadius  int           `yaml:"render_chunk_radius"`
	RenderForgetRadius int           `yaml:"render_forget_radius"`
	UnloadBatchSize    int           `yaml:"unload_batch_size"`
	BatchSize          int           `yaml:"batch_size"`
	TimeBudget         time.Duration `yaml:"time_budget"`
	// ProximityStreaming: true - грузить кубы вокруг наблюдателей,
	// false - материализовать все загруженные чанки
	ProximityStreaming bool `yaml:"proximity_streaming"`
	// Authority: только хост принимает решения о стриминге
	Authority bool `yaml:"authority"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		RenderChunkRadius:  4,
		RenderForgetRadius: 6,
		UnloadBatchSize:    32,
		BatchSize:          8,
		TimeBudget:         100 * time.Millisecond,
		ProximityStreaming: true,
		Authority:          true,
	}
}

// withDefaults подставляет значения по умолчанию в незаданные поля
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RenderChunkRadius <= 0 {
		c.RenderChunkRadius = d.RenderChunkRadius
	}
	if c.RenderForgetRadius < c.RenderChunkRadius {
		c.RenderForgetRadius = c.RenderChunkRadius + 2
	}
	if c.UnloadBatchSize <= 0 {
		c.UnloadBatchSize = d.UnloadBatchSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.TimeBudget <= 0 {
		c.TimeBudget = d.TimeBudget
	}
	return c
}
