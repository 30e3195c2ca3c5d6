package logging

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Имена компонентов движка
const (
	ComponentWorld       = "world"
	ComponentStreaming   = "streaming"
	ComponentMesh        = "mesh"
	ComponentReplication = "replication"
	ComponentStorage     = "storage"
	ComponentServer      = "server"
	ComponentEngine      = "engine"
)

// LoggerManager хранит по одному логгеру на компонент и
// уровни, заданные для компонентов конфигурацией
type LoggerManager struct {
	mu        sync.RWMutex
	loggers   map[string]*Logger
	overrides map[string]LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers:   make(map[string]*Logger),
			overrides: make(map[string]LogLevel),
		}
	})
	return globalManager
}

// GetLogger возвращает логгер для компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()
	if exists {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Повторная проверка под write lock
	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
	}
	if level, ok := lm.overrides[component]; ok {
		logger.minConsoleLevel = level
	}

	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный fallback при ошибке файла
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	fallback := &Logger{
		component:       component,
		consoleLogger:   defaultLogger.consoleLogger,
		minConsoleLevel: INFO,
		minFileLevel:    ERROR + 1,
	}
	fallback.Warn("Файл логов недоступен, пишу только в консоль: %v", err)
	return fallback
}

// SetComponentLevels задаёт консольный уровень по компонентам,
// например {"mesh": "debug"}. Действует и на уже созданные логгеры.
func (lm *LoggerManager) SetComponentLevels(levels map[string]string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for component, name := range levels {
		level := ParseLevel(name)
		lm.overrides[component] = level
		if logger, ok := lm.loggers[component]; ok {
			logger.mu.Lock()
			logger.minConsoleLevel = level
			logger.mu.Unlock()
		}
	}
}

// CloseAll закрывает все логгеры
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close logger for %s: %w", component, err))
		}
	}

	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// ListComponents возвращает отсортированные имена компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// GetComponentLogger возвращает логгер компонента через глобальный менеджер
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetWorldLogger() *Logger       { return GetComponentLogger(ComponentWorld) }
func GetStreamingLogger() *Logger   { return GetComponentLogger(ComponentStreaming) }
func GetMeshLogger() *Logger        { return GetComponentLogger(ComponentMesh) }
func GetReplicationLogger() *Logger { return GetComponentLogger(ComponentReplication) }
func GetStorageLogger() *Logger     { return GetComponentLogger(ComponentStorage) }
func GetServerLogger() *Logger      { return GetComponentLogger(ComponentServer) }
func GetEngineLogger() *Logger      { return GetComponentLogger(ComponentEngine) }
