package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации, по умолчанию INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case TRACE:
		return zerolog.TraceLevel
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Options параметры инициализации логгера по умолчанию
type Options struct {
	Level   string // Уровень консоли
	Dir     string // Директория файловых логов, пусто: без файла
	JSON    bool   // JSON в консоль вместо цветного вывода
	Console io.Writer
}

// Logger оборачивает zerolog и сохраняет printf-стиль вызовов
type Logger struct {
	zl        zerolog.Logger
	component string
	file      *os.File
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = newFallbackLogger()
)

func newFallbackLogger() *Logger {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
	return &Logger{zl: zerolog.New(out).Level(zerolog.InfoLevel).With().Timestamp().Logger()}
}

// InitDefaultLogger инициализирует логгер по умолчанию: консоль и, при заданной
// директории, JSON файл logs/pilotsim_<время>.log со всеми уровнями.
func InitDefaultLogger(opts Options) error {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if !opts.JSON {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly}
	}
	consoleLevel := ParseLevel(opts.Level).zerolog()

	writers := []io.Writer{&zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: console},
		Level:  consoleLevel,
	}}

	var file *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return fmt.Errorf("ошибка создания директории логов: %w", err)
		}
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		filename := filepath.Join(opts.Dir, fmt.Sprintf("pilotsim_%s.log", timestamp))

		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("ошибка создания файла логов: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	if file == nil {
		zl = zl.Level(consoleLevel)
	} else {
		zl = zl.Level(zerolog.TraceLevel)
	}

	defaultMu.Lock()
	old := defaultLogger
	defaultLogger = &Logger{zl: zl, file: file}
	defaultMu.Unlock()

	if old != nil && old.file != nil {
		old.file.Close()
	}
	GetLoggerManager().reset()
	return nil
}

// CloseDefaultLogger закрывает файл логов по умолчанию
func CloseDefaultLogger() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
	}
}

// Default возвращает логгер по умолчанию
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// NewLogger создаёт логгер компонента поверх логгера по умолчанию
func NewLogger(component string) *Logger {
	base := Default()
	return &Logger{
		zl:        base.zl.With().Str("component", component).Logger(),
		component: component,
	}
}

// NewWriterLogger создаёт логгер, пишущий JSON в w. Используется в тестах.
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level.zerolog())}
}

// Component возвращает имя компонента
func (l *Logger) Component() string { return l.component }

// Zerolog возвращает нижележащий логгер для структурированных полей
func (l *Logger) Zerolog() *zerolog.Logger { return &l.zl }

func (l *Logger) Trace(format string, args ...interface{}) {
	l.zl.Trace().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Close закрывает файл, если логгер им владеет
func (l *Logger) Close() error {
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Пакетные функции пишут в логгер по умолчанию

func Trace(format string, args ...interface{}) { Default().Trace(format, args...) }

func Debug(format string, args ...interface{}) { Default().Debug(format, args...) }

func Info(format string, args ...interface{}) { Default().Info(format, args...) }

func Warn(format string, args ...interface{}) { Default().Warn(format, args...) }

func Error(format string, args ...interface{}) { Default().Error(format, args...) }
