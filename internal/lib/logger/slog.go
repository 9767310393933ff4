package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New создаёт и настраивает новый экземпляр slog.Logger
// уровень и формат вывода задаются строковыми параметрами из конфига
func New(levelStr, format string) *slog.Logger {
	var level slog.Level

	// преобразуем строковый уровень из конфига в slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		// по умолчанию используем INFO, если в конфиге указано что-то некорректное
		level = slog.LevelInfo
	}

	var handler slog.Handler

	switch strings.ToLower(format) {
	case "json":
		// JSON-обработчик для продакшена, логи уходят в сборщик
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	default:
		// текстовый обработчик для локальной разработки
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: true, // нужно, чтобы видеть файл и строку, откуда был вызов лога
			Level:     level,
		})
	}

	return slog.New(handler)
}
