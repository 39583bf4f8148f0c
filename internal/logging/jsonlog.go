package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init configures the process logger. Pretty switches to the console writer.
func Init(level string, pretty bool) {
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	SetOutput(out)
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// SetOutput replaces the sink, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// L returns the current logger.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func Log(level zerolog.Level, msg string, fields map[string]any) {
	L().WithLevel(level).Fields(fields).Msg(msg)
}

func Debug(msg string, fields map[string]any) { Log(zerolog.DebugLevel, msg, fields) }
func Info(msg string, fields map[string]any)  { Log(zerolog.InfoLevel, msg, fields) }
func Warn(msg string, fields map[string]any)  { Log(zerolog.WarnLevel, msg, fields) }
func Error(msg string, fields map[string]any) { Log(zerolog.ErrorLevel, msg, fields) }
