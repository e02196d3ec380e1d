package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

const diagFileName = "diagnostics_log.txt"

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: CHORD_LOG_PATH environment variable
	if envPath := os.Getenv("CHORD_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, diagFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Startup records the selected backend and the outcome of its permission
// preflight.
func Startup(backend string, permErr error) {
	if !logReady {
		return
	}
	if permErr != nil {
		diagLog.Warn().
			Str("backend", backend).
			Err(permErr).
			Msg("hotkeys_disabled")
		return
	}
	diagLog.Info().
		Str("backend", backend).
		Msg("hotkeys_enabled")
}

// Registration records a register completion.
func Registration(id, accel string, success bool, message string) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if !success {
		ev = diagLog.Warn().Str("error", message)
	}
	ev.Str("binding", id).
		Str("keys", accel).
		Bool("success", success).
		Msg("register")
}

// Unregistration records an unregister completion.
func Unregistration(id string, success bool, message string) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if !success {
		ev = diagLog.Warn().Str("error", message)
	}
	ev.Str("binding", id).
		Bool("success", success).
		Msg("unregister")
}

// Probe records a test request result.
func Probe(accel string, success bool, message string) {
	if !logReady {
		return
	}
	ev := diagLog.Info().
		Str("keys", accel).
		Bool("success", success)
	if message != "" {
		ev = ev.Str("error", message)
	}
	ev.Msg("probe")
}

// Capture records the end of a recording session.
func Capture(outcome, accel string) {
	if !logReady {
		return
	}
	ev := diagLog.Info().Str("outcome", outcome)
	if accel != "" {
		ev = ev.Str("keys", accel)
	}
	ev.Msg("recording")
}

// Activation records a press of a registered binding.
func Activation(id string) {
	if !logReady {
		return
	}
	diagLog.Debug().Str("binding", id).Msg("activated")
}
