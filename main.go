package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"chord/conflict"
	"chord/doctor"
	"chord/engine"
	"chord/hotkey"
	"chord/input"
	"chord/log"
	"chord/login"
	"chord/notify"
	"chord/platform"
	"chord/profile"
	"chord/shutdown"
)

var version = "dev"

const backendTimeout = 30 * time.Second

// run returns the process exit code so deferred cleanup finishes before
// main exits.
func run() int {
	profileFlag := flag.String("profile", "", "hotkey profile (.toml, .yaml or .yml; default: OS config dir)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	doctorFlag := flag.Bool("doctor", false, "Run hotkey diagnostics and exit")
	doctorKeyFlag := flag.String("doctor-key", doctor.DefaultKey, "Accelerator registered by -doctor's live check")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven, fake backend)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	recordTimeoutFlag := flag.Duration("record-timeout", 0, "Cancel a recording after this long without a capture (0 = never)")
	autostartFlag := flag.String("autostart", "", "Start headless at login: on or off")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *versionFlag {
		fmt.Printf("chord %s\n", version)
		return 0
	}

	if *doctorFlag {
		return doctor.Run(*doctorKeyFlag)
	}

	path := *profileFlag
	if path == "" {
		path = profile.DefaultPath()
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if *autostartFlag != "" {
		return setAutostart(*autostartFlag, path)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if *testFlag {
		runTestMode(*recordTimeoutFlag)
		return 0
	}

	env := platform.Detect()
	backend := platform.New()
	eng := engine.New(backend, conflict.New(conflict.Table(runtime.GOOS, env.DesktopKey())), engine.Config{
		RecordingTimeout: *recordTimeoutFlag,
		BackendTimeout:   backendTimeout,
	})
	defer func() {
		if err := eng.Close(); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	if err := eng.Start(); err != nil {
		notify.HotkeysDisabled(backend.FormatError(err))
	}

	bindings, err := profile.Load(path, hotkey.DefaultStyle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	tracker := input.NewTracker()
	var sink EventSink = &printSink{out: os.Stdout}
	var ui *tuiApp
	if *tuiFlag {
		ui = newTUIApp(path)
		sink = ui
	}
	h := newHost(eng, sink, tracker, path)
	if ui != nil {
		ui.attach(h, tracker)
	}

	loopDone := make(chan struct{})
	go func() {
		h.run(ctx)
		close(loopDone)
	}()
	h.do(func() { h.load(bindings) })

	if err := profile.Watch(ctx, path, hotkey.DefaultStyle, func(bs []hotkey.Binding, err error) {
		if err != nil {
			log.Warnf("profile reload: %v", err)
			h.post(ctx, func() { sink.Notice(err.Error()) })
			return
		}
		h.post(ctx, func() { h.reload(bs) })
	}); err != nil {
		log.Warnf("%v", err)
	}

	if ui != nil {
		if err := ui.run(); err != nil {
			log.Errorf("TUI error: %v", err)
		}
		stop()
	} else {
		fmt.Printf("chord %s: %d hotkey(s) from %s, backend %s. Ctrl+C to quit.\n", version, len(bindings), path, backend.Name())
		<-ctx.Done()
	}
	<-loopDone
	return 0
}

func setAutostart(mode, profilePath string) int {
	var err error
	switch mode {
	case "on":
		var argv []string
		if argv, err = login.Command(profilePath); err == nil {
			err = login.Enable(argv)
		}
	case "off":
		err = login.Disable()
	default:
		fmt.Fprintf(os.Stderr, "Error: -autostart must be on or off, got %q\n", mode)
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("autostart %s\n", mode)
	return 0
}
