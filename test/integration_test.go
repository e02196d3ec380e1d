//go:build integration

package test_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("CHORD_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "CHORD_TEST_BIN not set; build chord and point CHORD_TEST_BIN at it")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func runChord(t *testing.T, stdin string, args ...string) (out, logDir string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-test"}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	b, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("chord exited with error: %v\noutput: %s", err, b)
	}
	return string(b), logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireLine(t *testing.T, out, prefix string) {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) {
			return
		}
	}
	t.Errorf("no line starting with %q in:\n%s", prefix, out)
}

func TestRegisterActivateUnregister(t *testing.T) {
	out, logDir := runChord(t, cmds(
		"REGISTER launcher ctrl+alt+k", "WAIT",
		"ACTIVATE launcher", "WAIT",
		"UNREGISTER launcher", "WAIT",
		"QUIT"))
	requireLine(t, out, "REGISTERED launcher Ctrl+Alt+K")
	requireLine(t, out, "ACTIVATED launcher")
	requireLine(t, out, "UNREGISTERED launcher")

	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "register") || !strings.Contains(diag, "binding=launcher") {
		t.Errorf("diagnostics missing registration:\n%s", diag)
	}
}

func TestRecordCapture(t *testing.T) {
	out, _ := runChord(t, cmds("START", "HOLD ctrl+shift", "PRESS F8", "WAIT", "RELEASE ctrl+shift", "QUIT"))
	requireLine(t, out, "CAPTURED Ctrl+Shift+F8")
}

func TestRecordEscape(t *testing.T) {
	out, _ := runChord(t, cmds("START", "HOLD ctrl", "PRESS escape", "WAIT", "QUIT"))
	requireLine(t, out, "CANCELLED escape")
	if strings.Contains(out, "CAPTURED") {
		t.Errorf("escape must not capture:\n%s", out)
	}
}

func TestOccupiedCombination(t *testing.T) {
	out, _ := runChord(t, cmds("OCCUPY ctrl+shift+space", "REGISTER dictate ctrl+shift+space", "WAIT", "QUIT"))
	requireLine(t, out, "REGISTER_FAILED dictate")
}

func TestReservedCombination(t *testing.T) {
	keys := "ctrl+alt+delete"
	if runtime.GOOS == "darwin" {
		keys = "cmd+tab"
	}
	out, _ := runChord(t, cmds("REGISTER r "+keys, "WAIT", "QUIT"))
	requireLine(t, out, "REGISTER_FAILED r")
}

func TestProbe(t *testing.T) {
	out, _ := runChord(t, cmds("OCCUPY ctrl+alt+j", "TEST ctrl+alt+j", "TEST ctrl+alt+h", "WAIT", "QUIT"))
	requireLine(t, out, "TEST_FAILED Ctrl+Alt+J")
	requireLine(t, out, "TEST_OK Ctrl+Alt+H")
}

func TestPermissionDenied(t *testing.T) {
	out, logDir := runChord(t, cmds("DENY no display", "REGISTER a ctrl+alt+k", "WAIT", "START", "TAP ctrl+alt+k", "WAIT", "QUIT"))
	requireLine(t, out, "DISABLED")
	requireLine(t, out, "REGISTER_FAILED a")
	requireLine(t, out, "CAPTURED Ctrl+Alt+K")

	if diag := readLog(t, logDir, "diagnostics_log.txt"); !strings.Contains(diag, "hotkeys_disabled") {
		t.Errorf("diagnostics missing startup warning:\n%s", diag)
	}
}

func TestVersion(t *testing.T) {
	b, err := exec.Command(testBinary, "-version").CombinedOutput()
	if err != nil || !strings.HasPrefix(string(b), "chord ") {
		t.Errorf("version: %q, %v", b, err)
	}
}
