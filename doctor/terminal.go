package doctor

import (
	"os"

	"golang.org/x/term"

	"chord/shutdown"
)

type terminal struct {
	fd    int
	state *term.State
}

// saveTerminal records the stdin terminal state, nil when stdin is not a
// terminal. Backends on some platforms leave the terminal in raw mode.
func saveTerminal() *terminal {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	st, err := term.GetState(fd)
	if err != nil {
		return nil
	}
	return &terminal{fd: fd, state: st}
}

func (t *terminal) restore() {
	if t != nil {
		term.Restore(t.fd, t.state)
	}
}

func setupInterruptHandler(t *terminal) {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		t.restore()
		println("\nInterrupted")
		os.Exit(1)
	}()
}
