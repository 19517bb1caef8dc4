package terminal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/JimmyDurandWesolowski/pycom/pkg/config"
	"github.com/JimmyDurandWesolowski/pycom/pkg/layout"
	"github.com/JimmyDurandWesolowski/pycom/pkg/logging"
	"github.com/JimmyDurandWesolowski/pycom/pkg/serialio"
)

// loopbackPort records writes and never produces reads.
type loopbackPort struct {
	mu      sync.Mutex
	written strings.Builder
	open    bool
}

func (p *loopbackPort) Open(cfg serialio.Config) error { p.open = true; return nil }
func (p *loopbackPort) Close() error                   { p.open = false; return nil }
func (p *loopbackPort) IsOpen() bool                   { return p.open }

func (p *loopbackPort) Read(buffer []byte) (int, error) {
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (p *loopbackPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written.Write(data)
	return len(data), nil
}

func (p *loopbackPort) SetReadTimeout(timeout time.Duration) error { return nil }

func (p *loopbackPort) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func testConfig() *config.Config {
	serial := serialio.DefaultConfig()
	serial.RateLimit = 0
	return &config.Config{
		Project:    "test",
		Scrollback: 100,
		Logging:    logging.DefaultConfig(),
		Serial:     serial,
		Interface: []layout.PaneSpec{
			{Name: config.PaneError, Title: "Information", Lines: "3", Cols: "{cols}", PosY: "{lines} - 3", PosX: "0"},
			{Name: config.PaneSerial, Title: "Serial", Lines: "{lines} - 3", Cols: "{cols} // 2", PosY: "0", PosX: "{cols} // 2"},
			{Name: config.PaneCommand, Title: "Commands", Lines: "{lines} - 3", Cols: "{cols} // 2", PosY: "0", PosX: "0", Cursor: true, Prompt: true},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startEngine(t *testing.T, cfg *config.Config, port serialio.Port, inputFiles []string) (*Engine, tcell.SimulationScreen, chan error) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	e := New(cfg, testLogger(), Options{
		Screen:     screen,
		Port:       port,
		InputFiles: inputFiles,
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Run(context.Background())
	}()
	return e, screen, errCh
}

func waitEngine(t *testing.T, errCh chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func waitCond(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestEngine_TypedCommandReachesPort(t *testing.T) {
	port := &loopbackPort{open: true}
	_, screen, errCh := startEngine(t, testConfig(), port, nil)

	// Give the event loop a moment to come up before injecting keys.
	time.Sleep(50 * time.Millisecond)
	for _, r := range "reboot" {
		screen.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	waitCond(t, 3*time.Second, func() bool {
		return port.String() == "reboot\n"
	})

	screen.InjectKey(tcell.KeyCtrlD, 0, tcell.ModNone)
	waitEngine(t, errCh)
}

func TestEngine_BlankLineNotTransmitted(t *testing.T) {
	port := &loopbackPort{open: true}
	_, screen, errCh := startEngine(t, testConfig(), port, nil)

	time.Sleep(50 * time.Millisecond)
	screen.InjectKey(tcell.KeyRune, ' ', tcell.ModNone)
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	waitCond(t, 3*time.Second, func() bool {
		return port.String() == "x\n"
	})

	screen.InjectKey(tcell.KeyCtrlD, 0, tcell.ModNone)
	waitEngine(t, errCh)
}

func TestEngine_InputFilesReplayedInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.txt")
	second := filepath.Join(dir, "second.txt")
	if err := os.WriteFile(first, []byte("setup\nrun\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, []byte("check\n"), 0644); err != nil {
		t.Fatal(err)
	}

	port := &loopbackPort{open: true}
	e, screen, errCh := startEngine(t, testConfig(), port, []string{first, second})

	waitCond(t, 3*time.Second, func() bool {
		return port.String() == "setup\nrun\ncheck\n"
	})
	if got := e.hist.Texts(); len(got) != 3 || got[0] != "setup" || got[2] != "check" {
		t.Errorf("history after replay = %v", got)
	}

	screen.InjectKey(tcell.KeyCtrlD, 0, tcell.ModNone)
	waitEngine(t, errCh)
}

func TestEngine_MissingInputFileIsNotFatal(t *testing.T) {
	port := &loopbackPort{open: true}
	e, screen, errCh := startEngine(t, testConfig(), port, []string{"/does/not/exist"})

	waitCond(t, 3*time.Second, func() bool {
		// e.info is assigned by Run's pane setup; the first polls can
		// race ahead of it.
		return e.info != nil &&
			strings.Contains(strings.Join(e.info.Lines(), "\n"), "input file skipped")
	})

	screen.InjectKey(tcell.KeyCtrlD, 0, tcell.ModNone)
	waitEngine(t, errCh)
}

func TestEngine_ReplayBlocksWhenTransmitQueueFull(t *testing.T) {
	cfg := testConfig()
	// 2 bytes per second: the queue fills long before it drains, so
	// the replay of the final lines has to wait for room.
	cfg.Serial.RateLimit = 2

	total := serialio.DefaultQueueCapacity + 2
	var content strings.Builder
	for i := 0; i < total; i++ {
		fmt.Fprintf(&content, "c%02d\n", i)
	}
	path := filepath.Join(t.TempDir(), "burst.txt")
	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		t.Fatal(err)
	}

	port := &loopbackPort{open: true}
	e, _, errCh := startEngine(t, cfg, port, []string{path})

	// Every line is accepted and echoed, including the ones submitted
	// while the queue was full.
	waitCond(t, 10*time.Second, func() bool {
		// e.command is assigned by Run's pane setup; the first polls
		// can race ahead of it.
		return e.command != nil && len(e.command.Lines()) == total
	})
	if msgs := strings.Join(e.info.Lines(), "\n"); strings.Contains(msgs, "dropped") {
		t.Errorf("information pane reports a dropped line: %q", msgs)
	}
	if got := port.String(); !strings.HasPrefix(content.String(), got) {
		t.Errorf("port stream %q is not a prefix of the replayed input", got)
	}

	e.Stop()
	waitEngine(t, errCh)
}

func TestEngine_HistoryPersistsAcrossSubmissions(t *testing.T) {
	cfg := testConfig()
	port := &loopbackPort{open: true}
	e, screen, errCh := startEngine(t, cfg, port, nil)

	time.Sleep(50 * time.Millisecond)
	for _, line := range []string{"aa", "aa", "bb"} {
		for _, r := range line {
			screen.InjectKey(tcell.KeyRune, r, tcell.ModNone)
		}
		screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	}

	waitCond(t, 3*time.Second, func() bool {
		return strings.Count(port.String(), "\n") == 3
	})

	// The consecutive duplicate collapses in the history but every
	// submission is transmitted.
	waitCond(t, time.Second, func() bool {
		got := e.hist.Texts()
		return len(got) == 2 && got[0] == "aa" && got[1] == "bb"
	})
	if got := port.String(); got != "aa\naa\nbb\n" {
		t.Errorf("port writes = %q, want all three lines", got)
	}

	screen.InjectKey(tcell.KeyCtrlD, 0, tcell.ModNone)
	waitEngine(t, errCh)
}

func TestEngine_StopFromOutside(t *testing.T) {
	port := &loopbackPort{open: true}
	e, _, errCh := startEngine(t, testConfig(), port, nil)

	time.Sleep(50 * time.Millisecond)
	e.Stop()
	waitEngine(t, errCh)
}
