package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JimmyDurandWesolowski/pycom/pkg/layout"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Project != "DEFAULT" {
		t.Errorf("Project = %q, want DEFAULT", cfg.Project)
	}
	if !cfg.HistorySave {
		t.Error("HistorySave default = false, want true")
	}
	if cfg.Scrollback != 1000 {
		t.Errorf("Scrollback = %d, want 1000", cfg.Scrollback)
	}
	if cfg.Serial.BaudRate != 115200 {
		t.Errorf("Serial.BaudRate = %d, want 115200", cfg.Serial.BaudRate)
	}
	if len(cfg.Interface) != 3 {
		t.Fatalf("Interface pane count = %d, want 3", len(cfg.Interface))
	}

	// The default layout resolves on a standard screen.
	dims := layout.ScreenDimensions{Lines: 24, Cols: 80}
	rects, err := layout.ResolveAll(cfg.Interface, dims)
	if err != nil {
		t.Fatalf("default layout does not resolve: %v", err)
	}
	byName := map[string]layout.Rect{}
	for i, spec := range cfg.Interface {
		byName[spec.Name] = rects[i]
	}
	if got := byName[PaneError]; got != (layout.Rect{Top: 21, Left: 0, Height: 3, Width: 80}) {
		t.Errorf("error pane rect = %+v", got)
	}
	if got := byName[PaneSerial]; got != (layout.Rect{Top: 0, Left: 40, Height: 21, Width: 40}) {
		t.Errorf("serial pane rect = %+v", got)
	}
	if got := byName[PaneCommand]; got != (layout.Rect{Top: 0, Left: 0, Height: 21, Width: 40}) {
		t.Errorf("command pane rect = %+v", got)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"project": "widget",
		"scrollback": 500,
		"serial": {"port": "/dev/ttyACM0", "baudrate": 9600, "ratelimit": 100}
	}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Project != "widget" {
		t.Errorf("Project = %q, want widget", cfg.Project)
	}
	if cfg.Scrollback != 500 {
		t.Errorf("Scrollback = %d, want 500", cfg.Scrollback)
	}
	if cfg.Serial.Port != "/dev/ttyACM0" || cfg.Serial.BaudRate != 9600 {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	// Unset serial fields keep their defaults.
	if cfg.Serial.ByteSize != 8 {
		t.Errorf("Serial.ByteSize = %d, want 8", cfg.Serial.ByteSize)
	}
}

func TestLoad_GeometryAcceptsIntsAndStrings(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"interface": [
			{"name": "error", "title": "Info", "lines": 3, "cols": "{cols}", "posy": "{lines} - 3", "posx": 0},
			{"name": "serial", "title": "Serial", "lines": "{lines} - 3", "cols": "{cols}", "posy": 0, "posx": 0},
			{"name": "command", "title": "Cmd", "lines": "{lines} - 3", "cols": "{cols}", "posy": 0, "posx": 0, "cursor": true, "prompt": true}
		]
	}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	spec := cfg.Interface[0]
	if spec.Lines != "3" || spec.PosX != "0" {
		t.Errorf("numeric geometry decoded as (%q, %q), want (3, 0)", spec.Lines, spec.PosX)
	}
	if spec.PosY != "{lines} - 3" {
		t.Errorf("expression geometry = %q", spec.PosY)
	}
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	// No explicit path and no file at the default location still yields
	// a usable default configuration.
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Project != "DEFAULT" {
		t.Errorf("Project = %q, want DEFAULT", cfg.Project)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Load() of a missing explicit path should fail")
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "bad baud rate",
			content: `{"serial": {"baudrate": 12345}}`,
			errPart: "baud",
		},
		{
			name:    "zero scrollback",
			content: `{"scrollback": 0}`,
			errPart: "scrollback",
		},
		{
			name: "duplicate pane names",
			content: `{"interface": [
				{"name": "serial", "lines": 1, "cols": 1, "posy": 0, "posx": 0, "prompt": true},
				{"name": "serial", "lines": 1, "cols": 1, "posy": 0, "posx": 0}
			]}`,
			errPart: "duplicate",
		},
		{
			name: "no prompt pane",
			content: `{"interface": [
				{"name": "serial", "lines": 1, "cols": 1, "posy": 0, "posx": 0}
			]}`,
			errPart: "prompt",
		},
		{
			name: "no serial pane",
			content: `{"interface": [
				{"name": "command", "lines": 1, "cols": 1, "posy": 0, "posx": 0, "prompt": true}
			]}`,
			errPart: "serial",
		},
		{
			name:    "empty interface",
			content: `{"interface": []}`,
			errPart: "pane",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(strings.ToLower(err.Error()), tt.errPart) {
				t.Errorf("error = %v, want mention of %q", err, tt.errPart)
			}
		})
	}
}

func TestValidate_ProjectRequired(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Project = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with empty project should fail")
	}
}
