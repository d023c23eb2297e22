package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestDir_FromEnv(t *testing.T) {
	t.Setenv("LOGS_FOLDER", "/var/log/pbloss")
	if got := Dir(); got != "/var/log/pbloss" {
		t.Errorf("Dir() = %q, want /var/log/pbloss", got)
	}
}

func TestNewFileWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir)
	defer w.Close()

	if w.Filename != filepath.Join(dir, FileName) {
		t.Errorf("Filename = %q", w.Filename)
	}
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(w.Filename); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestEnsureWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	if err := ensureWritable(dir); err != nil {
		t.Fatalf("ensureWritable: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Errorf("probe file left behind")
	}
}

func TestSetup_Levels(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	defer func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var a, b bytes.Buffer
	Setup(false, &a, &b)
	log.Debug().Msg("hidden")
	log.Info().Str("sample", "zircon").Msg("shown")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Errorf("debug line written at info level: %s", out)
		}
		if !strings.Contains(out, `"sample":"zircon"`) {
			t.Errorf("missing structured field: %s", out)
		}
	}

	a.Reset()
	Setup(true, &a)
	log.Debug().Msg("visible")
	if !strings.Contains(a.String(), "visible") {
		t.Errorf("debug line missing in verbose mode")
	}
}
