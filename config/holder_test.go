package config_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/artpar/hsdsgate/config"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	h, err := config.NewHolder(writeFile(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got.Gateway.SourceID != "gw-1" {
		t.Errorf("SourceID = %s, want gw-1", got.Gateway.SourceID)
	}
}

func TestHolder_GetReturnsCopy(t *testing.T) {
	h, err := config.NewHolder(writeFile(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	cfg := h.Get()
	cfg.Gateway.SourceID = "mutated"

	if h.Get().Gateway.SourceID != "gw-1" {
		t.Error("mutating the returned config changed the holder")
	}
}

func TestHolder_ReloadAndOnChange(t *testing.T) {
	path := writeFile(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var level string
	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		level = cfg.Logging.Level
		mu.Unlock()
	})

	if err := os.WriteFile(path, []byte("gateway:\n  source_id: gw-1\nlogging:\n  level: ERROR\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if level != "ERROR" {
		t.Errorf("callback level = %s, want ERROR", level)
	}
	if h.Get().Logging.Level != "ERROR" {
		t.Errorf("reloaded level = %s, want ERROR", h.Get().Logging.Level)
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeFile(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var failures int
	h.OnError(func(error) { failures++ })

	if err := os.WriteFile(path, []byte("distribution:\n  domain_id: 999\n"), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}
	if failures != 1 {
		t.Errorf("OnError calls = %d, want 1", failures)
	}
	if h.Get().Distribution.DomainID != 7 {
		t.Errorf("should keep old config, got DomainID = %d", h.Get().Distribution.DomainID)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeFile(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan struct{}, 8)
	h.OnChange(func(*config.Config) { changed <- struct{}{} })

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte("gateway:\n  source_id: gw-1\nlogging:\n  level: DEBUG\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("file watcher did not trigger reload")
	}
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeFile(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.Stop()
	h.Stop()
}

func TestRestartRequired(t *testing.T) {
	old := writeAndLoad(t, validConfig())
	updated := *old
	updated.Logging.Level = "DEBUG"

	if got := config.RestartRequired(old, &updated); len(got) != 0 {
		t.Errorf("RestartRequired = %v, want none for log level change", got)
	}

	updated.Server.Port = 9999
	updated.Distribution.DomainID = 8
	got := config.RestartRequired(old, &updated)
	if len(got) != 2 || got[0] != "server.address" || got[1] != "distribution" {
		t.Errorf("RestartRequired = %v, want [server.address distribution]", got)
	}
}

func TestReloadableFields(t *testing.T) {
	fields := config.ReloadableFields()
	if len(fields) != 1 || fields[0] != "logging.level" {
		t.Errorf("ReloadableFields = %v, want [logging.level]", fields)
	}
	if len(config.NonReloadableFields()) == 0 {
		t.Error("NonReloadableFields returned empty")
	}
}

func validConfig() string {
	return `
gateway:
  source_id: "gw-1"
distribution:
  driver: memory
  domain_id: 7
`
}
