package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadConfig(t *testing.T, content string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "voyagesim.cfg.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if err := Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	loadConfig(t, `{}`)

	if got := GetString("logLevel"); got != "info" {
		t.Errorf("logLevel = %q, want info", got)
	}
	if got := GetInt("sim.totalSteps"); got != 200 {
		t.Errorf("sim.totalSteps = %d, want 200", got)
	}
	if got := GetFloat("sim.deviation.threshold"); got != 0.3 {
		t.Errorf("sim.deviation.threshold = %v, want 0.3", got)
	}
	if got := GetString("storage.type"); got != "memory" {
		t.Errorf("storage.type = %q, want memory", got)
	}
	if GetBool("influx.enabled") {
		t.Error("influx.enabled default should be false")
	}
	if got := TickPeriod(); got != 250*time.Millisecond {
		t.Errorf("TickPeriod = %v, want 250ms", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error when config file is absent")
	}
}

func TestLoadOverrides(t *testing.T) {
	loadConfig(t, `{
		"logLevel": "debug",
		"sim": {"periodMs": 50, "totalSteps": 500},
		"storage": {
			"type": "sqlite",
			"sqlite": {"dumpPath": "/tmp/v.db", "dumpIntervalSec": 10}
		}
	}`)

	if got := GetString("logLevel"); got != "debug" {
		t.Errorf("logLevel = %q, want debug", got)
	}
	if got := TickPeriod(); got != 50*time.Millisecond {
		t.Errorf("TickPeriod = %v, want 50ms", got)
	}
	if got := GetInt("sim.totalSteps"); got != 500 {
		t.Errorf("sim.totalSteps = %d, want 500", got)
	}

	sc := Storage()
	if sc.Type != "sqlite" {
		t.Errorf("Storage().Type = %q, want sqlite", sc.Type)
	}
	if sc.Sqlite.DumpPath != "/tmp/v.db" || sc.Sqlite.DumpIntervalSec != 10 {
		t.Errorf("sqlite config = %+v", sc.Sqlite)
	}
	// Untouched subsections keep their defaults.
	if sc.Memory.OutputDir != "./voyages" {
		t.Errorf("memory outputDir = %q, want ./voyages", sc.Memory.OutputDir)
	}
	if sc.Websocket.URL != "ws://localhost:5000/stream" {
		t.Errorf("websocket url = %q", sc.Websocket.URL)
	}
}

func TestOTelMaterializer(t *testing.T) {
	loadConfig(t, `{
		"otel": {"enabled": true, "serviceName": "voyagesim-test", "batchTimeoutSec": 2, "endpoint": "collector:4318", "insecure": false}
	}`)

	oc := OTel()
	if !oc.Enabled {
		t.Error("Enabled should be true")
	}
	if oc.ServiceName != "voyagesim-test" {
		t.Errorf("ServiceName = %q", oc.ServiceName)
	}
	if oc.BatchTimeout != 2*time.Second {
		t.Errorf("BatchTimeout = %v, want 2s", oc.BatchTimeout)
	}
	if oc.Endpoint != "collector:4318" || oc.Insecure {
		t.Errorf("endpoint/insecure = %q/%v", oc.Endpoint, oc.Insecure)
	}
}
